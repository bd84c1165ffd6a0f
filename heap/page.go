package heap

import (
	"encoding/binary"
	"fmt"

	"btreeindex/storage/page"
)

/*
A heap page is a slotted page: records grow forward from the header,
the slot directory grows backward from the end of the page, and free
space is whatever gap remains between them. This is the external record
scanner's storage format — the B+Tree engine never touches it directly,
only the RecordID (page number, slot number) pairs it produces.

	offset 0   kind byte (page.TypeHeap)
	offset 1-3 reserved
	offset 4   recordEndPtr   uint16 — first free byte after the last record
	offset 6   slotRegionStart uint16 — first byte of the slot directory
	offset 8   slotCount      uint16 — live + tombstoned slots
	offset 10  headerSize

A slot is 4 bytes: offset uint16, length uint16. length == 0 marks a
tombstone; its slot entry is kept so existing RecordIDs stay valid.
*/

const (
	offRecordEndPtr    = 4
	offSlotRegionStart = 6
	offSlotCount       = 8
	headerSize         = 10
	slotSize           = 4
)

func InitPage(pg *page.Page) {
	clear(pg.Data)
	pg.Data[0] = byte(page.TypeHeap)
	pg.PageType = page.TypeHeap
	binary.LittleEndian.PutUint16(pg.Data[offRecordEndPtr:], headerSize)
	binary.LittleEndian.PutUint16(pg.Data[offSlotRegionStart:], page.Size)
	binary.LittleEndian.PutUint16(pg.Data[offSlotCount:], 0)
	pg.IsDirty = true
}

func recordEndPtr(pg *page.Page) uint16    { return binary.LittleEndian.Uint16(pg.Data[offRecordEndPtr:]) }
func setRecordEndPtr(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offRecordEndPtr:], v)
}
func slotRegionStart(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[offSlotRegionStart:])
}
func setSlotRegionStart(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offSlotRegionStart:], v)
}
func slotCount(pg *page.Page) uint16 { return binary.LittleEndian.Uint16(pg.Data[offSlotCount:]) }
func setSlotCount(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[offSlotCount:], n)
}

func slotByteOffset(i uint16) int { return page.Size - (int(i)+1)*slotSize }

func readSlot(pg *page.Page, i uint16) (offset, length uint16) {
	base := slotByteOffset(i)
	return binary.LittleEndian.Uint16(pg.Data[base:]), binary.LittleEndian.Uint16(pg.Data[base+2:])
}

func writeSlot(pg *page.Page, i uint16, offset, length uint16) {
	base := slotByteOffset(i)
	binary.LittleEndian.PutUint16(pg.Data[base:], offset)
	binary.LittleEndian.PutUint16(pg.Data[base+2:], length)
}

// FreeSpace is the usable bytes left for a new record, including the slot
// entry it would consume.
func FreeSpace(pg *page.Page) int {
	avail := int(slotRegionStart(pg)) - int(recordEndPtr(pg)) - slotSize
	if avail < 0 {
		return 0
	}
	return avail
}

// InsertRecord appends data to the page and returns its slot index.
func InsertRecord(pg *page.Page, data []byte) (uint16, error) {
	length := uint16(len(data))
	if length == 0 {
		return 0, fmt.Errorf("heap: cannot insert an empty record")
	}
	if FreeSpace(pg) < int(length) {
		return 0, fmt.Errorf("heap: need %d bytes, have %d", length, FreeSpace(pg))
	}

	idx := slotCount(pg)
	for i := uint16(0); i < slotCount(pg); i++ {
		if _, l := readSlot(pg, i); l == 0 {
			idx = i
			break
		}
	}

	offset := recordEndPtr(pg)
	copy(pg.Data[offset:], data)
	setRecordEndPtr(pg, offset+length)
	writeSlot(pg, idx, offset, length)

	if idx == slotCount(pg) {
		setSlotRegionStart(pg, slotRegionStart(pg)-slotSize)
		setSlotCount(pg, slotCount(pg)+1)
	}
	pg.IsDirty = true
	return idx, nil
}

// GetRecord returns a copy of the record at slot i.
func GetRecord(pg *page.Page, i uint16) ([]byte, error) {
	if i >= slotCount(pg) {
		return nil, fmt.Errorf("heap: slot %d out of range (count=%d)", i, slotCount(pg))
	}
	offset, length := readSlot(pg, i)
	if length == 0 {
		return nil, fmt.Errorf("heap: slot %d is a tombstone", i)
	}
	out := make([]byte, length)
	copy(out, pg.Data[offset:offset+length])
	return out, nil
}

// IsSlotLive reports whether slot i holds a live record.
func IsSlotLive(pg *page.Page, i uint16) bool {
	if i >= slotCount(pg) {
		return false
	}
	_, length := readSlot(pg, i)
	return length > 0
}

// SlotCount is the total number of slot entries (live + tombstoned).
func SlotCount(pg *page.Page) uint16 { return slotCount(pg) }
