package index

import (
	"encoding/binary"

	"btreeindex/storage/page"
)

/*
Node codec — pure layout logic over a page's byte slice, no I/O.

Both node kinds share an 8-byte header: a kind byte at offset 0 (so a page
read cold off disk can be classified without any other context), three
reserved bytes, and a 4-byte field holding either the leaf's right-sibling
page id or the internal node's level.

Leaf:     [ kind(1) rsv(3) rightSib(4) ][ keyArray[L] int32 ][ ridArray[L] RecordID ]
Internal: [ kind(1) rsv(3) level(4)    ][ keyArray[N] int32 ][ pageNoArray[N+1] uint32 ]

A slot is free — and therefore past the node's logical key count — the
moment its RecordID/child pointer is the nil sentinel. leafCount and
internalKeyCount walk the array to find that boundary rather than storing a redundant counter, so a
codec bug can never let the stored count and the sentinels disagree.
*/

const (
	nodeHeaderSize = 8
	keySize        = 4 // int32
	recordIDSize   = 6 // uint32 + uint16
	pageIDSize     = 4 // uint32

	// MaxLeafEntries is the number of (key, rid) slots a leaf page holds.
	MaxLeafEntries = (page.Size - nodeHeaderSize) / (keySize + recordIDSize)

	// MaxInternalKeys is the number of keys an internal page holds; it
	// always carries one more child pointer than key.
	MaxInternalKeys = (page.Size - nodeHeaderSize - pageIDSize) / (keySize + pageIDSize)
)

func kindOf(pg *page.Page) page.Type { return page.Type(pg.Data[0]) }

func isLeafPage(pg *page.Page) bool { return kindOf(pg) == page.TypeLeaf }

// InitLeaf zero-fills pg and stamps it as a blank leaf node with no
// right sibling.
func InitLeaf(pg *page.Page) {
	clear(pg.Data)
	pg.Data[0] = byte(page.TypeLeaf)
	pg.PageType = page.TypeLeaf
	pg.IsDirty = true
}

// InitInternal zero-fills pg and stamps it as a blank internal node at the
// given level (1 = parent of leaves).
func InitInternal(pg *page.Page, level int32) {
	clear(pg.Data)
	pg.Data[0] = byte(page.TypeInternal)
	binary.LittleEndian.PutUint32(pg.Data[4:], uint32(level))
	pg.PageType = page.TypeInternal
	pg.IsDirty = true
}

func leafKeyOffset(i int) int { return nodeHeaderSize + i*keySize }
func leafRIDOffset(i int) int { return nodeHeaderSize + MaxLeafEntries*keySize + i*recordIDSize }

func internalKeyOffset(i int) int { return nodeHeaderSize + i*keySize }
func internalChildOffset(i int) int {
	return nodeHeaderSize + MaxInternalKeys*keySize + i*pageIDSize
}

// --- leaf accessors ---

func leafKey(pg *page.Page, i int) int32 {
	off := leafKeyOffset(i)
	return int32(binary.LittleEndian.Uint32(pg.Data[off:]))
}

func setLeafKey(pg *page.Page, i int, key int32) {
	binary.LittleEndian.PutUint32(pg.Data[leafKeyOffset(i):], uint32(key))
}

func leafRID(pg *page.Page, i int) RecordID {
	off := leafRIDOffset(i)
	return RecordID{
		PageNumber: binary.LittleEndian.Uint32(pg.Data[off:]),
		SlotNumber: binary.LittleEndian.Uint16(pg.Data[off+4:]),
	}
}

func setLeafRID(pg *page.Page, i int, rid RecordID) {
	off := leafRIDOffset(i)
	binary.LittleEndian.PutUint32(pg.Data[off:], rid.PageNumber)
	binary.LittleEndian.PutUint16(pg.Data[off+4:], rid.SlotNumber)
}

func leafRightSib(pg *page.Page) PageID {
	return PageID(binary.LittleEndian.Uint32(pg.Data[4:]))
}

func setLeafRightSib(pg *page.Page, id PageID) {
	binary.LittleEndian.PutUint32(pg.Data[4:], uint32(id))
}

// leafCount returns the number of live (key, rid) entries, found as the
// lowest index whose RecordID is the nil sentinel.
func leafCount(pg *page.Page) int {
	for i := 0; i < MaxLeafEntries; i++ {
		if leafRID(pg, i).IsNil() {
			return i
		}
	}
	return MaxLeafEntries
}

// --- internal accessors ---

func internalLevel(pg *page.Page) int32 {
	return int32(binary.LittleEndian.Uint32(pg.Data[4:]))
}

func internalKey(pg *page.Page, i int) int32 {
	off := internalKeyOffset(i)
	return int32(binary.LittleEndian.Uint32(pg.Data[off:]))
}

func setInternalKey(pg *page.Page, i int, key int32) {
	binary.LittleEndian.PutUint32(pg.Data[internalKeyOffset(i):], uint32(key))
}

func internalChild(pg *page.Page, i int) PageID {
	off := internalChildOffset(i)
	return PageID(binary.LittleEndian.Uint32(pg.Data[off:]))
}

func setInternalChild(pg *page.Page, i int, id PageID) {
	binary.LittleEndian.PutUint32(pg.Data[internalChildOffset(i):], uint32(id))
}

// internalKeyCount returns the number of live keys, found as the lowest
// index whose *following* child pointer (i+1) is nil — pageNoArray always
// has one more live entry than keyArray.
func internalKeyCount(pg *page.Page) int {
	for i := 0; i < MaxInternalKeys; i++ {
		if internalChild(pg, i+1) == NilPageID {
			return i
		}
	}
	return MaxInternalKeys
}

// findChild returns the index of the child pointer to descend into for key.
// Internal nodes route by "keys[i-1] <= key < keys[i]" using pageNoArray[i].
func findChild(pg *page.Page, key int32) int {
	n := internalKeyCount(pg)
	i := 0
	for i < n && key >= internalKey(pg, i) {
		i++
	}
	return i
}

// findLeafSlot returns the insertion index for target: the first slot
// whose key is strictly greater than target. Equal keys are scanned past,
// so a newly inserted entry lands after every existing entry with the same
// key — preserving the rid tiebreaker's ascending order across repeated
// inserts of a duplicate key.
func findLeafSlot(pg *page.Page, target int32) int {
	n := leafCount(pg)
	i := 0
	for i < n && leafKey(pg, i) <= target {
		i++
	}
	return i
}
