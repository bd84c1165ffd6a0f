package heap

import (
	"fmt"

	"btreeindex/storage/bufferpool"
	"btreeindex/storage/diskmanager"
	"btreeindex/storage/page"
)

// HeapFile is an unordered, append-mostly collection of fixed-format
// records — the external record scanner the index engine bulk-loads from.
// It has no notion of the attribute the index is built over; that
// interpretation lives entirely on the index side of the boundary.
type HeapFile struct {
	fileID uint32
	bp     *bufferpool.BufferPool
	dm     *diskmanager.DiskManager
}

// Open opens (creating if necessary) the heap file at path.
func Open(path string, bp *bufferpool.BufferPool, dm *diskmanager.DiskManager) (*HeapFile, error) {
	fileID, err := dm.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open heap file: %w", err)
	}

	existed, err := dm.Exists(fileID)
	if err != nil {
		return nil, err
	}
	hf := &HeapFile{fileID: fileID, bp: bp, dm: dm}
	if !existed {
		if err := hf.initFirstPage(); err != nil {
			return nil, err
		}
	}
	return hf, nil
}

func (hf *HeapFile) initFirstPage() error {
	pg, err := hf.bp.NewPage(hf.fileID, page.TypeHeap)
	if err != nil {
		return fmt.Errorf("allocate first heap page: %w", err)
	}
	InitPage(pg)
	return hf.bp.UnpinPage(hf.fileID, pg.ID, true)
}

// Insert appends data as a new record, returning the (page, slot) that
// locates it. It scans forward from the first page for one with enough
// free space before allocating a new page.
func (hf *HeapFile) Insert(data []byte) (pageNumber uint32, slotNumber uint16, err error) {
	firstID := hf.dm.FirstPageID()
	for pageNumber = firstID; ; pageNumber++ {
		pg, err := hf.bp.FetchPage(hf.fileID, pageNumber)
		if err != nil {
			// Ran past the last existing page — allocate a fresh one.
			pg, err = hf.bp.NewPage(hf.fileID, page.TypeHeap)
			if err != nil {
				return 0, 0, fmt.Errorf("allocate heap page: %w", err)
			}
			InitPage(pg)
			pageNumber = pg.ID
		}

		if FreeSpace(pg) < len(data) {
			hf.bp.UnpinPage(hf.fileID, pg.ID, false)
			continue
		}

		slot, err := InsertRecord(pg, data)
		if err != nil {
			hf.bp.UnpinPage(hf.fileID, pg.ID, false)
			return 0, 0, err
		}
		if err := hf.bp.UnpinPage(hf.fileID, pg.ID, true); err != nil {
			return 0, 0, err
		}
		return pageNumber, slot, nil
	}
}

// Get returns a copy of the record at (pageNumber, slotNumber).
func (hf *HeapFile) Get(pageNumber uint32, slotNumber uint16) ([]byte, error) {
	pg, err := hf.bp.FetchPage(hf.fileID, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", pageNumber, err)
	}
	defer hf.bp.UnpinPage(hf.fileID, pg.ID, false)
	return GetRecord(pg, slotNumber)
}

// Scan returns a sequential scanner over every live record in the file.
// Its Next method satisfies index.RecordScanner.
func (hf *HeapFile) Scan() *Scanner {
	return &Scanner{hf: hf, pageNumber: hf.dm.FirstPageID()}
}

// Close flushes dirty pages and closes the underlying file.
func (hf *HeapFile) Close() error {
	if err := hf.bp.FlushAllPages(); err != nil {
		return err
	}
	return hf.dm.CloseFile(hf.fileID)
}

// Scanner walks every live record in a HeapFile in page/slot order.
type Scanner struct {
	hf         *HeapFile
	pageNumber uint32
	slot       uint16
	cur        *page.Page
}

// Next returns the next live record, or ok=false once the file is
// exhausted. This signature matches index.RecordScanner so a Scanner can
// be passed directly to Index.BulkLoad.
func (s *Scanner) Next() (raw []byte, pageNumber uint32, slotNumber uint16, ok bool, err error) {
	for {
		if s.cur == nil {
			pg, ferr := s.hf.bp.FetchPage(s.hf.fileID, s.pageNumber)
			if ferr != nil {
				return nil, 0, 0, false, nil // no more pages: end of file
			}
			s.cur = pg
			s.slot = 0
		}

		if s.slot >= SlotCount(s.cur) {
			s.hf.bp.UnpinPage(s.hf.fileID, s.cur.ID, false)
			s.cur = nil
			s.pageNumber++
			continue
		}

		if !IsSlotLive(s.cur, s.slot) {
			s.slot++
			continue
		}

		raw, err = GetRecord(s.cur, s.slot)
		pageNumber, slotNumber = s.cur.ID, s.slot
		s.slot++
		return raw, pageNumber, slotNumber, err == nil, err
	}
}

// Close releases the scanner's currently pinned page, if any.
func (s *Scanner) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.hf.bp.UnpinPage(s.hf.fileID, s.cur.ID, false)
	s.cur = nil
	return err
}
