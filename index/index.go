package index

import (
	"fmt"
	"log"
	"sync"

	"btreeindex/storage/bufferpool"
	"btreeindex/storage/diskmanager"
	"btreeindex/storage/page"
)

/*
Index is the façade a caller opens, builds, and scans. It owns nothing
about the underlying pages beyond its own file id and root pointer — the
buffer pool and disk manager are handed in so several indices (and a heap
file) can share one page cache, the way the page manager is described as
an external collaborator.

File naming follows "{relationName}.{attrByteOffset}", one index file per
indexed attribute of a relation.
*/

type Index struct {
	fileID         uint32
	bp             *bufferpool.BufferPool
	dm             *diskmanager.DiskManager
	relationName   string
	attrByteOffset int32
	root           PageID
	mu             sync.Mutex
}

// FileName returns the conventional on-disk name for an index over
// relationName's attribute at attrByteOffset.
func FileName(relationName string, attrByteOffset int32) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// Open opens path as an index for relationName's attribute at
// attrByteOffset, creating it (with an empty root leaf) if it does not yet
// exist. If the file exists but its meta page describes a different
// relation or attribute, Open fails with KindBadIndexInfo.
func Open(path, relationName string, attrByteOffset int32, bp *bufferpool.BufferPool, dm *diskmanager.DiskManager) (*Index, error) {
	fileID, err := dm.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}

	existed, err := dm.Exists(fileID)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		fileID:         fileID,
		bp:             bp,
		dm:             dm,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
	}

	if existed {
		if err := idx.loadMeta(); err != nil {
			return nil, err
		}
		return idx, nil
	}

	if err := idx.createMeta(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) loadMeta() error {
	metaPage, err := idx.bp.FetchPage(idx.fileID, uint32(idx.dm.FirstPageID()))
	if err != nil {
		return fmt.Errorf("fetch meta page: %w", err)
	}
	defer idx.bp.UnpinPage(idx.fileID, metaPage.ID, false)

	info, err := readMetaPage(metaPage)
	if err != nil {
		return err
	}
	if info.relationName != idx.relationName || info.attrByteOffset != idx.attrByteOffset {
		return newErr(KindBadIndexInfo,
			"file describes index on %s.%d, not %s.%d",
			info.relationName, info.attrByteOffset, idx.relationName, idx.attrByteOffset)
	}
	idx.root = info.rootPageID
	return nil
}

func (idx *Index) createMeta() error {
	metaPage, err := idx.bp.NewPage(idx.fileID, page.TypeMeta)
	if err != nil {
		return fmt.Errorf("allocate meta page: %w", err)
	}

	rootPage, err := idx.bp.NewPage(idx.fileID, page.TypeLeaf)
	if err != nil {
		idx.bp.UnpinPage(idx.fileID, metaPage.ID, false)
		return fmt.Errorf("allocate root leaf: %w", err)
	}
	InitLeaf(rootPage)
	idx.root = PageID(rootPage.ID)
	idx.bp.UnpinPage(idx.fileID, rootPage.ID, true)

	if err := initMetaPage(metaPage, metaInfo{
		relationName:   idx.relationName,
		attrByteOffset: idx.attrByteOffset,
		rootPageID:     idx.root,
	}); err != nil {
		idx.bp.UnpinPage(idx.fileID, metaPage.ID, false)
		return err
	}
	idx.bp.UnpinPage(idx.fileID, metaPage.ID, true)

	return idx.bp.FlushAllPages()
}

// Insert adds (key, rid) to the index.
func (idx *Index) Insert(key int32, rid RecordID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertEntry(key, rid)
}

// RecordScanner supplies records for BulkLoad without the index package
// needing to know anything about heap file layout — only a record's raw
// bytes (to pull the key out at attrByteOffset) and the page/slot pair
// that locates it.
type RecordScanner interface {
	Next() (raw []byte, pageNumber uint32, slotNumber uint16, ok bool, err error)
}

// BulkLoad inserts every record produced by scanner, reading each key as a
// little-endian int32 at the index's configured attrByteOffset.
func (idx *Index) BulkLoad(scanner RecordScanner) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := 0
	for {
		raw, pageNumber, slotNumber, ok, err := scanner.Next()
		if err != nil {
			return n, fmt.Errorf("bulk load: %w", err)
		}
		if !ok {
			return n, nil
		}
		key, err := extractKey(raw, idx.attrByteOffset)
		if err != nil {
			return n, err
		}
		rid := RecordID{PageNumber: pageNumber, SlotNumber: slotNumber}
		if err := idx.insertEntry(key, rid); err != nil {
			return n, err
		}
		n++
	}
}

func extractKey(raw []byte, attrByteOffset int32) (int32, error) {
	off := int(attrByteOffset)
	if off < 0 || off+4 > len(raw) {
		return 0, newErr(KindBadIndexInfo, "attribute offset %d out of bounds for record of %d bytes", off, len(raw))
	}
	return int32(uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24), nil
}

// Close flushes every dirty page and closes the underlying file. Any
// failure is logged rather than returned, matching the rest of the page
// manager's destructor idiom.
func (idx *Index) Close() {
	if err := idx.bp.FlushAllPages(); err != nil {
		log.Printf("index close: flush: %v", err)
	}
	if err := idx.dm.Sync(); err != nil {
		log.Printf("index close: sync: %v", err)
	}
	if err := idx.dm.CloseFile(idx.fileID); err != nil {
		log.Printf("index close: close file: %v", err)
	}
}
