package bufferpool

import (
	"fmt"

	"btreeindex/storage/diskmanager"
	"btreeindex/storage/page"
)

/*
BufferPool is an LRU page cache sitting in front of a DiskManager. Every
page handed to a caller comes back pinned; the caller must UnpinPage it
exactly once, flagging whether it wrote to the page. A pinned page is never
evicted, so the insertion and scan engines' "pin everything on the current
path, unpin as you leave it" discipline is what keeps the pool bounded.
*/

func New(capacity int, dm *diskmanager.DiskManager) *BufferPool {
	return &BufferPool{
		pages:       make(map[PageKey]*page.Page, capacity),
		capacity:    capacity,
		diskManager: dm,
		accessOrder: make([]PageKey, 0, capacity),
	}
}

// FetchPage returns pageID of fileID, pinned, loading it from disk on a
// cache miss.
func (bp *BufferPool) FetchPage(fileID, pageID uint32) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := PageKey{fileID, pageID}
	if pg, ok := bp.pages[key]; ok {
		bp.touch(key)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	pg, err := bp.diskManager.ReadPage(fileID, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d/%d: %w", fileID, pageID, err)
	}

	if err := bp.add(key, pg); err != nil {
		return nil, err
	}
	pg.PinCount++
	return pg, nil
}

// NewPage allocates a fresh page in fileID, zero-filled, pinned and dirty.
func (bp *BufferPool) NewPage(fileID uint32, pageType page.Type) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	id, err := bp.diskManager.AllocatePage(fileID)
	if err != nil {
		return nil, fmt.Errorf("allocate page in file %d: %w", fileID, err)
	}

	pg := page.New(id, fileID, pageType)
	pg.IsDirty = true
	pg.PinCount = 1

	key := PageKey{fileID, id}
	if err := bp.add(key, pg); err != nil {
		pg.PinCount = 0
		return nil, err
	}
	return pg, nil
}

// UnpinPage releases one pin on pageID. isDirty ORs into the page's dirty
// flag — once a page has been written to, it stays dirty until flushed.
func (bp *BufferPool) UnpinPage(fileID, pageID uint32, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := PageKey{fileID, pageID}
	pg, ok := bp.pages[key]
	if !ok {
		return fmt.Errorf("unpin: page %d/%d not resident", fileID, pageID)
	}

	pg.Lock()
	defer pg.Unlock()
	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}
	return nil
}

// FlushPage writes pageID back to disk if dirty.
func (bp *BufferPool) FlushPage(fileID, pageID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushLocked(PageKey{fileID, pageID})
}

func (bp *BufferPool) flushLocked(key PageKey) error {
	pg, ok := bp.pages[key]
	if !ok {
		return nil
	}
	pg.Lock()
	defer pg.Unlock()
	if !pg.IsDirty {
		return nil
	}
	if err := bp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("flush page %d/%d: %w", key.FileID, key.PageID, err)
	}
	pg.IsDirty = false
	return nil
}

// FlushAllPages writes every dirty page currently resident back to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for key := range bp.pages {
		if err := bp.flushLocked(key); err != nil {
			return err
		}
	}
	return nil
}

// add inserts pg into the pool, evicting an unpinned LRU victim if full.
// Caller holds bp.mu.
func (bp *BufferPool) add(key PageKey, pg *page.Page) error {
	if _, ok := bp.pages[key]; ok {
		bp.touch(key)
		return nil
	}
	if len(bp.pages) >= bp.capacity {
		if err := bp.evict(); err != nil {
			return fmt.Errorf("buffer pool full: %w", err)
		}
	}
	bp.pages[key] = pg
	bp.touch(key)
	return nil
}

// evict drops the least-recently-used unpinned page, flushing it first if
// dirty. Caller holds bp.mu.
func (bp *BufferPool) evict() error {
	for i := 0; i < len(bp.accessOrder); i++ {
		key := bp.accessOrder[i]
		pg, ok := bp.pages[key]
		if !ok {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}
		pg.Lock()
		pinned := pg.PinCount > 0
		pg.Unlock()
		if pinned {
			continue
		}
		if err := bp.flushLocked(key); err != nil {
			return err
		}
		delete(bp.pages, key)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		return nil
	}
	return fmt.Errorf("every resident page is pinned")
}

// touch moves key to the most-recently-used end. Caller holds bp.mu.
func (bp *BufferPool) touch(key PageKey) {
	for i, k := range bp.accessOrder {
		if k == key {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, key)
}

// Stats reports current pool occupancy.
func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	s := Stats{TotalPages: len(bp.pages), Capacity: bp.capacity}
	for _, pg := range bp.pages {
		pg.RLock()
		if pg.PinCount > 0 {
			s.PinnedPages++
		}
		if pg.IsDirty {
			s.DirtyPages++
		}
		pg.RUnlock()
	}
	return s
}
