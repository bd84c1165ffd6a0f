package bufferpool

import (
	"sync"

	"btreeindex/storage/diskmanager"
	"btreeindex/storage/page"
)

// PageKey identifies a page across every file a BufferPool might be
// fronting at once.
type PageKey struct {
	FileID uint32
	PageID uint32
}

// BufferPool caches pages from one or more files behind a single LRU
// eviction policy, pinning/unpinning them for callers and flushing dirty
// pages back through the DiskManager. Several B+Tree indices may share one
// BufferPool instance as long as each uses its own FileID.
type BufferPool struct {
	pages       map[PageKey]*page.Page
	capacity    int
	diskManager *diskmanager.DiskManager
	accessOrder []PageKey // least-recently-used at front, most-recently-used at back
	mu          sync.Mutex
}

// Stats is a point-in-time snapshot of pool occupancy, useful for tests and
// diagnostics.
type Stats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}
