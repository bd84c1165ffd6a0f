package diskmanager

import (
	"os"
	"sync"
)

// FileDescriptor is one open index or heap file.
type FileDescriptor struct {
	FileID     uint32
	FilePath   string
	File       *os.File
	NextPageID uint32 // next id AllocatePage will hand out; starts at 1
	mu         sync.RWMutex
}

// DiskManager owns OS file handles for every page file in use. A single
// DiskManager can be shared by several index files at once — each gets its
// own FileID and its own independent page-number space starting at 1.
type DiskManager struct {
	files      map[uint32]*FileDescriptor
	nextFileID uint32
	mu         sync.RWMutex
}
