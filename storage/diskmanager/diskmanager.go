package diskmanager

import (
	"fmt"
	"os"

	"btreeindex/storage/page"
)

/*
DiskManager owns raw file I/O: opening/creating page files, reading and
writing fixed-size blocks at specific offsets, and handing out fresh page
numbers. It knows nothing about what a page's bytes mean — that is the
node codec's job — except for the one byte that tags a page's Type, which
it stamps on write and reads back on ReadPage so a cold page can be
classified before anything else touches it.

Page numbers are local to a file and start at 1; page number 0 is reserved
to mean "no page" throughout the rest of the system.
*/

func New() *DiskManager {
	return &DiskManager{
		files:      make(map[uint32]*FileDescriptor),
		nextFileID: 1,
	}
}

// OpenFile opens (creating if necessary) the page file at path and returns
// a FileID to use in all subsequent calls. Reopening the same path returns
// the same FileID for the lifetime of this DiskManager.
func (dm *DiskManager) OpenFile(path string) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, fd := range dm.files {
		if fd.FilePath == path {
			return id, nil
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	numPages := uint32(stat.Size() / page.Size)
	nextPageID := numPages
	if nextPageID == 0 {
		nextPageID = 1
	}

	fileID := dm.nextFileID
	dm.nextFileID++

	dm.files[fileID] = &FileDescriptor{
		FileID:     fileID,
		FilePath:   path,
		File:       f,
		NextPageID: nextPageID,
	}

	return fileID, nil
}

// Exists reports whether the file already had pages on disk when opened
// (distinguishing "create a brand new index" from "open an existing one").
func (dm *DiskManager) Exists(fileID uint32) (bool, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return false, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID > 1, nil
}

func (dm *DiskManager) descriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	fd, ok := dm.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %d not open", fileID)
	}
	return fd, nil
}

// AllocatePage reserves the next page number in fileID. It does not touch
// disk; the caller (BufferPool) is responsible for eventually flushing the
// page it builds around this number.
func (dm *DiskManager) AllocatePage(fileID uint32) (uint32, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	id := fd.NextPageID
	fd.NextPageID++
	return id, nil
}

// FirstPageID is the page number reserved for the file's meta page —
// always 1, since 0 means "no page".
func (dm *DiskManager) FirstPageID() uint32 { return 1 }

// ReadPage reads pageID out of fileID. Callers get back a *page.Page with
// PageType already classified from the on-disk tag.
func (dm *DiskManager) ReadPage(fileID, pageID uint32) (*page.Page, error) {
	fd, err := dm.descriptor(fileID)
	if err != nil {
		return nil, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()

	pg := page.New(pageID, fileID, page.TypeUnknown)
	offset := int64(pageID) * int64(page.Size)
	n, err := fd.File.ReadAt(pg.Data, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read page %d of file %d: %w", pageID, fileID, err)
	}
	pg.PageType = page.Type(pg.Data[0])
	return pg, nil
}

// WritePage writes pg back to its file at its page number, stamping its
// type byte first.
func (dm *DiskManager) WritePage(pg *page.Page) error {
	fd, err := dm.descriptor(pg.FileID)
	if err != nil {
		return err
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if len(pg.Data) != page.Size {
		return fmt.Errorf("page %d: data size %d != %d", pg.ID, len(pg.Data), page.Size)
	}
	pg.Data[0] = byte(pg.PageType)

	offset := int64(pg.ID) * int64(page.Size)
	if _, err := fd.File.WriteAt(pg.Data, offset); err != nil {
		return fmt.Errorf("write page %d of file %d: %w", pg.ID, pg.FileID, err)
	}
	return nil
}

// Sync fsyncs every open file.
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, fd := range dm.files {
		fd.mu.RLock()
		err := fd.File.Sync()
		fd.mu.RUnlock()
		if err != nil {
			return fmt.Errorf("sync file %d: %w", fd.FileID, err)
		}
	}
	return nil
}

// CloseFile syncs and closes one file.
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	fd, ok := dm.files[fileID]
	if !ok {
		return nil
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.File != nil {
		if err := fd.File.Sync(); err != nil {
			return err
		}
		if err := fd.File.Close(); err != nil {
			return err
		}
		fd.File = nil
	}
	delete(dm.files, fileID)
	return nil
}

// CloseAll syncs and closes every open file.
func (dm *DiskManager) CloseAll() error {
	dm.mu.RLock()
	ids := make([]uint32, 0, len(dm.files))
	for id := range dm.files {
		ids = append(ids, id)
	}
	dm.mu.RUnlock()

	var lastErr error
	for _, id := range ids {
		if err := dm.CloseFile(id); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
