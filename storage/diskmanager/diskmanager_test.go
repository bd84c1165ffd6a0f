package diskmanager

import (
	"path/filepath"
	"testing"

	"btreeindex/storage/page"
)

func TestAllocatePageStartsAtOne(t *testing.T) {
	dm := New()
	fileID, err := dm.OpenFile(filepath.Join(t.TempDir(), "f.db"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	id, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id != 1 {
		t.Fatalf("first allocated page = %d, want 1", id)
	}

	id2, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id2 != 2 {
		t.Fatalf("second allocated page = %d, want 2", id2)
	}
}

func TestWriteReadPageRoundTrips(t *testing.T) {
	dm := New()
	fileID, err := dm.OpenFile(filepath.Join(t.TempDir(), "f.db"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	id, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}

	pg := page.New(id, fileID, page.TypeLeaf)
	pg.Data[100] = 0xAB
	if err := dm.WritePage(pg); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	reread, err := dm.ReadPage(fileID, id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if reread.Data[100] != 0xAB {
		t.Fatalf("round-tripped byte = %#x, want 0xab", reread.Data[100])
	}
	if reread.PageType != page.TypeLeaf {
		t.Fatalf("round-tripped page type = %v, want TypeLeaf", reread.PageType)
	}
}

func TestExistsReflectsPriorAllocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.db")

	dm := New()
	fileID, err := dm.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	existed, err := dm.Exists(fileID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if existed {
		t.Fatalf("brand new file should not report existing pages")
	}

	id, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	pg := page.New(id, fileID, page.TypeMeta)
	if err := dm.WritePage(pg); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	id2, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	pg2 := page.New(id2, fileID, page.TypeLeaf)
	if err := dm.WritePage(pg2); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := dm.CloseFile(fileID); err != nil {
		t.Fatalf("CloseFile: %v", err)
	}

	dm2 := New()
	fileID2, err := dm2.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen OpenFile: %v", err)
	}
	existed2, err := dm2.Exists(fileID2)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !existed2 {
		t.Fatalf("reopened file with a written page should report existing pages")
	}

	id3, err := dm2.AllocatePage(fileID2)
	if err != nil {
		t.Fatalf("AllocatePage after reopen: %v", err)
	}
	if id3 != id2+1 {
		t.Fatalf("first page allocated after reopen = %d, want %d (immediately after the last page written before close)", id3, id2+1)
	}
}
