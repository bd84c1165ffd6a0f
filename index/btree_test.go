package index

import (
	"path/filepath"
	"testing"

	"btreeindex/storage/bufferpool"
	"btreeindex/storage/diskmanager"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dm := diskmanager.New()
	bp := bufferpool.New(32, dm)
	idx, err := Open(filepath.Join(t.TempDir(), "orders.8"), "orders", 8, bp, dm)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return idx
}

func rid(page uint32, slot uint16) RecordID {
	return RecordID{PageNumber: page, SlotNumber: slot}
}

func TestEmptyScanFailsWithNoSuchKeyFound(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.StartScan(0, GTE, 10, LTE)
	if !IsKind(err, KindNoSuchKeyFound) {
		t.Fatalf("StartScan on empty index = %v, want KindNoSuchKeyFound", err)
	}
	assertNoPinnedPages(t, idx)
}

func TestSingleInsertSingleHit(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Insert(42, rid(7, 3)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	s, err := idx.StartScan(40, GT, 50, LT)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != rid(7, 3) {
		t.Fatalf("got %+v, want {7 3}", got)
	}
	if _, err := s.Next(); !IsKind(err, KindIndexScanCompleted) {
		t.Fatalf("second Next = %v, want KindIndexScanCompleted", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	assertNoPinnedPages(t, idx)
}

func TestOperatorMatrix(t *testing.T) {
	idx := newTestIndex(t)
	for i, key := range []int32{10, 20, 30, 40} {
		if err := idx.Insert(key, rid(uint32(key), uint16(i))); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	cases := []struct {
		lowOp, highOp Operator
		want          []int32
	}{
		{GT, LT, []int32{20, 30}},
		{GTE, LT, []int32{10, 20, 30}},
		{GT, LTE, []int32{20, 30, 40}},
		{GTE, LTE, []int32{10, 20, 30, 40}},
	}

	for _, c := range cases {
		got := collectKeys(t, idx, 10, c.lowOp, 40, c.highOp)
		if !equalInt32(got, c.want) {
			t.Fatalf("(%v,%v) = %v, want %v", c.lowOp, c.highOp, got, c.want)
		}
	}
	assertNoPinnedPages(t, idx)
}

func TestManyInsertsPreserveInvariants(t *testing.T) {
	idx := newTestIndex(t)

	const n = 6000
	for i := int32(0); i < n; i++ {
		// Insert out of order so splits happen on both edges of the tree.
		key := int32((int64(i) * 2654435761) % n)
		// rid page numbers start at 1: page 0 is the free-slot sentinel.
		if err := idx.Insert(key, rid(uint32(key)+1, 0)); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	keys := walkLeafKeysInOrder(t, idx)
	if len(keys) != n {
		t.Fatalf("leaf sweep found %d entries, want %d (no duplicates lost)", len(keys), n)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("sibling chain not sorted at index %d: %d > %d", i, keys[i-1], keys[i])
		}
	}

	seen := make(map[int32]bool, n)
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("key %d observed twice in leaf sweep", k)
		}
		seen[k] = true
	}

	assertNoPinnedPages(t, idx)
}

func TestRangeCompleteness(t *testing.T) {
	idx := newTestIndex(t)

	const n = 2000
	for i := int32(0); i < n; i++ {
		if err := idx.Insert(i, rid(uint32(i), 0)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	lo, hi := int32(500), int32(1500)
	got := collectKeys(t, idx, lo, GTE, hi, LTE)
	if len(got) != int(hi-lo)+1 {
		t.Fatalf("range scan returned %d entries, want %d", len(got), hi-lo+1)
	}
	for i, k := range got {
		if k != lo+int32(i) {
			t.Fatalf("entry %d = %d, want %d", i, k, lo+int32(i))
		}
	}
	assertNoPinnedPages(t, idx)
}

func TestBadOpcodesAndBadScanRange(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Insert(1, rid(1, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := idx.StartScan(0, LT, 10, LTE); !IsKind(err, KindBadOpcodes) {
		t.Fatalf("low=LT should be BadOpcodes, got %v", err)
	}
	if _, err := idx.StartScan(0, GTE, 10, GT); !IsKind(err, KindBadOpcodes) {
		t.Fatalf("high=GT should be BadOpcodes, got %v", err)
	}
	if _, err := idx.StartScan(10, GTE, 0, LTE); !IsKind(err, KindBadScanRange) {
		t.Fatalf("low>high should be BadScanRange, got %v", err)
	}
	assertNoPinnedPages(t, idx)
}

func TestScanNotInitialized(t *testing.T) {
	var s Scanner
	if _, err := s.Next(); !IsKind(err, KindScanNotInitialized) {
		t.Fatalf("Next on zero-value Scanner = %v, want KindScanNotInitialized", err)
	}
	if err := s.Close(); !IsKind(err, KindScanNotInitialized) {
		t.Fatalf("Close on zero-value Scanner = %v, want KindScanNotInitialized", err)
	}
}

func TestReopenValidatesMeta(t *testing.T) {
	dir := t.TempDir()
	dm := diskmanager.New()
	bp := bufferpool.New(16, dm)

	path := filepath.Join(dir, "orders.8")
	idx, err := Open(path, "orders", 8, bp, dm)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.Insert(1, rid(1, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	idx.Close()

	dm2 := diskmanager.New()
	bp2 := bufferpool.New(16, dm2)
	if _, err := Open(path, "orders", 12, bp2, dm2); !IsKind(err, KindBadIndexInfo) {
		t.Fatalf("Open with mismatched attrByteOffset = %v, want KindBadIndexInfo", err)
	}
}

func TestReopenAfterCloseReproducesAllEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.8")

	dm := diskmanager.New()
	bp := bufferpool.New(16, dm)
	idx, err := Open(path, "orders", 8, bp, dm)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 5000
	for i := int32(0); i < n; i++ {
		key := int32((int64(i) * 2654435761) % n)
		// rid page numbers start at 1: page 0 is the free-slot sentinel.
		if err := idx.Insert(key, rid(uint32(key)+1, 0)); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}
	idx.Close()

	dm2 := diskmanager.New()
	bp2 := bufferpool.New(16, dm2)
	reopened, err := Open(path, "orders", 8, bp2, dm2)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}

	got := collectKeys(t, reopened, 0, GTE, n-1, LTE)
	if len(got) != n {
		t.Fatalf("reopened scan visited %d entries, want %d", len(got), n)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("reopened scan not sorted at index %d: %d > %d", i, got[i-1], got[i])
		}
	}
	assertNoPinnedPages(t, reopened)
}

// --- helpers ---

func assertNoPinnedPages(t *testing.T, idx *Index) {
	t.Helper()
	if pinned := idx.bp.Stats().PinnedPages; pinned != 0 {
		t.Fatalf("%d pages still pinned after operation returned", pinned)
	}
}

func collectKeys(t *testing.T, idx *Index, lo int32, lowOp Operator, hi int32, highOp Operator) []int32 {
	t.Helper()
	s, err := idx.StartScan(lo, lowOp, hi, highOp)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	defer s.Close()

	var out []int32
	for {
		r, err := s.Next()
		if IsKind(err, KindIndexScanCompleted) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, int32(r.PageNumber))
	}
	return out
}

// walkLeafKeysInOrder descends to the leftmost leaf and sweeps the sibling
// chain, returning every key in the order encountered.
func walkLeafKeysInOrder(t *testing.T, idx *Index) []int32 {
	t.Helper()
	pageID := idx.root
	var leftmostLeaf PageID
	for {
		pg, err := idx.bp.FetchPage(idx.fileID, uint32(pageID))
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		if isLeafPage(pg) {
			leftmostLeaf = PageID(pg.ID)
			idx.bp.UnpinPage(idx.fileID, pg.ID, false)
			break
		}
		child := internalChild(pg, 0)
		idx.bp.UnpinPage(idx.fileID, pg.ID, false)
		pageID = child
	}

	var keys []int32
	id := leftmostLeaf
	for id != NilPageID {
		pg, err := idx.bp.FetchPage(idx.fileID, uint32(id))
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		count := leafCount(pg)
		for i := 0; i < count; i++ {
			keys = append(keys, leafKey(pg, i))
		}
		next := leafRightSib(pg)
		idx.bp.UnpinPage(idx.fileID, pg.ID, false)
		id = next
	}
	return keys
}

func equalInt32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
