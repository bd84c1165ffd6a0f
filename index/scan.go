package index

import "btreeindex/storage/page"

/*
A scan has two phases. StartScan descends once to the leaf that could hold
the first qualifying key, then sweeps forward — scanning from slot 0 of
that leaf, across sibling leaves if needed — until it finds an entry that
satisfies the full four-sided predicate, or proves none can (the high
bound is passed, or the sibling chain ends) and fails with
NoSuchKeyFound, releasing every page it touched. Next then just walks
forward one slot at a time from wherever StartScan left off, re-checking
the predicate each time since the separator keys an internal search used
to pick this leaf are only approximate boundaries.

Exactly one leaf is pinned between Next calls while a scan is live. When
Next fails with IndexScanCompleted because the predicate broke inside the
current leaf, that leaf stays pinned — the caller is expected to call
Close (endScan) to release it. When the sibling chain itself runs out,
there is nothing left to keep pinned, so that pin is released immediately.
*/

// Scanner is a live range scan over one Index, obtained from
// Index.StartScan. Each Scanner is independent — a second concurrent scan
// on the same Index does not disturb the first, so "start a new scan"
// never needs to tear down an old one the way a single shared scan cursor
// would.
type Scanner struct {
	idx       *Index
	lowVal    int32
	lowOp     Operator
	highVal   int32
	highOp    Operator
	leafPage  *page.Page
	nextEntry int
	executing bool
	completed bool
}

// StartScan validates the range predicate, then positions on the first
// leaf entry satisfying (lowVal lowOp) .. (highVal highOp). If no entry in
// the index can satisfy the range, it fails with KindNoSuchKeyFound and
// releases every page it pinned while searching.
func (idx *Index) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) (*Scanner, error) {
	if lowOp != GT && lowOp != GTE {
		return nil, newErr(KindBadOpcodes, "low operator must be GT or GTE, got %v", lowOp)
	}
	if highOp != LT && highOp != LTE {
		return nil, newErr(KindBadOpcodes, "high operator must be LT or LTE, got %v", highOp)
	}
	if lowVal > highVal {
		return nil, newErr(KindBadScanRange, "low bound %d exceeds high bound %d", lowVal, highVal)
	}

	cur, err := idx.descendTo(lowVal)
	if err != nil {
		return nil, err
	}

	for {
		count := leafCount(cur)
		for i := 0; i < count; i++ {
			key := leafKey(cur, i)
			if satisfiesLow(key, lowVal, lowOp) && satisfiesHigh(key, highVal, highOp) {
				return &Scanner{
					idx: idx, lowVal: lowVal, lowOp: lowOp, highVal: highVal, highOp: highOp,
					leafPage: cur, nextEntry: i, executing: true,
				}, nil
			}
			if !satisfiesHigh(key, highVal, highOp) {
				idx.bp.UnpinPage(idx.fileID, cur.ID, false)
				return nil, newErr(KindNoSuchKeyFound, "no entry satisfies the requested range")
			}
			// key has not passed the low bound yet: keep scanning forward in this leaf
		}

		sib := leafRightSib(cur)
		if err := idx.bp.UnpinPage(idx.fileID, cur.ID, false); err != nil {
			return nil, err
		}
		if sib == NilPageID {
			return nil, newErr(KindNoSuchKeyFound, "no entry satisfies the requested range")
		}
		cur, err = idx.bp.FetchPage(idx.fileID, uint32(sib))
		if err != nil {
			return nil, err
		}
	}
}

// descendTo walks from the root to the leaf that would hold key, returning
// it pinned. At each internal node it advances past every key <= key,
// landing on the child whose subtree may hold entries > key — the same
// rule insertion's findChild uses, since both want "the child that could
// contain this key".
func (idx *Index) descendTo(key int32) (*page.Page, error) {
	pageID := idx.root
	for {
		pg, err := idx.bp.FetchPage(idx.fileID, uint32(pageID))
		if err != nil {
			return nil, err
		}
		if isLeafPage(pg) {
			return pg, nil
		}
		childIdx := findChild(pg, key)
		child := internalChild(pg, childIdx)
		if err := idx.bp.UnpinPage(idx.fileID, pg.ID, false); err != nil {
			return nil, err
		}
		pageID = child
	}
}

// Next returns the next qualifying RecordID, or a *Error of kind
// IndexScanCompleted once the range is exhausted, or KindScanNotInitialized
// if the scan has already been ended.
func (s *Scanner) Next() (RecordID, error) {
	if !s.executing {
		return RecordID{}, newErr(KindScanNotInitialized, "no scan in progress")
	}
	if s.completed {
		return RecordID{}, newErr(KindIndexScanCompleted, "scan already completed")
	}

	for {
		count := leafCount(s.leafPage)
		if s.nextEntry >= count {
			sib := leafRightSib(s.leafPage)
			if err := s.idx.bp.UnpinPage(s.idx.fileID, s.leafPage.ID, false); err != nil {
				return RecordID{}, err
			}
			if sib == NilPageID {
				s.leafPage = nil
				s.completed = true
				return RecordID{}, newErr(KindIndexScanCompleted, "reached end of sibling chain")
			}
			next, err := s.idx.bp.FetchPage(s.idx.fileID, uint32(sib))
			if err != nil {
				return RecordID{}, err
			}
			s.leafPage = next
			s.nextEntry = 0
			continue
		}

		key := leafKey(s.leafPage, s.nextEntry)
		if satisfiesLow(key, s.lowVal, s.lowOp) && satisfiesHigh(key, s.highVal, s.highOp) {
			rid := leafRID(s.leafPage, s.nextEntry)
			s.nextEntry++
			return rid, nil
		}

		// Leaves are sorted, and Next only ever starts where StartScan or
		// the previous call left off satisfying the low bound, so a
		// failed predicate here means the high bound has been passed.
		s.completed = true
		return RecordID{}, newErr(KindIndexScanCompleted, "reached high bound")
	}
}

// Close (endScan) releases the scan's pinned leaf, if any. Calling it on a
// scan that was never started or already closed fails with
// KindScanNotInitialized.
func (s *Scanner) Close() error {
	if !s.executing {
		return newErr(KindScanNotInitialized, "no scan in progress")
	}
	s.executing = false
	if s.leafPage == nil {
		return nil
	}
	err := s.idx.bp.UnpinPage(s.idx.fileID, s.leafPage.ID, false)
	s.leafPage = nil
	return err
}

func satisfiesLow(key, lowVal int32, lowOp Operator) bool {
	if lowOp == GTE {
		return key >= lowVal
	}
	return key > lowVal
}

func satisfiesHigh(key, highVal int32, highOp Operator) bool {
	if highOp == LTE {
		return key <= highVal
	}
	return key < highVal
}
