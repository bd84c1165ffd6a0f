package index

import "btreeindex/storage/page"

// insertLeafEntry shifts entries [pos, count) one slot right and writes
// (key, rid) at pos. Caller guarantees count < MaxLeafEntries.
func insertLeafEntry(pg *page.Page, pos int, key int32, rid RecordID) {
	count := leafCount(pg)
	for i := count; i > pos; i-- {
		setLeafKey(pg, i, leafKey(pg, i-1))
		setLeafRID(pg, i, leafRID(pg, i-1))
	}
	setLeafKey(pg, pos, key)
	setLeafRID(pg, pos, rid)
	pg.IsDirty = true
}

// insertInternalEntry inserts sepKey at keyArray[pos] and rightChild at
// pageNoArray[pos+1], shifting everything at and after pos right by one.
// Caller guarantees the node has room (key count < MaxInternalKeys).
func insertInternalEntry(pg *page.Page, pos int, sepKey int32, rightChild PageID) {
	n := internalKeyCount(pg)
	for i := n; i > pos; i-- {
		setInternalKey(pg, i, internalKey(pg, i-1))
	}
	for i := n + 1; i > pos+1; i-- {
		setInternalChild(pg, i, internalChild(pg, i-1))
	}
	setInternalKey(pg, pos, sepKey)
	setInternalChild(pg, pos+1, rightChild)
	pg.IsDirty = true
}

// clearLeafEntriesFrom zeroes keyArray/ridArray entries at and after i,
// used after moving a suffix of a leaf into its new right sibling.
func clearLeafEntriesFrom(pg *page.Page, i int) {
	for ; i < MaxLeafEntries; i++ {
		setLeafKey(pg, i, 0)
		setLeafRID(pg, i, RecordID{})
	}
	pg.IsDirty = true
}
