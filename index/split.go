package index

import "btreeindex/storage/page"

/*
Split and root growth.

Leaf split follows the classic "copy-up" shape: the separator key is
copied into the parent but also stays as the first key of the new right
leaf. The split point is computed directly against the full array rather
than building an oversized temporary, with the even/odd midpoint
adjustment. With the even leaf size used here the two halves end up within
one entry of each other, except when the incoming key sorts between the two
keys at the split point: it then joins the left half, which ends up three
entries larger than the right.

Internal split is "push-up": the middle key moves to the parent and does
not survive in either child. That node is spliced and divided with plain
Go slices instead of in-place index arithmetic — building the N+1-key,
N+2-child overflow as real slices makes the split point and the two
halves impossible to get subtly wrong, and a promoted entry is returned by
value all the way up the recursion, never as a pointer into a page that
might be unpinned and evicted before the caller reads it.
*/

// splitLeaf splits a full leaf pg, inserts (key, rid) into whichever half
// it belongs in, and returns the new right sibling's id and the separator
// key to promote to the parent. pg becomes the left sibling in place.
func (idx *Index) splitLeaf(pg *page.Page, key int32, rid RecordID) (PageID, int32, error) {
	rightPg, err := idx.bp.NewPage(idx.fileID, page.TypeLeaf)
	if err != nil {
		return 0, 0, err
	}
	InitLeaf(rightPg)

	L := MaxLeafEntries
	mid := L/2 - 1
	if L%2 == 0 && key >= leafKey(pg, mid) {
		mid++
	}
	boundaryKey := leafKey(pg, mid)

	moveCount := L - mid - 1
	for i := 0; i < moveCount; i++ {
		setLeafKey(rightPg, i, leafKey(pg, mid+1+i))
		setLeafRID(rightPg, i, leafRID(pg, mid+1+i))
	}
	clearLeafEntriesFrom(pg, mid+1)

	setLeafRightSib(rightPg, leafRightSib(pg))
	setLeafRightSib(pg, PageID(rightPg.ID))

	if key < boundaryKey {
		insertLeafEntry(pg, findLeafSlot(pg, key), key, rid)
	} else {
		insertLeafEntry(rightPg, findLeafSlot(rightPg, key), key, rid)
	}

	sepKey := leafKey(rightPg, 0)
	if err := idx.bp.UnpinPage(idx.fileID, rightPg.ID, true); err != nil {
		return 0, 0, err
	}
	return PageID(rightPg.ID), sepKey, nil
}

// splitInternal splits a full internal node pg that needs one more
// (sepKey, rightChild) entry spliced in at childIdx. It returns the new
// right sibling's id and the key pushed up to the parent. pg becomes the
// left sibling in place.
func (idx *Index) splitInternal(pg *page.Page, childIdx int, sepKey int32, rightChild PageID) (PageID, int32, error) {
	n := internalKeyCount(pg)

	keys := make([]int32, 0, n+1)
	for i := 0; i < n; i++ {
		keys = append(keys, internalKey(pg, i))
	}
	children := make([]PageID, 0, n+2)
	for i := 0; i <= n; i++ {
		children = append(children, internalChild(pg, i))
	}

	keys = append(keys[:childIdx], append([]int32{sepKey}, keys[childIdx:]...)...)
	children = append(children[:childIdx+1], append([]PageID{rightChild}, children[childIdx+1:]...)...)

	mid := len(keys) / 2
	pushKey := keys[mid]

	rightPg, err := idx.bp.NewPage(idx.fileID, page.TypeInternal)
	if err != nil {
		return 0, 0, err
	}

	level := internalLevel(pg)
	rewriteInternal(pg, level, keys[:mid], children[:mid+1])
	rewriteInternal(rightPg, level, keys[mid+1:], children[mid+1:])

	if err := idx.bp.UnpinPage(idx.fileID, rightPg.ID, true); err != nil {
		return 0, 0, err
	}
	return PageID(rightPg.ID), pushKey, nil
}

func rewriteInternal(pg *page.Page, level int32, keys []int32, children []PageID) {
	InitInternal(pg, level)
	for i, k := range keys {
		setInternalKey(pg, i, k)
	}
	for i, c := range children {
		setInternalChild(pg, i, c)
	}
}

// growRoot replaces the current root with a brand-new internal node whose
// two children are the old root and newRightChild, separated by sepKey.
// Called at most once per insert, and only when the recursive insert
// reports a promotion all the way up past the root.
func (idx *Index) growRoot(sepKey int32, newRightChild PageID) error {
	oldRootPg, err := idx.bp.FetchPage(idx.fileID, uint32(idx.root))
	if err != nil {
		return err
	}
	newLevel := int32(1)
	if !isLeafPage(oldRootPg) {
		newLevel = 0
	}
	oldRootID := idx.root
	if err := idx.bp.UnpinPage(idx.fileID, oldRootPg.ID, false); err != nil {
		return err
	}

	newRootPg, err := idx.bp.NewPage(idx.fileID, page.TypeInternal)
	if err != nil {
		return err
	}
	InitInternal(newRootPg, newLevel)
	setInternalKey(newRootPg, 0, sepKey)
	setInternalChild(newRootPg, 0, oldRootID)
	setInternalChild(newRootPg, 1, newRightChild)
	if err := idx.bp.UnpinPage(idx.fileID, newRootPg.ID, true); err != nil {
		return err
	}

	idx.root = PageID(newRootPg.ID)
	return idx.persistRoot()
}

func (idx *Index) persistRoot() error {
	metaPg, err := idx.bp.FetchPage(idx.fileID, uint32(idx.dm.FirstPageID()))
	if err != nil {
		return err
	}
	setMetaRoot(metaPg, idx.root)
	return idx.bp.UnpinPage(idx.fileID, metaPg.ID, true)
}
