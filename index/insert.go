package index

/*
Insertion descends recursively from the root. Each call pins exactly the
page at its own level, does its work, and unpins before returning — so at
any instant at most one page per level on the current path is pinned. A
split does not mutate its parent directly; instead it hands back a
promotion value describing the new sibling and its separator key, and the
parent decides what to do with it on the way back up the stack. Nothing is
ever returned by pointer into a page's memory, so there is no way for a
promoted entry to outlive the page it was read from.
*/

type promotion struct {
	valid      bool
	key        int32
	rightChild PageID
}

func (idx *Index) insertEntry(key int32, rid RecordID) error {
	promo, err := idx.insertRecursive(idx.root, key, rid)
	if err != nil {
		return err
	}
	if promo.valid {
		return idx.growRoot(promo.key, promo.rightChild)
	}
	return nil
}

func (idx *Index) insertRecursive(pageID PageID, key int32, rid RecordID) (promotion, error) {
	pg, err := idx.bp.FetchPage(idx.fileID, uint32(pageID))
	if err != nil {
		return promotion{}, err
	}

	if isLeafPage(pg) {
		if leafCount(pg) < MaxLeafEntries {
			insertLeafEntry(pg, findLeafSlot(pg, key), key, rid)
			return promotion{}, idx.bp.UnpinPage(idx.fileID, pg.ID, true)
		}
		rightID, sepKey, err := idx.splitLeaf(pg, key, rid)
		if err != nil {
			idx.bp.UnpinPage(idx.fileID, pg.ID, false)
			return promotion{}, err
		}
		if err := idx.bp.UnpinPage(idx.fileID, pg.ID, true); err != nil {
			return promotion{}, err
		}
		return promotion{valid: true, key: sepKey, rightChild: rightID}, nil
	}

	childIdx := findChild(pg, key)
	childID := internalChild(pg, childIdx)

	promo, err := idx.insertRecursive(childID, key, rid)
	if err != nil {
		idx.bp.UnpinPage(idx.fileID, pg.ID, false)
		return promotion{}, err
	}
	if !promo.valid {
		return promotion{}, idx.bp.UnpinPage(idx.fileID, pg.ID, false)
	}

	if internalKeyCount(pg) < MaxInternalKeys {
		insertInternalEntry(pg, childIdx, promo.key, promo.rightChild)
		return promotion{}, idx.bp.UnpinPage(idx.fileID, pg.ID, true)
	}

	rightID, pushKey, err := idx.splitInternal(pg, childIdx, promo.key, promo.rightChild)
	if err != nil {
		idx.bp.UnpinPage(idx.fileID, pg.ID, false)
		return promotion{}, err
	}
	if err := idx.bp.UnpinPage(idx.fileID, pg.ID, true); err != nil {
		return promotion{}, err
	}
	return promotion{valid: true, key: pushKey, rightChild: rightID}, nil
}
