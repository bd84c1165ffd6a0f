package index

import (
	"encoding/binary"

	"btreeindex/storage/page"
)

/*
The meta page is page 1 of every index file — the page manager's
"first-page-id". It carries everything needed to validate that an opened
index file actually matches the relation/attribute the caller expects, plus
the current root page id.

Layout:

	offset 0   kind byte (TypeMeta)
	offset 1   attrType (reserved for future key types; always 0 today)
	offset 2-3 reserved
	offset 4   attrByteOffset int32
	offset 8   rootPageID     uint32
	offset 12  relNameLen     uint16
	offset 14  relName        bytes
*/

const (
	metaOffAttrByteOffset = 4
	metaOffRootPageID     = 8
	metaOffRelNameLen     = 12
	metaOffRelName        = 14
	maxRelNameLen         = page.Size - metaOffRelName
)

type metaInfo struct {
	relationName   string
	attrByteOffset int32
	rootPageID     PageID
}

func initMetaPage(pg *page.Page, m metaInfo) error {
	if len(m.relationName) > maxRelNameLen {
		return newErr(KindBadIndexInfo, "relation name %q exceeds %d bytes", m.relationName, maxRelNameLen)
	}
	clear(pg.Data)
	pg.Data[0] = byte(page.TypeMeta)
	pg.PageType = page.TypeMeta
	binary.LittleEndian.PutUint32(pg.Data[metaOffAttrByteOffset:], uint32(m.attrByteOffset))
	binary.LittleEndian.PutUint32(pg.Data[metaOffRootPageID:], uint32(m.rootPageID))
	binary.LittleEndian.PutUint16(pg.Data[metaOffRelNameLen:], uint16(len(m.relationName)))
	copy(pg.Data[metaOffRelName:], m.relationName)
	pg.IsDirty = true
	return nil
}

func readMetaPage(pg *page.Page) (metaInfo, error) {
	if page.Type(pg.Data[0]) != page.TypeMeta {
		return metaInfo{}, newErr(KindBadIndexInfo, "page %d is not a meta page", pg.ID)
	}
	nameLen := binary.LittleEndian.Uint16(pg.Data[metaOffRelNameLen:])
	if int(nameLen) > maxRelNameLen {
		return metaInfo{}, newErr(KindBadIndexInfo, "corrupt meta page: relation name length %d", nameLen)
	}
	name := make([]byte, nameLen)
	copy(name, pg.Data[metaOffRelName:metaOffRelName+int(nameLen)])
	return metaInfo{
		relationName:   string(name),
		attrByteOffset: int32(binary.LittleEndian.Uint32(pg.Data[metaOffAttrByteOffset:])),
		rootPageID:     PageID(binary.LittleEndian.Uint32(pg.Data[metaOffRootPageID:])),
	}, nil
}

func setMetaRoot(pg *page.Page, root PageID) {
	binary.LittleEndian.PutUint32(pg.Data[metaOffRootPageID:], uint32(root))
	pg.IsDirty = true
}
