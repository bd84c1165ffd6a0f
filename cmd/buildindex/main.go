// buildindex bulk-loads a secondary B+Tree index for one attribute of a
// heap file and reports the row count it indexed.
package main

import (
	"flag"
	"log"

	"github.com/dustin/go-humanize"

	"btreeindex/heap"
	"btreeindex/index"
	"btreeindex/storage/bufferpool"
	"btreeindex/storage/diskmanager"
)

func main() {
	heapPath := flag.String("heap", "", "path to the heap file to index")
	relation := flag.String("relation", "", "relation name the index file will be tagged with")
	attrOffset := flag.Int("offset", 0, "byte offset of the indexed int32 attribute within each record")
	poolSize := flag.Int("pool", 64, "buffer pool page capacity")
	flag.Parse()

	if *heapPath == "" || *relation == "" {
		log.Fatal("usage: buildindex -heap <path> -relation <name> -offset <n>")
	}

	dm := diskmanager.New()
	bp := bufferpool.New(*poolSize, dm)

	hf, err := heap.Open(*heapPath, bp, dm)
	if err != nil {
		log.Fatalf("open heap file: %v", err)
	}

	idx, err := index.Open(index.FileName(*relation, int32(*attrOffset)), *relation, int32(*attrOffset), bp, dm)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	n, err := idx.BulkLoad(hf.Scan())
	if err != nil {
		log.Fatalf("bulk load: %v", err)
	}

	stats := bp.Stats()
	log.Printf("indexed %s rows from %s into %s (buffer pool holding %s pages)",
		humanize.Comma(int64(n)), *heapPath, index.FileName(*relation, int32(*attrOffset)), humanize.Comma(int64(stats.TotalPages)))
}
