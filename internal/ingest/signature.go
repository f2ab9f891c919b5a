package ingest

import (
	"fmt"
	"hash/fnv"
	"path/filepath"

	"voltcli/internal/dataset"
)

// signature identifies a sheet's content for duplicate detection across
// workbooks. Two sheets with the same basename, sheet name, shape and leading
// content are treated as the same upload even when the files live in
// different directories.
type signature struct {
	Base  string
	Sheet string
	Rows  int
	Cols  int
	Hash  uint64
}

// sheetSignature hashes the header row plus the first sampleRows data rows.
func sheetSignature(s dataset.Sheet, sampleRows int) signature {
	h := fnv.New64a()
	for _, cell := range s.Headers {
		h.Write([]byte(cell))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
	for i := 0; i < sampleRows && i < len(s.Rows); i++ {
		for _, cell := range s.Rows[i] {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}

	cols := len(s.Headers)
	return signature{
		Base:  filepath.Base(s.File),
		Sheet: s.Name,
		Rows:  len(s.Rows),
		Cols:  cols,
		Hash:  h.Sum64(),
	}
}

func (s signature) String() string {
	return fmt.Sprintf("%s/%s %dx%d %016x", s.Base, s.Sheet, s.Rows, s.Cols, s.Hash)
}
