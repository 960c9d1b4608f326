package execution

import (
	"dinodb/pkg/heap"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// Scan is the leaf operator that reads every tuple of a table in heap
// order, exposing its fields under an alias-qualified schema (e.g.
// "t.id" instead of "id") so joins can disambiguate identically named
// columns from different tables.
type Scan struct {
	alias string
	file  *heap.File
	src   heap.PageSource
	tid   txid.ID

	it   *heap.FileIterator
	desc *storage.TupleDesc
}

// NewScan constructs a scan of file's tuples under transaction tid,
// fetching pages through src, with fields renamed under alias.
func NewScan(tid txid.ID, file *heap.File, src heap.PageSource, alias string) *Scan {
	base := file.TupleDesc()
	fields := make([]storage.FieldInfo, base.NumFields())
	for i, fi := range base.Fields {
		fields[i] = storage.FieldInfo{Type: fi.Type, Name: alias + "." + fi.Name, Len: fi.Len}
	}
	return &Scan{
		alias: alias,
		file:  file,
		src:   src,
		tid:   tid,
		desc:  storage.NewTupleDesc(fields...),
	}
}

// TupleDesc returns the scan's alias-qualified schema.
func (s *Scan) TupleDesc() *storage.TupleDesc { return s.desc }

// Open positions the scan at the table's first tuple.
func (s *Scan) Open() error {
	s.it = s.file.Iterator(s.tid, s.src)
	return s.it.Open()
}

// HasNext reports whether another tuple remains.
func (s *Scan) HasNext() (bool, error) { return s.it.HasNext() }

// Next returns the next tuple, tagged with the scan's alias-qualified schema.
func (s *Scan) Next() (*storage.Tuple, error) {
	t, err := s.it.Next()
	if err != nil {
		return nil, err
	}
	return &storage.Tuple{Desc: s.desc, Fields: t.Fields, RecordID: t.RecordID}, nil
}

// Rewind returns the scan to its first tuple.
func (s *Scan) Rewind() error { return s.it.Rewind() }

// Close releases the scan's iterator.
func (s *Scan) Close() error { return s.it.Close() }
