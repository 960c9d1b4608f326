package storage

import (
	"fmt"
	"strings"
)

// Tuple is a schema-conforming row: one Field per position in Desc, plus
// an optional RecordID locating it on disk once it has been inserted.
type Tuple struct {
	Desc     *TupleDesc
	Fields   []Field
	RecordID *RecordID
}

// NewTuple constructs a tuple for the given schema. Fields must be
// supplied in schema order and have matching count; callers set
// RecordID themselves when relevant (heap page insertion stamps it).
func NewTuple(desc *TupleDesc, fields ...Field) (*Tuple, error) {
	if len(fields) != desc.NumFields() {
		return nil, fmt.Errorf("storage: expected %d fields, got %d", desc.NumFields(), len(fields))
	}
	return &Tuple{Desc: desc, Fields: append([]Field(nil), fields...)}, nil
}

// Field is convenience for the common case of reading one field by index.
func (t *Tuple) Field(i int) Field {
	return t.Fields[i]
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\t")
}
