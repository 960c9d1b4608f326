package storage

import "fmt"

// FieldInfo names one position in a TupleDesc: its type, and an optional
// display name. Names are not part of descriptor equality.
type FieldInfo struct {
	Type FieldType
	Name string
	// Len is only meaningful for StringType; it is the fixed serialized
	// width of the field, including the 4-byte length prefix.
	Len int
}

// TupleDesc is the ordered schema of a Tuple: a sequence of field types
// (with optional names) and nothing else. Equality of two descriptors
// considers only the ordered type sequence.
type TupleDesc struct {
	Fields []FieldInfo
}

// NewTupleDesc builds a descriptor from the given fields, in order.
func NewTupleDesc(fields ...FieldInfo) *TupleDesc {
	return &TupleDesc{Fields: append([]FieldInfo(nil), fields...)}
}

// NumFields returns the number of fields in the descriptor.
func (td *TupleDesc) NumFields() int {
	return len(td.Fields)
}

// Width returns the serialized width, in bytes, of the field at index i.
func (td *TupleDesc) Width(i int) int {
	f := td.Fields[i]
	if f.Type == IntType {
		return IntWidth
	}
	return f.Len
}

// Size returns the sum of the widths of every field: the number of bytes
// one tuple of this schema occupies in a heap page slot.
func (td *TupleDesc) Size() int {
	size := 0
	for i := range td.Fields {
		size += td.Width(i)
	}
	return size
}

// Equals reports whether two descriptors have equal ordered type
// sequences. Field names and lengths are ignored.
func (td *TupleDesc) Equals(other *TupleDesc) bool {
	if other == nil || len(td.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range td.Fields {
		if f.Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

// Merge concatenates td's fields followed by other's fields, in order,
// producing the schema a join of the two rows would have.
func (td *TupleDesc) Merge(other *TupleDesc) *TupleDesc {
	merged := make([]FieldInfo, 0, len(td.Fields)+len(other.Fields))
	merged = append(merged, td.Fields...)
	merged = append(merged, other.Fields...)
	return &TupleDesc{Fields: merged}
}

// FieldNameToIndex returns the index of the field with the given name,
// or an error if no such field, or more than one, exists.
func (td *TupleDesc) FieldNameToIndex(name string) (int, error) {
	found := -1
	for i, f := range td.Fields {
		if f.Name == name {
			if found != -1 {
				return -1, fmt.Errorf("storage: ambiguous field name %q", name)
			}
			found = i
		}
	}
	if found == -1 {
		return -1, fmt.Errorf("storage: no field named %q", name)
	}
	return found, nil
}

func (td *TupleDesc) String() string {
	out := "("
	for i, f := range td.Fields {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s:%s", f.Name, f.Type)
	}
	return out + ")"
}
