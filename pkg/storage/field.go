package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Field is one value in a Tuple. IntField and StringField are the only
// implementations, matching the closed FieldType enumeration.
type Field interface {
	Type() FieldType
	// Width returns the serialized width in bytes this field occupies,
	// given the field's own declared length (only meaningful for strings;
	// ignored by IntField).
	Width(declaredLen int) int
	// Encode writes the field's wire representation, padded to width bytes.
	Encode(w io.Writer, width int) error
	// Compare evaluates `this <op> other`. Returns an error if the two
	// fields are not of the same type.
	Compare(op Op, other Field) (bool, error)
	fmt.Stringer
}

// IntField is a fixed-width 4-byte big-endian two's-complement integer.
type IntField struct {
	Value int32
}

func (f IntField) Type() FieldType { return IntType }

func (f IntField) Width(int) int { return IntWidth }

func (f IntField) Encode(w io.Writer, _ int) error {
	var buf [IntWidth]byte
	binary.BigEndian.PutUint32(buf[:], uint32(f.Value))
	_, err := w.Write(buf[:])
	return err
}

func (f IntField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(IntField)
	if !ok {
		return false, fmt.Errorf("storage: cannot compare %s to %s", f.Type(), other.Type())
	}
	switch op {
	case Equals:
		return f.Value == o.Value, nil
	case NotEquals:
		return f.Value != o.Value, nil
	case LessThan:
		return f.Value < o.Value, nil
	case LessThanOrEqual:
		return f.Value <= o.Value, nil
	case GreaterThan:
		return f.Value > o.Value, nil
	case GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	default:
		return false, fmt.Errorf("storage: unknown operator %v", op)
	}
}

func (f IntField) String() string { return fmt.Sprintf("%d", f.Value) }

// DecodeIntField reads a 4-byte big-endian integer field.
func DecodeIntField(r io.Reader) (IntField, error) {
	var buf [IntWidth]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return IntField{}, err
	}
	return IntField{Value: int32(binary.BigEndian.Uint32(buf[:]))}, nil
}

// StringField is a fixed-width, length-prefixed string value.
type StringField struct {
	Value string
}

func (f StringField) Type() FieldType { return StringType }

func (f StringField) Width(declaredLen int) int { return declaredLen }

// Encode writes a 4-byte big-endian length n, n bytes of content, and
// width-4-n bytes of zero padding, per the on-disk string field layout.
func (f StringField) Encode(w io.Writer, width int) error {
	content := []byte(f.Value)
	n := len(content)
	if 4+n > width {
		n = width - 4
		content = content[:n]
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(n))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		return err
	}
	padding := width - 4 - n
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return err
		}
	}
	return nil
}

func (f StringField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(StringField)
	if !ok {
		return false, fmt.Errorf("storage: cannot compare %s to %s", f.Type(), other.Type())
	}
	switch op {
	case Equals:
		return f.Value == o.Value, nil
	case NotEquals:
		return f.Value != o.Value, nil
	case LessThan:
		return f.Value < o.Value, nil
	case LessThanOrEqual:
		return f.Value <= o.Value, nil
	case GreaterThan:
		return f.Value > o.Value, nil
	case GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	default:
		return false, fmt.Errorf("storage: unknown operator %v", op)
	}
}

func (f StringField) String() string { return f.Value }

// DecodeStringField reads a length-prefixed string field occupying
// exactly width bytes.
func DecodeStringField(r io.Reader, width int) (StringField, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return StringField{}, err
	}
	n := int(binary.BigEndian.Uint32(lenBuf[:]))
	remaining := width - 4
	if n < 0 || n > remaining {
		return StringField{}, fmt.Errorf("storage: corrupt string field length %d (width %d)", n, width)
	}
	buf := make([]byte, remaining)
	if _, err := io.ReadFull(r, buf); err != nil {
		return StringField{}, err
	}
	return StringField{Value: string(buf[:n])}, nil
}
