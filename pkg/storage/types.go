package storage

// FieldType is the closed enumeration of field types a TupleDesc can hold.
type FieldType int

const (
	// IntType is a fixed 4-byte big-endian two's-complement integer.
	IntType FieldType = iota
	// StringType is a fixed-width, length-prefixed byte string.
	StringType
)

func (t FieldType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// IntWidth is the serialized width in bytes of an integer field.
const IntWidth = 4

// Op is a comparison operator, shared between predicate evaluation in
// pkg/execution and selectivity estimation in pkg/optimizer so both speak
// the same six-operator vocabulary.
type Op int

const (
	Equals Op = iota
	NotEquals
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (op Op) String() string {
	switch op {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return "?"
	}
}
