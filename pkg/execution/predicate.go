// Package execution implements the pull-based query operator tree:
// table scans, filters, nested-loop joins, aggregation, and the
// one-shot insert/delete mutators, composed purely through the
// iterator.DbIterator interface.
package execution

import "dinodb/pkg/storage"

// Predicate compares one field of a tuple against a fixed operand.
type Predicate struct {
	Field   int
	Op      storage.Op
	Operand storage.Field
}

// NewPredicate constructs a predicate comparing tuple field field
// against operand using op.
func NewPredicate(field int, op storage.Op, operand storage.Field) *Predicate {
	return &Predicate{Field: field, Op: op, Operand: operand}
}

// Eval reports whether t satisfies the predicate.
func (p *Predicate) Eval(t *storage.Tuple) (bool, error) {
	return t.Field(p.Field).Compare(p.Op, p.Operand)
}

// JoinPredicate compares one field of a left tuple against one field
// of a right tuple.
type JoinPredicate struct {
	Field1 int
	Op     storage.Op
	Field2 int
}

// NewJoinPredicate constructs a predicate comparing left tuple field
// field1 against right tuple field field2 using op.
func NewJoinPredicate(field1 int, op storage.Op, field2 int) *JoinPredicate {
	return &JoinPredicate{Field1: field1, Op: op, Field2: field2}
}

// Eval reports whether the pair (left, right) satisfies the predicate.
func (p *JoinPredicate) Eval(left, right *storage.Tuple) (bool, error) {
	return left.Field(p.Field1).Compare(p.Op, right.Field(p.Field2))
}
