// Package iterator defines the pull-based tuple iterator contract
// shared by heap file scans, aggregation, and query operators.
package iterator

import "dinodb/pkg/storage"

// DbIterator is the capability set every operator in an operator tree
// implements: open its resources, pull tuples one at a time, rewind to
// the start without reopening, and release its resources. HasNext is
// idempotent (repeated calls without an intervening Next return the
// same answer); Next past exhaustion is an error.
type DbIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*storage.Tuple, error)
	Rewind() error
	Close() error
	TupleDesc() *storage.TupleDesc
}
