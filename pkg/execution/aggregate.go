package execution

import (
	"dinodb/pkg/aggregation"
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
)

// Aggregate drains its child entirely into an aggregation.Aggregator,
// then serves the finished, restartable result. Rewind replays the
// already-computed result; it does not re-scan the child.
type Aggregate struct {
	child iterator.DbIterator
	agg   aggregation.Aggregator
	out   iterator.DbIterator
}

// NewAggregate constructs an aggregate operator over child using agg.
func NewAggregate(child iterator.DbIterator, agg aggregation.Aggregator) *Aggregate {
	return &Aggregate{child: child, agg: agg}
}

// TupleDesc returns the aggregate's result schema.
func (a *Aggregate) TupleDesc() *storage.TupleDesc { return a.agg.TupleDesc() }

// Open drains the child, feeding every tuple to the aggregator, then
// opens the materialized result iterator.
func (a *Aggregate) Open() error {
	if err := a.child.Open(); err != nil {
		return err
	}
	for {
		has, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		if err := a.agg.Merge(t); err != nil {
			return err
		}
	}
	if err := a.child.Close(); err != nil {
		return err
	}
	a.out = a.agg.Iterator()
	return a.out.Open()
}

// HasNext reports whether another result row remains.
func (a *Aggregate) HasNext() (bool, error) { return a.out.HasNext() }

// Next returns the next result row.
func (a *Aggregate) Next() (*storage.Tuple, error) { return a.out.Next() }

// Rewind restarts iteration over the already-computed result.
func (a *Aggregate) Rewind() error { return a.out.Rewind() }

// Close closes the result iterator.
func (a *Aggregate) Close() error {
	if a.out == nil {
		return dberr.NewDb("execution.Aggregate: Close called before Open")
	}
	return a.out.Close()
}
