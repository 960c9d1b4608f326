package execution

import (
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
)

// Filter passes through only the tuples of its child that satisfy a predicate.
type Filter struct {
	pred  *Predicate
	child iterator.DbIterator

	opened  bool
	pending *storage.Tuple
}

// NewFilter constructs a filter over child using pred.
func NewFilter(pred *Predicate, child iterator.DbIterator) *Filter {
	return &Filter{pred: pred, child: child}
}

// TupleDesc returns the child's schema, unchanged.
func (f *Filter) TupleDesc() *storage.TupleDesc { return f.child.TupleDesc() }

// Open opens the child operator.
func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	f.opened = true
	return nil
}

// HasNext reports whether another tuple satisfying the predicate remains.
func (f *Filter) HasNext() (bool, error) {
	if !f.opened {
		return false, dberr.NewDb("execution.Filter: HasNext called before Open")
	}
	if f.pending != nil {
		return true, nil
	}
	for {
		has, err := f.child.HasNext()
		if err != nil || !has {
			return false, err
		}
		t, err := f.child.Next()
		if err != nil {
			return false, err
		}
		ok, err := f.pred.Eval(t)
		if err != nil {
			return false, err
		}
		if ok {
			f.pending = t
			return true, nil
		}
	}
}

// Next returns the next tuple satisfying the predicate.
func (f *Filter) Next() (*storage.Tuple, error) {
	has, err := f.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, dberr.ErrNoSuchElement
	}
	t := f.pending
	f.pending = nil
	return t, nil
}

// Rewind resets the filter to its child's first matching tuple.
func (f *Filter) Rewind() error {
	f.pending = nil
	return f.child.Rewind()
}

// Close closes the child operator.
func (f *Filter) Close() error {
	f.opened = false
	f.pending = nil
	return f.child.Close()
}
