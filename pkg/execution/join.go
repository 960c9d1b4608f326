package execution

import (
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
)

// Join is a nested-loops join: for each left tuple, every right tuple
// is scanned looking for matches, with the right child rewound between
// left tuples. No index or hash assist is attempted; cost is O(|left|
// * |right|) page fetches in the worst case.
type Join struct {
	pred        *JoinPredicate
	left, right iterator.DbIterator
	desc        *storage.TupleDesc

	opened    bool
	leftTuple *storage.Tuple
	pending   *storage.Tuple
}

// NewJoin constructs a join of left and right under pred.
func NewJoin(pred *JoinPredicate, left, right iterator.DbIterator) *Join {
	return &Join{
		pred:  pred,
		left:  left,
		right: right,
		desc:  left.TupleDesc().Merge(right.TupleDesc()),
	}
}

// TupleDesc returns the concatenation of the left and right schemas.
func (j *Join) TupleDesc() *storage.TupleDesc { return j.desc }

// Open opens both children.
func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.opened = true
	return nil
}

// HasNext reports whether another matching pair remains.
func (j *Join) HasNext() (bool, error) {
	if !j.opened {
		return false, dberr.NewDb("execution.Join: HasNext called before Open")
	}
	if j.pending != nil {
		return true, nil
	}
	for {
		if j.leftTuple == nil {
			has, err := j.left.HasNext()
			if err != nil || !has {
				return false, err
			}
			j.leftTuple, err = j.left.Next()
			if err != nil {
				return false, err
			}
		}

		hasR, err := j.right.HasNext()
		if err != nil {
			return false, err
		}
		if !hasR {
			if err := j.right.Rewind(); err != nil {
				return false, err
			}
			j.leftTuple = nil
			continue
		}
		rightTuple, err := j.right.Next()
		if err != nil {
			return false, err
		}
		ok, err := j.pred.Eval(j.leftTuple, rightTuple)
		if err != nil {
			return false, err
		}
		if ok {
			j.pending = combine(j.desc, j.leftTuple, rightTuple)
			return true, nil
		}
	}
}

func combine(desc *storage.TupleDesc, left, right *storage.Tuple) *storage.Tuple {
	fields := make([]storage.Field, 0, len(left.Fields)+len(right.Fields))
	fields = append(fields, left.Fields...)
	fields = append(fields, right.Fields...)
	return &storage.Tuple{Desc: desc, Fields: fields}
}

// Next returns the next matching pair, concatenated left-then-right.
func (j *Join) Next() (*storage.Tuple, error) {
	has, err := j.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, dberr.ErrNoSuchElement
	}
	t := j.pending
	j.pending = nil
	return t, nil
}

// Rewind resets both children to their first tuple.
func (j *Join) Rewind() error {
	j.leftTuple = nil
	j.pending = nil
	if err := j.left.Rewind(); err != nil {
		return err
	}
	return j.right.Rewind()
}

// Close closes both children.
func (j *Join) Close() error {
	j.opened = false
	j.leftTuple = nil
	j.pending = nil
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}
