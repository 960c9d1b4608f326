package execution

import (
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

var deleteResultDesc = storage.NewTupleDesc(storage.FieldInfo{Type: storage.IntType, Name: "count"})

// Delete drains its child, deleting every tuple (by its stored record
// id) from its table, and yields a single result row holding the
// number of tuples deleted. One-shot, like Insert.
type Delete struct {
	tid   txid.ID
	child iterator.DbIterator
	mut   Mutator

	opened bool
	done   bool
}

// NewDelete constructs a delete operator under transaction tid,
// removing child's tuples via mut. Each tuple must carry a RecordID
// identifying where it lives, which scans naturally attach.
func NewDelete(tid txid.ID, child iterator.DbIterator, mut Mutator) *Delete {
	return &Delete{tid: tid, child: child, mut: mut}
}

// TupleDesc returns the single-column (count) result schema.
func (del *Delete) TupleDesc() *storage.TupleDesc { return deleteResultDesc }

// Open opens the child; deletion happens lazily, on the first Next.
func (del *Delete) Open() error {
	if err := del.child.Open(); err != nil {
		return err
	}
	del.opened = true
	del.done = false
	return nil
}

// HasNext reports whether the result row has not yet been consumed.
func (del *Delete) HasNext() (bool, error) {
	if !del.opened {
		return false, dberr.NewDb("execution.Delete: HasNext called before Open")
	}
	return !del.done, nil
}

// Next drains the child, deleting each tuple, and returns the single
// result row: the count of tuples deleted.
func (del *Delete) Next() (*storage.Tuple, error) {
	if del.done {
		return nil, dberr.ErrNoSuchElement
	}
	var count int32
	for {
		has, err := del.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := del.child.Next()
		if err != nil {
			return nil, err
		}
		if t.RecordID == nil {
			return nil, dberr.NewDb("execution.Delete: tuple has no record id")
		}
		if err := del.mut.DeleteTuple(del.tid, t.RecordID.PageID.TableID, t); err != nil {
			return nil, err
		}
		count++
	}
	del.done = true
	result, _ := storage.NewTuple(deleteResultDesc, storage.IntField{Value: count})
	return result, nil
}

// Rewind re-opens the child so a second delete pass can be driven.
func (del *Delete) Rewind() error {
	del.done = false
	return del.child.Rewind()
}

// Close closes the child.
func (del *Delete) Close() error {
	del.opened = false
	return del.child.Close()
}
