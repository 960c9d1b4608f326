package execution

import (
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// Mutator is the write surface execution needs from the buffer pool:
// insert and delete a tuple within a transaction.
type Mutator interface {
	InsertTuple(tid txid.ID, tableID int64, t *storage.Tuple) error
	DeleteTuple(tid txid.ID, tableID int64, t *storage.Tuple) error
}

var insertResultDesc = storage.NewTupleDesc(storage.FieldInfo{Type: storage.IntType, Name: "count"})

// Insert drains its child, inserting every tuple into tableID, and
// yields a single result row holding the number of tuples inserted.
// It is one-shot: calling Next a second time (without an intervening
// Rewind) reports exhaustion, matching the non-restartable semantics
// of a write.
type Insert struct {
	tid     txid.ID
	tableID int64
	child   iterator.DbIterator
	mut     Mutator

	opened bool
	done   bool
}

// NewInsert constructs an insert operator under transaction tid,
// writing child's tuples into tableID via mut.
func NewInsert(tid txid.ID, tableID int64, child iterator.DbIterator, mut Mutator) *Insert {
	return &Insert{tid: tid, tableID: tableID, child: child, mut: mut}
}

// TupleDesc returns the single-column (count) result schema.
func (ins *Insert) TupleDesc() *storage.TupleDesc { return insertResultDesc }

// Open opens the child; insertion happens lazily, on the first Next.
func (ins *Insert) Open() error {
	if err := ins.child.Open(); err != nil {
		return err
	}
	ins.opened = true
	ins.done = false
	return nil
}

// HasNext reports whether the result row has not yet been consumed.
func (ins *Insert) HasNext() (bool, error) {
	if !ins.opened {
		return false, dberr.NewDb("execution.Insert: HasNext called before Open")
	}
	return !ins.done, nil
}

// Next drains the child, inserting each tuple, and returns the single
// result row: the count of tuples inserted.
func (ins *Insert) Next() (*storage.Tuple, error) {
	if ins.done {
		return nil, dberr.ErrNoSuchElement
	}
	var count int32
	for {
		has, err := ins.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := ins.child.Next()
		if err != nil {
			return nil, err
		}
		if err := ins.mut.InsertTuple(ins.tid, ins.tableID, t); err != nil {
			return nil, err
		}
		count++
	}
	ins.done = true
	result, _ := storage.NewTuple(insertResultDesc, storage.IntField{Value: count})
	return result, nil
}

// Rewind re-opens the child so a second insert pass can be driven.
func (ins *Insert) Rewind() error {
	ins.done = false
	return ins.child.Rewind()
}

// Close closes the child.
func (ins *Insert) Close() error {
	ins.opened = false
	return ins.child.Close()
}
