// Package aggregation implements grouped and ungrouped SUM/COUNT/MIN/
// MAX/AVG computation over a stream of tuples, materializing results
// into a small restartable iterator once the input has been drained.
package aggregation

import (
	"dinodb/pkg/dberr"
	"dinodb/pkg/iterator"
	"dinodb/pkg/storage"
)

// Op is an aggregation operator.
type Op int

const (
	Min Op = iota
	Max
	Sum
	Avg
	Count
)

func (op Op) String() string {
	switch op {
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	case Avg:
		return "avg"
	case Count:
		return "count"
	default:
		return "unknown"
	}
}

// NoGrouping is the sentinel group-by field index meaning "aggregate
// the whole input into a single group".
const NoGrouping = -1

// Aggregator accumulates tuples into groups and exposes the finished
// result as an iterator.
type Aggregator interface {
	// Merge folds one input tuple into its group's running aggregate.
	Merge(t *storage.Tuple) error
	// Iterator returns a fresh iterator over the finished result. The
	// aggregate must have seen every input tuple before this is called;
	// merging further tuples after Iterator has been called is undefined.
	Iterator() iterator.DbIterator
	// TupleDesc describes the result rows: (groupVal, aggVal) when
	// grouping, or (aggVal) alone otherwise.
	TupleDesc() *storage.TupleDesc
}

// intAcc is the running state kept per group for an integer aggregate.
type intAcc struct {
	count int64
	sum   int64
	mean  int32 // running truncating mean, updated one observation at a time
	min   int32
	max   int32
}

func (a *intAcc) observe(v int32) {
	if a.count == 0 {
		a.min, a.max = v, v
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	a.mean = int32((int64(a.mean)*a.count + int64(v)) / (a.count + 1))
	a.count++
	a.sum += int64(v)
}

func (a *intAcc) result(op Op) int32 {
	switch op {
	case Min:
		return a.min
	case Max:
		return a.max
	case Sum:
		return int32(a.sum)
	case Avg:
		return a.mean
	case Count:
		return int32(a.count)
	default:
		return 0
	}
}

// IntAggregator aggregates an integer field, optionally grouped by
// another field of either type.
type IntAggregator struct {
	gbField     int
	gbFieldType storage.FieldType
	aField      int
	what        Op

	order  []storage.Field // first-seen order of group keys, for deterministic output
	groups map[storage.Field]*intAcc
}

// NewIntAggregator constructs an aggregator over field aField, grouped
// by gbField (or NoGrouping for a single global group) of type
// gbFieldType, computing what.
func NewIntAggregator(gbField int, gbFieldType storage.FieldType, aField int, what Op) *IntAggregator {
	return &IntAggregator{
		gbField: gbField, gbFieldType: gbFieldType, aField: aField, what: what,
		groups: make(map[storage.Field]*intAcc),
	}
}

func (ia *IntAggregator) groupKey(t *storage.Tuple) storage.Field {
	if ia.gbField == NoGrouping {
		return nil
	}
	return t.Field(ia.gbField)
}

// Merge folds t's aggregate field into its group.
func (ia *IntAggregator) Merge(t *storage.Tuple) error {
	f, ok := t.Field(ia.aField).(storage.IntField)
	if !ok {
		return dberr.NewInvalidArgument("aggregation: aggregate field is not an integer")
	}
	key := ia.groupKey(t)
	acc, ok := ia.groups[key]
	if !ok {
		acc = &intAcc{}
		ia.groups[key] = acc
		ia.order = append(ia.order, key)
	}
	acc.observe(f.Value)
	return nil
}

// TupleDesc describes this aggregator's result rows.
func (ia *IntAggregator) TupleDesc() *storage.TupleDesc {
	if ia.gbField == NoGrouping {
		return storage.NewTupleDesc(storage.FieldInfo{Type: storage.IntType, Name: ia.what.String()})
	}
	return storage.NewTupleDesc(
		storage.FieldInfo{Type: ia.gbFieldType, Name: "groupVal"},
		storage.FieldInfo{Type: storage.IntType, Name: ia.what.String()},
	)
}

// Iterator materializes the finished aggregate into a restartable
// iterator, one tuple per group, in first-seen group order.
func (ia *IntAggregator) Iterator() iterator.DbIterator {
	desc := ia.TupleDesc()
	tuples := make([]*storage.Tuple, 0, len(ia.order))
	for _, key := range ia.order {
		acc := ia.groups[key]
		result := storage.IntField{Value: acc.result(ia.what)}
		var t *storage.Tuple
		if ia.gbField == NoGrouping {
			t, _ = storage.NewTuple(desc, result)
		} else {
			t, _ = storage.NewTuple(desc, key, result)
		}
		tuples = append(tuples, t)
	}
	return newMaterializedIterator(desc, tuples)
}

// StringAggregator aggregates a string field. COUNT is the only
// supported operator; any other Op is a construction-time error.
type StringAggregator struct {
	gbField     int
	gbFieldType storage.FieldType
	aField      int

	order  []storage.Field
	counts map[storage.Field]int64
}

// NewStringAggregator constructs a COUNT aggregator over field aField,
// grouped by gbField (or NoGrouping) of type gbFieldType. what must be
// Count; any other operator is rejected.
func NewStringAggregator(gbField int, gbFieldType storage.FieldType, aField int, what Op) (*StringAggregator, error) {
	if what != Count {
		return nil, dberr.NewInvalidArgument("aggregation: string fields only support count")
	}
	return &StringAggregator{
		gbField: gbField, gbFieldType: gbFieldType, aField: aField,
		counts: make(map[storage.Field]int64),
	}, nil
}

func (sa *StringAggregator) groupKey(t *storage.Tuple) storage.Field {
	if sa.gbField == NoGrouping {
		return nil
	}
	return t.Field(sa.gbField)
}

// Merge counts one occurrence of t's group.
func (sa *StringAggregator) Merge(t *storage.Tuple) error {
	if _, ok := t.Field(sa.aField).(storage.StringField); !ok {
		return dberr.NewInvalidArgument("aggregation: aggregate field is not a string")
	}
	key := sa.groupKey(t)
	if _, ok := sa.counts[key]; !ok {
		sa.order = append(sa.order, key)
	}
	sa.counts[key]++
	return nil
}

// TupleDesc describes this aggregator's result rows.
func (sa *StringAggregator) TupleDesc() *storage.TupleDesc {
	if sa.gbField == NoGrouping {
		return storage.NewTupleDesc(storage.FieldInfo{Type: storage.IntType, Name: "count"})
	}
	return storage.NewTupleDesc(
		storage.FieldInfo{Type: sa.gbFieldType, Name: "groupVal"},
		storage.FieldInfo{Type: storage.IntType, Name: "count"},
	)
}

// Iterator materializes the finished counts into a restartable
// iterator, one tuple per group, in first-seen group order.
func (sa *StringAggregator) Iterator() iterator.DbIterator {
	desc := sa.TupleDesc()
	tuples := make([]*storage.Tuple, 0, len(sa.order))
	for _, key := range sa.order {
		result := storage.IntField{Value: int32(sa.counts[key])}
		var t *storage.Tuple
		if sa.gbField == NoGrouping {
			t, _ = storage.NewTuple(desc, result)
		} else {
			t, _ = storage.NewTuple(desc, key, result)
		}
		tuples = append(tuples, t)
	}
	return newMaterializedIterator(desc, tuples)
}

// materializedIterator walks a pre-computed, fixed slice of tuples.
type materializedIterator struct {
	desc   *storage.TupleDesc
	tuples []*storage.Tuple
	pos    int
	opened bool
}

func newMaterializedIterator(desc *storage.TupleDesc, tuples []*storage.Tuple) *materializedIterator {
	return &materializedIterator{desc: desc, tuples: tuples}
}

func (it *materializedIterator) Open() error {
	it.opened = true
	it.pos = 0
	return nil
}

func (it *materializedIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, dberr.NewDb("aggregation: iterator used before Open")
	}
	return it.pos < len(it.tuples), nil
}

func (it *materializedIterator) Next() (*storage.Tuple, error) {
	has, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, dberr.ErrNoSuchElement
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

func (it *materializedIterator) Rewind() error {
	it.pos = 0
	return nil
}

func (it *materializedIterator) Close() error {
	it.opened = false
	return nil
}

func (it *materializedIterator) TupleDesc() *storage.TupleDesc { return it.desc }
