package optimizer

import (
	"math"
	"sync"

	"dinodb/pkg/catalog"
	"dinodb/pkg/heap"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// NumHistBins is the default number of buckets built per field.
const NumHistBins = 100

// IOCostPerPage is the assumed cost, in arbitrary units, of reading
// one page during a sequential scan.
const IOCostPerPage = 1000

// TableStats holds per-field histograms and cardinality for one table,
// used by the planner to estimate predicate selectivity and scan cost
// without touching the table itself.
type TableStats struct {
	tableID       int64
	ioCostPerPage int
	numTuples     int
	desc          *storage.TupleDesc
	intHists      map[string]*IntHistogram
	strHists      map[string]*StringHistogram
}

// Compute builds a TableStats for table by scanning it twice: once to
// find each integer field's min/max (needed to size its histogram),
// once to populate the histograms. src provides page access, such as
// a live buffer pool.
func Compute(table *catalog.Table, src heap.PageSource, ioCostPerPage int) (*TableStats, error) {
	desc := table.File.TupleDesc()
	n := desc.NumFields()
	min := make([]int32, n)
	max := make([]int32, n)
	for i := range min {
		min[i] = math.MaxInt32
		max[i] = math.MinInt32
	}

	tid := txid.New()
	numTuples := 0
	if err := scan(table.File, tid, src, func(t *storage.Tuple) {
		numTuples++
		for i, fi := range desc.Fields {
			if fi.Type != storage.IntType {
				continue
			}
			v := t.Field(i).(storage.IntField).Value
			if v < min[i] {
				min[i] = v
			}
			if v > max[i] {
				max[i] = v
			}
		}
	}); err != nil {
		return nil, err
	}

	intHists := make(map[string]*IntHistogram)
	strHists := make(map[string]*StringHistogram)
	for i, fi := range desc.Fields {
		if fi.Type == storage.IntType {
			lo, hi := min[i], max[i]
			if lo > hi {
				lo, hi = 0, 0
			}
			intHists[fi.Name] = NewIntHistogram(NumHistBins, lo, hi)
		} else {
			strHists[fi.Name] = NewStringHistogram(NumHistBins)
		}
	}

	if err := scan(table.File, tid, src, func(t *storage.Tuple) {
		for i, fi := range desc.Fields {
			if fi.Type == storage.IntType {
				intHists[fi.Name].AddValue(t.Field(i).(storage.IntField).Value)
			} else {
				strHists[fi.Name].AddValue(t.Field(i).(storage.StringField).Value)
			}
		}
	}); err != nil {
		return nil, err
	}

	return &TableStats{
		tableID:       table.File.TableID(),
		ioCostPerPage: ioCostPerPage,
		numTuples:     numTuples,
		desc:          desc,
		intHists:      intHists,
		strHists:      strHists,
	}, nil
}

func scan(f *heap.File, tid txid.ID, src heap.PageSource, visit func(*storage.Tuple)) error {
	it := f.Iterator(tid, src)
	if err := it.Open(); err != nil {
		return err
	}
	defer it.Close()
	for {
		has, err := it.HasNext()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		visit(t)
	}
}

// EstimateScanCost estimates the cost of a full sequential scan,
// assuming every page requires a read and no page is already cached.
func (ts *TableStats) EstimateScanCost(numPages int64) float64 {
	return float64(numPages) * float64(ts.ioCostPerPage)
}

// EstimateTableCardinality estimates the number of rows a scan filtered
// by a predicate of the given selectivity would return.
func (ts *TableStats) EstimateTableCardinality(selectivityFactor float64) int {
	return int(float64(ts.numTuples) * selectivityFactor)
}

// EstimateSelectivity estimates the fraction of rows for which
// "field op constant" holds, dispatching to the field's histogram.
func (ts *TableStats) EstimateSelectivity(field int, op storage.Op, constant storage.Field) float64 {
	name := ts.desc.Fields[field].Name
	if h, ok := ts.intHists[name]; ok {
		return h.EstimateSelectivity(op, constant.(storage.IntField).Value)
	}
	return ts.strHists[name].EstimateSelectivity(op, constant.(storage.StringField).Value)
}

// AvgSelectivity returns the field's average per-bucket selectivity.
func (ts *TableStats) AvgSelectivity(field int) float64 {
	name := ts.desc.Fields[field].Name
	if h, ok := ts.intHists[name]; ok {
		return h.AvgSelectivity()
	}
	return ts.strHists[name].AvgSelectivity()
}

// TotalTuples returns the row count observed when the stats were computed.
func (ts *TableStats) TotalTuples() int { return ts.numTuples }

// Registry is a concurrency-safe table-name to TableStats map, mirroring
// the planner's process-wide stats cache.
type Registry struct {
	mu    sync.RWMutex
	stats map[string]*TableStats
}

// NewRegistry constructs an empty stats registry.
func NewRegistry() *Registry {
	return &Registry{stats: make(map[string]*TableStats)}
}

// Set installs stats for a table name.
func (r *Registry) Set(tableName string, stats *TableStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[tableName] = stats
}

// Get returns the stats registered for a table name, if any.
func (r *Registry) Get(tableName string) (*TableStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[tableName]
	return s, ok
}
