package engine

import (
	"path/filepath"
	"sync"

	"dinodb/pkg/buffer"
	"dinodb/pkg/catalog"
	"dinodb/pkg/config"
	"dinodb/pkg/execution"
	"dinodb/pkg/heap"
	"dinodb/pkg/lock"
	"dinodb/pkg/optimizer"
	"dinodb/pkg/recovery"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"

	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"
)

// Engine is a single open database: one catalog of heap-file tables,
// one shared buffer pool and lock manager, and one write-ahead log.
type Engine struct {
	Catalog *catalog.Catalog
	Locks   *lock.Manager
	Buffer  *buffer.Pool
	Log     *recovery.LogFile
	Stats   *optimizer.Registry
	Tx      *TxManager
}

// Open opens (creating if necessary) a database rooted at folder, with
// a buffer pool capped at bufferPoolPages.
func Open(folder string, bufferPoolPages int) (*Engine, error) {
	cat, err := catalog.Open(folder)
	if err != nil {
		return nil, err
	}
	logFile, err := recovery.Open(filepath.Join(folder, config.LogFileName))
	if err != nil {
		return nil, err
	}
	locks := lock.NewManager()
	bp := buffer.NewPool(cat, locks, logFile, bufferPoolPages)
	return &Engine{
		Catalog: cat,
		Locks:   locks,
		Buffer:  bp,
		Log:     logFile,
		Stats:   optimizer.NewRegistry(),
		Tx:      NewTxManager(bp, logFile),
	}, nil
}

// OpenDefault opens a database with the package-default buffer pool size.
func OpenDefault(folder string) (*Engine, error) {
	return Open(folder, config.DefaultBufferPoolPages)
}

// CreateTable registers a new table with the given schema and primary key.
func (e *Engine) CreateTable(name string, desc *storage.TupleDesc, primKey string) (*catalog.Table, error) {
	return e.Catalog.CreateTable(name, desc, primKey)
}

// ComputeStats (re)computes selectivity statistics for every table in
// the catalog. Each table's histograms are built independently, so the
// per-table scans run concurrently; every scan runs to completion and
// the first error encountered is returned.
func (e *Engine) ComputeStats() error {
	tables := e.Catalog.Tables()
	var g errgroup.Group
	var mu sync.Mutex
	for name, table := range tables {
		name, table := name, table
		g.Go(func() error {
			stats, err := optimizer.Compute(table, e.Buffer, optimizer.IOCostPerPage)
			if err != nil {
				return err
			}
			mu.Lock()
			e.Stats.Set(name, stats)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Scan returns a leaf operator iterating table's tuples under tid,
// with fields qualified by alias.
func (e *Engine) Scan(tid txid.ID, table *catalog.Table, alias string) *execution.Scan {
	return execution.NewScan(tid, table.File, e.Buffer, alias)
}

// PageSource exposes the buffer pool as a heap.PageSource, for callers
// (like optimizer.Compute) that only need page access.
func (e *Engine) PageSource() heap.PageSource { return e.Buffer }

// Backup flushes every cached page to disk, then copies the database's
// entire folder (heap files and write-ahead log alike) to dest. Callers
// should hold off new transactions until Backup returns; it does not
// itself lock out concurrent writers.
func (e *Engine) Backup(dest string) error {
	if err := e.Buffer.FlushAllPages(); err != nil {
		return err
	}
	if err := e.Log.Force(); err != nil {
		return err
	}
	return copy.Copy(e.Catalog.BasePath(), dest)
}

// Close closes every table's heap file, the lock manager's background
// ticker, and the write-ahead log.
func (e *Engine) Close() error {
	e.Locks.Close()
	if err := e.Log.Close(); err != nil {
		return err
	}
	return e.Catalog.Close()
}
