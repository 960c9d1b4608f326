// Package buffer implements the database's page cache: a bounded LRU
// of heap pages, fetched under two-phase locking and evicted under a
// strict NO-STEAL policy (a dirty page is never written back until its
// writing transaction commits).
package buffer

import (
	"sync"

	"dinodb/pkg/catalog"
	"dinodb/pkg/dberr"
	"dinodb/pkg/heap"
	"dinodb/pkg/list"
	"dinodb/pkg/lock"
	"dinodb/pkg/recovery"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// Pool is the bounded page cache shared by every transaction in the
// database. It implements heap.PageSource.
type Pool struct {
	mu       sync.Mutex
	cat      *catalog.Catalog
	locks    *lock.Manager
	log      *recovery.LogFile // nil disables write-ahead logging
	capacity int

	pages map[storage.PageID]*list.Link // value is *heap.Page, ordered MRU at head
	lru   *list.List

	// dirtiedBy tracks which transactions have dirtied which pages, so
	// transactionComplete can flush-or-restore exactly the right set.
	dirtiedBy map[txid.ID]map[storage.PageID]bool
}

// NewPool constructs an empty pool capped at capacity pages. log may
// be nil, in which case no write-ahead log is kept (used by tests that
// only care about cache and locking behavior).
func NewPool(cat *catalog.Catalog, locks *lock.Manager, log *recovery.LogFile, capacity int) *Pool {
	return &Pool{
		cat:       cat,
		locks:     locks,
		log:       log,
		capacity:  capacity,
		pages:     make(map[storage.PageID]*list.Link),
		lru:       list.NewList(),
		dirtiedBy: make(map[txid.ID]map[storage.PageID]bool),
	}
}

// GetPage returns the page pid, acquiring the page lock under perm
// first (blocking, and possibly returning dberr.ErrTransactionAborted
// on deadlock), then fetching it into cache on a miss. It implements
// heap.PageSource so heap.File can be driven through this pool.
func (bp *Pool) GetPage(tid txid.ID, pid storage.PageID, perm lock.Permissions) (*heap.Page, error) {
	if err := bp.locks.Lock(pid, tid, perm.Mode()); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if link, ok := bp.pages[pid]; ok {
		link.PopSelf()
		bp.pages[pid] = bp.lru.PushHead(link.GetValue())
		return link.GetValue().(*heap.Page), nil
	}

	table, err := bp.cat.GetTableByID(pid.TableID)
	if err != nil {
		return nil, err
	}
	page, err := table.File.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	if err := bp.ensureRoom(); err != nil {
		return nil, err
	}
	bp.pages[pid] = bp.lru.PushHead(page)
	return page, nil
}

// ensureRoom evicts pages until the cache has room for one more.
// Called with bp.mu held. NO-STEAL: only clean pages are evicted.
func (bp *Pool) ensureRoom() error {
	for len(bp.pages) >= bp.capacity {
		link := bp.lru.PeekTail()
		for link != nil {
			page := link.GetValue().(*heap.Page)
			if _, dirty := page.IsDirty(); !dirty {
				break
			}
			link = link.GetPrev()
		}
		if link == nil {
			return dberr.NewDb("buffer: no clean page available to evict (NO-STEAL)")
		}
		page := link.GetValue().(*heap.Page)
		link.PopSelf()
		delete(bp.pages, page.ID())
		for _, set := range bp.dirtiedBy {
			delete(set, page.ID())
		}
	}
	return nil
}

// InsertTuple delegates to the target table's heap file, then marks
// every page the file returns as dirtied by tid and tracks it for
// transaction completion.
func (bp *Pool) InsertTuple(tid txid.ID, tableID int64, t *storage.Tuple) error {
	table, err := bp.cat.GetTableByID(tableID)
	if err != nil {
		return err
	}
	pages, err := table.File.InsertTuple(tid, t, bp)
	if err != nil {
		return err
	}
	return bp.markDirty(tid, pages)
}

// DeleteTuple delegates to t's table's heap file and marks the
// returned page dirtied by tid.
func (bp *Pool) DeleteTuple(tid txid.ID, tableID int64, t *storage.Tuple) error {
	table, err := bp.cat.GetTableByID(tableID)
	if err != nil {
		return err
	}
	pages, err := table.File.DeleteTuple(tid, t, bp)
	if err != nil {
		return err
	}
	return bp.markDirty(tid, pages)
}

func (bp *Pool) markDirty(tid txid.ID, pages []*heap.Page) error {
	bp.mu.Lock()
	set, ok := bp.dirtiedBy[tid]
	if !ok {
		set = make(map[storage.PageID]bool)
		bp.dirtiedBy[tid] = set
	}
	for _, page := range pages {
		before, err := page.GetBeforeImage()
		page.MarkDirty(true, tid)
		set[page.ID()] = true
		if err != nil || bp.log == nil {
			continue
		}
		if logErr := bp.log.LogUpdate(tid, page.ID(), before.Encode(), page.Encode()); logErr != nil {
			bp.mu.Unlock()
			return logErr
		}
	}
	bp.mu.Unlock()
	return nil
}

// FlushPage forces a page's current contents to disk and clears its
// dirty flag, regardless of which transaction dirtied it. Callers must
// only flush a page once its writer has committed.
func (bp *Pool) FlushPage(pid storage.PageID) error {
	bp.mu.Lock()
	link, ok := bp.pages[pid]
	bp.mu.Unlock()
	if !ok {
		return nil
	}
	page := link.GetValue().(*heap.Page)
	table, err := bp.cat.GetTableByID(pid.TableID)
	if err != nil {
		return err
	}
	if err := table.File.WritePage(page); err != nil {
		return err
	}
	page.MarkDirty(false, txid.ID{})
	page.SetBeforeImage()
	return nil
}

// flushPages flushes every page in pids.
func (bp *Pool) flushPages(pids map[storage.PageID]bool) error {
	for pid := range pids {
		if err := bp.FlushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// RestorePage discards a page's in-cache copy, re-reading it from disk
// so any uncommitted changes made by an aborting transaction vanish.
func (bp *Pool) RestorePage(pid storage.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	link, ok := bp.pages[pid]
	if !ok {
		return nil
	}
	table, err := bp.cat.GetTableByID(pid.TableID)
	if err != nil {
		return err
	}
	fresh, err := table.File.ReadPage(pid)
	if err != nil {
		return err
	}
	link.SetValue(fresh)
	return nil
}

// TransactionComplete ends tid's participation in the pool: on commit,
// every page tid dirtied is flushed to disk; on abort, every such page
// is restored from its on-disk image, undoing tid's writes. Either way
// tid's locks are then released.
func (bp *Pool) TransactionComplete(tid txid.ID, commit bool) error {
	bp.mu.Lock()
	pids := bp.dirtiedBy[tid]
	delete(bp.dirtiedBy, tid)
	bp.mu.Unlock()

	var err error
	if commit {
		err = bp.flushPages(pids)
		if err == nil && bp.log != nil {
			err = bp.log.LogCommit(tid)
		}
	} else {
		for pid := range pids {
			if rerr := bp.RestorePage(pid); rerr != nil && err == nil {
				err = rerr
			}
		}
		if err == nil && bp.log != nil {
			err = bp.log.LogAbort(tid)
		}
	}
	bp.locks.ReleaseAll(tid)
	return err
}

// FlushAllPages forces every cached page to disk, irrespective of
// dirty or transaction state. Intended for clean shutdown, not normal
// operation (it violates NO-STEAL/WAL ordering if transactions are
// still active).
func (bp *Pool) FlushAllPages() error {
	bp.mu.Lock()
	pids := make([]storage.PageID, 0, len(bp.pages))
	for pid := range bp.pages {
		pids = append(pids, pid)
	}
	bp.mu.Unlock()
	for _, pid := range pids {
		if err := bp.FlushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// RemovePage evicts pid from the cache without flushing it, discarding
// any in-memory changes. Used to drop a page from cache outside normal
// transaction-driven eviction.
func (bp *Pool) RemovePage(pid storage.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if link, ok := bp.pages[pid]; ok {
		link.PopSelf()
		delete(bp.pages, pid)
	}
}
