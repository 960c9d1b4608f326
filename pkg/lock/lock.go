// Package lock implements page-granularity two-phase locking with
// shared/exclusive modes, lock upgrade, new shared requests queued behind
// earlier waiters while the lock is held, and deadlock detection over a process-wide wait-for graph.
package lock

import (
	"sync"
	"time"

	"dinodb/pkg/dberr"
	"dinodb/pkg/list"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// Mode is a page lock's granted mode.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Permissions is the caller-facing request, mirroring simpledb's
// Permissions enum: READ_ONLY maps to Shared, READ_WRITE to Exclusive.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

// Mode converts a requested Permissions into the lock Mode it implies.
func (p Permissions) Mode() Mode {
	if p == ReadWrite {
		return Exclusive
	}
	return Shared
}

type waiter struct {
	tid  txid.ID
	mode Mode
}

// lockItem is the per-page lock record: current holders and their mode.
type lockItem struct {
	mode    Mode
	holders map[txid.ID]bool
	waiters *list.List // of *waiter, in arrival order
}

func (li *lockItem) waiterLink(tid txid.ID) *list.Link {
	return li.waiters.Find(func(l *list.Link) bool {
		return l.GetValue().(*waiter).tid == tid
	})
}

// Manager is the process-wide lock table plus wait-for graph.
type Manager struct {
	mu    sync.Mutex
	cond  *sync.Cond
	locks map[storage.PageID]*lockItem

	// waitsFor[waiter] is the set of transactions waiter is currently
	// blocked behind; an edge waiter -> holder.
	waitsFor map[txid.ID]map[txid.ID]bool

	stopTicker chan struct{}
}

// NewManager constructs an empty lock manager.
func NewManager() *Manager {
	lm := &Manager{
		locks:      make(map[storage.PageID]*lockItem),
		waitsFor:   make(map[txid.ID]map[txid.ID]bool),
		stopTicker: make(chan struct{}),
	}
	lm.cond = sync.NewCond(&lm.mu)
	// Bounded wait safety net: spurious-wakeup-tolerant waiters re-check
	// their grant condition on every wake, so a periodic broadcast
	// guards against a missed notifyAll without needing per-waiter timers.
	go lm.tickBroadcast()
	return lm
}

func (lm *Manager) tickBroadcast() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			lm.cond.Broadcast()
			lm.mu.Unlock()
		case <-lm.stopTicker:
			return
		}
	}
}

// Close stops the manager's background bounded-wait ticker.
func (lm *Manager) Close() {
	close(lm.stopTicker)
}

// acquire attempts to grant pid/mode to tid without blocking. Must be
// called with lm.mu held. Returns (granted, err); err is
// dberr.ErrTransactionAborted if granting would require waiting and
// doing so would deadlock.
func (lm *Manager) acquire(pid storage.PageID, tid txid.ID, mode Mode) (bool, error) {
	item, ok := lm.locks[pid]
	if !ok {
		lm.locks[pid] = &lockItem{
			mode:    mode,
			holders: map[txid.ID]bool{tid: true},
			waiters: list.NewList(),
		}
		return true, nil
	}

	if len(item.holders) == 1 && item.holders[tid] {
		if mode == Exclusive && item.mode == Shared {
			item.mode = Exclusive
		}
		return true, nil
	}

	fifoReady := func() bool {
		head := item.waiters.PeekHead()
		return head == nil || head.GetValue().(*waiter).tid == tid
	}

	if item.mode == Shared && mode == Shared && fifoReady() {
		item.holders[tid] = true
		if link := item.waiterLink(tid); link != nil {
			link.PopSelf()
		}
		return true, nil
	}

	// Must wait. Register as a waiter (idempotent) and record wait-for
	// edges to every current holder, then check for a cycle.
	if item.waiterLink(tid) == nil {
		item.waiters.PushTail(&waiter{tid: tid, mode: mode})
	}
	for h := range item.holders {
		if h == tid {
			continue
		}
		lm.addEdge(tid, h)
	}
	if lm.hasCycle(tid) {
		lm.removeEdges(tid)
		if link := item.waiterLink(tid); link != nil {
			link.PopSelf()
		}
		return false, dberr.ErrTransactionAborted
	}
	return false, nil
}

// Lock blocks until pid/mode is granted to tid, or returns
// dberr.ErrTransactionAborted if a deadlock involving tid is detected.
// Spurious wakeups are tolerated: the grant condition is re-evaluated
// on every wake.
func (lm *Manager) Lock(pid storage.PageID, tid txid.ID, mode Mode) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for {
		granted, err := lm.acquire(pid, tid, mode)
		if err != nil {
			return err
		}
		if granted {
			lm.removeEdges(tid)
			return nil
		}
		lm.cond.Wait()
	}
}

// Release drops tid's hold on pid. If that empties the holder set, the
// lock record is removed. Wakes every blocked waiter so each can
// re-check its own grant condition.
func (lm *Manager) Release(pid storage.PageID, tid txid.ID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.releaseLocked(pid, tid)
	lm.cond.Broadcast()
}

func (lm *Manager) releaseLocked(pid storage.PageID, tid txid.ID) {
	item, ok := lm.locks[pid]
	if !ok {
		return
	}
	delete(item.holders, tid)
	if len(item.holders) == 0 {
		delete(lm.locks, pid)
	}
}

// ReleaseAll releases every lock tid holds and drops its wait-for edges.
// Called by transaction completion (commit or abort).
func (lm *Manager) ReleaseAll(tid txid.ID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for pid := range lm.locks {
		lm.releaseLocked(pid, tid)
	}
	delete(lm.waitsFor, tid)
	lm.cond.Broadcast()
}

// Holds reports whether tid currently holds any lock on pid.
func (lm *Manager) Holds(pid storage.PageID, tid txid.ID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	item, ok := lm.locks[pid]
	return ok && item.holders[tid]
}

func (lm *Manager) addEdge(waiterTid, holderTid txid.ID) {
	edges, ok := lm.waitsFor[waiterTid]
	if !ok {
		edges = make(map[txid.ID]bool)
		lm.waitsFor[waiterTid] = edges
	}
	edges[holderTid] = true
}

func (lm *Manager) removeEdges(tid txid.ID) {
	delete(lm.waitsFor, tid)
}

// hasCycle runs DFS from src over the wait-for graph; a vertex already
// in the current recursion stack means a cycle. Vertices are always
// popped from the stack on return so transitive, non-cyclic waits are
// never falsely reported as deadlocks.
func (lm *Manager) hasCycle(src txid.ID) bool {
	visited := make(map[txid.ID]bool)
	recStack := make(map[txid.ID]bool)
	return lm.dfs(src, visited, recStack)
}

func (lm *Manager) dfs(node txid.ID, visited, recStack map[txid.ID]bool) bool {
	if recStack[node] {
		return true
	}
	if visited[node] {
		return false
	}
	visited[node] = true
	recStack[node] = true
	defer delete(recStack, node)
	for next := range lm.waitsFor[node] {
		if lm.dfs(next, visited, recStack) {
			return true
		}
	}
	return false
}
