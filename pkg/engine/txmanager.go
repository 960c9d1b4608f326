// Package engine wires the storage layer (catalog, buffer pool, lock
// manager, write-ahead log) into a single database handle, and exposes
// it through dinodb's REPL.
package engine

import (
	"sync"

	"dinodb/pkg/buffer"
	"dinodb/pkg/dberr"
	"dinodb/pkg/recovery"
	"dinodb/pkg/txid"
)

// TxManager tracks which transactions are currently running. Clients
// run at most one transaction at a time, so a client's connection id
// doubles as its transaction id.
type TxManager struct {
	mu     sync.Mutex
	active map[txid.ID]bool
	bp     *buffer.Pool
	log    *recovery.LogFile // nil disables start-of-transaction logging
}

// NewTxManager constructs a transaction manager over bp, logging
// transaction starts to log if non-nil.
func NewTxManager(bp *buffer.Pool, log *recovery.LogFile) *TxManager {
	return &TxManager{active: make(map[txid.ID]bool), bp: bp, log: log}
}

// Begin starts a new transaction under tid. Errors if tid already has
// a transaction running.
func (tm *TxManager) Begin(tid txid.ID) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.active[tid] {
		return dberr.NewDb("engine: transaction already began")
	}
	tm.active[tid] = true
	if tm.log != nil {
		if err := tm.log.LogStart(tid); err != nil {
			delete(tm.active, tid)
			return err
		}
	}
	return nil
}

// Active reports whether tid currently has a transaction running.
func (tm *TxManager) Active(tid txid.ID) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.active[tid]
}

// Commit flushes tid's dirtied pages to disk, logs the commit, and
// releases every lock tid holds.
func (tm *TxManager) Commit(tid txid.ID) error {
	if err := tm.end(tid); err != nil {
		return err
	}
	return tm.bp.TransactionComplete(tid, true)
}

// Abort restores tid's dirtied pages from disk, logs the abort, and
// releases every lock tid holds.
func (tm *TxManager) Abort(tid txid.ID) error {
	if err := tm.end(tid); err != nil {
		return err
	}
	return tm.bp.TransactionComplete(tid, false)
}

func (tm *TxManager) end(tid txid.ID) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if !tm.active[tid] {
		return dberr.NewDb("engine: no transaction running for this client")
	}
	delete(tm.active, tid)
	return nil
}
