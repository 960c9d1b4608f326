package lock

import (
	"errors"
	"testing"
	"time"

	"dinodb/pkg/dberr"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

func newTestManager(t *testing.T) *Manager {
	lm := NewManager()
	t.Cleanup(lm.Close)
	return lm
}

func TestSharedLocksCanBeHeldConcurrently(t *testing.T) {
	lm := newTestManager(t)
	pid := storage.PageID{TableID: 1, PageNum: 0}
	a, b := txid.New(), txid.New()

	if err := lm.Lock(pid, a, Shared); err != nil {
		t.Fatal("Lock(a, Shared) failed:", err)
	}
	if err := lm.Lock(pid, b, Shared); err != nil {
		t.Fatal("Lock(b, Shared) failed:", err)
	}
	if !lm.Holds(pid, a) || !lm.Holds(pid, b) {
		t.Error("Expected both transactions to hold the shared lock")
	}
}

func TestExclusiveExcludesOthers(t *testing.T) {
	lm := newTestManager(t)
	pid := storage.PageID{TableID: 1, PageNum: 0}
	a, b := txid.New(), txid.New()

	if err := lm.Lock(pid, a, Exclusive); err != nil {
		t.Fatal("Lock(a, Exclusive) failed:", err)
	}

	done := make(chan error, 1)
	go func() { done <- lm.Lock(pid, b, Shared) }()

	select {
	case err := <-done:
		t.Fatalf("Expected b's lock request to block while a holds exclusive, got err=%v", err)
	case <-time.After(100 * time.Millisecond):
	}

	lm.Release(pid, a)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("b's lock request should have succeeded after release, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("b's lock request never unblocked after a released")
	}
}

func TestLockUpgradeSoleHolder(t *testing.T) {
	lm := newTestManager(t)
	pid := storage.PageID{TableID: 1, PageNum: 0}
	a := txid.New()

	if err := lm.Lock(pid, a, Shared); err != nil {
		t.Fatal("Lock(a, Shared) failed:", err)
	}
	if err := lm.Lock(pid, a, Exclusive); err != nil {
		t.Fatal("Expected sole shared holder to upgrade to exclusive without blocking:", err)
	}
}

func TestReleaseAllDropsEveryLock(t *testing.T) {
	lm := newTestManager(t)
	a := txid.New()
	p1 := storage.PageID{TableID: 1, PageNum: 0}
	p2 := storage.PageID{TableID: 1, PageNum: 1}

	if err := lm.Lock(p1, a, Exclusive); err != nil {
		t.Fatal(err)
	}
	if err := lm.Lock(p2, a, Shared); err != nil {
		t.Fatal(err)
	}
	lm.ReleaseAll(a)
	if lm.Holds(p1, a) || lm.Holds(p2, a) {
		t.Error("Expected ReleaseAll to drop every lock held by the transaction")
	}
}

func TestDeadlockDetected(t *testing.T) {
	lm := newTestManager(t)
	p1 := storage.PageID{TableID: 1, PageNum: 0}
	p2 := storage.PageID{TableID: 1, PageNum: 1}
	a, b := txid.New(), txid.New()

	if err := lm.Lock(p1, a, Exclusive); err != nil {
		t.Fatal(err)
	}
	if err := lm.Lock(p2, b, Exclusive); err != nil {
		t.Fatal(err)
	}

	bBlocked := make(chan error, 1)
	go func() { bBlocked <- lm.Lock(p1, b, Exclusive) }()
	// Give b time to register as a waiter on p1 before a reaches for p2.
	time.Sleep(100 * time.Millisecond)

	err := lm.Lock(p2, a, Exclusive)
	if err == nil {
		t.Fatal("Expected a's request to be aborted once the wait cycle formed")
	}
	if !errors.Is(err, dberr.ErrTransactionAborted) {
		t.Errorf("Expected dberr.ErrTransactionAborted, got %v", err)
	}

	lm.Release(p1, a)
	select {
	case err := <-bBlocked:
		if err != nil {
			t.Fatalf("Expected b to acquire p1 once a backed off, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("b never acquired p1 after a's request was aborted")
	}
}
