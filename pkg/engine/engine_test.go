package engine_test

import (
	"testing"

	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
	"dinodb/test/utils"
)

func testDesc() *storage.TupleDesc {
	return storage.NewTupleDesc(
		storage.FieldInfo{Type: storage.IntType, Name: "id"},
		storage.FieldInfo{Type: storage.StringType, Name: "name", Len: 16},
	)
}

func TestEngineCreateTableAndScan(t *testing.T) {
	e := openTestEngine(t)
	table, err := e.CreateTable("people", testDesc(), "id")
	if err != nil {
		t.Fatal("CreateTable failed:", err)
	}

	tid := txid.New()
	tup, err := storage.NewTuple(testDesc(), storage.IntField{Value: 1}, storage.StringField{Value: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Buffer.InsertTuple(tid, table.File.TableID(), tup); err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	if err := e.Tx.Commit(tid); err == nil {
		t.Fatal("Expected Commit to fail: this transaction was never begun via Tx")
	}
	if err := e.Buffer.TransactionComplete(tid, true); err != nil {
		t.Fatal("TransactionComplete failed:", err)
	}

	tid2 := txid.New()
	scan := e.Scan(tid2, table, "people")
	if err := scan.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer scan.Close()
	has, err := scan.HasNext()
	if err != nil || !has {
		t.Fatalf("Expected a row after commit, has=%v err=%v", has, err)
	}
}

func TestEngineComputeStats(t *testing.T) {
	e := openTestEngine(t)
	table, err := e.CreateTable("people", testDesc(), "id")
	if err != nil {
		t.Fatal("CreateTable failed:", err)
	}
	tid := txid.New()
	tup, err := storage.NewTuple(testDesc(), storage.IntField{Value: 1}, storage.StringField{Value: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Buffer.InsertTuple(tid, table.File.TableID(), tup); err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	if err := e.Buffer.TransactionComplete(tid, true); err != nil {
		t.Fatal("TransactionComplete failed:", err)
	}

	if err := e.ComputeStats(); err != nil {
		t.Fatal("ComputeStats failed:", err)
	}
	stats, ok := e.Stats.Get("people")
	if !ok {
		t.Fatal("Expected stats to be registered for \"people\"")
	}
	if stats.TotalTuples() != 1 {
		t.Errorf("Expected 1 total tuple, got %d", stats.TotalTuples())
	}
}

func TestEngineBackup(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.CreateTable("people", testDesc(), "id"); err != nil {
		t.Fatal("CreateTable failed:", err)
	}
	dest := utils.GetTempDbFolder(t)
	if err := e.Backup(dest); err != nil {
		t.Fatal("Backup failed:", err)
	}
}

func TestTxManagerBeginTwiceErrors(t *testing.T) {
	e := openTestEngine(t)
	tid := txid.New()
	if err := e.Tx.Begin(tid); err != nil {
		t.Fatal("Begin failed:", err)
	}
	if err := e.Tx.Begin(tid); err == nil {
		t.Error("Expected a second Begin for the same transaction to error")
	}
	if !e.Tx.Active(tid) {
		t.Error("Expected the transaction to remain active")
	}
	if err := e.Tx.Commit(tid); err != nil {
		t.Fatal("Commit failed:", err)
	}
	if e.Tx.Active(tid) {
		t.Error("Expected the transaction to no longer be active after commit")
	}
}

func TestTxManagerAbortRestoresUncommittedWrites(t *testing.T) {
	e := openTestEngine(t)
	table, err := e.CreateTable("people", testDesc(), "id")
	if err != nil {
		t.Fatal("CreateTable failed:", err)
	}

	tid := txid.New()
	if err := e.Tx.Begin(tid); err != nil {
		t.Fatal("Begin failed:", err)
	}
	tup, err := storage.NewTuple(testDesc(), storage.IntField{Value: 1}, storage.StringField{Value: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Buffer.InsertTuple(tid, table.File.TableID(), tup); err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	if err := e.Tx.Abort(tid); err != nil {
		t.Fatal("Abort failed:", err)
	}

	tid2 := txid.New()
	scan := e.Scan(tid2, table, "people")
	if err := scan.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer scan.Close()
	if has, _ := scan.HasNext(); has {
		t.Error("Expected the aborted insert to leave no row behind")
	}
}
