package execution_test

import (
	"testing"

	"dinodb/pkg/execution"
	"dinodb/pkg/txid"
)

func TestScanYieldsAllTuplesAliased(t *testing.T) {
	table, bp := setupPeople(t, [][2]any{
		{int32(1), "alice"}, {int32(2), "bob"}, {int32(3), "carol"},
	})
	tid := txid.New()
	scan := execution.NewScan(tid, table.File, bp, "p")

	desc := scan.TupleDesc()
	if name := desc.Fields[0].Name; name != "p.id" {
		t.Errorf("Expected field 0 to be aliased p.id, got %q", name)
	}

	tuples := drainAll(t, scan)
	if len(tuples) != 3 {
		t.Fatalf("Expected 3 tuples, got %d", len(tuples))
	}
	for _, tup := range tuples {
		if tup.RecordID == nil {
			t.Error("Expected every scanned tuple to carry a record id")
		}
	}
}

func TestScanRewind(t *testing.T) {
	table, bp := setupPeople(t, [][2]any{{int32(1), "alice"}})
	tid := txid.New()
	scan := execution.NewScan(tid, table.File, bp, "p")
	if err := scan.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer scan.Close()

	countRemaining := func() int {
		n := 0
		for {
			has, err := scan.HasNext()
			if err != nil {
				t.Fatal("HasNext failed:", err)
			}
			if !has {
				return n
			}
			if _, err := scan.Next(); err != nil {
				t.Fatal("Next failed:", err)
			}
			n++
		}
	}

	if n := countRemaining(); n != 1 {
		t.Fatalf("Expected 1 tuple, got %d", n)
	}
	if err := scan.Rewind(); err != nil {
		t.Fatal("Rewind failed:", err)
	}
	if n := countRemaining(); n != 1 {
		t.Fatalf("Expected 1 tuple after rewind, got %d", n)
	}
}
