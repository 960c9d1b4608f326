package execution_test

import (
	"testing"

	"dinodb/pkg/execution"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

func TestFilterPassesMatchingTuplesOnly(t *testing.T) {
	table, bp := setupPeople(t, [][2]any{
		{int32(1), "alice"}, {int32(2), "bob"}, {int32(3), "carol"},
	})
	tid := txid.New()
	scan := execution.NewScan(tid, table.File, bp, "p")
	pred := execution.NewPredicate(0, storage.GreaterThan, storage.IntField{Value: 1})
	filter := execution.NewFilter(pred, scan)

	tuples := drainAll(t, filter)
	if len(tuples) != 2 {
		t.Fatalf("Expected 2 tuples with id > 1, got %d", len(tuples))
	}
	for _, tup := range tuples {
		if id := tup.Field(0); id == (storage.IntField{Value: 1}) {
			t.Error("Expected id 1 to be filtered out")
		}
	}
}

func TestFilterDescMatchesChild(t *testing.T) {
	table, bp := setupPeople(t, nil)
	tid := txid.New()
	scan := execution.NewScan(tid, table.File, bp, "p")
	pred := execution.NewPredicate(0, storage.Equals, storage.IntField{Value: 1})
	filter := execution.NewFilter(pred, scan)
	if !filter.TupleDesc().Equals(scan.TupleDesc()) {
		t.Error("Expected Filter's schema to match its child's")
	}
}
