package execution_test

import (
	"testing"

	"dinodb/pkg/execution"
	"dinodb/pkg/storage"
)

func TestPredicateEval(t *testing.T) {
	desc := peopleDesc()
	tup, err := storage.NewTuple(desc, storage.IntField{Value: 30}, storage.StringField{Value: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		op   storage.Op
		want int32
		pass bool
	}{
		{storage.Equals, 30, true},
		{storage.Equals, 31, false},
		{storage.NotEquals, 31, true},
		{storage.LessThan, 31, true},
		{storage.LessThan, 30, false},
		{storage.GreaterThanOrEqual, 30, true},
	}
	for _, c := range cases {
		pred := execution.NewPredicate(0, c.op, storage.IntField{Value: c.want})
		got, err := pred.Eval(tup)
		if err != nil {
			t.Fatal("Eval failed:", err)
		}
		if got != c.pass {
			t.Errorf("%v 30 %s %d: expected %v, got %v", c.op, c.op, c.want, c.pass, got)
		}
	}
}

func TestJoinPredicateEval(t *testing.T) {
	desc := peopleDesc()
	left, err := storage.NewTuple(desc, storage.IntField{Value: 30}, storage.StringField{Value: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	rightMatch, err := storage.NewTuple(desc, storage.IntField{Value: 30}, storage.StringField{Value: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	rightNoMatch, err := storage.NewTuple(desc, storage.IntField{Value: 31}, storage.StringField{Value: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	pred := execution.NewJoinPredicate(0, storage.Equals, 0)
	ok, err := pred.Eval(left, rightMatch)
	if err != nil {
		t.Fatal("Eval failed:", err)
	}
	if !ok {
		t.Error("Expected matching ids to satisfy the join predicate")
	}
	ok, err = pred.Eval(left, rightNoMatch)
	if err != nil {
		t.Fatal("Eval failed:", err)
	}
	if ok {
		t.Error("Expected differing ids to fail the join predicate")
	}
}
