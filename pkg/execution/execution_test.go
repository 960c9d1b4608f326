package execution_test

import (
	"testing"

	"dinodb/pkg/buffer"
	"dinodb/pkg/catalog"
	"dinodb/pkg/lock"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
	"dinodb/test/utils"
)

func peopleDesc() *storage.TupleDesc {
	return storage.NewTupleDesc(
		storage.FieldInfo{Type: storage.IntType, Name: "id"},
		storage.FieldInfo{Type: storage.StringType, Name: "name", Len: 16},
	)
}

func ordersDesc() *storage.TupleDesc {
	return storage.NewTupleDesc(
		storage.FieldInfo{Type: storage.IntType, Name: "personid"},
		storage.FieldInfo{Type: storage.StringType, Name: "item", Len: 16},
	)
}

// newTestCatalog opens a fresh catalog backed by a temp folder plus a
// buffer pool over it, with no write-ahead log.
func newTestCatalog(t *testing.T) (*catalog.Catalog, *buffer.Pool) {
	folder := utils.GetTempDbFolder(t)
	cat, err := catalog.Open(folder)
	if err != nil {
		t.Fatal("catalog.Open failed:", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	locks := lock.NewManager()
	t.Cleanup(locks.Close)
	bp := buffer.NewPool(cat, locks, nil, 50)
	return cat, bp
}

// insertRows commits one row per (intField, stringField) pair into table.
func insertRows(t *testing.T, bp *buffer.Pool, table *catalog.Table, desc *storage.TupleDesc, rows [][2]any) {
	tid := txid.New()
	for _, r := range rows {
		tup, err := storage.NewTuple(desc,
			storage.IntField{Value: r[0].(int32)},
			storage.StringField{Value: r[1].(string)})
		if err != nil {
			t.Fatal(err)
		}
		if err := bp.InsertTuple(tid, table.File.TableID(), tup); err != nil {
			t.Fatal("InsertTuple failed:", err)
		}
	}
	if err := bp.TransactionComplete(tid, true); err != nil {
		t.Fatal("TransactionComplete failed:", err)
	}
}

// setupPeople opens a fresh catalog with a single "people" table and
// inserts one row per (id, name) pair, all under a single committed
// transaction.
func setupPeople(t *testing.T, rows [][2]any) (*catalog.Table, *buffer.Pool) {
	cat, bp := newTestCatalog(t)
	table, err := cat.CreateTable("people", peopleDesc(), "id")
	if err != nil {
		t.Fatal("CreateTable failed:", err)
	}
	insertRows(t, bp, table, peopleDesc(), rows)
	return table, bp
}

// setupOrders adds an "orders" table to cat, sharing bp so joins
// across both tables can be driven through a single pool.
func setupOrders(t *testing.T, cat *catalog.Catalog, bp *buffer.Pool, rows [][2]any) *catalog.Table {
	table, err := cat.CreateTable("orders", ordersDesc(), "personid")
	if err != nil {
		t.Fatal("CreateTable failed:", err)
	}
	insertRows(t, bp, table, ordersDesc(), rows)
	return table
}

func drainAll(t *testing.T, it interface {
	Open() error
	HasNext() (bool, error)
	Next() (*storage.Tuple, error)
	Close() error
}) []*storage.Tuple {
	if err := it.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer it.Close()
	var out []*storage.Tuple
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatal("HasNext failed:", err)
		}
		if !has {
			break
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatal("Next failed:", err)
		}
		out = append(out, tup)
	}
	return out
}
