package heap

import (
	"os"
	"testing"

	"dinodb/pkg/lock"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// fakeSource is a minimal PageSource over a *File with no locking, enough
// to drive File/FileIterator without pulling in pkg/buffer. It caches the
// pages it hands out so that mutations an insert/delete makes to a page
// are visible to later GetPage calls for the same page, the way a real
// buffer pool's cache would keep them visible until flushed.
type fakeSource struct {
	file  *File
	pages map[storage.PageID]*Page
}

func (s *fakeSource) GetPage(tid txid.ID, pid storage.PageID, perm lock.Permissions) (*Page, error) {
	if s.pages == nil {
		s.pages = make(map[storage.PageID]*Page)
	}
	if p, ok := s.pages[pid]; ok {
		return p, nil
	}
	if int64(pid.PageNum) >= s.file.pager.NumPages() {
		newPN, err := s.file.pager.ExtendFile()
		if err != nil {
			return nil, err
		}
		p := newPage(storage.PageID{TableID: s.file.tableID, PageNum: int(newPN)}, s.file.desc, 4096)
		s.pages[pid] = p
		return p, nil
	}
	p, err := s.file.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	s.pages[pid] = p
	return p, nil
}

func newTempFile(t *testing.T) (*File, *fakeSource) {
	tmp, err := os.CreateTemp("", "*.heap")
	if err != nil {
		t.Fatal(err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	t.Cleanup(func() { _ = os.Remove(name) })

	f, err := Open(name, testDesc())
	if err != nil {
		t.Fatal("Open failed:", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f, &fakeSource{file: f}
}

func TestFileTableIDStable(t *testing.T) {
	f, _ := newTempFile(t)
	if f.TableID() == 0 {
		t.Error("Expected a nonzero table id")
	}
	// Re-opening the same path must hash to the same table id.
	f2, err := Open(f.pager.GetFileName(), testDesc())
	if err != nil {
		t.Fatal("Re-open failed:", err)
	}
	defer f2.Close()
	if f2.TableID() != f.TableID() {
		t.Errorf("Expected re-opening the same file to yield the same table id, got %d vs %d", f2.TableID(), f.TableID())
	}
}

func TestFileInsertExtendsFile(t *testing.T) {
	f, src := newTempFile(t)
	tid := txid.New()
	tup := mustTuple(t, testDesc(), 1, "alice")
	pages, err := f.InsertTuple(tid, tup, src)
	if err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected InsertTuple to dirty 1 page, got %d", len(pages))
	}
	if err := f.WritePage(pages[0]); err != nil {
		t.Fatal("WritePage failed:", err)
	}
	if f.NumPages() != 1 {
		t.Errorf("Expected file to have grown to 1 page, got %d", f.NumPages())
	}
}

func TestFileIteratorScansAllInsertedTuples(t *testing.T) {
	f, src := newTempFile(t)
	tid := txid.New()
	desc := testDesc()
	const n = 5
	for i := 0; i < n; i++ {
		pages, err := f.InsertTuple(tid, mustTuple(t, desc, int32(i), "row"), src)
		if err != nil {
			t.Fatalf("InsertTuple %d failed: %s", i, err)
		}
		for _, p := range pages {
			if err := f.WritePage(p); err != nil {
				t.Fatal("WritePage failed:", err)
			}
		}
	}

	it := f.Iterator(tid, src)
	if err := it.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer it.Close()

	count := 0
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatal("HasNext failed:", err)
		}
		if !has {
			break
		}
		if _, err := it.Next(); err != nil {
			t.Fatal("Next failed:", err)
		}
		count++
	}
	if count != n {
		t.Errorf("Expected to scan %d tuples, got %d", n, count)
	}
}

func TestFileIteratorNextWithoutHasNext(t *testing.T) {
	f, src := newTempFile(t)
	tid := txid.New()
	if _, err := f.InsertTuple(tid, mustTuple(t, testDesc(), 1, "alice"), src); err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	it := f.Iterator(tid, src)
	if err := it.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer it.Close()
	if _, err := it.Next(); err != nil {
		t.Fatal("Next without a preceding HasNext should still return the buffered tuple:", err)
	}
	if _, err := it.Next(); err == nil {
		t.Error("Expected Next to fail with no more tuples")
	}
}

func TestFileIteratorRewind(t *testing.T) {
	f, src := newTempFile(t)
	tid := txid.New()
	if _, err := f.InsertTuple(tid, mustTuple(t, testDesc(), 1, "alice"), src); err != nil {
		t.Fatal("InsertTuple failed:", err)
	}
	it := f.Iterator(tid, src)
	if err := it.Open(); err != nil {
		t.Fatal("Open failed:", err)
	}
	defer it.Close()
	if _, err := it.Next(); err != nil {
		t.Fatal("Next failed:", err)
	}
	if has, _ := it.HasNext(); has {
		t.Fatal("Expected iterator to be drained before rewind")
	}
	if err := it.Rewind(); err != nil {
		t.Fatal("Rewind failed:", err)
	}
	if has, err := it.HasNext(); err != nil || !has {
		t.Fatalf("Expected a tuple after rewind, has=%v err=%v", has, err)
	}
}
