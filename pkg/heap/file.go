package heap

import (
	"errors"
	"path/filepath"

	"dinodb/pkg/dberr"
	"dinodb/pkg/lock"
	"dinodb/pkg/pager"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"

	"github.com/cespare/xxhash"
)

// PageSource is how a heap file reaches the page cache: get a page
// under the requested permission, blocking on (and possibly aborting
// via) the page lock. *buffer.Pool implements this interface; heap
// does not import buffer to avoid a dependency cycle.
type PageSource interface {
	GetPage(tid txid.ID, pid storage.PageID, perm lock.Permissions) (*Page, error)
}

// File is an append-only file of heap pages: table storage as an
// unordered page sequence.
type File struct {
	pager   *pager.Pager
	desc    *storage.TupleDesc
	tableID int64
}

// Open opens (creating if needed) a heap file backed by path, storing
// tuples conforming to desc. The file's table id is a stable hash of
// its absolute path.
func Open(path string, desc *storage.TupleDesc) (*File, error) {
	p, err := pager.New(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &File{
		pager:   p,
		desc:    desc,
		tableID: int64(xxhash.Sum64String(abs)),
	}, nil
}

// TableID returns the stable id derived from this file's absolute path.
func (f *File) TableID() int64 { return f.tableID }

// TupleDesc returns the schema of tuples stored in this file.
func (f *File) TupleDesc() *storage.TupleDesc { return f.desc }

// NumPages returns the number of pages currently in the file.
func (f *File) NumPages() int64 { return f.pager.NumPages() }

// Close closes the file's underlying pager.
func (f *File) Close() error { return f.pager.Close() }

// ReadPage seeks to pid's offset and decodes exactly one page. Fails if
// the byte range lies past the end of the file.
func (f *File) ReadPage(pid storage.PageID) (*Page, error) {
	data, err := f.pager.ReadPageAt(int64(pid.PageNum))
	if err != nil {
		if errors.Is(err, pager.ErrPageOutOfRange) {
			return nil, dberr.WrapDb("heap.ReadPage", err)
		}
		return nil, err
	}
	return Decode(pid, f.desc, data)
}

// WritePage seeks to page's offset and synchronously writes its
// encoded bytes.
func (f *File) WritePage(page *Page) error {
	return f.pager.WritePageAt(int64(page.ID().PageNum), page.Encode())
}

// InsertTuple scans existing pages in order via src (requesting
// exclusive permission per page) and inserts t into the first page
// with a free slot. If none has room, a freshly zeroed page is
// appended to the file and t is inserted there. Returns the pages
// that were dirtied. File extension is serialized by the underlying
// pager so concurrent inserts never tear the file's length.
func (f *File) InsertTuple(tid txid.ID, t *storage.Tuple, src PageSource) ([]*Page, error) {
	numPages := f.pager.NumPages()
	for pn := int64(0); pn < numPages; pn++ {
		pid := storage.PageID{TableID: f.tableID, PageNum: int(pn)}
		page, err := src.GetPage(tid, pid, lock.ReadWrite)
		if err != nil {
			return nil, err
		}
		if err := page.InsertTuple(t); err == nil {
			return []*Page{page}, nil
		}
	}

	newPN, err := f.pager.ExtendFile()
	if err != nil {
		return nil, dberr.WrapDb("heap.InsertTuple", err)
	}
	pid := storage.PageID{TableID: f.tableID, PageNum: int(newPN)}
	page, err := src.GetPage(tid, pid, lock.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := page.InsertTuple(t); err != nil {
		return nil, err
	}
	return []*Page{page}, nil
}

// DeleteTuple requests the page containing t under exclusive
// permission and deletes it there.
func (f *File) DeleteTuple(tid txid.ID, t *storage.Tuple, src PageSource) ([]*Page, error) {
	if t.RecordID == nil {
		return nil, dberr.NewDb("heap.DeleteTuple: tuple has no record id")
	}
	page, err := src.GetPage(tid, t.RecordID.PageID, lock.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := page.DeleteTuple(t); err != nil {
		return nil, err
	}
	return []*Page{page}, nil
}

// iterState is the FileIterator's explicit state machine position.
type iterState int

const (
	iterCreated iterState = iota
	iterOpened
	iterDrained
	iterClosed
)

// FileIterator produces a finite lazy sequence of all tuples across
// all of a heap file's pages, in page order, obtaining each page under
// shared permission via src. It does not prefetch beyond the current
// page and does not release previously visited page locks: released
// locks would violate strict two-phase locking.
type FileIterator struct {
	file  *File
	tid   txid.ID
	src   PageSource
	state iterState

	pageNum int
	pageIt  func() (*storage.Tuple, bool)
	pending *storage.Tuple
}

// Iterator returns a fresh, unopened FileIterator over f.
func (f *File) Iterator(tid txid.ID, src PageSource) *FileIterator {
	return &FileIterator{file: f, tid: tid, src: src}
}

// TupleDesc returns the schema of tuples this iterator yields.
func (it *FileIterator) TupleDesc() *storage.TupleDesc { return it.file.desc }

// Open acquires page 0 under shared permission and positions the
// iterator at its first tuple. On a file with no pages it acquires
// nothing and the iterator starts out drained.
func (it *FileIterator) Open() error {
	it.pageNum = 0
	if it.file.pager.NumPages() == 0 {
		it.state = iterDrained
		return nil
	}
	it.state = iterOpened
	return it.loadPage(0)
}

func (it *FileIterator) loadPage(pageNum int) error {
	pid := storage.PageID{TableID: it.file.tableID, PageNum: pageNum}
	page, err := it.src.GetPage(it.tid, pid, lock.ReadOnly)
	if err != nil {
		return err
	}
	it.pageIt = page.Iterator()
	return nil
}

// HasNext reports whether another tuple is available, advancing to
// later pages as the current one is exhausted. Idempotent.
func (it *FileIterator) HasNext() (bool, error) {
	if it.state == iterClosed {
		return false, dberr.NewDb("heap.FileIterator: HasNext called on closed iterator")
	}
	if it.state != iterOpened {
		return false, nil
	}
	if it.pending != nil {
		return true, nil
	}
	for {
		t, ok := it.pageIt()
		if ok {
			it.pending = t
			return true, nil
		}
		it.pageNum++
		if int64(it.pageNum) >= it.file.pager.NumPages() {
			it.state = iterDrained
			return false, nil
		}
		if err := it.loadPage(it.pageNum); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple. It is safe to call without a preceding
// HasNext (the buffered tuple, if any, is returned), but fails with
// dberr.ErrNoSuchElement once the iterator is exhausted.
func (it *FileIterator) Next() (*storage.Tuple, error) {
	if it.pending != nil {
		t := it.pending
		it.pending = nil
		return t, nil
	}
	has, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, dberr.ErrNoSuchElement
	}
	t := it.pending
	it.pending = nil
	return t, nil
}

// Rewind returns the iterator to the state just after Open: positioned
// at page 0's first tuple.
func (it *FileIterator) Rewind() error {
	it.pending = nil
	return it.Open()
}

// Close releases the iterator's own state. It does not release any
// page locks: those live until transaction completion.
func (it *FileIterator) Close() error {
	it.pageIt = nil
	it.pending = nil
	it.state = iterClosed
	return nil
}
