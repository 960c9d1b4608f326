// Package pager is the raw disk-block substrate a heap file reads and
// writes pages through. It owns no cache and no locks beyond what's
// needed to serialize file-length extension; page residency, eviction,
// and dirty tracking belong to pkg/buffer, and page locking to pkg/lock.
package pager

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"dinodb/pkg/config"

	"github.com/ncw/directio"
)

// Pagesize is the number of bytes in one page. It matches
// directio.BlockSize so pages can be read and written with O_DIRECT.
const Pagesize int64 = directio.BlockSize

func init() {
	if Pagesize != int64(config.PageSize) {
		panic("pager: directio.BlockSize no longer matches config.PageSize")
	}
}

// ErrCorruptFile is returned by Open when the backing file's length is
// not a multiple of the page size.
var ErrCorruptFile = errors.New("pager: file length is not a multiple of the page size")

// ErrPageOutOfRange is returned by ReadPageAt for a page number at or
// beyond the current end of the file.
var ErrPageOutOfRange = errors.New("pager: page number out of range")

// Pager manages a single on-disk file as a sequence of fixed-size pages.
type Pager struct {
	file     *os.File
	numPages int64
	extendMu sync.Mutex // serializes file-length extension (ExtendFile)
}

// New opens (creating if necessary) a pager backed by the file at filePath.
func New(filePath string) (*Pager, error) {
	pager := &Pager{}
	if err := pager.Open(filePath); err != nil {
		return nil, err
	}
	return pager, nil
}

// Open (re-)initializes the pager against the database file at filePath,
// creating it if it doesn't already exist.
func (pager *Pager) Open(filePath string) error {
	if idx := strings.LastIndex(filePath, "/"); idx != -1 {
		if err := os.MkdirAll(filePath[:idx], 0775); err != nil {
			return err
		}
	}
	file, err := directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	if info.Size()%Pagesize != 0 {
		file.Close()
		return ErrCorruptFile
	}
	pager.file = file
	pager.numPages = info.Size() / Pagesize
	return nil
}

// GetFileName returns the path of the pager's backing file.
func (pager *Pager) GetFileName() string {
	return pager.file.Name()
}

// NumPages returns the number of pages currently backed by the file.
func (pager *Pager) NumPages() int64 {
	return pager.numPages
}

// ReadPageAt reads page pagenum's raw bytes. Fails with ErrPageOutOfRange
// if pagenum is beyond the current end of the file.
func (pager *Pager) ReadPageAt(pagenum int64) ([]byte, error) {
	if pagenum < 0 || pagenum >= pager.numPages {
		return nil, ErrPageOutOfRange
	}
	buf := directio.AlignedBlock(int(Pagesize))
	if _, err := pager.file.Seek(pagenum*Pagesize, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(pager.file, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePageAt synchronously writes data (exactly Pagesize bytes) to
// page pagenum's offset in the file. data is copied into a freshly
// aligned block first: O_DIRECT requires the write buffer itself to be
// aligned, and callers (heap.Page.Encode) hand back a plain make([]byte),
// not an aligned one.
func (pager *Pager) WritePageAt(pagenum int64, data []byte) error {
	if int64(len(data)) != Pagesize {
		return errors.New("pager: page data must be exactly Pagesize bytes")
	}
	aligned := directio.AlignedBlock(int(Pagesize))
	copy(aligned, data)
	_, err := pager.file.WriteAt(aligned, pagenum*Pagesize)
	return err
}

// ExtendFile appends one freshly zeroed page to the file, extending its
// length by Pagesize, and returns the new page's number. Extension is
// serialized across callers so concurrent inserts never tear the file.
func (pager *Pager) ExtendFile() (int64, error) {
	pager.extendMu.Lock()
	defer pager.extendMu.Unlock()
	pagenum := pager.numPages
	zero := directio.AlignedBlock(int(Pagesize))
	if err := pager.WritePageAt(pagenum, zero); err != nil {
		return 0, err
	}
	pager.numPages++
	return pagenum, nil
}

// Close closes the pager's backing file. Callers must flush any pages
// they're responsible for before calling Close.
func (pager *Pager) Close() error {
	return pager.file.Close()
}
