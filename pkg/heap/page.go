// Package heap implements the on-disk heap file storage format: fixed
// size pages holding a header bitmap of slot occupancy followed by
// fixed-width tuple slots, and the append-only file of such pages.
package heap

import (
	"bytes"
	"fmt"
	"io"

	"dinodb/pkg/config"
	"dinodb/pkg/dberr"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"

	"github.com/bits-and-blooms/bitset"
)

// Page is the in-memory image of one heap page: a header bitmap of slot
// occupancy, numSlots fixed-width tuple slots, and bookkeeping the
// buffer pool needs for NO-STEAL eviction and abort restoration.
type Page struct {
	id       storage.PageID
	desc     *storage.TupleDesc
	pageSize int

	numSlots   int
	headerSize int
	used       *bitset.BitSet
	slots      []*storage.Tuple // nil entry means the slot is unused

	dirty    bool
	dirtyTid txid.ID

	beforeImage []byte
}

// NumSlots returns ⌊(pageSize·8) / (tupleSize·8 + 1)⌋ for the given
// tuple size and page size, per the heap page layout formula.
func NumSlots(pageSize, tupleSize int) int {
	if tupleSize <= 0 {
		return 0
	}
	return (pageSize * 8) / (tupleSize*8 + 1)
}

// HeaderSize returns ⌈numSlots/8⌉ bytes.
func HeaderSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewPage constructs a fresh, all-empty page for the given id and schema.
func NewPage(id storage.PageID, desc *storage.TupleDesc) *Page {
	return newPage(id, desc, config.PageSize)
}

func newPage(id storage.PageID, desc *storage.TupleDesc, pageSize int) *Page {
	tupleSize := desc.Size()
	numSlots := NumSlots(pageSize, tupleSize)
	p := &Page{
		id:         id,
		desc:       desc,
		pageSize:   pageSize,
		numSlots:   numSlots,
		headerSize: HeaderSize(numSlots),
		used:       bitset.New(uint(numSlots)),
		slots:      make([]*storage.Tuple, numSlots),
	}
	p.setBeforeImageBytes(p.encode())
	return p
}

// Decode parses a byte image of exactly pageSize bytes into a Page.
func Decode(id storage.PageID, desc *storage.TupleDesc, data []byte) (*Page, error) {
	return decode(id, desc, data, config.PageSize)
}

func decode(id storage.PageID, desc *storage.TupleDesc, data []byte, pageSize int) (*Page, error) {
	if len(data) != pageSize {
		return nil, dberr.WrapDb("heap.Decode", fmt.Errorf("expected %d bytes, got %d", pageSize, len(data)))
	}
	p := newPage(id, desc, pageSize)

	for i := 0; i < p.numSlots; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if data[byteIdx]&(1<<bitIdx) != 0 {
			p.used.Set(uint(i))
		}
	}

	tupleSize := desc.Size()
	r := bytes.NewReader(data[p.headerSize:])
	for i := 0; i < p.numSlots; i++ {
		slotBytes := make([]byte, tupleSize)
		if _, err := io.ReadFull(r, slotBytes); err != nil {
			return nil, dberr.WrapDb("heap.Decode", err)
		}
		if !p.used.Test(uint(i)) {
			continue
		}
		t, err := decodeTuple(desc, slotBytes)
		if err != nil {
			return nil, dberr.WrapDb("heap.Decode", err)
		}
		t.RecordID = &storage.RecordID{PageID: id, SlotNo: i}
		p.slots[i] = t
	}
	p.setBeforeImageBytes(data)
	return p, nil
}

func decodeTuple(desc *storage.TupleDesc, data []byte) (*storage.Tuple, error) {
	r := bytes.NewReader(data)
	fields := make([]storage.Field, desc.NumFields())
	for i, fi := range desc.Fields {
		switch fi.Type {
		case storage.IntType:
			f, err := storage.DecodeIntField(r)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		case storage.StringType:
			f, err := storage.DecodeStringField(r, fi.Len)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		default:
			return nil, fmt.Errorf("heap: unknown field type %v", fi.Type)
		}
	}
	return &storage.Tuple{Desc: desc, Fields: fields}, nil
}

// Encode produces the canonical byte image of the page.
func (p *Page) Encode() []byte {
	return p.encode()
}

func (p *Page) encode() []byte {
	buf := make([]byte, p.pageSize)
	for i := 0; i < p.numSlots; i++ {
		if p.used.Test(uint(i)) {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	tupleSize := p.desc.Size()
	for i := 0; i < p.numSlots; i++ {
		slotOff := p.headerSize + i*tupleSize
		t := p.slots[i]
		if t == nil {
			continue
		}
		w := sliceWriter{buf: buf[slotOff : slotOff+tupleSize]}
		for fi, f := range t.Fields {
			width := t.Desc.Width(fi)
			_ = f.Encode(&w, width)
		}
	}
	return buf
}

// sliceWriter writes sequentially into a fixed backing slice.
type sliceWriter struct {
	buf []byte
	off int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.off:], p)
	w.off += n
	return n, nil
}

// ID returns the page's identifier.
func (p *Page) ID() storage.PageID { return p.id }

// TupleDesc returns the page's schema.
func (p *Page) TupleDesc() *storage.TupleDesc { return p.desc }

// NumSlots returns the number of slots the page holds, used or not.
func (p *Page) NumSlots() int { return p.numSlots }

// IsSlotUsed reports whether slot i currently holds a tuple.
func (p *Page) IsSlotUsed(i int) bool {
	return p.used.Test(uint(i))
}

// MarkSlotUsed sets or clears slot i's occupancy bit.
func (p *Page) MarkSlotUsed(i int, used bool) {
	if used {
		p.used.Set(uint(i))
	} else {
		p.used.Clear(uint(i))
	}
}

// InsertTuple stamps t's record id with (p.id, chosenSlot), writes it
// into the first free slot, and marks that slot's bit used. Fails if
// t's schema doesn't match the page's, or the page has no free slot.
func (p *Page) InsertTuple(t *storage.Tuple) error {
	if !t.Desc.Equals(p.desc) {
		return dberr.NewDb("heap.InsertTuple: schema mismatch")
	}
	for i := 0; i < p.numSlots; i++ {
		if p.used.Test(uint(i)) {
			continue
		}
		rid := &storage.RecordID{PageID: p.id, SlotNo: i}
		t.RecordID = rid
		p.slots[i] = t
		p.used.Set(uint(i))
		return nil
	}
	return dberr.NewDb("heap.InsertTuple: no free slot")
}

// DeleteTuple clears the slot t's record id refers to. Fails if the
// record id doesn't reference this page or the slot isn't in use.
func (p *Page) DeleteTuple(t *storage.Tuple) error {
	if t.RecordID == nil || t.RecordID.PageID != p.id {
		return dberr.NewDb("heap.DeleteTuple: record id does not reference this page")
	}
	slot := t.RecordID.SlotNo
	if slot < 0 || slot >= p.numSlots || !p.used.Test(uint(slot)) {
		return dberr.NewDb("heap.DeleteTuple: slot not in use")
	}
	p.used.Clear(uint(slot))
	p.slots[slot] = nil
	return nil
}

// Iterator returns a lazy, finite, non-restartable sequence over the
// page's used tuples in slot order. Call Iterator again for a fresh pass.
func (p *Page) Iterator() func() (*storage.Tuple, bool) {
	next := 0
	return func() (*storage.Tuple, bool) {
		for next < p.numSlots {
			i := next
			next++
			if p.used.Test(uint(i)) {
				return p.slots[i], true
			}
		}
		return nil, false
	}
}

// MarkDirty sets or clears the page's dirty flag. When flag is true,
// tid is recorded as the last writer; dirty pages report that tid from
// IsDirty until the owning transaction commits or aborts.
func (p *Page) MarkDirty(flag bool, tid txid.ID) {
	p.dirty = flag
	if flag {
		p.dirtyTid = tid
	}
}

// IsDirty reports whether the page is dirty, and if so, which
// transaction last wrote it.
func (p *Page) IsDirty() (txid.ID, bool) {
	return p.dirtyTid, p.dirty
}

// GetBeforeImage returns a page decoded from the saved before-image
// snapshot, representing the page's contents at the start of the
// current modification.
func (p *Page) GetBeforeImage() (*Page, error) {
	return decode(p.id, p.desc, p.beforeImage, p.pageSize)
}

// SetBeforeImage captures the page's current byte image as the new
// before-image snapshot. Called at commit time.
func (p *Page) SetBeforeImage() {
	p.setBeforeImageBytes(p.encode())
}

func (p *Page) setBeforeImageBytes(data []byte) {
	p.beforeImage = append([]byte(nil), data...)
}
