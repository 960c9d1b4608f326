package storage

import "fmt"

// RecordID locates a specific tuple slot on disk: a page plus a slot
// number within that page. Comparable, so it is usable as a map key
// directly (the buffer pool and heap page lean on this).
type RecordID struct {
	PageID PageID
	SlotNo int
}

func (rid RecordID) String() string {
	return fmt.Sprintf("%s/slot%d", rid.PageID, rid.SlotNo)
}
