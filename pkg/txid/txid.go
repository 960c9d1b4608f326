// Package txid identifies transactions uniquely across the engine, the
// way the teacher's concurrency package keys transactions by client uuid.
package txid

import "github.com/google/uuid"

// ID identifies one transaction for the lifetime of the process.
type ID uuid.UUID

// New returns a fresh transaction id.
func New() ID {
	return ID(uuid.New())
}

// String renders the id the way log records expect it.
func (id ID) String() string {
	return uuid.UUID(id).String()
}
