package utils

import (
	"math/rand"
	"os"
	"testing"
)

// Mod vals by this value to prevent hardcoding tests
// + 1 is necessary because rand.Int63n(_) can return 0
var Salt int64 = rand.Int63n(1000) + 1

// EnsureCleanup registers fn to run when t (and any subtests) finish,
// regardless of pass/fail/panic.
func EnsureCleanup(t *testing.T, fn func()) {
	t.Cleanup(fn)
}

// GetTempDbFile creates a random file in the test's directory to be used for testing,
// returning the file's name. Once the test is done running, the file is deleted.
func GetTempDbFile(t *testing.T) string {
	// file will be created in OS's default temporary directory
	tmpfile, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatal(err)
	}

	// Since os.CreateTemp automatically opens the file, we need to close it
	_ = tmpfile.Close()

	EnsureCleanup(t, func() {
		_ = os.Remove(tmpfile.Name())
	})
	return tmpfile.Name()
}

// GetTempDbFolder creates a fresh empty directory for a test database
// (catalog + heap files + write-ahead log), removing it when the test ends.
func GetTempDbFolder(t *testing.T) string {
	dir, err := os.MkdirTemp("", "dinodb-*")
	if err != nil {
		t.Fatal(err)
	}
	EnsureCleanup(t, func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
