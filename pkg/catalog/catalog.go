// Package catalog tracks the set of tables known to the database:
// their names, on-disk heap files, primary-key field, and schemas.
package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"dinodb/pkg/dberr"
	"dinodb/pkg/heap"
	"dinodb/pkg/storage"
)

var alphanumeric = regexp.MustCompile(`\W`)

// Table bundles a heap file with the catalog metadata describing it.
type Table struct {
	Name    string
	File    *heap.File
	PrimKey string
}

// Catalog is the database's table registry: one basepath holding one
// heap file per table, named after the table.
type Catalog struct {
	mu       sync.RWMutex
	basepath string
	byName   map[string]*Table
	byID     map[int64]*Table
}

// Open opens (creating if necessary) the catalog rooted at folder.
func Open(folder string) (*Catalog, error) {
	if err := os.MkdirAll(folder, 0775); err != nil {
		return nil, err
	}
	return &Catalog{
		basepath: folder,
		byName:   make(map[string]*Table),
		byID:     make(map[int64]*Table),
	}, nil
}

// BasePath returns the catalog's root directory.
func (c *Catalog) BasePath() string { return c.basepath }

// CreateTable opens (creating on disk if necessary) a heap file for a
// new table with the given schema and primary key field name.
func (c *Catalog) CreateTable(name string, desc *storage.TupleDesc, primKey string) (*Table, error) {
	if alphanumeric.MatchString(name) {
		return nil, dberr.NewDb("catalog.CreateTable: table name must be alphanumeric")
	}
	if _, err := desc.FieldNameToIndex(primKey); err != nil {
		return nil, dberr.WrapDb("catalog.CreateTable", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byName[name]; ok {
		return nil, dberr.NewDb("catalog.CreateTable: table already exists: " + name)
	}

	path := filepath.Join(c.basepath, name)
	f, err := heap.Open(path, desc)
	if err != nil {
		return nil, err
	}
	t := &Table{Name: name, File: f, PrimKey: primKey}
	c.byName[name] = t
	c.byID[f.TableID()] = t
	return t, nil
}

// GetTableByName returns the table registered under name.
func (c *Catalog) GetTableByName(name string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	if !ok {
		return nil, dberr.WrapDb("catalog.GetTableByName", dberr.ErrNoSuchElement)
	}
	return t, nil
}

// GetTableByID returns the table whose heap file carries the given id.
func (c *Catalog) GetTableByID(id int64) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return nil, dberr.WrapDb("catalog.GetTableByID", dberr.ErrNoSuchElement)
	}
	return t, nil
}

// Tables returns every registered table, keyed by name.
func (c *Catalog) Tables() map[string]*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Table, len(c.byName))
	for k, v := range c.byName {
		out[k] = v
	}
	return out
}

// Close closes every table's heap file.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, t := range c.byName {
		if err := t.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
