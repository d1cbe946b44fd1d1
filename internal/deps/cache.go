package deps

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// Cache persists edges between runs, keyed by file hash.
type Cache interface {
	Load(ctx context.Context) ([]core.Edge, error)
	Save(ctx context.Context, edges []core.Edge) error
}

// Cache backend names.
const (
	CacheNone       = "none"
	CacheFilesystem = "filesystem"
	CacheSQLite     = "sqlite"
)

// NewCache returns the cache backend for typ. store is used by the sqlite
// backend and may be nil otherwise.
func NewCache(typ, location string, store core.Store) (Cache, error) {
	switch typ {
	case "", CacheNone:
		return NoCache{}, nil
	case CacheFilesystem:
		if location == "" {
			return nil, fmt.Errorf("deps_cache.location is required for the %s cache", CacheFilesystem)
		}
		return &CSVCache{Path: location}, nil
	case CacheSQLite:
		if store == nil {
			return nil, fmt.Errorf("the %s dependency cache needs a state store", CacheSQLite)
		}
		return &StoreCache{Store: store}, nil
	}
	return nil, fmt.Errorf("unknown deps_cache.type %q (available: %s, %s, %s)", typ, CacheNone, CacheFilesystem, CacheSQLite)
}

// NoCache never remembers anything.
type NoCache struct{}

// Load implements Cache.
func (NoCache) Load(context.Context) ([]core.Edge, error) { return nil, nil }

// Save implements Cache.
func (NoCache) Save(context.Context, []core.Edge) error { return nil }

var csvHeader = []string{"md5", "source_schema", "source_table", "dependent_schema", "dependent_table"}

// CSVCache stores edges in a CSV file.
type CSVCache struct {
	Path string
}

// Load implements Cache. A missing file is an empty cache.
func (c *CSVCache) Load(_ context.Context) ([]core.Edge, error) {
	f, err := os.Open(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dependency cache: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dependency cache %s: %w", c.Path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, h := range csvHeader {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("dependency cache %s: missing column %q", c.Path, h)
		}
	}

	var edges []core.Edge
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dependency cache %s: %w", c.Path, err)
		}
		edges = append(edges, core.Edge{
			Hash:            rec[col["md5"]],
			SourceSchema:    rec[col["source_schema"]],
			SourceTable:     rec[col["source_table"]],
			DependentSchema: rec[col["dependent_schema"]],
			DependentTable:  rec[col["dependent_table"]],
		})
	}
	return edges, nil
}

// Save implements Cache. The file is replaced atomically.
func (c *CSVCache) Save(_ context.Context, edges []core.Edge) error {
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".deps-*.csv")
	if err != nil {
		return fmt.Errorf("create dependency cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write(csvHeader)
	for _, e := range edges {
		_ = w.Write([]string{e.Hash, e.SourceSchema, e.SourceTable, e.DependentSchema, e.DependentTable})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write dependency cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write dependency cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("replace dependency cache: %w", err)
	}
	return nil
}

// StoreCache keeps edges in the state store.
type StoreCache struct {
	Store core.Store
}

// Load implements Cache.
func (c *StoreCache) Load(ctx context.Context) ([]core.Edge, error) {
	return c.Store.LoadDependencyCache(ctx)
}

// Save implements Cache.
func (c *StoreCache) Save(ctx context.Context, edges []core.Edge) error {
	return c.Store.SaveDependencyCache(ctx, edges)
}
