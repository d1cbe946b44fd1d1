// Package deps extracts the relation dependency graph from a tree of SQL
// files.
package deps

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/sqlparse"
)

// VersionTag is mixed into every file hash. Changing it invalidates all
// cached edges.
const VersionTag = "deps/v2"

// Config configures an Extractor.
type Config struct {
	SQLPath string
	Exclude []string
	Quotes  sqlparse.Quotes
	Cache   Cache
	Workers int
	Logger  *slog.Logger
}

// Extractor walks SQL files and computes dependency edges.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// Stats reports how an extraction was served.
type Stats struct {
	Files  int
	Cached int
	Parsed int
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Cache == nil {
		cfg.Cache = NoCache{}
	}
	if cfg.Quotes.Start == "" {
		cfg.Quotes = sqlparse.DefaultQuotes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Extractor{cfg: cfg, logger: cfg.Logger}
}

type sqlFile struct {
	rel     string
	dir     string
	stem    string
	content []byte
	hash    string
}

// Extract returns the deduplicated edges of every SQL file under the SQL
// path, in file walk order.
func (e *Extractor) Extract(ctx context.Context) ([]core.Edge, error) {
	edges, _, err := e.ExtractWithStats(ctx)
	return edges, err
}

// ExtractWithStats is Extract plus cache statistics.
func (e *Extractor) ExtractWithStats(ctx context.Context) ([]core.Edge, Stats, error) {
	var stats Stats

	files, err := e.discover()
	if err != nil {
		return nil, stats, err
	}
	stats.Files = len(files)

	cached, err := e.cfg.Cache.Load(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("load dependency cache: %w", err)
	}
	byHash := make(map[string][]core.Edge)
	for _, edge := range cached {
		byHash[edge.Hash] = append(byHash[edge.Hash], edge)
	}

	results := make([][]core.Edge, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, f := range files {
		if hit, ok := byHash[f.hash]; ok {
			results[i] = hit
			stats.Cached++
			continue
		}
		stats.Parsed++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.parseFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	seen := make(map[core.Edge]struct{})
	var edges []core.Edge
	for _, res := range results {
		for _, edge := range res {
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			edges = append(edges, edge)
		}
	}

	if err := e.cfg.Cache.Save(ctx, edges); err != nil {
		return nil, stats, fmt.Errorf("save dependency cache: %w", err)
	}
	e.logger.Debug("dependencies extracted",
		slog.Int("files", stats.Files),
		slog.Int("cached", stats.Cached),
		slog.Int("parsed", stats.Parsed),
		slog.Int("edges", len(edges)))

	return withoutSentinels(edges), stats, nil
}

// discover lists the non-empty SQL files under the SQL path.
func (e *Extractor) discover() ([]sqlFile, error) {
	root := e.cfg.SQLPath
	var files []sqlFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && slices.Contains(e.cfg.Exclude, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, sqlFile{
			rel:     rel,
			dir:     filepath.Base(filepath.Dir(path)),
			stem:    strings.TrimSuffix(d.Name(), ".sql"),
			content: content,
			hash:    FileHash(rel, content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// FileHash is the cache key of a file.
func FileHash(rel string, content []byte) string {
	h := md5.New()
	h.Write([]byte(VersionTag))
	h.Write([]byte(rel))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// parseFile computes the edges of one file. A file without edges yields a
// sentinel so that the next run still counts it as cached.
func (e *Extractor) parseFile(f sqlFile) []core.Edge {
	depSchema, depTable := f.dir, f.stem
	var edges []core.Edge

	for _, stmt := range sqlparse.Parse(string(f.content), e.cfg.Quotes) {
		md, _ := FirstMetadata(stmt.Comments())
		schema, table := depSchema, depTable
		if md.NodeID != "" {
			if s, t, ok := splitRelation(md.NodeID); ok {
				e.logger.Info("node_id overrides file location",
					slog.String("file", f.rel), slog.String("node", s+"."+t))
				schema, table = s, t
			} else {
				e.logger.Warn("ignoring malformed node_id", slog.String("file", f.rel), slog.String("node_id", md.NodeID))
			}
		}

		for _, src := range StatementSources(stmt, md) {
			edges = append(edges, core.Edge{
				Hash:            f.hash,
				SourceSchema:    src[0],
				SourceTable:     src[1],
				DependentSchema: schema,
				DependentTable:  table,
			})
		}
	}

	if len(edges) == 0 {
		edges = append(edges, core.Edge{Hash: f.hash, DependentSchema: depSchema, DependentTable: depTable})
	}
	return edges
}

// StatementSources returns the (schema, table) pairs a statement depends on
// after applying its metadata.
func StatementSources(stmt *sqlparse.Statement, md Metadata) [][2]string {
	var set [][2]string
	add := func(schema, table string) {
		p := [2]string{schema, table}
		if !slices.Contains(set, p) {
			set = append(set, p)
		}
	}
	addAll := func(list []string) {
		for _, d := range list {
			if s, t, ok := splitRelation(d); ok {
				add(s, t)
			}
		}
	}

	if md.HasOverride {
		addAll(md.OverrideDependencies)
		return set
	}

	for _, src := range stmt.Sources() {
		schema, ok := src.Schema()
		if !ok || schema == "" {
			continue
		}
		add(strings.ToLower(schema), strings.ToLower(src.Relation()))
	}
	addAll(md.AdditionalDependencies)
	for _, d := range md.IgnoreDependencies {
		if s, t, ok := splitRelation(d); ok {
			set = slices.DeleteFunc(set, func(p [2]string) bool { return p == [2]string{s, t} })
		}
	}
	return set
}

func withoutSentinels(edges []core.Edge) []core.Edge {
	out := make([]core.Edge, 0, len(edges))
	for _, e := range edges {
		if !e.IsSentinel() {
			out = append(out, e)
		}
	}
	return out
}
