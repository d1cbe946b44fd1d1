package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
)

// LoadDependencyCache returns every cached edge.
func (s *SQLiteStore) LoadDependencyCache(ctx context.Context) ([]core.Edge, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT md5, source_schema, source_table, dependent_schema, dependent_table
		FROM dependency_cache
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependency cache: %w", err)
	}
	defer rows.Close()

	var edges []core.Edge
	for rows.Next() {
		var e core.Edge
		if err := rows.Scan(&e.Hash, &e.SourceSchema, &e.SourceTable, &e.DependentSchema, &e.DependentTable); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// SaveDependencyCache replaces the cache with edges.
func (s *SQLiteStore) SaveDependencyCache(ctx context.Context, edges []core.Edge) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dependency_cache`); err != nil {
		return fmt.Errorf("failed to clear dependency cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dependency_cache (md5, source_schema, source_table, dependent_schema, dependent_table)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.Hash, e.SourceSchema, e.SourceTable, e.DependentSchema, e.DependentTable); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dependency cache: %w", err)
	}
	s.logger.Debug("dependency cache saved", slog.Int("edges", len(edges)))
	return nil
}
