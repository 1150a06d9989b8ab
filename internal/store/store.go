// store.go
//
// Plant Tracer object and record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of odb.
// odb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// odb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with odb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package store provides the document tables the repositories are built on.
//
// A Backend stores opaque JSON bodies keyed by a primary key, with optional
// non-unique secondary indexes and a version attribute used for conditional
// replacement. Uniqueness of non-key attributes is not a Backend concern: the
// repositories model it with marker tables written by conditional puts.
package store

import (
	"context"
	"fmt"
	"iter"
	"regexp"

	"go.uber.org/zap"
)

// Item is one stored document as seen by a Backend.
type Item struct {
	Key     string
	Version int64
	// Indexes maps index name to value. Empty values are not indexed.
	Indexes map[string]string
	Body    []byte
}

// TableSpec declares a logical table and the secondary indexes it supports.
type TableSpec struct {
	Name    string
	Indexes []string
}

// HasIndex reports whether the table declares the named index.
func (s TableSpec) HasIndex(name string) bool {
	for _, idx := range s.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

// Backend is the primitive document table abstraction.
//
// Single-item operations are atomic. Nothing spans items: callers needing
// multi-item consistency check-then-act and accept the race.
type Backend interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// EnsureTables creates missing physical tables and indexes.
	EnsureTables(ctx context.Context, specs []TableSpec) error

	// Put writes item. With requireAbsent it fails with types.ErrAlreadyExists
	// when the key is present.
	Put(ctx context.Context, table string, item Item, requireAbsent bool) error

	// Swap replaces item only when the stored version equals expected. It fails
	// with types.ErrVersionConflict otherwise, including when the key is absent.
	Swap(ctx context.Context, table string, item Item, expected int64) error

	// Get returns nil and no error when the key is absent.
	Get(ctx context.Context, table, key string) (*Item, error)

	// Query returns the items whose index equals value.
	Query(ctx context.Context, table, index, value string) ([]Item, error)

	// Delete is idempotent.
	Delete(ctx context.Context, table, key string) error

	// Scan lazily yields every item in the table.
	Scan(ctx context.Context, table string) iter.Seq2[Item, error]

	Close() error
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Store is the process-wide handle the repositories share. It namespaces
// every table with a prefix so test, staging and production sets can coexist.
type Store struct {
	backend Backend
	prefix  string
	logger  *zap.Logger
}

// New wraps backend. The prefix may contain only letters, digits and underscores.
func New(backend Backend, prefix string, logger *zap.Logger) (*Store, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, prefix: prefix, logger: logger}, nil
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Prefix returns the table prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

// PhysicalName returns the backend table name for a logical table.
func (s *Store) PhysicalName(table string) string {
	return s.prefix + table
}

// EnsureTables creates the physical tables for specs.
func (s *Store) EnsureTables(ctx context.Context, specs ...TableSpec) error {
	physical := make([]TableSpec, len(specs))
	for i, spec := range specs {
		physical[i] = TableSpec{Name: s.PhysicalName(spec.Name), Indexes: spec.Indexes}
	}
	if err := s.backend.EnsureTables(ctx, physical); err != nil {
		return fmt.Errorf("failed to ensure tables: %w", err)
	}
	s.logger.Info("Tables ready",
		zap.String("backend", s.backend.Name()),
		zap.String("prefix", s.prefix),
		zap.Int("tables", len(specs)),
	)
	return nil
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
