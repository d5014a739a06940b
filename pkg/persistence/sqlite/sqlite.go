// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite stores documents in an embedded SQLite database, one table
// per collection with the JSON document in a TEXT column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

const driverName = "sqlite"

// Store keeps each collection in a SQLite table of JSON documents.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewStore opens (or creates) the database file at dbPath. Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", buildConnectionString(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func buildConnectionString(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}

	params := "?mode=rwc&_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_cache_size=-64000"
	if runtime.GOOS == "darwin" {
		params += "&_fullfsync=1"
	}

	return "file:" + dbPath + params
}

func observe(operation string, start time.Time) {
	metrics.ObserveStoreOp(driverName, operation, time.Since(start))
}

func (s *Store) check(ctx context.Context, collection string) error {
	if err := persistence.ValidateContext(ctx); err != nil {
		return err
	}

	if s.closed.Load() {
		return persistence.ErrClosed
	}

	return persistence.ValidateCollectionName(collection)
}

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := s.check(ctx, name); err != nil {
		return err
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`, name)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := s.check(ctx, name); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc persistence.Document) (string, error) {
	defer observe("insert", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return "", err
	}

	id := doc.ID()
	if id == "" {
		return "", errors.New("document must have non-empty 'id' field")
	}

	if err := s.CreateCollection(ctx, collection); err != nil {
		return "", err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, collection)

	if _, err := s.db.ExecContext(ctx, query, id, string(data)); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return "", persistence.ErrConflict
		}

		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	return id, nil
}

func (s *Store) Get(ctx context.Context, collection string, id string) (persistence.Document, error) {
	defer observe("get", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	var data string

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, collection), id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc persistence.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return doc, nil
}

func (s *Store) Update(ctx context.Context, collection string, id string, doc persistence.Document) error {
	defer observe("update", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return err
	}

	stored := make(persistence.Document, len(doc))
	for k, v := range doc {
		stored[k] = v
	}

	stored[persistence.FieldID] = id

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET data = ? WHERE id = ?`, collection), string(data), id)
	if err != nil {
		if isMissingTable(err) {
			return persistence.ErrNotFound
		}

		return fmt.Errorf("failed to update document: %w", err)
	}

	return requireRow(result)
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	defer observe("delete", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, collection), id)
	if err != nil {
		if isMissingTable(err) {
			return persistence.ErrNotFound
		}

		return fmt.Errorf("failed to delete document: %w", err)
	}

	return requireRow(result)
}

// Find pushes the translatable conditions into SQL and evaluates the full query on the rows.
func (s *Store) Find(ctx context.Context, collection string, query persistence.Query) ([]persistence.Document, error) {
	defer observe("find", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	where, args := persistence.BuildWhere(query, dialect{})

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM `+collection+where+` ORDER BY id`, args...)
	if err != nil {
		if isMissingTable(err) {
			return []persistence.Document{}, nil
		}

		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var documents []persistence.Document

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var doc persistence.Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return persistence.Apply(documents, query), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return persistence.ErrClosed
	}

	return s.db.PingContext(ctx)
}

func (s *Store) Close(_ context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.New("store already closed")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

type dialect struct{}

func (dialect) Placeholder(int) string {
	return "?"
}

func (dialect) Extract(path string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", path)
}

func (dialect) ArrayContains(path string, arg string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(data, '$.%s') AS e WHERE e.value = %s)", path, arg)
}

func (dialect) ArrayElemMatch(path string, fields []string, args []string) string {
	conditions := make([]string, len(fields))
	for i, field := range fields {
		conditions[i] = fmt.Sprintf("json_extract(e.value, '$.%s') = %s", field, args[i])
	}

	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(data, '$.%s') AS e WHERE %s)", path, strings.Join(conditions, " AND "))
}
