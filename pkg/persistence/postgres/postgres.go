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

// Package postgres stores documents in PostgreSQL, one table per collection
// with the document in a JSONB column.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

const (
	driverName = "postgres"

	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// Config holds the connection settings read from the POSTGRES_* variables.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// LRUSize bounds the cache of collections known to exist.
	LRUSize int
}

func (c Config) connString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// pgxIface is the subset of *pgxpool.Pool the store uses.
type pgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store keeps each collection in a Postgres table with a jsonb column.
type Store struct {
	db          pgxIface
	collections *lru.ARCCache
	closed      atomic.Bool
}

// NewStore connects a pool and verifies the database answers.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to postgres database: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return newStore(pool, cfg.LRUSize)
}

func newStore(db pgxIface, lruSize int) (*Store, error) {
	if lruSize <= 0 {
		lruSize = 128
	}

	cache, err := lru.NewARC(lruSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARC: %w", err)
	}

	return &Store{db: db, collections: cache}, nil
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

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := s.check(ctx, name); err != nil {
		return err
	}

	if s.collections.Contains(name) {
		return nil
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data JSONB NOT NULL)`, name)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.collections.Add(name, struct{}{})

	return nil
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := s.check(ctx, name); err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS `+name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	s.collections.Remove(name)

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

	query := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)`, collection)
	if _, err := s.db.Exec(ctx, query, id, string(data)); err != nil {
		if pgCode(err) == pgUniqueViolation {
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

	var data []byte

	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, collection), id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgUndefinedTable {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc persistence.Document
	if err := json.Unmarshal(data, &doc); err != nil {
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

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET data = $1 WHERE id = $2`, collection), string(data), id)
	if err != nil {
		if pgCode(err) == pgUndefinedTable {
			return persistence.ErrNotFound
		}

		return fmt.Errorf("failed to update document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	defer observe("delete", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, collection), id)
	if err != nil {
		if pgCode(err) == pgUndefinedTable {
			return persistence.ErrNotFound
		}

		return fmt.Errorf("failed to delete document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// Find pushes the translatable conditions into SQL and evaluates the full query on the rows.
func (s *Store) Find(ctx context.Context, collection string, query persistence.Query) ([]persistence.Document, error) {
	defer observe("find", time.Now())

	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	where, args := persistence.BuildWhere(query, dialect{})

	// Every pushed-down comparison is textual.
	for i, arg := range args {
		args[i] = textArg(arg)
	}

	rows, err := s.db.Query(ctx, `SELECT data FROM `+collection+where+` ORDER BY id`, args...)
	if err != nil {
		if pgCode(err) == pgUndefinedTable {
			return []persistence.Document{}, nil
		}

		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	defer rows.Close()

	var documents []persistence.Document

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var doc persistence.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		if pgCode(err) == pgUndefinedTable {
			return []persistence.Document{}, nil
		}

		return nil, fmt.Errorf("rows error: %w", err)
	}

	return persistence.Apply(documents, query), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return persistence.ErrClosed
	}

	return s.db.Ping(ctx)
}

func (s *Store) Close(_ context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.New("store already closed")
	}

	s.db.Close()

	return nil
}

func textArg(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

type dialect struct{}

func (dialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func jsonPath(path string) string {
	return "'{" + strings.ReplaceAll(path, ".", ",") + "}'"
}

func (dialect) Extract(path string) string {
	return "(data #>> " + jsonPath(path) + ")"
}

func (dialect) ArrayContains(path string, arg string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements_text(data #> %s) AS e(value) WHERE e.value = %s)", jsonPath(path), arg)
}

func (dialect) ArrayElemMatch(path string, fields []string, args []string) string {
	conditions := make([]string, len(fields))
	for i, field := range fields {
		conditions[i] = fmt.Sprintf("(e.value #>> %s) = %s", jsonPath(field), args[i])
	}

	return fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(data #> %s) AS e(value) WHERE %s)", jsonPath(path), strings.Join(conditions, " AND "))
}
