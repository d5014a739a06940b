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

// Package persistence defines the schemaless document store the CRUD pipeline
// writes through, plus the query model shared by every driver.
//
// Every operation is atomic for a single document only. There is no
// transaction spanning several documents; callers that touch several
// documents (reverse relation sync, cascades) treat each write on its own.
package persistence

import (
	"context"
	"errors"
	"regexp"
)

// Document is the stored form of a document: a JSON-compatible map with a
// string "id" field.
type Document map[string]interface{}

// ID returns the document's id field, or "" when missing.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)

	return id
}

const FieldID = "id"

// Store is implemented by the memory, sqlite and postgres drivers.
type Store interface {
	// CreateCollection creates the collection if it does not exist yet.
	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error

	// Insert stores doc under its "id" field. ErrConflict when the id is taken.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	// Get returns ErrNotFound when the collection or the document is missing.
	Get(ctx context.Context, collection string, id string) (Document, error)
	// Update replaces the full document. ErrNotFound when it does not exist.
	Update(ctx context.Context, collection string, id string, doc Document) error
	Delete(ctx context.Context, collection string, id string) error
	Find(ctx context.Context, collection string, query Query) ([]Document, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type storeError struct {
	msg string
}

func (e *storeError) Error() string {
	return e.msg
}

var (
	ErrNotFound = &storeError{msg: "document not found"}
	ErrConflict = &storeError{msg: "document already exists"}
	ErrClosed   = errors.New("store is closed")
)

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateCollectionName rejects names that cannot be used as SQL identifiers.
func ValidateCollectionName(name string) error {
	if name == "" {
		return errors.New("invalid collection name: cannot be empty")
	}

	if !collectionNamePattern.MatchString(name) {
		return errors.New("invalid collection name: must contain only alphanumeric characters and underscores, and must start with a letter or underscore")
	}

	return nil
}

// ValidateContext rejects nil contexts.
func ValidateContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	return ctx.Err()
}
