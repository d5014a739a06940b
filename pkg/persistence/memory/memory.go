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

// Package memory provides an in-memory persistence.Store.
//
// Collections are plain maps guarded by a sync.RWMutex. Documents are deep
// copied on the way in and out, so callers never share state with the store.
// Collections are created on first write; reads from a missing collection
// return persistence.ErrNotFound (Get) or an empty result (Find).
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// InMemoryStore is a Store backed by maps, for tests and single-node runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]persistence.Document
	closed      atomic.Bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: make(map[string]map[string]persistence.Document),
	}
}

func copyDocument(doc persistence.Document) (persistence.Document, error) {
	var out persistence.Document
	if err := deepcopy.Copy(&out, &doc); err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}

	return out, nil
}

func (s *InMemoryStore) check(ctx context.Context) error {
	if err := persistence.ValidateContext(ctx); err != nil {
		return err
	}

	if s.closed.Load() {
		return persistence.ErrClosed
	}

	return nil
}

// collection returns the named collection, creating it when missing. Caller holds the write lock.
func (s *InMemoryStore) collection(name string) map[string]persistence.Document {
	coll, exists := s.collections[name]
	if !exists {
		coll = make(map[string]persistence.Document)
		s.collections[name] = coll
	}

	return coll
}

func (s *InMemoryStore) CreateCollection(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if err := persistence.ValidateCollectionName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection(name)

	return nil
}

func (s *InMemoryStore) DropCollection(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[name]; !exists {
		return fmt.Errorf("collection %q does not exist", name)
	}

	delete(s.collections, name)

	return nil
}

func (s *InMemoryStore) Insert(ctx context.Context, collection string, doc persistence.Document) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}

	id := doc.ID()
	if id == "" {
		return "", errors.New("document must have non-empty 'id' field")
	}

	docCopy, err := copyDocument(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	if _, exists := coll[id]; exists {
		return "", persistence.ErrConflict
	}

	coll[id] = docCopy

	return id, nil
}

func (s *InMemoryStore) Get(ctx context.Context, collection string, id string) (persistence.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, exists := s.collections[collection]
	if !exists {
		return nil, persistence.ErrNotFound
	}

	doc, exists := coll[id]
	if !exists {
		return nil, persistence.ErrNotFound
	}

	return copyDocument(doc)
}

func (s *InMemoryStore) Update(ctx context.Context, collection string, id string, doc persistence.Document) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	docCopy, err := copyDocument(doc)
	if err != nil {
		return err
	}

	docCopy[persistence.FieldID] = id

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	if _, exists := coll[id]; !exists {
		return persistence.ErrNotFound
	}

	coll[id] = docCopy

	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, collection string, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, exists := s.collections[collection]
	if !exists {
		return persistence.ErrNotFound
	}

	if _, exists := coll[id]; !exists {
		return persistence.ErrNotFound
	}

	delete(coll, id)

	return nil
}

// Find evaluates the query against every document of the collection. Without
// an explicit sort, results come back ordered by id.
func (s *InMemoryStore) Find(ctx context.Context, collection string, query persistence.Query) ([]persistence.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]

	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	candidates := make([]persistence.Document, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, coll[id])
	}

	matched := persistence.Apply(candidates, query)

	results := make([]persistence.Document, 0, len(matched))

	for _, doc := range matched {
		docCopy, err := copyDocument(doc)
		if err != nil {
			return nil, err
		}

		results = append(results, docCopy)
	}

	return results, nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Close marks the store closed; later calls fail with persistence.ErrClosed.
func (s *InMemoryStore) Close(ctx context.Context) error {
	if err := persistence.ValidateContext(ctx); err != nil {
		return err
	}

	if !s.closed.CompareAndSwap(false, true) {
		return errors.New("store already closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections = make(map[string]map[string]persistence.Document)

	return nil
}
