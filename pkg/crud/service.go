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

// Package crud runs the write pipeline: pre-write hook, primary write,
// post-write hook. Service also implements the document store the relation
// sync engine writes counterpart documents through.
package crud

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// Hooks run around every primary write.
type Hooks interface {
	PreWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) (*document.Document, error)
	PostWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) error
}

// Rules is the part of the type registry the service consults.
type Rules interface {
	CollectionFor(documentType string) string
	Collections() []string
	OriginsCollection() string
}

// Resolver caches which collection holds an id.
type Resolver interface {
	Remember(id, collection string)
	Forget(id string)
}

// Service is the CRUD pipeline and the counterpart store of the sync engine.
type Service struct {
	store    persistence.Store
	rules    Rules
	resolver Resolver
	hooks    Hooks
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewService(store persistence.Store, rules Rules, resolver Resolver, logger *zap.SugaredLogger) *Service {
	if store == nil || rules == nil || resolver == nil {
		panic("NewService: store, rules and resolver must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Service{
		store:    store,
		rules:    rules,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SetHooks installs the hooks. The hooks write counterpart documents through
// the service itself, so they are set after both are constructed.
func (s *Service) SetHooks(hooks Hooks) {
	s.hooks = hooks
}

// ValidateCollection accepts the registry's collections and the origins collection.
func (s *Service) ValidateCollection(collection string) error {
	if collection == s.rules.OriginsCollection() || slices.Contains(s.rules.Collections(), collection) {
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
}

// CreateDocument runs the full pipeline for a new document. An empty
// collection is taken from the registry entry of the document's type.
func (s *Service) CreateDocument(ctx context.Context, collection string, doc *document.Document, actor string, opts document.HookOptions) (*document.Document, error) {
	if doc == nil || doc.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidDocument)
	}

	if collection == "" {
		collection = s.rules.CollectionFor(doc.Type)
	}

	if err := s.ValidateCollection(collection); err != nil {
		return nil, err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if doc.Schema.Type == "" {
		doc.Schema = document.Schema{Type: constants.DefaultSchemaType, Version: constants.DefaultSchemaVersion}
	}

	now := s.now()
	if doc.DateCreated == nil {
		doc.DateCreated = &now
	}

	if doc.CreatedBy == "" {
		doc.CreatedBy = actor
	}

	doc.DateUpdated = &now
	doc.LastEditor = actor

	doc, err := s.preWrite(ctx, document.OperationCreate, doc, nil, opts)
	if err != nil {
		return nil, err
	}

	stored, err := document.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if _, err := s.store.Insert(ctx, collection, stored); err != nil {
		return nil, s.primaryWriteFailed("insert", collection, doc.ID, err)
	}

	s.resolver.Remember(doc.ID, collection)
	s.postWrite(ctx, document.OperationCreate, doc, nil, opts)

	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, collection, id string) (*document.Document, error) {
	if err := s.ValidateCollection(collection); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, collection, id)
}

// ReplaceDocument overwrites the stored document. Relations missing from doc
// are removed from their targets as well.
func (s *Service) ReplaceDocument(ctx context.Context, collection, id string, doc *document.Document, actor string, opts document.HookOptions) (*document.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidDocument)
	}

	previous, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	doc.ID = id
	if doc.Type == "" {
		doc.Type = previous.Type
	}

	if doc.Schema.Type == "" {
		doc.Schema = previous.Schema
	}

	return s.update(ctx, collection, doc, previous, actor, opts)
}

// PatchDocument merges partial into the stored document. See Merge.
func (s *Service) PatchDocument(ctx context.Context, collection, id string, partial *document.Document, actor string, opts document.HookOptions) (*document.Document, error) {
	if partial == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidDocument)
	}

	previous, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, collection, Merge(previous, partial), previous, actor, opts)
}

func (s *Service) update(ctx context.Context, collection string, doc, previous *document.Document, actor string, opts document.HookOptions) (*document.Document, error) {
	doc.DateCreated = previous.DateCreated
	doc.CreatedBy = previous.CreatedBy

	now := s.now()
	doc.DateUpdated = &now
	doc.LastEditor = actor

	doc, err := s.preWrite(ctx, document.OperationUpdate, doc, previous, opts)
	if err != nil {
		return nil, err
	}

	if err := s.write(ctx, collection, doc); err != nil {
		return nil, err
	}

	s.postWrite(ctx, document.OperationUpdate, doc, previous, opts)

	return doc, nil
}

// DeleteDocument removes the document, its origins and every reverse
// relation pointing back at it.
func (s *Service) DeleteDocument(ctx context.Context, collection, id string, opts document.HookOptions) error {
	previous, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		return err
	}

	if _, err := s.preWrite(ctx, document.OperationDelete, previous, previous, opts); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, collection, id); err != nil {
		return s.primaryWriteFailed("delete", collection, id, err)
	}

	s.resolver.Forget(id)
	s.postWrite(ctx, document.OperationDelete, previous, previous, opts)

	return nil
}

// GetByID loads a document and remembers where it was found.
func (s *Service) GetByID(ctx context.Context, collection, id string) (*document.Document, error) {
	stored, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	doc, err := document.Decode(stored)
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentCRUD, "decode", err, s.logger)

		return nil, err
	}

	s.resolver.Remember(id, collection)

	return doc, nil
}

// Patch merges partial into target and writes the result without running
// the pre-write hook. The post-write hook runs when opts.RunPostHook is set.
func (s *Service) Patch(ctx context.Context, collection string, target, partial *document.Document, actor string, opts document.WriteOptions) (*document.Document, error) {
	return s.counterpartWrite(ctx, collection, target, Merge(target, partial), actor, opts)
}

// Put replaces target with replacement, keeping target's id and audit fields.
func (s *Service) Put(ctx context.Context, collection string, target, replacement *document.Document, actor string, opts document.WriteOptions) (*document.Document, error) {
	doc := replacement.Clone()
	doc.ID = target.ID
	doc.DateCreated = target.DateCreated
	doc.CreatedBy = target.CreatedBy

	return s.counterpartWrite(ctx, collection, target, doc, actor, opts)
}

func (s *Service) counterpartWrite(ctx context.Context, collection string, target, doc *document.Document, actor string, opts document.WriteOptions) (*document.Document, error) {
	now := s.now()
	doc.DateUpdated = &now
	doc.LastEditor = actor

	if err := s.write(ctx, collection, doc); err != nil {
		return nil, err
	}

	if opts.RunPostHook {
		s.postWrite(ctx, document.OperationUpdate, doc, target, document.HookOptions{})
	}

	return doc, nil
}

// Delete hard-deletes target without running any hook.
func (s *Service) Delete(ctx context.Context, collection string, target *document.Document) error {
	if err := s.store.Delete(ctx, collection, target.ID); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", target.ID, collection, err)
	}

	s.resolver.Forget(target.ID)

	return nil
}

// Search runs query against collection, returning at most limit documents.
// Documents that cannot be decoded are skipped.
func (s *Service) Search(ctx context.Context, query persistence.Query, collection string, limit int) ([]*document.Document, error) {
	query.LimitCount = limit

	stored, err := s.store.Find(ctx, collection, query)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to search %s: %w", collection, err)
	}

	out := make([]*document.Document, 0, len(stored))

	for _, raw := range stored {
		doc, err := document.Decode(raw)
		if err != nil {
			s.logger.Warnf("Skipping undecodable document %s in %s: %v", raw.ID(), collection, err)

			continue
		}

		out = append(out, doc)
	}

	return out, nil
}

func (s *Service) write(ctx context.Context, collection string, doc *document.Document) error {
	stored, err := document.Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := s.store.Update(ctx, collection, doc.ID, stored); err != nil {
		return s.primaryWriteFailed("update", collection, doc.ID, err)
	}

	s.resolver.Remember(doc.ID, collection)

	return nil
}

func (s *Service) preWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) (*document.Document, error) {
	if s.hooks == nil {
		return doc, nil
	}

	out, err := s.hooks.PreWrite(ctx, op, doc, previous, opts)
	if err != nil {
		return nil, fmt.Errorf("pre-write hook of %s %s failed: %w", op, doc.ID, err)
	}

	return out, nil
}

func (s *Service) postWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) {
	if s.hooks == nil {
		return
	}

	if err := s.hooks.PostWrite(ctx, op, doc, previous, opts); err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentCRUD, "post_write", err, s.logger)
	}
}

func (s *Service) primaryWriteFailed(operation, collection, id string, err error) error {
	metrics.IncErrorCountAndLog(metrics.ComponentCRUD, operation, err, s.logger)

	return fmt.Errorf("%w: %s %s in %s: %w", ErrPrimaryWrite, operation, id, collection, err)
}
