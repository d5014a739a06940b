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

// Package relations keeps relations between independently stored documents
// consistent: it diffs relation lists, orders and expands them, and mirrors
// every change onto the counterpart documents.
package relations

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// DocumentStore reads and writes single documents by collection.
// Patch merges partial into target; Put replaces target with replacement.
type DocumentStore interface {
	GetByID(ctx context.Context, collection, id string) (*document.Document, error)
	Patch(ctx context.Context, collection string, target, partial *document.Document, actor string, opts document.WriteOptions) (*document.Document, error)
	Put(ctx context.Context, collection string, target, replacement *document.Document, actor string, opts document.WriteOptions) (*document.Document, error)
}

// CollectionResolver lists the collections an id may live in, most likely first.
type CollectionResolver interface {
	ResolveCollections(ctx context.Context, id string) []string
}

// Rules is the part of the type registry the engine consults.
type Rules interface {
	OrderedRelationTypes(documentType string) []string
	VirtualRelationTypes(documentType string) []string
	IsVirtual(documentType, relationType string) bool
	SkipsSync(documentType string) bool
	ExcludedRelationTypes() []string
	ExcludedReverseTargetTypes() []string
	ReverseOverride(relationType string) (string, bool)
}

// Syncer propagates a delta of owner onto the counterpart documents.
type Syncer interface {
	Sync(ctx context.Context, owner *document.Document, delta Delta, opts document.HookOptions) Report
}

// Report counts what a Sync call did.
type Report struct {
	Added   int
	Removed int
	Skipped int
	Failed  int
}

// SyncEngine mirrors relation changes of a document onto its counterparts.
type SyncEngine struct {
	store    DocumentStore
	resolver CollectionResolver
	rules    Rules
	actor    string
	logger   *zap.SugaredLogger
}

func NewSyncEngine(store DocumentStore, resolver CollectionResolver, rules Rules, actor string, logger *zap.SugaredLogger) *SyncEngine {
	if store == nil {
		panic("NewSyncEngine: store must not be nil")
	}

	if resolver == nil {
		panic("NewSyncEngine: resolver must not be nil")
	}

	if rules == nil {
		panic("NewSyncEngine: rules must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &SyncEngine{store: store, resolver: resolver, rules: rules, actor: actor, logger: logger}
}

// Sync mirrors delta onto the targets of its relations, created first, then
// deleted. Each target write stands alone: a failure is logged and the next
// relation is processed.
func (e *SyncEngine) Sync(ctx context.Context, owner *document.Document, delta Delta, opts document.HookOptions) Report {
	var report Report

	if owner == nil || e.rules.SkipsSync(owner.Type) {
		return report
	}

	for _, relation := range delta.Created {
		e.syncOne(ctx, owner, relation, true, opts, &report)
	}

	for _, relation := range delta.Deleted {
		e.syncOne(ctx, owner, relation, false, opts, &report)
	}

	return report
}

func (e *SyncEngine) syncOne(ctx context.Context, owner *document.Document, relation document.Relation, created bool, opts document.HookOptions, report *Report) {
	target, collection, err := e.findTarget(ctx, relation.Key)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			e.logger.Debugf("Skipping %s relation to %s of %s: %v", relation.Type, relation.Key, owner.ID, err)
			e.skip(report, metrics.SkipTargetNotFound)
		} else {
			e.logger.Warnf("Failed to load target %s of %s relation on %s: %v", relation.Key, relation.Type, owner.ID, err)
			e.fail(report, "load_target", err)
		}

		return
	}

	if slices.Contains(e.rules.ExcludedRelationTypes(), relation.Type) {
		e.skip(report, metrics.SkipExcludedType)

		return
	}

	relatedType := RelatedType(relation.Type, target.Type)

	reverseType, ok := e.rules.ReverseOverride(relation.Type)
	if !ok {
		reverseType = ReverseType(relation.Type, relatedType, owner.Type)
	}

	leaves := e.rules.ExcludedReverseTargetTypes()
	if slices.Contains(leaves, strings.ToLower(relatedType)) || slices.Contains(leaves, strings.ToLower(target.Type)) {
		e.skip(report, metrics.SkipReferenceLeaf)

		return
	}

	writeOpts := document.WriteOptions{RunPostHook: !opts.DryRun}

	if created {
		e.addReverse(ctx, owner, relation, target, collection, reverseType, writeOpts, report)

		return
	}

	e.removeReverse(ctx, owner, target, collection, reverseType, opts, report)
}

func (e *SyncEngine) addReverse(ctx context.Context, owner *document.Document, relation document.Relation, target *document.Document, collection, reverseType string, opts document.WriteOptions, report *Report) {
	reverse := relation.Clone()
	reverse.Key = owner.ID
	reverse.Type = reverseType

	if _, changed := document.MergeRelations(target.Relations, []document.Relation{reverse}); !changed {
		e.skip(report, metrics.SkipUnchanged)

		return
	}

	partial := &document.Document{
		ID:        target.ID,
		Type:      target.Type,
		Schema:    target.Schema,
		Relations: []document.Relation{reverse},
	}

	if _, err := e.store.Patch(ctx, collection, target, partial, e.actor, opts); err != nil {
		e.logger.Warnf("Failed to add %s relation to %s on %s: %v", reverseType, owner.ID, target.ID, err)
		e.fail(report, "patch_target", err)

		return
	}

	report.Added++

	metrics.RecordReverseEdge("added", reverseType)
}

func (e *SyncEngine) removeReverse(ctx context.Context, owner, target *document.Document, collection, reverseType string, opts document.HookOptions, report *Report) {
	if len(target.Relations) == 0 {
		e.skip(report, metrics.SkipNoRelations)

		return
	}

	remaining, removed := document.RemoveRelation(target.Relations, owner.ID, reverseType)
	if !removed {
		e.skip(report, metrics.SkipUnchanged)

		return
	}

	var renumbered []document.Relation
	if slices.Contains(e.rules.OrderedRelationTypes(target.Type), reverseType) {
		remaining, renumbered = closeOrderGaps(remaining, reverseType)
	}

	replacement := target.Clone()
	replacement.Relations = remaining

	writeOpts := document.WriteOptions{RunPostHook: !opts.DryRun}

	if _, err := e.store.Put(ctx, collection, target, replacement, e.actor, writeOpts); err != nil {
		e.logger.Warnf("Failed to remove %s relation to %s from %s: %v", reverseType, owner.ID, target.ID, err)
		e.fail(report, "put_target", err)

		return
	}

	report.Removed++

	metrics.RecordReverseEdge("removed", reverseType)

	// the counterparts of renumbered relations still carry the old order
	if len(renumbered) > 0 {
		e.Sync(ctx, replacement, Delta{Created: renumbered}, opts)
	}
}

// findTarget tries every candidate collection of id in order.
func (e *SyncEngine) findTarget(ctx context.Context, id string) (*document.Document, string, error) {
	if id == "" {
		return nil, "", ErrTargetNotFound
	}

	for _, collection := range e.resolver.ResolveCollections(ctx, id) {
		target, err := e.store.GetByID(ctx, collection, id)
		if err == nil {
			return target, collection, nil
		}

		if !errors.Is(err, persistence.ErrNotFound) {
			return nil, "", err
		}
	}

	return nil, "", ErrTargetNotFound
}

func (e *SyncEngine) skip(report *Report, reason string) {
	report.Skipped++

	metrics.RecordReverseEdgeSkipped(reason)
}

func (e *SyncEngine) fail(report *Report, operation string, err error) {
	report.Failed++

	metrics.IncErrorCountAndLog(metrics.ComponentSyncEngine, operation, err, e.logger)
}
