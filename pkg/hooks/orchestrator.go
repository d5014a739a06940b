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

// Package hooks sequences the relation-sync components around a primary write.
//
// PreWrite runs before the document is persisted:
//
//	mediafile supplements -> identifiers -> ordering -> virtual relations
//
// PostWrite runs after it was persisted:
//
//	cascade (delete only) -> reverse-edge sync -> mediafile cleanup -> history
//
// Only the primary write can fail a request. Every secondary effect is logged
// and counted on its own.
package hooks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/cascade"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/identifiers"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/relations"
)

// Rules is the part of the type registry the hooks consult.
type Rules interface {
	relations.Rules
	identifiers.Rules
	HistoryEnabled(documentType string) bool
	HistoryCollectionFor(documentType string) string
	CollectionFor(documentType string) string
	OriginsCollection() string
}

// Store is what the hooks need from the CRUD layer.
type Store interface {
	relations.DocumentStore
	cascade.QueryService
	cascade.Remover
}

// Recorder queues history snapshots and events.
type Recorder interface {
	Record(doc *document.Document, historyCollection string) bool
	Emit(exchange, eventName string, data interface{}) bool
}

// Orchestrator runs the pre-write and post-write hooks of the CRUD pipeline.
type Orchestrator struct {
	rules       Rules
	recorder    Recorder
	identifiers *identifiers.Synchronizer
	ordering    *relations.OrderingResolver
	virtual     *relations.VirtualExpander
	syncer      relations.Syncer
	cascade     *cascade.Deleter
	mediafiles  *mediafileHooks
	logger      *zap.SugaredLogger
}

// NewOrchestrator wires the sync engine and its helpers on top of store.
// actor is recorded as the editor of every counterpart write.
func NewOrchestrator(store Store, resolver relations.CollectionResolver, rules Rules, recorder Recorder, actor string, logger *zap.SugaredLogger) *Orchestrator {
	if store == nil || resolver == nil || rules == nil || recorder == nil {
		panic("NewOrchestrator: store, resolver, rules and recorder must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if actor == "" {
		actor = constants.DefaultActor
	}

	syncer := relations.NewSyncEngine(store, resolver, rules, actor, logger.Named("sync"))
	deleter := cascade.NewDeleter(store, store, rules.OriginsCollection(), logger.Named("cascade"))

	return &Orchestrator{
		rules:       rules,
		recorder:    recorder,
		identifiers: identifiers.NewSynchronizer(rules, logger.Named("identifiers")),
		ordering:    relations.NewOrderingResolver(rules, syncer, logger.Named("ordering")),
		virtual:     relations.NewVirtualExpander(rules, syncer),
		syncer:      syncer,
		cascade:     deleter,
		mediafiles: &mediafileHooks{
			deleter:    deleter,
			recorder:   recorder,
			collection: rules.CollectionFor(constants.TypeMediafile),
			logger:     logger.Named("mediafile"),
		},
		logger: logger,
	}
}

// PreWrite prepares doc for persisting and returns it. Relations moved out of
// doc by ordering or virtual expansion are already written to their targets
// when PreWrite returns. Delete is a no-op.
func (o *Orchestrator) PreWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pre-write hook of %s cancelled: %w", op, err)
	}

	if doc == nil || op == document.OperationDelete {
		return doc, nil
	}

	start := time.Now()
	defer func() {
		metrics.ObserveHookDuration("pre_write", string(op), time.Since(start))
	}()

	if doc.Type == constants.TypeMediafile {
		o.mediafiles.preWrite(op, doc)
	}

	o.identifiers.SyncOrigins(doc)
	o.identifiers.SyncUniqueField(op, doc, previous)

	doc = o.ordering.Resolve(ctx, op, doc, opts)
	doc = o.virtual.Expand(ctx, doc, opts)

	return doc, nil
}

// PostWrite mirrors the committed change onto related documents. For delete,
// doc may be nil; previous is then used as the deleted document.
//
// The returned error only reports a failed cascade search. All other
// secondary failures are logged and counted.
func (o *Orchestrator) PostWrite(ctx context.Context, op document.Operation, doc, previous *document.Document, opts document.HookOptions) error {
	subject := doc
	if subject == nil {
		subject = previous
	}

	if subject == nil {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.ObserveHookDuration("post_write", string(op), time.Since(start))
	}()

	var cascadeErr error

	if op == document.OperationDelete {
		if _, err := o.cascade.DeleteOrigins(ctx, subject.ID); err != nil {
			cascadeErr = err
		}
	}

	report := o.syncer.Sync(ctx, subject, relations.DeltaFor(op, previous, doc), opts)
	if report.Failed > 0 {
		o.logger.Warnf("%d reverse relation write(s) of %s %s failed", report.Failed, op, subject.ID)
	}

	if subject.Type == constants.TypeMediafile {
		o.mediafiles.postWrite(ctx, op, subject)
	}

	if o.rules.HistoryEnabled(subject.Type) {
		o.recorder.Record(subject, o.rules.HistoryCollectionFor(subject.Type))
	}

	return cascadeErr
}
