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

package relations

import (
	"context"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
)

// OrderingResolver renumbers ordered relation types of a document to 1..N.
type OrderingResolver struct {
	rules  Rules
	syncer Syncer
	logger *zap.SugaredLogger
}

func NewOrderingResolver(rules Rules, syncer Syncer, logger *zap.SugaredLogger) *OrderingResolver {
	if rules == nil || syncer == nil {
		panic("NewOrderingResolver: rules and syncer must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &OrderingResolver{rules: rules, syncer: syncer, logger: logger}
}

// Resolve renumbers every ordered relation type of doc to 1..N and syncs the
// renumbered relations so the reverse edges carry the new order. doc is
// modified in place and returned.
//
// On update, a type whose relations are only partly ordered is left alone.
func (o *OrderingResolver) Resolve(ctx context.Context, op document.Operation, doc *document.Document, opts document.HookOptions) *document.Document {
	for _, relationType := range o.rules.OrderedRelationTypes(doc.Type) {
		relations := doc.RelationsOfType(relationType)
		if len(relations) == 0 {
			continue
		}

		if op == document.OperationUpdate && partiallyOrdered(relations) {
			o.logger.Debugf("Skipping ordering of %s on %s: relations are partially ordered", relationType, doc.ID)

			continue
		}

		doc.RemoveRelationsOfType(relationType)

		renumbered := o.renumber(doc.ID, relations)

		if !o.rules.IsVirtual(doc.Type, relationType) {
			doc.Relations = append(doc.Relations, renumbered...)
		}

		o.syncer.Sync(ctx, doc, Delta{Created: renumbered}, opts)
	}

	return doc
}

func partiallyOrdered(relations []document.Relation) bool {
	withOrder := 0

	for _, relation := range relations {
		if _, ok := relation.OrderValue(); ok {
			withOrder++
		}
	}

	return withOrder > 0 && withOrder < len(relations)
}

// renumber sorts relations into buckets and numbers them from 1. Buckets are
// numeric order values ascending, then relations without order, then
// relations with a non-numeric order. Each bucket keeps arrival order.
func (o *OrderingResolver) renumber(documentID string, relations []document.Relation) []document.Relation {
	buckets := make(map[int][]document.Relation)

	var (
		keys      []int
		undefined []document.Relation
		ambiguous []document.Relation
	)

	for _, relation := range relations {
		value, ok := relation.OrderValue()
		if !ok {
			undefined = append(undefined, relation)

			continue
		}

		key, numeric := document.OrderKey(value)
		if !numeric {
			o.logger.Warnf("%v: %s relation to %s on %s has order %v",
				ErrAmbiguousOrder, relation.Type, relation.Key, documentID, value)
			metrics.IncErrorCount(metrics.ComponentOrdering, "ambiguous_order")

			ambiguous = append(ambiguous, relation)

			continue
		}

		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}

		buckets[key] = append(buckets[key], relation)
	}

	sort.Ints(keys)

	ordered := make([]document.Relation, 0, len(relations))
	for _, key := range keys {
		ordered = append(ordered, buckets[key]...)
	}

	ordered = append(ordered, undefined...)
	ordered = append(ordered, ambiguous...)

	out := make([]document.Relation, len(ordered))
	for i, relation := range ordered {
		out[i] = relation.WithOrder(i + 1)
	}

	return out
}

// closeOrderGaps renumbers the relations of relationType to 1..N after one of
// them was removed, keeping their relative order and their position in
// relations. Types with a relation lacking a numeric order are left alone.
// It returns the new list and the relations whose order changed.
func closeOrderGaps(relations []document.Relation, relationType string) ([]document.Relation, []document.Relation) {
	var (
		indexes []int
		keys    = make(map[int]int)
	)

	for i, relation := range relations {
		if relation.Type != relationType {
			continue
		}

		value, ok := relation.OrderValue()
		if !ok {
			return relations, nil
		}

		key, numeric := document.OrderKey(value)
		if !numeric {
			return relations, nil
		}

		indexes = append(indexes, i)
		keys[i] = key
	}

	byOrder := slices.Clone(indexes)
	sort.SliceStable(byOrder, func(a, b int) bool { return keys[byOrder[a]] < keys[byOrder[b]] })

	out := slices.Clone(relations)

	var changed []document.Relation

	for position, idx := range byOrder {
		if keys[idx] == position+1 {
			continue
		}

		out[idx] = relations[idx].WithOrder(position + 1)
		changed = append(changed, out[idx])
	}

	return out, changed
}
