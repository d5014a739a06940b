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

// Package cascade hard-deletes documents that only exist because of another
// document: origins pointing at a deleted id, and derivatives of a deleted
// mediafile.
package cascade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/metrics"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

const (
	FieldIdentifiers = "identifiers"
	FieldType        = "type"
	FieldRelations   = "relations"
	FieldElodyID     = "properties." + constants.PropertyElodyID

	KindOrigin     = "origin"
	KindDerivative = "derivative"
)

// derivativeRelationTypes link a derived mediafile to its source.
var derivativeRelationTypes = []string{
	constants.RelationIsMediafileFor,
	constants.RelationIsTranscodeFor,
	constants.RelationIsOcrFor,
}

type QueryService interface {
	Search(ctx context.Context, query persistence.Query, collection string, limit int) ([]*document.Document, error)
}

// Remover hard-deletes a document without running any hooks.
type Remover interface {
	Delete(ctx context.Context, collection string, target *document.Document) error
}

// Deleter hard-deletes origins and derivatives of a deleted document.
type Deleter struct {
	query             QueryService
	remover           Remover
	originsCollection string
	logger            *zap.SugaredLogger
}

func NewDeleter(query QueryService, remover Remover, originsCollection string, logger *zap.SugaredLogger) *Deleter {
	if query == nil || remover == nil {
		panic("NewDeleter: query and remover must not be nil")
	}

	if originsCollection == "" {
		originsCollection = constants.CollectionOrigins
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Deleter{
		query:             query,
		remover:           remover,
		originsCollection: originsCollection,
		logger:            logger,
	}
}

// OriginsQuery matches documents whose identifiers contain id or whose
// elody_id equals it.
func OriginsQuery(id string) persistence.Query {
	return *persistence.NewQuery().
		Or(FieldIdentifiers, persistence.Contains, id).
		Or(FieldElodyID, persistence.Eq, id)
}

// DerivativesQuery matches mediafiles derived from the mediafile id.
func DerivativesQuery(id string) persistence.Query {
	q := persistence.NewQuery().Filter(FieldType, persistence.Eq, constants.TypeMediafile)

	for _, relationType := range derivativeRelationTypes {
		q.Or(FieldRelations, persistence.ElemMatch, map[string]interface{}{
			"type": relationType,
			"key":  id,
		})
	}

	return *q
}

// DeleteOrigins removes every origin document of id and returns how many were
// deleted. A failed deletion is logged and the remaining origins are still
// processed.
func (d *Deleter) DeleteOrigins(ctx context.Context, id string) (int, error) {
	return d.deleteMatching(ctx, d.originsCollection, OriginsQuery(id), KindOrigin, id)
}

// DeleteDerivatives removes the mediafiles in collection derived from id.
func (d *Deleter) DeleteDerivatives(ctx context.Context, collection, id string) (int, error) {
	return d.deleteMatching(ctx, collection, DerivativesQuery(id), KindDerivative, id)
}

func (d *Deleter) deleteMatching(ctx context.Context, collection string, query persistence.Query, kind, id string) (int, error) {
	if id == "" {
		return 0, nil
	}

	matches, err := d.query.Search(ctx, query, collection, constants.UnboundedSearchLimit)
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentCascade, "search_"+kind, err, d.logger)

		return 0, fmt.Errorf("failed to search %s documents of %s: %w", kind, id, err)
	}

	deleted := 0

	for _, match := range matches {
		if match.ID == id {
			continue
		}

		if err := d.remover.Delete(ctx, collection, match); err != nil {
			d.logger.Warnf("Failed to delete %s %s of %s: %v", kind, match.ID, id, err)
			metrics.IncErrorCount(metrics.ComponentCascade, "delete_"+kind)

			continue
		}

		deleted++

		metrics.RecordCascadeDelete(kind)
	}

	if deleted > 0 {
		d.logger.Infof("Deleted %d %s document(s) of %s from %s", deleted, kind, id, collection)
	}

	return deleted, nil
}
