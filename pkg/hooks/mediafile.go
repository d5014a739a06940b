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

package hooks

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/cascade"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

const (
	metadataKeyAccess         = "access"
	metadataKeyQualityAccess  = "quality_access"
	metadataKeyFileIdentifier = "file_identifier"
	originKeyFile             = "file"
)

// MediafileDeleted is the payload of the mediafile deleted event.
type MediafileDeleted struct {
	Mediafile      *document.Document `json:"mediafile"`
	LinkedEntities []string           `json:"linked_entities"`
}

type mediafileHooks struct {
	deleter    *cascade.Deleter
	recorder   Recorder
	collection string
	logger     *zap.SugaredLogger
}

func (m *mediafileHooks) preWrite(op document.Operation, doc *document.Document) {
	filename := doc.StringProperty(constants.PropertyFilename)

	if op == document.OperationCreate {
		if filename != "" {
			doc.SetProperty(constants.PropertyOriginalName, filename)
		}

		identifiers := make([]string, 0, len(doc.Identifiers)+2)
		for _, identifier := range []string{doc.ID, filename} {
			if identifier != "" {
				identifiers = append(identifiers, identifier)
			}
		}

		doc.Identifiers = append(identifiers, doc.Identifiers...)

		if isOriginal(doc) {
			setDefaultMetadata(doc, metadataKeyAccess, "closed")
			setDefaultMetadata(doc, metadataKeyQualityAccess, "low")
		}

		rewriteFileOrigins(doc)
	}

	if md5sum := doc.StringProperty(constants.PropertyMD5Sum); md5sum != "" {
		doc.AddIdentifier(md5sum)
	}

	if doc.StringProperty(constants.PropertyTechnicalOrigin) == constants.TechnicalOriginOriginal {
		refs := []interface{}{}
		for _, relation := range doc.RelationsOfType(constants.RelationIsMediafileFor) {
			refs = append(refs, relation.Key)
		}

		doc.SetProperty(constants.PropertyRefAssets, refs)
	}
}

func (m *mediafileHooks) postWrite(ctx context.Context, op document.Operation, doc *document.Document) {
	if op != document.OperationDelete {
		return
	}

	if _, err := m.deleter.DeleteDerivatives(ctx, m.collection, doc.ID); err != nil {
		m.logger.Warnf("Failed to delete derivatives of mediafile %s: %v", doc.ID, err)
	}

	m.recorder.Emit(constants.DefaultExchange, constants.EventMediafileDeleted, MediafileDeleted{
		Mediafile:      doc.Clone(),
		LinkedEntities: []string{},
	})
}

// isOriginal treats a missing technical origin as original.
func isOriginal(doc *document.Document) bool {
	origin := doc.StringProperty(constants.PropertyTechnicalOrigin)

	return origin == "" || origin == constants.TechnicalOriginOriginal
}

func setDefaultMetadata(doc *document.Document, key string, value interface{}) {
	for _, entry := range doc.Metadata {
		if entry.Key == key {
			return
		}
	}

	doc.Metadata = append(doc.Metadata, document.MetadataEntry{Key: key, Value: value})
}

// rewriteFileOrigins points hasOrigin relations at the uploaded file's
// identifier. The relation key given by the client becomes the label, and a
// placeholder "file" origin is dropped. Without a file_identifier the
// relations are kept as sent.
func rewriteFileOrigins(doc *document.Document) {
	fileIdentifier, _ := document.Lookup(doc, "metadata."+metadataKeyFileIdentifier+".value")
	identifier := document.Stringify(fileIdentifier)

	out := doc.Relations[:0:0]

	for _, relation := range doc.Relations {
		if relation.Type != constants.RelationHasOrigin {
			out = append(out, relation)

			continue
		}

		if strings.ToLower(strings.TrimSpace(relation.Key)) == originKeyFile {
			continue
		}

		if fileIdentifier == nil {
			out = append(out, relation)

			continue
		}

		out = append(out, document.Relation{
			Key:   identifier,
			Type:  relation.Type,
			Label: relation.Key,
		})
	}

	doc.Relations = out
}
