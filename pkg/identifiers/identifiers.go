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

// Package identifiers keeps a document's identifier set in line with its id,
// its origin relations and its unique field.
package identifiers

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

type Rules interface {
	OriginRelationType(documentType string) string
	UniqueFieldPath(documentType string) string
}

// Synchronizer keeps the identifiers of a document in line with its id, origins and unique field.
type Synchronizer struct {
	rules  Rules
	logger *zap.SugaredLogger
}

func NewSynchronizer(rules Rules, logger *zap.SugaredLogger) *Synchronizer {
	if rules == nil {
		panic("NewSynchronizer: rules must not be nil")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Synchronizer{rules: rules, logger: logger}
}

// Derive returns the identifier that stands for a unique-field value: a
// name-based (SHA-1) UUID in the OID namespace over the value's string form.
func Derive(value interface{}) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(document.Stringify(value))).String()
}

// SyncOrigins adds the document id and every origin relation key to the
// identifiers, then removes duplicates.
func (s *Synchronizer) SyncOrigins(doc *document.Document) {
	if doc.ID != "" {
		doc.AddIdentifier(doc.ID)
	}

	if originType := s.rules.OriginRelationType(doc.Type); originType != "" {
		for _, relation := range doc.RelationsOfType(originType) {
			doc.Identifiers = append(doc.Identifiers, relation.Key)
		}
	}

	doc.DedupeIdentifiers()
}

// SyncUniqueField swaps the derived identifier when the unique field changed
// between previous and doc. Only create and update are considered.
func (s *Synchronizer) SyncUniqueField(op document.Operation, doc, previous *document.Document) {
	if op != document.OperationCreate && op != document.OperationUpdate {
		return
	}

	path := s.rules.UniqueFieldPath(doc.Type)
	if path == "" {
		return
	}

	current, hasCurrent := document.Lookup(doc, path)
	old, hasOld := document.Lookup(previous, path)

	if hasCurrent && hasOld && document.Stringify(current) == document.Stringify(old) {
		return
	}

	if !hasCurrent && !hasOld {
		return
	}

	if hasOld {
		doc.RemoveIdentifier(Derive(old))
	}

	if hasCurrent {
		doc.AddIdentifier(Derive(current))
	}

	s.logger.Debugf("Unique field %s of %s changed from %v to %v", path, doc.ID, old, current)
}
