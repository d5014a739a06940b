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

package crud

import (
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

// Merge returns a copy of target with partial applied:
//
//   - relations are merged by (key, type), a matching relation is replaced
//   - metadata entries are merged by key
//   - identifiers are added
//   - properties are set one by one
//   - type and schema are taken from partial when set
//
// Nothing is removed. Use a full replacement to drop relations.
func Merge(target, partial *document.Document) *document.Document {
	out := target.Clone()
	if partial == nil {
		return out
	}

	if partial.Type != "" {
		out.Type = partial.Type
	}

	if partial.Schema.Type != "" {
		out.Schema = partial.Schema
	}

	out.Relations, _ = document.MergeRelations(out.Relations, cloneRelations(partial.Relations))

	for _, entry := range partial.Metadata {
		out.Metadata = mergeMetadata(out.Metadata, entry)
	}

	for _, identifier := range partial.Identifiers {
		out.AddIdentifier(identifier)
	}

	for name, value := range partial.Clone().Properties {
		out.SetProperty(name, value)
	}

	return out
}

func mergeMetadata(metadata []document.MetadataEntry, entry document.MetadataEntry) []document.MetadataEntry {
	for i := range metadata {
		if metadata[i].Key == entry.Key {
			metadata[i] = entry

			return metadata
		}
	}

	return append(metadata, entry)
}

func cloneRelations(relations []document.Relation) []document.Relation {
	out := make([]document.Relation, len(relations))
	for i, relation := range relations {
		out[i] = relation.Clone()
	}

	return out
}
