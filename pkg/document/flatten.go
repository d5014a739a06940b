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

package document

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Flatten returns a dotted-path view of the document.
//
// Object lists are keyed by their entries rather than by position:
//
//	metadata.<key>.value       value of the metadata entry <key>
//	metadata.<key>.lang        its language, when set
//	relations.<type>.key       target key, or a []interface{} when several relations share the type
//	<property>[.<nested>...]   entries of Properties, nested maps joined with dots
func Flatten(d *Document) map[string]interface{} {
	flat := map[string]interface{}{
		"id":             d.ID,
		"type":           d.Type,
		"schema.type":    d.Schema.Type,
		"schema.version": d.Schema.Version,
	}

	if len(d.Identifiers) > 0 {
		identifiers := make([]interface{}, len(d.Identifiers))
		for i, identifier := range d.Identifiers {
			identifiers[i] = identifier
		}

		flat["identifiers"] = identifiers
	}

	for _, entry := range d.Metadata {
		flat["metadata."+entry.Key+".value"] = entry.Value
		if entry.Lang != "" {
			flat["metadata."+entry.Key+".lang"] = entry.Lang
		}
	}

	for _, relation := range d.Relations {
		path := "relations." + relation.Type + ".key"

		switch existing := flat[path].(type) {
		case nil:
			flat[path] = relation.Key
		case []interface{}:
			flat[path] = append(existing, relation.Key)
		default:
			flat[path] = []interface{}{existing, relation.Key}
		}
	}

	flattenInto(flat, "", d.Properties)

	if d.DateCreated != nil {
		flat["date_created"] = d.DateCreated.Format(time.RFC3339Nano)
	}

	if d.DateUpdated != nil {
		flat["date_updated"] = d.DateUpdated.Format(time.RFC3339Nano)
	}

	if d.CreatedBy != "" {
		flat["created_by"] = d.CreatedBy
	}

	if d.LastEditor != "" {
		flat["last_editor"] = d.LastEditor
	}

	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, values map[string]interface{}) {
	for key, value := range values {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(flat, path, nested)

			continue
		}

		flat[path] = value
	}
}

// Lookup resolves path against the flattened document. A missing path or a
// nil value reports false.
func Lookup(d *Document, path string) (interface{}, bool) {
	if d == nil || path == "" {
		return nil, false
	}

	value, ok := Flatten(d)[path]
	if !ok || value == nil {
		return nil, false
	}

	return value, true
}

// Stringify renders a flattened value in the form used for hashing.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(data)
	}
}
