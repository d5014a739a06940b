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

// Package document holds the typed model of a stored DAMS document and the
// relation helpers shared by the hook pipeline.
package document

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
)

// Operation is the CRUD operation a hook runs for.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// HookOptions is threaded through every hook invocation.
type HookOptions struct {
	// DryRun suppresses the post hooks of counterpart writes.
	DryRun bool
}

// WriteOptions controls a single store adapter write.
type WriteOptions struct {
	RunPostHook bool
}

type MetadataEntry struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Lang  string      `json:"lang,omitempty"`
}

type OrderValue struct {
	Value interface{} `json:"value"`
}

type Sort struct {
	Order []OrderValue `json:"order,omitempty"`
}

// Relation is a typed edge to the document identified by Key.
type Relation struct {
	Key      string          `json:"key"`
	Type     string          `json:"type"`
	Label    string          `json:"label,omitempty"`
	Sort     *Sort           `json:"sort,omitempty"`
	Metadata []MetadataEntry `json:"metadata,omitempty"`
}

type Schema struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// Document is a stored entity or mediafile with its relations.
type Document struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Identifiers []string               `json:"identifiers"`
	Metadata    []MetadataEntry        `json:"metadata"`
	Relations   []Relation             `json:"relations"`
	Schema      Schema                 `json:"schema"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	DateCreated *time.Time             `json:"date_created,omitempty"`
	DateUpdated *time.Time             `json:"date_updated,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	LastEditor  string                 `json:"last_editor,omitempty"`
}

// Matches reports whether r and other share (key, type).
func (r Relation) Matches(other Relation) bool {
	return r.Key == other.Key && r.Type == other.Type
}

// OrderValue returns sort.order[0].value when present.
func (r Relation) OrderValue() (interface{}, bool) {
	if r.Sort == nil || len(r.Sort.Order) == 0 || r.Sort.Order[0].Value == nil {
		return nil, false
	}

	return r.Sort.Order[0].Value, true
}

// WithOrder returns a copy of r carrying order in both sort and the "order" metadata entry.
func (r Relation) WithOrder(order int) Relation {
	out := r.Clone()
	metadata := make([]MetadataEntry, 0, len(out.Metadata)+1)

	for _, entry := range out.Metadata {
		if entry.Key != constants.MetadataKeyOrder {
			metadata = append(metadata, entry)
		}
	}

	out.Metadata = append(metadata, MetadataEntry{Key: constants.MetadataKeyOrder, Value: order})
	out.Sort = &Sort{Order: []OrderValue{{Value: order}}}

	return out
}

func (r Relation) Clone() Relation {
	var out Relation
	if err := deepcopy.Copy(&out, &r); err != nil {
		// Relation only holds JSON-compatible values.
		panic(fmt.Sprintf("failed to copy relation %s/%s: %v", r.Type, r.Key, err))
	}

	return out
}

// OrderKey parses an order value into a bucket key. Only non-negative integers
// (or their decimal string form) are numeric.
func OrderKey(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v >= 0
	case int32:
		return int(v), v >= 0
	case int64:
		return int(v), v >= 0
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return 0, false
		}

		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || strconv.Itoa(n) != v {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	out := &Document{}
	if err := deepcopy.Copy(out, d); err != nil {
		panic(fmt.Sprintf("failed to copy document %s: %v", d.ID, err))
	}

	return out
}

func (d *Document) RelationsOfType(relationType string) []Relation {
	var out []Relation

	for _, relation := range d.Relations {
		if relation.Type == relationType {
			out = append(out, relation)
		}
	}

	return out
}

// RemoveRelationsOfType strips every relation of the type and returns the removed ones.
func (d *Document) RemoveRelationsOfType(relationType string) []Relation {
	var removed []Relation

	kept := d.Relations[:0:0]

	for _, relation := range d.Relations {
		if relation.Type == relationType {
			removed = append(removed, relation)

			continue
		}

		kept = append(kept, relation)
	}

	d.Relations = kept

	return removed
}

func (d *Document) HasRelation(key, relationType string) bool {
	return slices.ContainsFunc(d.Relations, func(r Relation) bool {
		return r.Key == key && r.Type == relationType
	})
}

func (d *Document) HasIdentifier(identifier string) bool {
	return slices.Contains(d.Identifiers, identifier)
}

// AddIdentifier appends identifier unless already present.
func (d *Document) AddIdentifier(identifier string) {
	if identifier == "" || d.HasIdentifier(identifier) {
		return
	}

	d.Identifiers = append(d.Identifiers, identifier)
}

// RemoveIdentifier drops every occurrence of identifier.
func (d *Document) RemoveIdentifier(identifier string) {
	d.Identifiers = slices.DeleteFunc(d.Identifiers, func(s string) bool { return s == identifier })
}

// DedupeIdentifiers removes duplicates, keeping first occurrences in order.
func (d *Document) DedupeIdentifiers() {
	seen := make(map[string]struct{}, len(d.Identifiers))
	out := d.Identifiers[:0:0]

	for _, identifier := range d.Identifiers {
		if _, ok := seen[identifier]; ok {
			continue
		}

		seen[identifier] = struct{}{}
		out = append(out, identifier)
	}

	d.Identifiers = out
}

func (d *Document) Property(name string) (interface{}, bool) {
	v, ok := d.Properties[name]

	return v, ok
}

// StringProperty returns the property as a string, or "" when absent or not a string.
func (d *Document) StringProperty(name string) string {
	v, _ := d.Properties[name].(string)

	return v
}

func (d *Document) SetProperty(name string, value interface{}) {
	if d.Properties == nil {
		d.Properties = make(map[string]interface{})
	}

	d.Properties[name] = value
}

// MergeRelations merges incoming into existing by (key, type). A matching
// relation is replaced in place, others are appended. The bool reports whether
// the result differs from existing.
func MergeRelations(existing, incoming []Relation) ([]Relation, bool) {
	out := make([]Relation, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	changed := false

	for _, relation := range incoming {
		idx := slices.IndexFunc(out, relation.Matches)
		if idx < 0 {
			out = append(out, relation)
			changed = true

			continue
		}

		if !EqualRelations([]Relation{out[idx]}, []Relation{relation}) {
			out[idx] = relation
			changed = true
		}
	}

	return out, changed
}

// RemoveRelation drops every relation matching (key, type).
func RemoveRelation(relations []Relation, key, relationType string) ([]Relation, bool) {
	out := make([]Relation, 0, len(relations))

	for _, relation := range relations {
		if relation.Key == key && relation.Type == relationType {
			continue
		}

		out = append(out, relation)
	}

	return out, len(out) != len(relations)
}
