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
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// Normalize replaces nil lists with empty ones so stored documents always carry them.
func (d *Document) Normalize() {
	if d.Identifiers == nil {
		d.Identifiers = []string{}
	}

	if d.Metadata == nil {
		d.Metadata = []MetadataEntry{}
	}

	if d.Relations == nil {
		d.Relations = []Relation{}
	}
}

// Encode converts d into the schemaless form kept by persistence.Store.
func Encode(d *Document) (persistence.Document, error) {
	d.Normalize()

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document %s: %w", d.ID, err)
	}

	var out persistence.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", d.ID, err)
	}

	return out, nil
}

// Decode converts a stored document back into the typed model.
func Decode(stored persistence.Document) (*Document, error) {
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stored document: %w", err)
	}

	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored document: %w", err)
	}

	out.Normalize()

	return &out, nil
}

// Fingerprint hashes the JSON form of v. Numbers that differ only in Go type
// (int vs float64 after a store round trip) hash the same.
func Fingerprint(v interface{}) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal value for fingerprint: %w", err)
	}

	return xxhash.Sum64(data), nil
}

// EqualRelations compares two relation lists by their JSON form.
func EqualRelations(a, b []Relation) bool {
	if len(a) != len(b) {
		return false
	}

	fa, errA := Fingerprint(a)
	fb, errB := Fingerprint(b)

	return errA == nil && errB == nil && fa == fb
}
