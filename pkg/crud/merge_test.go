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

package crud_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/crud"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

var _ = Describe("Merge", func() {
	var target *document.Document

	BeforeEach(func() {
		target = &document.Document{
			ID:          "a1",
			Type:        "asset",
			Identifiers: []string{"a1"},
			Metadata:    []document.MetadataEntry{{Key: "title", Value: "Old"}, {Key: "year", Value: 1900}},
			Relations:   []document.Relation{{Key: "m1", Type: "hasMediafile"}},
			Schema:      document.Schema{Type: "dams", Version: 1},
			Properties:  map[string]interface{}{"kept": true},
		}
	})

	It("adds without removing", func() {
		merged := crud.Merge(target, &document.Document{
			Identifiers: []string{"a1", "INV-1"},
			Metadata:    []document.MetadataEntry{{Key: "title", Value: "New"}, {Key: "author", Value: "Da Vinci"}},
			Relations:   []document.Relation{{Key: "m2", Type: "hasMediafile"}},
			Properties:  map[string]interface{}{"added": 1},
		})

		Expect(merged.Type).To(Equal("asset"))
		Expect(merged.Schema).To(Equal(target.Schema))
		Expect(merged.Identifiers).To(Equal([]string{"a1", "INV-1"}))
		Expect(merged.Metadata).To(Equal([]document.MetadataEntry{
			{Key: "title", Value: "New"},
			{Key: "year", Value: 1900},
			{Key: "author", Value: "Da Vinci"},
		}))
		Expect(merged.Relations).To(HaveLen(2))
		Expect(merged.Properties).To(HaveKeyWithValue("kept", true))
		Expect(merged.Properties).To(HaveKeyWithValue("added", 1))
	})

	It("replaces a relation with the same key and type in place", func() {
		merged := crud.Merge(target, &document.Document{Relations: []document.Relation{
			{Key: "m1", Type: "hasMediafile", Label: "front"},
		}})

		Expect(merged.Relations).To(HaveLen(1))
		Expect(merged.Relations[0].Label).To(Equal("front"))
	})

	It("does not modify the target", func() {
		crud.Merge(target, &document.Document{
			Type:     "asset_part",
			Metadata: []document.MetadataEntry{{Key: "title", Value: "New"}},
		})

		Expect(target.Type).To(Equal("asset"))
		Expect(target.Metadata[0].Value).To(Equal("Old"))
	})

	It("copies the target for a nil partial", func() {
		merged := crud.Merge(target, nil)

		Expect(merged).To(Equal(target))
		Expect(merged).NotTo(BeIdenticalTo(target))
	})
})
