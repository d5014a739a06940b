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

package identifiers_test

import (
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/identifiers"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/registry"
)

func withInventory(doc *document.Document, value interface{}) *document.Document {
	doc.Metadata = append(doc.Metadata, document.MetadataEntry{Key: "inventory", Value: value})

	return doc
}

var _ = Describe("Derive", func() {
	It("is stable per value", func() {
		Expect(identifiers.Derive("INV-1")).To(Equal(identifiers.Derive("INV-1")))
		Expect(identifiers.Derive("INV-1")).NotTo(Equal(identifiers.Derive("INV-2")))
	})

	It("uses the string form of the value", func() {
		Expect(identifiers.Derive(42)).To(Equal(identifiers.Derive("42")))
	})
})

var _ = Describe("Synchronizer", func() {
	var sync *identifiers.Synchronizer

	BeforeEach(func() {
		rules, err := registry.Parse([]byte(`
default:
  collection: entities
  origin_relation_type: hasOrigin
types:
  asset:
    unique_field: metadata.inventory.value
`))
		Expect(err).NotTo(HaveOccurred())

		sync = identifiers.NewSynchronizer(rules, nil)
	})

	Describe("SyncOrigins", func() {
		It("adds the id and origin keys without duplicates", func() {
			doc := &document.Document{
				ID:          "a1",
				Type:        "asset",
				Identifiers: []string{"legacy", "o1"},
				Relations: []document.Relation{
					{Key: "o1", Type: "hasOrigin"},
					{Key: "o2", Type: "hasOrigin"},
					{Key: "m1", Type: "hasMediafile"},
				},
			}

			sync.SyncOrigins(doc)

			Expect(doc.Identifiers).To(Equal([]string{"legacy", "o1", "a1", "o2"}))
		})

		It("is idempotent", func() {
			doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{{Key: "o1", Type: "hasOrigin"}}}

			sync.SyncOrigins(doc)
			sync.SyncOrigins(doc)

			Expect(doc.Identifiers).To(Equal([]string{"a1", "o1"}))
		})
	})

	Describe("SyncUniqueField", func() {
		It("adds the derived identifier on create", func() {
			doc := withInventory(&document.Document{ID: "a1", Type: "asset"}, "INV-1")

			sync.SyncUniqueField(document.OperationCreate, doc, nil)

			Expect(doc.Identifiers).To(Equal([]string{identifiers.Derive("INV-1")}))
		})

		It("swaps the derived identifier when the value changes and back", func() {
			first := withInventory(&document.Document{ID: "a1", Type: "asset", Identifiers: []string{"a1"}}, "INV-1")
			sync.SyncUniqueField(document.OperationCreate, first, nil)

			second := withInventory(&document.Document{ID: "a1", Type: "asset", Identifiers: slices.Clone(first.Identifiers)}, "INV-2")
			sync.SyncUniqueField(document.OperationUpdate, second, first)

			Expect(second.Identifiers).To(Equal([]string{"a1", identifiers.Derive("INV-2")}))

			third := withInventory(&document.Document{ID: "a1", Type: "asset", Identifiers: slices.Clone(second.Identifiers)}, "INV-1")
			sync.SyncUniqueField(document.OperationUpdate, third, second)

			Expect(third.Identifiers).To(Equal(first.Identifiers))
		})

		It("removes the derived identifier when the field is cleared", func() {
			previous := withInventory(&document.Document{ID: "a1", Type: "asset"}, "INV-1")
			sync.SyncUniqueField(document.OperationCreate, previous, nil)

			doc := &document.Document{ID: "a1", Type: "asset", Identifiers: slices.Clone(previous.Identifiers)}
			sync.SyncUniqueField(document.OperationUpdate, doc, previous)

			Expect(doc.Identifiers).To(BeEmpty())
		})

		It("leaves identifiers alone when the value is unchanged", func() {
			previous := withInventory(&document.Document{ID: "a1", Type: "asset"}, "INV-1")
			doc := withInventory(&document.Document{ID: "a1", Type: "asset", Identifiers: []string{"a1"}}, "INV-1")

			sync.SyncUniqueField(document.OperationUpdate, doc, previous)

			Expect(doc.Identifiers).To(Equal([]string{"a1"}))
		})

		It("ignores deletes and types without a unique field", func() {
			doc := withInventory(&document.Document{ID: "a1", Type: "asset"}, "INV-1")
			sync.SyncUniqueField(document.OperationDelete, doc, nil)
			Expect(doc.Identifiers).To(BeEmpty())

			other := withInventory(&document.Document{ID: "m1", Type: "mediafile"}, "INV-1")
			sync.SyncUniqueField(document.OperationCreate, other, nil)
			Expect(other.Identifiers).To(BeEmpty())
		})
	})
})
