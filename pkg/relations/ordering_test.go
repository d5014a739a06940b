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

package relations_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/registry"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/relations"
)

var _ = Describe("OrderingResolver", func() {
	var (
		ctx      context.Context
		syncer   *recordingSyncer
		resolver *relations.OrderingResolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		syncer = &recordingSyncer{}
		resolver = relations.NewOrderingResolver(registry.Default(), syncer, nil)
	})

	It("renumbers ordered relations from one", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			rel("i1", "isIn"),
			orderedRel("m3", "hasMediafile", 5),
			rel("m4", "hasMediafile"),
			orderedRel("m1", "hasMediafile", "2"),
			orderedRel("m5", "hasMediafile", "first"),
			orderedRel("m2", "hasMediafile", 2),
		}}

		resolver.Resolve(ctx, document.OperationCreate, doc, document.HookOptions{})

		Expect(keys(doc.Relations)).To(Equal([]string{"i1", "m1", "m2", "m3", "m4", "m5"}))
		Expect(orders(doc.Relations[1:])).To(Equal([]interface{}{1, 2, 3, 4, 5}))

		Expect(syncer.deltas).To(HaveLen(1))
		Expect(keys(syncer.deltas[0].Created)).To(Equal([]string{"m1", "m2", "m3", "m4", "m5"}))
		Expect(syncer.deltas[0].Deleted).To(BeEmpty())
	})

	It("numbers each ordered type on its own", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			rel("m1", "hasMediafile"),
			rel("p1", "hasAssetPart"),
			rel("m2", "hasMediafile"),
		}}

		resolver.Resolve(ctx, document.OperationCreate, doc, document.HookOptions{})

		Expect(orders(doc.RelationsOfType("hasMediafile"))).To(Equal([]interface{}{1, 2}))
		Expect(orders(doc.RelationsOfType("hasAssetPart"))).To(Equal([]interface{}{1}))
		Expect(syncer.deltas).To(HaveLen(2))
	})

	It("writes the order into the relation metadata", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{rel("m1", "hasMediafile")}}

		resolver.Resolve(ctx, document.OperationCreate, doc, document.HookOptions{})

		Expect(doc.Relations[0].Metadata).To(ContainElement(document.MetadataEntry{Key: "order", Value: 1}))
	})

	It("leaves partially ordered relations alone on update", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			orderedRel("m1", "hasMediafile", 7),
			rel("m2", "hasMediafile"),
		}}

		resolver.Resolve(ctx, document.OperationUpdate, doc, document.HookOptions{})

		Expect(orders(doc.Relations)).To(Equal([]interface{}{7, nil}))
		Expect(syncer.deltas).To(BeEmpty())
	})

	It("renumbers fully ordered relations on update", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			orderedRel("m1", "hasMediafile", 7),
			orderedRel("m2", "hasMediafile", 3),
		}}

		resolver.Resolve(ctx, document.OperationUpdate, doc, document.HookOptions{DryRun: true})

		Expect(keys(doc.Relations)).To(Equal([]string{"m2", "m1"}))
		Expect(orders(doc.Relations)).To(Equal([]interface{}{1, 2}))
		Expect(syncer.opts).To(Equal([]document.HookOptions{{DryRun: true}}))
	})

	It("numbers relations without any order on update", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			rel("m2", "hasMediafile"),
			rel("m1", "hasMediafile"),
		}}

		resolver.Resolve(ctx, document.OperationUpdate, doc, document.HookOptions{})

		Expect(keys(doc.Relations)).To(Equal([]string{"m2", "m1"}))
		Expect(orders(doc.Relations)).To(Equal([]interface{}{1, 2}))
		Expect(syncer.deltas).To(HaveLen(1))
		Expect(keys(syncer.deltas[0].Created)).To(Equal([]string{"m2", "m1"}))
	})

	It("keeps arrival order for duplicate order values", func() {
		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{
			orderedRel("m2", "hasMediafile", 1),
			orderedRel("m1", "hasMediafile", 1),
		}}

		resolver.Resolve(ctx, document.OperationCreate, doc, document.HookOptions{})

		Expect(keys(doc.Relations)).To(Equal([]string{"m2", "m1"}))
		Expect(orders(doc.Relations)).To(Equal([]interface{}{1, 2}))
	})

	It("does not keep virtual ordered relations on the document", func() {
		rules, err := registry.Parse([]byte(`
default:
  collection: entities
types:
  asset:
    ordered_relation_types: [hasMediafile]
    virtual_relation_types: [hasMediafile]
`))
		Expect(err).NotTo(HaveOccurred())

		doc := &document.Document{ID: "a1", Type: "asset", Relations: []document.Relation{rel("m1", "hasMediafile")}}

		relations.NewOrderingResolver(rules, syncer, nil).Resolve(ctx, document.OperationCreate, doc, document.HookOptions{})

		Expect(doc.Relations).To(BeEmpty())
		Expect(orders(syncer.deltas[0].Created)).To(Equal([]interface{}{1}))
	})
})
