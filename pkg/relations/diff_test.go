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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/relations"
)

var _ = Describe("Diff", func() {
	previous := &document.Document{ID: "a1", Relations: []document.Relation{
		rel("m1", "hasMediafile"),
		rel("m2", "hasMediafile"),
	}}
	current := &document.Document{ID: "a1", Relations: []document.Relation{
		orderedRel("m1", "hasMediafile", 1),
		rel("m3", "hasMediafile"),
	}}

	It("matches relations by key and type only", func() {
		delta := relations.Diff(previous, current)

		Expect(keys(delta.Created)).To(Equal([]string{"m3"}))
		Expect(keys(delta.Deleted)).To(Equal([]string{"m2"}))
		Expect(delta.String()).To(Equal("created=1 deleted=1"))
	})

	It("treats a missing side as empty", func() {
		Expect(keys(relations.Diff(nil, current).Created)).To(Equal([]string{"m1", "m3"}))
		Expect(keys(relations.Diff(previous, nil).Deleted)).To(Equal([]string{"m1", "m2"}))
		Expect(relations.Diff(nil, nil).IsEmpty()).To(BeTrue())
	})

	It("deletes every relation on delete", func() {
		delta := relations.DeltaFor(document.OperationDelete, previous, nil)

		Expect(delta.Created).To(BeEmpty())
		Expect(keys(delta.Deleted)).To(Equal([]string{"m1", "m2"}))
		Expect(relations.DeltaFor(document.OperationDelete, nil, nil).IsEmpty()).To(BeTrue())
	})

	It("diffs on create and update", func() {
		Expect(keys(relations.DeltaFor(document.OperationCreate, nil, current).Created)).To(Equal([]string{"m1", "m3"}))
		Expect(relations.DeltaFor(document.OperationUpdate, previous, current)).To(Equal(relations.Diff(previous, current)))
	})
})
