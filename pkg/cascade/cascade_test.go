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

package cascade_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/cascade"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// fakeCollections answers searches with persistence.Match over encoded documents.
type fakeCollections struct {
	docs       map[string][]*document.Document
	deleted    []string
	limits     []int
	searchErr  error
	deleteErrs map[string]error
}

func (f *fakeCollections) Search(_ context.Context, query persistence.Query, collection string, limit int) ([]*document.Document, error) {
	f.limits = append(f.limits, limit)

	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var out []*document.Document

	for _, doc := range f.docs[collection] {
		encoded, err := document.Encode(doc)
		Expect(err).NotTo(HaveOccurred())

		if persistence.Match(encoded, query) {
			out = append(out, doc)
		}
	}

	return out, nil
}

func (f *fakeCollections) Delete(_ context.Context, collection string, target *document.Document) error {
	if err := f.deleteErrs[target.ID]; err != nil {
		return err
	}

	f.deleted = append(f.deleted, collection+"/"+target.ID)

	return nil
}

var _ = Describe("Deleter", func() {
	var (
		ctx         context.Context
		collections *fakeCollections
		deleter     *cascade.Deleter
	)

	BeforeEach(func() {
		ctx = context.Background()
		collections = &fakeCollections{
			docs: map[string][]*document.Document{
				"origins": {
					{ID: "o1", Type: "origin", Identifiers: []string{"o1", "a1"}},
					{ID: "o2", Type: "origin", Properties: map[string]interface{}{"elody_id": "a1"}},
					{ID: "o3", Type: "origin", Identifiers: []string{"o3", "a2"}},
					{ID: "a1", Type: "origin", Identifiers: []string{"a1"}},
				},
				"mediafiles": {
					{ID: "m1", Type: "mediafile"},
					{ID: "t1", Type: "mediafile", Relations: []document.Relation{{Key: "m1", Type: "isTranscodeFor"}}},
					{ID: "c1", Type: "mediafile", Relations: []document.Relation{{Key: "m1", Type: "isOcrFor"}}},
					{ID: "d1", Type: "mediafile", Relations: []document.Relation{{Key: "m1", Type: "isMediafileFor"}}},
					{ID: "x1", Type: "mediafile", Relations: []document.Relation{{Key: "m2", Type: "isTranscodeFor"}}},
					{ID: "n1", Type: "note", Relations: []document.Relation{{Key: "m1", Type: "isTranscodeFor"}}},
				},
			},
			deleteErrs: map[string]error{},
		}
		deleter = cascade.NewDeleter(collections, collections, "", nil)
	})

	Describe("DeleteOrigins", func() {
		It("removes origins by identifier and elody id", func() {
			deleted, err := deleter.DeleteOrigins(ctx, "a1")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(2))
			Expect(collections.deleted).To(Equal([]string{"origins/o1", "origins/o2"}))
			Expect(collections.limits).To(Equal([]int{999999}))
		})

		It("does nothing for an empty id", func() {
			deleted, err := deleter.DeleteOrigins(ctx, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
			Expect(collections.limits).To(BeEmpty())
		})

		It("continues after a failed deletion", func() {
			collections.deleteErrs["o1"] = errors.New("locked")

			deleted, err := deleter.DeleteOrigins(ctx, "a1")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(1))
			Expect(collections.deleted).To(Equal([]string{"origins/o2"}))
		})

		It("returns search failures", func() {
			collections.searchErr = errors.New("connection reset")

			_, err := deleter.DeleteOrigins(ctx, "a1")

			Expect(err).To(MatchError(ContainSubstring("connection reset")))
			Expect(collections.deleted).To(BeEmpty())
		})
	})

	Describe("DeleteDerivatives", func() {
		It("removes mediafiles derived from the id", func() {
			deleted, err := deleter.DeleteDerivatives(ctx, "mediafiles", "m1")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(3))
			Expect(collections.deleted).To(ConsistOf("mediafiles/t1", "mediafiles/c1", "mediafiles/d1"))
		})
	})

	It("builds the origin query as a disjunction", func() {
		query := cascade.OriginsQuery("a1")

		Expect(query.Filters).To(BeEmpty())
		Expect(query.AnyOf).To(ConsistOf(
			persistence.FilterCondition{Field: "identifiers", Op: persistence.Contains, Value: "a1"},
			persistence.FilterCondition{Field: "properties.elody_id", Op: persistence.Eq, Value: "a1"},
		))
	})
})
