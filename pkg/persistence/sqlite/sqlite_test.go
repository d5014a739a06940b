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

package sqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/sqlite"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *sqlite.Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = sqlite.NewStore(filepath.Join(GinkgoT().TempDir(), "relsync.db"))
		Expect(err).NotTo(HaveOccurred())

		DeferCleanup(func() {
			_ = store.Close(context.Background())
		})
	})

	It("creates collections on first insert", func() {
		_, err := store.Insert(ctx, "entities", persistence.Document{"id": "a1", "type": "asset"})
		Expect(err).NotTo(HaveOccurred())

		got, err := store.Get(ctx, "entities", "a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveKeyWithValue("type", "asset"))
	})

	It("maps duplicate ids to ErrConflict", func() {
		_, err := store.Insert(ctx, "entities", persistence.Document{"id": "a1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Insert(ctx, "entities", persistence.Document{"id": "a1"})
		Expect(err).To(MatchError(persistence.ErrConflict))
	})

	It("maps missing tables and rows to ErrNotFound", func() {
		_, err := store.Get(ctx, "nothing_here", "a1")
		Expect(err).To(MatchError(persistence.ErrNotFound))

		Expect(store.Update(ctx, "nothing_here", "a1", persistence.Document{})).To(MatchError(persistence.ErrNotFound))

		Expect(store.CreateCollection(ctx, "entities")).To(Succeed())
		Expect(store.Delete(ctx, "entities", "a1")).To(MatchError(persistence.ErrNotFound))

		found, err := store.Find(ctx, "nothing_here", *persistence.NewQuery())
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeEmpty())
	})

	It("updates under the given id", func() {
		_, err := store.Insert(ctx, "entities", persistence.Document{"id": "a1", "v": 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Update(ctx, "entities", "a1", persistence.Document{"id": "other", "v": 2})).To(Succeed())

		got, err := store.Get(ctx, "entities", "a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveKeyWithValue("id", "a1"))
		Expect(got).To(HaveKeyWithValue("v", 2.0))
	})

	It("finds origins and derivatives through JSON conditions", func() {
		for _, doc := range []persistence.Document{
			{"id": "o1", "identifiers": []interface{}{"o1", "a1"}},
			{"id": "o2", "identifiers": []interface{}{"o2"}, "properties": map[string]interface{}{"elody_id": "a1"}},
			{"id": "o3", "identifiers": []interface{}{"o3"}},
		} {
			_, err := store.Insert(ctx, "origins", doc)
			Expect(err).NotTo(HaveOccurred())
		}

		q := persistence.NewQuery().
			Or("identifiers", persistence.Contains, "a1").
			Or("properties.elody_id", persistence.Eq, "a1")

		found, err := store.Find(ctx, "origins", *q)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(2))
		Expect(found[0].ID()).To(Equal("o1"))
		Expect(found[1].ID()).To(Equal("o2"))

		_, err = store.Insert(ctx, "mediafiles", persistence.Document{
			"id":   "t1",
			"type": "mediafile",
			"relations": []interface{}{
				map[string]interface{}{"key": "m1", "type": "isTranscodeFor"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		derivatives := persistence.NewQuery().
			Filter("type", persistence.Eq, "mediafile").
			Or("relations", persistence.ElemMatch, map[string]interface{}{"type": "isTranscodeFor", "key": "m1"})

		found, err = store.Find(ctx, "mediafiles", *derivatives)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(1))
	})

	It("rejects unsafe collection names", func() {
		_, err := store.Insert(ctx, "entities; DROP TABLE x", persistence.Document{"id": "a1"})
		Expect(err).To(HaveOccurred())
	})
})
