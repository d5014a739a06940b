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

package memory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence/memory"
)

var _ = Describe("InMemoryStore", func() {
	var (
		ctx   context.Context
		store *memory.InMemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewInMemoryStore()
	})

	It("inserts and reads back a copy", func() {
		doc := persistence.Document{"id": "a1", "tags": []interface{}{"x"}}

		id, err := store.Insert(ctx, "entities", doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("a1"))

		doc["tags"].([]interface{})[0] = "mutated"

		got, err := store.Get(ctx, "entities", "a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got["tags"]).To(Equal([]interface{}{"x"}))
	})

	It("rejects duplicate ids and documents without id", func() {
		_, err := store.Insert(ctx, "entities", persistence.Document{"id": "a1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Insert(ctx, "entities", persistence.Document{"id": "a1"})
		Expect(err).To(MatchError(persistence.ErrConflict))

		_, err = store.Insert(ctx, "entities", persistence.Document{"name": "x"})
		Expect(err).To(HaveOccurred())
	})

	It("reports missing documents", func() {
		_, err := store.Get(ctx, "entities", "nope")
		Expect(err).To(MatchError(persistence.ErrNotFound))

		Expect(store.Update(ctx, "entities", "nope", persistence.Document{})).To(MatchError(persistence.ErrNotFound))
		Expect(store.Delete(ctx, "entities", "nope")).To(MatchError(persistence.ErrNotFound))
	})

	It("updates and deletes", func() {
		_, err := store.Insert(ctx, "entities", persistence.Document{"id": "a1", "v": 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Update(ctx, "entities", "a1", persistence.Document{"v": 2})).To(Succeed())

		got, err := store.Get(ctx, "entities", "a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(persistence.Document{"id": "a1", "v": 2}))

		Expect(store.Delete(ctx, "entities", "a1")).To(Succeed())

		_, err = store.Get(ctx, "entities", "a1")
		Expect(err).To(MatchError(persistence.ErrNotFound))
	})

	It("finds by query ordered by id", func() {
		for _, doc := range []persistence.Document{
			{"id": "o3", "identifiers": []interface{}{"a1"}},
			{"id": "o1", "identifiers": []interface{}{"a1", "o1"}},
			{"id": "o2", "identifiers": []interface{}{"b1"}},
		} {
			_, err := store.Insert(ctx, "origins", doc)
			Expect(err).NotTo(HaveOccurred())
		}

		found, err := store.Find(ctx, "origins", *persistence.NewQuery().Filter("identifiers", persistence.Contains, "a1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(2))
		Expect(found[0].ID()).To(Equal("o1"))
		Expect(found[1].ID()).To(Equal("o3"))

		found, err = store.Find(ctx, "unknown", *persistence.NewQuery())
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeEmpty())
	})

	It("fails every call once closed", func() {
		Expect(store.Close(ctx)).To(Succeed())
		Expect(store.Ping(ctx)).To(MatchError(persistence.ErrClosed))

		_, err := store.Get(ctx, "entities", "a1")
		Expect(err).To(MatchError(persistence.ErrClosed))

		Expect(store.Close(ctx)).NotTo(Succeed())
	})

	It("honours a cancelled context", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Insert(cancelled, "entities", persistence.Document{"id": "a1"})
		Expect(err).To(MatchError(context.Canceled))
	})
})
