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

package document_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

var _ = Describe("Codec", func() {
	It("round trips a document through the stored form", func() {
		doc := &document.Document{
			ID:   "a1",
			Type: "asset",
			Metadata: []document.MetadataEntry{
				{Key: "title", Value: "Mona Lisa", Lang: "en"},
			},
			Relations:  []document.Relation{ordered("m1", "hasMediafile", 1)},
			Schema:     document.Schema{Type: "dams", Version: 1},
			Properties: map[string]interface{}{"filename": "a.jpg"},
		}

		stored, err := document.Encode(doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.ID()).To(Equal("a1"))
		Expect(stored["identifiers"]).To(Equal([]interface{}{}))

		decoded, err := document.Decode(stored)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.ID).To(Equal("a1"))
		Expect(decoded.Metadata[0].Lang).To(Equal("en"))
		Expect(decoded.StringProperty("filename")).To(Equal("a.jpg"))
		Expect(document.EqualRelations(decoded.Relations, doc.Relations)).To(BeTrue())
	})

	It("normalizes missing lists on decode", func() {
		decoded, err := document.Decode(map[string]interface{}{"id": "x", "type": "asset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Identifiers).NotTo(BeNil())
		Expect(decoded.Relations).NotTo(BeNil())
		Expect(decoded.Metadata).NotTo(BeNil())
	})

	It("fingerprints equal values equally", func() {
		a, err := document.Fingerprint(map[string]interface{}{"n": 1})
		Expect(err).NotTo(HaveOccurred())

		b, err := document.Fingerprint(map[string]interface{}{"n": 1.0})
		Expect(err).NotTo(HaveOccurred())

		c, err := document.Fingerprint(map[string]interface{}{"n": 2})
		Expect(err).NotTo(HaveOccurred())

		Expect(a).To(Equal(b))
		Expect(a).NotTo(Equal(c))
	})
})
