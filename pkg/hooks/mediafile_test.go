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

package hooks_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/hooks"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

var _ = Describe("Mediafiles", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
		h.create(&document.Document{ID: "a1", Type: "asset"})
	})

	It("fills identifiers, access defaults and asset references on create", func() {
		created := h.create(&document.Document{
			ID:          "m1",
			Type:        "mediafile",
			Identifiers: []string{"legacy"},
			Relations:   []document.Relation{rel("a1", "isMediafileFor")},
			Properties: map[string]interface{}{
				"filename":         "front.jpg",
				"md5sum":           "d41d8cd9",
				"technical_origin": "original",
			},
		})

		Expect(created.Identifiers).To(Equal([]string{"m1", "front.jpg", "legacy", "d41d8cd9"}))
		Expect(created.Properties).To(HaveKeyWithValue("original_filename", "front.jpg"))
		Expect(created.Properties).To(HaveKeyWithValue("ref_assets", []interface{}{"a1"}))
		Expect(created.Metadata).To(ContainElements(
			document.MetadataEntry{Key: "access", Value: "closed"},
			document.MetadataEntry{Key: "quality_access", Value: "low"},
		))

		Expect(h.relationsOf("entities", "a1", "hasMediafile")).To(ConsistOf(HaveField("Key", "m1")))
	})

	It("keeps access metadata sent by the client and skips derived files", func() {
		created := h.create(&document.Document{
			ID:         "m1",
			Type:       "mediafile",
			Metadata:   []document.MetadataEntry{{Key: "access", Value: "open"}},
			Properties: map[string]interface{}{"technical_origin": "transcode"},
		})

		Expect(created.Metadata).To(Equal([]document.MetadataEntry{{Key: "access", Value: "open"}}))
		Expect(created.Properties).NotTo(HaveKey("ref_assets"))
	})

	It("points origin relations at the file identifier", func() {
		created := h.create(&document.Document{
			ID:       "m1",
			Type:     "mediafile",
			Metadata: []document.MetadataEntry{{Key: "file_identifier", Value: "F-1"}},
			Relations: []document.Relation{
				rel("upload-1", "hasOrigin"),
				rel("file", "hasOrigin"),
			},
		})

		origins := created.RelationsOfType("hasOrigin")
		Expect(origins).To(HaveLen(1))
		Expect(origins[0].Key).To(Equal("F-1"))
		Expect(origins[0].Label).To(Equal("upload-1"))
		Expect(created.Identifiers).To(ContainElement("F-1"))
	})

	It("keeps origin relations without a file identifier", func() {
		created := h.create(&document.Document{
			ID:        "m1",
			Type:      "mediafile",
			Relations: []document.Relation{rel("upload-1", "hasOrigin")},
		})

		Expect(created.RelationsOfType("hasOrigin")).To(ConsistOf(HaveField("Key", "upload-1")))
	})

	It("adds the checksum on update", func() {
		h.create(&document.Document{ID: "m1", Type: "mediafile"})

		updated, err := h.service.PatchDocument(h.ctx, "mediafiles", "m1", &document.Document{
			Properties: map[string]interface{}{"md5sum": "abc123"},
		}, "bob", document.HookOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Identifiers).To(ContainElement("abc123"))
	})

	It("deletes derivatives and announces the deletion", func() {
		h.create(&document.Document{ID: "m1", Type: "mediafile", Relations: []document.Relation{rel("a1", "isMediafileFor")}})
		h.create(&document.Document{ID: "t1", Type: "mediafile", Relations: []document.Relation{rel("m1", "isTranscodeFor")}})
		h.create(&document.Document{ID: "t2", Type: "mediafile", Relations: []document.Relation{rel("m9", "isTranscodeFor")}})

		Expect(h.service.DeleteDocument(h.ctx, "mediafiles", "m1", document.HookOptions{})).To(Succeed())

		_, err := h.service.GetDocument(h.ctx, "mediafiles", "t1")
		Expect(err).To(MatchError(persistence.ErrNotFound))
		h.get("mediafiles", "t2")

		Expect(h.relationsOf("entities", "a1", "hasMediafile")).To(BeEmpty())

		Expect(h.recorder.events).To(HaveLen(1))
		Expect(h.recorder.events[0].exchange).To(Equal("dams"))
		Expect(h.recorder.events[0].eventName).To(Equal("dams.mediafile_deleted"))

		payload, ok := h.recorder.events[0].data.(hooks.MediafileDeleted)
		Expect(ok).To(BeTrue())
		Expect(payload.Mediafile.ID).To(Equal("m1"))
		Expect(payload.LinkedEntities).To(BeEmpty())
	})
})
