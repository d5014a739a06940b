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

	"github.com/united-manufacturing-hub/dams-relsync/pkg/relations"
)

var _ = DescribeTable("RelatedType",
	func(relationType, targetType, expected string) {
		Expect(relations.RelatedType(relationType, targetType)).To(Equal(expected))
	},
	Entry("has type names the suffix", "hasMediafile", "mediafile", "Mediafile"),
	Entry("other types use the target type", "isMediafileFor", "asset", "asset"),
	Entry("falls back to the relation type", "isIn", "", "isIn"),
)

var _ = DescribeTable("ReverseType",
	func(relationType, relatedType, ownerType, expected string) {
		Expect(relations.ReverseType(relationType, relatedType, ownerType)).To(Equal(expected))
	},
	Entry("hasMediafile", "hasMediafile", "Mediafile", "asset", "isMediafileFor"),
	Entry("hasAssetPart", "hasAssetPart", "AssetPart", "asset", "isAssetPartFor"),
	Entry("lower-case related type", "hasPhotographer", "photographer", "asset", "isPhotographerFor"),
	Entry("isMediafileFor", "isMediafileFor", "asset", "mediafile", "hasMediafile"),
	Entry("isAssetPartFor", "isAssetPartFor", "asset", "asset", "hasAsset"),
	Entry("snake-cased owner type", "isIn", "set", "asset_part", "hasAssetPart"),
)
