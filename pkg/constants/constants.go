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

package constants

import "time"

const (
	DefaultAppVersion             = "0.0.0-dev"
	DefaultDevelopmentEnvironment = "development"
	DefaultProductionEnvironment  = "production"
)

// Collections.
const (
	CollectionEntities          = "entities"
	CollectionEntitiesHistory   = "entities_history"
	CollectionMediafiles        = "mediafiles"
	CollectionMediafilesHistory = "mediafiles_history"
	CollectionOrigins           = "origins"
)

// Document types with dedicated behaviour.
const (
	TypeAsset     = "asset"
	TypeMediafile = "mediafile"
	TypeDownload  = "download"
	TypeSet       = "set"
)

// Relation types referenced by the hooks.
const (
	RelationHasOrigin       = "hasOrigin"
	RelationHasAsset        = "hasAsset"
	RelationHasOcr          = "hasOcr"
	RelationHasAssetPart    = "hasAssetPart"
	RelationHasMediafile    = "hasMediafile"
	RelationIsAssetPartFor  = "isAssetPartFor"
	RelationIsTranscodeFor  = "isTranscodeFor"
	RelationIsMediafileFor  = "isMediafileFor"
	RelationIsOcrFor        = "isOcrFor"
	MetadataKeyOrder        = "order"
	PropertyFilename        = "filename"
	PropertyOriginalName    = "original_filename"
	PropertyMD5Sum          = "md5sum"
	PropertyTechnicalOrigin = "technical_origin"
	PropertyRefAssets       = "ref_assets"
	PropertyElodyID         = "elody_id"
	TechnicalOriginOriginal = "original"
)

// Events and runtime defaults.
const (
	DefaultExchange            = "dams"
	EventHistoryCreate         = "collection.document.history.create"
	EventMediafileDeleted      = "dams.mediafile_deleted"
	DefaultActor               = "dams"
	DefaultSchemaType          = "dams"
	DefaultSchemaVersion       = 1
	UnboundedSearchLimit       = 999999
	DefaultHistoryQueueSize    = 1024
	DefaultResolverCacheTTL    = 5 * time.Minute
	DefaultResolverCullPeriod  = time.Minute
	DefaultStoreOperationLimit = 5 * time.Second
)
