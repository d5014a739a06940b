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

package relations

import (
	"context"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

// VirtualExpander strips virtual relation types from a document and mirrors
// them onto their targets.
type VirtualExpander struct {
	rules  Rules
	syncer Syncer
}

func NewVirtualExpander(rules Rules, syncer Syncer) *VirtualExpander {
	if rules == nil || syncer == nil {
		panic("NewVirtualExpander: rules and syncer must not be nil")
	}

	return &VirtualExpander{rules: rules, syncer: syncer}
}

// Expand strips every virtual relation type from doc and writes the stripped
// relations as reverse edges on their targets instead.
func (v *VirtualExpander) Expand(ctx context.Context, doc *document.Document, opts document.HookOptions) *document.Document {
	for _, relationType := range v.rules.VirtualRelationTypes(doc.Type) {
		created := doc.RemoveRelationsOfType(relationType)
		if len(created) == 0 {
			continue
		}

		v.syncer.Sync(ctx, doc, Delta{Created: created}, opts)
	}

	return doc
}
