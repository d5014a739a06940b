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
	"fmt"
	"slices"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
)

// Delta is the set of relations a write added to and removed from a document.
type Delta struct {
	Created []document.Relation
	Deleted []document.Relation
}

func (d Delta) IsEmpty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0
}

func (d Delta) String() string {
	return fmt.Sprintf("created=%d deleted=%d", len(d.Created), len(d.Deleted))
}

// Diff matches relations by (key, type). Either side may be nil.
func Diff(previous, current *document.Document) Delta {
	var prevRelations, currRelations []document.Relation

	if previous != nil {
		prevRelations = previous.Relations
	}

	if current != nil {
		currRelations = current.Relations
	}

	return Delta{
		Created: missingFrom(currRelations, prevRelations),
		Deleted: missingFrom(prevRelations, currRelations),
	}
}

// DeltaFor returns the delta of a primary write. A delete removes every
// relation the document held.
func DeltaFor(op document.Operation, previous, current *document.Document) Delta {
	if op != document.OperationDelete {
		return Diff(previous, current)
	}

	source := current
	if source == nil {
		source = previous
	}

	if source == nil {
		return Delta{}
	}

	return Delta{Deleted: slices.Clone(source.Relations)}
}

// missingFrom returns the relations of from that have no (key, type) match in other.
func missingFrom(from, other []document.Relation) []document.Relation {
	var out []document.Relation

	for _, relation := range from {
		if !slices.ContainsFunc(other, relation.Matches) {
			out = append(out, relation)
		}
	}

	return out
}
