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

package persistence

// DefaultMaxFindLimit caps Find results when a query sets no limit.
const DefaultMaxFindLimit = 1000

type Operator string

const (
	Eq  Operator = "$eq"
	Ne  Operator = "$ne"
	Gt  Operator = "$gt"
	Gte Operator = "$gte"
	Lt  Operator = "$lt"
	Lte Operator = "$lte"
	In  Operator = "$in"
	Nin Operator = "$nin"
	// Contains matches array fields holding Value.
	Contains Operator = "$contains"
	// ElemMatch matches array fields holding an object whose fields equal every
	// entry of Value (a map[string]interface{}).
	ElemMatch Operator = "$elemMatch"
)

// FilterCondition tests Field (a dotted path) against Value.
type FilterCondition struct {
	Field string
	Op    Operator
	Value interface{}
}

type SortOrder int

const (
	Asc  SortOrder = 1
	Desc SortOrder = -1
)

type SortField struct {
	Field string
	Order SortOrder
}

// Query selects documents matching every condition in Filters and, when AnyOf
// is non-empty, at least one condition in AnyOf.
type Query struct {
	Filters    []FilterCondition
	AnyOf      []FilterCondition
	SortBy     []SortField
	LimitCount int
	SkipCount  int
}

// NewQuery starts an empty query matching every document.
//
//	q := persistence.NewQuery().
//		Filter("type", persistence.Eq, "mediafile").
//		Or("identifiers", persistence.Contains, id).
//		Limit(100)
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Filter(field string, op Operator, value interface{}) *Query {
	q.Filters = append(q.Filters, FilterCondition{Field: field, Op: op, Value: value})

	return q
}

// Or adds an alternative condition to the AnyOf group.
func (q *Query) Or(field string, op Operator, value interface{}) *Query {
	q.AnyOf = append(q.AnyOf, FilterCondition{Field: field, Op: op, Value: value})

	return q
}

func (q *Query) Sort(field string, order SortOrder) *Query {
	q.SortBy = append(q.SortBy, SortField{Field: field, Order: order})

	return q
}

func (q *Query) Limit(count int) *Query {
	if count < 0 {
		count = 0
	}

	q.LimitCount = count

	return q
}

func (q *Query) Skip(count int) *Query {
	if count < 0 {
		count = 0
	}

	q.SkipCount = count

	return q
}

// EffectiveLimit returns LimitCount, or DefaultMaxFindLimit when unset.
func (q Query) EffectiveLimit() int {
	if q.LimitCount <= 0 {
		return DefaultMaxFindLimit
	}

	return q.LimitCount
}
