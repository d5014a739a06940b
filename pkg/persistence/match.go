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

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Lookup resolves a dotted path against nested maps.
func Lookup(doc Document, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(doc)

	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Match reports whether doc satisfies the filters of q.
func Match(doc Document, q Query) bool {
	for _, condition := range q.Filters {
		if !matchCondition(doc, condition) {
			return false
		}
	}

	if len(q.AnyOf) == 0 {
		return true
	}

	for _, condition := range q.AnyOf {
		if matchCondition(doc, condition) {
			return true
		}
	}

	return false
}

// Apply filters, sorts, skips and limits docs according to q.
func Apply(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))

	for _, doc := range docs {
		if Match(doc, q) {
			out = append(out, doc)
		}
	}

	if len(q.SortBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, field := range q.SortBy {
				a, _ := Lookup(out[i], field.Field)
				b, _ := Lookup(out[j], field.Field)

				c := compare(a, b)
				if c == 0 {
					continue
				}

				if field.Order == Desc {
					return c > 0
				}

				return c < 0
			}

			return false
		})
	}

	if q.SkipCount >= len(out) {
		return []Document{}
	}

	out = out[q.SkipCount:]

	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}

	return out
}

func matchCondition(doc Document, condition FilterCondition) bool {
	value, found := Lookup(doc, condition.Field)

	switch condition.Op {
	case Eq:
		return found && equal(value, condition.Value)
	case Ne:
		return !found || !equal(value, condition.Value)
	case Gt:
		return found && compare(value, condition.Value) > 0
	case Gte:
		return found && compare(value, condition.Value) >= 0
	case Lt:
		return found && compare(value, condition.Value) < 0
	case Lte:
		return found && compare(value, condition.Value) <= 0
	case In:
		return found && containsValue(condition.Value, value)
	case Nin:
		return !found || !containsValue(condition.Value, value)
	case Contains:
		return found && containsValue(value, condition.Value)
	case ElemMatch:
		return found && elemMatch(value, condition.Value)
	default:
		return false
	}
}

func elemMatch(list interface{}, criteria interface{}) bool {
	fields, ok := criteria.(map[string]interface{})
	if !ok {
		return false
	}

	items, ok := list.([]interface{})
	if !ok {
		return false
	}

	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		matched := true

		for key, want := range fields {
			if got, ok := obj[key]; !ok || !equal(got, want) {
				matched = false

				break
			}
		}

		if matched {
			return true
		}
	}

	return false
}

func containsValue(list interface{}, value interface{}) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}

	for i := range rv.Len() {
		if equal(rv.Index(i).Interface(), value) {
			return true
		}
	}

	return false
}

func equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}

	return reflect.DeepEqual(a, b)
}

func compare(a, b interface{}) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
