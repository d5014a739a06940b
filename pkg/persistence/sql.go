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
	"regexp"
	"sort"
	"strings"
)

var fieldPathPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// Dialect renders the JSON accessors of one SQL driver.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// Extract renders the scalar at path as a comparable SQL expression.
	Extract(path string) string
	// ArrayContains renders "the array at path holds the bound value".
	ArrayContains(path string, arg string) string
	// ArrayElemMatch renders "the array at path holds an object with these field values".
	ArrayElemMatch(path string, fields []string, args []string) string
}

// BuildWhere translates the conditions of q that the dialect can express.
// Conditions it cannot express are left out; callers run Apply on the rows
// afterwards, so the WHERE clause only narrows the scan.
func BuildWhere(q Query, d Dialect) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	render := func(c FilterCondition) (string, bool) {
		if !fieldPathPattern.MatchString(c.Field) {
			return "", false
		}

		switch c.Op {
		case Eq:
			if !isScalar(c.Value) {
				return "", false
			}

			args = append(args, c.Value)

			return fmt.Sprintf("%s = %s", d.Extract(c.Field), d.Placeholder(len(args))), true
		case Contains:
			if !isScalar(c.Value) {
				return "", false
			}

			args = append(args, c.Value)

			return d.ArrayContains(c.Field, d.Placeholder(len(args))), true
		case ElemMatch:
			criteria, ok := c.Value.(map[string]interface{})
			if !ok || len(criteria) == 0 {
				return "", false
			}

			keys := make([]string, 0, len(criteria))
			for key := range criteria {
				if !fieldPathPattern.MatchString(key) || !isScalar(criteria[key]) {
					return "", false
				}

				keys = append(keys, key)
			}

			sort.Strings(keys)

			placeholders := make([]string, len(keys))
			for i, key := range keys {
				args = append(args, criteria[key])
				placeholders[i] = d.Placeholder(len(args))
			}

			return d.ArrayElemMatch(c.Field, keys, placeholders), true
		default:
			return "", false
		}
	}

	for _, condition := range q.Filters {
		mark := len(args)

		clause, ok := render(condition)
		if !ok {
			args = args[:mark]

			continue
		}

		clauses = append(clauses, clause)
	}

	if len(q.AnyOf) > 0 {
		mark := len(args)
		alternatives := make([]string, 0, len(q.AnyOf))

		for _, condition := range q.AnyOf {
			clause, ok := render(condition)
			if !ok {
				alternatives = nil
				args = args[:mark]

				break
			}

			alternatives = append(alternatives, clause)
		}

		if len(alternatives) > 0 {
			clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
