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
	"strings"
	"unicode"
	"unicode/utf8"
)

const hasPrefix = "has"

// RelatedType is the type named by a "has…" relation, or the target's own type otherwise.
func RelatedType(relationType, targetType string) string {
	if strings.HasPrefix(relationType, hasPrefix) {
		return strings.TrimPrefix(relationType, hasPrefix)
	}

	if targetType != "" {
		return targetType
	}

	return relationType
}

// ReverseType names the mirror of relationType on the target:
// "hasX" becomes "isXFor", anything else becomes "has<OwnerType>".
func ReverseType(relationType, relatedType, ownerType string) string {
	if strings.HasPrefix(relationType, hasPrefix) {
		return normalizeCamel("is" + upperFirst(relatedType) + "For")
	}

	return normalizeCamel(hasPrefix + upperFirst(ownerType))
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

// normalizeCamel round-trips s through snake case so "hasAsset_part" and
// "hasAssetPart" name the same relation.
func normalizeCamel(s string) string {
	var snake strings.Builder

	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			snake.WriteByte('_')
		}

		snake.WriteRune(unicode.ToLower(r))
	}

	parts := strings.Split(snake.String(), "_")

	var out strings.Builder

	out.WriteString(parts[0])

	for _, part := range parts[1:] {
		out.WriteString(upperFirst(part))
	}

	return out.String()
}
