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

// Package resolver answers "which collection holds this id". Ids are unique
// across collections, so the answer is an ordered list of candidates that the
// caller tries until one yields the document.
package resolver

import (
	"context"
	"slices"
	"time"

	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"
)

// Resolver remembers which collection last held an id.
type Resolver struct {
	collections []string
	hints       *expiremap.ExpireMap[string, string]
}

// New returns a resolver over collections (in lookup order). Locations seen by
// Remember are tried first for ttl.
func New(collections []string, ttl, cullPeriod time.Duration) *Resolver {
	return &Resolver{
		collections: slices.Clone(collections),
		hints:       expiremap.NewEx[string, string](cullPeriod, ttl),
	}
}

// ResolveCollections returns every candidate collection, the last known
// location of id first.
func (r *Resolver) ResolveCollections(_ context.Context, id string) []string {
	hint, ok := r.hints.Load(id)
	if !ok || *hint == "" {
		return slices.Clone(r.collections)
	}

	out := make([]string, 0, len(r.collections)+1)
	out = append(out, *hint)

	for _, collection := range r.collections {
		if collection != *hint {
			out = append(out, collection)
		}
	}

	return out
}

// Remember records where id was last read or written.
func (r *Resolver) Remember(id, collection string) {
	if id == "" || collection == "" {
		return
	}

	r.hints.Set(id, collection)
}

// Forget drops the location hint of a deleted id.
func (r *Resolver) Forget(id string) {
	if _, ok := r.hints.Load(id); ok {
		r.hints.Set(id, "")
	}
}
