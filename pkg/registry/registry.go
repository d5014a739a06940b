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

// Package registry holds the per-type relation configuration the hooks consult:
// which relation types are ordered or virtual, the unique field, the origin
// relation type and the global mirroring exclusions.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// TypeConfig configures one document type. Empty fields inherit from the
// registry default.
type TypeConfig struct {
	Collection           string   `yaml:"collection"`
	HistoryCollection    string   `yaml:"history_collection"`
	OrderedRelationTypes []string `yaml:"ordered_relation_types"`
	VirtualRelationTypes []string `yaml:"virtual_relation_types"`
	UniqueField          string   `yaml:"unique_field"`
	OriginRelationType   string   `yaml:"origin_relation_type"`
	History              *bool    `yaml:"history"`
	SkipSync             bool     `yaml:"skip_sync"`
}

type Config struct {
	Default               TypeConfig            `yaml:"default"`
	Types                 map[string]TypeConfig `yaml:"types"`
	ExcludedRelationTypes []string              `yaml:"excluded_relation_types"`
	ReferenceLeafTypes    []string              `yaml:"reference_leaf_types"`
	ReverseOverrides      map[string]string     `yaml:"reverse_overrides"`
	CollectionOrder       []string              `yaml:"collection_order"`
	OriginsCollection     string                `yaml:"origins_collection"`
}

// Registry answers per-type questions of the sync engine and the hooks.
type Registry struct {
	config Config
	types  map[string]TypeConfig
}

// New resolves every type entry against the default once.
func New(config Config) (*Registry, error) {
	if config.Default.Collection == "" {
		return nil, errors.New("registry default collection must be set")
	}

	r := &Registry{config: config, types: make(map[string]TypeConfig, len(config.Types))}

	for name, tc := range config.Types {
		r.types[name] = r.inherit(tc)
	}

	if len(r.config.CollectionOrder) == 0 {
		r.config.CollectionOrder = r.collections()
	}

	return r, nil
}

// Parse reads a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	return New(config)
}

// Load reads the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}

	return Parse(data)
}

// Default returns the built-in DAMS registry.
func Default() *Registry {
	r, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in registry is invalid: %v", err))
	}

	return r
}

func (r *Registry) inherit(tc TypeConfig) TypeConfig {
	d := r.config.Default

	if tc.Collection == "" {
		tc.Collection = d.Collection
	}

	if tc.HistoryCollection == "" {
		tc.HistoryCollection = d.HistoryCollection
	}

	if tc.OrderedRelationTypes == nil {
		tc.OrderedRelationTypes = d.OrderedRelationTypes
	}

	if tc.VirtualRelationTypes == nil {
		tc.VirtualRelationTypes = d.VirtualRelationTypes
	}

	if tc.UniqueField == "" {
		tc.UniqueField = d.UniqueField
	}

	if tc.OriginRelationType == "" {
		tc.OriginRelationType = d.OriginRelationType
	}

	if tc.History == nil {
		tc.History = d.History
	}

	return tc
}

func (r *Registry) collections() []string {
	out := []string{r.config.Default.Collection}

	for _, tc := range r.types {
		if !slices.Contains(out, tc.Collection) {
			out = append(out, tc.Collection)
		}
	}

	slices.Sort(out[1:])

	return out
}

// For returns the effective configuration of documentType.
func (r *Registry) For(documentType string) TypeConfig {
	if tc, ok := r.types[documentType]; ok {
		return tc
	}

	return r.config.Default
}

func (r *Registry) OrderedRelationTypes(documentType string) []string {
	return r.For(documentType).OrderedRelationTypes
}

func (r *Registry) VirtualRelationTypes(documentType string) []string {
	return r.For(documentType).VirtualRelationTypes
}

func (r *Registry) IsVirtual(documentType, relationType string) bool {
	return slices.Contains(r.VirtualRelationTypes(documentType), relationType)
}

func (r *Registry) UniqueFieldPath(documentType string) string {
	return r.For(documentType).UniqueField
}

func (r *Registry) OriginRelationType(documentType string) string {
	return r.For(documentType).OriginRelationType
}

func (r *Registry) HistoryEnabled(documentType string) bool {
	h := r.For(documentType).History

	return h != nil && *h
}

// SkipsSync reports whether documents of this type never propagate reverse relations.
func (r *Registry) SkipsSync(documentType string) bool {
	return r.For(documentType).SkipSync
}

func (r *Registry) CollectionFor(documentType string) string {
	return r.For(documentType).Collection
}

func (r *Registry) HistoryCollectionFor(documentType string) string {
	return r.For(documentType).HistoryCollection
}

// ExcludedReverseTargetTypes lists the reference-only leaf types, lower-cased.
func (r *Registry) ExcludedReverseTargetTypes() []string {
	out := make([]string, len(r.config.ReferenceLeafTypes))
	for i, t := range r.config.ReferenceLeafTypes {
		out[i] = strings.ToLower(t)
	}

	return out
}

// ExcludedRelationTypes lists relation types that are never mirrored.
func (r *Registry) ExcludedRelationTypes() []string {
	return r.config.ExcludedRelationTypes
}

// ReverseOverride returns the fixed reverse type of relationType, if any.
func (r *Registry) ReverseOverride(relationType string) (string, bool) {
	reverse, ok := r.config.ReverseOverrides[relationType]

	return reverse, ok
}

// Collections returns the collections a document id may live in, in lookup order.
func (r *Registry) Collections() []string {
	return slices.Clone(r.config.CollectionOrder)
}

func (r *Registry) OriginsCollection() string {
	return r.config.OriginsCollection
}
