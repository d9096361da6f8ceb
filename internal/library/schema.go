// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// ItemType describes one entry of the item-type vocabulary.
type ItemType struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []string `yaml:"fields" json:"fields"`

	fieldSet map[string]struct{}
}

// Schema is the item-type vocabulary: which item types exist, which fields
// each of them accepts and which creator types are recognized.
type Schema struct {
	CreatorTypes []string   `yaml:"creatorTypes" json:"creatorTypes"`
	ItemTypes    []ItemType `yaml:"itemTypes" json:"itemTypes"`

	byName     map[string]*ItemType
	allFields  map[string]struct{}
	creatorSet map[string]struct{}
}

// DefaultSchema returns the embedded vocabulary.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("library: embedded schema: %v", err))
	}
	return s
}

// LoadSchemaFile reads a vocabulary from a YAML file on disk.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and indexes a YAML vocabulary.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(s.ItemTypes) == 0 {
		return nil, fmt.Errorf("parse schema: no item types defined")
	}

	s.byName = make(map[string]*ItemType, len(s.ItemTypes))
	s.allFields = make(map[string]struct{})
	s.creatorSet = make(map[string]struct{}, len(s.CreatorTypes))
	for i := range s.ItemTypes {
		t := &s.ItemTypes[i]
		if t.Name == "" {
			return nil, fmt.Errorf("parse schema: item type %d has no name", i)
		}
		if _, dup := s.byName[t.Name]; dup {
			return nil, fmt.Errorf("parse schema: duplicate item type %q", t.Name)
		}
		t.fieldSet = make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			t.fieldSet[f] = struct{}{}
			s.allFields[f] = struct{}{}
		}
		s.byName[t.Name] = t
	}
	for _, c := range s.CreatorTypes {
		s.creatorSet[c] = struct{}{}
	}
	return &s, nil
}

// ItemType resolves an item type by name.
func (s *Schema) ItemType(name string) (*ItemType, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// ItemTypeNames lists every item type in vocabulary order.
func (s *Schema) ItemTypeNames() []string {
	names := make([]string, 0, len(s.ItemTypes))
	for _, t := range s.ItemTypes {
		names = append(names, t.Name)
	}
	return names
}

// IsValidField reports whether field is legal for itemType.
func (s *Schema) IsValidField(itemType, field string) bool {
	t, ok := s.byName[itemType]
	if !ok {
		return false
	}
	_, ok = t.fieldSet[field]
	return ok
}

// IsField reports whether field is legal for at least one item type.
func (s *Schema) IsField(field string) bool {
	_, ok := s.allFields[field]
	return ok
}

// IsCreatorType reports whether t is a recognized creator type.
func (s *Schema) IsCreatorType(t string) bool {
	_, ok := s.creatorSet[t]
	return ok
}
