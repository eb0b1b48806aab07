package routing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed table.yaml
var defaultTable []byte

type document struct {
	Routes []categoryRoutes `yaml:"routes"`
}

type categoryRoutes struct {
	Category      string             `yaml:"category"`
	Subcategories []subcategoryRoute `yaml:"subcategories"`
}

type subcategoryRoute struct {
	Name       string            `yaml:"name"`
	Area       string            `yaml:"area"`
	Default    string            `yaml:"default"`
	Conditions map[string]string `yaml:"conditions"`
}

// Rule is the decoded form of one subcategory entry: either Area is set, or
// Default is set with optional per-detail Overrides.
type Rule struct {
	Area      string
	Default   string
	Overrides map[string]string
}

// Target picks the area for detail.
func (r Rule) Target(detail string) string {
	if r.Area != "" {
		return r.Area
	}
	if area, ok := r.Overrides[normalize(detail)]; ok {
		return area
	}
	return r.Default
}

// CategoryEntry lists a routed category with its subcategories and known
// details, in table order.
type CategoryEntry struct {
	Name          string
	Subcategories []SubcategoryEntry
}

// SubcategoryEntry is a routed subcategory with its overriding details.
type SubcategoryEntry struct {
	Name    string
	Details []string
}

// Table is the decoded routing table.
type Table struct {
	rules   map[string]map[string]Rule
	catalog []CategoryEntry
}

// Load decodes the table at path, or the embedded default when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Parse(defaultTable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing table: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse decodes and validates a YAML routing table.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode routing table: %w", err)
	}

	t := &Table{rules: make(map[string]map[string]Rule, len(doc.Routes))}
	for _, cat := range doc.Routes {
		catKey := normalize(cat.Category)
		if catKey == "" {
			return nil, fmt.Errorf("routing table: category without name")
		}
		if _, dup := t.rules[catKey]; dup {
			return nil, fmt.Errorf("routing table: duplicate category %q", cat.Category)
		}
		subs := make(map[string]Rule, len(cat.Subcategories))
		entry := CategoryEntry{Name: cat.Category}
		for _, sub := range cat.Subcategories {
			rule, err := decodeRule(cat.Category, sub)
			if err != nil {
				return nil, err
			}
			subKey := normalize(sub.Name)
			if _, dup := subs[subKey]; dup {
				return nil, fmt.Errorf("routing table: duplicate subcategory %q in %q", sub.Name, cat.Category)
			}
			subs[subKey] = rule

			details := make([]string, 0, len(sub.Conditions))
			for detail := range sub.Conditions {
				details = append(details, detail)
			}
			sort.Strings(details)
			entry.Subcategories = append(entry.Subcategories, SubcategoryEntry{Name: sub.Name, Details: details})
		}
		t.rules[catKey] = subs
		t.catalog = append(t.catalog, entry)
	}
	return t, nil
}

func decodeRule(category string, sub subcategoryRoute) (Rule, error) {
	if normalize(sub.Name) == "" {
		return Rule{}, fmt.Errorf("routing table: subcategory without name in %q", category)
	}
	hasArea := strings.TrimSpace(sub.Area) != ""
	hasDefault := strings.TrimSpace(sub.Default) != ""
	if hasArea == hasDefault {
		return Rule{}, fmt.Errorf("routing table: %q/%q needs exactly one of area or default", category, sub.Name)
	}
	if hasArea {
		if len(sub.Conditions) > 0 {
			return Rule{}, fmt.Errorf("routing table: %q/%q has conditions without default", category, sub.Name)
		}
		return Rule{Area: strings.TrimSpace(sub.Area)}, nil
	}
	overrides := make(map[string]string, len(sub.Conditions))
	for detail, area := range sub.Conditions {
		if strings.TrimSpace(area) == "" {
			return Rule{}, fmt.Errorf("routing table: %q/%q/%q has empty area", category, sub.Name, detail)
		}
		overrides[normalize(detail)] = strings.TrimSpace(area)
	}
	return Rule{Default: strings.TrimSpace(sub.Default), Overrides: overrides}, nil
}

// Lookup returns the area name for the classification. Matching ignores case
// and surrounding whitespace.
func (t *Table) Lookup(category, subcategory, detail string) (string, bool) {
	subs, ok := t.rules[normalize(category)]
	if !ok {
		return "", false
	}
	rule, ok := subs[normalize(subcategory)]
	if !ok {
		return "", false
	}
	return rule.Target(detail), true
}

// AreaNames returns every area the table can route to, sorted.
func (t *Table) AreaNames() []string {
	seen := map[string]struct{}{}
	for _, subs := range t.rules {
		for _, rule := range subs {
			if rule.Area != "" {
				seen[rule.Area] = struct{}{}
				continue
			}
			seen[rule.Default] = struct{}{}
			for _, area := range rule.Overrides {
				seen[area] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog returns the routed categories in table order.
func (t *Table) Catalog() []CategoryEntry {
	return t.catalog
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
