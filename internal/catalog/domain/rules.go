// Package domain defines the category rule model shared across modules.
package domain

import "strings"

// FieldRule describes one field a category expects in a request.
type FieldRule struct {
	ID       string   `yaml:"id" json:"id"`
	Label    string   `yaml:"label" json:"label"`
	Required bool     `yaml:"required" json:"required"`
	Examples []string `yaml:"examples" json:"examples,omitempty"`
}

// CategoryRule is the set of field rules for one procurement category.
type CategoryRule struct {
	Category string      `yaml:"category" json:"category"`
	Fields   []FieldRule `yaml:"fields" json:"fields"`
}

// NormalizeCategory canonicalizes a category name for storage and lookup.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Validate returns a non-empty reason when the rule is malformed.
func (r CategoryRule) Validate() string {
	if NormalizeCategory(r.Category) == "" {
		return "category name is required"
	}
	if len(r.Fields) == 0 {
		return "at least one field rule is required"
	}
	seen := make(map[string]struct{}, len(r.Fields))
	for _, field := range r.Fields {
		if strings.TrimSpace(field.ID) == "" {
			return "field id is required"
		}
		if strings.TrimSpace(field.Label) == "" {
			return "field label is required for " + field.ID
		}
		if _, dup := seen[field.ID]; dup {
			return "duplicate field id " + field.ID
		}
		seen[field.ID] = struct{}{}
	}
	return ""
}
