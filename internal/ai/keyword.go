package ai

import (
	"context"
	"regexp"
	"strings"

	catalogdomain "procurement_backend/internal/catalog/domain"
)

var quantityRegex = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

// KeywordExtractor is the deterministic, always-available field extractor and
// category detector. It matches each field rule's examples as case-insensitive
// substrings, with a numeric heuristic for quantity-like fields.
type KeywordExtractor struct{}

// NewKeywordExtractor creates the deterministic extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract never fails; the error return satisfies FieldExtractor.
func (e *KeywordExtractor) Extract(_ context.Context, content string, rule catalogdomain.CategoryRule) (map[string]string, error) {
	lowered := strings.ToLower(content)
	found := make(map[string]string)

	for _, field := range rule.Fields {
		if isQuantityField(field.ID) {
			if match := quantityRegex.FindString(lowered); match != "" {
				found[field.ID] = strings.ReplaceAll(match, ",", ".")
			}
			continue
		}

		for _, example := range field.Examples {
			ex := strings.ToLower(strings.TrimSpace(example))
			if ex == "" {
				continue
			}
			if strings.Contains(lowered, ex) {
				found[field.ID] = ex
				break
			}
		}
	}

	return found, nil
}

// DetectCategory picks the known category with the most example keyword hits.
// Single-hit minimum; ties resolved by first category in the provided order.
func (e *KeywordExtractor) DetectCategory(_ context.Context, content string, known []catalogdomain.CategoryRule) (string, bool, error) {
	lowered := strings.ToLower(content)

	best := ""
	bestHits := 0
	for _, rule := range known {
		hits := 0
		for _, field := range rule.Fields {
			if isQuantityField(field.ID) {
				continue
			}
			for _, example := range field.Examples {
				ex := strings.ToLower(strings.TrimSpace(example))
				if ex != "" && strings.Contains(lowered, ex) {
					hits++
				}
			}
		}
		if hits > bestHits {
			best = rule.Category
			bestHits = hits
		}
	}

	return best, bestHits > 0, nil
}

func isQuantityField(fieldID string) bool {
	switch strings.ToLower(fieldID) {
	case "quantity", "cantidad", "qty", "amount":
		return true
	}
	return false
}

// Compile-time checks.
var (
	_ FieldExtractor   = (*KeywordExtractor)(nil)
	_ CategoryDetector = (*KeywordExtractor)(nil)
)
