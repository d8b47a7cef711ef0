package service

import (
	"context"
	"sort"

	"procurement_backend/internal/ai"
	catalogdomain "procurement_backend/internal/catalog/domain"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"
)

// CompletenessReport is the result of scoring a request against its category rule.
type CompletenessReport struct {
	Completeness    float64           `json:"completeness"`
	PresentFields   []string          `json:"presentFields"`
	MissingFields   []string          `json:"missingFields"`
	MissingLabels   []string          `json:"-"`
	OptionalPresent []string          `json:"optionalPresent"`
	Uncategorized   bool              `json:"uncategorized"`
	MergedFields    map[string]string `json:"-"`
}

// CompletenessEngine scores a request's extracted fields against its
// category's field rules.
type CompletenessEngine struct {
	rules    ports.CategoryRuleSource
	semantic ai.FieldExtractor // optional
	keyword  *ai.KeywordExtractor
	log      *logger.Logger
}

// NewCompletenessEngine creates the engine. semantic may be nil; the keyword
// strategy is always available and is the fallback on any semantic failure.
func NewCompletenessEngine(rules ports.CategoryRuleSource, semantic ai.FieldExtractor, log *logger.Logger) *CompletenessEngine {
	return &CompletenessEngine{
		rules:    rules,
		semantic: semantic,
		keyword:  ai.NewKeywordExtractor(),
		log:      log,
	}
}

// Score computes field completeness for a request. Fields already stored on
// the request stay present regardless of what extraction finds now, so a
// request's completeness never decreases as content accumulates.
func (e *CompletenessEngine) Score(ctx context.Context, req repository.Request) (CompletenessReport, error) {
	category := ""
	if req.Category != nil {
		category = *req.Category
	}

	rule, found, err := e.rules.RuleFor(ctx, category)
	if err != nil {
		return CompletenessReport{}, err
	}
	if !found {
		// Uncategorized requests have undefined completeness and never block
		// manual pipeline progress.
		return CompletenessReport{Uncategorized: true, MergedFields: cloneFields(req.ExtractedFields)}, nil
	}

	extracted := e.extract(ctx, req.RawContent, rule)
	merged := cloneFields(req.ExtractedFields)
	for id, value := range extracted {
		if _, exists := merged[id]; !exists {
			merged[id] = value
		}
	}

	report := CompletenessReport{MergedFields: merged}
	requiredTotal := 0
	requiredPresent := 0
	for _, field := range rule.Fields {
		_, present := merged[field.ID]
		if field.Required {
			requiredTotal++
			if present {
				requiredPresent++
				report.PresentFields = append(report.PresentFields, field.ID)
			} else {
				report.MissingFields = append(report.MissingFields, field.ID)
				report.MissingLabels = append(report.MissingLabels, field.Label)
			}
		} else if present {
			report.OptionalPresent = append(report.OptionalPresent, field.ID)
		}
	}

	if requiredTotal > 0 {
		report.Completeness = float64(requiredPresent) / float64(requiredTotal)
	} else {
		report.Completeness = 1
	}

	sort.Strings(report.PresentFields)
	sort.Strings(report.MissingFields)
	return report, nil
}

// DetectCategory guesses the category of free-form content from the catalog.
func (e *CompletenessEngine) DetectCategory(ctx context.Context, content string) (string, bool) {
	known, err := e.rules.List(ctx)
	if err != nil {
		e.log.Warn("category rule listing failed during detection", "error", err)
		return "", false
	}
	category, ok, _ := e.keyword.DetectCategory(ctx, content, known)
	return category, ok
}

// extract runs the semantic extractor when available and falls back to the
// keyword strategy on any error.
func (e *CompletenessEngine) extract(ctx context.Context, content string, rule catalogdomain.CategoryRule) map[string]string {
	if e.semantic != nil {
		fields, err := e.semantic.Extract(ctx, content, rule)
		if err == nil {
			return fields
		}
		e.log.Warn("semantic extractor unavailable, using keyword fallback", "error", err)
	}

	fields, _ := e.keyword.Extract(ctx, content, rule)
	return fields
}

func cloneFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
