// Package ai provides the pluggable classification and extraction capabilities
// used by the request lifecycle engine. Every capability has a deterministic
// implementation that is always available; the OpenAI-backed implementations
// are optional and callers must treat any error as a signal to fall back.
package ai

import (
	"context"

	catalogdomain "procurement_backend/internal/catalog/domain"
)

// ContinuationDecision is the outcome of a continuation classification.
type ContinuationDecision struct {
	IsContinuation bool    `json:"isContinuation"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// ContinuationClassifier decides whether a new inbound message continues an
// existing open request. history holds the candidate request's recent
// messages, oldest first.
type ContinuationClassifier interface {
	ClassifyContinuation(ctx context.Context, history []string, newText string) (ContinuationDecision, error)
}

// RequestSummary is the condensed request state handed to the disposition classifier.
type RequestSummary struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	RawContent string `json:"content"`
	UpdatedAt  string `json:"updatedAt"`
}

// DispositionAdvice is a proposed disposition for a request. Action values are
// validated by the caller against its allow-list; this package makes no
// guarantee about what a model returns.
type DispositionAdvice struct {
	Action             string  `json:"action"`
	Confidence         float64 `json:"confidence"`
	Reason             string  `json:"reason"`
	MergeWithRequestID string  `json:"mergeWithRequestId,omitempty"`
}

// DispositionClassifier proposes keep/close/delete/merge dispositions.
type DispositionClassifier interface {
	AnalyzeDisposition(ctx context.Context, request RequestSummary, siblings []RequestSummary) (DispositionAdvice, error)
}

// FieldExtractor detects which of a category's fields are present in the
// accumulated request content, returning fieldID -> detected value.
type FieldExtractor interface {
	Extract(ctx context.Context, content string, rule catalogdomain.CategoryRule) (map[string]string, error)
}

// CategoryDetector guesses the procurement category of free-form content.
// Returns ok=false when no category matched.
type CategoryDetector interface {
	DetectCategory(ctx context.Context, content string, known []catalogdomain.CategoryRule) (string, bool, error)
}
