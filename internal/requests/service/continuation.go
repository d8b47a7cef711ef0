package service

import (
	"context"

	"procurement_backend/internal/ai"
	"procurement_backend/platform/logger"
)

const (
	// defaultContinuationConfidence is used when no classifier is configured
	// or the classifier fails. Merging is favored over fragmentation: an
	// over-merge is reversible by a manual split, a fragmented request
	// silently loses context.
	defaultContinuationConfidence = 0.6

	// classifierHistoryLimit caps how many recent messages are handed to the classifier.
	classifierHistoryLimit = 10
)

// ContinuationResolver decides whether a new inbound message belongs to an
// existing open request or starts a new one.
type ContinuationResolver struct {
	classifier ai.ContinuationClassifier // optional
	log        *logger.Logger
}

// NewContinuationResolver creates a resolver. classifier may be nil, in which
// case the deterministic default policy always applies.
func NewContinuationResolver(classifier ai.ContinuationClassifier, log *logger.Logger) *ContinuationResolver {
	return &ContinuationResolver{classifier: classifier, log: log}
}

// Resolve returns a continuation decision. It never fails: classifier errors
// and malformed responses degrade to the default policy.
func (r *ContinuationResolver) Resolve(ctx context.Context, history []string, newText string) ai.ContinuationDecision {
	fallback := ai.ContinuationDecision{
		IsContinuation: true,
		Confidence:     defaultContinuationConfidence,
		Reason:         "default continuation policy",
	}

	if r.classifier == nil {
		return fallback
	}

	if len(history) > classifierHistoryLimit {
		history = history[len(history)-classifierHistoryLimit:]
	}

	decision, err := r.classifier.ClassifyContinuation(ctx, history, newText)
	if err != nil {
		r.log.Warn("continuation classifier unavailable, using default policy", "error", err)
		return fallback
	}

	decision.Confidence = clamp01(decision.Confidence)
	if decision.Reason == "" {
		decision.Reason = "classifier decision"
	}
	return decision
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
