package service

import (
	"context"
	"time"

	"procurement_backend/internal/ai"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// Advice is a proposed request disposition. It is purely advisory: nothing in
// this package (or anywhere else) applies an Advice automatically — admins
// apply dispositions through the separate apply-action operation.
type Advice struct {
	Action             string     `json:"action"`
	Confidence         float64    `json:"confidence"`
	Reason             string     `json:"reason"`
	MergeWithRequestID *uuid.UUID `json:"mergeWithRequestId,omitempty"`
}

// Advisor analyzes a request's state and history and proposes a disposition.
type Advisor struct {
	classifier ai.DispositionClassifier // optional
	log        *logger.Logger
}

// NewAdvisor creates an advisor. classifier may be nil.
func NewAdvisor(classifier ai.DispositionClassifier, log *logger.Logger) *Advisor {
	return &Advisor{classifier: classifier, log: log}
}

// Analyze proposes a disposition for the request. Read-only and safely
// cancelable; classifier failures degrade to the keep default.
func (a *Advisor) Analyze(ctx context.Context, req repository.Request, siblings []repository.Request) Advice {
	fallback := Advice{Action: domain.ActionKeep, Confidence: 0.5, Reason: "no classifier configured"}

	if a.classifier == nil {
		return fallback
	}

	raw, err := a.classifier.AnalyzeDisposition(ctx, summarize(req), summarizeAll(siblings))
	if err != nil {
		a.log.Warn("disposition classifier unavailable, defaulting to keep", "error", err, "requestId", req.ID)
		fallback.Reason = "classifier unavailable"
		return fallback
	}

	advice := Advice{
		Action:     domain.CoerceAction(raw.Action),
		Confidence: clamp01(raw.Confidence),
		Reason:     raw.Reason,
	}

	if advice.Action == domain.ActionMerge {
		target := resolveSibling(raw.MergeWithRequestID, siblings)
		if target == nil {
			// A merge proposal without a valid sibling is meaningless.
			advice.Action = domain.ActionKeep
			advice.Reason = "merge target not among open sibling requests"
		} else {
			advice.MergeWithRequestID = target
		}
	}

	if advice.Reason == "" {
		advice.Reason = "classifier decision"
	}
	return advice
}

func resolveSibling(rawID string, siblings []repository.Request) *uuid.UUID {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil
	}
	for _, sibling := range siblings {
		if sibling.ID == id {
			return &id
		}
	}
	return nil
}

func summarize(req repository.Request) ai.RequestSummary {
	category := ""
	if req.Category != nil {
		category = *req.Category
	}
	return ai.RequestSummary{
		ID:         req.ID.String(),
		Category:   category,
		Stage:      req.PipelineStage,
		Status:     req.Status,
		RawContent: req.RawContent,
		UpdatedAt:  req.UpdatedAt.Format(time.RFC3339),
	}
}

func summarizeAll(requests []repository.Request) []ai.RequestSummary {
	out := make([]ai.RequestSummary, 0, len(requests))
	for _, req := range requests {
		out = append(out, summarize(req))
	}
	return out
}
