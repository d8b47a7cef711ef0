package service

import (
	"context"

	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"
)

// Transition describes one pipeline stage change produced by the automation engine.
type Transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Status string `json:"status"`
	Rule   string `json:"rule"`
}

// AutomationEngine advances a request's pipeline stage based on ledger state
// and side artifacts (RFQ, quotes, purchase order). Rules are evaluated in
// fixed priority order; the first whose condition holds decides the outcome,
// and at most one transition happens per invocation.
//
// Callers must hold the request's lock; LedgerService.RunAutomation wraps
// Process with the proper locking for external triggers.
type AutomationEngine struct {
	store        repository.Store
	completeness *CompletenessEngine
	rfq          ports.RFQReader
	po           ports.PurchaseOrderReader
	bus          events.Bus
	threshold    float64
	log          *logger.Logger
}

// NewAutomationEngine creates the engine with the configured completeness threshold.
func NewAutomationEngine(
	store repository.Store,
	completeness *CompletenessEngine,
	rfq ports.RFQReader,
	po ports.PurchaseOrderReader,
	bus events.Bus,
	threshold float64,
	log *logger.Logger,
) *AutomationEngine {
	return &AutomationEngine{
		store:        store,
		completeness: completeness,
		rfq:          rfq,
		po:           po,
		bus:          bus,
		threshold:    threshold,
		log:          log,
	}
}

// Process evaluates the transition rules against the request's current state.
// The request is re-read so decisions always use the latest computed
// completeness, never a stale snapshot. Returns nil when no rule produced a
// transition (including the idempotent already-at-target case).
func (e *AutomationEngine) Process(ctx context.Context, req repository.Request) (*Transition, error) {
	if domain.IsTerminalStage(req.PipelineStage) {
		return nil, nil
	}

	report, err := e.completeness.Score(ctx, req)
	if err != nil {
		return nil, err
	}

	target, rule, err := e.evaluate(ctx, req, report)
	if err != nil {
		return nil, err
	}
	if target == "" || target == req.PipelineStage {
		return nil, nil
	}

	status := domain.StatusForStage(target)
	if err := e.store.UpdateStageStatus(ctx, req.ID, target, status); err != nil {
		return nil, err
	}

	transition := &Transition{From: req.PipelineStage, To: target, Status: status, Rule: rule}

	summary := "stage " + transition.From + " -> " + transition.To
	if err := e.store.AppendTimeline(ctx, &repository.TimelineEvent{
		RequestID: req.ID,
		ActorType: repository.ActorAutomation,
		ActorName: "AutomationEngine",
		EventType: repository.TimelineStageChanged,
		Title:     "Pipeline stage advanced",
		Summary:   &summary,
		Metadata: map[string]any{
			"from":         transition.From,
			"to":           transition.To,
			"status":       status,
			"rule":         rule,
			"completeness": report.Completeness,
		},
	}); err != nil {
		e.log.Error("failed to record stage transition timeline event", "error", err, "requestId", req.ID)
	}

	e.log.StageTransition(req.ID.String(), transition.From, transition.To, rule)
	e.bus.Publish(ctx, events.StageChanged{
		BaseEvent: events.NewBaseEvent(),
		RequestID: req.ID,
		FromStage: transition.From,
		ToStage:   transition.To,
		Status:    status,
		Rule:      rule,
	})

	return transition, nil
}

// evaluate returns the target stage of the first matching rule, or "".
//
// Completeness rules only apply while the request is still in the intake
// stages: automation never moves a request backward, so a request already
// past needs_info is not pulled back by rule 1.
func (e *AutomationEngine) evaluate(ctx context.Context, req repository.Request, report CompletenessReport) (string, string, error) {
	inIntake := req.PipelineStage == domain.StageNewRequest || req.PipelineStage == domain.StageNeedsInfo

	// Rule 1: incomplete information
	if !report.Uncategorized && inIntake && report.Completeness < e.threshold {
		return domain.StageNeedsInfo, "completeness_below_threshold", nil
	}

	// Rule 2: ready for supplier matching
	if !report.Uncategorized && inIntake && report.Completeness >= e.threshold {
		return domain.StageFindingSuppliers, "completeness_reached", nil
	}

	// Rule 3: RFQ opened
	if req.PipelineStage == domain.StageFindingSuppliers {
		state, err := e.rfq.StateForRequest(ctx, req.ID)
		if err != nil {
			return "", "", err
		}
		if state.Exists {
			return domain.StageQuotesInProgress, "rfq_exists", nil
		}
		return "", "", nil
	}

	// Rule 4: enough quotes to compare
	if req.PipelineStage == domain.StageQuotesInProgress {
		state, err := e.rfq.StateForRequest(ctx, req.ID)
		if err != nil {
			return "", "", err
		}
		if state.SubmittedQuotes >= 2 {
			return domain.StageSelectingQuote, "quotes_received", nil
		}
		return "", "", nil
	}

	// Rule 5: purchase order created
	if req.PipelineStage == domain.StageSelectingQuote {
		state, err := e.po.StateForRequest(ctx, req.ID)
		if err != nil {
			return "", "", err
		}
		if state.Exists {
			return domain.StagePurchaseInProgress, "po_created", nil
		}
		return "", "", nil
	}

	// Rule 6: purchase order delivered
	if req.PipelineStage == domain.StagePurchaseInProgress {
		state, err := e.po.StateForRequest(ctx, req.ID)
		if err != nil {
			return "", "", err
		}
		if state.Exists && state.Status == "delivered" {
			return domain.StageDelivered, "po_delivered", nil
		}
	}

	return "", "", nil
}
