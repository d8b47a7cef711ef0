package service

import (
	"context"
	"errors"

	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// actionUpdateStatus is an admin-only action outside the advisor's allow-list.
const actionUpdateStatus = "update_status"

// RequestDetail bundles a request with its conversation and timeline.
type RequestDetail struct {
	Request  repository.Request         `json:"request"`
	Messages []repository.Message       `json:"messages"`
	Timeline []repository.TimelineEvent `json:"timeline"`
	Report   CompletenessReport         `json:"completeness"`
}

// ManagementService serves the admin-facing read and override operations:
// listing, detail, advisory analysis, applying dispositions, and manual
// pipeline moves.
type ManagementService struct {
	store        repository.Store
	completeness *CompletenessEngine
	advisor      *Advisor
	ledger       *LedgerService
	bus          events.Bus
	log          *logger.Logger
}

// NewManagementService wires the admin operations.
func NewManagementService(
	store repository.Store,
	completeness *CompletenessEngine,
	advisor *Advisor,
	ledger *LedgerService,
	bus events.Bus,
	log *logger.Logger,
) *ManagementService {
	return &ManagementService{
		store:        store,
		completeness: completeness,
		advisor:      advisor,
		ledger:       ledger,
		bus:          bus,
		log:          log,
	}
}

// Get returns a request with its messages, timeline, and current completeness.
func (s *ManagementService) Get(ctx context.Context, id uuid.UUID) (RequestDetail, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RequestDetail{}, apperr.NotFound("request not found")
		}
		return RequestDetail{}, err
	}

	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return RequestDetail{}, err
	}
	timeline, err := s.store.ListTimeline(ctx, id)
	if err != nil {
		return RequestDetail{}, err
	}
	report, err := s.completeness.Score(ctx, req)
	if err != nil {
		return RequestDetail{}, err
	}

	return RequestDetail{Request: req, Messages: messages, Timeline: timeline, Report: report}, nil
}

// List returns requests matching the filter.
func (s *ManagementService) List(ctx context.Context, filter repository.ListFilter) ([]repository.Request, error) {
	if filter.Stage != "" && !domain.IsKnownStage(filter.Stage) {
		return nil, apperr.Validation("unknown pipeline stage: " + filter.Stage)
	}
	if filter.Status != "" && !domain.IsKnownStatus(filter.Status) {
		return nil, apperr.Validation("unknown status: " + filter.Status)
	}
	return s.store.ListRequests(ctx, filter)
}

// Analyze runs the advisor against a request and its open siblings. Read-only.
func (s *ManagementService) Analyze(ctx context.Context, id uuid.UUID) (Advice, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Advice{}, apperr.NotFound("request not found")
		}
		return Advice{}, err
	}

	siblings, err := s.store.ListSiblings(ctx, req)
	if err != nil {
		return Advice{}, err
	}

	return s.advisor.Analyze(ctx, req, siblings), nil
}

// ApplyAction applies an admin-chosen disposition to a request. Analysis never
// applies anything on its own; this is the only write path for dispositions.
// status is only read for the update_status action.
func (s *ManagementService) ApplyAction(ctx context.Context, id uuid.UUID, action, status, reason, actorName string) (repository.Request, error) {
	unlock := s.ledger.locks.Lock(id)
	defer unlock()

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Request{}, apperr.NotFound("request not found")
		}
		return repository.Request{}, err
	}

	switch action {
	case domain.ActionKeep:
		// Explicit no-op; still recorded on the timeline.
	case domain.ActionClose:
		if domain.IsTerminalStage(req.PipelineStage) {
			return repository.Request{}, apperr.InvalidState("request is already closed")
		}
		if err := s.store.UpdateStageStatus(ctx, id, domain.StageClosed, domain.StatusClosed); err != nil {
			return repository.Request{}, err
		}
		s.bus.Publish(ctx, events.StageChanged{
			BaseEvent: events.NewBaseEvent(),
			RequestID: id,
			FromStage: req.PipelineStage,
			ToStage:   domain.StageClosed,
			Status:    domain.StatusClosed,
		})
	case domain.ActionDelete:
		if err := s.store.SoftDelete(ctx, id); err != nil {
			return repository.Request{}, err
		}
	case actionUpdateStatus:
		if !domain.IsKnownStatus(status) {
			return repository.Request{}, apperr.Validation("unknown status: " + status)
		}
		if err := s.store.UpdateStatus(ctx, id, status); err != nil {
			return repository.Request{}, err
		}
	default:
		return repository.Request{}, apperr.Validation("unsupported action: " + action)
	}

	summary := reason
	if err := s.store.AppendTimeline(ctx, &repository.TimelineEvent{
		RequestID: id,
		ActorType: repository.ActorAdmin,
		ActorName: actorName,
		EventType: repository.TimelineDisposition,
		Title:     "Disposition applied: " + action,
		Summary:   &summary,
		Metadata:  map[string]any{"action": action},
	}); err != nil {
		s.log.Error("failed to record disposition timeline event", "error", err, "requestId", id)
	}

	if action == domain.ActionDelete {
		return req, nil
	}
	return s.store.GetRequest(ctx, id)
}

// ManualMove overrides the pipeline stage. Forward moves need no flag;
// backward moves require allowBackward. The paired status is applied from the
// fixed stage mapping so stage and status never diverge.
func (s *ManagementService) ManualMove(ctx context.Context, id uuid.UUID, toStage string, allowBackward bool, actorName string) (repository.Request, error) {
	unlock := s.ledger.locks.Lock(id)
	defer unlock()

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Request{}, apperr.NotFound("request not found")
		}
		return repository.Request{}, err
	}

	if reason := domain.ValidateManualMove(req.PipelineStage, toStage, allowBackward); reason != "" {
		return repository.Request{}, apperr.InvalidTransition(reason)
	}

	status := domain.StatusForStage(toStage)
	if err := s.store.UpdateStageStatus(ctx, id, toStage, status); err != nil {
		return repository.Request{}, err
	}

	summary := "stage " + req.PipelineStage + " -> " + toStage
	if err := s.store.AppendTimeline(ctx, &repository.TimelineEvent{
		RequestID: id,
		ActorType: repository.ActorAdmin,
		ActorName: actorName,
		EventType: repository.TimelineManualOverride,
		Title:     "Pipeline stage moved manually",
		Summary:   &summary,
		Metadata: map[string]any{
			"from":          req.PipelineStage,
			"to":            toStage,
			"allowBackward": allowBackward,
		},
	}); err != nil {
		s.log.Error("failed to record manual move timeline event", "error", err, "requestId", id)
	}

	s.log.StageTransition(id.String(), req.PipelineStage, toStage, "manual_override")
	s.bus.Publish(ctx, events.StageChanged{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		FromStage: req.PipelineStage,
		ToStage:   toStage,
		Status:    status,
	})

	return s.store.GetRequest(ctx, id)
}
