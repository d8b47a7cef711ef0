package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// InboundMessage is the normalized envelope handed to the ledger by the
// webhook adapters.
type InboundMessage struct {
	Channel        string
	ExternalID     string
	SenderIdentity string
	Content        string
	Timestamp      time.Time
	Attachments    []string
}

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	RequestID    uuid.UUID `json:"requestId"`
	MessageID    uuid.UUID `json:"messageId"`
	Duplicate    bool      `json:"duplicate"`
	Continuation bool      `json:"continuation"`
	Stage        string    `json:"pipelineStage"`
}

// LedgerService owns request and message entities. All mutations to a single
// request are serialized through a per-request lock; the duplicate fast path
// short-circuits before the lock so provider retries cause no contention.
type LedgerService struct {
	store        repository.Store
	contacts     ports.ContactResolver
	resolver     *ContinuationResolver
	completeness *CompletenessEngine
	automation   *AutomationEngine
	enqueuer     ports.OutboundEnqueuer // optional
	bus          events.Bus
	window       time.Duration
	locks        *requestLocks
	flight       singleflight.Group
	log          *logger.Logger
}

// NewLedgerService wires the ledger with its collaborators. enqueuer may be
// nil when no background worker is configured; queued outbound messages are
// then picked up by the periodic dispatch sweep only.
func NewLedgerService(
	store repository.Store,
	contacts ports.ContactResolver,
	resolver *ContinuationResolver,
	completeness *CompletenessEngine,
	automation *AutomationEngine,
	enqueuer ports.OutboundEnqueuer,
	bus events.Bus,
	window time.Duration,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		store:        store,
		contacts:     contacts,
		resolver:     resolver,
		completeness: completeness,
		automation:   automation,
		enqueuer:     enqueuer,
		bus:          bus,
		window:       window,
		locks:        newRequestLocks(),
		log:          log,
	}
}

// Ingest turns one normalized inbound message into ledger state. Idempotent
// on (channel, externalID): redelivery returns the original result without
// creating a new message.
func (s *LedgerService) Ingest(ctx context.Context, in InboundMessage) (IngestResult, error) {
	if !domain.IsKnownSource(in.Channel) {
		return IngestResult{}, apperr.BadRequest("unknown channel: " + in.Channel)
	}
	if strings.TrimSpace(in.ExternalID) == "" {
		return IngestResult{}, apperr.BadRequest("externalId is required")
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	// Duplicate fast path: no lock is taken for provider retries.
	if existing, err := s.store.FindMessageByExternal(ctx, in.Channel, in.ExternalID); err != nil {
		return IngestResult{}, err
	} else if existing != nil {
		s.log.Ingestion(in.Channel, in.ExternalID, true, existing.RequestID.String())
		return s.duplicateResult(*existing), nil
	}

	// Concurrent redeliveries of the same provider message share one execution.
	key := in.Channel + ":" + in.ExternalID
	value, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.ingest(ctx, in)
	})
	if err != nil {
		return IngestResult{}, err
	}
	result := value.(IngestResult)
	s.log.Ingestion(in.Channel, in.ExternalID, result.Duplicate, result.RequestID.String())
	return result, nil
}

func (s *LedgerService) ingest(ctx context.Context, in InboundMessage) (IngestResult, error) {
	clientID, err := s.resolveSender(ctx, in)
	if err != nil {
		return IngestResult{}, err
	}

	since := time.Now().Add(-s.window)
	candidate, err := s.store.FindCandidate(ctx, clientID, in.Channel, in.SenderIdentity, since)
	if err != nil {
		return IngestResult{}, err
	}

	if candidate != nil {
		result, attached, err := s.tryContinuation(ctx, in, *candidate)
		if err != nil || attached {
			return result, err
		}
	}

	return s.openRequest(ctx, in, clientID)
}

// tryContinuation resolves the continuation decision and, when positive,
// appends the message to the candidate. The decision is made inside the
// candidate's critical section so two concurrent messages cannot both win it
// against a stale snapshot.
func (s *LedgerService) tryContinuation(ctx context.Context, in InboundMessage, candidate repository.Request) (IngestResult, bool, error) {
	unlock := s.locks.Lock(candidate.ID)
	defer unlock()

	history, err := s.store.LastInboundContents(ctx, candidate.ID, classifierHistoryLimit)
	if err != nil {
		return IngestResult{}, false, err
	}

	decision := s.resolver.Resolve(ctx, history, in.Content)
	if !decision.IsContinuation {
		return IngestResult{}, false, nil
	}

	externalID := in.ExternalID
	msg := repository.Message{
		RequestID:      candidate.ID,
		Direction:      domain.DirectionInbound,
		Channel:        in.Channel,
		ExternalID:     &externalID,
		SenderIdentity: in.SenderIdentity,
		Content:        in.Content,
		CreatedAt:      in.Timestamp,
	}
	if err := s.store.InsertMessage(ctx, &msg); err != nil {
		if errors.Is(err, repository.ErrDuplicateMessage) {
			return s.recoverDuplicate(ctx, in)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return IngestResult{}, false, apperr.NotFound("request not found")
		}
		return IngestResult{}, false, err
	}

	reason := decision.Reason
	if err := s.store.AppendTimeline(ctx, &repository.TimelineEvent{
		RequestID: candidate.ID,
		ActorType: repository.ActorSystem,
		ActorName: "RequestLedger",
		EventType: repository.TimelineMessageAdded,
		Title:     "Inbound message attached",
		Summary:   &reason,
		Metadata: map[string]any{
			"channel":    in.Channel,
			"confidence": decision.Confidence,
		},
	}); err != nil {
		s.log.Error("failed to record message timeline event", "error", err, "requestId", candidate.ID)
	}

	if err := s.enrich(ctx, candidate.ID, in, false); err != nil {
		return IngestResult{}, false, err
	}

	req, err := s.store.GetRequest(ctx, candidate.ID)
	if err != nil {
		return IngestResult{}, false, err
	}

	s.bus.Publish(ctx, events.MessageIngested{
		BaseEvent:    events.NewBaseEvent(),
		RequestID:    candidate.ID,
		MessageID:    msg.ID,
		Channel:      in.Channel,
		Continuation: true,
	})

	return IngestResult{
		RequestID:    candidate.ID,
		MessageID:    msg.ID,
		Continuation: true,
		Stage:        req.PipelineStage,
	}, true, nil
}

// openRequest creates a new request with its first message, then runs the
// post-ingest pipeline under the new request's lock.
func (s *LedgerService) openRequest(ctx context.Context, in InboundMessage, clientID *uuid.UUID) (IngestResult, error) {
	category := s.detectCategory(ctx, in.Content)

	req := repository.Request{
		Source:          in.Channel,
		ClientID:        clientID,
		SenderIdentity:  in.SenderIdentity,
		Status:          domain.StatusNewRequest,
		PipelineStage:   domain.StageNewRequest,
		Category:        category,
		Urgency:         domain.DetectUrgency(in.Content),
		RawContent:      in.Content,
		ExtractedFields: map[string]string{},
		AutoReply:       true,
	}
	externalID := in.ExternalID
	msg := repository.Message{
		Direction:      domain.DirectionInbound,
		Channel:        in.Channel,
		ExternalID:     &externalID,
		SenderIdentity: in.SenderIdentity,
		Content:        in.Content,
		CreatedAt:      in.Timestamp,
	}

	if err := s.store.CreateRequestWithMessage(ctx, &req, &msg); err != nil {
		if errors.Is(err, repository.ErrDuplicateMessage) {
			result, _, rerr := s.recoverDuplicate(ctx, in)
			return result, rerr
		}
		return IngestResult{}, err
	}

	s.bus.Publish(ctx, events.RequestCreated{
		BaseEvent: events.NewBaseEvent(),
		RequestID: req.ID,
		ClientID:  clientID,
		Source:    in.Channel,
	})

	unlock := s.locks.Lock(req.ID)
	defer unlock()

	// The first message's text is already the request's raw content.
	if err := s.enrich(ctx, req.ID, in, true); err != nil {
		return IngestResult{}, err
	}

	updated, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return IngestResult{}, err
	}

	return IngestResult{
		RequestID: req.ID,
		MessageID: msg.ID,
		Stage:     updated.PipelineStage,
	}, nil
}

// enrich recomputes extraction and completeness for the request, queues a
// clarification when warranted, and runs one automation pass. Must be called
// with the request's lock held. contentRecorded marks the message text as
// already present in the request's raw content; otherwise it is appended,
// even when the text duplicates something said earlier.
func (s *LedgerService) enrich(ctx context.Context, requestID uuid.UUID, in InboundMessage, contentRecorded bool) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if !contentRecorded {
		if req.RawContent == "" {
			req.RawContent = in.Content
		} else {
			req.RawContent = req.RawContent + "\n" + in.Content
		}
	}

	if req.Category == nil {
		req.Category = s.detectCategory(ctx, req.RawContent)
	}

	urgency := req.Urgency
	if detected := domain.DetectUrgency(in.Content); detected == domain.UrgencyUrgent || (detected == domain.UrgencyHigh && urgency == domain.UrgencyNormal) {
		urgency = detected
	}

	report, err := s.completeness.Score(ctx, repository.Request{
		ID:              req.ID,
		Category:        req.Category,
		RawContent:      req.RawContent,
		ExtractedFields: req.ExtractedFields,
	})
	if err != nil {
		return err
	}

	if err := s.store.UpdateContent(ctx, req.ID, req.RawContent, report.MergedFields, req.Category, urgency); err != nil {
		return err
	}
	req.ExtractedFields = report.MergedFields

	if !report.Uncategorized && report.Completeness < 1.0 && req.AutoReply {
		s.queueClarification(ctx, req, in, report)
	}

	req, err = s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	if _, err := s.automation.Process(ctx, req); err != nil {
		return err
	}
	return nil
}

// queueClarification records an outbound message asking for the missing
// fields. Delivery is the channel collaborator's responsibility; the message
// stays processed=false until a send is confirmed.
func (s *LedgerService) queueClarification(ctx context.Context, req repository.Request, in InboundMessage, report CompletenessReport) {
	if len(report.MissingLabels) == 0 {
		return
	}

	content := "Para avanzar con tu solicitud necesitamos: " + strings.Join(report.MissingLabels, ", ") + "."
	msg := repository.Message{
		RequestID:      req.ID,
		Channel:        in.Channel,
		SenderIdentity: in.SenderIdentity,
		Content:        content,
	}
	if err := s.store.QueueOutbound(ctx, &msg); err != nil {
		s.log.Error("failed to queue clarification", "error", err, "requestId", req.ID)
		return
	}

	summary := "missing: " + strings.Join(report.MissingFields, ", ")
	if err := s.store.AppendTimeline(ctx, &repository.TimelineEvent{
		RequestID: req.ID,
		ActorType: repository.ActorAutomation,
		ActorName: "CompletenessEngine",
		EventType: repository.TimelineClarification,
		Title:     "Clarification queued",
		Summary:   &summary,
		Metadata:  map[string]any{"completeness": report.Completeness},
	}); err != nil {
		s.log.Error("failed to record clarification timeline event", "error", err, "requestId", req.ID)
	}

	s.bus.Publish(ctx, events.OutboundQueued{
		BaseEvent: events.NewBaseEvent(),
		RequestID: req.ID,
		MessageID: msg.ID,
		Channel:   in.Channel,
	})

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueOutboundDispatch(ctx, msg.ID); err != nil {
			s.log.Error("failed to enqueue outbound dispatch", "error", err, "messageId", msg.ID)
		}
	}
}

// RunAutomation executes one automation pass under the request's lock. Used
// by event handlers when RFQ or purchase-order artifacts change.
func (s *LedgerService) RunAutomation(ctx context.Context, requestID uuid.UUID) (*Transition, error) {
	unlock := s.locks.Lock(requestID)
	defer unlock()

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("request not found")
		}
		return nil, err
	}
	return s.automation.Process(ctx, req)
}

// recoverDuplicate handles the uniqueness-constraint race: another delivery
// of the same provider message id won the insert.
func (s *LedgerService) recoverDuplicate(ctx context.Context, in InboundMessage) (IngestResult, bool, error) {
	existing, err := s.store.FindMessageByExternal(ctx, in.Channel, in.ExternalID)
	if err != nil {
		return IngestResult{}, false, err
	}
	if existing == nil {
		return IngestResult{}, false, apperr.Internal("duplicate message vanished")
	}
	return s.duplicateResult(*existing), true, nil
}

func (s *LedgerService) duplicateResult(msg repository.Message) IngestResult {
	return IngestResult{
		RequestID: msg.RequestID,
		MessageID: msg.ID,
		Duplicate: true,
	}
}

func (s *LedgerService) resolveSender(ctx context.Context, in InboundMessage) (*uuid.UUID, error) {
	if s.contacts == nil || strings.TrimSpace(in.SenderIdentity) == "" {
		return nil, nil
	}
	match, err := s.contacts.ResolveSender(ctx, in.Channel, in.SenderIdentity)
	if err != nil {
		// Resolution failures must not lose messages: ingest with a null client.
		s.log.Warn("sender resolution failed", "error", err, "channel", in.Channel)
		return nil, nil
	}
	if match == nil {
		return nil, nil
	}
	id := match.ClientID
	return &id, nil
}

func (s *LedgerService) detectCategory(ctx context.Context, content string) *string {
	category, ok := s.completeness.DetectCategory(ctx, content)
	if !ok {
		return nil
	}
	return &category
}
