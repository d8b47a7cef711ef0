package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"procurement_backend/internal/catalog/domain"
	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// memStore is an in-memory Store mirroring the repository's SQL semantics.
type memStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*repository.Request
	messages []*repository.Message
	timeline []repository.TimelineEvent
}

func newMemStore() *memStore {
	return &memStore{requests: make(map[uuid.UUID]*repository.Request)}
}

var _ repository.Store = (*memStore)(nil)

func cloneRequest(req repository.Request) repository.Request {
	fields := make(map[string]string, len(req.ExtractedFields))
	for k, v := range req.ExtractedFields {
		fields[k] = v
	}
	req.ExtractedFields = fields
	return req
}

func (s *memStore) findDuplicateLocked(channel string, externalID *string) *repository.Message {
	if externalID == nil {
		return nil
	}
	for _, msg := range s.messages {
		if msg.Channel == channel && msg.ExternalID != nil && *msg.ExternalID == *externalID {
			return msg
		}
	}
	return nil
}

func (s *memStore) CreateRequestWithMessage(_ context.Context, req *repository.Request, msg *repository.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findDuplicateLocked(msg.Channel, msg.ExternalID) != nil {
		return repository.ErrDuplicateMessage
	}
	now := time.Now()
	req.ID = uuid.New()
	req.CreatedAt = now
	req.UpdatedAt = now
	stored := cloneRequest(*req)
	s.requests[req.ID] = &stored

	msg.ID = uuid.New()
	msg.RequestID = req.ID
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *memStore) GetRequest(_ context.Context, id uuid.UUID) (repository.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.DeletedAt != nil {
		return repository.Request{}, repository.ErrNotFound
	}
	return cloneRequest(*req), nil
}

func (s *memStore) ListRequests(_ context.Context, filter repository.ListFilter) ([]repository.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Request
	for _, req := range s.requests {
		if req.DeletedAt != nil {
			continue
		}
		if filter.Stage != "" && req.PipelineStage != filter.Stage {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.ClientID != nil && (req.ClientID == nil || *req.ClientID != *filter.ClientID) {
			continue
		}
		out = append(out, cloneRequest(*req))
	}
	return out, nil
}

func (s *memStore) UpdateContent(_ context.Context, id uuid.UUID, rawContent string, fields map[string]string, category *string, urgency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.DeletedAt != nil {
		return repository.ErrNotFound
	}
	req.RawContent = rawContent
	req.ExtractedFields = make(map[string]string, len(fields))
	for k, v := range fields {
		req.ExtractedFields[k] = v
	}
	if category != nil {
		req.Category = category
	}
	req.Urgency = urgency
	req.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) UpdateStageStatus(_ context.Context, id uuid.UUID, stage, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.DeletedAt != nil {
		return repository.ErrNotFound
	}
	req.PipelineStage = stage
	req.Status = status
	req.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.DeletedAt != nil {
		return repository.ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	req.DeletedAt = &now
	return nil
}

func (s *memStore) ListSiblings(_ context.Context, target repository.Request) ([]repository.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Request
	for _, req := range s.requests {
		if req.ID == target.ID || req.DeletedAt != nil || req.PipelineStage == "closed" {
			continue
		}
		if target.ClientID != nil {
			if req.ClientID != nil && *req.ClientID == *target.ClientID {
				out = append(out, cloneRequest(*req))
			}
		} else if req.ClientID == nil && req.SenderIdentity == target.SenderIdentity && req.Source == target.Source {
			out = append(out, cloneRequest(*req))
		}
	}
	return out, nil
}

func (s *memStore) FindCandidate(_ context.Context, clientID *uuid.UUID, channel, senderIdentity string, since time.Time) (*repository.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *repository.Request
	for _, req := range s.requests {
		if req.DeletedAt != nil || req.PipelineStage == "closed" || req.UpdatedAt.Before(since) {
			continue
		}
		match := false
		if clientID != nil {
			match = req.ClientID != nil && *req.ClientID == *clientID
		} else {
			match = req.ClientID == nil && req.SenderIdentity == senderIdentity && req.Source == channel
		}
		if match && (best == nil || req.UpdatedAt.After(best.UpdatedAt)) {
			best = req
		}
	}
	if best == nil {
		return nil, nil
	}
	found := cloneRequest(*best)
	return &found, nil
}

func (s *memStore) FindMessageByExternal(_ context.Context, channel, externalID string) (*repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.findDuplicateLocked(channel, &externalID); msg != nil {
		found := *msg
		return &found, nil
	}
	return nil, nil
}

func (s *memStore) InsertMessage(_ context.Context, msg *repository.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findDuplicateLocked(msg.Channel, msg.ExternalID) != nil {
		return repository.ErrDuplicateMessage
	}
	if _, ok := s.requests[msg.RequestID]; !ok {
		return repository.ErrNotFound
	}
	msg.ID = uuid.New()
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *memStore) ListMessages(_ context.Context, requestID uuid.UUID) ([]repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Message
	for _, msg := range s.messages {
		if msg.RequestID == requestID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (s *memStore) LastInboundContents(_ context.Context, requestID uuid.UUID, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, msg := range s.messages {
		if msg.RequestID == requestID && msg.Direction == "inbound" {
			out = append(out, msg.Content)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) QueueOutbound(_ context.Context, msg *repository.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[msg.RequestID]; !ok {
		return repository.ErrNotFound
	}
	msg.ID = uuid.New()
	msg.Direction = "outbound"
	processed := false
	msg.Processed = &processed
	msg.CreatedAt = time.Now()
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *memStore) GetMessage(_ context.Context, id uuid.UUID) (repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			return *msg, nil
		}
	}
	return repository.Message{}, repository.ErrNotFound
}

func (s *memStore) ListUnprocessedOutbound(_ context.Context, limit int) ([]repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Message
	for _, msg := range s.messages {
		if msg.Direction == "outbound" && msg.Processed != nil && !*msg.Processed {
			out = append(out, *msg)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) MarkOutboundProcessed(_ context.Context, id uuid.UUID, providerMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id && msg.Direction == "outbound" {
			processed := true
			msg.Processed = &processed
			if providerMessageID != "" {
				msg.ExternalID = &providerMessageID
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) AppendTimeline(_ context.Context, event *repository.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[event.RequestID]; !ok {
		return repository.ErrNotFound
	}
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	s.timeline = append(s.timeline, *event)
	return nil
}

func (s *memStore) ListTimeline(_ context.Context, requestID uuid.UUID) ([]repository.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.TimelineEvent
	for _, event := range s.timeline {
		if event.RequestID == requestID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *memStore) timelineEvents(requestID uuid.UUID, eventType string) []repository.TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.TimelineEvent
	for _, event := range s.timeline {
		if event.RequestID == requestID && event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (s *memStore) outboundMessages(requestID uuid.UUID) []repository.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Message
	for _, msg := range s.messages {
		if msg.RequestID == requestID && msg.Direction == "outbound" {
			out = append(out, *msg)
		}
	}
	return out
}

// fakeRules serves category rules from a fixed map.
type fakeRules struct {
	rules map[string]domain.CategoryRule
}

func herramientasRules() *fakeRules {
	return &fakeRules{rules: map[string]domain.CategoryRule{
		"herramientas": {
			Category: "herramientas",
			Fields: []domain.FieldRule{
				{ID: "quantity", Label: "cantidad", Required: true, Examples: []string{"100 piezas"}},
				{ID: "unit", Label: "unidad", Required: true, Examples: []string{"piezas", "cajas"}},
				{ID: "tool_type", Label: "tipo de herramienta", Required: false, Examples: []string{"tornillos", "martillo"}},
			},
		},
	}}
}

func (f *fakeRules) RuleFor(_ context.Context, category string) (domain.CategoryRule, bool, error) {
	rule, ok := f.rules[strings.ToLower(category)]
	return rule, ok, nil
}

func (f *fakeRules) List(_ context.Context) ([]domain.CategoryRule, error) {
	out := make([]domain.CategoryRule, 0, len(f.rules))
	for _, rule := range f.rules {
		out = append(out, rule)
	}
	return out, nil
}

// fakeRFQ and fakePO return canned side-artifact state.
type fakeRFQ struct{ state ports.RFQState }

func (f *fakeRFQ) StateForRequest(context.Context, uuid.UUID) (ports.RFQState, error) {
	return f.state, nil
}

type fakePO struct{ state ports.PurchaseOrderState }

func (f *fakePO) StateForRequest(context.Context, uuid.UUID) (ports.PurchaseOrderState, error) {
	return f.state, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, event := range b.events {
		if event.EventName() == name {
			out = append(out, event)
		}
	}
	return out
}
