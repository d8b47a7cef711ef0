package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/rfq/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// noopBus satisfies events.Bus for tests that do not assert on events.
type noopBus struct{}

func (noopBus) Publish(context.Context, events.Event) {}

func (noopBus) PublishSync(context.Context, events.Event) error { return nil }

func (noopBus) Subscribe(string, events.Handler) {}

// memStore is an in-memory Store mirroring the repository's guarded updates.
type memStore struct {
	mu     sync.Mutex
	rfqs   map[uuid.UUID]*repository.RFQ
	quotes map[uuid.UUID]*repository.Quote
	order  []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		rfqs:   make(map[uuid.UUID]*repository.RFQ),
		quotes: make(map[uuid.UUID]*repository.Quote),
	}
}

func (s *memStore) CreateRFQ(_ context.Context, rfq *repository.RFQ) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	round := 0
	for _, existing := range s.rfqs {
		if existing.RequestID == rfq.RequestID && existing.Round > round {
			round = existing.Round
		}
	}
	rfq.ID = uuid.New()
	rfq.Status = repository.RFQStatusOpen
	rfq.Round = round + 1
	rfq.CreatedAt = time.Now()
	rfq.UpdatedAt = rfq.CreatedAt
	stored := *rfq
	s.rfqs[rfq.ID] = &stored
	return nil
}

func (s *memStore) GetRFQ(_ context.Context, id uuid.UUID) (repository.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rfq, ok := s.rfqs[id]
	if !ok {
		return repository.RFQ{}, repository.ErrNotFound
	}
	return *rfq, nil
}

func (s *memStore) LatestOpenRFQ(_ context.Context, requestID uuid.UUID) (*repository.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *repository.RFQ
	for _, rfq := range s.rfqs {
		if rfq.RequestID != requestID || rfq.Status != repository.RFQStatusOpen {
			continue
		}
		if latest == nil || rfq.Round > latest.Round {
			latest = rfq
		}
	}
	if latest == nil {
		return nil, nil
	}
	found := *latest
	return &found, nil
}

func (s *memStore) CountForRequest(_ context.Context, requestID uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rfqs, submitted := 0, 0
	for _, rfq := range s.rfqs {
		if rfq.RequestID != requestID {
			continue
		}
		rfqs++
		for _, quote := range s.quotes {
			if quote.RFQID == rfq.ID && quote.Status == repository.QuoteStatusSubmitted {
				submitted++
			}
		}
	}
	return rfqs, submitted, nil
}

func (s *memStore) InsertQuote(_ context.Context, quote *repository.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rfqs[quote.RFQID]; !ok {
		return repository.ErrNotFound
	}
	quote.ID = uuid.New()
	if quote.SubmittedAt.IsZero() {
		quote.SubmittedAt = time.Now()
	}
	stored := *quote
	s.quotes[quote.ID] = &stored
	s.order = append(s.order, quote.ID)
	return nil
}

func (s *memStore) GetQuote(_ context.Context, id uuid.UUID) (repository.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok {
		return repository.Quote{}, repository.ErrNotFound
	}
	return *quote, nil
}

func (s *memStore) ListQuotes(_ context.Context, rfqID uuid.UUID) ([]repository.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Quote
	for _, id := range s.order {
		if quote := s.quotes[id]; quote.RFQID == rfqID {
			out = append(out, *quote)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *memStore) MarkQuoteStatus(_ context.Context, id uuid.UUID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok || quote.Status != from {
		return repository.ErrQuoteAccepted
	}
	quote.Status = to
	return nil
}

func newTestService(store *memStore) *Service {
	return New(store, NewScoringEngine(0.7, 0.3), noopBus{}, testLogger())
}

func submitQuote(t *testing.T, svc *Service, rfqID uuid.UUID, total float64) repository.Quote {
	t.Helper()
	stored, err := svc.SubmitQuote(context.Background(), rfqID, QuoteInput{
		SupplierName: "Proveedor",
		Subtotal:     total,
		Total:        total,
		DeliveryDays: 5,
	})
	if err != nil {
		t.Fatalf("submit quote: %v", err)
	}
	return stored
}

func TestCreateRFQReturnsExistingOpenRound(t *testing.T) {
	svc := newTestService(newMemStore())
	requestID := uuid.New()

	first, err := svc.CreateRFQ(context.Background(), requestID)
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	second, err := svc.CreateRFQ(context.Background(), requestID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second create opened a new round %v, want existing %v", second.ID, first.ID)
	}
}

func TestAcceptQuoteLeavesSiblingsUntouched(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	rfq, err := svc.CreateRFQ(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	chosen := submitQuote(t, svc, rfq.ID, 1000)
	sibling := submitQuote(t, svc, rfq.ID, 1200)

	accepted, err := svc.AcceptQuote(context.Background(), chosen.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.QuoteID != chosen.ID || accepted.RequestID != rfq.RequestID {
		t.Errorf("accepted = %+v", accepted)
	}

	got, _ := store.GetQuote(context.Background(), chosen.ID)
	if got.Status != repository.QuoteStatusAccepted {
		t.Errorf("chosen status = %q, want accepted", got.Status)
	}
	got, _ = store.GetQuote(context.Background(), sibling.ID)
	if got.Status != repository.QuoteStatusSubmitted {
		t.Errorf("sibling status = %q, acceptance must not touch siblings", got.Status)
	}
}

func TestAcceptQuoteTwice(t *testing.T) {
	svc := newTestService(newMemStore())

	rfq, err := svc.CreateRFQ(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	quote := submitQuote(t, svc, rfq.ID, 1000)

	if _, err := svc.AcceptQuote(context.Background(), quote.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.AcceptQuote(context.Background(), quote.ID); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("second accept: err = %v, want invalid state", err)
	}
}

func TestAcceptExpiredQuote(t *testing.T) {
	svc := newTestService(newMemStore())

	rfq, err := svc.CreateRFQ(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	expired := time.Now().Add(-time.Hour)
	stored, err := svc.SubmitQuote(context.Background(), rfq.ID, QuoteInput{
		SupplierName: "Proveedor",
		Subtotal:     1000,
		Total:        1000,
		DeliveryDays: 5,
		ValidUntil:   &expired,
	})
	if err != nil {
		t.Fatalf("submit quote: %v", err)
	}

	if _, err := svc.AcceptQuote(context.Background(), stored.ID); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("err = %v, want invalid state for expired quote", err)
	}
}

func TestSubmitQuoteInconsistentTotalStoredInvalid(t *testing.T) {
	svc := newTestService(newMemStore())

	rfq, err := svc.CreateRFQ(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	stored, err := svc.SubmitQuote(context.Background(), rfq.ID, QuoteInput{
		SupplierName: "Proveedor",
		Subtotal:     900,
		Taxes:        50,
		Shipping:     10,
		Total:        1000,
		DeliveryDays: 5,
	})
	if err != nil {
		t.Fatalf("submit quote: %v", err)
	}
	if stored.Status != repository.QuoteStatusInvalid {
		t.Errorf("status = %q, inconsistent totals must be flagged invalid", stored.Status)
	}

	if _, err := svc.AcceptQuote(context.Background(), stored.ID); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("err = %v, want invalid state for an invalid quote", err)
	}
}
