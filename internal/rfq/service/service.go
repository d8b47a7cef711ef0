// Package service implements RFQ management and quote scoring.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/rfq/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// totalTolerance bounds rounding drift between a quote's total and the sum of
// its components.
const totalTolerance = 0.01

// Store is the persistence surface the service needs. Satisfied by
// *repository.Repository.
type Store interface {
	CreateRFQ(ctx context.Context, rfq *repository.RFQ) error
	GetRFQ(ctx context.Context, id uuid.UUID) (repository.RFQ, error)
	LatestOpenRFQ(ctx context.Context, requestID uuid.UUID) (*repository.RFQ, error)
	CountForRequest(ctx context.Context, requestID uuid.UUID) (rfqs int, submittedQuotes int, err error)
	InsertQuote(ctx context.Context, quote *repository.Quote) error
	GetQuote(ctx context.Context, id uuid.UUID) (repository.Quote, error)
	ListQuotes(ctx context.Context, rfqID uuid.UUID) ([]repository.Quote, error)
	MarkQuoteStatus(ctx context.Context, id uuid.UUID, from, to string) error
}

// Service manages RFQs and supplier quotes.
type Service struct {
	repo    Store
	scoring *ScoringEngine
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new rfq service.
func New(repo Store, scoring *ScoringEngine, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, scoring: scoring, bus: bus, log: log}
}

// CreateRFQ opens a quoting round for a request. A request keeps at most one
// open RFQ; a second create returns the existing one.
func (s *Service) CreateRFQ(ctx context.Context, requestID uuid.UUID) (repository.RFQ, error) {
	if existing, err := s.repo.LatestOpenRFQ(ctx, requestID); err != nil {
		return repository.RFQ{}, err
	} else if existing != nil {
		return *existing, nil
	}

	rfq := repository.RFQ{RequestID: requestID}
	if err := s.repo.CreateRFQ(ctx, &rfq); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.RFQ{}, apperr.NotFound("request not found")
		}
		return repository.RFQ{}, err
	}
	rfq.Status = repository.RFQStatusOpen

	s.bus.Publish(ctx, events.RFQCreated{
		BaseEvent: events.NewBaseEvent(),
		RFQID:     rfq.ID,
		RequestID: requestID,
	})
	return rfq, nil
}

// Get returns an RFQ with its quotes.
func (s *Service) Get(ctx context.Context, rfqID uuid.UUID) (repository.RFQ, []repository.Quote, error) {
	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.RFQ{}, nil, apperr.NotFound("rfq not found")
	}
	if err != nil {
		return repository.RFQ{}, nil, err
	}
	quotes, err := s.repo.ListQuotes(ctx, rfqID)
	return rfq, quotes, err
}

// QuoteInput carries a supplier's offer.
type QuoteInput struct {
	SupplierName string
	Items        []repository.QuoteItem
	Subtotal     float64
	Taxes        float64
	Shipping     float64
	Total        float64
	DeliveryDays int
	ValidUntil   *time.Time
}

// SubmitQuote stores a supplier quote against an open RFQ. Quotes whose total
// disagrees with subtotal+taxes+shipping are stored flagged invalid rather
// than rejected, so the comparison view can show them.
func (s *Service) SubmitQuote(ctx context.Context, rfqID uuid.UUID, in QuoteInput) (repository.Quote, error) {
	if strings.TrimSpace(in.SupplierName) == "" {
		return repository.Quote{}, apperr.Validation("supplierName is required")
	}
	if in.Total <= 0 {
		return repository.Quote{}, apperr.Validation("total must be positive")
	}
	if in.DeliveryDays < 0 {
		return repository.Quote{}, apperr.Validation("deliveryDays must not be negative")
	}

	rfq, err := s.repo.GetRFQ(ctx, rfqID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Quote{}, apperr.NotFound("rfq not found")
	}
	if err != nil {
		return repository.Quote{}, err
	}
	if rfq.Status != repository.RFQStatusOpen {
		return repository.Quote{}, apperr.InvalidState("rfq is closed")
	}

	status := repository.QuoteStatusSubmitted
	if math.Abs(in.Total-(in.Subtotal+in.Taxes+in.Shipping)) > totalTolerance {
		status = repository.QuoteStatusInvalid
	}

	quote := repository.Quote{
		RFQID:        rfqID,
		SupplierName: strings.TrimSpace(in.SupplierName),
		Items:        in.Items,
		Subtotal:     in.Subtotal,
		Taxes:        in.Taxes,
		Shipping:     in.Shipping,
		Total:        in.Total,
		DeliveryDays: in.DeliveryDays,
		ValidUntil:   in.ValidUntil,
		Status:       status,
	}
	if err := s.repo.InsertQuote(ctx, &quote); err != nil {
		return repository.Quote{}, err
	}

	if status == repository.QuoteStatusSubmitted {
		s.bus.Publish(ctx, events.QuoteSubmitted{
			BaseEvent: events.NewBaseEvent(),
			RFQID:     rfqID,
			QuoteID:   quote.ID,
			RequestID: rfq.RequestID,
			Supplier:  quote.SupplierName,
		})
	}
	return quote, nil
}

// Compare scores an RFQ's quotes.
func (s *Service) Compare(ctx context.Context, rfqID uuid.UUID) (Comparison, error) {
	if _, err := s.repo.GetRFQ(ctx, rfqID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Comparison{}, apperr.NotFound("rfq not found")
		}
		return Comparison{}, err
	}

	quotes, err := s.repo.ListQuotes(ctx, rfqID)
	if err != nil {
		return Comparison{}, err
	}
	return s.scoring.Compare(quotes, time.Now()), nil
}

// AcceptedQuote is the slice of quote state the purchase-order flow needs.
type AcceptedQuote struct {
	QuoteID      uuid.UUID
	RFQID        uuid.UUID
	RequestID    uuid.UUID
	SupplierName string
	Total        float64
}

// AcceptQuote marks a quote accepted for purchase-order creation. The quote's
// RFQ must be open and the quote submitted and unexpired; sibling quotes are
// left untouched. The guarded status update backs the acceptance race: the
// loser gets InvalidState.
func (s *Service) AcceptQuote(ctx context.Context, quoteID uuid.UUID) (AcceptedQuote, error) {
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if errors.Is(err, repository.ErrNotFound) {
		return AcceptedQuote{}, apperr.NotFound("quote not found")
	}
	if err != nil {
		return AcceptedQuote{}, err
	}

	rfq, err := s.repo.GetRFQ(ctx, quote.RFQID)
	if err != nil {
		return AcceptedQuote{}, err
	}
	if rfq.Status != repository.RFQStatusOpen {
		return AcceptedQuote{}, apperr.InvalidState("rfq is closed")
	}

	switch quote.Status {
	case repository.QuoteStatusAccepted:
		return AcceptedQuote{}, apperr.InvalidState("quote already accepted")
	case repository.QuoteStatusInvalid, repository.QuoteStatusRejected:
		return AcceptedQuote{}, apperr.InvalidState("quote is not acceptable")
	}
	if quote.ValidUntil != nil && quote.ValidUntil.Before(time.Now()) {
		return AcceptedQuote{}, apperr.InvalidState("quote has expired")
	}

	if err := s.repo.MarkQuoteStatus(ctx, quoteID, repository.QuoteStatusSubmitted, repository.QuoteStatusAccepted); err != nil {
		if errors.Is(err, repository.ErrQuoteAccepted) {
			return AcceptedQuote{}, apperr.InvalidState("quote already accepted")
		}
		return AcceptedQuote{}, err
	}

	return AcceptedQuote{
		QuoteID:      quote.ID,
		RFQID:        quote.RFQID,
		RequestID:    rfq.RequestID,
		SupplierName: quote.SupplierName,
		Total:        quote.Total,
	}, nil
}

// StateForRequest reports RFQ presence and submitted quote count for the
// automation rules.
func (s *Service) StateForRequest(ctx context.Context, requestID uuid.UUID) (ports.RFQState, error) {
	rfqs, submitted, err := s.repo.CountForRequest(ctx, requestID)
	if err != nil {
		return ports.RFQState{}, err
	}
	return ports.RFQState{Exists: rfqs > 0, SubmittedQuotes: submitted}, nil
}

// Compile-time check that Service implements ports.RFQReader
var _ ports.RFQReader = (*Service)(nil)
