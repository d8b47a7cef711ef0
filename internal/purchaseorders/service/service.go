// Package service implements the purchase order lifecycle.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/purchaseorders/domain"
	"procurement_backend/internal/purchaseorders/repository"
	"procurement_backend/internal/requests/ports"
	rfqservice "procurement_backend/internal/rfq/service"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// paymentTolerance bounds acceptable drift between a recorded payment and the
// order total.
const paymentTolerance = 0.01

// QuoteAccepter validates and accepts a quote for purchase. Satisfied by the
// rfq service.
type QuoteAccepter interface {
	AcceptQuote(ctx context.Context, quoteID uuid.UUID) (rfqservice.AcceptedQuote, error)
}

// Store is the persistence surface the service needs. Satisfied by
// *repository.Repository.
type Store interface {
	Create(ctx context.Context, po *repository.PurchaseOrder) error
	Get(ctx context.Context, id uuid.UUID) (repository.PurchaseOrder, error)
	LatestForRequest(ctx context.Context, requestID uuid.UUID) (*repository.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to, paymentStatus string, entry repository.TimelineEntry) error
}

// Service manages purchase orders.
type Service struct {
	repo   Store
	quotes QuoteAccepter
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new purchase orders service.
func New(repo Store, quotes QuoteAccepter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, quotes: quotes, bus: bus, log: log}
}

// Create opens a purchase order from an accepted quote. The quote must belong
// to an open RFQ, be submitted and unexpired, and not already be purchased;
// the unique quote_id constraint backs the creation race.
func (s *Service) Create(ctx context.Context, quoteID uuid.UUID, approvedBy string) (repository.PurchaseOrder, error) {
	if strings.TrimSpace(approvedBy) == "" {
		return repository.PurchaseOrder{}, apperr.Validation("approvedBy is required")
	}

	accepted, err := s.quotes.AcceptQuote(ctx, quoteID)
	if err != nil {
		return repository.PurchaseOrder{}, err
	}

	po := repository.PurchaseOrder{
		RequestID:     accepted.RequestID,
		QuoteID:       accepted.QuoteID,
		SupplierName:  accepted.SupplierName,
		Status:        domain.StatusApprovedByClient,
		PaymentStatus: domain.PaymentPending,
		TotalAmount:   accepted.Total,
		ApprovedBy:    approvedBy,
		Timeline: []repository.TimelineEntry{{
			At:     time.Now().UTC(),
			Status: domain.StatusApprovedByClient,
			Actor:  approvedBy,
			Note:   "purchase approved from quote " + accepted.QuoteID.String(),
		}},
	}
	if err := s.repo.Create(ctx, &po); err != nil {
		if errors.Is(err, repository.ErrQuoteTaken) {
			return repository.PurchaseOrder{}, apperr.InvalidState("quote already has a purchase order")
		}
		return repository.PurchaseOrder{}, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderCreated{
		BaseEvent:       events.NewBaseEvent(),
		PurchaseOrderID: po.ID,
		RequestID:       po.RequestID,
		QuoteID:         po.QuoteID,
	})
	return po, nil
}

// Get returns a purchase order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.PurchaseOrder{}, apperr.NotFound("purchase order not found")
	}
	return po, err
}

// Advance moves a purchase order to the immediate next lifecycle status, or
// cancels it. Skipping statuses is rejected with InvalidTransition.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, newStatus, note, actor string) (repository.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return repository.PurchaseOrder{}, err
	}

	if reason := domain.ValidateTransition(po.Status, newStatus); reason != "" {
		return repository.PurchaseOrder{}, apperr.InvalidTransition(reason)
	}

	// payment_received is only reachable through RecordPayment, which proves
	// the amount.
	if newStatus == domain.StatusPaymentReceived && po.PaymentStatus != domain.PaymentCompleted {
		return repository.PurchaseOrder{}, apperr.InvalidTransition("payment must be recorded first")
	}

	return s.transition(ctx, po, newStatus, po.PaymentStatus, note, actor)
}

// RecordPayment marks the order paid and advances it to payment_received.
// The amount must match the order total within a small tolerance.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount float64, method, reference, actor string) (repository.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return repository.PurchaseOrder{}, err
	}

	if po.Status != domain.StatusPaymentPending {
		return repository.PurchaseOrder{}, apperr.InvalidState("purchase order is not awaiting payment")
	}
	if math.Abs(amount-po.TotalAmount) > paymentTolerance {
		return repository.PurchaseOrder{}, apperr.Validation("payment amount does not match order total")
	}

	note := "payment recorded"
	if method != "" {
		note += " via " + method
	}
	if reference != "" {
		note += " (ref " + reference + ")"
	}
	return s.transition(ctx, po, domain.StatusPaymentReceived, domain.PaymentCompleted, note, actor)
}

func (s *Service) transition(ctx context.Context, po repository.PurchaseOrder, newStatus, paymentStatus, note, actor string) (repository.PurchaseOrder, error) {
	entry := repository.TimelineEntry{
		At:     time.Now().UTC(),
		Status: newStatus,
		Actor:  actor,
		Note:   note,
	}
	if err := s.repo.UpdateStatus(ctx, po.ID, po.Status, newStatus, paymentStatus, entry); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return repository.PurchaseOrder{}, apperr.InvalidState("purchase order state changed, retry")
		}
		return repository.PurchaseOrder{}, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		PurchaseOrderID: po.ID,
		RequestID:       po.RequestID,
		FromStatus:      po.Status,
		ToStatus:        newStatus,
	})

	return s.Get(ctx, po.ID)
}

// StateForRequest reports purchase order presence and status for the
// automation rules.
func (s *Service) StateForRequest(ctx context.Context, requestID uuid.UUID) (ports.PurchaseOrderState, error) {
	po, err := s.repo.LatestForRequest(ctx, requestID)
	if err != nil {
		return ports.PurchaseOrderState{}, err
	}
	if po == nil {
		return ports.PurchaseOrderState{}, nil
	}
	return ports.PurchaseOrderState{Exists: true, Status: po.Status}, nil
}

// Compile-time check that Service implements ports.PurchaseOrderReader
var _ ports.PurchaseOrderReader = (*Service)(nil)
