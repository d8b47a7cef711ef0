// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"procurement_backend/platform/events"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Request Lifecycle Events
// =============================================================================

// RequestCreated is published when a first inbound message opens a new request.
type RequestCreated struct {
	BaseEvent
	RequestID uuid.UUID  `json:"requestId"`
	ClientID  *uuid.UUID `json:"clientId,omitempty"`
	Source    string     `json:"source"`
}

func (e RequestCreated) EventName() string { return "requests.created" }

// MessageIngested is published for every newly stored inbound message.
type MessageIngested struct {
	BaseEvent
	RequestID    uuid.UUID `json:"requestId"`
	MessageID    uuid.UUID `json:"messageId"`
	Channel      string    `json:"channel"`
	Continuation bool      `json:"continuation"`
}

func (e MessageIngested) EventName() string { return "requests.message.ingested" }

// StageChanged is published when the automation engine or a manual override
// moves a request to a new pipeline stage.
type StageChanged struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Status    string    `json:"status"`
	Rule      string    `json:"rule,omitempty"`
}

func (e StageChanged) EventName() string { return "requests.stage.changed" }

// OutboundQueued is published when an outbound message is recorded for delivery.
type OutboundQueued struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	MessageID uuid.UUID `json:"messageId"`
	Channel   string    `json:"channel"`
}

func (e OutboundQueued) EventName() string { return "requests.outbound.queued" }

// =============================================================================
// RFQ / Quote Events
// =============================================================================

// RFQCreated is published when an RFQ is opened for a request.
type RFQCreated struct {
	BaseEvent
	RFQID     uuid.UUID `json:"rfqId"`
	RequestID uuid.UUID `json:"requestId"`
}

func (e RFQCreated) EventName() string { return "rfq.created" }

// QuoteSubmitted is published when a supplier quote is stored.
type QuoteSubmitted struct {
	BaseEvent
	RFQID     uuid.UUID `json:"rfqId"`
	QuoteID   uuid.UUID `json:"quoteId"`
	RequestID uuid.UUID `json:"requestId"`
	Supplier  string    `json:"supplier"`
}

func (e QuoteSubmitted) EventName() string { return "rfq.quote.submitted" }

// =============================================================================
// Purchase Order Events
// =============================================================================

// PurchaseOrderCreated is published when a quote is accepted into a PO.
type PurchaseOrderCreated struct {
	BaseEvent
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	RequestID       uuid.UUID `json:"requestId"`
	QuoteID         uuid.UUID `json:"quoteId"`
}

func (e PurchaseOrderCreated) EventName() string { return "po.created" }

// PurchaseOrderStatusChanged is published on every PO lifecycle transition.
type PurchaseOrderStatusChanged struct {
	BaseEvent
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	RequestID       uuid.UUID `json:"requestId"`
	FromStatus      string    `json:"fromStatus"`
	ToStatus        string    `json:"toStatus"`
}

func (e PurchaseOrderStatusChanged) EventName() string { return "po.status.changed" }
