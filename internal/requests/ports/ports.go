// Package ports defines the collaborator interfaces the requests services
// depend on, keeping the bounded context decoupled from its neighbors.
package ports

import (
	"context"

	catalogdomain "procurement_backend/internal/catalog/domain"

	"github.com/google/uuid"
)

// CategoryRuleSource looks up the field rules for a category.
// Satisfied by the catalog service.
type CategoryRuleSource interface {
	RuleFor(ctx context.Context, category string) (catalogdomain.CategoryRule, bool, error)
	List(ctx context.Context) ([]catalogdomain.CategoryRule, error)
}

// ContactMatch is a resolved sender identity.
type ContactMatch struct {
	ClientID uuid.UUID
	Name     string
}

// ContactResolver maps a channel sender identity (phone/email) to a known client.
// Satisfied by the clients service.
type ContactResolver interface {
	ResolveSender(ctx context.Context, channel, senderIdentity string) (*ContactMatch, error)
}

// RFQState summarizes the RFQ side artifacts the automation rules inspect.
type RFQState struct {
	Exists          bool
	SubmittedQuotes int
}

// RFQReader reports RFQ state for a request. Satisfied by the rfq service.
type RFQReader interface {
	StateForRequest(ctx context.Context, requestID uuid.UUID) (RFQState, error)
}

// PurchaseOrderState summarizes the PO side artifact the automation rules inspect.
type PurchaseOrderState struct {
	Exists bool
	Status string
}

// PurchaseOrderReader reports PO state for a request.
// Satisfied by the purchaseorders service.
type PurchaseOrderReader interface {
	StateForRequest(ctx context.Context, requestID uuid.UUID) (PurchaseOrderState, error)
}

// OutboundEnqueuer schedules delivery of a queued outbound message.
// Satisfied by the scheduler client; a nil-safe no-op keeps the ledger
// functional when no background worker is configured.
type OutboundEnqueuer interface {
	EnqueueOutboundDispatch(ctx context.Context, messageID uuid.UUID) error
}
