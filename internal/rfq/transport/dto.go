// Package transport defines request/response DTOs for the rfq HTTP API.
package transport

import "time"

// CreateRFQRequest opens a quoting round for a request.
type CreateRFQRequest struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
}

// QuoteItemPayload is one line of a submitted quote.
type QuoteItemPayload struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

// SubmitQuoteRequest carries a supplier's offer.
type SubmitQuoteRequest struct {
	SupplierName string             `json:"supplierName" validate:"required,max=255"`
	Items        []QuoteItemPayload `json:"items" validate:"omitempty,dive"`
	Subtotal     float64            `json:"subtotal" validate:"gte=0"`
	Taxes        float64            `json:"taxes" validate:"gte=0"`
	Shipping     float64            `json:"shipping" validate:"gte=0"`
	Total        float64            `json:"total" validate:"gt=0"`
	DeliveryDays int                `json:"deliveryDays" validate:"gte=0"`
	ValidUntil   *time.Time         `json:"validUntil"`
}
