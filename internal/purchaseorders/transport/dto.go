// Package transport defines request/response DTOs for the purchase orders HTTP API.
package transport

// CreatePORequest opens a purchase order from an accepted quote.
type CreatePORequest struct {
	QuoteID string `json:"quoteId" validate:"required,uuid"`
}

// AdvancePORequest moves a purchase order to its next lifecycle status.
type AdvancePORequest struct {
	Status string `json:"status" validate:"required,max=64"`
	Note   string `json:"note" validate:"max=500"`
}

// RecordPaymentRequest marks a purchase order paid.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method" validate:"max=64"`
	Reference string  `json:"reference" validate:"max=255"`
}
