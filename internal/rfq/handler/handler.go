// Package handler exposes the RFQ and quote HTTP API.
package handler

import (
	"net/http"

	"procurement_backend/internal/rfq/repository"
	"procurement_backend/internal/rfq/service"
	"procurement_backend/internal/rfq/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for RFQs and quotes.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new rfq handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create opens an RFQ for a request.
// POST /api/v1/rfqs
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rfq, err := h.svc.CreateRFQ(c.Request.Context(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, rfq)
}

// Get returns an RFQ with its quotes.
// GET /api/v1/rfqs/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rfq, quotes, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"rfq": rfq, "quotes": quotes})
}

// SubmitQuote stores a supplier quote.
// POST /api/v1/rfqs/:id/quotes
func (h *Handler) SubmitQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	items := make([]repository.QuoteItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, repository.QuoteItem(item))
	}

	quote, err := h.svc.SubmitQuote(c.Request.Context(), id, service.QuoteInput{
		SupplierName: req.SupplierName,
		Items:        items,
		Subtotal:     req.Subtotal,
		Taxes:        req.Taxes,
		Shipping:     req.Shipping,
		Total:        req.Total,
		DeliveryDays: req.DeliveryDays,
		ValidUntil:   req.ValidUntil,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, quote)
}

// Compare scores an RFQ's quotes.
// GET /api/v1/rfqs/:id/compare
func (h *Handler) Compare(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	comparison, err := h.svc.Compare(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, comparison)
}
