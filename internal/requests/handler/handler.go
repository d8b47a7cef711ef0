// Package handler exposes the admin-facing requests HTTP API.
package handler

import (
	"net/http"

	"procurement_backend/internal/requests/repository"
	"procurement_backend/internal/requests/service"
	"procurement_backend/internal/requests/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the requests bounded context.
type Handler struct {
	management *service.ManagementService
	ledger     *service.LedgerService
	val        *validator.Validator
}

// New creates a new requests handler.
func New(management *service.ManagementService, ledger *service.LedgerService, val *validator.Validator) *Handler {
	return &Handler{management: management, ledger: ledger, val: val}
}

// List returns requests matching the query filters.
// GET /api/v1/requests
func (h *Handler) List(c *gin.Context) {
	var query transport.ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	filter := repository.ListFilter{
		Stage:  query.Stage,
		Status: query.Status,
		Limit:  query.Limit,
	}
	if query.ClientID != "" {
		clientID, err := uuid.Parse(query.ClientID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid clientId", nil)
			return
		}
		filter.ClientID = &clientID
	}

	requests, err := h.management.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"requests": requests})
}

// Get returns one request with its messages and timeline.
// GET /api/v1/requests/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	detail, err := h.management.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

// Analyze runs the disposition advisor. Read-only: nothing is applied.
// POST /api/v1/requests/:id/analyze
func (h *Handler) Analyze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	advice, err := h.management.Analyze(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, advice)
}

// ApplyAction applies an admin-chosen disposition to a request.
// POST /api/v1/requests/:id/apply-action
func (h *Handler) ApplyAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ApplyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.management.ApplyAction(c.Request.Context(), id, req.Action, req.Status, req.Reason, identity.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}

// Move manually overrides the pipeline stage of a request.
// PUT /api/v1/pipeline/:id/move
func (h *Handler) Move(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ManualMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.management.ManualMove(c.Request.Context(), id, req.ToStage, req.AllowBackward, identity.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}

// Ingest accepts a message through the direct API channel.
// POST /api/v1/requests/ingest
func (h *Handler) Ingest(c *gin.Context) {
	var req transport.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.ledger.Ingest(c.Request.Context(), service.InboundMessage{
		Channel:        req.Channel,
		ExternalID:     req.ExternalID,
		SenderIdentity: req.SenderIdentity,
		Content:        req.Content,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Duplicate {
		httpkit.OK(c, result)
		return
	}
	httpkit.Created(c, result)
}
