package webhook

import (
	"net/http"

	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles inbound webhook HTTP requests and API key administration.
type Handler struct {
	svc         *Service
	repo        *Repository
	verifyToken string
	val         *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, repo *Repository, verifyToken string, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, verifyToken: verifyToken, val: val}
}

// HandleInbound accepts a provider-neutral envelope.
// POST /api/v1/webhook/inbound
func (h *Handler) HandleInbound(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.IngestEnvelope(c.Request.Context(), env)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// HandleWhatsAppVerify answers the Meta webhook subscription handshake.
// GET /api/v1/webhook/whatsapp
func (h *Handler) HandleWhatsAppVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleWhatsApp accepts a Meta-style nested webhook payload.
// POST /api/v1/webhook/whatsapp
func (h *Handler) HandleWhatsApp(c *gin.Context) {
	var payload metaWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	envelopes, err := ExtractWhatsApp(payload)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	results := h.svc.IngestBatch(c.Request.Context(), envelopes)
	httpkit.OK(c, gin.H{"received": len(envelopes), "ingested": results})
}

// HandleEmail accepts an inbound-email provider payload.
// POST /api/v1/webhook/email
func (h *Handler) HandleEmail(c *gin.Context) {
	var payload emailWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	env, err := ExtractEmail(payload)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.svc.IngestEnvelope(c.Request.Context(), env)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

type createAPIKeyRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// HandleCreateAPIKey issues a new webhook API key. The plaintext key appears
// only in this response.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "key generation failed", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), req.Name, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"key": key, "plaintext": plaintext})
}

// HandleListAPIKeys lists issued webhook API keys.
// GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"keys": keys})
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), id); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	c.Status(http.StatusNoContent)
}
