// Package handler exposes read endpoints for the category rule catalog.
package handler

import (
	"github.com/gin-gonic/gin"

	"procurement_backend/internal/catalog/service"
	"procurement_backend/platform/httpkit"
)

// Handler handles HTTP requests for category rules.
type Handler struct {
	svc *service.Service
}

// New creates a new catalog handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// List retrieves all category rules.
// GET /api/v1/admin/category-rules
func (h *Handler) List(c *gin.Context) {
	rules, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"categories": rules})
}

// Get retrieves the rule for one category.
// GET /api/v1/admin/category-rules/:category
func (h *Handler) Get(c *gin.Context) {
	rule, err := h.svc.Get(c.Request.Context(), c.Param("category"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rule)
}
