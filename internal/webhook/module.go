// Package webhook provides the inbound message capture bounded context module.
// This file defines the module that encapsulates all webhook setup and route registration.
package webhook

import (
	apphttp "procurement_backend/internal/http"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, ingestor Ingestor, cfg config.WhatsAppConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(ingestor, log)
	handler := NewHandler(service, repo, cfg.GetWhatsAppVerifyToken(), val)

	return &Module{
		handler: handler,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Provider endpoints (API key auth, no JWT)
	group := ctx.V1.Group("/webhook")
	group.GET("/whatsapp", m.handler.HandleWhatsAppVerify)

	authed := group.Group("")
	authed.Use(APIKeyAuthMiddleware(m.repo))
	authed.POST("/inbound", m.handler.HandleInbound)
	authed.POST("/whatsapp", m.handler.HandleWhatsApp)
	authed.POST("/email", m.handler.HandleEmail)

	// Admin API key management (JWT auth + admin role)
	adminGroup := ctx.Admin.Group("/webhook/keys")
	adminGroup.POST("", m.handler.HandleCreateAPIKey)
	adminGroup.GET("", m.handler.HandleListAPIKeys)
	adminGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
