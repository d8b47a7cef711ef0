// Package clients provides the client directory bounded context.
package clients

import (
	"procurement_backend/internal/clients/handler"
	"procurement_backend/internal/clients/repository"
	"procurement_backend/internal/clients/service"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service exposes the clients service for sender resolution.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts clients routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/clients")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.GET("/:id/contacts", m.handler.ListContacts)
	group.POST("/:id/contacts", m.handler.AddContact)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
