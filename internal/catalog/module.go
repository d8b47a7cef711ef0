// Package catalog provides the category rule catalog bounded context.
package catalog

import (
	"procurement_backend/internal/catalog/handler"
	"procurement_backend/internal/catalog/repository"
	"procurement_backend/internal/catalog/service"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the catalog module with all its dependencies.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service exposes the catalog service for other modules (completeness scoring).
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/category-rules")
	group.GET("", m.handler.List)
	group.GET("/:category", m.handler.Get)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
