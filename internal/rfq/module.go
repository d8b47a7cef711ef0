// Package rfq provides the RFQ and quote bounded context module.
package rfq

import (
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/rfq/handler"
	"procurement_backend/internal/rfq/repository"
	"procurement_backend/internal/rfq/service"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the rfq bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the rfq module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.EngineConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	scoring := service.NewScoringEngine(cfg.GetPriceWeight(), cfg.GetDeliveryWeight())
	svc := service.New(repo, scoring, eventBus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "rfq"
}

// Service exposes the rfq service for automation state reads and PO creation.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts rfq routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/rfqs")
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/quotes", m.handler.SubmitQuote)
	group.GET("/:id/compare", m.handler.Compare)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
