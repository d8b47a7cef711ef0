// Package purchaseorders provides the purchase order bounded context module.
package purchaseorders

import (
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/purchaseorders/handler"
	"procurement_backend/internal/purchaseorders/repository"
	"procurement_backend/internal/purchaseorders/service"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the purchaseorders bounded context module implementing http.Module.
type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the purchase orders module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, quotes service.QuoteAccepter, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotes, eventBus, log)
	return &Module{
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "purchaseorders"
}

// Service exposes the purchase orders service for automation state reads.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts purchase order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/purchase-orders")
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/advance", m.handler.Advance)
	group.POST("/:id/payment", m.handler.RecordPayment)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
