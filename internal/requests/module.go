// Package requests provides the request lifecycle bounded context module.
// This file defines the module that encapsulates all requests setup and route registration.
package requests

import (
	"context"

	"procurement_backend/internal/ai"
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/requests/handler"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/internal/requests/service"
	"procurement_backend/platform/config"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the cross-context collaborators the requests module needs.
// AI fields may be nil; the services degrade to deterministic fallbacks.
type Deps struct {
	Rules        ports.CategoryRuleSource
	Contacts     ports.ContactResolver
	RFQ          ports.RFQReader
	PO           ports.PurchaseOrderReader
	Enqueuer     ports.OutboundEnqueuer
	Continuation ai.ContinuationClassifier
	Disposition  ai.DispositionClassifier
	Extractor    ai.FieldExtractor
}

// Module is the requests bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	ledger     *service.LedgerService
	management *service.ManagementService
}

// NewModule creates and initializes the requests module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.EngineConfig, deps Deps, log *logger.Logger) *Module {
	repo := repository.New(pool)

	resolver := service.NewContinuationResolver(deps.Continuation, log)
	completeness := service.NewCompletenessEngine(deps.Rules, deps.Extractor, log)
	automation := service.NewAutomationEngine(repo, completeness, deps.RFQ, deps.PO, eventBus, cfg.GetCompletenessThreshold(), log)
	advisor := service.NewAdvisor(deps.Disposition, log)

	ledger := service.NewLedgerService(
		repo, deps.Contacts, resolver, completeness, automation,
		deps.Enqueuer, eventBus, cfg.GetContinuationWindow(), log,
	)
	management := service.NewManagementService(repo, completeness, advisor, ledger, eventBus, log)

	m := &Module{
		handler:    handler.New(management, ledger, val),
		ledger:     ledger,
		management: management,
	}
	m.subscribe(eventBus, log)
	return m
}

// subscribe re-runs automation when RFQ or purchase-order artifacts change, so
// requests advance without waiting for the next inbound message.
func (m *Module) subscribe(eventBus events.Bus, log *logger.Logger) {
	eventBus.Subscribe(events.RFQCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.RFQCreated)
		if !ok {
			return nil
		}
		if _, err := m.ledger.RunAutomation(ctx, e.RequestID); err != nil {
			log.Error("automation run after rfq creation failed", "error", err, "requestId", e.RequestID)
		}
		return nil
	}))

	eventBus.Subscribe(events.QuoteSubmitted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.QuoteSubmitted)
		if !ok {
			return nil
		}
		if _, err := m.ledger.RunAutomation(ctx, e.RequestID); err != nil {
			log.Error("automation run after quote submission failed", "error", err, "requestId", e.RequestID)
		}
		return nil
	}))

	eventBus.Subscribe(events.PurchaseOrderCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.PurchaseOrderCreated)
		if !ok {
			return nil
		}
		if _, err := m.ledger.RunAutomation(ctx, e.RequestID); err != nil {
			log.Error("automation run after po creation failed", "error", err, "requestId", e.RequestID)
		}
		return nil
	}))

	eventBus.Subscribe(events.PurchaseOrderStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.PurchaseOrderStatusChanged)
		if !ok {
			return nil
		}
		if _, err := m.ledger.RunAutomation(ctx, e.RequestID); err != nil {
			log.Error("automation run after po status change failed", "error", err, "requestId", e.RequestID)
		}
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "requests"
}

// Ledger exposes the ingestion service for the webhook module.
func (m *Module) Ledger() *service.LedgerService {
	return m.ledger
}

// RegisterRoutes mounts requests routes on the provided router context.
// Dispositions and pipeline overrides are state changes and need the admin
// role on top of authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/requests")
	group.GET("", m.handler.List)
	group.POST("/ingest", m.handler.Ingest)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/analyze", m.handler.Analyze)
	group.POST("/:id/apply-action", httpkit.RequireRole("admin"), m.handler.ApplyAction)

	pipeline := ctx.Protected.Group("/pipeline")
	pipeline.PUT("/:id/move", httpkit.RequireRole("admin"), m.handler.Move)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
