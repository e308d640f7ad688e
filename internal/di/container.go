// Package di assembles the runtime object graph: configuration, repositories,
// services, and the event publisher.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openfoodnet/api/internal/platform/config"
	"github.com/openfoodnet/api/internal/platform/requestctx"
	"github.com/openfoodnet/api/internal/repositories"
	"github.com/openfoodnet/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Orders services.OrderUpdateService
	Fees   services.FeeCatalogService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises container construction.
type Option func(*containerConfig)

type containerConfig struct {
	events services.OrderEventPublisher
	logger *zap.Logger
	clock  func() time.Time
}

// WithEventPublisher wires the order event publisher. Without one,
// recalculations persist but emit nothing.
func WithEventPublisher(events services.OrderEventPublisher) Option {
	return func(cfg *containerConfig) { cfg.events = events }
}

// WithLogger sets the fallback logger used when a request-scoped one is absent.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *containerConfig) { cfg.logger = logger }
}

// WithClock overrides the clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(cfg *containerConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// the Firestore registry, while tests can supply in-memory ones.
func NewContainer(_ context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	cc := containerConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cc)
	}

	svc, err := buildServices(cfg, reg, cc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, cc containerConfig) (Services, error) {
	var svc Services

	logEvent := eventLogger(cc.logger)

	orderSvc, err := services.NewOrderUpdateService(services.OrderUpdateServiceDeps{
		Orders:     reg.Orders(),
		Fees:       reg.EnterpriseFees(),
		TaxRates:   reg.TaxRates(),
		UnitOfWork: reg,
		Events:     cc.events,
		Clock:      cc.clock,
		Logger:     logEvent,
		Currency:   cfg.Pricing.Currency,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order update service: %w", err)
	}
	svc.Orders = orderSvc

	feeSvc, err := services.NewFeeCatalogService(services.FeeCatalogServiceDeps{
		Fees:         reg.EnterpriseFees(),
		Recalculator: orderSvc,
		Logger:       logEvent,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fee catalog service: %w", err)
	}
	svc.Fees = feeSvc

	return svc, nil
}

// eventLogger adapts zap to the services' logging hook, preferring the
// request-scoped logger when one is on the context.
func eventLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() && base != nil {
			logger = base
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
