package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Order         = domain.Order
	LineItem      = domain.LineItem
	Adjustment    = domain.Adjustment
	EnterpriseFee = domain.EnterpriseFee
	TaxRate       = domain.TaxRate
)

// OrderRecalculator is the engine's entry point: it reloads an order,
// recomputes every derived value, and persists the result atomically.
type OrderRecalculator interface {
	Recalculate(ctx context.Context, orderID string) (*Order, error)
	// RecalculateAfter runs a mutation over several orders, then recalculates
	// each one. Orders that disappeared mid-batch are skipped.
	RecalculateAfter(ctx context.Context, orderIDs []string, mutate func(ctx context.Context) error) error
}

// OrderUpdateService is the full engine surface the transport layer consumes.
type OrderUpdateService interface {
	OrderRecalculator
	TaxTotalsReader
}

// TaxTotalsReader reports an order's tax, keyed by tax rate.
type TaxTotalsReader interface {
	TaxTotals(ctx context.Context, orderID string) ([]TaxTotal, error)
}

// TaxTotal is the total tax an order carries for a single rate.
type TaxTotal struct {
	Rate   *TaxRate
	Amount decimal.Decimal
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type          string
	OrderID       string
	OrderNumber   string
	PaymentState  string
	ShipmentState string
	Total         string
	Currency      string
	OccurredAt    time.Time
	Metadata      map[string]any
}
