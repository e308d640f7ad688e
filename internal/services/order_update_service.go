package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/openfoodnet/api/internal/domain"
	"github.com/openfoodnet/api/internal/repositories"
)

const orderEventTotalsUpdated = "order.totals.updated"

var (
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates the order changed underneath the update; the
	// caller should retry against the fresh version.
	ErrOrderConflict = errors.New("order: conflict")
)

// OrderUpdateServiceDeps bundles collaborators required to construct the order update service.
type OrderUpdateServiceDeps struct {
	Orders     repositories.OrderRepository
	Fees       repositories.EnterpriseFeeRepository
	TaxRates   repositories.TaxRateRepository
	UnitOfWork repositories.UnitOfWork
	Events     OrderEventPublisher
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)

	// Currency backfills events for orders created before a currency was
	// stamped on them.
	Currency string
}

type orderUpdateService struct {
	orders     repositories.OrderRepository
	fees       repositories.EnterpriseFeeRepository
	taxRates   repositories.TaxRateRepository
	unitOfWork repositories.UnitOfWork
	events     OrderEventPublisher
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
	currency   string
}

// NewOrderUpdateService wires dependencies into a concrete OrderUpdateService
// implementation.
func NewOrderUpdateService(deps OrderUpdateServiceDeps) (OrderUpdateService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order update service: order repository is required")
	}
	if deps.Fees == nil {
		return nil, errors.New("order update service: enterprise fee repository is required")
	}
	if deps.TaxRates == nil {
		return nil, errors.New("order update service: tax rate repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderUpdateService{
		orders:     deps.Orders,
		fees:       deps.Fees,
		taxRates:   deps.TaxRates,
		unitOfWork: unit,
		events:     deps.Events,
		clock:      clock,
		logger:     logger,
		currency:   deps.Currency,
	}, nil
}

// Recalculate reloads the order, reruns the full update cycle, and persists
// the derived fields in one guarded write. The returned order reflects the
// persisted state.
func (s *orderUpdateService) Recalculate(ctx context.Context, orderID string) (*Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	updater := NewOrderUpdater(order, s.clock)
	updater.BeforeSave()
	if err := updater.Update(); err != nil {
		return nil, fmt.Errorf("order %s: recalculate: %w", orderID, err)
	}

	err = s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		return s.orders.SaveDerived(ctx, order)
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}

	s.publishTotalsUpdated(ctx, order)

	return order, nil
}

// RecalculateAfter applies a mutation and then recalculates each affected
// order, mirroring how a changed fee or tax rate must ripple into every open
// order that references it. Orders deleted mid-batch are skipped.
func (s *orderUpdateService) RecalculateAfter(ctx context.Context, orderIDs []string, mutate func(ctx context.Context) error) error {
	if mutate != nil {
		if err := mutate(ctx); err != nil {
			return err
		}
	}
	for _, orderID := range orderIDs {
		if _, err := s.Recalculate(ctx, orderID); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				s.logger(ctx, "order.recalculate.skipped", map[string]any{"order_id": orderID})
				continue
			}
			return err
		}
	}
	return nil
}

// TaxTotals reports the order's tax per rate.
func (s *orderUpdateService) TaxTotals(ctx context.Context, orderID string) ([]TaxTotal, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return TaxFetcher{}.Totals(order), nil
}

// loadOrder fetches the aggregate and rebinds the live originator and source
// references its adjustments dropped at persistence time.
func (s *orderUpdateService) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	if err := s.rebindAdjustments(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderUpdateService) rebindAdjustments(ctx context.Context, order *Order) error {
	fees := make(map[string]*EnterpriseFee)
	rates := make(map[string]*TaxRate)

	for _, adjustment := range order.Adjustments {
		switch adjustment.Origin.Kind {
		case domain.OriginatorEnterpriseFee:
			fee, ok := fees[adjustment.Origin.ID]
			if !ok {
				var err error
				// Soft-deleted fees must still resolve so historical
				// adjustments keep recalculating.
				fee, err = s.fees.FindByID(ctx, adjustment.Origin.ID, true)
				if err != nil {
					return fmt.Errorf("order %s: rebind fee %s: %w", order.ID, adjustment.Origin.ID, s.mapRepositoryError(err))
				}
				fees[adjustment.Origin.ID] = fee
			}
			adjustment.Originator = fee
		case domain.OriginatorTaxRate:
			rate, ok := rates[adjustment.Origin.ID]
			if !ok {
				var err error
				rate, err = s.taxRates.FindByID(ctx, adjustment.Origin.ID)
				if err != nil {
					return fmt.Errorf("order %s: rebind tax rate %s: %w", order.ID, adjustment.Origin.ID, s.mapRepositoryError(err))
				}
				rates[adjustment.Origin.ID] = rate
			}
			adjustment.Originator = rate
		}
		adjustment.Source = s.resolveSource(order, adjustment.SourceRef)
	}
	return nil
}

func (s *orderUpdateService) resolveSource(order *Order, ref domain.AdjustableRef) domain.Calculable {
	switch ref.Kind {
	case domain.AdjustableOrder:
		return order
	case domain.AdjustableLineItem:
		for _, li := range order.LineItems {
			if li.ID == ref.ID {
				return li
			}
		}
	}
	return nil
}

func (s *orderUpdateService) publishTotalsUpdated(ctx context.Context, order *Order) {
	if s.events == nil {
		return
	}
	currency := order.Currency
	if currency == "" {
		currency = s.currency
	}
	event := OrderEvent{
		Type:          orderEventTotalsUpdated,
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		PaymentState:  order.PaymentState,
		ShipmentState: order.ShipmentState,
		Total:         order.Total.StringFixed(2),
		Currency:      currency,
		OccurredAt:    s.clock().UTC(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		// Totals are already persisted; a lost event must not fail the update.
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *orderUpdateService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}
	return err
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
