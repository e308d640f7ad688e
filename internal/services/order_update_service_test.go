package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/openfoodnet/api/internal/domain"
)

type stubOrderRepo struct {
	insertFn func(context.Context, *domain.Order) error
	findFn   func(context.Context, string) (*domain.Order, error)
	saveFn   func(context.Context, *domain.Order) error
}

func (s *stubOrderRepo) Insert(ctx context.Context, order *domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderRepo) SaveDerived(ctx context.Context, order *domain.Order) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, order)
	}
	return nil
}

type stubFeeRepo struct {
	findFn   func(context.Context, string, bool) (*domain.EnterpriseFee, error)
	listFn   func(context.Context, string) ([]*domain.EnterpriseFee, error)
	upsertFn func(context.Context, *domain.EnterpriseFee) error
	deleteFn func(context.Context, string) error
}

func (s *stubFeeRepo) FindByID(ctx context.Context, feeID string, includeDeleted bool) (*domain.EnterpriseFee, error) {
	if s.findFn != nil {
		return s.findFn(ctx, feeID, includeDeleted)
	}
	return nil, errors.New("not implemented")
}

func (s *stubFeeRepo) ListByEnterprise(ctx context.Context, enterpriseID string) ([]*domain.EnterpriseFee, error) {
	if s.listFn != nil {
		return s.listFn(ctx, enterpriseID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubFeeRepo) Upsert(ctx context.Context, fee *domain.EnterpriseFee) error {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, fee)
	}
	return errors.New("not implemented")
}

func (s *stubFeeRepo) SoftDelete(ctx context.Context, feeID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, feeID)
	}
	return errors.New("not implemented")
}

type stubTaxRateRepo struct {
	findFn func(context.Context, string) (*domain.TaxRate, error)
}

func (s *stubTaxRateRepo) FindByID(ctx context.Context, rateID string) (*domain.TaxRate, error) {
	if s.findFn != nil {
		return s.findFn(ctx, rateID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubTaxRateRepo) ListByZone(context.Context, string) ([]*domain.TaxRate, error) {
	return nil, errors.New("not implemented")
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type fakeRepoError struct {
	notFound bool
	conflict bool
}

func (e fakeRepoError) Error() string       { return "repository error" }
func (e fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e fakeRepoError) IsConflict() bool    { return e.conflict }
func (e fakeRepoError) IsUnavailable() bool { return false }

func testService(t *testing.T, deps OrderUpdateServiceDeps) OrderUpdateService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Fees == nil {
		deps.Fees = &stubFeeRepo{}
	}
	if deps.TaxRates == nil {
		deps.TaxRates = &stubTaxRateRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock(t)
	}
	svc, err := NewOrderUpdateService(deps)
	if err != nil {
		t.Fatalf("new order update service: %v", err)
	}
	return svc
}

func TestRecalculatePersistsAndPublishes(t *testing.T) {
	order := completedOrder(t)
	order.Currency = "AUD"
	order.Payments = []*domain.Payment{{Amount: dec(t, "25.00"), State: domain.PaymentCompleted}}

	var saved *domain.Order
	events := &captureOrderEvents{}
	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (*domain.Order, error) {
				if orderID != "ord_1" {
					return nil, fakeRepoError{notFound: true}
				}
				return order, nil
			},
			saveFn: func(_ context.Context, o *domain.Order) error {
				saved = o
				return nil
			},
		},
		Events: events,
	})

	got, err := svc.Recalculate(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if saved == nil || saved != got {
		t.Fatalf("recalculated order was not persisted")
	}
	if !got.Total.Equal(dec(t, "25.00")) || got.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("derived fields: total=%s payment=%q", got.Total, got.PaymentState)
	}
	if len(events.events) != 1 {
		t.Fatalf("published %d events, want 1", len(events.events))
	}
	event := events.events[0]
	if event.Type != "order.totals.updated" || event.OrderID != "ord_1" || event.Total != "25.00" || event.Currency != "AUD" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRecalculateEventFallsBackToConfiguredCurrency(t *testing.T) {
	order := completedOrder(t)
	order.Currency = ""

	events := &captureOrderEvents{}
	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, _ string) (*domain.Order, error) {
				return order, nil
			},
			saveFn: func(_ context.Context, _ *domain.Order) error { return nil },
		},
		Events:   events,
		Currency: "EUR",
	})

	if _, err := svc.Recalculate(context.Background(), "ord_1"); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("published %d events, want 1", len(events.events))
	}
	if events.events[0].Currency != "EUR" {
		t.Fatalf("currency = %q, want configured fallback", events.events[0].Currency)
	}
}

func TestRecalculateRebindsOriginators(t *testing.T) {
	calc, err := domain.NewCalculator(domain.CalcFlatPercentItemTotal, domain.CalculatorPrefs{FlatPercent: dec(t, "10")})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	fee := &domain.EnterpriseFee{ID: "fee_1", Name: "Admin", FeeType: domain.FeeAdmin, Calculator: calc}

	order := completedOrder(t)
	order.Adjustments = []*domain.Adjustment{{
		ID:         "adj_1",
		State:      domain.AdjustmentOpen,
		Amount:     dec(t, "999.00"),
		Eligible:   true,
		Adjustable: domain.AdjustableRef{Kind: domain.AdjustableOrder, ID: "ord_1"},
		Origin:     fee.OriginatorRef(),
		SourceRef:  domain.AdjustableRef{Kind: domain.AdjustableOrder, ID: "ord_1"},
	}}

	var lookedUpDeleted bool
	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (*domain.Order, error) { return order, nil },
		},
		Fees: &stubFeeRepo{
			findFn: func(_ context.Context, feeID string, includeDeleted bool) (*domain.EnterpriseFee, error) {
				if feeID != "fee_1" {
					return nil, fakeRepoError{notFound: true}
				}
				lookedUpDeleted = includeDeleted
				return fee, nil
			},
		},
	})

	got, err := svc.Recalculate(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if !lookedUpDeleted {
		t.Fatalf("fee lookup must include soft-deleted fees")
	}
	if !got.Adjustments[0].Amount.Equal(dec(t, "2.50")) {
		t.Fatalf("adjustment amount = %s, want 2.50", got.Adjustments[0].Amount)
	}
	if !got.Total.Equal(dec(t, "27.50")) {
		t.Fatalf("total = %s, want 27.50", got.Total)
	}
}

func TestRecalculateMapsRepositoryErrors(t *testing.T) {
	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (*domain.Order, error) {
				return nil, fakeRepoError{notFound: true}
			},
		},
	})
	if _, err := svc.Recalculate(context.Background(), "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	svc = testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (*domain.Order, error) { return completedOrder(t), nil },
			saveFn: func(context.Context, *domain.Order) error { return fakeRepoError{conflict: true} },
		},
	})
	if _, err := svc.Recalculate(context.Background(), "ord_1"); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}
}

func TestRecalculateAfter(t *testing.T) {
	orders := map[string]*domain.Order{
		"ord_1": completedOrder(t),
		"ord_3": completedOrder(t),
	}
	orders["ord_3"].ID = "ord_3"

	var recalculated []string
	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (*domain.Order, error) {
				order, ok := orders[orderID]
				if !ok {
					return nil, fakeRepoError{notFound: true}
				}
				return order, nil
			},
			saveFn: func(_ context.Context, o *domain.Order) error {
				recalculated = append(recalculated, o.ID)
				return nil
			},
		},
	})

	var mutated bool
	err := svc.RecalculateAfter(context.Background(), []string{"ord_1", "ord_2", "ord_3"}, func(context.Context) error {
		mutated = true
		return nil
	})
	if err != nil {
		t.Fatalf("recalculate after: %v", err)
	}
	if !mutated {
		t.Fatalf("mutation did not run")
	}
	// ord_2 vanished mid-batch and is skipped.
	if len(recalculated) != 2 || recalculated[0] != "ord_1" || recalculated[1] != "ord_3" {
		t.Fatalf("recalculated %v", recalculated)
	}

	wantErr := errors.New("mutation failed")
	err = svc.RecalculateAfter(context.Background(), []string{"ord_1"}, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("mutation error not propagated, got %v", err)
	}
}

func TestTaxTotalsLoadsAndRebinds(t *testing.T) {
	food := &domain.TaxCategory{ID: "tc_food"}
	gst := &domain.TaxRate{ID: "tr_gst", Name: "GST", Amount: dec(t, "0.1"), TaxCategory: food, Inclusive: true}

	order := completedOrder(t)
	order.TaxZone = &domain.TaxZone{ID: "zone_au", Rates: []*domain.TaxRate{gst}}
	order.Adjustments = []*domain.Adjustment{{
		ID:          "adj_1",
		Amount:      dec(t, "11.00"),
		IncludedTax: dec(t, "1.00"),
		Adjustable:  domain.AdjustableRef{Kind: domain.AdjustableOrder, ID: "ord_1"},
		Origin:      gst.OriginatorRef(),
	}}

	svc := testService(t, OrderUpdateServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (*domain.Order, error) { return order, nil },
		},
		TaxRates: &stubTaxRateRepo{
			findFn: func(_ context.Context, rateID string) (*domain.TaxRate, error) {
				if rateID != "tr_gst" {
					return nil, fakeRepoError{notFound: true}
				}
				return gst, nil
			},
		},
	})

	totals, err := svc.TaxTotals(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("tax totals: %v", err)
	}
	if len(totals) != 1 || totals[0].Rate != gst || !totals[0].Amount.Equal(dec(t, "1.00")) {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestNewOrderUpdateServiceValidation(t *testing.T) {
	if _, err := NewOrderUpdateService(OrderUpdateServiceDeps{}); err == nil {
		t.Fatalf("expected error for missing repositories")
	}
	if _, err := NewOrderUpdateService(OrderUpdateServiceDeps{Orders: &stubOrderRepo{}, Fees: &stubFeeRepo{}}); err == nil {
		t.Fatalf("expected error for missing tax rate repository")
	}
}
