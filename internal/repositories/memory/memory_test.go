package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
	"github.com/openfoodnet/api/internal/repositories"
)

func sampleOrder(t *testing.T) *domain.Order {
	t.Helper()
	price, err := decimal.NewFromString("12.50")
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	return &domain.Order{
		ID:       "ord_1",
		Number:   "R100001",
		Currency: "AUD",
		State:    domain.OrderStateComplete,
		LineItems: []domain.LineItem{
			{ID: "li_1", Price: price, Quantity: 2},
		},
	}
}

func TestOrderRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	order := sampleOrder(t)
	if err := repo.Insert(ctx, order); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if order.Version == 0 {
		t.Fatal("expected Insert to assign a version")
	}

	loaded, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if loaded == order {
		t.Fatal("expected FindByID to return a copy, got the stored pointer")
	}
	if loaded.Number != "R100001" || len(loaded.LineItems) != 1 {
		t.Fatalf("unexpected order: %+v", loaded)
	}

	// Mutating the copy must not leak into the store.
	loaded.LineItems[0].Quantity = 99
	again, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got := again.LineItems[0].Quantity; got != 2 {
		t.Fatalf("stored quantity changed to %d", got)
	}
}

func TestOrderRepositoryInsertConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	if err := repo.Insert(ctx, sampleOrder(t)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := repo.Insert(ctx, sampleOrder(t))
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestOrderRepositorySaveDerivedStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	if err := repo.Insert(ctx, sampleOrder(t)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	first, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	second, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	first.PaymentState = domain.PaymentStatePaid
	if err := repo.SaveDerived(ctx, first); err != nil {
		t.Fatalf("SaveDerived: %v", err)
	}

	second.PaymentState = domain.PaymentStateBalanceDue
	err = repo.SaveDerived(ctx, second)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict on stale save, got %v", err)
	}

	// The winning write is visible and carries the bumped version.
	stored, err := repo.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("payment state = %q, want paid", stored.PaymentState)
	}
	if stored.Version != first.Version {
		t.Fatalf("version = %d, want %d", stored.Version, first.Version)
	}
}

func TestOrderRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	_, err := repo.FindByID(ctx, "ord_missing")
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found error, got %v", err)
	}

	err = repo.SaveDerived(ctx, sampleOrder(t))
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found on save, got %v", err)
	}
}

func TestFeeRepositorySoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewFeeRepository()

	amount, err := decimal.NewFromString("3.00")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	fee := &domain.EnterpriseFee{
		ID:           "fee_1",
		EnterpriseID: "ent_1",
		Name:         "packing",
		FeeType:      domain.FeePacking,
		Calculator:   domain.FlatRate{Amount: amount},
	}
	if err := repo.Upsert(ctx, fee); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.SoftDelete(ctx, "fee_1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	_, err = repo.FindByID(ctx, "fee_1", false)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found for deleted fee, got %v", err)
	}

	deleted, err := repo.FindByID(ctx, "fee_1", true)
	if err != nil {
		t.Fatalf("FindByID includeDeleted: %v", err)
	}
	if !deleted.Deleted() {
		t.Fatal("expected deleted fee to carry its deletion stamp")
	}

	fees, err := repo.ListByEnterprise(ctx, "ent_1")
	if err != nil {
		t.Fatalf("ListByEnterprise: %v", err)
	}
	if len(fees) != 0 {
		t.Fatalf("expected deleted fee excluded from listing, got %d", len(fees))
	}
}

func TestTaxRateRepositoryListByZone(t *testing.T) {
	ctx := context.Background()
	repo := NewTaxRateRepository()

	gst, err := decimal.NewFromString("0.1")
	if err != nil {
		t.Fatalf("parse rate: %v", err)
	}
	rates := []*domain.TaxRate{
		{ID: "tr_1", ZoneID: "zone_au", Name: "GST", Amount: gst},
		{ID: "tr_2", ZoneID: "zone_nz", Name: "NZ GST", Amount: gst},
	}
	for _, rate := range rates {
		if err := repo.Upsert(ctx, rate); err != nil {
			t.Fatalf("Upsert %s: %v", rate.ID, err)
		}
	}

	zone, err := repo.ListByZone(ctx, "zone_au")
	if err != nil {
		t.Fatalf("ListByZone: %v", err)
	}
	if len(zone) != 1 || zone[0].ID != "tr_1" {
		t.Fatalf("unexpected zone rates: %+v", zone)
	}
}

func TestCloneOrderDropsLiveBindings(t *testing.T) {
	order := sampleOrder(t)
	fee := &domain.EnterpriseFee{ID: "fee_1"}
	order.Adjustments = []*domain.Adjustment{{
		ID:         "adj_1",
		Originator: fee,
		Source:     order,
		CreatedAt:  time.Now(),
	}}

	clone := cloneOrder(order)
	if clone.Adjustments[0].Originator != nil || clone.Adjustments[0].Source != nil {
		t.Fatal("expected clone to drop live originator and source bindings")
	}
	if order.Adjustments[0].Originator == nil {
		t.Fatal("cloning must not mutate the input order")
	}
}
