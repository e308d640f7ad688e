package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	at := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func completedOrder(t *testing.T) *domain.Order {
	t.Helper()
	completedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:          "ord_1",
		Number:      "R100001",
		State:       domain.OrderStateComplete,
		CompletedAt: &completedAt,
		LineItems: []domain.LineItem{
			{ID: "li_1", OrderID: "ord_1", Price: dec(t, "10.00"), Quantity: 2},
			{ID: "li_2", OrderID: "ord_1", Price: dec(t, "5.00"), Quantity: 1},
		},
	}
}

func TestUpdateTotals(t *testing.T) {
	order := completedOrder(t)
	order.Payments = []*domain.Payment{
		{Amount: dec(t, "20.00"), State: domain.PaymentCompleted},
		{Amount: dec(t, "99.00"), State: domain.PaymentPending},
	}
	order.Adjustments = []*domain.Adjustment{
		{Amount: dec(t, "3.00"), Eligible: true},
		{Amount: dec(t, "8.00"), Eligible: false},
	}

	NewOrderUpdater(order, fixedClock(t)).UpdateTotals()

	if !order.ItemTotal.Equal(dec(t, "25.00")) {
		t.Fatalf("item total = %s, want 25.00", order.ItemTotal)
	}
	if !order.AdjustmentTotal.Equal(dec(t, "3.00")) {
		t.Fatalf("adjustment total = %s, want 3.00", order.AdjustmentTotal)
	}
	if !order.PaymentTotal.Equal(dec(t, "20.00")) {
		t.Fatalf("payment total = %s, want 20.00", order.PaymentTotal)
	}
	if !order.Total.Equal(dec(t, "28.00")) {
		t.Fatalf("total = %s, want 28.00", order.Total)
	}
}

func TestUpdateConvergesTotalsAfterAdjustmentRecalculation(t *testing.T) {
	order := completedOrder(t)
	calc, err := domain.NewCalculator(domain.CalcFlatPercentItemTotal, domain.CalculatorPrefs{FlatPercent: dec(t, "10")})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	fee := &domain.EnterpriseFee{ID: "fee_1", Name: "Admin", FeeType: domain.FeeAdmin, Calculator: calc}
	order.Adjustments = []*domain.Adjustment{{
		ID:         "adj_1",
		State:      domain.AdjustmentOpen,
		Amount:     dec(t, "999.00"), // stale
		Eligible:   true,
		Adjustable: domain.AdjustableRef{Kind: domain.AdjustableOrder, ID: order.ID},
		Origin:     fee.OriginatorRef(),
		Originator: fee,
		Source:     order,
	}}

	if err := NewOrderUpdater(order, fixedClock(t)).Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	// 10% of the 25.00 item total, folded into the final totals pass.
	if !order.AdjustmentTotal.Equal(dec(t, "2.50")) {
		t.Fatalf("adjustment total = %s, want 2.50", order.AdjustmentTotal)
	}
	if !order.Total.Equal(dec(t, "27.50")) {
		t.Fatalf("total = %s, want 27.50", order.Total)
	}
}

func TestUpdateLeavesClosedAdjustmentsAlone(t *testing.T) {
	order := completedOrder(t)
	calc, err := domain.NewCalculator(domain.CalcFlatRate, domain.CalculatorPrefs{Amount: dec(t, "2.00")})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	fee := &domain.EnterpriseFee{ID: "fee_1", Name: "Packing", FeeType: domain.FeePacking, Calculator: calc}
	order.Adjustments = []*domain.Adjustment{{
		ID:         "adj_1",
		State:      domain.AdjustmentClosed,
		Amount:     dec(t, "7.00"),
		Eligible:   true,
		Origin:     fee.OriginatorRef(),
		Originator: fee,
		Source:     order,
	}}

	if err := NewOrderUpdater(order, fixedClock(t)).Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !order.Adjustments[0].Amount.Equal(dec(t, "7.00")) {
		t.Fatalf("closed adjustment recalculated to %s", order.Adjustments[0].Amount)
	}
	if !order.Total.Equal(dec(t, "32.00")) {
		t.Fatalf("total = %s, want 32.00", order.Total)
	}
}

func TestUpdatePaymentState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*domain.Order)
		want  string
	}{
		{
			name: "balance due when underpaid",
			setup: func(o *domain.Order) {
				o.Payments = []*domain.Payment{{Amount: dec(t, "10.00"), State: domain.PaymentCompleted}}
			},
			want: domain.PaymentStateBalanceDue,
		},
		{
			name: "paid when balance is zero",
			setup: func(o *domain.Order) {
				o.Payments = []*domain.Payment{{Amount: dec(t, "25.00"), State: domain.PaymentCompleted}}
			},
			want: domain.PaymentStatePaid,
		},
		{
			name: "credit owed when overpaid",
			setup: func(o *domain.Order) {
				o.Payments = []*domain.Payment{{Amount: dec(t, "30.00"), State: domain.PaymentCompleted}}
			},
			want: domain.PaymentStateCreditOwed,
		},
		{
			name: "failed when no payment is valid",
			setup: func(o *domain.Order) {
				o.Payments = []*domain.Payment{
					{Amount: dec(t, "25.00"), State: domain.PaymentFailed},
					{Amount: dec(t, "25.00"), State: domain.PaymentInvalid},
				}
			},
			want: domain.PaymentStateFailed,
		},
		{
			name: "void when canceled before paying",
			setup: func(o *domain.Order) {
				o.State = domain.OrderStateCanceled
			},
			want: domain.PaymentStateVoid,
		},
		{
			name: "credit owed when canceled after paying",
			setup: func(o *domain.Order) {
				o.State = domain.OrderStateCanceled
				o.Payments = []*domain.Payment{{Amount: dec(t, "25.00"), State: domain.PaymentCompleted}}
			},
			want: domain.PaymentStateCreditOwed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := completedOrder(t)
			tc.setup(order)

			if err := NewOrderUpdater(order, fixedClock(t)).Update(); err != nil {
				t.Fatalf("update: %v", err)
			}
			if order.PaymentState != tc.want {
				t.Fatalf("payment state = %q, want %q", order.PaymentState, tc.want)
			}
		})
	}
}

func TestUpdatePaymentStateRecordsAuditOnce(t *testing.T) {
	order := completedOrder(t)
	order.Payments = []*domain.Payment{{Amount: dec(t, "25.00"), State: domain.PaymentCompleted}}

	updater := NewOrderUpdater(order, fixedClock(t))
	if err := updater.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := updater.Update(); err != nil {
		t.Fatalf("second update: %v", err)
	}

	var paymentChanges int
	for _, change := range order.StateChanges {
		if change.Name == "payment" {
			paymentChanges++
		}
	}
	if paymentChanges != 1 {
		t.Fatalf("payment state changes = %d, want 1", paymentChanges)
	}
	if order.StateChanges[0].NextState != domain.PaymentStatePaid {
		t.Fatalf("recorded transition to %q", order.StateChanges[0].NextState)
	}
}

func TestUpdateShipmentState(t *testing.T) {
	tests := []struct {
		name     string
		shipment *domain.Shipment
		want     string
	}{
		{name: "no shipment clears the state", shipment: nil, want: ""},
		{name: "backorder overrides shipment state", shipment: &domain.Shipment{State: domain.ShipmentStateReady, Backordered: true}, want: domain.ShipmentStateBackorder},
		{name: "mirrors shipment state", shipment: &domain.Shipment{State: domain.ShipmentStateShipped}, want: domain.ShipmentStateShipped},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := completedOrder(t)
			order.ShipmentState = "stale"
			if tc.shipment != nil {
				order.Shipments = []*domain.Shipment{tc.shipment}
			}

			if err := NewOrderUpdater(order, fixedClock(t)).Update(); err != nil {
				t.Fatalf("update: %v", err)
			}
			if order.ShipmentState != tc.want {
				t.Fatalf("shipment state = %q, want %q", order.ShipmentState, tc.want)
			}
		})
	}
}

func TestUpdateSkipsStatesForIncompleteOrders(t *testing.T) {
	order := completedOrder(t)
	order.State = domain.OrderStateCart
	order.CompletedAt = nil
	order.Shipments = []*domain.Shipment{{State: domain.ShipmentStateReady}}

	if err := NewOrderUpdater(order, fixedClock(t)).Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if order.PaymentState != "" || order.ShipmentState != "" {
		t.Fatalf("incomplete order derived states: payment=%q shipment=%q", order.PaymentState, order.ShipmentState)
	}
	if len(order.StateChanges) != 0 {
		t.Fatalf("incomplete order recorded %d state changes", len(order.StateChanges))
	}
}

func TestBeforeSaveShippingAddressFromDistributor(t *testing.T) {
	pickup := &domain.Address{Address1: "12 Market St", City: "Melbourne", PostalCode: "3000"}
	order := completedOrder(t)
	order.ShipAddress = &domain.Address{Address1: "99 Home Rd"}
	order.ShippingMethod = &domain.ShippingMethod{ID: "sm_1", RequireShipAddress: false}
	order.Distributor = &domain.Enterprise{ID: "ent_1", Name: "The Hub", Address: pickup}

	NewOrderUpdater(order, fixedClock(t)).BeforeSave()

	if order.ShipAddress == nil || order.ShipAddress.Address1 != "12 Market St" {
		t.Fatalf("ship address = %+v, want distributor address", order.ShipAddress)
	}
	if order.ShipAddress == pickup {
		t.Fatalf("ship address must be a copy, not the distributor's own record")
	}

	// A method requiring a ship address keeps the customer's address.
	order.ShipAddress = &domain.Address{Address1: "99 Home Rd"}
	order.ShippingMethod.RequireShipAddress = true
	NewOrderUpdater(order, fixedClock(t)).BeforeSave()
	if order.ShipAddress.Address1 != "99 Home Rd" {
		t.Fatalf("ship address overwritten for address-requiring method")
	}
}
