package domain

import (
	"testing"
	"time"
)

func TestOrderTotalsHelpers(t *testing.T) {
	order := &Order{
		LineItems: []LineItem{
			{Price: dec(t, "10.00"), Quantity: 1},
			{Price: dec(t, "5.00"), Quantity: 4},
		},
		Payments: []*Payment{
			{Amount: dec(t, "10.00"), State: PaymentCompleted},
			{Amount: dec(t, "7.00"), State: PaymentPending},
			{Amount: dec(t, "3.00"), State: PaymentCompleted},
		},
		Adjustments: []*Adjustment{
			{Amount: dec(t, "2.50"), Eligible: true},
			{Amount: dec(t, "-1.00"), Eligible: true},
			{Amount: dec(t, "9.99"), Eligible: false},
		},
	}

	if got := order.LineItemTotal(); !got.Equal(dec(t, "30.00")) {
		t.Fatalf("line item total = %s, want 30.00", got)
	}
	if got := order.CompletedPaymentTotal(); !got.Equal(dec(t, "13.00")) {
		t.Fatalf("completed payment total = %s, want 13.00", got)
	}
	if got := order.EligibleAdjustmentTotal(); !got.Equal(dec(t, "1.50")) {
		t.Fatalf("eligible adjustment total = %s, want 1.50", got)
	}
}

func TestOrderRecordStateChange(t *testing.T) {
	order := &Order{UserID: "user_1"}
	now := time.Now()

	if !order.RecordStateChange("payment", "balance_due", "paid", now) {
		t.Fatalf("state change to a new value should be recorded")
	}
	if order.RecordStateChange("payment", "paid", "paid", now) {
		t.Fatalf("state change to the same value should not be recorded")
	}
	if len(order.StateChanges) != 1 {
		t.Fatalf("state changes = %d, want 1", len(order.StateChanges))
	}
	change := order.StateChanges[0]
	if change.Name != "payment" || change.PreviousState != "balance_due" || change.NextState != "paid" || change.UserID != "user_1" {
		t.Fatalf("unexpected state change %+v", change)
	}
}

func TestShipmentSync(t *testing.T) {
	completedAt := time.Now()
	complete := &Order{State: OrderStateComplete, CompletedAt: &completedAt}
	incomplete := &Order{State: OrderStateCart}

	shipment := &Shipment{State: ShipmentStatePending}
	shipment.Sync(complete)
	if shipment.State != ShipmentStateReady {
		t.Fatalf("completed order shipment = %q, want ready", shipment.State)
	}

	shipment = &Shipment{State: ShipmentStatePending}
	shipment.Sync(incomplete)
	if shipment.State != ShipmentStatePending {
		t.Fatalf("incomplete order shipment = %q, want pending", shipment.State)
	}

	shipment = &Shipment{State: ShipmentStateReady, Backordered: true}
	shipment.Sync(complete)
	if shipment.State != ShipmentStatePending {
		t.Fatalf("backordered shipment = %q, want pending", shipment.State)
	}

	shipment = &Shipment{State: ShipmentStateShipped}
	shipment.Sync(incomplete)
	if shipment.State != ShipmentStateShipped {
		t.Fatalf("shipped shipment must not regress, got %q", shipment.State)
	}
}

func TestOrderPaymentPredicates(t *testing.T) {
	order := &Order{Payments: []*Payment{
		{State: PaymentFailed},
		{State: PaymentInvalid},
	}}
	if order.HasValidPayments() {
		t.Fatalf("failed and invalid payments should not count as valid")
	}
	if order.PaidFor() {
		t.Fatalf("no completed payment should mean not paid for")
	}

	order.Payments = append(order.Payments, &Payment{State: PaymentCompleted, Amount: dec(t, "5.00")})
	if !order.HasValidPayments() || !order.PaidFor() {
		t.Fatalf("completed payment should count as valid and paid")
	}
}

func TestRemoveAdjustments(t *testing.T) {
	order := &Order{Adjustments: []*Adjustment{
		{ID: "adj_1", Origin: OriginatorRef{Kind: OriginatorEnterpriseFee, ID: "fee_1"}},
		{ID: "adj_2", Origin: OriginatorRef{Kind: OriginatorTaxRate, ID: "tr_1"}},
	}}

	order.RemoveAdjustments(func(a *Adjustment) bool {
		return a.Origin.Kind != OriginatorEnterpriseFee
	})

	if len(order.Adjustments) != 1 || order.Adjustments[0].ID != "adj_2" {
		t.Fatalf("unexpected adjustments after removal: %+v", order.Adjustments)
	}
}
