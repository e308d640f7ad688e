package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle states. The engine only distinguishes cart-like states,
// complete, and canceled; checkout step states are passed through untouched.
const (
	OrderStateCart     = "cart"
	OrderStateAddress  = "address"
	OrderStateDelivery = "delivery"
	OrderStatePayment  = "payment"
	OrderStateComplete = "complete"
	OrderStateCanceled = "canceled"
)

// Derived payment states inferred by the order updater.
const (
	PaymentStateBalanceDue = "balance_due"
	PaymentStateCreditOwed = "credit_owed"
	PaymentStatePaid       = "paid"
	PaymentStateFailed     = "failed"
	PaymentStateVoid       = "void"
)

// Derived shipment states inferred by the order updater. An empty string
// means the order has no shipment yet.
const (
	ShipmentStateBackorder = "backorder"
	ShipmentStatePending   = "pending"
	ShipmentStateReady     = "ready"
	ShipmentStateShipped   = "shipped"
)

// StateChange is the audit record written whenever a derived order state
// actually changes value. Setting a state to its current value records
// nothing.
type StateChange struct {
	Name          string
	PreviousState string
	NextState     string
	UserID        string
	CreatedAt     time.Time
}

// LineItem is a quantity of a variant captured at a point-in-time price.
type LineItem struct {
	ID       string
	OrderID  string
	Variant  *Variant
	Price    decimal.Decimal
	Quantity int
	Currency string
}

// Amount is the line's contribution to the order's item total.
func (li LineItem) Amount() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CalculableLineItems lets a single line item serve as a calculator context.
func (li LineItem) CalculableLineItems() []LineItem {
	return []LineItem{li}
}

// Payment states relevant to totals. Completed payments count toward the
// order's payment total; failed and invalid payments are excluded from the
// "valid" set the updater inspects.
const (
	PaymentCheckout  = "checkout"
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentInvalid   = "invalid"
	PaymentVoid      = "void"
)

// Payment records money offered against an order.
type Payment struct {
	ID            string
	OrderID       string
	Amount        decimal.Decimal
	State         string
	PaymentMethod *PaymentMethod
	CreatedAt     time.Time
}

// Completed reports whether the payment counts toward the payment total.
func (p *Payment) Completed() bool {
	return p.State == PaymentCompleted
}

// Valid reports whether the payment is still live. Failed and invalid
// payments drop out; void payments remain valid for state inference, matching
// the historical behaviour downstream reporting depends on.
func (p *Payment) Valid() bool {
	return p.State != PaymentFailed && p.State != PaymentInvalid
}

// Shipment tracks fulfilment of an order's stock. Backordered is sticky: a
// backordered shipment forces the order's shipment state regardless of the
// shipment's own state.
type Shipment struct {
	ID          string
	OrderID     string
	State       string
	Backordered bool
	TrackingRef string
}

// Shipped reports whether the shipment has left the building; shipped
// shipments never regress.
func (s *Shipment) Shipped() bool {
	return s.State == ShipmentStateShipped
}

// Sync re-derives the shipment's own state from the order. The order updater
// calls this for every shipment before inferring the order-level shipment
// state.
func (s *Shipment) Sync(order *Order) {
	if s.Shipped() {
		return
	}
	if !order.Completed() || s.Backordered {
		s.State = ShipmentStatePending
		return
	}
	s.State = ShipmentStateReady
}

// Order is the aggregate root the engine recomputes. It exclusively owns its
// line items, payments, shipments, and adjustments as a unit of consistency;
// totals and derived states are only meaningful immediately after an update
// cycle.
type Order struct {
	ID       string
	Number   string
	UserID   string
	Currency string

	State         string
	PaymentState  string
	ShipmentState string

	ItemTotal       decimal.Decimal
	AdjustmentTotal decimal.Decimal
	PaymentTotal    decimal.Decimal
	Total           decimal.Decimal

	Distributor    *Enterprise
	ShippingMethod *ShippingMethod
	ShipAddress    *Address
	BillAddress    *Address
	TaxZone        *TaxZone

	LineItems    []LineItem
	Shipments    []*Shipment
	Payments     []*Payment
	Adjustments  []*Adjustment
	StateChanges []StateChange

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Version supports optimistic concurrency at the persistence layer; a
	// stale save must surface as a retryable conflict, never be swallowed.
	Version int64
}

// Completed reports whether the order has passed checkout. Canceled orders
// that completed checkout still count, which matters for the
// canceled-but-paid payment state.
func (o *Order) Completed() bool {
	return o.CompletedAt != nil || o.State == OrderStateComplete
}

// Canceled reports whether the order was canceled.
func (o *Order) Canceled() bool {
	return o.State == OrderStateCanceled
}

// CanShip reports whether shipments may progress beyond pending.
func (o *Order) CanShip() bool {
	return o.Completed() && !o.Canceled()
}

// OutstandingBalance is the amount still owed (negative when credit is owed).
func (o *Order) OutstandingBalance() decimal.Decimal {
	return o.Total.Sub(o.PaymentTotal)
}

// Shipment returns the order's primary shipment, or nil when none exists.
func (o *Order) Shipment() *Shipment {
	if len(o.Shipments) == 0 {
		return nil
	}
	return o.Shipments[0]
}

// CompletedPaymentTotal sums the amounts of completed payments.
func (o *Order) CompletedPaymentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range o.Payments {
		if payment.Completed() {
			total = total.Add(payment.Amount)
		}
	}
	return total
}

// HasValidPayments reports whether at least one payment is still live.
func (o *Order) HasValidPayments() bool {
	for _, payment := range o.Payments {
		if payment.Valid() {
			return true
		}
	}
	return false
}

// PaidFor reports whether any payment actually completed.
func (o *Order) PaidFor() bool {
	for _, payment := range o.Payments {
		if payment.Completed() {
			return true
		}
	}
	return false
}

// EligibleAdjustmentTotal sums the amounts of eligible adjustments; only
// those count toward the order's adjustment total.
func (o *Order) EligibleAdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, adjustment := range o.Adjustments {
		if adjustment.Eligible {
			total = total.Add(adjustment.Amount)
		}
	}
	return total
}

// LineItemTotal sums line item amounts.
func (o *Order) LineItemTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.Amount())
	}
	return total
}

// RecordStateChange appends an audit entry when a derived state actually
// changed. It returns true when an entry was written.
func (o *Order) RecordStateChange(name, previous, next string, at time.Time) bool {
	if previous == next {
		return false
	}
	o.StateChanges = append(o.StateChanges, StateChange{
		Name:          name,
		PreviousState: previous,
		NextState:     next,
		UserID:        o.UserID,
		CreatedAt:     at,
	})
	return true
}

// AdjustmentsFor returns the adjustments attached to the given adjustable.
func (o *Order) AdjustmentsFor(ref AdjustableRef) []*Adjustment {
	var matched []*Adjustment
	for _, adjustment := range o.Adjustments {
		if adjustment.Adjustable == ref {
			matched = append(matched, adjustment)
		}
	}
	return matched
}

// RemoveAdjustments drops every adjustment for which keep returns false.
func (o *Order) RemoveAdjustments(keep func(*Adjustment) bool) {
	kept := o.Adjustments[:0]
	for _, adjustment := range o.Adjustments {
		if keep(adjustment) {
			kept = append(kept, adjustment)
		}
	}
	o.Adjustments = kept
}

// CalculableLineItems lets the whole order serve as a calculator context.
func (o *Order) CalculableLineItems() []LineItem {
	return o.LineItems
}
