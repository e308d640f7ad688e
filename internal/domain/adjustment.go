package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentState is the lifecycle state of an adjustment. Open adjustments
// recalculate freely; closed adjustments are frozen against recalculation but
// may reopen; finalized adjustments are terminal.
type AdjustmentState string

const (
	AdjustmentOpen      AdjustmentState = "open"
	AdjustmentClosed    AdjustmentState = "closed"
	AdjustmentFinalized AdjustmentState = "finalized"
)

// ErrInvalidTransition signals an adjustment state transition with no defined
// edge. The state machine has no wildcard transitions, so callers must treat
// this as a hard failure rather than a silent success.
var ErrInvalidTransition = errors.New("adjustment: invalid state transition")

// AdjustableKind tags the type of object an adjustment modifies.
type AdjustableKind string

const (
	AdjustableOrder    AdjustableKind = "order"
	AdjustableLineItem AdjustableKind = "line_item"
	AdjustableShipment AdjustableKind = "shipment"
)

// AdjustableRef identifies the order, line item, or shipment an adjustment is
// attached to.
type AdjustableRef struct {
	Kind AdjustableKind
	ID   string
}

// OriginatorKind tags the type of object that produced an adjustment.
type OriginatorKind string

const (
	OriginatorNone           OriginatorKind = ""
	OriginatorEnterpriseFee  OriginatorKind = "enterprise_fee"
	OriginatorTaxRate        OriginatorKind = "tax_rate"
	OriginatorPaymentMethod  OriginatorKind = "payment_method"
	OriginatorShippingMethod OriginatorKind = "shipping_method"
)

// OriginatorRef is the persisted tag for an adjustment's originator. The
// live Originator is rebound from the fee/rate catalogs after load.
type OriginatorRef struct {
	Kind OriginatorKind
	ID   string
}

// Calculable is anything a calculator can price: a line item, a stock
// package, or a whole order.
type Calculable interface {
	CalculableLineItems() []LineItem
}

// Originator recomputes the amount of adjustments it produced. EnterpriseFee
// and TaxRate implement it; payment and shipping method fees keep their
// amounts as charged.
type Originator interface {
	OriginatorRef() OriginatorRef
	UpdateAdjustment(adjustment *Adjustment, target Calculable) error
}

// Adjustment is a signed monetary delta attached to an adjustable and
// attributable to an originator. Only eligible adjustments count toward the
// order's adjustment total; mandatory adjustments persist even at zero so a
// "no charge" is explicit.
type Adjustment struct {
	ID          string
	OrderID     string
	Label       string
	Amount      decimal.Decimal
	IncludedTax decimal.Decimal
	Eligible    bool
	Mandatory   bool
	State       AdjustmentState

	Adjustable AdjustableRef
	Origin     OriginatorRef
	SourceRef  AdjustableRef

	// Originator and Source are rebound in memory after load; they are not
	// persisted directly.
	Originator Originator
	Source     Calculable

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Immutable reports whether the adjustment's amount is locked. Anything not
// open is frozen against recalculation.
func (a *Adjustment) Immutable() bool {
	return a.State != AdjustmentOpen
}

// Close transitions open -> closed.
func (a *Adjustment) Close() error {
	if a.State != AdjustmentOpen {
		return fmt.Errorf("%w: close from %q", ErrInvalidTransition, a.State)
	}
	a.State = AdjustmentClosed
	return nil
}

// Reopen transitions closed -> open.
func (a *Adjustment) Reopen() error {
	if a.State != AdjustmentClosed {
		return fmt.Errorf("%w: reopen from %q", ErrInvalidTransition, a.State)
	}
	a.State = AdjustmentOpen
	return nil
}

// Finalize transitions open or closed -> finalized. Terminal.
func (a *Adjustment) Finalize() error {
	if a.State != AdjustmentOpen && a.State != AdjustmentClosed {
		return fmt.Errorf("%w: finalize from %q", ErrInvalidTransition, a.State)
	}
	a.State = AdjustmentFinalized
	return nil
}

// SetEligibility recomputes the eligible flag: mandatory adjustments are
// always eligible, optional ones only while their amount is nonzero.
func (a *Adjustment) SetEligibility() {
	a.Eligible = a.Mandatory || !a.Amount.IsZero()
}

// Update recalculates the adjustment's amount by delegating to its
// originator, then refreshes eligibility. Closed and finalized adjustments
// are left untouched. The target carries the caller's current view of the
// source so calculations never run against stale values; when nil, the bound
// source is used.
func (a *Adjustment) Update(target Calculable) error {
	if a.Immutable() {
		return nil
	}
	if a.Originator != nil {
		if target == nil {
			target = a.Source
		}
		if err := a.Originator.UpdateAdjustment(a, target); err != nil {
			return err
		}
	}
	a.SetEligibility()
	return nil
}

// SetIncludedTax derives the inclusive tax portion embedded in the
// adjustment's amount for the given rate (0.1 means 10%) and stores it
// rounded to cents.
func (a *Adjustment) SetIncludedTax(rate decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(rate)
	tax := a.Amount.Sub(a.Amount.Div(divisor))
	a.SetAbsoluteIncludedTax(tax)
}

// SetAbsoluteIncludedTax stores a precomputed inclusive tax amount.
func (a *Adjustment) SetAbsoluteIncludedTax(tax decimal.Decimal) {
	a.IncludedTax = MoneyRound(tax)
}

// HasTax reports whether the adjustment embeds inclusive tax.
func (a *Adjustment) HasTax() bool {
	return a.IncludedTax.IsPositive()
}

// Charge reports whether the adjustment increases the order total.
func (a *Adjustment) Charge() bool {
	return !a.Amount.IsNegative()
}
