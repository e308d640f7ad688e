package services

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
)

// OrderUpdater recomputes an order's totals, derived states, and adjustment
// amounts whenever the order's contents change. It mutates the aggregate in
// memory only; persisting the derived fields in one write is the caller's
// job, so no step here can trigger a recursive update.
type OrderUpdater struct {
	order *domain.Order
	clock func() time.Time
}

// NewOrderUpdater builds an updater for the given order. The clock stamps
// state-change audit entries and defaults to UTC wall time.
func NewOrderUpdater(order *domain.Order, clock func() time.Time) *OrderUpdater {
	if clock == nil {
		clock = time.Now
	}
	return &OrderUpdater{
		order: order,
		clock: func() time.Time { return clock().UTC() },
	}
}

// Update runs the full recomputation cycle. The ordering is load-bearing:
// totals feed the payment state, adjustment recalculation can change the
// adjustment total, so totals run a second time to converge before the
// caller persists.
func (u *OrderUpdater) Update() error {
	u.UpdateTotals()

	if u.order.Completed() {
		u.UpdatePaymentState()

		// Give each shipment a chance to update itself before the
		// order-level state is inferred from it.
		for _, shipment := range u.order.Shipments {
			shipment.Sync(u.order)
		}
		u.UpdateShipmentState()
	}

	if err := u.UpdateAllAdjustments(); err != nil {
		return err
	}
	u.UpdateTotals()

	return nil
}

// UpdateTotals recomputes the order's stored monetary totals:
//
//   - PaymentTotal: sum of completed payment amounts
//   - ItemTotal: sum of line item amounts
//   - AdjustmentTotal: sum of eligible adjustment amounts
//   - Total: ItemTotal plus AdjustmentTotal
func (u *OrderUpdater) UpdateTotals() {
	order := u.order
	order.PaymentTotal = order.CompletedPaymentTotal()
	order.ItemTotal = order.LineItemTotal()
	order.AdjustmentTotal = order.EligibleAdjustmentTotal()
	order.Total = order.ItemTotal.Add(order.AdjustmentTotal)
}

// UpdateShipmentState infers the order's shipment state:
//
//   - "backorder" when the order's shipment has backordered inventory,
//     regardless of the shipment's own state
//   - otherwise the shipment's state, or empty when there is no shipment
//
// An audit entry is recorded only when the value actually changes.
func (u *OrderUpdater) UpdateShipmentState() {
	order := u.order
	previous := order.ShipmentState

	shipment := order.Shipment()
	switch {
	case shipment == nil:
		order.ShipmentState = ""
	case shipment.Backordered:
		order.ShipmentState = domain.ShipmentStateBackorder
	default:
		order.ShipmentState = shipment.State
	}

	order.RecordStateChange("shipment", previous, order.ShipmentState, u.clock())
}

// UpdatePaymentState infers the order's payment state:
//
//   - "failed" when payments exist but none are valid
//   - "void" when the order is canceled and nothing was paid
//   - otherwise from the outstanding balance: positive means "balance_due",
//     negative "credit_owed", zero "paid" (canceled-but-paid orders owe the
//     whole payment total back)
//
// An audit entry is recorded only when the value actually changes.
func (u *OrderUpdater) UpdatePaymentState() {
	order := u.order
	previous := order.PaymentState

	order.PaymentState = u.inferPaymentState()

	order.RecordStateChange("payment", previous, order.PaymentState, u.clock())
}

// UpdateAllAdjustments re-runs every adjustment still attached to the order,
// cascading calculator recomputation for each fee and tax originator. Closed
// and finalized adjustments no-op inside Update.
func (u *OrderUpdater) UpdateAllAdjustments() error {
	for _, adjustment := range u.order.Adjustments {
		if err := adjustment.Update(nil); err != nil {
			return err
		}
	}
	return nil
}

// BeforeSave applies order-level fixups that must precede any save of order
// attributes. Currently that is substituting the distributor's address for
// shipping methods that don't need one.
func (u *OrderUpdater) BeforeSave() {
	u.shippingAddressFromDistributor()
}

// shippingAddressFromDistributor overwrites the ship address with the
// distributor's address when the selected shipping method doesn't require
// one, such as a pickup at the hub.
func (u *OrderUpdater) shippingAddressFromDistributor() {
	order := u.order
	if order.ShippingMethod == nil || order.ShippingMethod.RequireShipAddress {
		return
	}
	if order.Distributor == nil || order.Distributor.Address == nil {
		return
	}
	address := *order.Distributor.Address
	order.ShipAddress = &address
}

func (u *OrderUpdater) inferPaymentState() string {
	switch {
	case u.failedPayments():
		return domain.PaymentStateFailed
	case u.canceledAndNotPaidFor():
		return domain.PaymentStateVoid
	default:
		return u.inferPaymentStateFromBalance()
	}
}

func (u *OrderUpdater) inferPaymentStateFromBalance() string {
	order := u.order
	balance := order.OutstandingBalance()
	if u.canceledAndPaidFor() {
		balance = order.PaymentTotal.Neg()
	}
	return inferState(balance)
}

func inferState(balance decimal.Decimal) string {
	switch {
	case balance.IsPositive():
		return domain.PaymentStateBalanceDue
	case balance.IsNegative():
		return domain.PaymentStateCreditOwed
	default:
		return domain.PaymentStatePaid
	}
}

func (u *OrderUpdater) canceledAndPaidFor() bool {
	return u.order.Canceled() && u.order.PaidFor()
}

func (u *OrderUpdater) canceledAndNotPaidFor() bool {
	return u.order.Canceled() && u.order.PaymentTotal.IsZero()
}

func (u *OrderUpdater) failedPayments() bool {
	return len(u.order.Payments) > 0 && !u.order.HasValidPayments()
}
