package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/openfoodnet/api/internal/domain"
)

const adjustmentIDPrefix = "adj_"

// ErrFeeNotPerOrder signals an attempt to apply a line-item calculator at the
// order level or vice versa.
var ErrFeeNotPerOrder = errors.New("fee applicator: calculator scope mismatch")

// FeeApplicator attaches enterprise fee adjustments to orders and line items.
// Each adjustment is created open and mandatory, computed immediately, and
// stamped with the inclusive tax embedded in its amount.
type FeeApplicator struct {
	clock func() time.Time
	newID func() string
}

// NewFeeApplicator builds an applicator. Clock and ID generator default to
// wall time and ULIDs.
func NewFeeApplicator(clock func() time.Time, idGen func() string) *FeeApplicator {
	if clock == nil {
		clock = time.Now
	}
	if idGen == nil {
		idGen = func() string {
			return adjustmentIDPrefix + ulid.Make().String()
		}
	}
	return &FeeApplicator{clock: clock, newID: idGen}
}

// ClearFeeAdjustments removes every enterprise fee adjustment from the order,
// typically before fees are re-applied for a changed order cycle.
func (f *FeeApplicator) ClearFeeAdjustments(order *domain.Order) {
	order.RemoveAdjustments(func(a *domain.Adjustment) bool {
		return a.Origin.Kind != domain.OriginatorEnterpriseFee
	})
}

// ApplyOrderFee attaches a per-order fee to the order, computes its amount
// over the whole order, and stamps inclusive tax when the fee carries an
// explicit tax category with a single rate in the order's zone.
func (f *FeeApplicator) ApplyOrderFee(order *domain.Order, fee *domain.EnterpriseFee, enterpriseName string) (*domain.Adjustment, error) {
	if !fee.PerOrder() {
		return nil, fmt.Errorf("%w: fee %s calculator %s is per item", ErrFeeNotPerOrder, fee.ID, fee.Calculator.Kind())
	}
	ref := domain.AdjustableRef{Kind: domain.AdjustableOrder, ID: order.ID}
	adjustment, err := f.apply(order, fee, enterpriseName, ref, ref, order)
	if err != nil {
		return nil, err
	}
	// A per-order fee has no line item to inherit a tax category from.
	if fee.TaxCategory != nil {
		f.stampIncludedTax(adjustment, fee.TaxCategory, order.TaxZone)
	}
	return adjustment, nil
}

// ApplyLineItemFee attaches a per-item fee to a single line item. Fees that
// inherit their tax category take it from the line item's variant.
func (f *FeeApplicator) ApplyLineItemFee(order *domain.Order, item domain.LineItem, fee *domain.EnterpriseFee, enterpriseName string) (*domain.Adjustment, error) {
	if fee.PerOrder() {
		return nil, fmt.Errorf("%w: fee %s calculator %s is per order", ErrFeeNotPerOrder, fee.ID, fee.Calculator.Kind())
	}
	ref := domain.AdjustableRef{Kind: domain.AdjustableLineItem, ID: item.ID}
	adjustment, err := f.apply(order, fee, enterpriseName, ref, ref, item)
	if err != nil {
		return nil, err
	}
	f.stampIncludedTax(adjustment, feeTaxCategory(fee, item.Variant), order.TaxZone)
	return adjustment, nil
}

func (f *FeeApplicator) apply(order *domain.Order, fee *domain.EnterpriseFee, enterpriseName string, adjustable, source domain.AdjustableRef, target domain.Calculable) (*domain.Adjustment, error) {
	now := f.clock().UTC()
	adjustment := &domain.Adjustment{
		ID:         f.newID(),
		OrderID:    order.ID,
		Label:      fee.AdjustmentLabel(enterpriseName),
		Mandatory:  true,
		State:      domain.AdjustmentOpen,
		Adjustable: adjustable,
		Origin:     fee.OriginatorRef(),
		SourceRef:  source,
		Originator: fee,
		Source:     target,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := adjustment.Update(target); err != nil {
		return nil, err
	}
	order.Adjustments = append(order.Adjustments, adjustment)
	return adjustment, nil
}

// stampIncludedTax records the inclusive tax portion of the fee's amount.
// With exactly one applicable rate the stamp is exact; with several the
// stamp stays zero and readers recompute per rate.
func (f *FeeApplicator) stampIncludedTax(adjustment *domain.Adjustment, category *domain.TaxCategory, zone *domain.TaxZone) {
	if category == nil || zone == nil {
		return
	}
	rates := zone.RatesForCategory(category)
	if len(rates) != 1 || !rates[0].Inclusive {
		return
	}
	adjustment.SetIncludedTax(rates[0].Amount)
}

// feeTaxCategory resolves the category taxing a fee on the given variant:
// explicit wins, inheritance takes the variant's own category.
func feeTaxCategory(fee *domain.EnterpriseFee, variant *domain.Variant) *domain.TaxCategory {
	if fee.InheritsTaxCategory {
		if variant == nil {
			return nil
		}
		return variant.TaxCategory
	}
	return fee.TaxCategory
}
