package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is a percentage rate tied to a tax category and a geographic zone.
// Only price-inclusive rates participate in the totals engine; the rate both
// computes the tax embedded in an adjustment's amount and reconstructs which
// rates contributed to a stored included-tax figure for display.
type TaxRate struct {
	ID          string
	Name        string
	Amount      decimal.Decimal // e.g. 0.1 for 10%
	TaxCategory *TaxCategory
	ZoneID      string
	Inclusive   bool
}

// TaxZone is the set of rates applicable to an order's address.
type TaxZone struct {
	ID    string
	Name  string
	Rates []*TaxRate
}

// RatesForCategory returns the zone's rates matching a tax category.
func (z *TaxZone) RatesForCategory(category *TaxCategory) []*TaxRate {
	if z == nil || category == nil {
		return nil
	}
	var matched []*TaxRate
	for _, rate := range z.Rates {
		if rate.TaxCategory != nil && rate.TaxCategory.ID == category.ID {
			matched = append(matched, rate)
		}
	}
	return matched
}

// ComputeTax extracts the inclusive tax portion embedded in a tax-inclusive
// amount: amount - amount/(1+rate), rounded to cents.
func (r *TaxRate) ComputeTax(amount decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(r.Amount)
	return MoneyRound(amount.Sub(amount.Div(divisor)))
}

// OriginatorRef implements Originator.
func (r *TaxRate) OriginatorRef() OriginatorRef {
	return OriginatorRef{Kind: OriginatorTaxRate, ID: r.ID}
}

// UpdateAdjustment recomputes a tax adjustment from its target's current
// line items. Inclusive rates carry the tax inside the prices, so the
// adjustment amount stays zero while the included-tax figure tracks the
// taxable total; additional rates charge the tax on top.
func (r *TaxRate) UpdateAdjustment(adjustment *Adjustment, target Calculable) error {
	if target == nil {
		return fmt.Errorf("tax rate %s: nil calculable target", r.ID)
	}
	taxable := decimal.Zero
	for _, li := range target.CalculableLineItems() {
		taxable = taxable.Add(li.Amount())
	}
	if r.Inclusive {
		adjustment.Amount = decimal.Zero
		adjustment.SetAbsoluteIncludedTax(r.ComputeTax(taxable))
		return nil
	}
	adjustment.Amount = MoneyRound(taxable.Mul(r.Amount))
	return nil
}

// AdjustmentLabel names the adjustment the rate produces.
func (r *TaxRate) AdjustmentLabel() string {
	percent := r.Amount.Mul(decimal.NewFromInt(100))
	label := fmt.Sprintf("%s %s%%", r.Name, percent.String())
	if r.Inclusive {
		label += " (included)"
	}
	return label
}
