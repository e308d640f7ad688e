package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCalculatorNotConfigured signals a calculator missing a required
// preference. Computation fails fast instead of defaulting to zero so a
// misconfigured fee never silently under- or over-charges.
var ErrCalculatorNotConfigured = errors.New("calculator: missing required preference")

// ErrUnknownCalculator is returned when a stored discriminator does not map
// to a known calculator kind.
var ErrUnknownCalculator = errors.New("calculator: unknown kind")

// CalculatorKind is the stored discriminator selecting a calculator strategy.
type CalculatorKind string

const (
	CalcFlatRate             CalculatorKind = "flat_rate"
	CalcFlatPercentItemTotal CalculatorKind = "flat_percent_item_total"
	CalcFlatPercentPerItem   CalculatorKind = "flat_percent_per_item"
	CalcPerItem              CalculatorKind = "per_item"
	CalcPriceSack            CalculatorKind = "price_sack"
)

// PerOrderCalculators lists the kinds that compute against a whole order or
// package rather than per line item. Fees carrying one of these attach a
// single order-level adjustment; the rest adjust each line item.
var PerOrderCalculators = map[CalculatorKind]bool{
	CalcFlatRate:             true,
	CalcFlatPercentItemTotal: true,
	CalcPriceSack:            true,
}

// Calculator computes a fee amount from a calculable context. Implementations
// are stateless given their configured preferences; Prefs exposes those
// preferences so the persistence layer can round-trip a calculator.
type Calculator interface {
	Kind() CalculatorKind
	Compute(target Calculable) (decimal.Decimal, error)
	Prefs() CalculatorPrefs
}

// CalculatorPrefs carries the union of preferences across calculator kinds;
// each kind reads only its own fields.
type CalculatorPrefs struct {
	Amount         decimal.Decimal
	FlatPercent    decimal.Decimal
	MinimalAmount  decimal.Decimal
	NormalAmount   decimal.Decimal
	DiscountAmount decimal.Decimal
}

// NewCalculator resolves a stored discriminator into a concrete strategy.
func NewCalculator(kind CalculatorKind, prefs CalculatorPrefs) (Calculator, error) {
	switch kind {
	case CalcFlatRate:
		return FlatRate{Amount: prefs.Amount}, nil
	case CalcFlatPercentItemTotal:
		return FlatPercentItemTotal{FlatPercent: prefs.FlatPercent}, nil
	case CalcFlatPercentPerItem:
		return FlatPercentPerItem{FlatPercent: prefs.FlatPercent}, nil
	case CalcPerItem:
		return PerItem{Amount: prefs.Amount}, nil
	case CalcPriceSack:
		return PriceSack{
			MinimalAmount:  prefs.MinimalAmount,
			NormalAmount:   prefs.NormalAmount,
			DiscountAmount: prefs.DiscountAmount,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalculator, kind)
	}
}

func itemTotal(target Calculable) decimal.Decimal {
	total := decimal.Zero
	for _, li := range target.CalculableLineItems() {
		total = total.Add(li.Amount())
	}
	return total
}

// FlatRate charges a fixed amount once per order.
type FlatRate struct {
	Amount decimal.Decimal
}

func (c FlatRate) Kind() CalculatorKind { return CalcFlatRate }

func (c FlatRate) Prefs() CalculatorPrefs { return CalculatorPrefs{Amount: c.Amount} }

func (c FlatRate) Compute(Calculable) (decimal.Decimal, error) {
	return MoneyRound(c.Amount), nil
}

// FlatPercentItemTotal charges a percentage of the summed line item total,
// rounded once after summation.
type FlatPercentItemTotal struct {
	FlatPercent decimal.Decimal
}

func (c FlatPercentItemTotal) Kind() CalculatorKind { return CalcFlatPercentItemTotal }

func (c FlatPercentItemTotal) Prefs() CalculatorPrefs { return CalculatorPrefs{FlatPercent: c.FlatPercent} }

func (c FlatPercentItemTotal) Compute(target Calculable) (decimal.Decimal, error) {
	if c.FlatPercent.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: flat_percent", ErrCalculatorNotConfigured)
	}
	total := itemTotal(target).Mul(c.FlatPercent).Div(decimal.NewFromInt(100))
	return MoneyRound(total), nil
}

// FlatPercentPerItem charges a percentage per item, rounding each line's
// per-unit fee to cents before multiplying and summing. Rounding first is
// deliberate and can differ by cents from rounding one aggregate; the
// resulting totals are the contract.
type FlatPercentPerItem struct {
	FlatPercent decimal.Decimal
}

func (c FlatPercentPerItem) Kind() CalculatorKind { return CalcFlatPercentPerItem }

func (c FlatPercentPerItem) Prefs() CalculatorPrefs { return CalculatorPrefs{FlatPercent: c.FlatPercent} }

func (c FlatPercentPerItem) Compute(target Calculable) (decimal.Decimal, error) {
	if c.FlatPercent.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: flat_percent", ErrCalculatorNotConfigured)
	}
	total := decimal.Zero
	for _, li := range target.CalculableLineItems() {
		perUnit := MoneyRound(li.Price.Mul(c.FlatPercent).Div(decimal.NewFromInt(100)))
		total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total, nil
}

// PerItem charges a fixed amount for every unit in the context.
type PerItem struct {
	Amount decimal.Decimal
}

func (c PerItem) Kind() CalculatorKind { return CalcPerItem }

func (c PerItem) Prefs() CalculatorPrefs { return CalculatorPrefs{Amount: c.Amount} }

func (c PerItem) Compute(target Calculable) (decimal.Decimal, error) {
	quantity := int64(0)
	for _, li := range target.CalculableLineItems() {
		quantity += int64(li.Quantity)
	}
	return MoneyRound(c.Amount.Mul(decimal.NewFromInt(quantity))), nil
}

// PriceSack steps the charge on the context's item total: below the minimal
// amount the normal charge applies, at or above it the discounted charge.
type PriceSack struct {
	MinimalAmount  decimal.Decimal
	NormalAmount   decimal.Decimal
	DiscountAmount decimal.Decimal
}

func (c PriceSack) Kind() CalculatorKind { return CalcPriceSack }

func (c PriceSack) Prefs() CalculatorPrefs {
	return CalculatorPrefs{
		MinimalAmount:  c.MinimalAmount,
		NormalAmount:   c.NormalAmount,
		DiscountAmount: c.DiscountAmount,
	}
}

func (c PriceSack) Compute(target Calculable) (decimal.Decimal, error) {
	if c.MinimalAmount.IsZero() && c.NormalAmount.IsZero() && c.DiscountAmount.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: price sack amounts", ErrCalculatorNotConfigured)
	}
	if itemTotal(target).LessThan(c.MinimalAmount) {
		return MoneyRound(c.NormalAmount), nil
	}
	return MoneyRound(c.DiscountAmount), nil
}
