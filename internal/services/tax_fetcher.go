package services

import (
	"sort"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
)

// TaxFetcher reports how much tax an order carries, keyed by the tax rate
// responsible. It inspects adjustments that embed inclusive tax on the order
// itself or on its line items, oldest first.
//
// Adjustments only store the tax amount, not which rate produced it. With a
// single applicable rate the stored amount is authoritative; when several
// rates could apply the embedded tax is split by recomputing each rate over
// the adjustment's full amount. That split overstates the per-rate figures
// and is kept for report continuity.
type TaxFetcher struct{}

// Totals sums tax per rate for the given order. Adjustments must have their
// originators rebound; adjustments whose rate cannot be determined are
// dropped from the report. Rates merge by identifier, so the same catalog
// rate reached through a rebound originator and through the order's zone
// still lands in one entry.
func (TaxFetcher) Totals(order *domain.Order) []TaxTotal {
	totals := make(map[string]decimal.Decimal)
	rateByID := make(map[string]*domain.TaxRate)

	for _, adjustment := range taxAdjustments(order) {
		rates := ratesOf(order, adjustment)
		for _, rate := range rates {
			amount := adjustment.IncludedTax
			if len(rates) > 1 {
				amount = rate.ComputeTax(adjustment.Amount)
			}
			if _, ok := rateByID[rate.ID]; !ok {
				rateByID[rate.ID] = rate
			}
			totals[rate.ID] = totals[rate.ID].Add(amount)
		}
	}

	result := make([]TaxTotal, 0, len(rateByID))
	for id, rate := range rateByID {
		result = append(result, TaxTotal{Rate: rate, Amount: totals[id]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rate.ID < result[j].Rate.ID
	})
	return result
}

// taxAdjustments selects the order's adjustments that embed inclusive tax and
// sit on the order or one of its line items, in creation order.
func taxAdjustments(order *domain.Order) []*domain.Adjustment {
	items := make(map[string]bool, len(order.LineItems))
	for _, li := range order.LineItems {
		items[li.ID] = true
	}

	var matched []*domain.Adjustment
	for _, adjustment := range order.Adjustments {
		if !adjustment.HasTax() {
			continue
		}
		switch adjustment.Adjustable.Kind {
		case domain.AdjustableOrder:
			if adjustment.Adjustable.ID != order.ID {
				continue
			}
		case domain.AdjustableLineItem:
			if !items[adjustment.Adjustable.ID] {
				continue
			}
		default:
			continue
		}
		matched = append(matched, adjustment)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched
}

// ratesOf recovers the tax rates behind an adjustment: a tax adjustment knows
// its rate directly, a fee adjustment is matched through its tax category
// against the order's zone.
func ratesOf(order *domain.Order, adjustment *domain.Adjustment) []*domain.TaxRate {
	switch origin := adjustment.Originator.(type) {
	case *domain.TaxRate:
		return []*domain.TaxRate{origin}
	case *domain.EnterpriseFee:
		if order.TaxZone == nil {
			return nil
		}
		return order.TaxZone.RatesForCategory(adjustmentTaxCategory(origin, adjustment))
	default:
		return nil
	}
}

func adjustmentTaxCategory(fee *domain.EnterpriseFee, adjustment *domain.Adjustment) *domain.TaxCategory {
	if !fee.InheritsTaxCategory {
		return fee.TaxCategory
	}
	// Inherited categories come from the priced line item's variant.
	item, ok := adjustment.Source.(domain.LineItem)
	if !ok {
		return nil
	}
	return feeTaxCategory(fee, item.Variant)
}
