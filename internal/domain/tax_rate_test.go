package domain

import (
	"testing"
)

func TestTaxRateComputeTax(t *testing.T) {
	rate := &TaxRate{ID: "tr_1", Name: "GST", Amount: dec(t, "0.1"), Inclusive: true}

	tests := []struct {
		amount string
		want   string
	}{
		{"11.00", "1.00"},
		{"30.00", "2.73"},
		{"0", "0.00"},
	}
	for _, tc := range tests {
		got := rate.ComputeTax(dec(t, tc.amount))
		if got.StringFixed(2) != tc.want {
			t.Fatalf("ComputeTax(%s) = %s, want %s", tc.amount, got.StringFixed(2), tc.want)
		}
	}
}

func TestTaxRateUpdateAdjustmentInclusive(t *testing.T) {
	rate := &TaxRate{ID: "tr_1", Name: "GST", Amount: dec(t, "0.1"), Inclusive: true}
	adjustment := &Adjustment{State: AdjustmentOpen, Origin: rate.OriginatorRef()}
	item := LineItem{Price: dec(t, "15.00"), Quantity: 2}

	if err := rate.UpdateAdjustment(adjustment, item); err != nil {
		t.Fatalf("update adjustment: %v", err)
	}
	// Inclusive tax lives inside the item prices: the adjustment contributes
	// nothing to the total but records the embedded tax.
	if !adjustment.Amount.IsZero() {
		t.Fatalf("inclusive tax adjustment amount = %s, want 0", adjustment.Amount)
	}
	if adjustment.IncludedTax.StringFixed(2) != "2.73" {
		t.Fatalf("included tax = %s, want 2.73", adjustment.IncludedTax.StringFixed(2))
	}
}

func TestTaxRateUpdateAdjustmentAdditional(t *testing.T) {
	rate := &TaxRate{ID: "tr_2", Name: "Sales tax", Amount: dec(t, "0.05")}
	adjustment := &Adjustment{State: AdjustmentOpen, Origin: rate.OriginatorRef()}
	item := LineItem{Price: dec(t, "10.00"), Quantity: 2}

	if err := rate.UpdateAdjustment(adjustment, item); err != nil {
		t.Fatalf("update adjustment: %v", err)
	}
	if !adjustment.Amount.Equal(dec(t, "1.00")) {
		t.Fatalf("additional tax amount = %s, want 1.00", adjustment.Amount)
	}
	if !adjustment.IncludedTax.IsZero() {
		t.Fatalf("additional tax should not record included tax, got %s", adjustment.IncludedTax)
	}
}

func TestTaxZoneRatesForCategory(t *testing.T) {
	food := &TaxCategory{ID: "tc_food"}
	general := &TaxCategory{ID: "tc_general"}
	zone := &TaxZone{
		ID: "zone_au",
		Rates: []*TaxRate{
			{ID: "tr_1", TaxCategory: food},
			{ID: "tr_2", TaxCategory: general},
			{ID: "tr_3", TaxCategory: food},
		},
	}

	rates := zone.RatesForCategory(food)
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates for food, got %d", len(rates))
	}
	if rates := zone.RatesForCategory(nil); rates != nil {
		t.Fatalf("nil category should match nothing")
	}
}

func TestTaxRateAdjustmentLabel(t *testing.T) {
	rate := &TaxRate{Name: "GST", Amount: dec(t, "0.1"), Inclusive: true}
	if got := rate.AdjustmentLabel(); got != "GST 10% (included)" {
		t.Fatalf("label = %q", got)
	}
}
