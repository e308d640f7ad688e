package domain

import (
	"errors"
	"testing"
	"time"
)

func testFee(t *testing.T, kind CalculatorKind, prefs CalculatorPrefs) *EnterpriseFee {
	t.Helper()
	calc, err := NewCalculator(kind, prefs)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	return &EnterpriseFee{
		ID:           "fee_1",
		EnterpriseID: "ent_1",
		Name:         "Standard packing",
		FeeType:      FeePacking,
		Calculator:   calc,
	}
}

func TestEnterpriseFeeValidate(t *testing.T) {
	fee := testFee(t, CalcFlatRate, CalculatorPrefs{Amount: dec(t, "2.00")})
	if err := fee.Validate(); err != nil {
		t.Fatalf("valid fee rejected: %v", err)
	}

	bad := *fee
	bad.FeeType = FeeType("hauling")
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for fee type, got %v", err)
	}

	bad = *fee
	bad.Name = ""
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for blank name, got %v", err)
	}

	bad = *fee
	bad.TaxCategory = &TaxCategory{ID: "tc_1"}
	bad.InheritsTaxCategory = true
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for conflicting tax modes, got %v", err)
	}
}

func TestEnterpriseFeeNormalizeTaxCategory(t *testing.T) {
	fee := testFee(t, CalcFlatRate, CalculatorPrefs{Amount: dec(t, "2.00")})
	fee.InheritsTaxCategory = true

	// Setting an explicit category removes inheritance.
	fee.TaxCategory = &TaxCategory{ID: "tc_1"}
	fee.NormalizeTaxCategory(true)
	if fee.InheritsTaxCategory {
		t.Fatalf("explicit tax category should clear inheritance")
	}

	// Re-enabling inheritance clears the category.
	fee.InheritsTaxCategory = true
	fee.NormalizeTaxCategory(false)
	if fee.TaxCategory != nil {
		t.Fatalf("inheritance should clear explicit tax category")
	}
}

func TestEnterpriseFeePerOrder(t *testing.T) {
	tests := []struct {
		kind CalculatorKind
		want bool
	}{
		{CalcFlatRate, true},
		{CalcFlatPercentItemTotal, true},
		{CalcPriceSack, true},
		{CalcFlatPercentPerItem, false},
		{CalcPerItem, false},
	}
	for _, tc := range tests {
		fee := testFee(t, tc.kind, CalculatorPrefs{
			Amount:       dec(t, "1.00"),
			FlatPercent:  dec(t, "5"),
			NormalAmount: dec(t, "1.00"),
		})
		if got := fee.PerOrder(); got != tc.want {
			t.Fatalf("PerOrder for %s = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestEnterpriseFeeUpdateAdjustment(t *testing.T) {
	fee := testFee(t, CalcFlatPercentPerItem, CalculatorPrefs{FlatPercent: dec(t, "20")})
	adjustment := &Adjustment{State: AdjustmentOpen, Origin: fee.OriginatorRef()}
	item := LineItem{Price: dec(t, "0.86"), Quantity: 8}

	if err := fee.UpdateAdjustment(adjustment, item); err != nil {
		t.Fatalf("update adjustment: %v", err)
	}
	if !adjustment.Amount.Equal(dec(t, "1.36")) {
		t.Fatalf("amount = %s, want 1.36", adjustment.Amount)
	}
}

func TestEnterpriseFeeDeleted(t *testing.T) {
	fee := testFee(t, CalcFlatRate, CalculatorPrefs{Amount: dec(t, "2.00")})
	if fee.Deleted() {
		t.Fatalf("fresh fee should not be deleted")
	}
	now := time.Now()
	fee.DeletedAt = &now
	if !fee.Deleted() {
		t.Fatalf("fee with DeletedAt should report deleted")
	}
}
