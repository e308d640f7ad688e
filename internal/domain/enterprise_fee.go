package domain

import (
	"errors"
	"fmt"
	"time"
)

// FeeType classifies the service an enterprise fee charges for.
type FeeType string

const (
	FeePacking     FeeType = "packing"
	FeeTransport   FeeType = "transport"
	FeeAdmin       FeeType = "admin"
	FeeSales       FeeType = "sales"
	FeeFundraising FeeType = "fundraising"
)

// FeeTypes lists every valid fee type.
var FeeTypes = []FeeType{FeePacking, FeeTransport, FeeAdmin, FeeSales, FeeFundraising}

// ErrInvalidFee signals an enterprise fee that fails validation.
var ErrInvalidFee = errors.New("enterprise fee: invalid")

// EnterpriseFee is an admin-configured charge an enterprise levies on orders
// or line items through an attached calculator. A fee either carries an
// explicit tax category or inherits the category of the product it applies
// to; the two modes are mutually exclusive.
type EnterpriseFee struct {
	ID           string
	EnterpriseID string
	Name         string
	FeeType      FeeType

	Calculator Calculator

	TaxCategory         *TaxCategory
	InheritsTaxCategory bool

	// DeletedAt marks soft deletion. Deleted fees stay resolvable for
	// adjustments that already reference them; lookups opt in explicitly.
	DeletedAt *time.Time
}

// Validate checks the invariants an admin-facing save would enforce.
func (f *EnterpriseFee) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFee)
	}
	valid := false
	for _, feeType := range FeeTypes {
		if f.FeeType == feeType {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: fee type %q", ErrInvalidFee, f.FeeType)
	}
	if f.Calculator == nil {
		return fmt.Errorf("%w: calculator is required", ErrInvalidFee)
	}
	if f.TaxCategory != nil && f.InheritsTaxCategory {
		return fmt.Errorf("%w: explicit tax category excludes inheritance", ErrInvalidFee)
	}
	return nil
}

// NormalizeTaxCategory reconciles the two tax-category modes: setting an
// explicit category switches inheritance off, and switching inheritance on
// clears any explicit category.
func (f *EnterpriseFee) NormalizeTaxCategory(categoryChanged bool) {
	if categoryChanged {
		if f.TaxCategory != nil {
			f.InheritsTaxCategory = false
		}
		return
	}
	if f.InheritsTaxCategory {
		f.TaxCategory = nil
	}
}

// PerOrder reports whether the fee's calculator prices whole orders rather
// than individual items.
func (f *EnterpriseFee) PerOrder() bool {
	if f.Calculator == nil {
		return false
	}
	return PerOrderCalculators[f.Calculator.Kind()]
}

// Deleted reports whether the fee has been soft-deleted.
func (f *EnterpriseFee) Deleted() bool {
	return f.DeletedAt != nil
}

// OriginatorRef implements Originator.
func (f *EnterpriseFee) OriginatorRef() OriginatorRef {
	return OriginatorRef{Kind: OriginatorEnterpriseFee, ID: f.ID}
}

// UpdateAdjustment recomputes the adjustment's amount against the target via
// the fee's calculator. Used both when the fee first applies and on every
// order update while the adjustment stays open.
func (f *EnterpriseFee) UpdateAdjustment(adjustment *Adjustment, target Calculable) error {
	if f.Calculator == nil {
		return fmt.Errorf("%w: fee %s has no calculator", ErrCalculatorNotConfigured, f.ID)
	}
	if target == nil {
		return fmt.Errorf("enterprise fee %s: nil calculable target", f.ID)
	}
	amount, err := f.Calculator.Compute(target)
	if err != nil {
		return err
	}
	adjustment.Amount = amount
	return nil
}

// AdjustmentLabel names the adjustment the fee produces.
func (f *EnterpriseFee) AdjustmentLabel(enterpriseName string) string {
	if enterpriseName == "" {
		return fmt.Sprintf("%s fee - %s", f.FeeType, f.Name)
	}
	return fmt.Sprintf("%s fee by %s - %s", f.FeeType, enterpriseName, f.Name)
}
