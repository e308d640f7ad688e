package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Address captures the postal fields the engine needs for shipping and tax
// zone resolution. Street lines are kept verbatim; matching happens on
// country/state codes only.
type Address struct {
	FirstName  string
	LastName   string
	Address1   string
	Address2   string
	City       string
	PostalCode string
	State      string
	Country    string
	Phone      string
}

// TaxCategory groups variants and fees under a common tax treatment.
type TaxCategory struct {
	ID        string
	Name      string
	IsDefault bool
}

// Variant is the purchasable unit a line item points at. Only the fields the
// totals engine consumes are modelled; the wider catalog lives elsewhere.
type Variant struct {
	ID          string
	SKU         string
	Name        string
	WeightGrams int
	TaxCategory *TaxCategory
}

// Enterprise identifies a producer or hub. The engine only needs its address
// (for pickup shipping methods) and identity (fees are owned by enterprises).
type Enterprise struct {
	ID      string
	Name    string
	Address *Address
}

// ShippingMethod describes how an order is fulfilled. Methods that do not
// require a ship address (pickup at the distributor) cause the order updater
// to substitute the distributor's address before saving.
type ShippingMethod struct {
	ID                 string
	Name               string
	RequireShipAddress bool
}

// PaymentMethod is referenced by payments and, occasionally, by
// payment-fee adjustments as their originator.
type PaymentMethod struct {
	ID   string
	Name string
}

// NormalizeCurrency uppercases and trims an ISO currency code, falling back
// to the supplied default when blank.
func NormalizeCurrency(code, fallback string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return strings.ToUpper(strings.TrimSpace(fallback))
	}
	return trimmed
}

// MoneyRound rounds a monetary value to cents using half-up rounding, the
// convention every calculator and tax computation in the engine shares.
func MoneyRound(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
