package domain

import (
	"fmt"
	"strings"
)

// ContentItemState tracks stock availability for a package entry.
type ContentItemState string

const (
	ContentOnHand      ContentItemState = "on_hand"
	ContentBackordered ContentItemState = "backordered"
)

// ContentItem is a quantity of a variant placed into a package.
type ContentItem struct {
	Variant  *Variant
	Quantity int
	State    ContentItemState
}

// Package is an in-memory grouping of stock destined for one shipment. It is
// the context per-order calculators price when fees are charged at packing
// time, before a shipment record exists.
type Package struct {
	Order    *Order
	Contents []ContentItem
}

// NewPackage builds an empty package for the order.
func NewPackage(order *Order) *Package {
	return &Package{Order: order}
}

// Add appends a variant quantity in the given state.
func (p *Package) Add(variant *Variant, quantity int, state ContentItemState) {
	p.Contents = append(p.Contents, ContentItem{Variant: variant, Quantity: quantity, State: state})
}

// OnHand returns the items available from stock.
func (p *Package) OnHand() []ContentItem {
	return p.itemsInState(ContentOnHand)
}

// Backordered returns the items awaiting stock.
func (p *Package) Backordered() []ContentItem {
	return p.itemsInState(ContentBackordered)
}

func (p *Package) itemsInState(state ContentItemState) []ContentItem {
	var items []ContentItem
	for _, item := range p.Contents {
		if item.State == state {
			items = append(items, item)
		}
	}
	return items
}

// Quantity sums item quantities, optionally filtered by state.
func (p *Package) Quantity(states ...ContentItemState) int {
	total := 0
	for _, item := range p.Contents {
		if len(states) == 0 || item.State == states[0] {
			total += item.Quantity
		}
	}
	return total
}

// Empty reports whether the package holds no stock.
func (p *Package) Empty() bool {
	return p.Quantity() == 0
}

// WeightGrams sums the package's variant weights.
func (p *Package) WeightGrams() int {
	total := 0
	for _, item := range p.Contents {
		if item.Variant != nil {
			total += item.Variant.WeightGrams * item.Quantity
		}
	}
	return total
}

// ToShipment materialises the package as a shipment for its order. The
// shipment starts pending and inherits backorder status from the contents.
func (p *Package) ToShipment() *Shipment {
	return &Shipment{
		OrderID:     p.Order.ID,
		State:       ShipmentStatePending,
		Backordered: len(p.Backordered()) > 0,
	}
}

// CalculableLineItems exposes the order's line items so per-order calculators
// can price the package.
func (p *Package) CalculableLineItems() []LineItem {
	if p.Order == nil {
		return nil
	}
	return p.Order.LineItems
}

// String renders a compact description for logs.
func (p *Package) String() string {
	parts := make([]string, 0, len(p.Contents))
	for _, item := range p.Contents {
		name := ""
		if item.Variant != nil {
			name = item.Variant.Name
		}
		parts = append(parts, fmt.Sprintf("%s x%d %s", name, item.Quantity, item.State))
	}
	return strings.Join(parts, " / ")
}
