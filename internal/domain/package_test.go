package domain

import "testing"

func TestPackageQuantities(t *testing.T) {
	order := &Order{ID: "ord_1"}
	pkg := NewPackage(order)
	pkg.Add(&Variant{ID: "v1", Name: "Apples", WeightGrams: 500}, 3, ContentOnHand)
	pkg.Add(&Variant{ID: "v2", Name: "Flour", WeightGrams: 1000}, 2, ContentBackordered)

	if got := pkg.Quantity(); got != 5 {
		t.Fatalf("total quantity = %d, want 5", got)
	}
	if got := pkg.Quantity(ContentOnHand); got != 3 {
		t.Fatalf("on hand quantity = %d, want 3", got)
	}
	if got := pkg.Quantity(ContentBackordered); got != 2 {
		t.Fatalf("backordered quantity = %d, want 2", got)
	}
	if pkg.Empty() {
		t.Fatalf("package with contents reported empty")
	}
	if got := pkg.WeightGrams(); got != 3500 {
		t.Fatalf("weight = %d, want 3500", got)
	}
}

func TestPackageToShipment(t *testing.T) {
	order := &Order{ID: "ord_1"}

	pkg := NewPackage(order)
	pkg.Add(&Variant{ID: "v1"}, 1, ContentOnHand)
	shipment := pkg.ToShipment()
	if shipment.OrderID != "ord_1" || shipment.State != ShipmentStatePending {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
	if shipment.Backordered {
		t.Fatalf("all-on-hand package produced backordered shipment")
	}

	pkg.Add(&Variant{ID: "v2"}, 1, ContentBackordered)
	if !pkg.ToShipment().Backordered {
		t.Fatalf("package with backordered contents should produce backordered shipment")
	}
}

func TestEmptyPackage(t *testing.T) {
	pkg := NewPackage(&Order{ID: "ord_1"})
	if !pkg.Empty() {
		t.Fatalf("fresh package should be empty")
	}
}
