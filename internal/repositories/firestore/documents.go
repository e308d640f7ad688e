package firestore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
)

// Monetary values are stored as fixed-point strings. Firestore's float64
// cannot carry money without drift, and the engine's rounding guarantees
// depend on exact cents.

func encodeMoney(value decimal.Decimal) string {
	return value.String()
}

func decodeMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode money %q: %w", raw, err)
	}
	return value, nil
}

type addressDocument struct {
	FirstName  string `firestore:"firstName,omitempty"`
	LastName   string `firestore:"lastName,omitempty"`
	Address1   string `firestore:"address1,omitempty"`
	Address2   string `firestore:"address2,omitempty"`
	City       string `firestore:"city,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
	State      string `firestore:"state,omitempty"`
	Country    string `firestore:"country,omitempty"`
	Phone      string `firestore:"phone,omitempty"`
}

func encodeAddress(address *domain.Address) *addressDocument {
	if address == nil {
		return nil
	}
	return &addressDocument{
		FirstName:  address.FirstName,
		LastName:   address.LastName,
		Address1:   address.Address1,
		Address2:   address.Address2,
		City:       address.City,
		PostalCode: address.PostalCode,
		State:      address.State,
		Country:    address.Country,
		Phone:      address.Phone,
	}
}

func decodeAddress(doc *addressDocument) *domain.Address {
	if doc == nil {
		return nil
	}
	return &domain.Address{
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
		Address1:   doc.Address1,
		Address2:   doc.Address2,
		City:       doc.City,
		PostalCode: doc.PostalCode,
		State:      doc.State,
		Country:    doc.Country,
		Phone:      doc.Phone,
	}
}

type taxCategoryDocument struct {
	ID        string `firestore:"id"`
	Name      string `firestore:"name,omitempty"`
	IsDefault bool   `firestore:"isDefault,omitempty"`
}

func encodeTaxCategory(category *domain.TaxCategory) *taxCategoryDocument {
	if category == nil {
		return nil
	}
	return &taxCategoryDocument{ID: category.ID, Name: category.Name, IsDefault: category.IsDefault}
}

func decodeTaxCategory(doc *taxCategoryDocument) *domain.TaxCategory {
	if doc == nil {
		return nil
	}
	return &domain.TaxCategory{ID: doc.ID, Name: doc.Name, IsDefault: doc.IsDefault}
}

type taxRateDocument struct {
	Name        string               `firestore:"name"`
	Amount      string               `firestore:"amount"`
	ZoneID      string               `firestore:"zoneId,omitempty"`
	TaxCategory *taxCategoryDocument `firestore:"taxCategory,omitempty"`
	Inclusive   bool                 `firestore:"inclusive"`
}

func encodeTaxRate(rate *domain.TaxRate) taxRateDocument {
	return taxRateDocument{
		Name:        rate.Name,
		Amount:      encodeMoney(rate.Amount),
		ZoneID:      rate.ZoneID,
		TaxCategory: encodeTaxCategory(rate.TaxCategory),
		Inclusive:   rate.Inclusive,
	}
}

func decodeTaxRate(id string, doc taxRateDocument) (*domain.TaxRate, error) {
	amount, err := decodeMoney(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("tax rate %s: %w", id, err)
	}
	return &domain.TaxRate{
		ID:          id,
		Name:        doc.Name,
		Amount:      amount,
		ZoneID:      doc.ZoneID,
		TaxCategory: decodeTaxCategory(doc.TaxCategory),
		Inclusive:   doc.Inclusive,
	}, nil
}

type zoneRateDocument struct {
	ID          string               `firestore:"id"`
	Name        string               `firestore:"name"`
	Amount      string               `firestore:"amount"`
	TaxCategory *taxCategoryDocument `firestore:"taxCategory,omitempty"`
	Inclusive   bool                 `firestore:"inclusive"`
}

// taxZoneDocument snapshots the zone and its rates inside the order document.
// The zone the order was priced under must survive later catalog edits.
type taxZoneDocument struct {
	ID    string             `firestore:"id"`
	Name  string             `firestore:"name,omitempty"`
	Rates []zoneRateDocument `firestore:"rates,omitempty"`
}

func encodeTaxZone(zone *domain.TaxZone) *taxZoneDocument {
	if zone == nil {
		return nil
	}
	doc := &taxZoneDocument{ID: zone.ID, Name: zone.Name}
	for _, rate := range zone.Rates {
		doc.Rates = append(doc.Rates, zoneRateDocument{
			ID:          rate.ID,
			Name:        rate.Name,
			Amount:      encodeMoney(rate.Amount),
			TaxCategory: encodeTaxCategory(rate.TaxCategory),
			Inclusive:   rate.Inclusive,
		})
	}
	return doc
}

func decodeTaxZone(doc *taxZoneDocument) (*domain.TaxZone, error) {
	if doc == nil {
		return nil, nil
	}
	zone := &domain.TaxZone{ID: doc.ID, Name: doc.Name}
	for _, entry := range doc.Rates {
		amount, err := decodeMoney(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("tax zone %s rate %s: %w", doc.ID, entry.ID, err)
		}
		zone.Rates = append(zone.Rates, &domain.TaxRate{
			ID:          entry.ID,
			Name:        entry.Name,
			Amount:      amount,
			ZoneID:      doc.ID,
			TaxCategory: decodeTaxCategory(entry.TaxCategory),
			Inclusive:   entry.Inclusive,
		})
	}
	return zone, nil
}

type variantDocument struct {
	ID          string               `firestore:"id"`
	SKU         string               `firestore:"sku,omitempty"`
	Name        string               `firestore:"name,omitempty"`
	WeightGrams int                  `firestore:"weightGrams,omitempty"`
	TaxCategory *taxCategoryDocument `firestore:"taxCategory,omitempty"`
}

func encodeVariant(variant *domain.Variant) *variantDocument {
	if variant == nil {
		return nil
	}
	return &variantDocument{
		ID:          variant.ID,
		SKU:         variant.SKU,
		Name:        variant.Name,
		WeightGrams: variant.WeightGrams,
		TaxCategory: encodeTaxCategory(variant.TaxCategory),
	}
}

func decodeVariant(doc *variantDocument) *domain.Variant {
	if doc == nil {
		return nil
	}
	return &domain.Variant{
		ID:          doc.ID,
		SKU:         doc.SKU,
		Name:        doc.Name,
		WeightGrams: doc.WeightGrams,
		TaxCategory: decodeTaxCategory(doc.TaxCategory),
	}
}

type lineItemDocument struct {
	ID       string           `firestore:"id"`
	Variant  *variantDocument `firestore:"variant,omitempty"`
	Price    string           `firestore:"price"`
	Quantity int              `firestore:"quantity"`
	Currency string           `firestore:"currency,omitempty"`
}

type paymentDocument struct {
	ID            string    `firestore:"id"`
	Amount        string    `firestore:"amount"`
	State         string    `firestore:"state"`
	PaymentMethod string    `firestore:"paymentMethodId,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt,omitempty"`
}

type shipmentDocument struct {
	ID          string `firestore:"id"`
	State       string `firestore:"state"`
	Backordered bool   `firestore:"backordered"`
	TrackingRef string `firestore:"trackingRef,omitempty"`
}

type refDocument struct {
	Kind string `firestore:"kind"`
	ID   string `firestore:"id"`
}

type adjustmentDocument struct {
	ID          string       `firestore:"id"`
	Label       string       `firestore:"label,omitempty"`
	Amount      string       `firestore:"amount"`
	IncludedTax string       `firestore:"includedTax,omitempty"`
	Eligible    bool         `firestore:"eligible"`
	Mandatory   bool         `firestore:"mandatory"`
	State       string       `firestore:"state"`
	Adjustable  refDocument  `firestore:"adjustable"`
	Origin      *refDocument `firestore:"origin,omitempty"`
	Source      *refDocument `firestore:"source,omitempty"`
	CreatedAt   time.Time    `firestore:"createdAt,omitempty"`
	UpdatedAt   time.Time    `firestore:"updatedAt,omitempty"`
}

type stateChangeDocument struct {
	Name          string    `firestore:"name"`
	PreviousState string    `firestore:"previousState,omitempty"`
	NextState     string    `firestore:"nextState,omitempty"`
	UserID        string    `firestore:"userId,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

type enterpriseDocument struct {
	ID      string           `firestore:"id"`
	Name    string           `firestore:"name,omitempty"`
	Address *addressDocument `firestore:"address,omitempty"`
}

type shippingMethodDocument struct {
	ID                 string `firestore:"id"`
	Name               string `firestore:"name,omitempty"`
	RequireShipAddress bool   `firestore:"requireShipAddress"`
}

type orderDocument struct {
	Number   string `firestore:"number,omitempty"`
	UserID   string `firestore:"userId,omitempty"`
	Currency string `firestore:"currency,omitempty"`

	State         string `firestore:"state"`
	PaymentState  string `firestore:"paymentState,omitempty"`
	ShipmentState string `firestore:"shipmentState,omitempty"`

	ItemTotal       string `firestore:"itemTotal"`
	AdjustmentTotal string `firestore:"adjustmentTotal"`
	PaymentTotal    string `firestore:"paymentTotal"`
	Total           string `firestore:"total"`

	Distributor    *enterpriseDocument     `firestore:"distributor,omitempty"`
	ShippingMethod *shippingMethodDocument `firestore:"shippingMethod,omitempty"`
	ShipAddress    *addressDocument        `firestore:"shipAddress,omitempty"`
	BillAddress    *addressDocument        `firestore:"billAddress,omitempty"`
	TaxZone        *taxZoneDocument        `firestore:"taxZone,omitempty"`

	LineItems    []lineItemDocument    `firestore:"lineItems,omitempty"`
	Shipments    []shipmentDocument    `firestore:"shipments,omitempty"`
	Payments     []paymentDocument     `firestore:"payments,omitempty"`
	Adjustments  []adjustmentDocument  `firestore:"adjustments,omitempty"`
	StateChanges []stateChangeDocument `firestore:"stateChanges,omitempty"`

	CompletedAt *time.Time `firestore:"completedAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt,omitempty"`
	UpdatedAt   time.Time  `firestore:"updatedAt,omitempty"`
}

func encodeOrder(order *domain.Order) orderDocument {
	doc := orderDocument{
		Number:          order.Number,
		UserID:          order.UserID,
		Currency:        order.Currency,
		State:           order.State,
		PaymentState:    order.PaymentState,
		ShipmentState:   order.ShipmentState,
		ItemTotal:       encodeMoney(order.ItemTotal),
		AdjustmentTotal: encodeMoney(order.AdjustmentTotal),
		PaymentTotal:    encodeMoney(order.PaymentTotal),
		Total:           encodeMoney(order.Total),
		ShipAddress:     encodeAddress(order.ShipAddress),
		BillAddress:     encodeAddress(order.BillAddress),
		TaxZone:         encodeTaxZone(order.TaxZone),
		CompletedAt:     order.CompletedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if order.Distributor != nil {
		doc.Distributor = &enterpriseDocument{
			ID:      order.Distributor.ID,
			Name:    order.Distributor.Name,
			Address: encodeAddress(order.Distributor.Address),
		}
	}
	if order.ShippingMethod != nil {
		doc.ShippingMethod = &shippingMethodDocument{
			ID:                 order.ShippingMethod.ID,
			Name:               order.ShippingMethod.Name,
			RequireShipAddress: order.ShippingMethod.RequireShipAddress,
		}
	}
	for _, li := range order.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocument{
			ID:       li.ID,
			Variant:  encodeVariant(li.Variant),
			Price:    encodeMoney(li.Price),
			Quantity: li.Quantity,
			Currency: li.Currency,
		})
	}
	doc.Shipments = encodeShipments(order.Shipments)
	for _, payment := range order.Payments {
		entry := paymentDocument{
			ID:        payment.ID,
			Amount:    encodeMoney(payment.Amount),
			State:     payment.State,
			CreatedAt: payment.CreatedAt,
		}
		if payment.PaymentMethod != nil {
			entry.PaymentMethod = payment.PaymentMethod.ID
		}
		doc.Payments = append(doc.Payments, entry)
	}
	doc.Adjustments = encodeAdjustments(order.Adjustments)
	doc.StateChanges = encodeStateChanges(order.StateChanges)
	return doc
}

func encodeShipments(shipments []*domain.Shipment) []shipmentDocument {
	var docs []shipmentDocument
	for _, shipment := range shipments {
		docs = append(docs, shipmentDocument{
			ID:          shipment.ID,
			State:       shipment.State,
			Backordered: shipment.Backordered,
			TrackingRef: shipment.TrackingRef,
		})
	}
	return docs
}

func encodeAdjustments(adjustments []*domain.Adjustment) []adjustmentDocument {
	var docs []adjustmentDocument
	for _, adjustment := range adjustments {
		entry := adjustmentDocument{
			ID:         adjustment.ID,
			Label:      adjustment.Label,
			Amount:     encodeMoney(adjustment.Amount),
			Eligible:   adjustment.Eligible,
			Mandatory:  adjustment.Mandatory,
			State:      string(adjustment.State),
			Adjustable: refDocument{Kind: string(adjustment.Adjustable.Kind), ID: adjustment.Adjustable.ID},
			CreatedAt:  adjustment.CreatedAt,
			UpdatedAt:  adjustment.UpdatedAt,
		}
		if !adjustment.IncludedTax.IsZero() {
			entry.IncludedTax = encodeMoney(adjustment.IncludedTax)
		}
		if adjustment.Origin.Kind != domain.OriginatorNone {
			entry.Origin = &refDocument{Kind: string(adjustment.Origin.Kind), ID: adjustment.Origin.ID}
		}
		if adjustment.SourceRef.Kind != "" {
			entry.Source = &refDocument{Kind: string(adjustment.SourceRef.Kind), ID: adjustment.SourceRef.ID}
		}
		docs = append(docs, entry)
	}
	return docs
}

func encodeStateChanges(changes []domain.StateChange) []stateChangeDocument {
	var docs []stateChangeDocument
	for _, change := range changes {
		docs = append(docs, stateChangeDocument{
			Name:          change.Name,
			PreviousState: change.PreviousState,
			NextState:     change.NextState,
			UserID:        change.UserID,
			CreatedAt:     change.CreatedAt,
		})
	}
	return docs
}

func decodeOrder(id string, doc orderDocument) (*domain.Order, error) {
	itemTotal, err := decodeMoney(doc.ItemTotal)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	adjustmentTotal, err := decodeMoney(doc.AdjustmentTotal)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	paymentTotal, err := decodeMoney(doc.PaymentTotal)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	total, err := decodeMoney(doc.Total)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	zone, err := decodeTaxZone(doc.TaxZone)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}

	order := &domain.Order{
		ID:              id,
		Number:          doc.Number,
		UserID:          doc.UserID,
		Currency:        doc.Currency,
		State:           doc.State,
		PaymentState:    doc.PaymentState,
		ShipmentState:   doc.ShipmentState,
		ItemTotal:       itemTotal,
		AdjustmentTotal: adjustmentTotal,
		PaymentTotal:    paymentTotal,
		Total:           total,
		ShipAddress:     decodeAddress(doc.ShipAddress),
		BillAddress:     decodeAddress(doc.BillAddress),
		TaxZone:         zone,
		CompletedAt:     doc.CompletedAt,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if doc.Distributor != nil {
		order.Distributor = &domain.Enterprise{
			ID:      doc.Distributor.ID,
			Name:    doc.Distributor.Name,
			Address: decodeAddress(doc.Distributor.Address),
		}
	}
	if doc.ShippingMethod != nil {
		order.ShippingMethod = &domain.ShippingMethod{
			ID:                 doc.ShippingMethod.ID,
			Name:               doc.ShippingMethod.Name,
			RequireShipAddress: doc.ShippingMethod.RequireShipAddress,
		}
	}
	for _, li := range doc.LineItems {
		price, err := decodeMoney(li.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s line item %s: %w", id, li.ID, err)
		}
		order.LineItems = append(order.LineItems, domain.LineItem{
			ID:       li.ID,
			OrderID:  id,
			Variant:  decodeVariant(li.Variant),
			Price:    price,
			Quantity: li.Quantity,
			Currency: li.Currency,
		})
	}
	for _, shipment := range doc.Shipments {
		order.Shipments = append(order.Shipments, &domain.Shipment{
			ID:          shipment.ID,
			OrderID:     id,
			State:       shipment.State,
			Backordered: shipment.Backordered,
			TrackingRef: shipment.TrackingRef,
		})
	}
	for _, payment := range doc.Payments {
		amount, err := decodeMoney(payment.Amount)
		if err != nil {
			return nil, fmt.Errorf("order %s payment %s: %w", id, payment.ID, err)
		}
		entry := &domain.Payment{
			ID:        payment.ID,
			OrderID:   id,
			Amount:    amount,
			State:     payment.State,
			CreatedAt: payment.CreatedAt,
		}
		if payment.PaymentMethod != "" {
			entry.PaymentMethod = &domain.PaymentMethod{ID: payment.PaymentMethod}
		}
		order.Payments = append(order.Payments, entry)
	}
	for _, adjustment := range doc.Adjustments {
		decoded, err := decodeAdjustment(id, adjustment)
		if err != nil {
			return nil, err
		}
		order.Adjustments = append(order.Adjustments, decoded)
	}
	for _, change := range doc.StateChanges {
		order.StateChanges = append(order.StateChanges, domain.StateChange{
			Name:          change.Name,
			PreviousState: change.PreviousState,
			NextState:     change.NextState,
			UserID:        change.UserID,
			CreatedAt:     change.CreatedAt,
		})
	}
	return order, nil
}

func decodeAdjustment(orderID string, doc adjustmentDocument) (*domain.Adjustment, error) {
	amount, err := decodeMoney(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("order %s adjustment %s: %w", orderID, doc.ID, err)
	}
	includedTax, err := decodeMoney(doc.IncludedTax)
	if err != nil {
		return nil, fmt.Errorf("order %s adjustment %s: %w", orderID, doc.ID, err)
	}
	adjustment := &domain.Adjustment{
		ID:          doc.ID,
		OrderID:     orderID,
		Label:       doc.Label,
		Amount:      amount,
		IncludedTax: includedTax,
		Eligible:    doc.Eligible,
		Mandatory:   doc.Mandatory,
		State:       domain.AdjustmentState(doc.State),
		Adjustable:  domain.AdjustableRef{Kind: domain.AdjustableKind(doc.Adjustable.Kind), ID: doc.Adjustable.ID},
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.Origin != nil {
		adjustment.Origin = domain.OriginatorRef{Kind: domain.OriginatorKind(doc.Origin.Kind), ID: doc.Origin.ID}
	}
	if doc.Source != nil {
		adjustment.SourceRef = domain.AdjustableRef{Kind: domain.AdjustableKind(doc.Source.Kind), ID: doc.Source.ID}
	}
	return adjustment, nil
}
