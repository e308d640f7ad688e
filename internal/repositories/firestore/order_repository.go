package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/openfoodnet/api/internal/domain"
	pfirestore "github.com/openfoodnet/api/internal/platform/firestore"
)

const orderCollection = "orders"

// OrderRepository persists order aggregates as single Firestore documents.
// The aggregate is small and always read and written whole, which keeps the
// update cycle a one-document transaction.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base: pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
	}, nil
}

// Insert writes a new order aggregate.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order with id is required")
	}
	result, err := r.base.Set(ctx, order.ID, encodeOrder(order))
	if err != nil {
		return err
	}
	order.Version = result.UpdateTime.UnixNano()
	return nil
}

// FindByID loads the aggregate. The document's update time becomes the
// order's version for optimistic concurrency.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(doc.ID, doc.Data)
	if err != nil {
		return nil, err
	}
	order.Version = doc.UpdateTime.UnixNano()
	return order, nil
}

// SaveDerived writes the recomputed totals, derived states, adjustments, and
// audit trail in one update. The write is guarded by the version captured at
// load time; a concurrent write in between surfaces as a conflict.
func (r *OrderRepository) SaveDerived(ctx context.Context, order *domain.Order) error {
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order with id is required")
	}

	now := time.Now().UTC()
	updates := []firestore.Update{
		{Path: "paymentState", Value: order.PaymentState},
		{Path: "shipmentState", Value: order.ShipmentState},
		{Path: "itemTotal", Value: encodeMoney(order.ItemTotal)},
		{Path: "adjustmentTotal", Value: encodeMoney(order.AdjustmentTotal)},
		{Path: "paymentTotal", Value: encodeMoney(order.PaymentTotal)},
		{Path: "total", Value: encodeMoney(order.Total)},
		{Path: "shipments", Value: encodeShipments(order.Shipments)},
		{Path: "adjustments", Value: encodeAdjustments(order.Adjustments)},
		{Path: "stateChanges", Value: encodeStateChanges(order.StateChanges)},
		{Path: "updatedAt", Value: now},
	}
	if order.ShipAddress != nil {
		updates = append(updates, firestore.Update{Path: "shipAddress", Value: encodeAddress(order.ShipAddress)})
	}

	result, err := r.base.Update(ctx, order.ID, updates,
		firestore.LastUpdateTime(time.Unix(0, order.Version).UTC()))
	if err != nil {
		return err
	}
	order.UpdatedAt = now
	order.Version = result.UpdateTime.UnixNano()
	return nil
}
