// Package memory provides map-backed repositories with the same error and
// concurrency semantics as the Firestore implementations. They back unit
// tests and local development without an emulator.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/openfoodnet/api/internal/domain"
	"github.com/openfoodnet/api/internal/repositories"
)

// Error implements repositories.RepositoryError for the in-memory stores.
type Error struct {
	msg      string
	notFound bool
	conflict bool
}

func (e *Error) Error() string       { return e.msg }
func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return false }

func notFoundError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), notFound: true}
}

func conflictError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), conflict: true}
}

// Registry bundles the in-memory repositories.
type Registry struct {
	orders   *OrderRepository
	fees     *FeeRepository
	taxRates *TaxRateRepository
}

// NewRegistry constructs an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		orders:   NewOrderRepository(),
		fees:     NewFeeRepository(),
		taxRates: NewTaxRateRepository(),
	}
}

// Close implements repositories.Registry; nothing to release.
func (r *Registry) Close(context.Context) error { return nil }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// EnterpriseFees returns the enterprise fee repository.
func (r *Registry) EnterpriseFees() repositories.EnterpriseFeeRepository { return r.fees }

// TaxRates returns the tax rate repository.
func (r *Registry) TaxRates() repositories.TaxRateRepository { return r.taxRates }

// Health returns the connectivity probe, which always succeeds.
func (r *Registry) Health() repositories.HealthRepository { return healthProbe{} }

// RunInTx runs fn directly; the in-memory stores are individually locked.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type healthProbe struct{}

func (healthProbe) Ping(context.Context) error { return nil }

// OrderRepository stores order aggregates keyed by ID. Every read hands out a
// deep copy so callers can mutate freely, and every guarded write checks the
// version the caller loaded.
type OrderRepository struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	version int64
}

// NewOrderRepository constructs an empty order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*domain.Order)}
}

// Insert stores a new aggregate. Reinserting an existing ID conflicts.
func (r *OrderRepository) Insert(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return conflictError("order %s already exists", order.ID)
	}
	r.version++
	stored := cloneOrder(order)
	stored.Version = r.version
	r.orders[order.ID] = stored
	order.Version = r.version
	return nil
}

// FindByID returns a deep copy of the aggregate.
func (r *OrderRepository) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[orderID]
	if !ok {
		return nil, notFoundError("order %s not found", orderID)
	}
	return cloneOrder(stored), nil
}

// SaveDerived replaces the stored aggregate when the caller's version still
// matches, bumping the version on success.
func (r *OrderRepository) SaveDerived(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return notFoundError("order %s not found", order.ID)
	}
	if stored.Version != order.Version {
		return conflictError("order %s version %d is stale", order.ID, order.Version)
	}
	r.version++
	replacement := cloneOrder(order)
	replacement.Version = r.version
	replacement.UpdatedAt = time.Now().UTC()
	r.orders[order.ID] = replacement
	order.Version = r.version
	order.UpdatedAt = replacement.UpdatedAt
	return nil
}

// FeeRepository stores enterprise fees keyed by ID.
type FeeRepository struct {
	mu   sync.Mutex
	fees map[string]*domain.EnterpriseFee
}

// NewFeeRepository constructs an empty fee store.
func NewFeeRepository() *FeeRepository {
	return &FeeRepository{fees: make(map[string]*domain.EnterpriseFee)}
}

// FindByID resolves a fee; soft-deleted fees need includeDeleted.
func (r *FeeRepository) FindByID(_ context.Context, feeID string, includeDeleted bool) (*domain.EnterpriseFee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fee, ok := r.fees[feeID]
	if !ok {
		return nil, notFoundError("enterprise fee %s not found", feeID)
	}
	if fee.Deleted() && !includeDeleted {
		return nil, notFoundError("enterprise fee %s is deleted", feeID)
	}
	clone := *fee
	return &clone, nil
}

// ListByEnterprise returns the live fees an enterprise charges.
func (r *FeeRepository) ListByEnterprise(_ context.Context, enterpriseID string) ([]*domain.EnterpriseFee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fees []*domain.EnterpriseFee
	for _, fee := range r.fees {
		if fee.EnterpriseID != enterpriseID || fee.Deleted() {
			continue
		}
		clone := *fee
		fees = append(fees, &clone)
	}
	return fees, nil
}

// Upsert validates and stores a fee.
func (r *FeeRepository) Upsert(_ context.Context, fee *domain.EnterpriseFee) error {
	if err := fee.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *fee
	r.fees[fee.ID] = &clone
	return nil
}

// SoftDelete stamps the fee as deleted.
func (r *FeeRepository) SoftDelete(_ context.Context, feeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fee, ok := r.fees[feeID]
	if !ok {
		return notFoundError("enterprise fee %s not found", feeID)
	}
	now := time.Now().UTC()
	fee.DeletedAt = &now
	return nil
}

// TaxRateRepository stores tax rates keyed by ID.
type TaxRateRepository struct {
	mu    sync.Mutex
	rates map[string]*domain.TaxRate
}

// NewTaxRateRepository constructs an empty tax rate store.
func NewTaxRateRepository() *TaxRateRepository {
	return &TaxRateRepository{rates: make(map[string]*domain.TaxRate)}
}

// Upsert stores a rate.
func (r *TaxRateRepository) Upsert(_ context.Context, rate *domain.TaxRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *rate
	r.rates[rate.ID] = &clone
	return nil
}

// FindByID resolves a rate.
func (r *TaxRateRepository) FindByID(_ context.Context, rateID string) (*domain.TaxRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rate, ok := r.rates[rateID]
	if !ok {
		return nil, notFoundError("tax rate %s not found", rateID)
	}
	clone := *rate
	return &clone, nil
}

// ListByZone returns the rates configured for a zone.
func (r *TaxRateRepository) ListByZone(_ context.Context, zoneID string) ([]*domain.TaxRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rates []*domain.TaxRate
	for _, rate := range r.rates {
		if rate.ZoneID != zoneID {
			continue
		}
		clone := *rate
		rates = append(rates, &clone)
	}
	return rates, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order

	if order.ShipAddress != nil {
		address := *order.ShipAddress
		clone.ShipAddress = &address
	}
	if order.BillAddress != nil {
		address := *order.BillAddress
		clone.BillAddress = &address
	}
	if order.Distributor != nil {
		distributor := *order.Distributor
		if order.Distributor.Address != nil {
			address := *order.Distributor.Address
			distributor.Address = &address
		}
		clone.Distributor = &distributor
	}
	if order.ShippingMethod != nil {
		method := *order.ShippingMethod
		clone.ShippingMethod = &method
	}
	if order.TaxZone != nil {
		zone := *order.TaxZone
		zone.Rates = make([]*domain.TaxRate, len(order.TaxZone.Rates))
		for i, rate := range order.TaxZone.Rates {
			rateCopy := *rate
			zone.Rates[i] = &rateCopy
		}
		clone.TaxZone = &zone
	}

	clone.LineItems = append([]domain.LineItem(nil), order.LineItems...)
	clone.StateChanges = append([]domain.StateChange(nil), order.StateChanges...)

	clone.Shipments = make([]*domain.Shipment, len(order.Shipments))
	for i, shipment := range order.Shipments {
		shipmentCopy := *shipment
		clone.Shipments[i] = &shipmentCopy
	}
	clone.Payments = make([]*domain.Payment, len(order.Payments))
	for i, payment := range order.Payments {
		paymentCopy := *payment
		clone.Payments[i] = &paymentCopy
	}
	clone.Adjustments = make([]*domain.Adjustment, len(order.Adjustments))
	for i, adjustment := range order.Adjustments {
		adjustmentCopy := *adjustment
		// Live bindings do not survive persistence; callers rebind on load.
		adjustmentCopy.Originator = nil
		adjustmentCopy.Source = nil
		clone.Adjustments[i] = &adjustmentCopy
	}
	return &clone
}
