package repositories

import (
	"context"

	domain "github.com/openfoodnet/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	EnterpriseFees() EnterpriseFeeRepository
	TaxRates() TaxRateRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order aggregates: the header plus its line items,
// payments, shipments, adjustments, and state-change audit trail.
type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	// SaveDerived writes recomputed totals, derived states, adjustments, and
	// audit entries in a single update guarded by the order's version; a stale
	// version must surface as a conflict.
	SaveDerived(ctx context.Context, order *domain.Order) error
}

// EnterpriseFeeRepository reads the fee catalog. Lookups that rebind
// originators on historical adjustments pass includeDeleted so soft-deleted
// fees still resolve.
type EnterpriseFeeRepository interface {
	FindByID(ctx context.Context, feeID string, includeDeleted bool) (*domain.EnterpriseFee, error)
	ListByEnterprise(ctx context.Context, enterpriseID string) ([]*domain.EnterpriseFee, error)
	Upsert(ctx context.Context, fee *domain.EnterpriseFee) error
	SoftDelete(ctx context.Context, feeID string) error
}

// TaxRateRepository reads the tax rate catalog.
type TaxRateRepository interface {
	FindByID(ctx context.Context, rateID string) (*domain.TaxRate, error)
	ListByZone(ctx context.Context, zoneID string) ([]*domain.TaxRate, error)
}

// HealthRepository verifies connectivity to the persistence layer.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
