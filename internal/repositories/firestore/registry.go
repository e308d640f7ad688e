package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/openfoodnet/api/internal/platform/firestore"
	"github.com/openfoodnet/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	orders   *OrderRepository
	fees     *FeeRepository
	taxRates *TaxRateRepository
	health   *HealthRepository
}

// NewRegistry wires every repository onto a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires a provider")
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	fees, err := NewFeeRepository(provider)
	if err != nil {
		return nil, err
	}
	taxRates, err := NewTaxRateRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider: provider,
		orders:   orders,
		fees:     fees,
		taxRates: taxRates,
		health:   NewHealthRepository(provider),
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// EnterpriseFees returns the enterprise fee repository.
func (r *Registry) EnterpriseFees() repositories.EnterpriseFeeRepository { return r.fees }

// TaxRates returns the tax rate repository.
func (r *Registry) TaxRates() repositories.TaxRateRepository { return r.taxRates }

// Health returns the connectivity probe.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx runs fn directly. The engine's writes are single-document updates
// guarded by update-time preconditions, so there is nothing further for a
// transaction to protect.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// HealthRepository verifies Firestore connectivity.
type HealthRepository struct {
	provider *pfirestore.Provider
}

// NewHealthRepository constructs the probe.
func NewHealthRepository(provider *pfirestore.Provider) *HealthRepository {
	return &HealthRepository{provider: provider}
}

// Ping checks that a client can be obtained. Dialing is lazy, so the first
// ping also surfaces configuration problems.
func (h *HealthRepository) Ping(ctx context.Context) error {
	if h == nil || h.provider == nil {
		return errors.New("health repository not initialised")
	}
	_, err := h.provider.Client(ctx)
	return err
}
