package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/openfoodnet/api/internal/domain"
	pfirestore "github.com/openfoodnet/api/internal/platform/firestore"
)

const taxRateCollection = "taxRates"

// TaxRateRepository reads the tax rate catalog.
type TaxRateRepository struct {
	base *pfirestore.BaseRepository[taxRateDocument]
}

// NewTaxRateRepository constructs a Firestore-backed tax rate repository.
func NewTaxRateRepository(provider *pfirestore.Provider) (*TaxRateRepository, error) {
	if provider == nil {
		return nil, errors.New("tax rate repository requires firestore provider")
	}
	return &TaxRateRepository{
		base: pfirestore.NewBaseRepository[taxRateDocument](provider, taxRateCollection, nil, nil),
	}, nil
}

// FindByID loads a single tax rate.
func (r *TaxRateRepository) FindByID(ctx context.Context, rateID string) (*domain.TaxRate, error) {
	doc, err := r.base.Get(ctx, rateID)
	if err != nil {
		return nil, err
	}
	return decodeTaxRate(doc.ID, doc.Data)
}

// ListByZone returns the rates configured for a tax zone.
func (r *TaxRateRepository) ListByZone(ctx context.Context, zoneID string) ([]*domain.TaxRate, error) {
	if strings.TrimSpace(zoneID) == "" {
		return nil, errors.New("tax rate repository: zone id is required")
	}
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("zoneId", "==", zoneID)
	})
	if err != nil {
		return nil, err
	}
	var rates []*domain.TaxRate
	for _, doc := range docs {
		rate, err := decodeTaxRate(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}
