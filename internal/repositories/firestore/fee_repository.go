package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/openfoodnet/api/internal/domain"
	pfirestore "github.com/openfoodnet/api/internal/platform/firestore"
)

const feeCollection = "enterpriseFees"

type feeDocument struct {
	EnterpriseID string `firestore:"enterpriseId"`
	Name         string `firestore:"name"`
	FeeType      string `firestore:"feeType"`

	CalculatorKind  string `firestore:"calculatorKind"`
	CalculatorPrefs struct {
		Amount         string `firestore:"amount,omitempty"`
		FlatPercent    string `firestore:"flatPercent,omitempty"`
		MinimalAmount  string `firestore:"minimalAmount,omitempty"`
		NormalAmount   string `firestore:"normalAmount,omitempty"`
		DiscountAmount string `firestore:"discountAmount,omitempty"`
	} `firestore:"calculatorPrefs"`

	TaxCategory         *taxCategoryDocument `firestore:"taxCategory,omitempty"`
	InheritsTaxCategory bool                 `firestore:"inheritsTaxCategory"`

	DeletedAt *time.Time `firestore:"deletedAt,omitempty"`
}

// FeeRepository persists the enterprise fee catalog.
type FeeRepository struct {
	base *pfirestore.BaseRepository[feeDocument]
}

// NewFeeRepository constructs a Firestore-backed enterprise fee repository.
func NewFeeRepository(provider *pfirestore.Provider) (*FeeRepository, error) {
	if provider == nil {
		return nil, errors.New("fee repository requires firestore provider")
	}
	return &FeeRepository{
		base: pfirestore.NewBaseRepository[feeDocument](provider, feeCollection, nil, nil),
	}, nil
}

// FindByID loads a fee. Soft-deleted fees resolve only when includeDeleted is
// set; adjustments created before the deletion still reference them.
func (r *FeeRepository) FindByID(ctx context.Context, feeID string, includeDeleted bool) (*domain.EnterpriseFee, error) {
	doc, err := r.base.Get(ctx, feeID)
	if err != nil {
		return nil, err
	}
	fee, err := decodeFee(doc.ID, doc.Data)
	if err != nil {
		return nil, err
	}
	if fee.Deleted() && !includeDeleted {
		return nil, pfirestore.WrapError("enterpriseFees.get",
			status.Errorf(codes.NotFound, "fee %s is deleted", feeID))
	}
	return fee, nil
}

// ListByEnterprise returns the live fees an enterprise charges.
func (r *FeeRepository) ListByEnterprise(ctx context.Context, enterpriseID string) ([]*domain.EnterpriseFee, error) {
	if strings.TrimSpace(enterpriseID) == "" {
		return nil, errors.New("fee repository: enterprise id is required")
	}
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("enterpriseId", "==", enterpriseID)
	})
	if err != nil {
		return nil, err
	}
	var fees []*domain.EnterpriseFee
	for _, doc := range docs {
		fee, err := decodeFee(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		if fee.Deleted() {
			continue
		}
		fees = append(fees, fee)
	}
	return fees, nil
}

// Upsert validates and writes a fee.
func (r *FeeRepository) Upsert(ctx context.Context, fee *domain.EnterpriseFee) error {
	if fee == nil || strings.TrimSpace(fee.ID) == "" {
		return errors.New("fee repository: fee with id is required")
	}
	if err := fee.Validate(); err != nil {
		return err
	}
	_, err := r.base.Set(ctx, fee.ID, encodeFee(fee))
	return err
}

// SoftDelete stamps the fee as deleted without removing the document.
func (r *FeeRepository) SoftDelete(ctx context.Context, feeID string) error {
	_, err := r.base.Update(ctx, feeID, []firestore.Update{
		{Path: "deletedAt", Value: time.Now().UTC()},
	})
	return err
}

func encodeFee(fee *domain.EnterpriseFee) feeDocument {
	doc := feeDocument{
		EnterpriseID:        fee.EnterpriseID,
		Name:                fee.Name,
		FeeType:             string(fee.FeeType),
		TaxCategory:         encodeTaxCategory(fee.TaxCategory),
		InheritsTaxCategory: fee.InheritsTaxCategory,
		DeletedAt:           fee.DeletedAt,
	}
	if fee.Calculator != nil {
		doc.CalculatorKind = string(fee.Calculator.Kind())
		prefs := fee.Calculator.Prefs()
		doc.CalculatorPrefs.Amount = encodeMoney(prefs.Amount)
		doc.CalculatorPrefs.FlatPercent = encodeMoney(prefs.FlatPercent)
		doc.CalculatorPrefs.MinimalAmount = encodeMoney(prefs.MinimalAmount)
		doc.CalculatorPrefs.NormalAmount = encodeMoney(prefs.NormalAmount)
		doc.CalculatorPrefs.DiscountAmount = encodeMoney(prefs.DiscountAmount)
	}
	return doc
}

func decodeFee(id string, doc feeDocument) (*domain.EnterpriseFee, error) {
	var prefs domain.CalculatorPrefs
	var err error
	if prefs.Amount, err = decodeMoney(doc.CalculatorPrefs.Amount); err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}
	if prefs.FlatPercent, err = decodeMoney(doc.CalculatorPrefs.FlatPercent); err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}
	if prefs.MinimalAmount, err = decodeMoney(doc.CalculatorPrefs.MinimalAmount); err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}
	if prefs.NormalAmount, err = decodeMoney(doc.CalculatorPrefs.NormalAmount); err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}
	if prefs.DiscountAmount, err = decodeMoney(doc.CalculatorPrefs.DiscountAmount); err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}

	calculator, err := domain.NewCalculator(domain.CalculatorKind(doc.CalculatorKind), prefs)
	if err != nil {
		return nil, fmt.Errorf("fee %s: %w", id, err)
	}
	return &domain.EnterpriseFee{
		ID:                  id,
		EnterpriseID:        doc.EnterpriseID,
		Name:                doc.Name,
		FeeType:             domain.FeeType(doc.FeeType),
		Calculator:          calculator,
		TaxCategory:         decodeTaxCategory(doc.TaxCategory),
		InheritsTaxCategory: doc.InheritsTaxCategory,
		DeletedAt:           doc.DeletedAt,
	}, nil
}
