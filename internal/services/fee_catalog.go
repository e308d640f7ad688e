package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openfoodnet/api/internal/repositories"
)

// ErrFeeNotFound indicates the enterprise fee could not be located.
var ErrFeeNotFound = errors.New("enterprise fee: not found")

// ErrFeeInvalidInput indicates a fee command that fails validation.
var ErrFeeInvalidInput = errors.New("enterprise fee: invalid input")

// UpsertFeeCommand describes a fee catalog write. AffectedOrderIDs lists open
// orders carrying adjustments from this fee; they are recalculated after the
// write so their totals reflect the new configuration.
type UpsertFeeCommand struct {
	Fee                *EnterpriseFee
	TaxCategoryChanged bool
	AffectedOrderIDs   []string
}

// DeleteFeeCommand describes a fee soft deletion.
type DeleteFeeCommand struct {
	FeeID            string
	AffectedOrderIDs []string
}

// FeeCatalogService manages the enterprise fee catalog.
type FeeCatalogService interface {
	ListFees(ctx context.Context, enterpriseID string) ([]*EnterpriseFee, error)
	UpsertFee(ctx context.Context, cmd UpsertFeeCommand) (*EnterpriseFee, error)
	DeleteFee(ctx context.Context, cmd DeleteFeeCommand) error
}

// FeeCatalogServiceDeps bundles collaborators required to construct the fee catalog service.
type FeeCatalogServiceDeps struct {
	Fees         repositories.EnterpriseFeeRepository
	Recalculator OrderRecalculator
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type feeCatalogService struct {
	fees         repositories.EnterpriseFeeRepository
	recalculator OrderRecalculator
	logger       func(context.Context, string, map[string]any)
}

// NewFeeCatalogService wires dependencies into a concrete FeeCatalogService
// implementation.
func NewFeeCatalogService(deps FeeCatalogServiceDeps) (FeeCatalogService, error) {
	if deps.Fees == nil {
		return nil, errors.New("fee catalog service: enterprise fee repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &feeCatalogService{
		fees:         deps.Fees,
		recalculator: deps.Recalculator,
		logger:       logger,
	}, nil
}

// ListFees returns the live fees an enterprise charges.
func (s *feeCatalogService) ListFees(ctx context.Context, enterpriseID string) ([]*EnterpriseFee, error) {
	if strings.TrimSpace(enterpriseID) == "" {
		return nil, fmt.Errorf("%w: enterprise id is required", ErrFeeInvalidInput)
	}
	fees, err := s.fees.ListByEnterprise(ctx, enterpriseID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return fees, nil
}

// UpsertFee validates and writes the fee, then recalculates every affected
// order so adjustments referencing the fee pick up the new configuration.
func (s *feeCatalogService) UpsertFee(ctx context.Context, cmd UpsertFeeCommand) (*EnterpriseFee, error) {
	fee := cmd.Fee
	if fee == nil || strings.TrimSpace(fee.ID) == "" {
		return nil, fmt.Errorf("%w: fee with id is required", ErrFeeInvalidInput)
	}
	fee.NormalizeTaxCategory(cmd.TaxCategoryChanged)
	if err := fee.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeeInvalidInput, err)
	}

	err := s.recalculateAfter(ctx, cmd.AffectedOrderIDs, func(ctx context.Context) error {
		return s.fees.Upsert(ctx, fee)
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	s.logger(ctx, "fee.upserted", map[string]any{
		"fee_id":          fee.ID,
		"enterprise_id":   fee.EnterpriseID,
		"affected_orders": len(cmd.AffectedOrderIDs),
	})
	return fee, nil
}

// DeleteFee soft-deletes the fee and recalculates every affected order. The
// fee stays resolvable for historical adjustments.
func (s *feeCatalogService) DeleteFee(ctx context.Context, cmd DeleteFeeCommand) error {
	if strings.TrimSpace(cmd.FeeID) == "" {
		return fmt.Errorf("%w: fee id is required", ErrFeeInvalidInput)
	}
	err := s.recalculateAfter(ctx, cmd.AffectedOrderIDs, func(ctx context.Context) error {
		return s.fees.SoftDelete(ctx, cmd.FeeID)
	})
	if err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "fee.deleted", map[string]any{
		"fee_id":          cmd.FeeID,
		"affected_orders": len(cmd.AffectedOrderIDs),
	})
	return nil
}

func (s *feeCatalogService) recalculateAfter(ctx context.Context, orderIDs []string, mutate func(ctx context.Context) error) error {
	if s.recalculator != nil {
		return s.recalculator.RecalculateAfter(ctx, orderIDs, mutate)
	}
	return mutate(ctx)
}

func (s *feeCatalogService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrFeeNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("enterprise fee: repository unavailable: %w", err)
		}
	}
	return err
}
