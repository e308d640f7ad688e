package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/openfoodnet/api/internal/domain"
	"github.com/openfoodnet/api/internal/platform/httpx"
	"github.com/openfoodnet/api/internal/services"
)

const maxFeeBodySize = 16 * 1024

type upsertFeeRequest struct {
	EnterpriseID string `json:"enterprise_id"`
	Name         string `json:"name"`
	FeeType      string `json:"fee_type"`

	CalculatorKind  string            `json:"calculator_kind"`
	CalculatorPrefs map[string]string `json:"calculator_prefs"`

	TaxCategoryID       string `json:"tax_category_id"`
	TaxCategoryName     string `json:"tax_category_name"`
	TaxCategoryChanged  bool   `json:"tax_category_changed"`
	InheritsTaxCategory bool   `json:"inherits_tax_category"`

	AffectedOrderIDs []string `json:"affected_order_ids"`
}

type deleteFeeRequest struct {
	AffectedOrderIDs []string `json:"affected_order_ids"`
}

type feeResponse struct {
	ID                  string `json:"id"`
	EnterpriseID        string `json:"enterprise_id"`
	Name                string `json:"name"`
	FeeType             string `json:"fee_type"`
	CalculatorKind      string `json:"calculator_kind"`
	TaxCategoryID       string `json:"tax_category_id,omitempty"`
	InheritsTaxCategory bool   `json:"inherits_tax_category"`
	Deleted             bool   `json:"deleted"`
}

// AdminFeeHandlers exposes the enterprise fee catalog management endpoints.
type AdminFeeHandlers struct {
	fees services.FeeCatalogService
}

// NewAdminFeeHandlers constructs a new AdminFeeHandlers instance.
func NewAdminFeeHandlers(fees services.FeeCatalogService) *AdminFeeHandlers {
	return &AdminFeeHandlers{fees: fees}
}

// Routes registers the /admin fee endpoints.
func (h *AdminFeeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/enterprises/{enterpriseID}/fees", h.listFees)
	r.Put("/fees/{feeID}", h.upsertFee)
	r.Delete("/fees/{feeID}", h.deleteFee)
}

func (h *AdminFeeHandlers) listFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fees == nil {
		httpx.WriteError(ctx, w, httpx.NewError("fee_service_unavailable", "fee service unavailable", http.StatusServiceUnavailable))
		return
	}

	enterpriseID := strings.TrimSpace(chi.URLParam(r, "enterpriseID"))
	fees, err := h.fees.ListFees(ctx, enterpriseID)
	if err != nil {
		writeFeeError(w, r, err)
		return
	}

	payload := make([]feeResponse, 0, len(fees))
	for _, fee := range fees {
		payload = append(payload, newFeeResponse(fee))
	}
	writeJSON(w, http.StatusOK, map[string]any{"fees": payload})
}

func (h *AdminFeeHandlers) upsertFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fees == nil {
		httpx.WriteError(ctx, w, httpx.NewError("fee_service_unavailable", "fee service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req upsertFeeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeeBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON body", http.StatusBadRequest))
		return
	}

	calculator, err := buildCalculator(req.CalculatorKind, req.CalculatorPrefs)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	fee := &domain.EnterpriseFee{
		ID:                  strings.TrimSpace(chi.URLParam(r, "feeID")),
		EnterpriseID:        strings.TrimSpace(req.EnterpriseID),
		Name:                strings.TrimSpace(req.Name),
		FeeType:             domain.FeeType(strings.TrimSpace(req.FeeType)),
		Calculator:          calculator,
		InheritsTaxCategory: req.InheritsTaxCategory,
	}
	if id := strings.TrimSpace(req.TaxCategoryID); id != "" {
		fee.TaxCategory = &domain.TaxCategory{ID: id, Name: strings.TrimSpace(req.TaxCategoryName)}
	}

	saved, err := h.fees.UpsertFee(ctx, services.UpsertFeeCommand{
		Fee:                fee,
		TaxCategoryChanged: req.TaxCategoryChanged,
		AffectedOrderIDs:   req.AffectedOrderIDs,
	})
	if err != nil {
		writeFeeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeeResponse(saved))
}

func (h *AdminFeeHandlers) deleteFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fees == nil {
		httpx.WriteError(ctx, w, httpx.NewError("fee_service_unavailable", "fee service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req deleteFeeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeeBodySize)).Decode(&req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON body", http.StatusBadRequest))
			return
		}
	}

	err := h.fees.DeleteFee(ctx, services.DeleteFeeCommand{
		FeeID:            strings.TrimSpace(chi.URLParam(r, "feeID")),
		AffectedOrderIDs: req.AffectedOrderIDs,
	})
	if err != nil {
		writeFeeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildCalculator(kind string, prefs map[string]string) (domain.Calculator, error) {
	parsed := domain.CalculatorPrefs{}
	for key, raw := range prefs {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.New("calculator preference " + key + " must be a decimal string")
		}
		switch key {
		case "amount":
			parsed.Amount = value
		case "flat_percent":
			parsed.FlatPercent = value
		case "minimal_amount":
			parsed.MinimalAmount = value
		case "normal_amount":
			parsed.NormalAmount = value
		case "discount_amount":
			parsed.DiscountAmount = value
		default:
			return nil, errors.New("unknown calculator preference " + key)
		}
	}
	return domain.NewCalculator(domain.CalculatorKind(strings.TrimSpace(kind)), parsed)
}

func writeFeeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrFeeInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrFeeNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("fee_not_found", "enterprise fee not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "an affected order was modified concurrently, retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}

func newFeeResponse(fee *domain.EnterpriseFee) feeResponse {
	resp := feeResponse{
		ID:                  fee.ID,
		EnterpriseID:        fee.EnterpriseID,
		Name:                fee.Name,
		FeeType:             string(fee.FeeType),
		InheritsTaxCategory: fee.InheritsTaxCategory,
		Deleted:             fee.Deleted(),
	}
	if fee.Calculator != nil {
		resp.CalculatorKind = string(fee.Calculator.Kind())
	}
	if fee.TaxCategory != nil {
		resp.TaxCategoryID = fee.TaxCategory.ID
	}
	return resp
}
