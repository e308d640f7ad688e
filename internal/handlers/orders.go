package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/openfoodnet/api/internal/domain"
	"github.com/openfoodnet/api/internal/platform/httpx"
	"github.com/openfoodnet/api/internal/services"
)

type orderResponse struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Currency      string `json:"currency"`
	State         string `json:"state"`
	PaymentState  string `json:"payment_state,omitempty"`
	ShipmentState string `json:"shipment_state,omitempty"`

	ItemTotal       string `json:"item_total"`
	AdjustmentTotal string `json:"adjustment_total"`
	PaymentTotal    string `json:"payment_total"`
	Total           string `json:"total"`

	Adjustments []adjustmentResponse `json:"adjustments"`
}

type adjustmentResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Amount      string `json:"amount"`
	IncludedTax string `json:"included_tax"`
	State       string `json:"state"`
	Eligible    bool   `json:"eligible"`
}

type taxTotalResponse struct {
	RateID   string `json:"rate_id"`
	RateName string `json:"rate_name"`
	Amount   string `json:"amount"`
}

// OrderHandlers exposes the order recalculation endpoints.
type OrderHandlers struct {
	orders services.OrderUpdateService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderUpdateService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{orderID}/recalculate", h.recalculateOrder)
	r.Get("/{orderID}/taxes", h.orderTaxes)
}

func (h *OrderHandlers) recalculateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Recalculate(ctx, orderID)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandlers) orderTaxes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	totals, err := h.orders.TaxTotals(ctx, orderID)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	payload := make([]taxTotalResponse, 0, len(totals))
	for _, total := range totals {
		entry := taxTotalResponse{Amount: total.Amount.StringFixed(2)}
		if total.Rate != nil {
			entry.RateID = total.Rate.ID
			entry.RateName = total.Rate.Name
		}
		payload = append(payload, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"taxes": payload})
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently, retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
	}
}

func newOrderResponse(order *domain.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		Number:        order.Number,
		Currency:      order.Currency,
		State:         order.State,
		PaymentState:  order.PaymentState,
		ShipmentState: order.ShipmentState,

		ItemTotal:       order.ItemTotal.StringFixed(2),
		AdjustmentTotal: order.AdjustmentTotal.StringFixed(2),
		PaymentTotal:    order.PaymentTotal.StringFixed(2),
		Total:           order.Total.StringFixed(2),

		Adjustments: make([]adjustmentResponse, 0, len(order.Adjustments)),
	}
	for _, adjustment := range order.Adjustments {
		resp.Adjustments = append(resp.Adjustments, adjustmentResponse{
			ID:          adjustment.ID,
			Label:       adjustment.Label,
			Amount:      adjustment.Amount.StringFixed(2),
			IncludedTax: adjustment.IncludedTax.StringFixed(2),
			State:       string(adjustment.State),
			Eligible:    adjustment.Eligible,
		})
	}
	return resp
}
