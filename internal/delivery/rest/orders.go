package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront/internal/auth"
	"storefront/internal/domain/entities"
	"storefront/internal/usecase"
)

type createOrderRequest struct {
	Items []struct {
		Product  string           `json:"product"`
		Name     string           `json:"name"`
		Quantity int              `json:"quantity"`
		Price    *decimal.Decimal `json:"price"`
	} `json:"items"`
	CustomerInfo entities.CustomerInfo `json:"customerInfo"`
	Total        decimal.Decimal       `json:"total"`
}

type orderResponse struct {
	Order *entities.Order `json:"order"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := validateBody(h.schemas.createOrder, body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	in := usecase.CreateOrderInput{
		Items:    make([]usecase.ItemInput, len(req.Items)),
		Customer: req.CustomerInfo,
		Total:    req.Total,
	}
	for i, item := range req.Items {
		in.Items[i] = usecase.ItemInput{
			ProductID: item.Product,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	order, err := h.orders.CreateOrder(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderResponse{Order: order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*entities.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := validateBody(h.schemas.updateStatus, body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
