package rest

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/entities"
)

type initiatePaymentRequest struct {
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
}

type testPaymentResponse struct {
	TestMode   bool              `json:"testMode"`
	PaymentURL string            `json:"paymentUrl"`
	FormData   map[string]string `json:"formData"`
}

type gatewayPaymentResponse struct {
	PaymentURL string            `json:"paymentUrl"`
	FormData   map[string]string `json:"formData"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := validateBody(h.schemas.initiatePayment, body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	var req initiatePaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	request, err := h.payments.InitiatePayment(r.Context(), req.OrderID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch p := request.(type) {
	case *entities.TestRedirect:
		writeJSON(w, http.StatusOK, testPaymentResponse{
			TestMode:   true,
			PaymentURL: p.URL,
			FormData: map[string]string{
				"orderId":         p.OrderID,
				"transactionUUID": p.TransactionID,
				"amount":          p.Amount,
			},
		})
	case *entities.GatewayForm:
		writeJSON(w, http.StatusOK, gatewayPaymentResponse{
			PaymentURL: p.URL,
			FormData:   p.Fields(),
		})
	default:
		h.writeError(w, r, errUnknownPaymentRequest)
	}
}

// completeTestPayment answers malformed requests with JSON and everything
// else with a browser redirect.
func (h *Handler) completeTestPayment(w http.ResponseWriter, r *http.Request) {
	values := formValues(r, "orderId", "transactionUUID")
	orderID, transactionID := values["orderId"], values["transactionUUID"]
	if orderID == "" || transactionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "orderId and transactionUUID are required"})
		return
	}

	order, err := h.payments.CompleteTestPayment(r.Context(), orderID, transactionID)
	if err != nil {
		status, _ := classify(err)
		if status == http.StatusNotFound {
			h.writeError(w, r, err)
			return
		}
		h.logger.Warn("Test payment not completed",
			"order_id", orderID,
			"request_id", requestIDFrom(r.Context()),
			"error", err)
		h.redirect(w, r, entities.Settlement{Outcome: entities.OutcomeFailure, OrderID: orderID})
		return
	}

	h.redirect(w, r, entities.Settlement{Outcome: entities.OutcomeSuccess, OrderID: order.ID})
}

func (h *Handler) gatewaySuccess(w http.ResponseWriter, r *http.Request) {
	data := formValues(r, "data")["data"]
	h.redirect(w, r, h.payments.HandleGatewaySuccess(r.Context(), data))
}

func (h *Handler) gatewayFailure(w http.ResponseWriter, r *http.Request) {
	data := formValues(r, "data")["data"]
	h.redirect(w, r, h.payments.HandleGatewayFailure(r.Context(), data))
}
