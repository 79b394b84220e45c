package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/domain/entities"
	"storefront/internal/usecase"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps usecase errors to HTTP statuses. Server-side failures are
// logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err)
	}
	writeJSON(w, status, errorResponse{Message: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, usecase.ErrAlreadyPaid),
		errors.Is(err, usecase.ErrPaymentClosed),
		errors.Is(err, usecase.ErrProductUnavailable),
		errors.Is(err, usecase.ErrInsufficientStock):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrTransactionMismatch):
		return http.StatusBadRequest, "invalid transaction"
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, usecase.ErrTestModeDisabled):
		return http.StatusNotFound, "test payments are disabled"
	case errors.Is(err, usecase.ErrConfiguration):
		return http.StatusInternalServerError, "payment gateway is not configured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// readBody reads a size-limited body, writing the error response itself.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Message: "request body too large"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "failed to read request body"})
		return nil, false
	}
	return body, true
}

// formValues reads named fields from a JSON object body or from form and
// query values, whichever the client sent.
func formValues(r *http.Request, names ...string) map[string]string {
	values := make(map[string]string, len(names))

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			for _, name := range names {
				if s, ok := body[name].(string); ok {
					values[name] = s
				}
			}
		}
		for _, name := range names {
			if values[name] == "" {
				values[name] = r.URL.Query().Get(name)
			}
		}
		return values
	}

	for _, name := range names {
		values[name] = r.FormValue(name)
	}
	return values
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, s entities.Settlement) {
	var target string
	switch s.Outcome {
	case entities.OutcomeSuccess:
		target = h.clientURL + "/payment/success?oid=" + url.QueryEscape(s.OrderID)
	case entities.OutcomePending:
		target = h.clientURL + "/payment/pending?oid=" + url.QueryEscape(s.OrderID)
	default:
		target = h.clientURL + "/payment/failure"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

var errUnknownPaymentRequest = errors.New("unknown payment request type")
