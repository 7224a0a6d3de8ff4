package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/checkout"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/orders"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps domain and store errors to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func handleError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		verr *checkout.ValidationError
		serr *cart.StorageError
	)

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Error(),
			Code:    "validation_failed",
			Details: verr.Field,
		})
	case errors.Is(err, domain.ErrUnknownSize):
		respondError(w, http.StatusBadRequest, "unknown_size", err.Error())
	case errors.Is(err, domain.ErrUnknownTopping):
		respondError(w, http.StatusBadRequest, "unknown_topping", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		respondError(w, http.StatusBadRequest, "unavailable", err.Error())
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidCombo):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrComboNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, orders.ErrDuplicateOrder):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.As(err, &serr):
		log.Error("storage failure", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "storage is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("internal error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
