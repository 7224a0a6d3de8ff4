package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/checkout"
	"github.com/fjod/go_pizza/internal/domain"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	carts    *cart.Manager
	checkout *checkout.Service
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(carts *cart.Manager, svc *checkout.Service, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		checkout: svc,
		timeout:  timeout,
		log:      log,
	}
}

type QuoteResponseDTO struct {
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method"`
	checkout.Totals
	DisplayTotal string `json:"display_total"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var order *domain.Order
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		var err error
		order, err = h.checkout.SubmitOrder(ctx, c, req)
		return err
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/checkout/quote?delivery_method=
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	method := domain.DeliveryMethod(r.URL.Query().Get("delivery_method"))
	if method == "" {
		method = domain.DeliveryMethodDelivery
	}
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_delivery_method", "delivery_method must be delivery or pickup")
		return
	}

	var resp QuoteResponseDTO
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		t := h.checkout.Quote(c, method)
		resp = QuoteResponseDTO{
			DeliveryMethod: method,
			Totals:         t,
			DisplayTotal:   t.Total.StringFixed(2),
		}
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
