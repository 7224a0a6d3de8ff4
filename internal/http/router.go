package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

func NewRouter(cfg RouterConfig, hs Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", hs.Products.List)
			r.Post("/", hs.Products.Create)
			r.Get("/{product_id}", hs.Products.Get)
			r.Put("/{product_id}", hs.Products.Update)
			r.Delete("/{product_id}", hs.Products.Delete)
		})
		r.Route("/combos", func(r chi.Router) {
			r.Get("/", hs.Products.ListCombos)
			r.Post("/", hs.Products.CreateCombo)
		})

		// shopper routes are scoped to the session
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", hs.Cart.GetCart)
				r.Delete("/", hs.Cart.ClearCart)
				r.Post("/items", hs.Cart.AddItem)
				r.Patch("/items/{line_id}", hs.Cart.UpdateItem)
				r.Put("/items/{line_id}/quantity", hs.Cart.UpdateQuantity)
				r.Delete("/items/{line_id}", hs.Cart.RemoveItem)
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", hs.Checkout.Submit)
				r.Get("/quote", hs.Checkout.Quote)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", hs.Orders.List)
			r.Get("/{order_id}", hs.Orders.Get)
			r.Patch("/{order_id}", hs.Orders.Patch)
			r.Put("/{order_id}/status", hs.Orders.UpdateStatus)
		})
	})

	return r
}
