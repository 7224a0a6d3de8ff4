package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalog catalog.Store
	timeout time.Duration
	log     *zap.Logger
}

func NewProductHandler(store catalog.Store, timeout time.Duration, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: store,
		timeout: timeout,
		log:     log,
	}
}

type ProductRequestDTO struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	BasePrice   decimal.Decimal        `json:"base_price"`
	Category    domain.Category        `json:"category"`
	DietaryType domain.DietaryType     `json:"dietary_type"`
	Image       string                 `json:"image"`
	Available   *bool                  `json:"available"`
	Modifiers   *domain.PriceModifiers `json:"modifiers"`
}

func (d ProductRequestDTO) toProduct(id int64) *domain.Product {
	available := true
	if d.Available != nil {
		available = *d.Available
	}
	return &domain.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		BasePrice:   d.BasePrice,
		Category:    d.Category,
		DietaryType: d.DietaryType,
		Image:       d.Image,
		Available:   available,
		Modifiers:   d.Modifiers,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

type ComboRequestDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ProductIDs  []int64         `json:"product_ids"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Available   *bool           `json:"available"`
}

type CombosResponse struct {
	Combos []*domain.Combo `json:"combos"`
}

// GET /api/v1/products?category=&dietary=&available=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := catalog.ProductFilter{
		Category:    domain.Category(q.Get("category")),
		DietaryType: domain.DietaryType(q.Get("dietary")),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "category must be pizza, drink or combo")
		return
	}
	if filter.DietaryType != "" && !filter.DietaryType.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_dietary", "dietary must be vegetarian, non-vegetarian or beverage")
		return
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_available", "available must be true or false")
			return
		}
		filter.AvailableOnly = available
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	p := req.toProduct(0)
	if err := h.catalog.CreateProduct(ctx, p); err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/products/{product_id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.catalog.UpdateProduct(ctx, req.toProduct(id)); err != nil {
		handleError(w, h.log, err)
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/products/{product_id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(ctx, id); err != nil {
		handleError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/combos?available=
func (h *ProductHandler) ListCombos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	availableOnly := false
	if v := r.URL.Query().Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_available", "available must be true or false")
			return
		}
		availableOnly = b
	}

	combos, err := h.catalog.ListCombos(ctx, availableOnly)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, &CombosResponse{Combos: combos})
}

// POST /api/v1/combos
func (h *ProductHandler) CreateCombo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ComboRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c := &domain.Combo{
		Name:        req.Name,
		Description: req.Description,
		ProductIDs:  req.ProductIDs,
		Price:       req.Price,
		Image:       req.Image,
		Available:   req.Available == nil || *req.Available,
	}
	if err := h.catalog.CreateCombo(ctx, c); err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
