package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxQuantity = 99

// CatalogReader is the part of the catalog the cart needs to price new lines.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetCombo(ctx context.Context, id int64) (*domain.Combo, error)
}

type CartHandler struct {
	carts   *cart.Manager
	catalog CatalogReader
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(carts *cart.Manager, catalog CatalogReader, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64    `json:"product_id"`
	ComboID   int64    `json:"combo_id"`
	Size      string   `json:"size"`
	Toppings  []string `json:"toppings"`
	Quantity  int      `json:"quantity"`
}

type UpdateItemRequestDTO struct {
	Size     *string  `json:"size"`
	Toppings []string `json:"toppings"`
	Quantity *int     `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	ID          string             `json:"id"`
	ProductID   int64              `json:"product_id"`
	ProductName string             `json:"product_name"`
	Category    domain.Category    `json:"category"`
	DietaryType domain.DietaryType `json:"dietary_type"`
	Size        string             `json:"size,omitempty"`
	Toppings    []string           `json:"toppings"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	Quantity    int                `json:"quantity"`
	LineTotal   decimal.Decimal    `json:"line_total"`
	Image       string             `json:"image,omitempty"`
}

type CartResponseDTO struct {
	SessionID string        `json:"session_id"`
	Filter    cart.Filter   `json:"filter"`
	Lines     []CartLineDTO `json:"lines"`
	ItemCount int           `json:"item_count"`
	Total     string        `json:"total"`
}

func toLineDTO(l domain.CartLine) CartLineDTO {
	return CartLineDTO{
		ID:          l.ID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Category:    l.Category,
		DietaryType: l.DietaryType,
		Size:        l.Size,
		Toppings:    l.Toppings,
		UnitPrice:   l.UnitPrice,
		Quantity:    l.Quantity,
		LineTotal:   l.LineTotal(),
		Image:       l.ImageRef,
	}
}

// cartResponse renders the lines matching f. The total always covers the whole cart.
func cartResponse(c *cart.Cart, f cart.Filter) CartResponseDTO {
	resp := CartResponseDTO{
		SessionID: c.SessionID(),
		Filter:    f,
		Lines:     make([]CartLineDTO, 0, c.Len()),
		Total:     c.TotalPrice().StringFixed(2),
	}
	for l := range c.FilteredView(f) {
		resp.Lines = append(resp.Lines, toLineDTO(l))
		resp.ItemCount += l.Quantity
	}
	return resp
}

// GET /api/v1/cart?filter=
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := cart.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	var resp CartResponseDTO
	err = h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		resp = cartResponse(c, filter)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if (req.ProductID > 0) == (req.ComboID > 0) {
		respondError(w, http.StatusBadRequest, "invalid_item", "exactly one of product_id or combo_id must be set")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	line, err := h.buildLine(ctx, req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	var resp CartResponseDTO
	err = h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		if _, err := c.AddLine(ctx, line); err != nil {
			return err
		}
		resp = cartResponse(c, cart.FilterAll)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *CartHandler) buildLine(ctx context.Context, req AddItemRequestDTO) (domain.CartLine, error) {
	if req.ComboID > 0 {
		combo, err := h.catalog.GetCombo(ctx, req.ComboID)
		if err != nil {
			return domain.CartLine{}, err
		}
		members, err := h.comboMembers(ctx, combo)
		if err != nil {
			return domain.CartLine{}, err
		}
		return domain.NewComboLine(combo, members, req.Quantity)
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartLine{}, err
	}
	return domain.NewProductLine(product, req.Size, req.Toppings, req.Quantity)
}

// comboMembers skips products removed from the catalog after the combo was created.
func (h *CartHandler) comboMembers(ctx context.Context, combo *domain.Combo) ([]*domain.Product, error) {
	members := make([]*domain.Product, 0, len(combo.ProductIDs))
	for _, id := range combo.ProductIDs {
		p, err := h.catalog.GetProduct(ctx, id)
		if errors.Is(err, catalog.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		members = append(members, p)
	}
	return members, nil
}

// PATCH /api/v1/cart/items/{line_id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity != nil && (*req.Quantity < 1 || *req.Quantity > maxQuantity) {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	var resp CartResponseDTO
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		_, err := c.UpdateLine(ctx, lineID, cart.LineUpdate{
			Size:     req.Size,
			Toppings: req.Toppings,
			Quantity: req.Quantity,
		})
		if err != nil {
			return err
		}
		resp = cartResponse(c, cart.FilterAll)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// PUT /api/v1/cart/items/{line_id}/quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	var resp CartResponseDTO
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		if _, err := c.SetQuantity(ctx, lineID, req.Quantity); err != nil {
			return err
		}
		resp = cartResponse(c, cart.FilterAll)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "line_id")

	var resp CartResponseDTO
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		if err := c.RemoveLine(ctx, lineID); err != nil {
			return err
		}
		resp = cartResponse(c, cart.FilterAll)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var resp CartResponseDTO
	err := h.carts.With(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		if err := c.Clear(ctx); err != nil {
			return err
		}
		resp = cartResponse(c, cart.FilterAll)
		return nil
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
