package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/checkout"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type CatalogMock struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	combos   map[int64]*domain.Combo
	nextID   int64
	err      error
}

func newCatalogMock() *CatalogMock {
	return &CatalogMock{
		products: map[int64]*domain.Product{
			1: {
				ID: 1, Name: "Margherita", BasePrice: decimal.RequireFromString("12.99"),
				Category: domain.CategoryPizza, DietaryType: domain.DietaryVegetarian, Available: true,
				Modifiers: &domain.PriceModifiers{
					Sizes: map[string]decimal.Decimal{
						"small":  decimal.Zero,
						"medium": decimal.RequireFromString("2.00"),
						"large":  decimal.RequireFromString("4.00"),
					},
					Toppings: map[string]decimal.Decimal{
						"olives":       decimal.RequireFromString("1.00"),
						"extra cheese": decimal.RequireFromString("1.50"),
					},
				},
			},
			2: {
				ID: 2, Name: "Pepperoni", BasePrice: decimal.RequireFromString("15.99"),
				Category: domain.CategoryPizza, DietaryType: domain.DietaryNonVegetarian, Available: true,
			},
			5: {
				ID: 5, Name: "Cola", BasePrice: decimal.RequireFromString("2.49"),
				Category: domain.CategoryDrink, DietaryType: domain.DietaryBeverage, Available: true,
			},
			7: {
				ID: 7, Name: "Truffle Mushroom", BasePrice: decimal.RequireFromString("18.99"),
				Category: domain.CategoryPizza, DietaryType: domain.DietaryVegetarian, Available: false,
			},
		},
		combos: map[int64]*domain.Combo{
			1: {ID: 1, Name: "Pizza & Cola", ProductIDs: []int64{1, 5}, Price: decimal.RequireFromString("13.99"), Available: true},
		},
		nextID: 100,
	}
}

func (m *CatalogMock) ListProducts(_ context.Context, f catalog.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Product{}
	for _, p := range m.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.DietaryType != "" && p.DietaryType != f.DietaryType {
			continue
		}
		if f.AvailableOnly && !p.Available {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *CatalogMock) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *CatalogMock) CreateProduct(_ context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = p
	return nil
}

func (m *CatalogMock) UpdateProduct(_ context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *CatalogMock) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *CatalogMock) ListCombos(_ context.Context, availableOnly bool) ([]*domain.Combo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Combo{}
	for _, c := range m.combos {
		if availableOnly && !c.Available {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *CatalogMock) GetCombo(_ context.Context, id int64) (*domain.Combo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.combos[id]
	if !ok {
		return nil, catalog.ErrComboNotFound
	}
	return c, nil
}

func (m *CatalogMock) CreateCombo(_ context.Context, c *domain.Combo) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range c.ProductIDs {
		if _, ok := m.products[id]; !ok {
			return domain.ErrInvalidCombo
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.combos[c.ID] = c
	return nil
}

type memCartStorage struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	saveErr error
}

func newMemCartStorage() *memCartStorage {
	return &memCartStorage{carts: map[string]*domain.Cart{}}
}

func (s *memCartStorage) Load(_ context.Context, sessionID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[sessionID], nil
}

func (s *memCartStorage) Save(_ context.Context, c *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.carts[c.SessionID] = c
	return nil
}

func (s *memCartStorage) failSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

type OrdersCreatorMock struct {
	mu      sync.Mutex
	created []*domain.Order
}

func (m *OrdersCreatorMock) CreateOrder(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, o)
	return nil
}

type OrdersServiceMock struct {
	orders   map[uuid.UUID]*domain.Order
	lastList orders.OrderFilter
}

func (m *OrdersServiceMock) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (m *OrdersServiceMock) List(_ context.Context, f orders.OrderFilter) ([]*domain.Order, error) {
	m.lastList = f
	out := []*domain.Order{}
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *OrdersServiceMock) Patch(_ context.Context, id uuid.UUID, p orders.OrderPatch) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	if p.Status != nil && *p.Status != o.Status {
		if !domain.CanTransitionTo(o.Status, *p.Status) {
			return nil, domain.ErrIllegalTransition
		}
		o.Status = *p.Status
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	return o, nil
}

func (m *OrdersServiceMock) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	return m.Patch(ctx, id, orders.OrderPatch{Status: &status})
}

type testServer struct {
	handler  http.Handler
	catalog  *CatalogMock
	storage  *memCartStorage
	created  *OrdersCreatorMock
	orders   *OrdersServiceMock
	fixedNow time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := zaptest.NewLogger(t)
	ts := &testServer{
		catalog:  newCatalogMock(),
		storage:  newMemCartStorage(),
		created:  &OrdersCreatorMock{},
		orders:   &OrdersServiceMock{orders: map[uuid.UUID]*domain.Order{}},
		fixedNow: time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC),
	}

	carts := cart.NewManager(ts.storage)
	svc := checkout.NewService(ts.created, checkout.DefaultPricing(), log,
		checkout.WithClock(func() time.Time { return ts.fixedNow }))

	timeout := 5 * time.Second
	ts.handler = NewRouter(
		RouterConfig{RequestTimeout: timeout, MaxRequestBodySize: 1 << 20},
		Handlers{
			Products: NewProductHandler(ts.catalog, timeout, log),
			Cart:     NewCartHandler(carts, ts.catalog, timeout, log),
			Checkout: NewCheckoutHandler(carts, svc, timeout, log),
			Orders:   NewOrdersHandler(ts.orders, timeout, zap.NewNop()),
		},
		log,
	)
	return ts
}

// do sends a request as the given session and returns the recorder.
func (ts *testServer) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

var errBoom = errors.New("boom")
