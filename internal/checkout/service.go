package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pizza/internal/cart"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderCreator persists a freshly submitted order together with its
// order.placed event.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
}

type Pricing struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
	DeliveryETA time.Duration
	PickupETA   time.Duration
}

func DefaultPricing() Pricing {
	return Pricing{
		DeliveryFee: decimal.RequireFromString("3.99"),
		TaxRate:     decimal.RequireFromString("0.08"),
		DeliveryETA: 45 * time.Minute,
		PickupETA:   20 * time.Minute,
	}
}

type Request struct {
	Customer       domain.CustomerInfo   `json:"customer"`
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  domain.PaymentMethod  `json:"payment_method"`
	Notes          string                `json:"notes,omitempty"`
}

// Totals is the price breakdown of a cart for one delivery method. Values are not rounded.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

type Service struct {
	orders  OrderCreator
	pricing Pricing
	log     *zap.Logger
	now     func() time.Time
	newID   func() uuid.UUID
}

type Option func(*Service)

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(orders OrderCreator, pricing Pricing, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		orders:  orders,
		pricing: pricing,
		log:     log,
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Quote(c *cart.Cart, method domain.DeliveryMethod) Totals {
	subtotal := c.TotalPrice()
	fee := decimal.Zero
	if method == domain.DeliveryMethodDelivery {
		fee = s.pricing.DeliveryFee
	}
	tax := subtotal.Mul(s.pricing.TaxRate)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       subtotal.Add(fee).Add(tax),
	}
}

// SubmitOrder turns the cart into a pending order and empties the cart.
// The caller must hold the cart's session lock.
func (s *Service) SubmitOrder(ctx context.Context, c *cart.Cart, req Request) (*domain.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	totals := s.Quote(c, req.DeliveryMethod)
	createdAt := s.now().UTC()
	eta := s.pricing.PickupETA
	address := ""
	if req.DeliveryMethod == domain.DeliveryMethodDelivery {
		eta = s.pricing.DeliveryETA
		address = req.Customer.Address.String()
	}

	order := &domain.Order{
		ID:                s.newID(),
		CustomerID:        c.SessionID(),
		CustomerName:      req.Customer.FullName(),
		CustomerPhone:     strings.TrimSpace(req.Customer.Phone),
		Lines:             c.Lines(),
		Status:            domain.OrderStatusPending,
		Subtotal:          totals.Subtotal,
		DeliveryFee:       totals.DeliveryFee,
		Tax:               totals.Tax,
		Total:             totals.Total,
		DeliveryMethod:    req.DeliveryMethod,
		DeliveryAddress:   address,
		PaymentMethod:     req.PaymentMethod,
		Notes:             orderNotes(req),
		CreatedAt:         createdAt,
		EstimatedDelivery: createdAt.Add(eta),
		UpdatedAt:         createdAt,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log := s.log.With(zap.Stringer("order_id", order.ID), zap.String("session_id", order.CustomerID))
	if err := c.Clear(ctx); err != nil {
		log.Error("order placed but cart was not cleared", zap.Error(err))
	}

	log.Info("order placed", zap.String("total", order.DisplayTotal()), zap.Int("lines", len(order.Lines)))
	return order, nil
}

func validate(req Request) error {
	cust := req.Customer
	switch {
	case blank(cust.FirstName):
		return missing("customer.first_name")
	case blank(cust.LastName):
		return missing("customer.last_name")
	case blank(cust.Phone):
		return missing("customer.phone")
	case !req.DeliveryMethod.Valid():
		return &ValidationError{Field: "delivery_method", Reason: "must be delivery or pickup"}
	}

	if req.DeliveryMethod == domain.DeliveryMethodDelivery {
		switch {
		case blank(cust.Address.Street):
			return missing("customer.address.street")
		case blank(cust.Address.City):
			return missing("customer.address.city")
		case blank(cust.Address.ZipCode):
			return missing("customer.address.zip_code")
		}
	}

	if !req.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method", Reason: "must be cash, card or online"}
	}
	return nil
}

func orderNotes(req Request) string {
	notes := strings.TrimSpace(req.Notes)
	instr := strings.TrimSpace(req.Customer.Address.Instructions)
	if req.DeliveryMethod != domain.DeliveryMethodDelivery || instr == "" {
		return notes
	}
	if notes == "" {
		return "Delivery: " + instr
	}
	return notes + "\nDelivery: " + instr
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
