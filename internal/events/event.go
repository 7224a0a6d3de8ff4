package events

import (
	"context"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the JSON payload written to the orders topic.
type Event struct {
	Type       string             `json:"type"`
	OrderID    uuid.UUID          `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Status     domain.OrderStatus `json:"status"`
	Total      decimal.Decimal    `json:"total"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewOrderEvent(typ string, o *domain.Order, at time.Time) Event {
	return Event{
		Type:       typ,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler reacts to a consumed event. A returned error is logged; the offset is still committed.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}
