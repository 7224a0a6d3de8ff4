package events

import (
	"context"
	"fmt"

	"github.com/fjod/go_pizza/internal/domain"
	"go.uber.org/zap"
)

// Notifier turns order events into customer-facing messages. Delivery is a log line.
type Notifier struct {
	log *zap.Logger
}

func NewNotifier(log *zap.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) Handle(_ context.Context, e Event) error {
	msg, err := notificationText(e)
	if err != nil {
		return err
	}
	n.log.Info("customer notified",
		zap.String("customer_id", e.CustomerID),
		zap.Stringer("order_id", e.OrderID),
		zap.String("message", msg))
	return nil
}

func notificationText(e Event) (string, error) {
	switch e.Type {
	case TypeOrderPlaced:
		return fmt.Sprintf("We received your order. Total: %s", e.Total.StringFixed(2)), nil
	case TypeOrderStatusChanged:
	default:
		return "", fmt.Errorf("unknown event type %q", e.Type)
	}

	switch e.Status {
	case domain.OrderStatusConfirmed:
		return "Your order is confirmed.", nil
	case domain.OrderStatusPreparing, domain.OrderStatusBaking:
		return "Your pizza is being made.", nil
	case domain.OrderStatusOutForDelivery:
		return "Your order is on its way.", nil
	case domain.OrderStatusDelivered:
		return "Your order was delivered. Enjoy!", nil
	case domain.OrderStatusCancelled:
		return "Your order was cancelled.", nil
	}
	return fmt.Sprintf("Your order is now %s.", e.Status), nil
}
