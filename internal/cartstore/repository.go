package cartstore

import (
	"context"
	"errors"

	"github.com/fjod/go_pizza/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the durable home of session carts.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
