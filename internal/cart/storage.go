package cart

import (
	"context"
	"fmt"

	"github.com/fjod/go_pizza/internal/domain"
)

// Storage persists a session's cart between requests.
// Load returns (nil, nil) when nothing was saved for the session yet.
type Storage interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
}

// StorageError reports a failed read or write of durable cart state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cart storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
