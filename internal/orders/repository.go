package orders

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this id already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	Status     domain.OrderStatus
	CustomerID string
}

// OrderPatch holds the admin-editable fields. Nil fields are left unchanged.
type OrderPatch struct {
	Status            *domain.OrderStatus
	Notes             *string
	EstimatedDelivery *time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error)
	// PatchOrder applies p and returns the updated order with the status it had before.
	PatchOrder(ctx context.Context, id uuid.UUID, p OrderPatch) (*domain.Order, domain.OrderStatus, error)
	RunMigrations(*Credentials) error
	Close() error
}
