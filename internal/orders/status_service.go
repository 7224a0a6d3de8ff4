package orders

import (
	"context"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusService applies admin edits to orders. The repository records the
// order.status_changed event together with the change.
type StatusService struct {
	repo OrderRepository
	log  *zap.Logger
}

func NewStatusService(repo OrderRepository, log *zap.Logger) *StatusService {
	return &StatusService{
		repo: repo,
		log:  log,
	}
}

func (s *StatusService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	return s.Patch(ctx, id, OrderPatch{Status: &status})
}

func (s *StatusService) Patch(ctx context.Context, id uuid.UUID, p OrderPatch) (*domain.Order, error) {
	order, previous, err := s.repo.PatchOrder(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if order.Status != previous {
		s.log.Info("order status changed",
			zap.Stringer("order_id", order.ID),
			zap.Stringer("from", previous),
			zap.Stringer("to", order.Status))
	}
	return order, nil
}

func (s *StatusService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *StatusService) List(ctx context.Context, f OrderFilter) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx, f)
}
