package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_pizza/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OutboxEvent struct {
	ID          int64
	AggregateID uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertOutboxEvent is run inside the transaction that changes the order,
// so the event is stored if and only if the change is.
func insertOutboxEvent(ctx context.Context, db execer, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		e.OrderID, e.Type, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetUnprocessedEvents returns up to limit pending events, oldest first.
func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM order_outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_outbox SET processed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

const (
	defaultRelayTick  = time.Second
	defaultRelayBatch = 100
)

// OutboxRelay forwards outbox events to the broker and marks them processed.
type OutboxRelay struct {
	store OutboxStore
	next  events.Publisher
	log   *zap.Logger
	tick  time.Duration
	batch int
}

func NewOutboxRelay(store OutboxStore, next events.Publisher, log *zap.Logger) *OutboxRelay {
	return &OutboxRelay{
		store: store,
		next:  next,
		log:   log,
		tick:  defaultRelayTick,
		batch: defaultRelayBatch,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents stops at the first failed publish so events of one
// order never overtake each other. It returns the number of events relayed.
func (r *OutboxRelay) processUnpublishedEvents(ctx context.Context) int {
	pending, err := r.store.GetUnprocessedEvents(ctx, r.batch)
	if err != nil {
		r.log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	relayed := 0
	for _, oe := range pending {
		var e events.Event
		if err := json.Unmarshal(oe.Payload, &e); err != nil {
			// a payload that cannot be decoded will never succeed; drop it
			r.log.Error("undecodable outbox event", zap.Int64("id", oe.ID), zap.Error(err))
			if err := r.store.MarkEventAsProcessed(ctx, oe.ID); err != nil {
				r.log.Error("failed to mark outbox event", zap.Int64("id", oe.ID), zap.Error(err))
				return relayed
			}
			continue
		}

		if err := r.next.Publish(ctx, e); err != nil {
			r.log.Warn("failed to relay outbox event",
				zap.Int64("id", oe.ID),
				zap.String("type", oe.EventType),
				zap.Error(err))
			return relayed
		}

		if err := r.store.MarkEventAsProcessed(ctx, oe.ID); err != nil {
			r.log.Error("failed to mark outbox event", zap.Int64("id", oe.ID), zap.Error(err))
			return relayed
		}
		relayed++
	}
	return relayed
}
