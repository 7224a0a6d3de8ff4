package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/fjod/go_pizza/internal/events"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const orderColumns = `id, customer_id, customer_name, customer_phone, lines, status,
	subtotal, delivery_fee, tax, total, delivery_method, delivery_address, payment_method,
	notes, created_at, estimated_delivery, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var order domain.Order
	var linesJSON []byte
	err := s.Scan(
		&order.ID,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerPhone,
		&linesJSON,
		&order.Status,
		&order.Subtotal,
		&order.DeliveryFee,
		&order.Tax,
		&order.Total,
		&order.DeliveryMethod,
		&order.DeliveryAddress,
		&order.PaymentMethod,
		&order.Notes,
		&order.CreatedAt,
		&order.EstimatedDelivery,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(linesJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &order, nil
}

// CreateOrder stores the order and its order.placed outbox event in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		order.CustomerName,
		order.CustomerPhone,
		linesJSON,
		string(order.Status),
		order.Subtotal,
		order.DeliveryFee,
		order.Tax,
		order.Total,
		string(order.DeliveryMethod),
		order.DeliveryAddress,
		string(order.PaymentMethod),
		order.Notes,
		order.CreatedAt,
		order.EstimatedDelivery,
		order.UpdatedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := insertOutboxEvent(ctx, tx, events.NewOrderEvent(events.TypeOrderPlaced, order, order.CreatedAt)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns matching orders, newest first.
func (r *Repository) ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// PatchOrder locks the row, checks the status move and writes the patch in one
// transaction. A status change also records an order.status_changed outbox event.
func (r *Repository) PatchOrder(ctx context.Context, id uuid.UUID, p OrderPatch) (*domain.Order, domain.OrderStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrOrderNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("lock order: %w", err)
	}

	previous := order.Status
	if p.Status != nil && *p.Status != order.Status {
		if !domain.CanTransitionTo(order.Status, *p.Status) {
			return nil, "", fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, order.Status, *p.Status)
		}
		order.Status = *p.Status
	}
	if p.Notes != nil {
		order.Notes = *p.Notes
	}
	if p.EstimatedDelivery != nil {
		order.EstimatedDelivery = *p.EstimatedDelivery
	}
	order.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, notes = $3, estimated_delivery = $4, updated_at = $5 WHERE id = $1`,
		order.ID, string(order.Status), order.Notes, order.EstimatedDelivery, order.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("update order: %w", err)
	}

	if order.Status != previous {
		e := events.NewOrderEvent(events.TypeOrderStatusChanged, order, order.UpdatedAt)
		if err := insertOutboxEvent(ctx, tx, e); err != nil {
			return nil, "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit order patch: %w", err)
	}
	return order, previous, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
