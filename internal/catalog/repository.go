package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrComboNotFound   = errors.New("combo not found")
)

// ProductFilter narrows ListProducts. Zero values match everything.
type ProductFilter struct {
	Category      domain.Category
	DietaryType   domain.DietaryType
	AvailableOnly bool
}

type Store interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListCombos(ctx context.Context, availableOnly bool) ([]*domain.Combo, error)
	GetCombo(ctx context.Context, id int64) (*domain.Combo, error)
	CreateCombo(ctx context.Context, c *domain.Combo) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const productColumns = `id, name, description, base_price, category, dietary_type, image, available, modifiers, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var modifiers sql.NullString
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.BasePrice,
		&p.Category,
		&p.DietaryType,
		&p.Image,
		&p.Available,
		&modifiers,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if modifiers.Valid && modifiers.String != "" {
		p.Modifiers = &domain.PriceModifiers{}
		if err := json.Unmarshal([]byte(modifiers.String), p.Modifiers); err != nil {
			return nil, fmt.Errorf("decode modifiers of product %d: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeModifiers(m *domain.PriceModifiers) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode modifiers: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (r *Repository) ListProducts(ctx context.Context, f ProductFilter) ([]*domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.DietaryType != "" {
		where = append(where, "dietary_type = ?")
		args = append(args, string(f.DietaryType))
	}
	if f.AvailableOnly {
		where = append(where, "available = 1")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	modifiers, err := encodeModifiers(p.Modifiers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, description, base_price, category, dietary_type, image, available, modifiers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.BasePrice.String(), string(p.Category), string(p.DietaryType),
		p.Image, p.Available, modifiers, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read product id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	modifiers, err := encodeModifiers(p.Modifiers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, base_price = ?, category = ?, dietary_type = ?,
		    image = ?, available = ?, modifiers = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.BasePrice.String(), string(p.Category), string(p.DietaryType),
		p.Image, p.Available, modifiers, now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	} else if n == 0 {
		return ErrProductNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	} else if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

const comboColumns = `id, name, description, product_ids, price, image, available, created_at`

func scanCombo(s scanner) (*domain.Combo, error) {
	c := &domain.Combo{}
	var productIDs string
	err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&productIDs,
		&c.Price,
		&c.Image,
		&c.Available,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(productIDs), &c.ProductIDs); err != nil {
		return nil, fmt.Errorf("decode product ids of combo %d: %w", c.ID, err)
	}
	return c, nil
}

func (r *Repository) ListCombos(ctx context.Context, availableOnly bool) ([]*domain.Combo, error) {
	query := "SELECT " + comboColumns + " FROM combos"
	if availableOnly {
		query += " WHERE available = 1"
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query combos: %w", err)
	}
	defer rows.Close()

	combos := []*domain.Combo{}
	for rows.Next() {
		c, err := scanCombo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combo: %w", err)
		}
		combos = append(combos, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return combos, nil
}

func (r *Repository) GetCombo(ctx context.Context, id int64) (*domain.Combo, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+comboColumns+" FROM combos WHERE id = ?", id)

	c, err := scanCombo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrComboNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get combo: %w", err)
	}
	return c, nil
}

// CreateCombo stores c after checking every referenced product exists.
func (r *Repository) CreateCombo(ctx context.Context, c *domain.Combo) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, id := range c.ProductIDs {
		var exists bool
		err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check product %d: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("%w: product %d does not exist", domain.ErrInvalidCombo, id)
		}
	}

	ids, err := json.Marshal(c.ProductIDs)
	if err != nil {
		return fmt.Errorf("encode product ids: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO combos (name, description, product_ids, price, image, available, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Description, string(ids), c.Price.String(), c.Image, c.Available, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert combo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read combo id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
