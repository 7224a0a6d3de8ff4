package cart

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("line not found in cart")

// Cart is the customer's in-progress selection for one session.
// Every mutating method writes the new state to Storage before it returns.
type Cart struct {
	sessionID string
	lines     []domain.CartLine
	createdAt time.Time
	storage   Storage

	newID func() string
	now   func() time.Time
}

type Option func(*Cart)

func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) { c.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(c *Cart) { c.now = fn }
}

// Open loads the saved cart for sessionID, or starts an empty one.
func Open(ctx context.Context, sessionID string, storage Storage, opts ...Option) (*Cart, error) {
	c := &Cart{
		sessionID: sessionID,
		storage:   storage,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	saved, err := storage.Load(ctx, sessionID)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	if saved != nil {
		c.lines = make([]domain.CartLine, len(saved.Lines))
		for i, l := range saved.Lines {
			c.lines[i] = l.Clone()
		}
		c.createdAt = saved.CreatedAt
	}
	if c.createdAt.IsZero() {
		c.createdAt = c.now()
	}
	return c, nil
}

func (c *Cart) SessionID() string { return c.sessionID }

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.Clone()
	}
	return out
}

// Snapshot returns the cart in its persisted form.
func (c *Cart) Snapshot() *domain.Cart {
	return &domain.Cart{
		SessionID: c.sessionID,
		Lines:     c.Lines(),
		CreatedAt: c.createdAt,
		UpdatedAt: c.now(),
	}
}

// AddLine merges line into an existing line with the same name, size and toppings,
// or appends it under a new id. The stored line is returned.
func (c *Cart) AddLine(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	line = line.Clone()
	line.Quantity = max(line.Quantity, 1)
	line.Toppings = domain.NormalizeToppings(line.Toppings)
	if line.Toppings == nil {
		line.Toppings = []string{}
	}
	// a line without modifiers is priced at its unit price; a line with
	// modifiers keeps its base even when that base is zero
	if line.Modifiers == nil && line.BaseUnitPrice.IsZero() {
		line.BaseUnitPrice = line.UnitPrice
	}

	var stored domain.CartLine
	err := c.mutate(ctx, func() error {
		key := line.MergeKey()
		for i := range c.lines {
			if c.lines[i].MergeKey() == key {
				c.lines[i].Quantity += line.Quantity
				stored = c.lines[i].Clone()
				return nil
			}
		}
		line.ID = c.newID()
		c.lines = append(c.lines, line)
		stored = line.Clone()
		return nil
	})
	return stored, err
}

// RemoveLine deletes the line with id. Removing an absent line is a no-op.
func (c *Cart) RemoveLine(ctx context.Context, id string) error {
	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	return c.mutate(ctx, func() error {
		c.lines = slices.Delete(c.lines, i, i+1)
		return nil
	})
}

// SetQuantity sets the quantity of a line, clamping it to at least 1.
func (c *Cart) SetQuantity(ctx context.Context, id string, quantity int) (domain.CartLine, error) {
	i := c.indexOf(id)
	if i < 0 {
		return domain.CartLine{}, ErrLineNotFound
	}
	err := c.mutate(ctx, func() error {
		c.lines[i].Quantity = max(quantity, 1)
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	return c.lines[i].Clone(), nil
}

// LineUpdate carries the fields of an edit; nil fields are left unchanged.
type LineUpdate struct {
	Size          *string
	Toppings      []string
	BaseUnitPrice *decimal.Decimal
	Quantity      *int
}

// UpdateLine applies an edit to a line and recomputes its unit price from the
// base price and the modifiers captured when the line was added.
func (c *Cart) UpdateLine(ctx context.Context, id string, upd LineUpdate) (domain.CartLine, error) {
	i := c.indexOf(id)
	if i < 0 {
		return domain.CartLine{}, ErrLineNotFound
	}

	line := c.lines[i].Clone()
	if upd.Size != nil {
		line.Size = *upd.Size
	}
	if upd.Toppings != nil {
		line.Toppings = domain.NormalizeToppings(upd.Toppings)
	}
	if upd.BaseUnitPrice != nil {
		line.BaseUnitPrice = *upd.BaseUnitPrice
	}
	if upd.Quantity != nil {
		line.Quantity = max(*upd.Quantity, 1)
	}
	if err := line.Reprice(); err != nil {
		return domain.CartLine{}, err
	}

	err := c.mutate(ctx, func() error {
		c.lines[i] = line
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	return line.Clone(), nil
}

// FilteredView yields copies of the lines matching f. The sequence reads the
// cart each time it is ranged over.
func (c *Cart) FilteredView(f Filter) iter.Seq[domain.CartLine] {
	return func(yield func(domain.CartLine) bool) {
		for _, l := range c.lines {
			if !f.matches(l) {
				continue
			}
			if !yield(l.Clone()) {
				return
			}
		}
	}
}

// TotalPrice is the sum of unit price times quantity over all lines.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, func() error {
		c.lines = nil
		return nil
	})
}

func (c *Cart) indexOf(id string) int {
	return slices.IndexFunc(c.lines, func(l domain.CartLine) bool { return l.ID == id })
}

// mutate applies fn and saves the result; on a failed save the previous lines are restored.
func (c *Cart) mutate(ctx context.Context, fn func() error) error {
	prev := c.Lines()
	if err := fn(); err != nil {
		c.lines = prev
		return err
	}
	if err := c.storage.Save(ctx, c.Snapshot()); err != nil {
		c.lines = prev
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}
