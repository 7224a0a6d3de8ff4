package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryPizza Category = "pizza"
	CategoryDrink Category = "drink"
	CategoryCombo Category = "combo"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPizza, CategoryDrink, CategoryCombo:
		return true
	}
	return false
}

type DietaryType string

const (
	DietaryVegetarian    DietaryType = "vegetarian"
	DietaryNonVegetarian DietaryType = "non-vegetarian"
	DietaryBeverage      DietaryType = "beverage"
)

func (d DietaryType) Valid() bool {
	switch d {
	case DietaryVegetarian, DietaryNonVegetarian, DietaryBeverage:
		return true
	}
	return false
}

var (
	ErrUnknownSize    = errors.New("unknown size for this product")
	ErrUnknownTopping = errors.New("unknown topping for this product")
	ErrUnavailable    = errors.New("item is not available")
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidCombo   = errors.New("invalid combo")
)

// PriceModifiers holds the per-product surcharges for sizes and toppings.
// An empty table means the option is free and unrestricted.
type PriceModifiers struct {
	Sizes    map[string]decimal.Decimal `json:"sizes,omitempty" bson:"sizes,omitempty"`
	Toppings map[string]decimal.Decimal `json:"toppings,omitempty" bson:"toppings,omitempty"`
}

func (m *PriceModifiers) sizeSurcharge(size string) (decimal.Decimal, error) {
	if m == nil || len(m.Sizes) == 0 || size == "" {
		return decimal.Zero, nil
	}
	s, ok := m.Sizes[size]
	if !ok {
		return decimal.Zero, ErrUnknownSize
	}
	return s, nil
}

func (m *PriceModifiers) toppingSurcharge(topping string) (decimal.Decimal, error) {
	if m == nil || len(m.Toppings) == 0 {
		return decimal.Zero, nil
	}
	s, ok := m.Toppings[topping]
	if !ok {
		return decimal.Zero, ErrUnknownTopping
	}
	return s, nil
}

// Price returns base + size surcharge + the sum of topping surcharges.
func (m *PriceModifiers) Price(base decimal.Decimal, size string, toppings []string) (decimal.Decimal, error) {
	price, err := m.sizeSurcharge(size)
	if err != nil {
		return decimal.Zero, err
	}
	price = price.Add(base)
	for _, t := range toppings {
		s, err := m.toppingSurcharge(t)
		if err != nil {
			return decimal.Zero, err
		}
		price = price.Add(s)
	}
	return price, nil
}

// Clone returns a deep copy so cart lines never share maps with the catalog.
func (m *PriceModifiers) Clone() *PriceModifiers {
	if m == nil {
		return nil
	}
	c := &PriceModifiers{}
	if m.Sizes != nil {
		c.Sizes = make(map[string]decimal.Decimal, len(m.Sizes))
		for k, v := range m.Sizes {
			c.Sizes[k] = v
		}
	}
	if m.Toppings != nil {
		c.Toppings = make(map[string]decimal.Decimal, len(m.Toppings))
		for k, v := range m.Toppings {
			c.Toppings[k] = v
		}
	}
	return c
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Category    Category        `json:"category"`
	DietaryType DietaryType     `json:"dietary_type"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	Modifiers   *PriceModifiers `json:"modifiers,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	case !p.Category.Valid():
		return errors.Join(ErrInvalidProduct, errors.New("category must be pizza, drink or combo"))
	case !p.DietaryType.Valid():
		return errors.Join(ErrInvalidProduct, errors.New("dietary_type must be vegetarian, non-vegetarian or beverage"))
	case p.BasePrice.IsNegative():
		return errors.Join(ErrInvalidProduct, errors.New("base_price must not be negative"))
	}
	return nil
}

// Combo is a bundled offer over several catalog products at a reduced price.
type Combo struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ProductIDs  []int64         `json:"product_ids"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (c *Combo) Validate() error {
	switch {
	case c.Name == "":
		return errors.Join(ErrInvalidCombo, errors.New("name is required"))
	case len(c.ProductIDs) < 2:
		return errors.Join(ErrInvalidCombo, errors.New("a combo needs at least two products"))
	case !c.Price.IsPositive():
		return errors.Join(ErrInvalidCombo, errors.New("price must be positive"))
	}
	return nil
}
