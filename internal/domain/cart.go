package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one configured, priced item pending purchase. Pricing fields are
// copied from the catalog when the line is created and never track later edits.
type CartLine struct {
	ID            string          `json:"id" bson:"id"`
	ProductID     int64           `json:"product_id" bson:"product_id"`
	ProductName   string          `json:"product_name" bson:"product_name"`
	Category      Category        `json:"category" bson:"category"`
	DietaryType   DietaryType     `json:"dietary_type" bson:"dietary_type"`
	Size          string          `json:"size,omitempty" bson:"size,omitempty"`
	Toppings      []string        `json:"toppings" bson:"toppings"`
	UnitPrice     decimal.Decimal `json:"unit_price" bson:"unit_price"`
	Quantity      int             `json:"quantity" bson:"quantity"`
	ImageRef      string          `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	BaseUnitPrice decimal.Decimal `json:"base_unit_price" bson:"base_unit_price"`
	Modifiers     *PriceModifiers `json:"modifiers,omitempty" bson:"modifiers,omitempty"`
}

// MergeKey identifies lines that collapse into one when added to a cart.
type MergeKey struct {
	Name     string
	Size     string
	Toppings string
}

func (l CartLine) MergeKey() MergeKey {
	return MergeKey{
		Name:     l.ProductName,
		Size:     l.Size,
		Toppings: strings.Join(NormalizeToppings(l.Toppings), "\x00"),
	}
}

// NormalizeToppings returns a sorted copy without duplicates.
func NormalizeToppings(toppings []string) []string {
	out := slices.Clone(toppings)
	slices.Sort(out)
	return slices.Compact(out)
}

// Reprice recomputes UnitPrice from the base price and the line's own modifiers.
func (l *CartLine) Reprice() error {
	price, err := l.Modifiers.Price(l.BaseUnitPrice, l.Size, l.Toppings)
	if err != nil {
		return err
	}
	l.UnitPrice = price
	return nil
}

// LineTotal is UnitPrice x Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) Clone() CartLine {
	l.Toppings = slices.Clone(l.Toppings)
	l.Modifiers = l.Modifiers.Clone()
	return l
}

// NewProductLine snapshots a catalog product into a priced cart line.
func NewProductLine(p *Product, size string, toppings []string, quantity int) (CartLine, error) {
	if !p.Available {
		return CartLine{}, ErrUnavailable
	}
	line := CartLine{
		ProductID:     p.ID,
		ProductName:   p.Name,
		Category:      p.Category,
		DietaryType:   p.DietaryType,
		Size:          size,
		Toppings:      NormalizeToppings(toppings),
		Quantity:      max(quantity, 1),
		ImageRef:      p.Image,
		BaseUnitPrice: p.BasePrice,
		Modifiers:     p.Modifiers.Clone(),
	}
	if line.Toppings == nil {
		line.Toppings = []string{}
	}
	if err := line.Reprice(); err != nil {
		return CartLine{}, err
	}
	return line, nil
}

// NewComboLine snapshots a combo offer into a cart line. Combos carry no modifiers.
// members are the combo's products; they decide the line's dietary type.
func NewComboLine(c *Combo, members []*Product, quantity int) (CartLine, error) {
	if !c.Available {
		return CartLine{}, ErrUnavailable
	}
	return CartLine{
		ProductID:     c.ID,
		ProductName:   c.Name,
		Category:      CategoryCombo,
		DietaryType:   ComboDietaryType(members),
		Toppings:      []string{},
		UnitPrice:     c.Price,
		Quantity:      max(quantity, 1),
		ImageRef:      c.Image,
		BaseUnitPrice: c.Price,
	}, nil
}

// ComboDietaryType is non-vegetarian if any member is, vegetarian if the food
// members all are, and beverage for a drinks-only bundle. A combo with no
// known members counts as non-vegetarian.
func ComboDietaryType(members []*Product) DietaryType {
	dt := DietaryBeverage
	for _, p := range members {
		switch p.DietaryType {
		case DietaryNonVegetarian:
			return DietaryNonVegetarian
		case DietaryVegetarian:
			dt = DietaryVegetarian
		}
	}
	if len(members) == 0 {
		return DietaryNonVegetarian
	}
	return dt
}

// Cart is the persisted form of a session's cart.
type Cart struct {
	SessionID string     `json:"session_id" bson:"session_id"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
