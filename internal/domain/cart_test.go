package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func margherita() *Product {
	return &Product{
		ID:          1,
		Name:        "Margherita",
		BasePrice:   d("12.99"),
		Category:    CategoryPizza,
		DietaryType: DietaryVegetarian,
		Available:   true,
		Modifiers: &PriceModifiers{
			Sizes:    map[string]decimal.Decimal{"small": d("0"), "medium": d("3.00"), "large": d("5.00")},
			Toppings: map[string]decimal.Decimal{"olives": d("1.25"), "basil": d("0.75")},
		},
	}
}

func TestNewProductLine_PricesFromModifiers(t *testing.T) {
	line, err := NewProductLine(margherita(), "large", []string{"olives", "basil"}, 2)
	require.NoError(t, err)

	assert.True(t, d("19.99").Equal(line.UnitPrice), line.UnitPrice.String())
	assert.True(t, d("12.99").Equal(line.BaseUnitPrice))
	assert.Equal(t, []string{"basil", "olives"}, line.Toppings)
	assert.Equal(t, 2, line.Quantity)
}

func TestNewProductLine_SnapshotIsIndependent(t *testing.T) {
	p := margherita()
	line, err := NewProductLine(p, "medium", nil, 1)
	require.NoError(t, err)

	p.Modifiers.Sizes["medium"] = d("9.00")
	p.BasePrice = d("99")

	require.NoError(t, line.Reprice())
	assert.True(t, d("15.99").Equal(line.UnitPrice), line.UnitPrice.String())
}

func TestNewProductLine_UnknownOptions(t *testing.T) {
	_, err := NewProductLine(margherita(), "huge", nil, 1)
	assert.ErrorIs(t, err, ErrUnknownSize)

	_, err = NewProductLine(margherita(), "small", []string{"pineapple"}, 1)
	assert.ErrorIs(t, err, ErrUnknownTopping)
}

func TestNewProductLine_Unavailable(t *testing.T) {
	p := margherita()
	p.Available = false
	_, err := NewProductLine(p, "small", nil, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewProductLine_NoModifiers(t *testing.T) {
	cola := &Product{ID: 7, Name: "Cola", BasePrice: d("2.50"), Category: CategoryDrink, DietaryType: DietaryBeverage, Available: true}
	line, err := NewProductLine(cola, "", nil, 0)
	require.NoError(t, err)
	assert.True(t, d("2.50").Equal(line.UnitPrice))
	assert.Equal(t, 1, line.Quantity)
}

func TestMergeKey_IgnoresToppingOrderAndDuplicates(t *testing.T) {
	a := CartLine{ProductName: "Veggie", Size: "large", Toppings: []string{"olives", "peppers"}}
	b := CartLine{ProductName: "Veggie", Size: "large", Toppings: []string{"peppers", "olives", "olives"}}
	c := CartLine{ProductName: "Veggie", Size: "medium", Toppings: []string{"olives", "peppers"}}

	assert.Equal(t, a.MergeKey(), b.MergeKey())
	assert.NotEqual(t, a.MergeKey(), c.MergeKey())
}

func TestNewComboLine(t *testing.T) {
	combo := &Combo{ID: 3, Name: "Family Feast", ProductIDs: []int64{1, 2}, Price: d("29.99"), Available: true}
	pepperoni := &Product{ID: 2, Name: "Pepperoni", DietaryType: DietaryNonVegetarian}
	line, err := NewComboLine(combo, []*Product{margherita(), pepperoni}, 1)
	require.NoError(t, err)
	assert.Equal(t, CategoryCombo, line.Category)
	assert.Equal(t, DietaryNonVegetarian, line.DietaryType)
	assert.True(t, d("29.99").Equal(line.UnitPrice))

	combo.Available = false
	_, err = NewComboLine(combo, nil, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestComboDietaryType(t *testing.T) {
	veg := &Product{DietaryType: DietaryVegetarian}
	meat := &Product{DietaryType: DietaryNonVegetarian}
	drink := &Product{DietaryType: DietaryBeverage}

	tests := []struct {
		name    string
		members []*Product
		want    DietaryType
	}{
		{"pizza and cola", []*Product{veg, drink}, DietaryVegetarian},
		{"any meat", []*Product{veg, meat, drink}, DietaryNonVegetarian},
		{"drinks only", []*Product{drink, drink}, DietaryBeverage},
		{"no members", nil, DietaryNonVegetarian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComboDietaryType(tt.members))
		})
	}
}

func TestProductValidate(t *testing.T) {
	p := margherita()
	require.NoError(t, p.Validate())

	p.Name = ""
	assert.ErrorIs(t, p.Validate(), ErrInvalidProduct)

	p = margherita()
	p.BasePrice = d("-1")
	assert.ErrorIs(t, p.Validate(), ErrInvalidProduct)
}

func TestComboValidate(t *testing.T) {
	c := &Combo{Name: "Duo", ProductIDs: []int64{1}, Price: d("10")}
	assert.ErrorIs(t, c.Validate(), ErrInvalidCombo)
}
