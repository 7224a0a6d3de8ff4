package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_pizza/internal/catalog"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestListProducts_SeededMenu(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background(), catalog.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 7)
	assert.Equal(t, "Margherita", products[0].Name)
}

func TestListProducts_Filters(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter catalog.ProductFilter
		want   int
	}{
		{"pizzas", catalog.ProductFilter{Category: domain.CategoryPizza}, 5},
		{"drinks", catalog.ProductFilter{Category: domain.CategoryDrink}, 2},
		{"vegetarian", catalog.ProductFilter{DietaryType: domain.DietaryVegetarian}, 3},
		{"available", catalog.ProductFilter{AvailableOnly: true}, 6},
		{"available vegetarian pizzas", catalog.ProductFilter{
			Category: domain.CategoryPizza, DietaryType: domain.DietaryVegetarian, AvailableOnly: true,
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, products, tt.want)
		})
	}
}

func TestListProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListProducts(ctx, catalog.ProductFilter{})
	require.Error(t, err)
}

func TestGetProduct_ReturnsProductWithModifiers(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Margherita", p.Name)
	assert.Equal(t, domain.CategoryPizza, p.Category)
	assert.Equal(t, domain.DietaryVegetarian, p.DietaryType)
	assert.True(t, p.Available)
	assert.Equal(t, "12.99", p.BasePrice.StringFixed(2))
	require.NotNil(t, p.Modifiers)

	price, err := p.Modifiers.Price(p.BasePrice, "large", []string{"olives"})
	require.NoError(t, err)
	assert.Equal(t, "17.99", price.StringFixed(2))
}

func TestGetProduct_NoModifiers(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), 6)
	require.NoError(t, err)
	assert.Nil(t, p.Modifiers)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCreateProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p := &domain.Product{
		Name:        "Hawaiian",
		Description: "Ham and pineapple",
		BasePrice:   decimal.RequireFromString("15.25"),
		Category:    domain.CategoryPizza,
		DietaryType: domain.DietaryNonVegetarian,
		Available:   true,
		Modifiers: &domain.PriceModifiers{
			Sizes: map[string]decimal.Decimal{"large": decimal.RequireFromString("4")},
		},
	}
	require.NoError(t, repo.CreateProduct(ctx, p))
	assert.NotZero(t, p.ID)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hawaiian", got.Name)
	assert.True(t, decimal.RequireFromString("15.25").Equal(got.BasePrice))
	require.NotNil(t, got.Modifiers)
	assert.True(t, decimal.RequireFromString("4").Equal(got.Modifiers.Sizes["large"]))
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestCreateProduct_Invalid(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.CreateProduct(context.Background(), &domain.Product{Name: "", Category: domain.CategoryPizza})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestUpdateProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, 2)
	require.NoError(t, err)
	p.BasePrice = decimal.RequireFromString("13.49")
	p.Available = false
	require.NoError(t, repo.UpdateProduct(ctx, p))

	got, err := repo.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "13.49", got.BasePrice.StringFixed(2))
	assert.False(t, got.Available)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	p := &domain.Product{
		ID: 999, Name: "Ghost", BasePrice: decimal.RequireFromString("1"),
		Category: domain.CategoryDrink, DietaryType: domain.DietaryBeverage,
	}
	assert.ErrorIs(t, repo.UpdateProduct(context.Background(), p), catalog.ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteProduct(ctx, 4))
	_, err := repo.GetProduct(ctx, 4)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, 4), catalog.ErrProductNotFound)
}

func TestListCombos(t *testing.T) {
	repo := setupTestDB(t)

	combos, err := repo.ListCombos(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, combos, 2)
	assert.Equal(t, []int64{1, 5}, combos[0].ProductIDs)
	assert.Equal(t, "13.99", combos[0].Price.StringFixed(2))
}

func TestGetCombo_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetCombo(context.Background(), 42)
	assert.ErrorIs(t, err, catalog.ErrComboNotFound)
}

func TestCreateCombo(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	c := &domain.Combo{
		Name:       "Date Night",
		ProductIDs: []int64{1, 2, 5},
		Price:      decimal.RequireFromString("27.50"),
		Available:  true,
	}
	require.NoError(t, repo.CreateCombo(ctx, c))

	got, err := repo.GetCombo(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Date Night", got.Name)
	assert.Equal(t, []int64{1, 2, 5}, got.ProductIDs)
}

func TestCreateCombo_UnknownProduct(t *testing.T) {
	repo := setupTestDB(t)

	c := &domain.Combo{
		Name:       "Broken",
		ProductIDs: []int64{1, 404},
		Price:      decimal.RequireFromString("9.99"),
	}
	err := repo.CreateCombo(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrInvalidCombo)
}
