package cart

import (
	"fmt"

	"github.com/fjod/go_pizza/internal/domain"
)

type Filter string

const (
	FilterAll           Filter = "all"
	FilterVegetarian    Filter = "vegetarian"
	FilterNonVegetarian Filter = "non-vegetarian"
	FilterDrinks        Filter = "drinks"
	FilterPizza         Filter = "pizza"
	FilterCombo         Filter = "combo"
)

// ParseFilter maps a query value to a Filter; an empty value means FilterAll.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := Filter(s)
	switch f {
	case FilterAll, FilterVegetarian, FilterNonVegetarian, FilterDrinks, FilterPizza, FilterCombo:
		return f, nil
	}
	return "", fmt.Errorf("unknown cart filter %q", s)
}

// matches reports whether line belongs to the filter. Unrecognised filters match nothing.
func (f Filter) matches(line domain.CartLine) bool {
	switch f {
	case FilterAll:
		return true
	case FilterVegetarian:
		return line.DietaryType == domain.DietaryVegetarian
	case FilterNonVegetarian:
		return line.DietaryType == domain.DietaryNonVegetarian
	case FilterDrinks:
		return line.Category == domain.CategoryDrink
	case FilterPizza:
		return line.Category == domain.CategoryPizza
	case FilterCombo:
		return line.Category == domain.CategoryCombo
	}
	return false
}
