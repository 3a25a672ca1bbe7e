package domain

import "fmt"

// Category is a specificity tier for a keyword's queries.
type Category string

const (
	// CategoryGeneric covers broad, high-volume queries.
	CategoryGeneric Category = "generic"
	// CategorySpecific covers narrower queries about a concrete aspect.
	CategorySpecific Category = "specific"
	// CategoryNiche covers long-tail, expert-level queries.
	CategoryNiche Category = "niche"
)

// Categories returns the fixed processing order.
func Categories() []Category {
	return []Category{CategoryGeneric, CategorySpecific, CategoryNiche}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneric, CategorySpecific, CategoryNiche:
		return true
	default:
		return false
	}
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
