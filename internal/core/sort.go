package core

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// SortField is a sortable expense or category attribute.
	SortField string

	// SortDirection represents sort order.
	SortDirection string

	// SortKey is the wire-level "field,direction" pair.
	SortKey struct {
		Field     SortField
		Direction SortDirection
	}
)

const (
	SortByCreatedAt SortField = "createdAt"
	SortByName      SortField = "name"
	SortByDate      SortField = "date"

	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

var (
	SortCreatedAtAsc  = SortKey{SortByCreatedAt, Asc}
	SortCreatedAtDesc = SortKey{SortByCreatedAt, Desc}
	SortNameAsc       = SortKey{SortByName, Asc}
	SortNameDesc      = SortKey{SortByName, Desc}
	SortDateAsc       = SortKey{SortByDate, Asc}
	SortDateDesc      = SortKey{SortByDate, Desc}
)

// DefaultSort is used when no sort key was chosen.
var DefaultSort = SortNameAsc

// SortKeys lists every accepted sort key in display order.
func SortKeys() []SortKey {
	return []SortKey{
		SortCreatedAtDesc, SortCreatedAtAsc,
		SortNameAsc, SortNameDesc,
		SortDateDesc, SortDateAsc,
	}
}

// ParseSortKey parses "field,direction". An empty string yields DefaultSort.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort, nil
	}
	field, dir, ok := strings.Cut(s, ",")
	if !ok {
		return SortKey{}, fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
	k := SortKey{Field: SortField(strings.TrimSpace(field)), Direction: SortDirection(strings.ToLower(strings.TrimSpace(dir)))}
	if !k.Valid() {
		return SortKey{}, fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
	return k, nil
}

// Valid reports whether k is one of the enumerated sort keys.
func (k SortKey) Valid() bool {
	return slices.Contains(SortKeys(), k)
}

// String returns the wire form, e.g. "name,asc".
func (k SortKey) String() string {
	return string(k.Field) + "," + string(k.Direction)
}

// Label is a human readable description of the sort key.
func (k SortKey) Label() string {
	switch k {
	case SortCreatedAtDesc:
		return "Created at (newest first)"
	case SortCreatedAtAsc:
		return "Created at (oldest first)"
	case SortNameAsc:
		return "Name (A-Z)"
	case SortNameDesc:
		return "Name (Z-A)"
	case SortDateDesc:
		return "Date (newest first)"
	case SortDateAsc:
		return "Date (oldest first)"
	}
	return k.String()
}

// CompareExpenses orders a and b by k. Equal keys compare as 0 so stable
// sorts keep arrival order.
func (k SortKey) CompareExpenses(a, b Expense) int {
	var c int
	switch k.Field {
	case SortByName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortByCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortByDate:
		c = a.Date.Compare(b.Date.Time)
	}
	if k.Direction == Desc {
		c = -c
	}
	return c
}

// CompareCategories orders categories by k. Date sorts fall back to creation time.
func (k SortKey) CompareCategories(a, b Category) int {
	var c int
	switch k.Field {
	case SortByName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if k.Direction == Desc {
		c = -c
	}
	return c
}

// SortExpenses sorts in place, stable for equal keys.
func SortExpenses(items []Expense, k SortKey) {
	slices.SortStableFunc(items, k.CompareExpenses)
}

// SortCategories sorts in place, stable for equal keys.
func SortCategories(items []Category, k SortKey) {
	slices.SortStableFunc(items, k.CompareCategories)
}
