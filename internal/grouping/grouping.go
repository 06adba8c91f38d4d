// Package grouping folds successive pages of expenses into an ordered
// collection of groups.
//
// Group order is the order in which keys are first seen across pages, so
// it follows the server's page order. Only the members of a group are
// re-sorted when new records are merged in.
package grouping

import (
	"fmt"
	"slices"

	"expensebook/internal/core"
)

// Mode selects how expenses are bucketed.
type Mode int

const (
	// ByIdentity puts every record in its own group.
	ByIdentity Mode = iota
	// ByDay groups records sharing the same calendar date.
	ByDay
	// ByMonth groups records sharing the same year-month.
	ByMonth
)

// String implements fmt.Stringer
func (m Mode) String() string {
	switch m {
	case ByIdentity:
		return "identity"
	case ByDay:
		return "day"
	case ByMonth:
		return "month"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the String form of a mode. "none" is accepted for ByIdentity.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "identity", "none", "":
		return ByIdentity, nil
	case "day", "date":
		return ByDay, nil
	case "month":
		return ByMonth, nil
	}
	return 0, fmt.Errorf("unknown grouping mode %q", s)
}

// KeyFunc returns the group key of an expense. An empty key never merges.
type KeyFunc func(core.Expense) string

// KeyFunc returns the key function of the mode.
func (m Mode) KeyFunc() KeyFunc {
	switch m {
	case ByDay:
		return func(e core.Expense) string { return e.Date.String() }
	case ByMonth:
		return func(e core.Expense) string { return e.Date.Period().String() }
	default:
		return func(e core.Expense) string { return e.ID }
	}
}

// Group is a bucket of expenses sharing a key.
type Group struct {
	Key      string
	Expenses []core.Expense
}

// Total sums the amounts of the group's members.
func (g Group) Total() core.Money {
	var total core.Money
	for _, e := range g.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Fold merges one page into existing and returns the updated collection.
//
// With isFirstPage set, existing is ignored and the result depends on page
// alone. Records whose id is already a member of the target group replace
// that member instead of being appended. Fold reuses the storage of
// existing, so callers must not keep other references to it.
func Fold(existing []Group, page []core.Expense, key KeyFunc, sort core.SortKey, isFirstPage bool) []Group {
	var groups []Group
	if !isFirstPage {
		groups = existing
	}
	if len(page) == 0 {
		return groups
	}

	index := make(map[string]int, len(groups))
	for i, g := range groups {
		if g.Key != "" {
			index[g.Key] = i
		}
	}

	touched := map[int]struct{}{}
	for _, e := range page {
		k := key(e)
		i, ok := index[k]
		if !ok || k == "" {
			groups = append(groups, Group{Key: k})
			i = len(groups) - 1
			if k != "" {
				index[k] = i
			}
		}
		groups[i].Expenses = upsertMember(groups[i].Expenses, e)
		touched[i] = struct{}{}
	}

	for i := range touched {
		core.SortExpenses(groups[i].Expenses, sort)
	}
	return groups
}

func upsertMember(members []core.Expense, e core.Expense) []core.Expense {
	if e.ID != "" {
		for i := range members {
			if members[i].ID == e.ID {
				members[i] = e
				return members
			}
		}
	}
	return append(members, e)
}

// Resort re-applies sort to the members of every group; group order is kept.
func Resort(groups []Group, sort core.SortKey) {
	for i := range groups {
		core.SortExpenses(groups[i].Expenses, sort)
	}
}

// Clone returns a deep copy of groups.
func Clone(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = Group{Key: g.Key, Expenses: slices.Clone(g.Expenses)}
	}
	return out
}

// Count returns the number of expenses across all groups.
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Expenses)
	}
	return n
}
