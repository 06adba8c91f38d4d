// Package criteria turns list filter/sort state into request criteria and
// the query strings the remote API understands.
package criteria

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"expensebook/internal/core"
)

// Query parameter names on the wire.
const (
	ParamPage        = "page"
	ParamSize        = "size"
	ParamSort        = "sort"
	ParamName        = "name"
	ParamCategoryIDs = "categoryIds"
	ParamYearMonth   = "yearMonth"
)

// Builder holds the current filter/sort state of one expense list.
// Every setter reports whether the state changed; a change means the
// list has to be reloaded from page 0.
type Builder struct {
	size        int
	sort        core.SortKey
	name        string
	categoryIDs []string
	period      core.Period
}

// NewBuilder creates a builder with the default sort and no filters.
func NewBuilder(pageSize int) *Builder {
	if pageSize <= 0 {
		pageSize = core.DefaultPageSize
	}
	return &Builder{size: pageSize, sort: core.DefaultSort}
}

// SetName sets the free-text name filter. Surrounding blanks are ignored.
func (b *Builder) SetName(name string) bool {
	name = strings.TrimSpace(name)
	if name == b.name {
		return false
	}
	b.name = name
	return true
}

// SetSort switches to one of the enumerated sort keys.
func (b *Builder) SetSort(k core.SortKey) (bool, error) {
	if !k.Valid() {
		return false, fmt.Errorf("%w: %q", core.ErrInvalidSort, k.String())
	}
	if k == b.sort {
		return false, nil
	}
	b.sort = k
	return true, nil
}

// SetCategoryIDs replaces the category filter. Blank and repeated ids are dropped.
func (b *Builder) SetCategoryIDs(ids []string) bool {
	clean := normalizeIDs(ids)
	if slices.Equal(clean, b.categoryIDs) {
		return false
	}
	b.categoryIDs = clean
	return true
}

// SetPeriod moves the month cursor to p. The zero period clears it.
func (b *Builder) SetPeriod(p core.Period) bool {
	if p == b.period {
		return false
	}
	b.period = p
	return true
}

// ShiftPeriod moves the month cursor by n months. Without a cursor it
// starts from the month of now.
func (b *Builder) ShiftPeriod(n int, now time.Time) bool {
	p := b.period
	if p.IsZero() {
		p = core.PeriodOf(now)
	}
	return b.SetPeriod(p.AddMonths(n))
}

// ClearPeriod removes the month filter.
func (b *Builder) ClearPeriod() bool {
	return b.SetPeriod(core.Period{})
}

// Sort returns the active sort key.
func (b *Builder) Sort() core.SortKey {
	return b.sort
}

// Period returns the month cursor, zero when unset.
func (b *Builder) Period() core.Period {
	return b.period
}

// Build returns the criteria for the given page.
func (b *Builder) Build(page int) core.ExpenseCriteria {
	return core.ExpenseCriteria{
		Page:        page,
		Size:        b.size,
		Sort:        b.sort,
		Name:        b.name,
		CategoryIDs: slices.Clone(b.categoryIDs),
		YearMonth:   b.period,
	}
}

// Encode renders expense criteria as query parameters. Empty filters are
// left out entirely.
func Encode(c core.ExpenseCriteria) url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(c.Page))
	v.Set(ParamSize, strconv.Itoa(sizeOrDefault(c.Size)))
	v.Set(ParamSort, sortOrDefault(c.Sort).String())
	if name := strings.TrimSpace(c.Name); name != "" {
		v.Set(ParamName, name)
	}
	for _, id := range normalizeIDs(c.CategoryIDs) {
		v.Add(ParamCategoryIDs, id)
	}
	if !c.YearMonth.IsZero() {
		v.Set(ParamYearMonth, c.YearMonth.String())
	}
	return v
}

// Decode parses expense criteria from query parameters. Missing values
// fall back to page 0, the default size and the default sort.
func Decode(v url.Values) (core.ExpenseCriteria, error) {
	page, size, err := decodePaging(v)
	if err != nil {
		return core.ExpenseCriteria{}, err
	}
	sort, err := core.ParseSortKey(v.Get(ParamSort))
	if err != nil {
		return core.ExpenseCriteria{}, err
	}
	c := core.ExpenseCriteria{
		Page:        page,
		Size:        size,
		Sort:        sort,
		Name:        strings.TrimSpace(v.Get(ParamName)),
		CategoryIDs: normalizeIDs(splitIDs(v[ParamCategoryIDs])),
	}
	if ym := strings.TrimSpace(v.Get(ParamYearMonth)); ym != "" {
		p, err := core.ParsePeriod(ym)
		if err != nil {
			return core.ExpenseCriteria{}, err
		}
		c.YearMonth = p
	}
	return c, nil
}

// EncodeCategories renders paged category criteria.
func EncodeCategories(c core.CategoryCriteria) url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(c.Page))
	v.Set(ParamSize, strconv.Itoa(sizeOrDefault(c.Size)))
	v.Set(ParamSort, sortOrDefault(c.Sort).String())
	if name := strings.TrimSpace(c.Name); name != "" {
		v.Set(ParamName, name)
	}
	return v
}

// DecodeCategories parses paged category criteria.
func DecodeCategories(v url.Values) (core.CategoryCriteria, error) {
	page, size, err := decodePaging(v)
	if err != nil {
		return core.CategoryCriteria{}, err
	}
	sort, err := core.ParseSortKey(v.Get(ParamSort))
	if err != nil {
		return core.CategoryCriteria{}, err
	}
	return core.CategoryCriteria{Page: page, Size: size, Sort: sort, Name: strings.TrimSpace(v.Get(ParamName))}, nil
}

// EncodeAll renders the sort and name of an unpaged listing.
func EncodeAll(sort core.SortKey, name string) url.Values {
	v := url.Values{}
	v.Set(ParamSort, sortOrDefault(sort).String())
	if name = strings.TrimSpace(name); name != "" {
		v.Set(ParamName, name)
	}
	return v
}

// DecodeAll parses the sort and name of an unpaged listing.
func DecodeAll(v url.Values) (core.SortKey, string, error) {
	sort, err := core.ParseSortKey(v.Get(ParamSort))
	if err != nil {
		return core.SortKey{}, "", err
	}
	return sort, strings.TrimSpace(v.Get(ParamName)), nil
}

func decodePaging(v url.Values) (page, size int, err error) {
	size = core.DefaultPageSize
	if s := strings.TrimSpace(v.Get(ParamPage)); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 0 {
			return 0, 0, &core.ValidationError{Field: ParamPage, Reason: fmt.Sprintf("must be a non-negative integer, got %q", s)}
		}
	}
	if s := strings.TrimSpace(v.Get(ParamSize)); s != "" {
		size, err = strconv.Atoi(s)
		if err != nil || size < 1 || size > core.MaxPageSize {
			return 0, 0, &core.ValidationError{Field: ParamSize, Reason: fmt.Sprintf("must be between 1 and %d, got %q", core.MaxPageSize, s)}
		}
	}
	return page, size, nil
}

func sizeOrDefault(size int) int {
	if size <= 0 {
		return core.DefaultPageSize
	}
	return size
}

func sortOrDefault(k core.SortKey) core.SortKey {
	if !k.Valid() {
		return core.DefaultSort
	}
	return k
}

// splitIDs accepts both repeated parameters and comma separated lists.
func splitIDs(raw []string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, strings.Split(r, ",")...)
	}
	return out
}

func normalizeIDs(ids []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
