package criteria

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"expensebook/internal/core"
)

func TestEncodeOmitsEmptyFilters(t *testing.T) {
	b := NewBuilder(2)
	b.SetName("   ")
	b.SetCategoryIDs([]string{})

	v := Encode(b.Build(0))
	for _, key := range []string{ParamName, ParamCategoryIDs, ParamYearMonth} {
		if _, present := v[key]; present {
			t.Fatalf("%s must be omitted, got %v", key, v)
		}
	}
	if v.Get(ParamPage) != "0" || v.Get(ParamSize) != "2" || v.Get(ParamSort) != "name,asc" {
		t.Fatalf("unexpected paging params: %v", v)
	}
}

func TestEncodeFilters(t *testing.T) {
	b := NewBuilder(10)
	b.SetName("  coffee ")
	b.SetCategoryIDs([]string{"c1", " ", "c2", "c1"})
	b.SetPeriod(core.Period{Year: 2024, Month: time.November})
	if _, err := b.SetSort(core.SortDateDesc); err != nil {
		t.Fatalf("SetSort: %v", err)
	}

	v := Encode(b.Build(3))
	if v.Get(ParamName) != "coffee" {
		t.Fatalf("name not trimmed: %q", v.Get(ParamName))
	}
	if got := v[ParamCategoryIDs]; len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("categoryIds = %v", got)
	}
	if v.Get(ParamYearMonth) != "2024-11" || v.Get(ParamSort) != "date,desc" || v.Get(ParamPage) != "3" {
		t.Fatalf("unexpected values: %v", v)
	}
}

func TestBuilderReportsChanges(t *testing.T) {
	b := NewBuilder(0)
	if !b.SetName("a") || b.SetName(" a ") {
		t.Fatalf("name change detection wrong")
	}
	if changed, _ := b.SetSort(core.SortNameAsc); changed {
		t.Fatalf("default sort should not count as change")
	}
	if _, err := b.SetSort(core.SortKey{Field: "amount", Direction: core.Asc}); !errors.Is(err, core.ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
	if b.Sort() != core.SortNameAsc {
		t.Fatalf("invalid sort must not be applied")
	}
	if !b.SetCategoryIDs([]string{"x"}) || b.SetCategoryIDs([]string{"x", "x"}) {
		t.Fatalf("category change detection wrong")
	}
	if b.Build(0).Size != core.DefaultPageSize {
		t.Fatalf("expected default page size")
	}
}

func TestShiftPeriod(t *testing.T) {
	now := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(5)
	b.ShiftPeriod(0, now)
	if b.Period().String() != "2024-11" {
		t.Fatalf("cursor should start at current month, got %s", b.Period())
	}
	b.ShiftPeriod(-1, now)
	if b.Period().String() != "2024-10" {
		t.Fatalf("expected 2024-10, got %s", b.Period())
	}
	if !b.ClearPeriod() || !b.Period().IsZero() {
		t.Fatalf("ClearPeriod failed")
	}
}

func TestBuildDoesNotAlias(t *testing.T) {
	b := NewBuilder(5)
	b.SetCategoryIDs([]string{"a"})
	c := b.Build(0)
	c.CategoryIDs[0] = "mutated"
	if b.Build(0).CategoryIDs[0] != "a" {
		t.Fatalf("Build must return a copy of the category ids")
	}
}

func TestDecode(t *testing.T) {
	v := url.Values{
		ParamPage:        {"2"},
		ParamSize:        {"25"},
		ParamSort:        {"createdAt,desc"},
		ParamName:        {" tea "},
		ParamCategoryIDs: {"a,b", "c"},
		ParamYearMonth:   {"2024-02"},
	}
	c, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Page != 2 || c.Size != 25 || c.Sort != core.SortCreatedAtDesc || c.Name != "tea" {
		t.Fatalf("unexpected criteria: %+v", c)
	}
	if len(c.CategoryIDs) != 3 || c.YearMonth.String() != "2024-02" {
		t.Fatalf("unexpected filters: %+v", c)
	}

	defaults, err := Decode(url.Values{})
	if err != nil || defaults.Page != 0 || defaults.Size != core.DefaultPageSize || defaults.Sort != core.DefaultSort {
		t.Fatalf("defaults: %+v err=%v", defaults, err)
	}

	bad := []url.Values{
		{ParamPage: {"-1"}},
		{ParamSize: {"0"}},
		{ParamSize: {"100000"}},
		{ParamSort: {"amount,asc"}},
		{ParamYearMonth: {"2024-13"}},
	}
	for i, q := range bad {
		if _, err := Decode(q); err == nil {
			t.Fatalf("case %d: expected error for %v", i, q)
		}
	}
}

func TestEncodeDecodeCategories(t *testing.T) {
	in := core.CategoryCriteria{Page: 1, Size: 5, Sort: core.SortCreatedAtAsc, Name: "fo"}
	out, err := DecodeCategories(EncodeCategories(in))
	if err != nil || out != in {
		t.Fatalf("got %+v err=%v, want %+v", out, err, in)
	}
	v := EncodeAll(core.SortKey{}, "")
	if v.Get(ParamSort) != core.DefaultSort.String() || v.Has(ParamName) {
		t.Fatalf("EncodeAll defaults: %v", v)
	}
}
