package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month. The zero value means "no period".
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month t falls in.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a YYYY-MM token.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	ys, ms, ok := strings.Cut(s, "-")
	if !ok || len(ys) != 4 || len(ms) != 2 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: y, Month: time.Month(m)}, nil
}

// IsZero reports whether no period is set.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// String returns the YYYY-MM token, or "" for the zero period.
func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// AddMonths moves the period by n months (negative moves back).
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return PeriodOf(t)
}

// First returns the first day of the period.
func (p Period) First() Date {
	return NewDate(p.Year, int(p.Month), 1)
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}
