package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength is the longest name accepted for expenses and categories.
const MaxNameLength = 40

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// CategoryRef is the category summary embedded in an expense.
	CategoryRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Expense struct {
		ID        string       `json:"id,omitempty"`
		Name      string       `json:"name"`
		Amount    Money        `json:"amount"`
		Date      Date         `json:"date"`
		CreatedAt time.Time    `json:"createdAt"`
		Category  *CategoryRef `json:"category,omitempty"`
	}

	Category struct {
		ID             string    `json:"id,omitempty"`
		Name           string    `json:"name"`
		Color          string    `json:"color,omitempty"`
		CreatedAt      time.Time `json:"createdAt"`
		LastModifiedAt time.Time `json:"lastModifiedAt"`
	}

	// ExpenseUpsert creates an expense when ID is empty, updates it otherwise.
	ExpenseUpsert struct {
		ID         string `json:"id,omitempty"`
		Name       string `json:"name"`
		Amount     Money  `json:"amount"`
		Date       Date   `json:"date"`
		CategoryID string `json:"categoryId,omitempty"`
	}

	CategoryUpsert struct {
		ID    string `json:"id,omitempty"`
		Name  string `json:"name"`
		Color string `json:"color,omitempty"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("invalid date %q", s)}
	}
	return Date{Time: t}, nil
}

// String returns the YYYY-MM-DD form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Period returns the year-month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Full timestamps are accepted and truncated to the day.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Reason: err.Error()}
	}
	return e.Date.Validate()
}

// Ref returns the category reference of c.
func (c Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}

func (u ExpenseUpsert) Validate() error {
	if err := validateName(u.Name); err != nil {
		return err
	}
	if err := u.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Reason: err.Error()}
	}
	return u.Date.Validate()
}

func (u CategoryUpsert) Validate() error {
	return validateName(u.Name)
}

// Normalize trims user-entered text fields.
func (u ExpenseUpsert) Normalize() ExpenseUpsert {
	u.ID = strings.TrimSpace(u.ID)
	u.Name = strings.TrimSpace(u.Name)
	u.CategoryID = strings.TrimSpace(u.CategoryID)
	return u
}

// Normalize trims user-entered text fields.
func (u CategoryUpsert) Normalize() CategoryUpsert {
	u.ID = strings.TrimSpace(u.ID)
	u.Name = strings.TrimSpace(u.Name)
	u.Color = strings.TrimSpace(u.Color)
	return u
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: ErrEmptyName.Error()}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("name too long (max %d characters)", MaxNameLength)}
	}
	return nil
}

var (
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrEmptyName     = errors.New("name is required")
)
