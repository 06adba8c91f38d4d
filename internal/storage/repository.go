package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensebook/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// WithClock replaces the time source used for created/modified stamps.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const expenseColumns = `e.id, e.name, e.amount_cents, e.date, e.created_at, e.category_id, c.name`

const expenseFrom = ` FROM expenses e LEFT JOIN categories c ON c.id = e.category_id`

// ListExpenses returns one page of expenses matching c.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error) {
	if c.Size <= 0 {
		c.Size = core.DefaultPageSize
	}
	where, args := expenseFilter(c.Name, c.CategoryIDs, c.YearMonth)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total); err != nil {
		return core.Page[core.Expense]{}, fmt.Errorf("count expenses: %w", err)
	}

	q := `SELECT ` + expenseColumns + expenseFrom + where + expenseOrder(c.Sort) + ` LIMIT ? OFFSET ?`
	items, err := r.queryExpenses(ctx, q, append(args, c.Size, c.Offset())...)
	if err != nil {
		return core.Page[core.Expense]{}, err
	}
	return core.NewPage(items, c.Page, c.Size, total), nil
}

// AllExpenses returns every expense whose name matches.
func (r *SQLiteRepository) AllExpenses(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error) {
	where, args := expenseFilter(c.Name, nil, core.Period{})
	return r.queryExpenses(ctx, `SELECT `+expenseColumns+expenseFrom+where+expenseOrder(c.Sort), args...)
}

// GetExpense returns the expense with id or core.ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	items, err := r.queryExpenses(ctx, `SELECT `+expenseColumns+expenseFrom+` WHERE e.id = ?`, id)
	if err != nil {
		return core.Expense{}, err
	}
	if len(items) == 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return items[0], nil
}

// UpsertExpense inserts u when it has no id and updates it otherwise.
func (r *SQLiteRepository) UpsertExpense(ctx context.Context, u core.ExpenseUpsert) (core.Expense, error) {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return core.Expense{}, err
	}
	var category any
	if u.CategoryID != "" {
		if _, err := r.GetCategory(ctx, u.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Expense{}, &core.ValidationError{Field: "categoryId", Reason: "unknown category"}
			}
			return core.Expense{}, err
		}
		category = u.CategoryID
	}

	if u.ID == "" {
		id := uuid.NewString()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO expenses (id, name, amount_cents, date, created_at, category_id) VALUES (?, ?, ?, ?, ?, ?)`,
			id, u.Name, u.Amount.Cents, u.Date.String(), r.stamp(), category)
		if err != nil {
			return core.Expense{}, fmt.Errorf("insert expense: %w", err)
		}
		slog.InfoContext(ctx, "Expense saved to SQLite", "id", id, "name", u.Name, "amount_cents", u.Amount.Cents, "date", u.Date.String())
		return r.GetExpense(ctx, id)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount_cents = ?, date = ?, category_id = ? WHERE id = ?`,
		u.Name, u.Amount.Cents, u.Date.String(), category, u.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectRow(res, "expense", u.ID); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, u.ID)
}

// DeleteExpense removes the expense with id.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectRow(res, "expense", id)
}

const categoryColumns = `id, name, color, created_at, last_modified_at`

// ListCategories returns one page of categories.
func (r *SQLiteRepository) ListCategories(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error) {
	if c.Size <= 0 {
		c.Size = core.DefaultPageSize
	}
	where, args := nameFilter("name", c.Name)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`+where, args...).Scan(&total); err != nil {
		return core.Page[core.Category]{}, fmt.Errorf("count categories: %w", err)
	}
	q := `SELECT ` + categoryColumns + ` FROM categories` + where + categoryOrder(c.Sort) + ` LIMIT ? OFFSET ?`
	items, err := r.queryCategories(ctx, q, append(args, c.Size, c.Offset())...)
	if err != nil {
		return core.Page[core.Category]{}, err
	}
	return core.NewPage(items, c.Page, c.Size, total), nil
}

// AllCategories returns every category whose name matches.
func (r *SQLiteRepository) AllCategories(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error) {
	where, args := nameFilter("name", c.Name)
	return r.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories`+where+categoryOrder(c.Sort), args...)
}

// GetCategory returns the category with id or core.ErrNotFound.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	items, err := r.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	if err != nil {
		return core.Category{}, err
	}
	if len(items) == 0 {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return items[0], nil
}

// UpsertCategory inserts u when it has no id and updates it otherwise.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, u core.CategoryUpsert) (core.Category, error) {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return core.Category{}, err
	}
	now := r.stamp()
	if u.ID == "" {
		id := uuid.NewString()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO categories (id, name, color, created_at, last_modified_at) VALUES (?, ?, ?, ?, ?)`,
			id, u.Name, u.Color, now, now)
		if err != nil {
			return core.Category{}, fmt.Errorf("insert category: %w", err)
		}
		return r.GetCategory(ctx, id)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, last_modified_at = ? WHERE id = ?`,
		u.Name, u.Color, now, u.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := expectRow(res, "category", u.ID); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, u.ID)
}

// DeleteCategory removes the category; its expenses lose their category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectRow(res, "category", id)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, q string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e              core.Expense
			date, created  string
			catID, catName sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount.Cents, &date, &created, &catID, &catName); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("expense %s: parse created_at: %w", e.ID, err)
		}
		if catID.Valid {
			e.Category = &core.CategoryRef{ID: catID.String, Name: catName.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) queryCategories(ctx context.Context, q string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var (
			c                 core.Category
			created, modified string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &created, &modified); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("category %s: parse created_at: %w", c.ID, err)
		}
		if c.LastModifiedAt, err = time.Parse(timeLayout, modified); err != nil {
			return nil, fmt.Errorf("category %s: parse last_modified_at: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func nameFilter(column, name string) (string, []any) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	return ` WHERE ` + column + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(name) + "%"}
}

func expenseFilter(name string, categoryIDs []string, period core.Period) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if name = strings.TrimSpace(name); name != "" {
		conds = append(conds, `e.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(name)+"%")
	}
	if len(categoryIDs) > 0 {
		conds = append(conds, `e.category_id IN (`+strings.TrimSuffix(strings.Repeat("?,", len(categoryIDs)), ",")+`)`)
		for _, id := range categoryIDs {
			args = append(args, id)
		}
	}
	if !period.IsZero() {
		conds = append(conds, `substr(e.date, 1, 7) = ?`)
		args = append(args, period.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

// escapeLike makes user text match literally; LIKE is case-insensitive for ASCII.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func direction(k core.SortKey) string {
	if k.Direction == core.Desc {
		return " DESC"
	}
	return " ASC"
}

func expenseOrder(k core.SortKey) string {
	if !k.Valid() {
		k = core.DefaultSort
	}
	var col string
	switch k.Field {
	case core.SortByName:
		col = "e.name COLLATE NOCASE"
	case core.SortByDate:
		col = "e.date"
	default:
		col = "e.created_at"
	}
	return ` ORDER BY ` + col + direction(k) + `, e.created_at ASC, e.id ASC`
}

func categoryOrder(k core.SortKey) string {
	if !k.Valid() {
		k = core.DefaultSort
	}
	col := "created_at"
	if k.Field == core.SortByName {
		col = "name COLLATE NOCASE"
	}
	return ` ORDER BY ` + col + direction(k) + `, created_at ASC, id ASC`
}
