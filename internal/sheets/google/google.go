package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"expensebook/internal/core"
	ports "expensebook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column layout of the mirror sheet.
var header = []any{"ID", "Date", "Name", "Amount", "Category", "Synced At"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	now           func() time.Time
}

// Ensure interface conformance
var (
	_ ports.ExpenseAppender = (*Client)(nil)
	_ ports.ExpenseRemover  = (*Client)(nil)
)

// Config selects the spreadsheet and service account credentials. Inline
// JSON wins over the file; with neither GOOGLE_APPLICATION_CREDENTIALS is
// tried.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client for the configured spreadsheet.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesSheet: sheetName,
		now:           time.Now,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// EnsureHeader writes the header row when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:F1", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.expensesSheet, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.expensesSheet, err)
	}
	return nil
}

// Append adds e as a new row and returns the updated range.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e, c.now())}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// Remove clears every row whose ID column equals id.
func (c *Client) Remove(ctx context.Context, id string) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ids of %s: %w", c.expensesSheet, err)
	}
	rows := matchingRows(resp.Values, id)
	if len(rows) == 0 {
		return 0, nil
	}

	ranges := make([]string, len(rows))
	for i, r := range rows {
		ranges[i] = fmt.Sprintf("%s!A%d:F%d", c.expensesSheet, r, r)
	}
	_, err = c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: ranges}).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("clear rows of %s: %w", c.expensesSheet, err)
	}
	return len(rows), nil
}

// expenseRow renders e in the sheet column order. The amount is written in
// decimal form so USER_ENTERED parses it as a number.
func expenseRow(e core.Expense, syncedAt time.Time) []any {
	category := ""
	if e.Category != nil {
		category = e.Category.Name
	}
	return []any{
		e.ID,
		e.Date.String(),
		e.Name,
		e.Amount.String(),
		category,
		syncedAt.UTC().Format(time.RFC3339),
	}
}

// matchingRows returns the 1-based sheet rows whose first cell is id.
func matchingRows(values [][]any, id string) []int {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	var rows []int
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			rows = append(rows, i+1)
		}
	}
	return rows
}
