// Package httpapi talks to the expense API over HTTP/JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"expensebook/internal/cache"
	"expensebook/internal/core"
	"expensebook/internal/criteria"
)

// Options configure a Client.
type Options struct {
	Timeout       time.Duration
	CategoryTTL   time.Duration
	CategorySlots int
	HTTPClient    *http.Client
}

// Client implements gateway.Gateway against the remote API. Unpaged
// category listings are cached until a category is written or the TTL
// runs out.
type Client struct {
	base       *url.URL
	http       *http.Client
	categories *cache.LRUCache[[]core.Category]
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CategoryTTL <= 0 {
		opts.CategoryTTL = 5 * time.Minute
	}
	if opts.CategorySlots <= 0 {
		opts.CategorySlots = 32
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = newHTTPClientWithPooling(opts.Timeout)
	}
	return &Client{
		base:       u,
		http:       hc,
		categories: cache.NewLRUCache[[]core.Category](opts.CategorySlots, opts.CategoryTTL),
	}, nil
}

// CategoryCache exposes the category cache so it can be registered for cleanup.
func (c *Client) CategoryCache() cache.Cleaner {
	return c.categories
}

// newHTTPClientWithPooling keeps connections to the API warm between page loads.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// FetchExpensePage implements gateway.ExpensePager
func (c *Client) FetchExpensePage(ctx context.Context, crit core.ExpenseCriteria) (core.Page[core.Expense], error) {
	var page core.Page[core.Expense]
	err := c.do(ctx, "fetch expenses", http.MethodGet, "/expenses", criteria.Encode(crit), nil, &page)
	if page.Content == nil {
		page.Content = []core.Expense{}
	}
	return page, err
}

// FetchAllExpenses implements gateway.ExpenseLister
func (c *Client) FetchAllExpenses(ctx context.Context, crit core.AllExpenseCriteria) ([]core.Expense, error) {
	out := []core.Expense{}
	err := c.do(ctx, "fetch all expenses", http.MethodGet, "/v2/expenses", criteria.EncodeAll(crit.Sort, crit.Name), nil, &out)
	return out, err
}

// UpsertExpense implements gateway.ExpenseWriter
func (c *Client) UpsertExpense(ctx context.Context, u core.ExpenseUpsert) error {
	return c.do(ctx, "upsert expense", http.MethodPut, "/expenses", nil, u, nil)
}

// DeleteExpense implements gateway.ExpenseWriter
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, "delete expense", http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil, nil)
}

// FetchCategoryPage implements gateway.CategoryPager
func (c *Client) FetchCategoryPage(ctx context.Context, crit core.CategoryCriteria) (core.Page[core.Category], error) {
	var page core.Page[core.Category]
	err := c.do(ctx, "fetch categories", http.MethodGet, "/categories", criteria.EncodeCategories(crit), nil, &page)
	if page.Content == nil {
		page.Content = []core.Category{}
	}
	return page, err
}

// FetchAllCategories implements gateway.CategoryLister
func (c *Client) FetchAllCategories(ctx context.Context, crit core.AllCategoryCriteria) ([]core.Category, error) {
	q := criteria.EncodeAll(crit.Sort, crit.Name)
	key := q.Encode()
	if cached, ok := c.categories.Get(key); ok {
		return append([]core.Category(nil), cached...), nil
	}
	out := []core.Category{}
	if err := c.do(ctx, "fetch all categories", http.MethodGet, "/v2/categories", q, nil, &out); err != nil {
		return nil, err
	}
	c.categories.Set(key, out)
	return append([]core.Category(nil), out...), nil
}

// UpsertCategory implements gateway.CategoryWriter
func (c *Client) UpsertCategory(ctx context.Context, u core.CategoryUpsert) error {
	defer c.categories.Clear()
	return c.do(ctx, "upsert category", http.MethodPut, "/categories", nil, u, nil)
}

// DeleteCategory implements gateway.CategoryWriter
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	defer c.categories.Clear()
	return c.do(ctx, "delete category", http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	slog.DebugContext(ctx, "API call", "component", "gateway", "operation", op,
		"status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError maps error responses. Validation and not-found responses keep
// their own sentinels so callers can tell them from transport failures.
func statusError(op string, resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, core.ErrNotFound)
	case http.StatusUnprocessableEntity:
		return &core.ValidationError{Field: "request", Reason: msg}
	}
	return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
}
