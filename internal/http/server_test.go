package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expensebook/internal/core"
	"expensebook/internal/gateway/httpapi"
	"expensebook/internal/services"
	"expensebook/internal/storage"
)

type fixture struct {
	srv  *Server
	repo *storage.SQLiteRepository
}

func newFixture(t *testing.T, rpm int) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	srv := NewServer(":0", services.NewExpenseService(repo, nil), services.NewCategoryService(repo, nil), Options{RateLimitRPM: rpm, Ready: repo})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		repo.Close()
	})
	return &fixture{srv: srv, repo: repo}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rr.Body.String())
	}
	return body.Error
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, 100)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := f.do(t, http.MethodGet, "/healthz", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("middleware headers missing: %v", rr.Header())
	}
}

func TestExpenseEndpoints(t *testing.T) {
	f := newFixture(t, 100)

	rr := f.do(t, http.MethodPut, "/categories", `{"name":"Food"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("PUT /categories status=%d body=%s", rr.Code, rr.Body)
	}
	cats, _ := f.repo.AllCategories(context.Background(), core.AllCategoryCriteria{})
	catID := cats[0].ID

	for _, body := range []string{
		`{"name":"Coffee","amount":2.5,"date":"2024-01-03","categoryId":"` + catID + `"}`,
		`{"name":"Bus","amount":1.5,"date":"2024-01-04"}`,
		`{"name":"Rent","amount":800,"date":"2024-02-01"}`,
	} {
		if rr := f.do(t, http.MethodPut, "/expenses", body); rr.Code != http.StatusNoContent {
			t.Fatalf("PUT /expenses status=%d body=%s", rr.Code, rr.Body)
		}
	}

	rr = f.do(t, http.MethodGet, "/expenses?page=0&size=2&sort=date,asc&yearMonth=2024-01", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /expenses status=%d body=%s", rr.Code, rr.Body)
	}
	var page core.Page[core.Expense]
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 2 || !page.Last || len(page.Content) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Content[0].Name != "Coffee" || page.Content[0].Category == nil || page.Content[0].Amount.Cents != 250 {
		t.Errorf("unexpected first expense %+v", page.Content[0])
	}

	rr = f.do(t, http.MethodGet, "/expenses?categoryIds="+catID, "")
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil || page.TotalElements != 1 {
		t.Errorf("category filter: %+v err=%v", page, err)
	}

	rr = f.do(t, http.MethodGet, "/v2/expenses?sort=name,desc&name=u", "")
	var all []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Name != "Bus" {
		t.Errorf("unexpected unpaged list %+v", all)
	}

	rr = f.do(t, http.MethodDelete, "/expenses/"+page.Content[0].ID, "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("DELETE status=%d", rr.Code)
	}
	rr = f.do(t, http.MethodDelete, "/expenses/"+page.Content[0].ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second DELETE status=%d, want 404", rr.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t, 100)
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"invalid sort", http.MethodGet, "/expenses?sort=price,asc", "", http.StatusBadRequest},
		{"invalid period", http.MethodGet, "/expenses?yearMonth=2024-13", "", http.StatusBadRequest},
		{"invalid size", http.MethodGet, "/categories?size=0", "", http.StatusBadRequest},
		{"malformed body", http.MethodPut, "/expenses", `{"name":`, http.StatusBadRequest},
		{"two objects", http.MethodPut, "/expenses", `{"name":"a","date":"2024-01-01"}{}`, http.StatusBadRequest},
		{"empty name", http.MethodPut, "/expenses", `{"name":"  ","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPut, "/expenses", `{"name":"x","amount":-1,"date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPut, "/expenses", `{"name":"x","date":"2024-02-30"}`, http.StatusUnprocessableEntity},
		{"unknown category", http.MethodPut, "/expenses", `{"name":"x","date":"2024-01-01","categoryId":"nope"}`, http.StatusUnprocessableEntity},
		{"update missing expense", http.MethodPut, "/expenses", `{"id":"nope","name":"x","date":"2024-01-01"}`, http.StatusNotFound},
		{"delete missing category", http.MethodDelete, "/categories/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/expenses", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body %s)", rr.Code, tt.want, rr.Body)
			}
			if tt.want != http.StatusMethodNotAllowed && errorMessage(t, rr) == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestUnsupportedContentType(t *testing.T) {
	f := newFixture(t, 100)
	req := httptest.NewRequest(http.MethodPut, "/categories", strings.NewReader("name=Food"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status=%d, want 415", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 2)
	for i := 0; i < 2; i++ {
		if rr := f.do(t, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := f.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if _, rl := f.srv.Metrics(); rl.TotalHits != 1 {
		t.Errorf("TotalHits = %d, want 1", rl.TotalHits)
	}
}

// The gateway client and the server agree on the wire format.
func TestGatewayClientAgainstServer(t *testing.T) {
	f := newFixture(t, 1000)
	ts := httptest.NewServer(f.srv.Handler)
	defer ts.Close()

	client, err := httpapi.New(ts.URL, httpapi.Options{Timeout: 5 * time.Second, CategoryTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := client.UpsertCategory(ctx, core.CategoryUpsert{Name: "Travel", Color: "#00ff00"}); err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}
	cats, err := client.FetchAllCategories(ctx, core.AllCategoryCriteria{Sort: core.SortNameAsc})
	if err != nil || len(cats) != 1 {
		t.Fatalf("FetchAllCategories: %v %+v", err, cats)
	}

	for i, name := range []string{"Train", "Taxi", "Ferry"} {
		u := core.ExpenseUpsert{Name: name, Amount: core.Money{Cents: int64(100 * (i + 1))}, Date: core.NewDate(2024, 3, i+1), CategoryID: cats[0].ID}
		if err := client.UpsertExpense(ctx, u); err != nil {
			t.Fatalf("UpsertExpense(%s): %v", name, err)
		}
	}

	first, err := client.FetchExpensePage(ctx, core.ExpenseCriteria{Page: 0, Size: 2, Sort: core.SortNameAsc, CategoryIDs: []string{cats[0].ID}})
	if err != nil {
		t.Fatalf("FetchExpensePage: %v", err)
	}
	if first.Last || len(first.Content) != 2 || first.Content[0].Name != "Ferry" {
		t.Fatalf("unexpected first page %+v", first)
	}
	second, err := client.FetchExpensePage(ctx, core.ExpenseCriteria{Page: 1, Size: 2, Sort: core.SortNameAsc})
	if err != nil || !second.Last || len(second.Content) != 1 {
		t.Fatalf("unexpected second page %+v err=%v", second, err)
	}

	err = client.UpsertExpense(ctx, core.ExpenseUpsert{Name: "", Date: core.NewDate(2024, 3, 1)})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := client.DeleteCategory(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = client.FetchExpensePage(ctx, core.ExpenseCriteria{Size: core.MaxPageSize + 1})
	if !errors.Is(err, core.ErrTransport) {
		t.Errorf("a 400 should surface as a transport error, got %v", err)
	}
}
