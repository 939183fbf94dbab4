package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"juicestand/internal/core"
	"juicestand/internal/memory"
	"juicestand/internal/notify"
	"juicestand/internal/records"
	"juicestand/internal/services"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *memory.Store
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	hub := notify.NewHub()
	cal := services.Calendar{Location: time.UTC, WeekStart: time.Monday, TrailingDays: 7, Now: func() time.Time { return testNow }}
	ledger := services.NewLedgerService(store, hub, services.WithCalendar(cal))
	reports := services.NewReportService(store, hub, services.WithReportCalendar(cal))
	t.Cleanup(reports.Close)

	s := NewServer(":0", ledger, reports, nil)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return &testEnv{store: store, server: s}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestServer_SaleLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sales", `{"bottles": 3, "bottleSize": "1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	sale := decode[saleView](t, rec)
	if sale.Date != "2024-03-10" || sale.PricePerBottle != "20.00" || sale.TotalIncome != "60.00" {
		t.Fatalf("unexpected sale %+v", sale)
	}

	rec = env.do(t, http.MethodGet, "/api/sales?date=2024-03-10", "")
	list := decode[daySalesView](t, rec)
	if len(list.Sales) != 1 || list.Tally.Bottles != 3 || list.Tally.Income != "60.00" {
		t.Fatalf("unexpected listing %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard", "")
	dash := decode[dashboardView](t, rec)
	if !dash.IsToday || dash.Day.Income != "60.00" || len(dash.Series) != 7 || dash.Next != "2024-03-10" {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	path := "/api/sales/" + jsonID(sale.ID)
	if rec := env.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/sales/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestServer_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
		field  string
	}{
		{"zero bottles", http.MethodPost, "/api/sales", `{"bottles":0}`, http.StatusUnprocessableEntity, ""},
		{"overflowing total", http.MethodPost, "/api/sales", `{"bottles":1000000000000,"price":"10000000"}`, http.StatusUnprocessableEntity, ""},
		{"total out of range", http.MethodPost, "/api/sales", `{"bottles":100000,"price":"1000000000000000"}`, http.StatusUnprocessableEntity, ""},
		{"bad size", http.MethodPost, "/api/sales", `{"bottles":1,"bottleSize":"3"}`, http.StatusUnprocessableEntity, "bottleSize"},
		{"bad category", http.MethodPost, "/api/expenses", `{"category":"rent","amount":"5"}`, http.StatusUnprocessableEntity, "category"},
		{"broken body", http.MethodPost, "/api/expenses", `{"category":`, http.StatusBadRequest, ""},
		{"bad date query", http.MethodGet, "/api/expenses?date=10-03-2024", "", http.StatusBadRequest, "date"},
		{"bad period", http.MethodGet, "/api/reports?period=yearly", "", http.StatusBadRequest, ""},
		{"wrong method", http.MethodPut, "/api/sales", `{}`, http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if tt.field != "" {
				if got := decode[errorBody](t, rec).Field; got != tt.field {
					t.Errorf("field = %q, want %q", got, tt.field)
				}
			}
		})
	}
	if sales, _ := env.store.ListSales(context.Background(), records.Filter{}); len(sales) != 0 {
		t.Fatalf("rejected sales were stored: %+v", sales)
	}
}

func TestServer_ExpensesAndInventory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/expenses", `{"category":"small_bottles","amount":"30","quantity":"100","description":"crate"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[expenseCreatedView](t, rec)
	if created.Movement == nil || created.Movement.Item != "small_bottles" || created.Expense.Amount != "30.00" {
		t.Fatalf("unexpected expense %+v", created)
	}

	env.do(t, http.MethodPost, "/api/expenses", `{"category":"transport","amount":"5.5"}`)
	env.do(t, http.MethodPost, "/api/sales", `{"bottles":4}`)

	list := decode[dayExpensesView](t, env.do(t, http.MethodGet, "/api/expenses", ""))
	if len(list.Expenses) != 2 || list.Total != "35.50" {
		t.Fatalf("unexpected expenses %+v", list)
	}

	inv := decode[inventoryView](t, env.do(t, http.MethodGet, "/api/inventory", ""))
	var found bool
	for _, item := range inv.Items {
		if item.Item == "small_bottles" {
			found = true
			if item.Remaining.String() != "96" || item.Unit != "bottles" {
				t.Errorf("unexpected small bottles %+v", item)
			}
		}
	}
	if !found {
		t.Fatalf("small bottles missing from %+v", inv)
	}

	path := "/api/expenses/" + jsonID(created.Expense.ID)
	if rec := env.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

type stockFailLedger struct {
	Ledger
}

func (stockFailLedger) AddExpense(context.Context, services.ExpenseInput) (services.ExpenseResult, error) {
	e := core.Expense{ID: 7, Date: core.NewDate(2024, 3, 10), Category: core.CategoryProduce, Amount: core.Money{Cents: 100}}
	return services.ExpenseResult{Expense: e}, errors.Join(services.ErrStockNotRecorded, errors.New("disk full"))
}

func TestServer_ExpenseSavedWithoutStock(t *testing.T) {
	env := newTestEnv(t)
	env.server.ledger = stockFailLedger{Ledger: env.server.ledger}

	rec := env.do(t, http.MethodPost, "/api/expenses", `{"category":"produce","amount":"1","quantity":"2"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[expenseCreatedView](t, rec)
	if body.Expense.ID != 7 || body.Warning == "" || body.Movement != nil {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestServer_ReportsAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/sales", `{"date":"2024-03-04","bottles":2}`)
	env.do(t, http.MethodPost, "/api/sales", `{"date":"2024-03-10","bottles":5}`)
	env.do(t, http.MethodPost, "/api/expenses", `{"date":"2024-02-20","category":"other","amount":"12"}`)

	report := decode[reportView](t, env.do(t, http.MethodGet, "/api/reports?period=monthly", ""))
	if len(report.Buckets) != 2 || report.Buckets[0].Label != "March 2024" || report.Totals.Profit != "58.00" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Best == nil || report.Best.Key != "2024-03-01" {
		t.Fatalf("unexpected best %+v", report.Best)
	}

	rec := env.do(t, http.MethodGet, "/api/reports/export?period=weekly", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "report-weekly-") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Week of") {
		t.Errorf("csv body missing week labels: %s", rec.Body)
	}
}

func TestServer_ClearAll(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/sales", `{"bottles":1}`)

	if rec := env.do(t, http.MethodDelete, "/api/data", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	dash := decode[dashboardView](t, env.do(t, http.MethodGet, "/api/dashboard", ""))
	if dash.AllTime.Income != "0.00" || dash.AllTime.Bottles != 0 {
		t.Fatalf("dashboard not cleared: %+v", dash.AllTime)
	}
}

func TestServer_RateLimitsWrites(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < writeLimit; i++ {
		if rec := env.do(t, http.MethodPost, "/api/sales", `{"bottles":1}`); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/sales", `{"bottles":1}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/sales", ""); rec.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rec.Code)
	}
	if hits := env.server.metrics.snapshot()["rate_limit_hits"]; hits != 1 {
		t.Errorf("rate_limit_hits = %d", hits)
	}
}

func TestServer_Shutdown(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
