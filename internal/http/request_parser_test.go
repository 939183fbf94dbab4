package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"juicestand/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestRequestBodyParser_JSONAndForm(t *testing.T) {
	j := newParser(t, "application/json", `{"bottles": 3, "price": 12.50, "note": " hi\u0007 "}`)
	if !j.IsJSON() {
		t.Fatal("expected JSON body")
	}
	if got := j.Get("bottles"); got != "3" {
		t.Errorf("bottles = %q", got)
	}
	if got := j.Get("price"); got != "12.50" {
		t.Errorf("price = %q, numbers must keep their decimal text", got)
	}
	if got := j.Get("note"); got != "hi" {
		t.Errorf("note = %q, control characters should be stripped", got)
	}
	if got := j.Get("missing"); got != "" {
		t.Errorf("missing = %q", got)
	}

	f := newParser(t, "application/x-www-form-urlencoded", url.Values{"bottles": {"4"}}.Encode())
	if f.IsJSON() || f.Get("bottles") != "4" {
		t.Errorf("unexpected form parse: json=%v bottles=%q", f.IsJSON(), f.Get("bottles"))
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bottles": `))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if err := p.Parse(); err == nil {
		t.Fatal("second Parse should return the same error")
	}
}

func TestParseSaleInput(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		check     func(t *testing.T, p *RequestBodyParser)
	}{
		{
			name: "full sale",
			body: `{"date":"2024-03-10","bottles":"3","price":"12,5","bottleSize":"1"}`,
			check: func(t *testing.T, p *RequestBodyParser) {
				in, err := ParseSaleInput(p)
				if err != nil {
					t.Fatal(err)
				}
				if !in.Date.Equal(core.NewDate(2024, 3, 10)) || in.Bottles != 3 || in.BottleSize != core.BottleSizeLiter {
					t.Errorf("unexpected input %+v", in)
				}
				if in.Price == nil || in.Price.Cents != 1250 {
					t.Errorf("unexpected price %+v", in.Price)
				}
			},
		},
		{
			name: "defaults left to the ledger",
			body: `{"bottles":2}`,
			check: func(t *testing.T, p *RequestBodyParser) {
				in, err := ParseSaleInput(p)
				if err != nil {
					t.Fatal(err)
				}
				if !in.Date.IsZero() || in.Price != nil || in.BottleSize != core.BottleSizeUnspecified {
					t.Errorf("unexpected input %+v", in)
				}
			},
		},
		{name: "bad date", body: `{"date":"2024-13-01","bottles":1}`, wantField: "date"},
		{name: "missing bottles", body: `{}`, wantField: "bottles"},
		{name: "fractional bottles", body: `{"bottles":1.5}`, wantField: "bottles"},
		{name: "negative price", body: `{"bottles":1,"price":"-2"}`, wantField: "price"},
		{name: "unknown size", body: `{"bottles":1,"bottleSize":"2"}`, wantField: "bottleSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/json", tt.body)
			if tt.check != nil {
				tt.check(t, p)
				return
			}
			_, err := ParseSaleInput(p)
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.wantField {
				t.Fatalf("expected field error on %q, got %v", tt.wantField, err)
			}
		})
	}
}

func TestParseExpenseInput(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", url.Values{
		"category":    {"Produce"},
		"amount":      {"45.00"},
		"quantity":    {"12,5"},
		"description": {"oranges"},
	}.Encode())
	in, err := ParseExpenseInput(p)
	if err != nil {
		t.Fatal(err)
	}
	if in.Category != core.CategoryProduce || in.Amount.Cents != 4500 || in.Description != "oranges" {
		t.Errorf("unexpected input %+v", in)
	}
	if !in.Quantity.Valid || !in.Quantity.Decimal.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected quantity %+v", in.Quantity)
	}

	failures := map[string]string{
		"category": `{"category":"fuel","amount":"1"}`,
		"amount":   `{"category":"other","amount":"abc"}`,
		"quantity": `{"category":"produce","amount":"1","quantity":"-3"}`,
	}
	for field, body := range failures {
		_, err := ParseExpenseInput(newParser(t, "application/json", body))
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != field {
			t.Errorf("%s: expected field error, got %v", field, err)
		}
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/sales?date=2024-02-29", nil)
	d, err := parseDateQuery(req)
	if err != nil || !d.Equal(core.NewDate(2024, 2, 29)) {
		t.Fatalf("parseDateQuery = %v, %v", d, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sales?date=yesterday", nil)
	if _, err := parseDateQuery(req); err == nil {
		t.Error("expected error for non-ISO date")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if p, err := parsePeriodQuery(req); err != nil || p != core.Daily {
		t.Errorf("default period = %q, %v", p, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/reports?period=Monthly", nil)
	if p, err := parsePeriodQuery(req); err != nil || p != core.Monthly {
		t.Errorf("period = %q, %v", p, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/reports?period=yearly", nil)
	if _, err := parsePeriodQuery(req); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRequestIDFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "0f8fad5b-d9cb-469f-a165-70867728950e")
	if got := requestIDFor(req); got != "0f8fad5b-d9cb-469f-a165-70867728950e" {
		t.Errorf("valid request id not reused: %q", got)
	}
	req.Header.Set("X-Request-ID", "<script>")
	if got := requestIDFor(req); got == "<script>" || got == "" {
		t.Errorf("invalid request id should be replaced, got %q", got)
	}
}
