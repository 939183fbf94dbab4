// Package http serves the JSON API over the ledger and report services.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON or form-encoded; query dates are YYYY-MM-DD.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"juicestand/internal/core"
	"juicestand/internal/services"
)

// maxBodyBytes bounds request bodies; records are a handful of fields.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse parses the body as a JSON object or as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		// Numbers stay decimal strings so amounts are never rounded through float64.
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a trimmed, sanitised string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FieldError reports a request field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// parseOptionalDate parses YYYY-MM-DD; the empty string is the zero Date.
func parseOptionalDate(field, v string) (core.Date, error) {
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &FieldError{Field: field, Err: err}
	}
	return d, nil
}

// ParseSaleInput reads date, bottles, price and bottleSize.
func ParseSaleInput(p *RequestBodyParser) (services.SaleInput, error) {
	var in services.SaleInput
	var err error

	if in.Date, err = parseOptionalDate("date", p.Get("date")); err != nil {
		return in, err
	}
	bottles := p.Get("bottles")
	if in.Bottles, err = strconv.Atoi(bottles); err != nil {
		return in, &FieldError{Field: "bottles", Err: core.ErrInvalidBottles}
	}
	if v := p.Get("price"); v != "" {
		price, err := core.ParseMoney(v)
		if err != nil {
			return in, &FieldError{Field: "price", Err: err}
		}
		in.Price = &price
	}
	if in.BottleSize, err = core.ParseBottleSize(p.Get("bottleSize")); err != nil {
		return in, &FieldError{Field: "bottleSize", Err: err}
	}
	return in, nil
}

// ParseExpenseInput reads date, category, amount, quantity and description.
func ParseExpenseInput(p *RequestBodyParser) (services.ExpenseInput, error) {
	var in services.ExpenseInput
	var err error

	if in.Date, err = parseOptionalDate("date", p.Get("date")); err != nil {
		return in, err
	}
	if in.Category, err = core.ParseCategory(p.Get("category")); err != nil {
		return in, &FieldError{Field: "category", Err: err}
	}
	if in.Amount, err = core.ParseMoney(p.Get("amount")); err != nil {
		return in, &FieldError{Field: "amount", Err: err}
	}
	if in.Quantity, err = core.ParseQuantity(p.Get("quantity")); err != nil {
		return in, &FieldError{Field: "quantity", Err: err}
	}
	in.Description = p.Get("description")
	return in, nil
}
