package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"juicestand/internal/core"
)

var errInvalidID = errors.New("invalid id")

// parseDateQuery reads ?date=YYYY-MM-DD. Missing means the zero Date,
// which services read as today.
func parseDateQuery(r *http.Request) (core.Date, error) {
	return parseOptionalDate("date", strings.TrimSpace(r.URL.Query().Get("date")))
}

// parsePeriodQuery reads ?period=, defaulting to daily.
func parsePeriodQuery(r *http.Request) (core.Period, error) {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return core.Daily, nil
	}
	return core.ParsePeriod(v)
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// requestIDFor reuses a well-formed X-Request-ID or mints a new one.
func requestIDFor(r *http.Request) string {
	if v := r.Header.Get("X-Request-ID"); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	return uuid.NewString()
}
