package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"juicestand/internal/core"
	"juicestand/internal/log"
	"juicestand/internal/services"
)

// Ledger is the write side used by the handlers.
type Ledger interface {
	AddSale(ctx context.Context, in services.SaleInput) (core.Sale, error)
	AddExpense(ctx context.Context, in services.ExpenseInput) (services.ExpenseResult, error)
	DeleteSale(ctx context.Context, id int64) error
	DeleteExpense(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) error
}

// Reports is the read side used by the handlers.
type Reports interface {
	Dashboard(ctx context.Context, day core.Date) (services.Dashboard, error)
	DaySales(ctx context.Context, day core.Date) (services.DaySales, error)
	DayExpenses(ctx context.Context, day core.Date) (services.DayExpenses, error)
	Inventory(ctx context.Context) (core.InventoryStatus, error)
	Report(ctx context.Context, period core.Period) (core.PeriodReport, error)
}

const (
	writeLimit       = 60
	writeLimitWindow = time.Minute
)

type Server struct {
	http.Server
	ledger      Ledger
	reports     Reports
	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger Ledger, reports Reports, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()

	s := &Server{
		ledger:      ledger,
		reports:     reports,
		logger:      logger,
		rateLimiter: newRateLimiter(writeLimit, writeLimitWindow),
		metrics:     &securityMetrics{},
		started:     time.Now(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/sales", s.handleListSales)
	mux.HandleFunc("POST /api/sales", s.handleCreateSale)
	mux.HandleFunc("DELETE /api/sales/{id}", s.handleDeleteSale)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/inventory", s.handleInventory)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/reports/export", s.handleExportReport)
	mux.HandleFunc("DELETE /api/data", s.handleClearAll)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(logger, requestIDFor)(s.withSecurity(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withSecurity sets security headers, flags probes and rate limits writes.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		logger := log.FromContext(r.Context())

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(r.Context(), "Suspicious request",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}

		setSecurityHeaders(w.Header())

		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.allow(clientIP, s.metrics) {
				logger.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
				TooManyRequestsError("60").Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
