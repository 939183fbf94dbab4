package http

import (
	"errors"
	"net/http"

	"juicestand/internal/core"
	"juicestand/internal/log"
	"juicestand/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(newHealthView(s.started)).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":         "ready",
		"active_clients": s.rateLimiter.ActiveClients(),
		"security":       s.metrics.snapshot(),
	}).Write(w)
}

// writeError maps service and parse errors to responses. Anything
// unrecognised is logged and answered with a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		FieldErrorResponse(fe).Write(w)
	case errors.Is(err, services.ErrInvalidInput):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("record not found").Write(w)
	case errors.Is(err, errInvalidID):
		BadRequestError("invalid id").Write(w)
	case errors.Is(err, core.ErrInvalidPeriod):
		BadRequestError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			"method", r.Method,
			"path", r.URL.Path)
		InternalServerError("internal error").Write(w)
	}
}

// writeQueryError answers a malformed query parameter with a 400.
func writeQueryError(w http.ResponseWriter, err error) {
	var fe *FieldError
	if errors.As(err, &fe) {
		NewResponse().Status(http.StatusBadRequest).JSON(errorBody{Error: fe.Err.Error(), Field: fe.Field}).Write(w)
		return
	}
	BadRequestError(err.Error()).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(newDashboardView(d)).Write(w)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	status, err := s.reports.Inventory(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(newInventoryView(status)).Write(w)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
