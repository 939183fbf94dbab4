package http

import (
	"net/http"

	"juicestand/internal/log"
)

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	sales, err := s.reports.DaySales(r.Context(), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(newDaySalesView(sales)).Write(w)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body", log.FieldError, err)
		BadRequestError("invalid request body").Write(w)
		return
	}
	in, err := ParseSaleInput(parser)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sale, err := s.ledger.AddSale(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newSaleView(sale)).Write(w)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteSale(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
