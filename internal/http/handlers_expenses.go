package http

import (
	"errors"
	"net/http"

	"juicestand/internal/log"
	"juicestand/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	expenses, err := s.reports.DayExpenses(r.Context(), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().JSON(newDayExpensesView(expenses)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body", log.FieldError, err)
		BadRequestError("invalid request body").Write(w)
		return
	}
	in, err := ParseExpenseInput(parser)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.ledger.AddExpense(r.Context(), in)
	switch {
	case errors.Is(err, services.ErrStockNotRecorded) && res.Expense.ID != 0:
		// The expense is stored; the client has to know stock was not.
		NewResponse().Status(http.StatusInternalServerError).JSON(expenseCreatedView{
			Expense: newExpenseView(res.Expense),
			Warning: "expense saved but inventory was not updated",
		}).Write(w)
		return
	case err != nil:
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(expenseCreatedView{
		Expense:  newExpenseView(res.Expense),
		Movement: newMovementView(res.Movement),
	}).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
