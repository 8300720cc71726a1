package http

import (
	"errors"
	"net/http"

	"pgexpense/internal/core"
	applog "pgexpense/internal/log"
)

// handleCreateExpense records an expense from a JSON or form-encoded body.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(r.Context(), "Invalid request body",
			applog.FieldOperation, applog.OpParse,
			applog.FieldError, err)
		BadRequestError("Invalid request body").Write(w)
		return
	}

	expense, err := ParseNewExpense(parser)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	created, err := s.svc.CreateExpense(r.Context(), expense)
	if err != nil {
		if core.IsValidationError(err) {
			writeValidationError(w, err)
			return
		}
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Error creating expense", err,
			applog.ComponentExpense, applog.OpCreate,
			applog.NewFields())
		InternalServerError().Write(w)
		return
	}

	s.recordExpenseCreated()
	applog.NewStructuredLogger(logger).LogExpenseCreated(r.Context(),
		created.ID, created.Description, created.Amount.String(), created.CategoryLabel(), created.Date.String())

	NewJSONResponse().Status(http.StatusCreated).JSON(created).Write(w)
}

// handleListExpenses returns the filtered expenses, most recent first.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	expenses, err := s.svc.ListExpenses(r.Context(), f)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Error fetching expenses",
			applog.FieldOperation, applog.OpList,
			applog.FieldError, err)
		InternalServerError().Write(w)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	NewJSONResponse().JSON(expenses).Write(w)
}

// handleExpenseStats returns the statistics for the filtered expenses.
func (s *Server) handleExpenseStats(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	stats, err := s.svc.Stats(r.Context(), f)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Error fetching expense stats",
			applog.FieldOperation, applog.OpStats,
			applog.FieldError, err)
		InternalServerError().Write(w)
		return
	}

	NewJSONResponse().JSON(stats).Write(w)
}

func writeValidationError(w http.ResponseWriter, err error) {
	if errors.Is(err, errRequiredFields) {
		BadRequestError("Description and amount are required").Write(w)
		return
	}
	BadRequestError(err.Error()).Write(w)
}
