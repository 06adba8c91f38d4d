package http

import (
	"net/http"

	"expensebook/internal/core"
	"expensebook/internal/criteria"
)

// GET /expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.Decode(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.expenses.List(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /v2/expenses
func (s *Server) handleAllExpenses(w http.ResponseWriter, r *http.Request) {
	sort, name, err := criteria.DecodeAll(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.expenses.All(r.Context(), core.AllExpenseCriteria{Sort: sort, Name: name})
	if err != nil {
		writeServiceError(w, r, "list all expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// PUT /expenses
func (s *Server) handleUpsertExpense(w http.ResponseWriter, r *http.Request) {
	var u core.ExpenseUpsert
	if status, err := decodeBody(w, r, &u); err != nil {
		writeError(w, status, err.Error())
		return
	}
	u.Name = sanitizeInput(u.Name)

	if _, err := s.expenses.Upsert(r.Context(), u); err != nil {
		writeServiceError(w, r, "save expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /expenses/{id}
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
