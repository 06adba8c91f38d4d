package http

import (
	"net/http"

	"expensebook/internal/core"
	"expensebook/internal/criteria"
)

// GET /categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	c, err := criteria.DecodeCategories(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.categories.List(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /v2/categories
func (s *Server) handleAllCategories(w http.ResponseWriter, r *http.Request) {
	sort, name, err := criteria.DecodeAll(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.categories.All(r.Context(), core.AllCategoryCriteria{Sort: sort, Name: name})
	if err != nil {
		writeServiceError(w, r, "list all categories", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// PUT /categories
func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var u core.CategoryUpsert
	if status, err := decodeBody(w, r, &u); err != nil {
		writeError(w, status, err.Error())
		return
	}
	u.Name = sanitizeInput(u.Name)
	u.Color = sanitizeInput(u.Color)

	if _, err := s.categories.Upsert(r.Context(), u); err != nil {
		writeServiceError(w, r, "save category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /categories/{id}
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
