package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ladder/internal/domain/model"
)

// handleAddMatch handles POST /matches.
func (s *Server) handleAddMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_match"
	var m model.Match
	if err := decodeBody(w, r, &m); err != nil {
		badBody(w, op, err)
		return
	}
	created, err := s.deps.AddMatch(r.Context(), s.session(r, "", ""), m)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateMatch handles PUT /matches/{id}. The path id wins over the body.
func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_match"
	var m model.Match
	if err := decodeBody(w, r, &m); err != nil {
		badBody(w, op, err)
		return
	}
	m.ID = model.ID(chi.URLParam(r, "id"))
	updated, err := s.deps.UpdateMatch(r.Context(), s.session(r, "", ""), m)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteMatch handles DELETE /matches/{id}.
func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_match"
	if err := s.deps.DeleteMatch(r.Context(), s.session(r, "", ""), model.ID(chi.URLParam(r, "id"))); err != nil {
		fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
