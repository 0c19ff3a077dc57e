package api

import (
	"net/http"
	"strconv"

	"github.com/okian/ladder/internal/domain/model"
)

const defaultActivityLimit = 50

// handleActivity handles GET /activity?limit=N, newest first.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_activity"
	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	entries, err := s.deps.Activity(r.Context(), limit)
	if err != nil {
		fail(w, op, err)
		return
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
