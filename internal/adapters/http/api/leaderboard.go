package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ladder/internal/adapters/export"
	"github.com/okian/ladder/internal/domain/model"
)

// handleLeaderboard handles GET /leaderboard?limit=N. Without a limit every
// team is returned.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	board, err := s.deps.Leaderboard(r.Context(), s.session(r, "", ""))
	if err != nil {
		fail(w, op, err)
		return
	}
	if limit > 0 && len(board.Standings) > limit {
		board.Standings = board.Standings[:limit]
	}
	writeJSON(w, http.StatusOK, board)
}

// handleLeaderboardXLSX handles GET /leaderboard.xlsx.
func (s *Server) handleLeaderboardXLSX(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	board, err := s.deps.Leaderboard(r.Context(), s.session(r, "", ""))
	if err != nil {
		fail(w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Leaderboard(&buf, board.Standings, board.AsOf); err != nil {
		fail(w, op, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leaderboard-%s.xlsx"`, board.AsOf.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleTeamScore handles GET /teams/{id}/score.
func (s *Server) handleTeamScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_score"
	st, err := s.deps.TeamScore(r.Context(), s.session(r, "", ""), model.ID(chi.URLParam(r, "id")))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
