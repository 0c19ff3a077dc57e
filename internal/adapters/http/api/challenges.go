package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/challenge"
	"github.com/okian/ladder/internal/domain/model"
)

type createChallengeRequest struct {
	ID               model.ID        `json:"id,omitempty"`
	ChallengerTeamID model.ID        `json:"challengerTeamId"`
	ChallengedTeamID model.ID        `json:"challengedTeamId,omitempty"`
	MatchType        model.MatchType `json:"matchType"`
	ProposedDate     string          `json:"proposedDate"`
	ProposedLevel    float64         `json:"proposedLevel"`
	Players          []model.ID      `json:"players"`
	Notes            string          `json:"notes,omitempty"`
}

type acceptChallengeRequest struct {
	TeamID  model.ID   `json:"teamId"`
	Players []model.ID `json:"players"`
	Date    string     `json:"date,omitempty"`
	Level   float64    `json:"level,omitempty"`
	MatchID string     `json:"matchId,omitempty"`
}

type setScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// resultRequest scores a challenge from the challenger's side as team1.
type resultRequest struct {
	Sets     []setScore `json:"sets"`
	Tiebreak bool       `json:"tiebreak,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

func (r resultRequest) toDomain() (challenge.ResultRequest, error) {
	var out challenge.ResultRequest
	if len(r.Sets) > len(out.Sets) {
		return out, fmt.Errorf("%w: at most %d sets", ErrBadRequest, len(out.Sets))
	}
	for i, s := range r.Sets {
		out.Sets[i] = model.SetScore{Team1: s.Team1, Team2: s.Team2}
	}
	out.Tiebreak, out.Notes = r.Tiebreak, r.Notes
	return out, nil
}

// challengeStatus is 2xx for applied transitions and 404/409 for the
// structured rejections; the body is the result either way.
func challengeStatus(res service.ChallengeResult, created bool) int {
	switch {
	case res.Success && created:
		return http.StatusCreated
	case res.Success:
		return http.StatusOK
	case res.NotFound:
		return http.StatusNotFound
	}
	return http.StatusConflict
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_challenges"
	list, err := s.deps.Challenges(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	if list == nil {
		list = []model.Challenge{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_challenge"
	var req createChallengeRequest
	if err := decodeBody(w, r, &req); err != nil {
		badBody(w, op, err)
		return
	}
	res, err := s.deps.CreateChallenge(r.Context(), s.session(r, "", ""), challenge.CreateRequest(req))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, challengeStatus(res, true), res)
}

// handlePrecheck handles GET /challenges/{id}/precheck?action=accept. The
// answer is advisory and always 200.
func (s *Server) handlePrecheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.precheck_challenge"
	action := challenge.Action(r.URL.Query().Get("action"))
	switch action {
	case "":
		action = challenge.ActionAccept
	case challenge.ActionAccept, challenge.ActionDecline, challenge.ActionComplete:
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	res, err := s.deps.PrecheckChallenge(r.Context(), model.ID(chi.URLParam(r, "id")), action)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	const op = "api.accept_challenge"
	var req acceptChallengeRequest
	if err := decodeBody(w, r, &req); err != nil {
		badBody(w, op, err)
		return
	}
	res, err := s.deps.AcceptChallenge(r.Context(), s.session(r, "", ""), model.ID(chi.URLParam(r, "id")), challenge.AcceptRequest(req))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, challengeStatus(res, false), res)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	const op = "api.decline_challenge"
	res, err := s.deps.DeclineChallenge(r.Context(), s.session(r, "", ""), model.ID(chi.URLParam(r, "id")))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, challengeStatus(res, false), res)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_challenge"
	var body resultRequest
	if err := decodeBody(w, r, &body); err != nil {
		badBody(w, op, err)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	res, err := s.deps.CompleteChallenge(r.Context(), s.session(r, "", ""), model.ID(chi.URLParam(r, "id")), req)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, challengeStatus(res, false), res)
}
