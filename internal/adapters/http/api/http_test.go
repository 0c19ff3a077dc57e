package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/ladder/internal/adapters/export"
	"github.com/okian/ladder/internal/adapters/http/api"
	"github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var midJune = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	handler http.Handler
}

func newHarness() *harness {
	season := model.Season{Months: []model.Month{
		{Key: "2026-06", Name: "June", EndDate: "2026-06-30"},
		{Key: "2026-07", Name: "July", EndDate: "2026-07-31"},
		{Key: "2026-08", Name: "August", EndDate: "2026-08-31"},
	}}
	svc := service.New(repository.NewMemoryStore(), service.WithSeason(season))
	srv := api.NewServer(svc, api.WithClock(func() time.Time { return midJune }))
	return &harness{handler: srv.Handler()}
}

func (h *harness) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		So(err, ShouldBeNil)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var out T
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func league() model.TeamsBlob {
	return model.TeamsBlob{
		Teams: []model.Team{{ID: "A", Name: "Aces"}, {ID: "B", Name: "Baseliners"}},
		Players: []model.Player{
			{ID: "a1", FirstName: "Ana", LastName: "Ash", Gender: model.GenderFemale, NTRPRating: 3.5, TeamID: "A"},
			{ID: "b1", FirstName: "Bo", LastName: "Bell", Gender: model.GenderMale, NTRPRating: 3.5, TeamID: "B"},
		},
	}
}

func match(id string) model.Match {
	return model.Match{
		ID: model.ID(id), MatchType: model.MatchSingles, Date: "2026-06-10", Level: 4.0,
		Team1ID: "A", Team2ID: "B", Winner: model.WinnerTeam1,
		Set1Team1: 6, Set1Team2: 3, Set2Team1: 6, Set2Team2: 4,
		Status: model.MatchCompleted,
	}
}

func seed(h *harness) {
	w := h.do(http.MethodPut, "/api/v1/documents/teams", map[string]any{"data": league()})
	So(w.Code, ShouldEqual, http.StatusOK)
}

func TestServer_Operational(t *testing.T) {
	Convey("Given a running API", t, func() {
		h := newHarness()

		Convey("Health reports the store backend", func() {
			w := h.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["store"], ShouldEqual, "memory")
		})

		Convey("Stats are served as JSON", func() {
			w := h.do(http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w), ShouldContainKey, "saves")
		})

		Convey("Metrics are served in the Prometheus text format", func() {
			h.do(http.MethodGet, "/healthz", nil)
			w := h.do(http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("The API reference is served", func() {
			w := h.do(http.MethodGet, "/openapi.yaml", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/api/v1/leaderboard")
		})

		Convey("CORS preflight is answered", func() {
			w := h.do(http.MethodOptions, "/api/v1/leaderboard", nil,
				"Origin", "https://club.example",
				"Access-Control-Request-Method", http.MethodGet,
			)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})

		Convey("Unknown routes are 404", func() {
			w := h.do(http.MethodGet, "/nope", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Documents(t *testing.T) {
	Convey("Given a saved teams document", t, func() {
		h := newHarness()
		seed(h)

		get := h.do(http.MethodGet, "/api/v1/documents/teams", nil)
		So(get.Code, ShouldEqual, http.StatusOK)
		version := decode[repository.Document](get).UpdatedAt
		So(get.Header().Get("ETag"), ShouldEqual, `"`+version+`"`)

		Convey("Saving with the loaded version through If-Match succeeds", func() {
			w := h.do(http.MethodPut, "/api/v1/documents/teams", map[string]any{"data": league()}, "If-Match", `"`+version+`"`)
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[repository.SaveResult](w)
			So(res.Success, ShouldBeTrue)

			Convey("And a second save with the same stale version conflicts", func() {
				w := h.do(http.MethodPut, "/api/v1/documents/teams", map[string]any{"data": league(), "expectedVersion": version})
				So(w.Code, ShouldEqual, http.StatusConflict)
				stale := decode[repository.SaveResult](w)
				So(stale.Conflict, ShouldBeTrue)
				So(stale.CurrentVersion, ShouldEqual, res.Version)
			})
		})

		Convey("Saving over it without a version conflicts and keeps the stored data", func() {
			blob := league()
			blob.Teams[0].Name = "Overwritten"
			w := h.do(http.MethodPut, "/api/v1/documents/teams", map[string]any{"data": blob})
			So(w.Code, ShouldEqual, http.StatusConflict)
			res := decode[repository.SaveResult](w)
			So(res.Conflict, ShouldBeTrue)
			So(res.CurrentVersion, ShouldEqual, version)

			after := h.do(http.MethodGet, "/api/v1/documents/teams", nil)
			So(decode[repository.Document](after).UpdatedAt, ShouldEqual, version)
			So(after.Body.String(), ShouldNotContainSubstring, "Overwritten")
		})

		Convey("Invalid data is 422", func() {
			blob := league()
			blob.Players[0].Gender = "X"
			w := h.do(http.MethodPut, "/api/v1/documents/teams", map[string]any{"data": blob})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("An oversized body is 413", func() {
			huge := `{"data":"` + strings.Repeat("x", 5<<20) + `"}`
			w := h.do(http.MethodPut, "/api/v1/documents/teams", huge)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(h.do(http.MethodPost, "/api/v1/matches", huge).Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("Missing data and bad JSON are 400", func() {
			So(h.do(http.MethodPut, "/api/v1/documents/teams", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPut, "/api/v1/documents/teams", `{`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown and unwritten collections are 404", func() {
			So(h.do(http.MethodGet, "/api/v1/documents/widgets", nil).Code, ShouldEqual, http.StatusNotFound)
			So(h.do(http.MethodGet, "/api/v1/documents/bonuses", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Transactional collections cannot be replaced whole", func() {
			w := h.do(http.MethodPut, "/api/v1/documents/challenges", map[string]any{"data": []any{}})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Matches(t *testing.T) {
	Convey("Given an empty match list", t, func() {
		h := newHarness()

		Convey("A match can be added, updated and deleted", func() {
			w := h.do(http.MethodPost, "/api/v1/matches", match("m1"))
			So(w.Code, ShouldEqual, http.StatusCreated)

			So(h.do(http.MethodPost, "/api/v1/matches", match("m1")).Code, ShouldEqual, http.StatusConflict)

			m := match("ignored")
			m.Notes = "moved indoors"
			w = h.do(http.MethodPut, "/api/v1/matches/m1", m)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.Match](w).ID, ShouldEqual, model.ID("m1"))

			So(h.do(http.MethodDelete, "/api/v1/matches/m1", nil).Code, ShouldEqual, http.StatusNoContent)
			So(h.do(http.MethodDelete, "/api/v1/matches/m1", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("An invalid match is 422", func() {
			m := match("m2")
			m.Status = "maybe"
			So(h.do(http.MethodPost, "/api/v1/matches", m).Code, ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestServer_Challenges(t *testing.T) {
	Convey("Given a league with an open challenge", t, func() {
		h := newHarness()
		seed(h)

		w := h.do(http.MethodPost, "/api/v1/challenges", map[string]any{
			"challengerTeamId": "A",
			"matchType":        "singles",
			"proposedDate":     "2026-06-20",
			"proposedLevel":    4.0,
			"players":          []string{"a1"},
		}, api.HeaderActor, "alice")
		So(w.Code, ShouldEqual, http.StatusCreated)
		created := decode[service.ChallengeResult](w)
		So(created.Success, ShouldBeTrue)
		id := string(created.UpdatedChallenge.ID)
		So(created.UpdatedChallenge.CreatedBy, ShouldEqual, "alice")

		accept := map[string]any{"teamId": "B", "players": []string{"b1"}}

		Convey("The first accept wins and the second conflicts", func() {
			w := h.do(http.MethodPost, "/api/v1/challenges/"+id+"/accept", accept, api.HeaderActor, "bob")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[service.ChallengeResult](w).UpdatedChallenge.AcceptedBy, ShouldEqual, "bob")

			w = h.do(http.MethodPost, "/api/v1/challenges/"+id+"/accept", accept, api.HeaderActor, "carol")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode[service.ChallengeResult](w).AlreadyAccepted, ShouldBeTrue)

			Convey("Then the result records a match", func() {
				w := h.do(http.MethodPost, "/api/v1/challenges/"+id+"/result", map[string]any{
					"sets": []map[string]int{{"team1": 4, "team2": 6}, {"team1": 3, "team2": 6}},
				})
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[service.ChallengeResult](w)
				So(res.CreatedMatch.Winner, ShouldEqual, model.WinnerTeam2)

				board := decode[service.Leaderboard](h.do(http.MethodGet, "/api/v1/leaderboard", nil))
				So(board.Standings[0].TeamID, ShouldEqual, model.ID("B"))

				top := decode[service.Leaderboard](h.do(http.MethodGet, "/api/v1/leaderboard?limit=1", nil))
				So(top.Standings, ShouldHaveLength, 1)
			})
		})

		Convey("Precheck is advisory", func() {
			w := h.do(http.MethodGet, "/api/v1/challenges/"+id+"/precheck?action=complete", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[service.ChallengeResult](w).StatusChanged, ShouldBeTrue)

			So(h.do(http.MethodGet, "/api/v1/challenges/"+id+"/precheck?action=fly", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown challenges are 404", func() {
			w := h.do(http.MethodPost, "/api/v1/challenges/ghost/decline", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[service.ChallengeResult](w).NotFound, ShouldBeTrue)
		})

		Convey("Four sets are rejected", func() {
			w := h.do(http.MethodPost, "/api/v1/challenges/"+id+"/result", map[string]any{
				"sets": []map[string]int{{}, {}, {}, {}},
			})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The list shows the challenge", func() {
			list := decode[[]model.Challenge](h.do(http.MethodGet, "/api/v1/challenges", nil))
			So(list, ShouldHaveLength, 1)
		})
	})
}

func TestServer_Leaderboard(t *testing.T) {
	Convey("Given a league with one match", t, func() {
		h := newHarness()
		seed(h)
		So(h.do(http.MethodPost, "/api/v1/matches", match("m1")).Code, ShouldEqual, http.StatusCreated)

		Convey("The team score endpoint returns one standing", func() {
			w := h.do(http.MethodGet, "/api/v1/teams/A/score", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(h.do(http.MethodGet, "/api/v1/teams/Z/score", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("The xlsx export opens as a workbook", func() {
			w := h.do(http.MethodGet, "/api/v1/leaderboard.xlsx", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, export.ContentType)
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "leaderboard-2026-06-15.xlsx")

			f, err := excelize.OpenReader(w.Body)
			So(err, ShouldBeNil)
			defer f.Close()
			rows, err := f.GetRows(export.SheetStandings)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 4)
			So(rows[2][1], ShouldEqual, "Aces")
		})

		Convey("A bad limit is 400", func() {
			So(h.do(http.MethodGet, "/api/v1/leaderboard?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_ImportLock(t *testing.T) {
	Convey("Given alice takes the import lock", t, func() {
		h := newHarness()
		w := h.do(http.MethodPost, "/api/v1/import-lock", map[string]string{"operation": "csv"}, api.HeaderActor, "alice")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(decode[service.LockResult](w).Acquired, ShouldBeTrue)

		Convey("Bob is warned", func() {
			w := h.do(http.MethodPost, "/api/v1/import-lock", nil, api.HeaderActor, "bob")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[service.LockResult](w)
			So(res.Acquired, ShouldBeFalse)
			So(res.Lock.Holder, ShouldEqual, "alice")
		})

		Convey("Alice releases it", func() {
			w := h.do(http.MethodDelete, "/api/v1/import-lock", nil, api.HeaderActor, "alice")
			So(decode[map[string]bool](w)["released"], ShouldBeTrue)

			w = h.do(http.MethodGet, "/api/v1/import-lock", nil)
			So(w.Body.String(), ShouldContainSubstring, `"lock":null`)
		})
	})
}

func TestServer_Activity(t *testing.T) {
	Convey("Given a service whose activity pipeline never started", t, func() {
		h := newHarness()

		Convey("The activity log is an empty list", func() {
			w := h.do(http.MethodGet, "/api/v1/activity", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			So(h.do(http.MethodGet, "/api/v1/activity?limit=x", nil).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

