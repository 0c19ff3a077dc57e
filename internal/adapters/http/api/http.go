// Package api exposes the tournament service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/ladder/internal/adapters/http/swagger"
	"github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/challenge"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// HeaderActor names the acting user. Requests without it act as anonymous.
const HeaderActor = "X-Actor"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	Backend() string

	Load(ctx context.Context, sess *service.Session, col model.Collection) (repository.Document, error)
	Save(ctx context.Context, sess *service.Session, col model.Collection, data json.RawMessage) (repository.SaveResult, error)

	AddMatch(ctx context.Context, sess *service.Session, m model.Match) (model.Match, error)
	UpdateMatch(ctx context.Context, sess *service.Session, m model.Match) (model.Match, error)
	DeleteMatch(ctx context.Context, sess *service.Session, id model.ID) error

	Challenges(ctx context.Context) ([]model.Challenge, error)
	PrecheckChallenge(ctx context.Context, id model.ID, action challenge.Action) (service.ChallengeResult, error)
	CreateChallenge(ctx context.Context, sess *service.Session, req challenge.CreateRequest) (service.ChallengeResult, error)
	AcceptChallenge(ctx context.Context, sess *service.Session, id model.ID, req challenge.AcceptRequest) (service.ChallengeResult, error)
	DeclineChallenge(ctx context.Context, sess *service.Session, id model.ID) (service.ChallengeResult, error)
	CompleteChallenge(ctx context.Context, sess *service.Session, id model.ID, req challenge.ResultRequest) (service.ChallengeResult, error)

	Leaderboard(ctx context.Context, sess *service.Session) (service.Leaderboard, error)
	TeamScore(ctx context.Context, sess *service.Session, id model.ID) (ranking.Standing, error)

	ImportLock(ctx context.Context) (*model.ImportLock, error)
	AcquireImportLock(ctx context.Context, sess *service.Session, operation string) (service.LockResult, error)
	ReleaseImportLock(ctx context.Context, sess *service.Session) (bool, error)

	Activity(ctx context.Context, limit int) ([]model.ActivityEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps        Dependencies
	live        http.Handler
	corsOrigins []string
	now         func() time.Time
	logger      logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithLiveHandler mounts h at /ws.
func WithLiveHandler(h http.Handler) Option {
	return func(s *Server) { s.live = h }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithClock fixes the time seen by request sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		corsOrigins:   []string{"*"},
		now:           time.Now,
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-Match", HeaderActor},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	if s.live != nil {
		r.Method(http.MethodGet, "/ws", s.live)
	}
	swagger.Register(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents/{collection}", s.handleGetDocument)
		r.Put("/documents/{collection}", s.handlePutDocument)

		r.Post("/matches", s.handleAddMatch)
		r.Put("/matches/{id}", s.handleUpdateMatch)
		r.Delete("/matches/{id}", s.handleDeleteMatch)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", s.handleListChallenges)
			r.Post("/", s.handleCreateChallenge)
			r.Get("/{id}/precheck", s.handlePrecheck)
			r.Post("/{id}/accept", s.handleAccept)
			r.Post("/{id}/decline", s.handleDecline)
			r.Post("/{id}/result", s.handleResult)
		})

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/leaderboard.xlsx", s.handleLeaderboardXLSX)
		r.Get("/teams/{id}/score", s.handleTeamScore)

		r.Get("/import-lock", s.handleGetImportLock)
		r.Post("/import-lock", s.handleAcquireImportLock)
		r.Delete("/import-lock", s.handleReleaseImportLock)

		r.Get("/activity", s.handleActivity)
	})
	return r
}

// session builds the per-request session from the actor header and an
// optional If-Match version for collection.
func (s *Server) session(r *http.Request, col model.Collection, version string) *service.Session {
	opts := []service.SessionOption{service.WithSessionClock(s.now)}
	if v := ifMatch(r); v != "" {
		version = v
	}
	if col != "" && version != "" {
		opts = append(opts, service.WithVersion(col, version))
	}
	return service.NewSession(strings.TrimSpace(r.Header.Get(HeaderActor)), opts...)
}

func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func etag(version string) string { return `"` + version + `"` }

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxBodyBytes caps request bodies; a whole teams document fits comfortably.
const maxBodyBytes = 4 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// badBody answers a body that could not be decoded.
func badBody(w http.ResponseWriter, op string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
