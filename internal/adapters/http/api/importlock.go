package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
)

type lockResponse struct {
	Lock *model.ImportLock `json:"lock"`
}

type acquireLockRequest struct {
	Operation string `json:"operation"`
}

type releaseLockResponse struct {
	Released bool `json:"released"`
}

func (s *Server) handleGetImportLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_import_lock"
	lock, err := s.deps.ImportLock(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lockResponse{Lock: lock})
}

// handleAcquireImportLock answers 200 whether or not the lock was taken; a
// lock held by someone else is a warning for the client to show.
func (s *Server) handleAcquireImportLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.acquire_import_lock"
	var req acquireLockRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		badBody(w, op, err)
		return
	}
	if req.Operation == "" {
		req.Operation = "import"
	}
	res, err := s.deps.AcquireImportLock(r.Context(), s.session(r, "", ""), req.Operation)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReleaseImportLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.release_import_lock"
	released, err := s.deps.ReleaseImportLock(r.Context(), s.session(r, "", ""))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, releaseLockResponse{Released: released})
}
