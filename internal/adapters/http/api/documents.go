package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ladder/internal/domain/model"
)

// putDocumentRequest is the body of PUT /documents/{collection}. If-Match
// takes precedence over ExpectedVersion.
type putDocumentRequest struct {
	Data            json.RawMessage `json:"data"`
	ExpectedVersion string          `json:"expectedVersion,omitempty"`
}

func collectionParam(r *http.Request) (model.Collection, bool) {
	return model.ParseCollection(chi.URLParam(r, "collection"))
}

// handleGetDocument handles GET /documents/{collection}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_document"
	col, ok := collectionParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrUnknownCollection))
		return
	}
	doc, err := s.deps.Load(r.Context(), s.session(r, "", ""), col)
	if err != nil {
		fail(w, op, err)
		return
	}
	w.Header().Set("ETag", etag(doc.UpdatedAt))
	writeJSON(w, http.StatusOK, doc)
}

// handlePutDocument handles PUT /documents/{collection}. A stale version is
// answered with 409 and the current version; the client must reload.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_document"
	col, ok := collectionParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrUnknownCollection))
		return
	}
	var req putDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		badBody(w, op, err)
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := s.deps.Save(r.Context(), s.session(r, col, req.ExpectedVersion), col, req.Data)
	if err != nil {
		fail(w, op, err)
		return
	}
	if res.Conflict {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	w.Header().Set("ETag", etag(res.Version))
	writeJSON(w, http.StatusOK, res)
}
