package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pragma-notes/pragma/internal/buildinfo"
	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/repo"
	"github.com/pragma-notes/pragma/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeRepoError maps the sentinel error taxonomy onto HTTP statuses.
func (s *Server) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request timed out waiting for storage")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// handleAuthCheck lets a client verify its token before syncing. The auth
// middleware already did the work; reaching here means the token is good.
func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChanges(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("sinceRevision"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sinceRevision must be an RFC 3339 timestamp")
			return
		}
		parsed = parsed.UTC()
		since = &parsed
	}

	response, err := s.repo.GetChanges(r.Context(), since)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateNotebook(w http.ResponseWriter, r *http.Request) {
	var payload data.NewNotebook
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notebook payload: "+err.Error())
		return
	}

	notebook, err := s.repo.CreateNotebook(r.Context(), payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, notebook)
}

func (s *Server) handleUpdateNotebook(w http.ResponseWriter, r *http.Request) {
	var payload data.NotebookUpdate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notebook payload: "+err.Error())
		return
	}

	notebook, err := s.repo.UpdateNotebook(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, notebook)
}

func (s *Server) handleDeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteNotebook(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var payload data.NewNote
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid note payload: "+err.Error())
		return
	}

	note, err := s.repo.CreateNote(r.Context(), payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var payload data.NoteUpdate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid note payload: "+err.Error())
		return
	}

	note, err := s.repo.UpdateNote(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteNote(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateContentBlock(w http.ResponseWriter, r *http.Request) {
	var payload data.NewContentBlock
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid content block payload: "+err.Error())
		return
	}

	block, err := s.repo.CreateContentBlock(r.Context(), payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) handleUpdateContentBlock(w http.ResponseWriter, r *http.Request) {
	var payload data.ContentBlockUpdate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid content block payload: "+err.Error())
		return
	}

	block, err := s.repo.UpdateContentBlock(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleDeleteContentBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteContentBlock(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
