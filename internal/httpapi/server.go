// Package httpapi exposes the sync protocol over HTTP: token-authenticated
// CRUD on notebooks, notes and content blocks, the delta-sync endpoint, and
// a WebSocket change feed.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/pragma-notes/pragma/internal/repo"
)

// Server routes HTTP requests to the repo.
type Server struct {
	repo      *repo.Repo
	authToken string
	logger    zerolog.Logger
	events    *Broadcaster
	router    *mux.Router
}

// NewServer wires the routes. The broadcaster may be nil when the change
// feed is disabled.
func NewServer(r *repo.Repo, authToken string, events *Broadcaster, logger zerolog.Logger) *Server {
	s := &Server{
		repo:      r,
		authToken: authToken,
		logger:    logger,
		events:    events,
	}

	router := mux.NewRouter()
	router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)

	api.HandleFunc("/auth", s.handleAuthCheck).Methods(http.MethodPost)
	api.HandleFunc("/data", s.handleGetChanges).Methods(http.MethodGet)

	api.HandleFunc("/notebooks", s.handleCreateNotebook).Methods(http.MethodPost)
	api.HandleFunc("/notebooks/{id}", s.handleUpdateNotebook).Methods(http.MethodPut)
	api.HandleFunc("/notebooks/{id}", s.handleDeleteNotebook).Methods(http.MethodDelete)

	api.HandleFunc("/notes", s.handleCreateNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/{id}", s.handleUpdateNote).Methods(http.MethodPut)
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods(http.MethodDelete)

	api.HandleFunc("/content_blocks", s.handleCreateContentBlock).Methods(http.MethodPost)
	api.HandleFunc("/content_blocks/{id}", s.handleUpdateContentBlock).Methods(http.MethodPut)
	api.HandleFunc("/content_blocks/{id}", s.handleDeleteContentBlock).Methods(http.MethodDelete)

	if events != nil {
		api.HandleFunc("/events", events.handleWebSocket).Methods(http.MethodGet)
	}

	s.router = router
	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
