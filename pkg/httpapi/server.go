// Package httpapi exposes the skill lifecycle operations over a REST API.
// The server is a thin transport layer: every endpoint maps onto one
// lifecycle.Manager operation and the manager's typed errors map onto HTTP
// status codes.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/skillet-dev/skillet/pkg/lifecycle"
	"github.com/skillet-dev/skillet/pkg/logger"
	"github.com/skillet-dev/skillet/pkg/taskqueue"
)

// ServerConfig holds the listen address of the API server.
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves the skill lifecycle REST API.
type Server struct {
	router  *mux.Router
	manager *lifecycle.Manager
	config  *ServerConfig
	server  *http.Server
}

// NewServer creates an API server backed by the given lifecycle manager.
func NewServer(manager *lifecycle.Manager, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:  mux.NewRouter(),
		manager: manager,
		config:  config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills", s.handleCreateSkill).Methods("POST")
	api.HandleFunc("/skills/{name}", s.handleGetSkill).Methods("GET")
	api.HandleFunc("/skills/{name}", s.handleDeleteSkill).Methods("DELETE")
	api.HandleFunc("/skills/{name}/rename", s.handleRenameSkill).Methods("PUT")
	api.HandleFunc("/skills/{name}/tree", s.handleGetSkillTree).Methods("GET")
	api.HandleFunc("/skills/{name}/files/{path:.*}", s.handleEditSkillFile).Methods("PUT")
	api.HandleFunc("/archived", s.handleListArchived).Methods("GET")
	api.HandleFunc("/archived/{name}/restore", s.handleRestoreSkill).Methods("POST")
	api.HandleFunc("/queue", s.handleQueueStatus).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.manager.ListSkills()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"skills": skills})
}

// CreateSkillRequest is the body of POST /api/skills.
type CreateSkillRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	var req CreateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorStatus(w, r, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return
	}

	if err := s.manager.CreateSkill(r.Context(), req.Name, req.Description); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]any{"name": req.Name}); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	details, err := s.manager.GetSkillInfo(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, details)
}

// RenameSkillRequest is the body of PUT /api/skills/{name}/rename.
type RenameSkillRequest struct {
	NewName string `json:"newName"`
}

func (s *Server) handleRenameSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req RenameSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorStatus(w, r, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return
	}

	if err := s.manager.RenameSkill(r.Context(), name, req.NewName); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"name": req.NewName})
}

func (s *Server) handleEditSkillFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorStatus(w, r, http.StatusBadRequest, errors.Wrap(err, "failed to read request body"))
		return
	}

	if err := s.manager.EditSkillFile(r.Context(), vars["name"], vars["path"], content); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"path": vars["path"]})
}

func (s *Server) handleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.manager.DeleteSkill(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"name": name, "archived": true})
}

func (s *Server) handleListArchived(w http.ResponseWriter, r *http.Request) {
	archived, err := s.manager.ListArchivedSkills()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"archived": archived})
}

func (s *Server) handleRestoreSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.manager.RestoreSkill(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"archivedName": name, "restored": true})
}

func (s *Server) handleGetSkillTree(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	tree, err := s.manager.GetSkillFileTree(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, map[string]any{"name": name, "tree": tree})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.manager.QueueStatus())
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode JSON response")
	}
}

// writeError maps the lifecycle error kinds onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorStatus(w, r, statusForError(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	logger.G(r.Context()).WithError(err).Warn("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":  err.Error(),
		"status": statusCode,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode error response")
	}
}

func statusForError(err error) int {
	var (
		validation *lifecycle.ValidationError
		notFound   *lifecycle.NotFoundError
		conflict   *lifecycle.ConflictError
		archived   *lifecycle.ArchivedSkillError
		timeout    *taskqueue.TimeoutError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &archived):
		return http.StatusConflict
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
