// Package api implements the HTTP surface: session management REST
// endpoints, health and version probes, and the WebSocket chat mount.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mvanders/macroai/internal/buildinfo"
	"github.com/mvanders/macroai/internal/checkpoint"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/session"
)

// Server is the HTTP API server.
type Server struct {
	address    string
	port       int
	logger     *slog.Logger
	resolver   *identity.Resolver
	users      *identity.Store
	sessions   *session.Store
	checkpoint *checkpoint.Store
	chatWS     http.Handler
	singleUser bool
	server     *http.Server
}

// NewServer creates the API server. chatWS is mounted at the WebSocket
// chat path and handles its own auth.
func NewServer(address string, port int, logger *slog.Logger, resolver *identity.Resolver, users *identity.Store, sessions *session.Store, cp *checkpoint.Store, chatWS http.Handler, singleUser bool) *Server {
	return &Server{
		address:    address,
		port:       port,
		logger:     logger,
		resolver:   resolver,
		users:      users,
		sessions:   sessions,
		checkpoint: cp,
		chatWS:     chatWS,
		singleUser: singleUser,
	}
}

// routes builds the request mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/chat/sessions", s.withUser(s.handleListSessions))
	mux.HandleFunc("POST /api/v1/chat/sessions", s.withUser(s.handleCreateSession))
	mux.HandleFunc("DELETE /api/v1/chat/sessions/{id}", s.withUser(s.handleDeleteSession))
	mux.HandleFunc("GET /api/v1/chat/sessions/{id}/messages", s.withUser(s.handleSessionMessages))

	mux.Handle("GET /api/v1/chat/ws", s.chatWS)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/version", s.handleVersion)

	return mux
}

// Start begins serving HTTP requests. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
	}

	s.logger.Info("starting API server", "address", s.address, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *identity.User)

// withUser resolves the calling user. In single-user mode every
// request acts as the seed user; otherwise a bearer access token is
// required.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.callerFor(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, user)
	}
}

func (s *Server) callerFor(r *http.Request) (*identity.User, error) {
	if s.singleUser {
		return s.users.SingleUser()
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("missing bearer token")
	}
	return s.resolver.FromToken(token)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": buildinfo.Uptime().Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Info())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
