package api

import (
	"encoding/json"
	"net/http"

	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/session"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type chatMessageOut struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, user *identity.User) {
	sessions, err := s.sessions.List(user.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, user *identity.User) {
	req := createSessionRequest{Title: "New Chat"}
	if r.Body != nil {
		// An empty body keeps the default title.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}

	sess, err := s.sessions.Create(user.ID, req.Title)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not create session")
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, user *identity.User) {
	id := r.PathValue("id")

	sess, err := s.sessions.GetOwned(id, user.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if sess == nil {
		s.errorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := s.sessions.Delete(id, user.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	if err := s.checkpoint.Delete(id); err != nil {
		s.logger.Warn("checkpoint delete failed", "session", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionMessages returns the user-visible transcript for a
// session: user messages and non-empty assistant messages, in order.
// Tool traffic stays internal.
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request, user *identity.User) {
	id := r.PathValue("id")

	sess, err := s.sessions.GetOwned(id, user.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if sess == nil {
		s.errorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	history, err := s.checkpoint.Load(id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "could not load messages")
		return
	}

	out := []chatMessageOut{}
	for _, m := range history {
		switch {
		case m.Role == "user":
			out = append(out, chatMessageOut{Role: "user", Content: m.Content})
		case m.Role == "assistant" && m.Content != "":
			out = append(out, chatMessageOut{Role: "assistant", Content: m.Content})
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}
