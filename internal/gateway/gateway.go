// Package gateway implements the WebSocket chat endpoint: connection
// auth, session routing, and token streaming for agent turns.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mvanders/macroai/internal/agent"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/llm"
	"github.com/mvanders/macroai/internal/session"
)

// CloseUnauthorized is the close code sent when the auth handshake
// fails. It sits in the 4000-4999 range reserved for applications.
const CloseUnauthorized = 4001

// authTimeout bounds how long a connection may sit unauthenticated.
const authTimeout = 10 * time.Second

// maxMessageBytes caps inbound frames. Chat messages are small; this
// mostly guards against misbehaving clients.
const maxMessageBytes = 1 << 20

// Error codes carried on chat.error frames.
const (
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeAINotConfigured = "AI_NOT_CONFIGURED"
)

// clientMessage is any frame a client may send.
type clientMessage struct {
	Type      string `json:"type"` // auth, ping, chat.message
	Token     string `json:"token,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// serverMessage is any frame the server may send.
type serverMessage struct {
	Type      string `json:"type"` // pong, chat.token, chat.done, chat.error, chat.session_created
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Handler upgrades chat connections and runs the per-connection loop.
type Handler struct {
	logger     *slog.Logger
	resolver   *identity.Resolver
	users      *identity.Store
	sessions   *session.Store
	loop       *agent.Loop
	singleUser bool
	upgrader   websocket.Upgrader
}

// NewHandler creates the WebSocket chat handler. In single-user mode
// the auth handshake is skipped and every connection acts as the seed
// user.
func NewHandler(logger *slog.Logger, resolver *identity.Resolver, users *identity.Store, sessions *session.Store, loop *agent.Loop, singleUser bool) *Handler {
	return &Handler{
		logger:     logger,
		resolver:   resolver,
		users:      users,
		sessions:   sessions,
		loop:       loop,
		singleUser: singleUser,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// Browsers cannot set headers on WebSocket dials, so auth
			// happens in-band on the first frame instead of via origin
			// or header checks.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and hands it to the session loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("connection handler panicked", "panic", rec, "remote", r.RemoteAddr)
		}
	}()

	h.serve(r.Context(), conn, r.RemoteAddr)
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, remote string) {
	user, ok := h.authenticate(conn, remote)
	if !ok {
		return
	}

	provider := user.Provider()
	if !provider.Configured() {
		h.send(conn, serverMessage{
			Type:  "chat.error",
			Error: "AI provider not configured. Go to Settings to add your API key.",
			Code:  CodeAINotConfigured,
		})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "not configured"))
		return
	}

	client, err := llm.New(provider, h.logger)
	if err != nil {
		h.send(conn, serverMessage{
			Type:  "chat.error",
			Error: err.Error(),
			Code:  CodeAINotConfigured,
		})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "not configured"))
		return
	}

	h.logger.Info("chat connection established", "user", user.ID, "remote", remote)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("connection closed", "user", user.ID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			h.send(conn, serverMessage{Type: "pong"})
		case "chat.message":
			h.handleChatMessage(ctx, conn, client, user, msg)
		default:
			h.logger.Debug("ignoring unknown message type", "type", msg.Type, "user", user.ID)
		}
	}
}

// authenticate resolves the connection's user. Outside single-user
// mode the first frame must be an auth message carrying a valid access
// token; anything else closes the connection with CloseUnauthorized.
func (h *Handler) authenticate(conn *websocket.Conn, remote string) (*identity.User, bool) {
	if h.singleUser {
		user, err := h.users.SingleUser()
		if err != nil {
			h.logger.Error("single-user lookup failed", "error", err)
			h.closeWith(conn, CloseUnauthorized, "no user")
			return nil, false
		}
		return user, true
	}

	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg clientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		h.closeWith(conn, CloseUnauthorized, "auth failed")
		return nil, false
	}

	if msg.Type != "auth" || msg.Token == "" {
		h.send(conn, serverMessage{
			Type:  "chat.error",
			Error: "First message must be auth",
			Code:  CodeAuthRequired,
		})
		h.closeWith(conn, CloseUnauthorized, "missing auth")
		return nil, false
	}

	user, err := h.resolver.FromToken(msg.Token)
	if err != nil {
		h.logger.Debug("token rejected", "error", err, "remote", remote)
		h.send(conn, serverMessage{
			Type:  "chat.error",
			Error: "Invalid or expired token",
			Code:  CodeUnauthorized,
		})
		h.closeWith(conn, CloseUnauthorized, "unauthorized")
		return nil, false
	}

	return user, true
}

func (h *Handler) handleChatMessage(ctx context.Context, conn *websocket.Conn, client llm.Client, user *identity.User, msg clientMessage) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sess, err := h.sessions.Create(user.ID, titleFrom(content))
		if err != nil {
			h.send(conn, serverMessage{Type: "chat.error", Error: "could not create session"})
			return
		}
		sessionID = sess.ID
		h.send(conn, serverMessage{
			Type:      "chat.session_created",
			SessionID: sessionID,
			Title:     sess.Title,
		})
	} else {
		sess, err := h.sessions.GetOwned(sessionID, user.ID)
		if err != nil || sess == nil {
			h.send(conn, serverMessage{
				Type:      "chat.error",
				Error:     "Session not found",
				SessionID: sessionID,
			})
			return
		}
		if err := h.sessions.Touch(sessionID); err != nil {
			h.logger.Warn("session touch failed", "session", sessionID, "error", err)
		}
	}

	onToken := func(token string) {
		h.send(conn, serverMessage{
			Type:      "chat.token",
			Content:   token,
			SessionID: sessionID,
		})
	}

	_, err := h.loop.RunTurn(ctx, client, user.Provider().Model, user, sessionID, content, onToken)
	if err != nil {
		h.logger.Error("chat turn failed", "user", user.ID, "session", sessionID, "error", err)
		h.send(conn, serverMessage{
			Type:      "chat.error",
			Error:     err.Error(),
			SessionID: sessionID,
		})
		return
	}

	h.send(conn, serverMessage{Type: "chat.done", SessionID: sessionID})
}

func (h *Handler) send(conn *websocket.Conn, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal outbound frame", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("write failed", "error", err)
	}
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// titleFrom derives a new session's title from its first message.
func titleFrom(content string) string {
	runes := []rune(content)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return content
}
