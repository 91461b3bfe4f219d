package gateway

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/mvanders/macroai/internal/agent"
	"github.com/mvanders/macroai/internal/checkpoint"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"
	"github.com/mvanders/macroai/internal/session"
	"github.com/mvanders/macroai/internal/tools"

	_ "github.com/mattn/go-sqlite3"
)

const testSecret = "ws-test-secret"

type testEnv struct {
	users    *identity.Store
	sessions *session.Store
	server   *httptest.Server
}

func newTestEnv(t *testing.T, singleUser bool) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	users, err := identity.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := session.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	checkpoints, err := checkpoint.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	ledger, err := nutrition.NewLedger(db)
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	registry := tools.NewRegistry(users, ledger, logger)
	loop := agent.NewLoop(logger, checkpoints, registry, 0)
	resolver := identity.NewResolver(users, testSecret)

	h := NewHandler(logger, resolver, users, sessions, loop, singleUser)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testEnv{users: users, sessions: sessions, server: srv}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func (e *testEnv) createUser(t *testing.T, email string, ai identity.AIConfig) *identity.User {
	t.Helper()
	u, err := e.users.Create(email, identity.Profile{DisplayName: "Test"}, identity.DefaultTargets(), ai)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func accessToken(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type": "access",
		"sub":  userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func readServerMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// mockOpenAI returns an OpenAI-compatible server streaming the given
// text as two SSE chunks.
func mockOpenAI(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		half := len(text) / 2
		fmt.Fprintf(w, "data: {\"model\":\"gpt-test\",\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", text[:half])
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", text[half:])
		fmt.Fprint(w, "data: {\"usage\":{\"prompt_tokens\":12,\"completion_tokens\":4},\"choices\":[]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNonAuthFirstFrameRejected(t *testing.T) {
	env := newTestEnv(t, false)
	conn := env.dial(t)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "chat.error" || msg.Code != CodeAuthRequired {
		t.Errorf("frame = %+v", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseUnauthorized) {
		t.Errorf("expected close %d, got %v", CloseUnauthorized, err)
	}
}

func TestBadTokenRejected(t *testing.T) {
	env := newTestEnv(t, false)
	conn := env.dial(t)

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "bogus"}); err != nil {
		t.Fatal(err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "chat.error" || msg.Code != CodeUnauthorized {
		t.Errorf("frame = %+v", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseUnauthorized) {
		t.Errorf("expected close %d, got %v", CloseUnauthorized, err)
	}
}

func TestAuthWithoutProviderConfigured(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.createUser(t, "a@b.c", identity.AIConfig{})
	conn := env.dial(t)

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": accessToken(t, user.ID)}); err != nil {
		t.Fatal(err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "chat.error" || msg.Code != CodeAINotConfigured {
		t.Errorf("frame = %+v", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestSingleUserPingPong(t *testing.T) {
	env := newTestEnv(t, true)
	env.createUser(t, identity.SingleUserEmail, identity.AIConfig{
		Provider: "openai", Model: "gpt-test",
	})
	conn := env.dial(t)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	msg := readServerMessage(t, conn)
	if msg.Type != "pong" {
		t.Errorf("frame = %+v", msg)
	}
}

func TestChatTurnStreamsAndCreatesSession(t *testing.T) {
	upstream := mockOpenAI(t, "Hello from the agent.")
	env := newTestEnv(t, true)
	user := env.createUser(t, identity.SingleUserEmail, identity.AIConfig{
		Provider: "custom", Model: "gpt-test", BaseURL: upstream.URL,
	})
	conn := env.dial(t)

	if err := conn.WriteJSON(map[string]string{"type": "chat.message", "content": "hi"}); err != nil {
		t.Fatal(err)
	}

	created := readServerMessage(t, conn)
	if created.Type != "chat.session_created" || created.SessionID == "" {
		t.Fatalf("first frame = %+v", created)
	}
	if created.Title != "hi" {
		t.Errorf("title = %q", created.Title)
	}

	var text strings.Builder
	for {
		msg := readServerMessage(t, conn)
		switch msg.Type {
		case "chat.token":
			if msg.SessionID != created.SessionID {
				t.Errorf("token carried session %q", msg.SessionID)
			}
			text.WriteString(msg.Content)
		case "chat.done":
			if got := text.String(); got != "Hello from the agent." {
				t.Errorf("streamed = %q", got)
			}
			// The session exists and belongs to the connection's user.
			sess, err := env.sessions.GetOwned(created.SessionID, user.ID)
			if err != nil || sess == nil {
				t.Errorf("session not persisted: %v", err)
			}
			return
		default:
			t.Fatalf("unexpected frame %+v", msg)
		}
	}
}

func TestChatMessageForeignSessionRejected(t *testing.T) {
	upstream := mockOpenAI(t, "ok")
	env := newTestEnv(t, true)
	env.createUser(t, identity.SingleUserEmail, identity.AIConfig{
		Provider: "custom", Model: "gpt-test", BaseURL: upstream.URL,
	})
	other := env.createUser(t, "other@b.c", identity.AIConfig{})
	foreign, err := env.sessions.Create(other.ID, "not yours")
	if err != nil {
		t.Fatal(err)
	}

	conn := env.dial(t)
	if err := conn.WriteJSON(map[string]string{
		"type": "chat.message", "content": "hi", "session_id": foreign.ID,
	}); err != nil {
		t.Fatal(err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "chat.error" || msg.Error != "Session not found" {
		t.Errorf("frame = %+v", msg)
	}
}

func TestTitleFrom(t *testing.T) {
	if got := titleFrom("short"); got != "short" {
		t.Errorf("title = %q", got)
	}
	long := strings.Repeat("x", 80)
	if got := titleFrom(long); len([]rune(got)) != 50 {
		t.Errorf("title length = %d", len([]rune(got)))
	}
}
