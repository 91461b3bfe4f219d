package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvanders/macroai/internal/checkpoint"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/llm"
	"github.com/mvanders/macroai/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

type apiEnv struct {
	users       *identity.Store
	sessions    *session.Store
	checkpoints *checkpoint.Store
	server      *httptest.Server
	user        *identity.User
}

func newAPIEnv(t *testing.T) *apiEnv {
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

	user, err := users.Create(identity.SingleUserEmail, identity.Profile{DisplayName: "Solo"}, identity.DefaultTargets(), identity.AIConfig{})
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	resolver := identity.NewResolver(users, "api-test-secret")
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})

	s := NewServer("127.0.0.1", 0, logger, resolver, users, sessions, checkpoints, ws, true)
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	return &apiEnv{users: users, sessions: sessions, checkpoints: checkpoints, server: srv, user: user}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCreateAndListSessions(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, "GET", "/api/v1/chat/sessions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if got := decode[[]session.Session](t, resp); len(got) != 0 {
		t.Errorf("fresh list = %d sessions", len(got))
	}

	resp = env.do(t, "POST", "/api/v1/chat/sessions", map[string]string{"title": "Cutting plan"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[session.Session](t, resp)
	if created.ID == "" || created.Title != "Cutting plan" {
		t.Errorf("created = %+v", created)
	}

	resp = env.do(t, "GET", "/api/v1/chat/sessions", nil)
	if got := decode[[]session.Session](t, resp); len(got) != 1 || got[0].ID != created.ID {
		t.Errorf("list after create = %+v", got)
	}
}

func TestCreateSessionDefaultTitle(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, "POST", "/api/v1/chat/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[session.Session](t, resp); got.Title != "New Chat" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newAPIEnv(t)
	sess, err := env.sessions.Create(env.user.ID, "doomed")
	if err != nil {
		t.Fatal(err)
	}
	if err := env.checkpoints.Save(sess.ID, []llm.Message{{Role: "user", Content: "hi"}}, nil); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, "DELETE", "/api/v1/chat/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	got, err := env.sessions.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("session still present")
	}
	history, err := env.checkpoints.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if history != nil {
		t.Error("checkpoint still present")
	}

	resp = env.do(t, "DELETE", "/api/v1/chat/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
}

func TestDeleteForeignSession(t *testing.T) {
	env := newAPIEnv(t)
	other, err := env.users.Create("other@b.c", identity.Profile{}, identity.DefaultTargets(), identity.AIConfig{})
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := env.sessions.Create(other.ID, "not yours")
	if err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, "DELETE", "/api/v1/chat/sessions/"+foreign.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if got, _ := env.sessions.Get(foreign.ID); got == nil {
		t.Error("foreign session was deleted")
	}
}

func TestSessionMessagesFiltersToolTraffic(t *testing.T) {
	env := newAPIEnv(t)
	sess, err := env.sessions.Create(env.user.ID, "transcript")
	if err != nil {
		t.Fatal(err)
	}
	history := []llm.Message{
		{Role: "user", Content: "how much protein today?"},
		{Role: "assistant", Content: "", ToolCalls: []llm.ToolCall{{ID: "t1", Name: "get_daily_totals"}}},
		{Role: "tool", Content: "120g protein", ToolCallID: "t1", ToolName: "get_daily_totals"},
		{Role: "assistant", Content: "You are at 120g so far."},
	}
	if err := env.checkpoints.Save(sess.ID, history, nil); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, "GET", "/api/v1/chat/sessions/"+sess.ID+"/messages", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[[]chatMessageOut](t, resp)
	if len(got) != 2 {
		t.Fatalf("messages = %+v", got)
	}
	if got[0].Role != "user" || got[1].Role != "assistant" || got[1].Content != "You are at 120g so far." {
		t.Errorf("messages = %+v", got)
	}
}

func TestSessionMessagesNotFound(t *testing.T) {
	env := newAPIEnv(t)
	resp := env.do(t, "GET", "/api/v1/chat/sessions/nope/messages", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthAndVersion(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, "GET", "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	health := decode[map[string]string](t, resp)
	if health["status"] != "ok" {
		t.Errorf("health = %+v", health)
	}

	resp = env.do(t, "GET", "/api/v1/version", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("version status = %d", resp.StatusCode)
	}
	info := decode[map[string]string](t, resp)
	if info["version"] == "" {
		t.Errorf("version = %+v", info)
	}
}
