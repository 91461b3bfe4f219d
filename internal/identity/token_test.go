package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestFromTokenResolvesUser(t *testing.T) {
	s, _ := openTestStore(t)
	u, _ := s.Create("a@b.c", Profile{}, DefaultTargets(), AIConfig{})
	r := NewResolver(s, testSecret)

	token := signToken(t, jwt.MapClaims{
		"type": "access",
		"sub":  u.ID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	got, err := r.FromToken(token)
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("resolved %q, want %q", got.ID, u.ID)
	}
}

func TestFromTokenRejections(t *testing.T) {
	s, db := openTestStore(t)
	u, _ := s.Create("a@b.c", Profile{}, DefaultTargets(), AIConfig{})
	r := NewResolver(s, testSecret)

	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", signToken(t, jwt.MapClaims{"type": "access", "sub": u.ID, "exp": exp}, "other-secret")},
		{"expired", signToken(t, jwt.MapClaims{"type": "access", "sub": u.ID, "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)},
		{"refresh token", signToken(t, jwt.MapClaims{"type": "refresh", "sub": u.ID, "exp": exp}, testSecret)},
		{"missing subject", signToken(t, jwt.MapClaims{"type": "access", "exp": exp}, testSecret)},
		{"unknown subject", signToken(t, jwt.MapClaims{"type": "access", "sub": "ghost", "exp": exp}, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.FromToken(tt.token); err == nil {
				t.Error("expected rejection")
			}
		})
	}

	// Deactivated users are rejected even with a valid token.
	if _, err := db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, u.ID); err != nil {
		t.Fatal(err)
	}
	token := signToken(t, jwt.MapClaims{"type": "access", "sub": u.ID, "exp": exp}, testSecret)
	if _, err := r.FromToken(token); err == nil {
		t.Error("expected rejection for inactive user")
	}
}
