package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver verifies bearer tokens and loads the users they belong to.
// Token issuance lives in the auth service; this server only validates
// HS256 access tokens signed with the shared secret.
type Resolver struct {
	store  *Store
	secret []byte
}

// NewResolver creates a token resolver backed by the given user store.
func NewResolver(store *Store, secret string) *Resolver {
	return &Resolver{store: store, secret: []byte(secret)}
}

type accessClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// FromToken resolves the active user an access token belongs to.
// Returns an error for malformed, expired, mistyped, or unknown-subject
// tokens.
func (r *Resolver) FromToken(token string) (*User, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims.Type != "access" {
		return nil, fmt.Errorf("not an access token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	user, err := r.store.Get(claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("unknown user")
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled")
	}
	return user, nil
}
