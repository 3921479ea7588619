package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingIdentityToken indicates that no bearer token was configured for the client.
	ErrMissingIdentityToken = errors.New("identity: token required")
	// ErrInvalidIdentityToken indicates that the bearer token could not be parsed or carries no subject.
	ErrInvalidIdentityToken = errors.New("identity: invalid token")
)

// Identity supplies the acting user's identifier.
type Identity interface {
	CurrentUserID() string
}

// StaticIdentity is a fixed user identifier.
type StaticIdentity string

// CurrentUserID returns the fixed identifier.
func (s StaticIdentity) CurrentUserID() string {
	return string(s)
}

// TokenIdentity derives the acting user from the subject of a bearer token.
// The signature is not checked here; the document store validates every request.
type TokenIdentity struct {
	token  string
	userID string
}

// NewTokenIdentity parses token and returns an Identity bound to its subject claim.
func NewTokenIdentity(token string) (*TokenIdentity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrMissingIdentityToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(trimmed, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentityToken, err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidIdentityToken)
	}
	return &TokenIdentity{token: trimmed, userID: subject}, nil
}

// CurrentUserID returns the token subject.
func (t *TokenIdentity) CurrentUserID() string {
	return t.userID
}

// Token returns the raw bearer token.
func (t *TokenIdentity) Token() string {
	return t.token
}
