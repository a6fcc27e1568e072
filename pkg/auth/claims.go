// Package auth reads the SSO token from requests, validates it locally and
// builds the login redirects of the single sign-on flow.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims is the payload of the SSO token. Only the standard claims are
// relied on; identity comes from the backend's verify endpoint.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// WithToken returns a context carrying the token and its claims.
func WithToken(ctx context.Context, token string, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, TokenKey, token)
	if claims != nil {
		ctx = context.WithValue(ctx, ClaimsKey, claims)
	}
	return ctx
}
