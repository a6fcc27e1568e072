package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	login       LoginRedirect
	cookie      TokenCookie
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, login LoginRedirect, cookie TokenCookie, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		login:       login,
		cookie:      cookie,
		logger:      logger,
	}
}

// RequireAuth validates the token and sets claims and token in context for
// downstream handlers. Requests without a usable token get a 401 carrying
// the login URL; a present but rejected token is also cleared.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			if !errors.Is(err, ErrMissingAuthorization) {
				m.cookie.Clear(w)
			}
			m.Unauthorized(w, r, "Authentication required")
			return
		}

		next(w, r.WithContext(WithToken(r.Context(), token, claims)))
	}
}

// OptionalAuth forwards the token when a valid one is present and lets
// anonymous requests through unchanged.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err == nil {
			r = r.WithContext(WithToken(r.Context(), token, claims))
		}
		next(w, r)
	}
}

// Unauthorized writes a 401 with the URL the browser should navigate to.
func (m *Middleware) Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":     "unauthorized",
		"message":   message,
		"login_url": m.login.LoginURL(ReturnPathFromReferer(r)),
	}); err != nil {
		m.logger.Error("Failed to write unauthorized response", zap.Error(err))
	}
}
