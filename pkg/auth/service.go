package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/logging"
)

// DefaultTokenCookie is the cookie the SSO web app sets after login.
const DefaultTokenCookie = "imuii-token"

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// ValidateRequest finds the SSO token (cookie first, then a Bearer
	// header sent by clients that keep the token in local storage) and
	// validates it, returning the claims and the raw token.
	ValidateRequest(r *http.Request) (*Claims, string, error)
}

type authService struct {
	validator  TokenValidator
	cookieName string
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService reading the token from cookieName.
func NewAuthService(validator TokenValidator, cookieName string, logger *zap.Logger) AuthService {
	if cookieName == "" {
		cookieName = DefaultTokenCookie
	}
	return &authService{
		validator:  validator,
		cookieName: cookieName,
		logger:     logger.Named("auth"),
	}
}

// tokenSource names where a request's token was found.
type tokenSource string

const (
	sourceCookie tokenSource = "cookie"
	sourceHeader tokenSource = "header"
)

// extractToken reads the SSO token from the token cookie, then from an
// Authorization header. The Bearer scheme matches case-insensitively; a
// blank cookie counts as absent.
func (s *authService) extractToken(r *http.Request) (string, tokenSource, error) {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, sourceCookie, nil
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", "", ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "", ErrInvalidAuthFormat
	}
	return token, sourceHeader, nil
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	token, source, err := s.extractToken(r)
	if errors.Is(err, ErrInvalidAuthFormat) {
		s.logger.Debug("Unusable Authorization header", zap.String("path", r.URL.Path))
	}
	if err != nil {
		return nil, "", err
	}

	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		s.logger.Debug("Token rejected",
			zap.String("path", r.URL.Path),
			zap.String("token_source", string(source)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, "", err
	}
	return claims, token, nil
}

var _ AuthService = (*authService)(nil)
