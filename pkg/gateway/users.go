package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// VerifyUser asks the backend who owns the current token.
// GET /users/verify answers {"authenticated": bool, "user": {...}}; an
// unauthenticated answer is reported as apperrors.ErrUnauthorized.
func (c *Client) VerifyUser(ctx context.Context) (*models.User, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"users", "verify"}})
	if err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}

	var v models.Verification
	if err := json.Unmarshal(jsonutil.UnwrapData(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}
	if !v.Authenticated || v.User == nil || v.User.ID == "" {
		return nil, fmt.Errorf("verify user: %w", apperrors.ErrUnauthorized)
	}
	return v.User, nil
}

// GetUser fetches a user's public profile.
// GET /users/{id}
func (c *Client) GetUser(ctx context.Context, id models.ID) (*models.User, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"users", id.String()}})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	var user models.User
	if err := decodeObject(raw, "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
