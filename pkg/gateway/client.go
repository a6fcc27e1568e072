// Package gateway is the typed client for the portal's remote REST API.
// It attaches the caller's bearer token, maps failures onto apperrors and
// normalises the backend's response envelopes in one place.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
	"github.com/imuii-id/imuii-portal/pkg/logging"
)

// DefaultTimeout is the maximum time to wait for remote API responses.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Client provides access to the remote API under {baseURL}/api/v1.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new remote API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("gateway"),
	}
}

// request describes one call to the remote API.
type request struct {
	method   string
	segments []string
	query    url.Values
	body     any
}

// do executes a request and returns the raw 2xx body.
// Transport failures wrap apperrors.ErrTransport; non-2xx answers become
// *apperrors.APIError carrying the backend's message.
func (c *Client) do(ctx context.Context, req request) (json.RawMessage, error) {
	endpoint, err := buildURL(c.baseURL, append([]string{"api", "v1"}, req.segments...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token, ok := auth.GetToken(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Calling remote API",
		zap.String("method", req.method),
		zap.String("url", logging.SanitizeURL(endpoint)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", req.method, path.Join(req.segments...), ctxErr)
		}
		c.logger.Warn("Remote API unreachable",
			zap.String("method", req.method),
			zap.String("url", logging.SanitizeURL(endpoint)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s %s: %s", apperrors.ErrTransport, req.method, path.Join(req.segments...), logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %s", apperrors.ErrTransport, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apperrors.APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		fields := []zap.Field{
			zap.String("method", req.method),
			zap.String("url", logging.SanitizeURL(endpoint)),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.TruncateString(logging.SanitizeText(string(raw)), logging.MaxBodyLogLength)),
		}
		if resp.StatusCode >= 500 {
			c.logger.Error("Remote API returned error", fields...)
		} else {
			c.logger.Debug("Remote API rejected request", fields...)
		}
		return nil, apiErr
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	return raw, nil
}

// errorMessage pulls a human readable message out of an error body:
// {"message": ...}, {"error": "..."}, {"error": {"message": ...}}, or nothing.
func errorMessage(raw []byte) string {
	obj, ok := jsonutil.AsObject(raw)
	if !ok {
		return ""
	}
	if msg := jsonutil.FlexibleStringValue(obj["message"]); msg != "" {
		return msg
	}
	if nested, ok := jsonutil.AsObject(obj["error"]); ok {
		return jsonutil.FlexibleStringValue(nested["message"])
	}
	return jsonutil.FlexibleStringValue(obj["error"])
}

// decodeObject unwraps a single entity response into out.
func decodeObject(raw json.RawMessage, field string, out any) error {
	inner, ok := jsonutil.ExtractObject(raw, field)
	if !ok {
		return fmt.Errorf("unexpected %s response shape", field)
	}
	if err := json.Unmarshal(inner, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return nil
}

// pageQuery builds page/limit query parameters.
func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", baseURL)
	}

	escaped := make([]string, 0, len(pathSegments)+1)
	escaped = append(escaped, u.Path)
	for _, s := range pathSegments {
		if s == "" || s == "." || s == ".." {
			return "", fmt.Errorf("invalid path segment %q", s)
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	u.RawPath = ""
	joined := path.Join(escaped...)
	unescaped, err := url.PathUnescape(joined)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	u.Path = unescaped
	u.RawPath = joined
	return u.String(), nil
}
