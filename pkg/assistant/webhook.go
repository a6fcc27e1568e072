package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
	"github.com/imuii-id/imuii-portal/pkg/logging"
)

// maxReplyBytes caps how much of a webhook reply is read.
const maxReplyBytes = 1 << 20

type webhookMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

// Webhook forwards messages to an automation webhook that does the search.
type Webhook struct {
	url        string
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewWebhook creates a Webhook assistant posting to url.
func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxReplyBytes,
		logger:     logger.Named("assistant.webhook"),
	}
}

func (w *Webhook) Ask(ctx context.Context, sessionID, message string) (*Reply, error) {
	payload, err := json.Marshal([]webhookMessage{{
		Message:   message,
		SessionID: sessionID,
		Source:    Source,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.logger.Warn("Chatbot webhook unreachable",
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: chatbot: %s", apperrors.ErrTransport, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read chatbot reply: %s", apperrors.ErrTransport, err)
	}
	if int64(len(raw)) > w.maxBytes {
		w.logger.Error("Chatbot reply too large",
			zap.Int("status", resp.StatusCode),
			zap.Int64("limit", w.maxBytes))
		return nil, &apperrors.APIError{StatusCode: http.StatusBadGateway, Message: "chatbot reply too large"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := upstreamMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("Server error: %d", resp.StatusCode)
		}
		w.logger.Error("Chatbot webhook returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.TruncateString(string(raw), logging.MaxBodyLogLength)))
		// Upstream statuses are never the caller's own auth state, so they surface as 502.
		return nil, &apperrors.APIError{StatusCode: http.StatusBadGateway, Message: msg}
	}

	reply, err := decodeReply(raw)
	if err != nil {
		w.logger.Error("Chatbot reply is not JSON",
			zap.String("body", logging.TruncateString(string(raw), logging.MaxBodyLogLength)))
		return nil, &apperrors.APIError{StatusCode: http.StatusBadGateway, Message: "invalid chatbot reply"}
	}
	return reply, nil
}

// upstreamMessage reads message, then error, from an error body.
func upstreamMessage(raw []byte) string {
	obj, ok := jsonutil.AsObject(raw)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if s := jsonutil.FlexibleStringValue(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

var _ Assistant = (*Webhook)(nil)
