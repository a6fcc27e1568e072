package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
)

func TestWebhook_Ask(t *testing.T) {
	var got []webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"success":true,"message":"Found 1 project","projects":[{"id":7,"name":"Smart Farm","tags":["iot"],"repo_url":"https://github.com/x/y"}]}]`))
	}))
	defer server.Close()

	reply, err := NewWebhook(server.URL, 0, zap.NewNop()).Ask(context.Background(), "chatbot-1-abc", "iot projects")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, webhookMessage{Message: "iot projects", SessionID: "chatbot-1-abc", Source: "portal.imuii.id"}, got[0])

	assert.True(t, reply.Success)
	assert.Equal(t, "Found 1 project", reply.Message)
	require.Len(t, reply.Projects, 1)
	assert.Equal(t, "7", reply.Projects[0].ID.String())
	assert.Equal(t, "Smart Farm", reply.Projects[0].Title)
	assert.Equal(t, []string{"iot"}, reply.Projects[0].Tags)
}

func TestWebhook_ReplyShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		count   int
	}{
		{"bare object", `{"success":true,"message":"hi"}`, "hi", 0},
		{"empty array", `[]`, "", 0},
		{"title wins over name", `{"message":"m","projects":[{"id":"a","title":"T","name":"N"}]}`, "m", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			reply, err := NewWebhook(server.URL, 0, zap.NewNop()).Ask(context.Background(), "s", "q")
			require.NoError(t, err)
			assert.Equal(t, tt.message, reply.Message)
			assert.Len(t, reply.Projects, tt.count)
			assert.NotNil(t, reply.Projects)
		})
	}
}

func TestWebhook_ServerErrorMessagePassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Workflow could not be started"}`))
	}))
	defer server.Close()

	_, err := NewWebhook(server.URL, 0, zap.NewNop()).Ask(context.Background(), "s", "q")

	var apiErr *apperrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Workflow could not be started", apiErr.Message)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestWebhook_OversizedReplyRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":"` + strings.Repeat("x", 64) + `"}`))
	}))
	defer server.Close()

	hook := NewWebhook(server.URL, 0, zap.NewNop())
	hook.maxBytes = 32
	_, err := hook.Ask(context.Background(), "s", "q")

	var apiErr *apperrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "chatbot reply too large", apiErr.Message)

	hook.maxBytes = maxReplyBytes
	reply, err := hook.Ask(context.Background(), "s", "q")
	require.NoError(t, err)
	assert.True(t, reply.Success)
}

func TestWebhook_UpstreamUnauthorizedIsNotSessionLoss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewWebhook(server.URL, 0, zap.NewNop()).Ask(context.Background(), "s", "q")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, "Server error: 401", err.Error())
}

func TestWebhook_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewWebhook(url, 0, zap.NewNop()).Ask(context.Background(), "s", "q")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}
