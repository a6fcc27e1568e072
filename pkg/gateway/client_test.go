package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop())
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"p1","name":"Lentera"}`))
	})

	ctx := auth.WithToken(context.Background(), "tok-123", nil)
	item, err := client.GetItem(ctx, models.ItemTypeProject, "p1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/api/v1/projects/p1", gotPath)
	assert.Equal(t, "Lentera", item.Name)
}

func TestClient_AnonymousCallHasNoAuthorization(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.ListShowcase(context.Background(), models.ItemTypeProject, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		sentinel  error
		wantMsg   string
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, apperrors.ErrUnauthorized, "token expired", false},
		{"forbidden", http.StatusForbidden, `{"error":"not your project"}`, apperrors.ErrForbidden, "not your project", false},
		{"not found", http.StatusNotFound, `{"success":false,"error":{"message":"no such project"}}`, apperrors.ErrNotFound, "no such project", false},
		{"server error", http.StatusInternalServerError, `oops`, nil, "server returned status 500", true},
		{"conflict passes message", http.StatusConflict, `{"message":"Project already registered"}`, nil, "Project already registered", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetItem(context.Background(), models.ItemTypeProject, "p1")
			require.Error(t, err)

			var apiErr *apperrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Error())
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	client := NewClient(url, time.Second, zap.New(core))

	_, err := client.ListEvents(context.Background(), EventQuery{Status: "active", Page: 1, Limit: 25})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, logs.FilterMessage("Remote API unreachable").Len())
}

func TestClient_CanceledContextIsNotTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListEvents(ctx, EventQuery{Page: 1, Limit: 25})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrTransport)
}

func TestClient_RegisterAndUnregister(t *testing.T) {
	var calls []string
	var body map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := auth.WithToken(context.Background(), "tok", nil)
	require.NoError(t, client.RegisterProject(ctx, "e1", "p9"))
	require.NoError(t, client.UnregisterProject(ctx, "e1", "p9"))

	assert.Equal(t, []string{
		"POST /api/v1/events/e1/register",
		"DELETE /api/v1/events/e1/projects/p9",
	}, calls)
	assert.Equal(t, "p9", body["project_id"])
}

func TestClient_ListEventsQuery(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"events":[{"id":"e1","status":"active"}],"total":7,"page":2,"limit":1}`))
	})

	page, err := client.ListEvents(context.Background(), EventQuery{Status: "active", Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "limit=1&page=2&status=active", query)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.EventActive, page.Items[0].Status)

	_, err = client.ListEvents(context.Background(), EventQuery{Status: "all", Page: 1, Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, "limit=25&page=1", query)
}

func TestClient_VerifyUser(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  models.ID
		wantErr error
	}{
		{"authenticated", `{"authenticated":true,"user":{"id":42,"name":"Sari"}}`, "42", nil},
		{"wrapped", `{"success":true,"data":{"authenticated":true,"user":{"id":"u1"}}}`, "u1", nil},
		{"not authenticated", `{"authenticated":false,"user":null}`, "", apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/users/verify", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			user, err := client.VerifyUser(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, user.ID)
		})
	}
}

func TestClient_UpdateItemRefetchesOnEmptyBody(t *testing.T) {
	var methods []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"f1","showcase_title":"New"}}`))
	})

	item, err := client.UpdateItem(context.Background(), models.ItemTypePortfolio, "f1", map[string]bool{"is_showcased": false})
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPut, http.MethodGet}, methods)
	assert.Equal(t, "New", item.Title())
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("https://api.imuii.id/base/", "api", "v1", "projects", "a/b")
	require.NoError(t, err)
	assert.Equal(t, "https://api.imuii.id/base/api/v1/projects/a%2Fb", got)

	_, err = buildURL("https://api.imuii.id", "projects", "..")
	assert.Error(t, err)

	_, err = buildURL("not a url", "x")
	assert.Error(t, err)
}
