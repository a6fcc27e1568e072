package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedPut struct {
	method       string
	path         string
	contentType  string
	cacheControl string
	ifNoneMatch  string
	body         string
}

func newTestStore(t *testing.T, status int) (*S3Store, *recordedPut) {
	t.Helper()
	var (
		mu  sync.Mutex
		got recordedPut
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = recordedPut{
			method:       r.Method,
			path:         r.URL.Path,
			contentType:  r.Header.Get("Content-Type"),
			cacheControl: r.Header.Get("Cache-Control"),
			ifNoneMatch:  r.Header.Get("If-None-Match"),
			body:         string(body),
		}
		mu.Unlock()
		if status == http.StatusPreconditionFailed {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	store, err := NewS3Store(context.Background(), Config{
		Endpoint:        server.URL,
		Region:          "auto",
		Bucket:          "thumbnails-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		PublicBaseURL:   "https://cdn.example.com/storage/v1/object/public/",
	}, zap.NewNop())
	require.NoError(t, err)
	return store, &got
}

func TestS3Store_Put(t *testing.T) {
	store, got := newTestStore(t, http.StatusOK)

	url, err := store.Put(context.Background(), "thumbnails/projects/p1/1700000000000-abc1234.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/thumbnails-bucket/thumbnails/projects/p1/1700000000000-abc1234.png", url)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/thumbnails-bucket/thumbnails/projects/p1/1700000000000-abc1234.png", got.path)
	assert.Equal(t, "image/png", got.contentType)
	assert.Equal(t, "max-age=3600", got.cacheControl)
	assert.Equal(t, "*", got.ifNoneMatch)
	assert.Contains(t, got.body, "png-bytes")
}

func TestS3Store_PutExistingKey(t *testing.T) {
	store, _ := newTestStore(t, http.StatusPreconditionFailed)

	_, err := store.Put(context.Background(), "thumbnails/projects/p1/x.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{Region: "auto"}, zap.NewNop())
	assert.Error(t, err)
}
