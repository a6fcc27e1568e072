package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
		wantOK    bool
	}{
		{"", 0, 0, true},
		{"page=2&limit=20", 2, 20, true},
		{"limit=500", 0, maxPageLimit, true},
		{"page=0", 0, 0, false},
		{"page=-1", 0, 0, false},
		{"limit=abc", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/events?"+tt.query, nil)
			page, limit, ok := pagination(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestBoolParam(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes"} {
		req := httptest.NewRequest(http.MethodGet, "/api/showcase?refresh="+v, nil)
		assert.True(t, boolParam(req, "refresh"), v)
	}
	for _, v := range []string{"", "0", "false", "no", "maybe"} {
		req := httptest.NewRequest(http.MethodGet, "/api/showcase?refresh="+v, nil)
		assert.False(t, boolParam(req, "refresh"), v)
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	var gotOK bool
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		got, gotOK = id.String(), ok
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc-123", nil))
	assert.True(t, gotOK)
	assert.Equal(t, "abc-123", got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/%20%20", nil))
	assert.False(t, gotOK)
}
