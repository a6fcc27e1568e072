package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/imuii-id/imuii-portal/pkg/models"
)

// maxPageLimit caps the limit query parameter.
const maxPageLimit = 100

// pathID returns a non-empty path parameter.
func pathID(r *http.Request, name string) (models.ID, bool) {
	v := strings.TrimSpace(r.PathValue(name))
	if v == "" || strings.ContainsAny(v, "/?#") {
		return "", false
	}
	return models.ID(v), true
}

// pagination reads page and limit; zero means "use the default".
func pagination(r *http.Request) (page, limit int, ok bool) {
	q := r.URL.Query()
	if page, ok = positiveInt(q.Get("page")); !ok {
		return 0, 0, false
	}
	if limit, ok = positiveInt(q.Get("limit")); !ok {
		return 0, 0, false
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, true
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// boolParam accepts 1/true/yes.
func boolParam(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
