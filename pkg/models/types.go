// Package models contains the portal's domain types as the remote API sends them.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
)

// ID is a resource identifier. The backend sends some ids as numbers and
// others as strings; both decode to the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID(jsonutil.FlexibleStringValue(data))
	return nil
}

func (id ID) String() string {
	return string(id)
}

// timestampLayouts are tried in order when decoding a string timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp decodes the timestamp formats seen from the backend.
// Missing or unparseable values become the zero time, which marshals as null
// and sorts as epoch 0.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	if jsonutil.IsNull(data) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numeric values are unix milliseconds
		var ms float64
		if err := json.Unmarshal(data, &ms); err == nil {
			t.Time = time.UnixMilli(int64(ms)).UTC()
		}
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// SortKey returns unix milliseconds, 0 for the zero time.
func (t Timestamp) SortKey() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Page is one page of a normalised list response.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
