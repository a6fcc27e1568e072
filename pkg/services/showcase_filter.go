package services

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/imuii-id/imuii-portal/pkg/models"
)

// SortKey selects the order of the showcase feed.
type SortKey string

const (
	SortNewest         SortKey = "newest"
	SortOldest         SortKey = "oldest"
	SortAlphabeticalAZ SortKey = "alphabetical-az"
	SortAlphabeticalZA SortKey = "alphabetical-za"
)

// FilterAll disables the type or owner filter.
const FilterAll = "all"

// ShowcaseFilter holds the visitor's search, filter and sort choices.
type ShowcaseFilter struct {
	Query string
	Type  string // all | project | portfolio
	Owner string // all | <owner id>
	Sort  SortKey
}

// matchesQuery is a case-insensitive substring test over the given fields.
func matchesQuery(query string, fields ...string) bool {
	folder := cases.Fold() // a Caser must not be shared between goroutines
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(folder.String(f), q) {
			return true
		}
	}
	return false
}

func ownerName(item *models.Item) string {
	if owner := item.OwnerRef(); owner != nil {
		return owner.Name
	}
	return ""
}

// ApplyShowcaseFilter returns a new slice with the matching items in the
// requested order; items is left untouched.
func ApplyShowcaseFilter(items []models.ShowcaseItem, f ShowcaseFilter) []models.ShowcaseItem {
	out := make([]models.ShowcaseItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if f.Type != "" && f.Type != FilterAll && string(item.Type) != f.Type {
			continue
		}
		if f.Owner != "" && f.Owner != FilterAll {
			owner := item.OwnerRef()
			if owner == nil || owner.ID.String() != f.Owner {
				continue
			}
		}
		if !matchesQuery(f.Query, item.RawTitle(), item.Summary(), ownerName(&item.Item)) {
			continue
		}
		out = append(out, *item)
	}
	SortShowcase(out, f.Sort)
	return out
}

// SortShowcase sorts in place. Every order is stable so equal keys keep
// their input order; unknown keys leave the order unchanged.
func SortShowcase(items []models.ShowcaseItem, key SortKey) {
	switch key {
	case SortNewest:
		slices.SortStableFunc(items, func(a, b models.ShowcaseItem) int {
			return compareInt64(b.SortTime(), a.SortTime())
		})
	case SortOldest:
		slices.SortStableFunc(items, func(a, b models.ShowcaseItem) int {
			return compareInt64(a.SortTime(), b.SortTime())
		})
	case SortAlphabeticalAZ, SortAlphabeticalZA:
		col := collate.New(language.Und, collate.IgnoreCase)
		dir := 1
		if key == SortAlphabeticalZA {
			dir = -1
		}
		slices.SortStableFunc(items, func(a, b models.ShowcaseItem) int {
			return dir * col.CompareString(a.RawTitle(), b.RawTitle())
		})
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Owners lists the distinct owners of items in first-seen order, keyed by id.
// Items without an owner id are skipped.
func Owners(items []models.ShowcaseItem) []models.User {
	seen := make(map[models.ID]bool)
	var owners []models.User
	for i := range items {
		owner := items[i].OwnerRef()
		if owner == nil || owner.ID == "" || seen[owner.ID] {
			continue
		}
		seen[owner.ID] = true
		owners = append(owners, *owner)
	}
	return owners
}

// FilterEvents keeps events whose name or description contains query.
func FilterEvents(events []models.Event, query string) []models.Event {
	if strings.TrimSpace(query) == "" {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if matchesQuery(query, ev.Name, ev.Description) {
			out = append(out, ev)
		}
	}
	return out
}
