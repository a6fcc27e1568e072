package models

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugInvalid  = regexp.MustCompile(`[^\w-]+`)
	slugHyphens  = regexp.MustCompile(`-{2,}`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	uuidTextSize = len("00000000-0000-0000-0000-000000000000")
)

// Slugify makes a URL-friendly slug: lower case, whitespace runs become
// hyphens, anything outside [A-Za-z0-9_-] is dropped.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Slug is the slug of the display title.
func (i *Item) Slug() string {
	return Slugify(i.Title())
}

// IsUUID reports whether s is a canonical 36-character UUID.
func IsUUID(s string) bool {
	if len(s) != uuidTextSize {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsSlug reports whether s looks like a slug rather than an identifier.
func IsSlug(s string) bool {
	return s != "" && !IsUUID(s) && slugPattern.MatchString(strings.ToLower(s))
}
