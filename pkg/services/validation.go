package services

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

const (
	titleMinLen       = 3
	titleMaxLen       = 100
	descriptionMinLen = 10
	descriptionMaxLen = 1000
)

// ValidateItemUpdate checks an edit before it is sent. Field keys match the
// JSON names of models.ItemUpdate.
func ValidateItemUpdate(u *models.ItemUpdate) error {
	fields := make(map[string]string)

	title := strings.TrimSpace(u.ShowcaseTitle)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		fields["showcase_title"] = "Title is required"
	case n < titleMinLen:
		fields["showcase_title"] = fmt.Sprintf("Title must be at least %d characters", titleMinLen)
	case n > titleMaxLen:
		fields["showcase_title"] = fmt.Sprintf("Title must be less than %d characters", titleMaxLen)
	}

	description := strings.TrimSpace(u.ShowcaseDescription)
	switch n := utf8.RuneCountInString(description); {
	case n == 0:
		fields["showcase_description"] = "Description is required"
	case n < descriptionMinLen:
		fields["showcase_description"] = fmt.Sprintf("Description must be at least %d characters", descriptionMinLen)
	case n > descriptionMaxLen:
		fields["showcase_description"] = fmt.Sprintf("Description must be less than %d characters", descriptionMaxLen)
	}

	if link := strings.TrimSpace(u.YoutubeLink); link != "" && !IsAbsoluteURL(link) {
		fields["youtube_link"] = "Please enter a valid URL"
	}
	if link := strings.TrimSpace(u.ThumbnailURL); link != "" && !IsAbsoluteURL(link) {
		fields["thumbnail_url"] = "Please enter a valid URL"
	}

	for i, m := range u.TeamMembers {
		if strings.TrimSpace(m.Name) == "" {
			fields[fmt.Sprintf("team_members[%d].name", i)] = "Team member name is required"
		}
	}

	if len(fields) > 0 {
		return &apperrors.ValidationError{Fields: fields}
	}
	return nil
}

// IsAbsoluteURL reports whether s parses as a URL with a scheme and a host
// or opaque part.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}
