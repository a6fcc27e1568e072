package models

import (
	"encoding/json"
	"fmt"

	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
)

// ItemType discriminates showcase entries.
type ItemType string

const (
	ItemTypeProject   ItemType = "project"
	ItemTypePortfolio ItemType = "portfolio"
)

// Plural returns the resource collection name used in API paths and storage keys.
func (t ItemType) Plural() string {
	return string(t) + "s"
}

// ParseItemType accepts either the singular or the plural form.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "project", "projects":
		return ItemTypeProject, nil
	case "portfolio", "portfolios":
		return ItemTypePortfolio, nil
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// TeamMember is a contributor listed on an item.
type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Item holds the fields shared by projects and portfolios.
// Projects reference their owner through owner/owner_id, portfolios through user/user_id.
type Item struct {
	ID                  ID           `json:"id"`
	Name                string       `json:"name,omitempty"`
	Description         string       `json:"description,omitempty"`
	ShowcaseTitle       string       `json:"showcase_title,omitempty"`
	ShowcaseDescription string       `json:"showcase_description,omitempty"`
	ThumbnailURL        string       `json:"thumbnail_url,omitempty"`
	DeployURL           string       `json:"deploy_url,omitempty"`
	RepoURL             string       `json:"repo_url,omitempty"`
	YoutubeLink         string       `json:"youtube_link,omitempty"`
	Status              string       `json:"status,omitempty"`
	Tags                []string     `json:"tags,omitempty"`
	TeamMembers         []TeamMember `json:"team_members,omitempty"`
	IsShowcased         *bool        `json:"is_showcased,omitempty"`
	Owner               *User        `json:"owner,omitempty"`
	OwnerID             ID           `json:"owner_id,omitempty"`
	User                *User        `json:"user,omitempty"`
	UserID              ID           `json:"user_id,omitempty"`
	RegisteredAt        Timestamp    `json:"registered_at,omitzero"`
	CreatedAt           Timestamp    `json:"created_at,omitzero"`
	UpdatedAt           Timestamp    `json:"updated_at,omitzero"`
}

// UnmarshalJSON decodes an item leniently. The backend sends tags as an
// array or a comma-separated string, team_members as an array or a
// JSON-encoded string, and is_showcased as a boolean or 0/1. Values that
// cannot be read leave the field empty instead of failing the item.
func (i *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	aux := struct {
		*plain
		Tags        json.RawMessage `json:"tags"`
		TeamMembers json.RawMessage `json:"team_members"`
		IsShowcased json.RawMessage `json:"is_showcased"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	i.Tags = jsonutil.FlexibleStringList(aux.Tags)
	i.TeamMembers = decodeTeamMembers(aux.TeamMembers)
	i.IsShowcased = nil
	if v, ok := jsonutil.FlexibleBoolValue(aux.IsShowcased); ok {
		i.IsShowcased = &v
	}
	return nil
}

// decodeTeamMembers accepts member objects or bare names.
func decodeTeamMembers(raw json.RawMessage) []TeamMember {
	elems, ok := jsonutil.FlexibleArray(raw)
	if !ok {
		return nil
	}
	members := make([]TeamMember, 0, len(elems))
	for _, elem := range elems {
		obj, isObj := jsonutil.AsObject(elem)
		if !isObj {
			if name := jsonutil.FlexibleStringValue(elem); name != "" {
				members = append(members, TeamMember{Name: name})
			}
			continue
		}
		members = append(members, TeamMember{
			Name:  jsonutil.FlexibleStringValue(obj["name"]),
			Email: jsonutil.FlexibleStringValue(obj["email"]),
			Role:  jsonutil.FlexibleStringValue(obj["role"]),
		})
	}
	return members
}

// RawTitle is showcase_title, then name, then "". Search and sorting use it.
func (i *Item) RawTitle() string {
	if i.ShowcaseTitle != "" {
		return i.ShowcaseTitle
	}
	return i.Name
}

// Title is the display title: RawTitle, then "Untitled".
func (i *Item) Title() string {
	if t := i.RawTitle(); t != "" {
		return t
	}
	return "Untitled"
}

// Summary is the display description: showcase_description, then description.
func (i *Item) Summary() string {
	if i.ShowcaseDescription != "" {
		return i.ShowcaseDescription
	}
	return i.Description
}

// OwnerRef returns the embedded owner, falling back to the embedded user.
func (i *Item) OwnerRef() *User {
	if i.Owner != nil {
		return i.Owner
	}
	return i.User
}

// OwnerIdentity returns the id of whoever owns the item, whichever field carries it.
func (i *Item) OwnerIdentity() ID {
	switch {
	case i.Owner != nil && i.Owner.ID != "":
		return i.Owner.ID
	case i.OwnerID != "":
		return i.OwnerID
	case i.User != nil && i.User.ID != "":
		return i.User.ID
	}
	return i.UserID
}

// Showcased reports visibility. An absent flag counts as visible.
func (i *Item) Showcased() bool {
	return i.IsShowcased == nil || *i.IsShowcased
}

// SortTime is created_at, then updated_at, then epoch 0, in unix milliseconds.
func (i *Item) SortTime() int64 {
	if !i.CreatedAt.IsZero() {
		return i.CreatedAt.SortKey()
	}
	return i.UpdatedAt.SortKey()
}

// ShowcaseItem is an Item stamped with its type for the merged feed.
type ShowcaseItem struct {
	Type ItemType `json:"type"`
	Item
}

// UnmarshalJSON keeps the type alongside the lenient Item decoding, which
// would otherwise be promoted and drop it.
func (s *ShowcaseItem) UnmarshalJSON(data []byte) error {
	if err := s.Item.UnmarshalJSON(data); err != nil {
		return err
	}
	var head struct {
		Type ItemType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	s.Type = head.Type
	return nil
}

// ItemUpdate is the body of PUT /projects/{id} and PUT /portfolios/{id}.
type ItemUpdate struct {
	ShowcaseTitle       string       `json:"showcase_title"`
	ShowcaseDescription string       `json:"showcase_description"`
	TeamMembers         []TeamMember `json:"team_members"`
	YoutubeLink         string       `json:"youtube_link"`
	Tags                []string     `json:"tags"`
	ThumbnailURL        string       `json:"thumbnail_url"`
	IsShowcased         *bool        `json:"is_showcased,omitempty"`
}
