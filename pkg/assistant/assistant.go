// Package assistant answers natural-language project searches for the portal chatbot.
package assistant

import (
	"context"
	"encoding/json"

	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// Source is sent with every webhook message to identify the caller.
const Source = "portal.imuii.id"

// Assistant answers one chat message within a conversation.
type Assistant interface {
	Ask(ctx context.Context, sessionID, message string) (*Reply, error)
}

// Project is a compact project card attached to a reply.
type Project struct {
	ID          models.ID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty"`
}

// UnmarshalJSON accepts either title or name for the card title.
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	var raw struct {
		alias
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Project(raw.alias)
	if p.Title == "" {
		p.Title = raw.Name
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	return nil
}

// ProjectFromItem builds a card from a showcase entry.
func ProjectFromItem(item *models.Item) Project {
	return Project{
		ID:          item.ID,
		Title:       item.Title(),
		Description: item.Summary(),
		Tags:        item.Tags,
		RepoURL:     item.RepoURL,
	}
}

// Reply is the assistant's answer.
type Reply struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Projects []Project `json:"projects"`
}

// decodeReply accepts [{...}] as well as a bare object.
func decodeReply(raw json.RawMessage) (*Reply, error) {
	body := raw
	if arr, ok := jsonutil.AsArray(raw); ok {
		if len(arr) == 0 {
			return &Reply{Projects: []Project{}}, nil
		}
		body = arr[0]
	}

	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, err
	}
	if reply.Projects == nil {
		reply.Projects = []Project{}
	}
	return &reply, nil
}
