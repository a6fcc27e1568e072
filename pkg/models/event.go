package models

import (
	"encoding/json"

	"github.com/imuii-id/imuii-portal/pkg/jsonutil"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventActive   EventStatus = "active"
	EventEnded    EventStatus = "ended"
)

// Event is a time-bounded competition projects can be registered into.
type Event struct {
	ID           ID          `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Status       EventStatus `json:"status"`
	StartDate    Timestamp   `json:"start_date,omitzero"`
	EndDate      Timestamp   `json:"end_date,omitzero"`
	ProjectCount int         `json:"project_count"`
	MyProjects   []Item      `json:"my_projects,omitempty"`
}

// UnmarshalJSON accepts project_count as a number or a numeric string.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		ProjectCount json.RawMessage `json:"project_count"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ProjectCount, _ = jsonutil.FlexibleIntValue(aux.ProjectCount)
	return nil
}

// EventDetail is an event together with its roster.
type EventDetail struct {
	Event    *Event `json:"event"`
	Projects []Item `json:"projects"`
}
