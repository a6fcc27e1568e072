package models

// PendingAction tags an event whose join or leave call is in flight.
type PendingAction string

const (
	ActionNone  PendingAction = ""
	ActionJoin  PendingAction = "join"
	ActionLeave PendingAction = "leave"
)

// MembershipEntry is the reconciled state of one project in one event.
// Known=false means membership could not be determined and the entry is
// presented as not joined.
type MembershipEntry struct {
	Event   Event         `json:"event"`
	Joined  bool          `json:"joined"`
	Known   bool          `json:"known"`
	Pending PendingAction `json:"pending,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// CanJoin reports whether a join may be started from this state.
func (e *MembershipEntry) CanJoin() bool {
	return e.Event.Status != EventEnded && !e.Joined && e.Pending == ActionNone
}

// CanLeave reports whether a leave may be started from this state.
func (e *MembershipEntry) CanLeave() bool {
	return e.Event.Status != EventEnded && e.Joined && e.Pending == ActionNone
}

// MembershipSnapshot lists one entry per candidate event, in listing order.
type MembershipSnapshot struct {
	ProjectID ID                `json:"project_id"`
	Entries   []MembershipEntry `json:"entries"`
}

// Entry returns the entry for an event, or nil.
func (s *MembershipSnapshot) Entry(eventID ID) *MembershipEntry {
	for i := range s.Entries {
		if s.Entries[i].Event.ID == eventID {
			return &s.Entries[i]
		}
	}
	return nil
}
