package user

import "time"

type EventKind string

const (
	EventCreated     EventKind = "user.created"
	EventUpdated     EventKind = "user.updated"
	EventDeactivated EventKind = "user.deactivated"
)

// Event describes a committed change to a user.
type Event struct {
	Kind EventKind
	At   time.Time
	User User
}
