package domain

import "time"

// EventKind names an entry of the local journal.
type EventKind string

const (
	EventLogin    EventKind = "login"
	EventCheckIn  EventKind = "check_in"
	EventCheckOut EventKind = "check_out"
)

// Event is one successful state-changing call, as observed by this client.
type Event struct {
	ID          string
	Kind        EventKind
	ProjectID   string
	ProjectName string
	At          time.Time
}

// DailyTotal is the server-reported accumulated time for one day, recorded
// each time the client refreshes.
type DailyTotal struct {
	Date               string // YYYY-MM-DD, local time
	AccumulatedSeconds int64
	DailySchedule      int64
	UpdatedAt          time.Time
}
