package domain

import "time"

// WorkStatus is the server-reported work state. Anything other than
// StatusOffline counts as working.
type WorkStatus string

const StatusOffline WorkStatus = "offline"

type User struct {
	ID        string
	FirstName string
	CompanyID string

	WorkStatus     WorkStatus
	CurrentProject string // empty when not checked in to a project

	AccumulatedSeconds int64 // server-authoritative
	DailySchedule      int64 // target seconds for the period

	// LastCheckIn is the server's last check-in instant, set only while
	// working. It back-dates the live session clock.
	LastCheckIn *time.Time
}

// NewUser returns a user with no work time. An empty status means offline.
func NewUser(id, firstName, companyID string, status WorkStatus, project string) *User {
	if status == "" {
		status = StatusOffline
	}
	return &User{
		ID:             id,
		FirstName:      firstName,
		CompanyID:      companyID,
		WorkStatus:     status,
		CurrentProject: project,
	}
}

func (u *User) IsOffline() bool { return u.WorkStatus == StatusOffline }
func (u *User) IsWorking() bool { return u.WorkStatus != StatusOffline }

// UpdateWorkStatus sets status and project together. Callers pass an empty
// project when going offline.
func (u *User) UpdateWorkStatus(status WorkStatus, project string) {
	u.WorkStatus = status
	u.CurrentProject = project
}

// UpdateWorkTime replaces both counters. Negative values are stored as 0.
func (u *User) UpdateWorkTime(accumulatedSeconds, dailySchedule int64) {
	u.AccumulatedSeconds = max(accumulatedSeconds, 0)
	u.DailySchedule = max(dailySchedule, 0)
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.LastCheckIn != nil {
		t := *u.LastCheckIn
		c.LastCheckIn = &t
	}
	return &c
}
