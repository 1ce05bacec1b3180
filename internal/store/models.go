package store

import (
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// Setting keys.
const (
	SettingLastEmail   = "last_email"
	SettingLastProject = "last_project"
)

type Setting struct {
	Key   string
	Value string
}

// EventFilter is used to filter journal events in queries.
type EventFilter struct {
	Kind  domain.EventKind
	From  *time.Time
	To    *time.Time
	Limit int
}
