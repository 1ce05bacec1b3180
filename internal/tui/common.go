package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
	"github.com/iaimans/sesame-cli/internal/store"
	"github.com/iaimans/sesame-cli/internal/worksession"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewHistory
	viewAccount
)

var viewNames = []string{"Dashboard", "History", "Account"}

// Engine is the work session the UI drives. *worksession.Orchestrator
// satisfies it.
type Engine interface {
	Snapshot() worksession.Snapshot
	Projects(ctx context.Context) ([]domain.Project, error)
	Dispatch(ctx context.Context, token string) (worksession.Outcome, error)
	Refresh(ctx context.Context) error
	Logout() error
}

// Records is the local journal and settings. *store.Store satisfies it.
type Records interface {
	ListEvents(f store.EventFilter) ([]domain.Event, error)
	DailyTotals(from, to time.Time) ([]domain.DailyTotal, error)
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	GetAllSettings() ([]store.Setting, error)
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type projectsLoadedMsg struct {
	projects []domain.Project
	err      error
}

type actionDoneMsg struct {
	action  worksession.Action
	outcome worksession.Outcome
	err     error
}

type refreshDoneMsg struct {
	auto bool
	err  error
}

type historyLoadedMsg struct {
	totals []domain.DailyTotal
	events []domain.Event
	err    error
}

type accountLoadedMsg struct {
	settings []store.Setting
	err      error
}

type loggedOutMsg struct {
	err error
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

// errorText is the message shown to the user for a failed call.
func errorText(err error) string {
	var de *domain.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de) && de.Unreachable():
		return "Could not reach Sesame, check your connection"
	case errors.Is(err, domain.ErrBusy):
		return "Another request is still running"
	case errors.Is(err, domain.ErrSession):
		return "Your session has expired, restart to log in again"
	}
	return err.Error()
}
