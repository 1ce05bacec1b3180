package worksession

import (
	"context"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// Credentials are collected from the user when no usable session exists.
type Credentials struct {
	Email    string
	Password string
}

// SessionStore persists the single session of this client.
//
// Load returns (nil, nil) when nothing is stored and a domain ConfigError when
// the stored data is unreadable; callers treat both as absence.
type SessionStore interface {
	Load() (*domain.Session, error)
	Save(s *domain.Session) error
	Clear() error
}

// TimeService is the remote time-tracking API. Every method but Login
// requires s.IsValid() and returns domain.ErrInvalidSession otherwise.
type TimeService interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	RefreshUserInfo(ctx context.Context, s *domain.Session) (*domain.User, error)
	ListAssignedProjects(ctx context.Context, s *domain.Session) ([]domain.Project, error)
	CheckIn(ctx context.Context, s *domain.Session, projectID string) error
	CheckOut(ctx context.Context, s *domain.Session) error
}

// Prompter asks the user for credentials.
type Prompter interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Journal keeps a local record of what happened. Optional.
type Journal interface {
	RecordEvent(e domain.Event) error
	RecordDailyTotal(t domain.DailyTotal) error
}
