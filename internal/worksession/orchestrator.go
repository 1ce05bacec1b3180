// Package worksession drives login-or-resume, check-in, check-out and
// refresh against the remote time service, and reconciles the server's
// accumulated time with a local session clock for display.
package worksession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iaimans/sesame-cli/internal/domain"
)

// Outcome describes a successful check-in or check-out.
type Outcome struct {
	// Stale is set when the call was accepted but the follow-up refresh
	// failed. The persisted user is then older than the server state until
	// the next successful refresh.
	Stale      bool
	RefreshErr error
}

// Orchestrator is the work session state machine. It is safe to read from
// the UI goroutine while a call is in flight; at most one remote call is
// outstanding at a time.
type Orchestrator struct {
	store   SessionStore
	api     TimeService
	prompt  Prompter
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	session  *domain.Session
	baseline time.Time // start of the live session clock; zero when offline
	stale    bool
	inFlight bool
	projects map[string]string // id -> name, from the last listing
}

type Option func(*Orchestrator)

func WithJournal(j Journal) Option { return func(o *Orchestrator) { o.journal = j } }

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func New(store SessionStore, api TimeService, prompt Prompter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		api:      api,
		prompt:   prompt,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		state:    StateUnauthenticated,
		projects: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start resumes the persisted session or logs in interactively. A returned
// error is an AuthError and is fatal for this run.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateUnauthenticated || o.inFlight {
		cur := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, cur)
	}
	o.state = StateAuthenticating
	o.inFlight = true
	o.mu.Unlock()
	defer o.release()

	if s := o.loadSession(); s != nil {
		u, err := o.api.RefreshUserInfo(ctx, s)
		if err == nil {
			o.logger.Info("resumed session", slog.String("esid", s.ESID), slog.String("status", string(u.WorkStatus)))
			o.adopt(s, u)
			o.persist(s)
			return nil
		}
		o.logger.Warn("stored session rejected, falling back to login", slog.String("error", err.Error()))
	}

	s, err := o.login(ctx)
	if err != nil {
		o.setState(StateUnauthenticated)
		return err
	}
	o.adopt(s, s.User)
	o.persist(s)
	o.record(domain.EventLogin, "")
	return nil
}

func (o *Orchestrator) login(ctx context.Context) (*domain.Session, error) {
	creds, err := o.prompt.Credentials(ctx)
	if err != nil {
		return nil, domain.NewAuthError("credentials", 0, err)
	}
	s, err := o.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindAuth {
			return nil, err
		}
		return nil, domain.NewAuthError("login", 0, err)
	}
	if !s.IsValid() || s.User == nil {
		return nil, domain.NewAuthError("login", 0, errors.New("server returned an incomplete session"))
	}
	o.logger.Info("logged in", slog.String("esid", s.ESID))
	return s, nil
}

// loadSession returns the stored session if it is structurally valid.
func (o *Orchestrator) loadSession() *domain.Session {
	s, err := o.store.Load()
	if err != nil {
		o.logger.Warn("ignoring unreadable session", slog.String("error", err.Error()))
		return nil
	}
	if !s.IsValid() {
		return nil
	}
	return s
}

// CheckIn checks in to projectID. On failure nothing changes.
func (o *Orchestrator) CheckIn(ctx context.Context, projectID string) (Outcome, error) {
	if projectID == "" {
		return Outcome{}, fmt.Errorf("%w: check-in without project", ErrUnknownAction)
	}
	s, err := o.acquire(StateOffline, "check in")
	if err != nil {
		return Outcome{}, err
	}
	defer o.release()

	start := o.now()
	if err := o.api.CheckIn(ctx, s, projectID); err != nil {
		o.logger.Error("check-in failed", slog.String("project", projectID), slog.String("error", err.Error()))
		return Outcome{}, err
	}
	o.logger.Info("checked in", slog.String("project", projectID), slog.Duration("took", o.now().Sub(start)))
	o.record(domain.EventCheckIn, projectID)
	return o.resync(ctx, s, StateWorking), nil
}

// CheckOut ends the current work interval. On failure nothing changes.
func (o *Orchestrator) CheckOut(ctx context.Context) (Outcome, error) {
	s, err := o.acquire(StateWorking, "check out")
	if err != nil {
		return Outcome{}, err
	}
	defer o.release()

	project := o.currentProject()
	start := o.now()
	if err := o.api.CheckOut(ctx, s); err != nil {
		o.logger.Error("check-out failed", slog.String("error", err.Error()))
		return Outcome{}, err
	}
	o.logger.Info("checked out", slog.Duration("took", o.now().Sub(start)))
	o.recordNamed(domain.EventCheckOut, "", project)
	return o.resync(ctx, s, StateOffline), nil
}

// resync refreshes the user after an accepted call. If the refresh fails the
// state still follows the accepted call, but the user is left as it was.
func (o *Orchestrator) resync(ctx context.Context, s *domain.Session, next State) Outcome {
	u, err := o.api.RefreshUserInfo(ctx, s)
	if err != nil {
		o.logger.Warn("refresh after state change failed", slog.String("error", err.Error()))
		o.mu.Lock()
		o.state = next
		o.stale = true
		o.baseline = time.Time{}
		if next == StateWorking {
			o.baseline = o.now()
		}
		o.mu.Unlock()
		return Outcome{Stale: true, RefreshErr: err}
	}
	o.adopt(s, u)
	o.persist(s)
	return Outcome{}
}

// Refresh pulls the user from the server and persists it. On failure the
// state is unchanged.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	s, err := o.acquire(0, "refresh")
	if err != nil {
		return err
	}
	defer o.release()

	u, err := o.api.RefreshUserInfo(ctx, s)
	if err != nil {
		o.logger.Warn("refresh failed", slog.String("error", err.Error()))
		return err
	}
	o.adopt(s, u)
	o.persist(s)
	return nil
}

// Projects lists the projects the user may check in to.
func (o *Orchestrator) Projects(ctx context.Context) ([]domain.Project, error) {
	s, err := o.acquire(0, "list projects")
	if err != nil {
		return nil, err
	}
	defer o.release()

	projects, err := o.api.ListAssignedProjects(ctx, s)
	if err != nil {
		o.logger.Error("listing projects failed", slog.String("error", err.Error()))
		return nil, err
	}
	o.mu.Lock()
	for _, p := range projects {
		o.projects[p.ID] = p.Name
	}
	o.mu.Unlock()
	return projects, nil
}

// Dispatch runs a UI action token.
func (o *Orchestrator) Dispatch(ctx context.Context, token string) (Outcome, error) {
	a, err := ParseAction(token)
	if err != nil {
		return Outcome{}, err
	}
	switch a.Kind {
	case ActionCheckIn:
		return o.CheckIn(ctx, a.ProjectID)
	case ActionCheckOut:
		return o.CheckOut(ctx)
	default:
		o.Quit()
		return Outcome{}, nil
	}
}

// Quit terminates the state machine without any I/O.
func (o *Orchestrator) Quit() {
	o.setState(StateTerminated)
}

// Logout clears the persisted session. The orchestrator is terminated
// afterwards.
func (o *Orchestrator) Logout() error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return domain.ErrBusy
	}
	o.state = StateTerminated
	o.session = nil
	o.mu.Unlock()

	if err := o.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	o.logger.Info("logged out")
	return nil
}

// acquire marks a call in flight and returns the session to use. want is the
// required state, or 0 for any ready state.
func (o *Orchestrator) acquire(want State, action string) (*domain.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateTerminated {
		return nil, ErrTerminated
	}
	if o.inFlight {
		return nil, domain.ErrBusy
	}
	if !o.state.Ready() || (want != 0 && o.state != want) {
		return nil, fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, o.state)
	}
	o.inFlight = true
	return o.session, nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// adopt installs server-fresh user data and resets the live clock.
func (o *Orchestrator) adopt(s *domain.Session, u *domain.User) {
	now := o.now()

	o.mu.Lock()
	if s.User != u {
		s.UpdateUser(u)
	}
	o.session = s
	o.stale = false
	if o.state != StateTerminated {
		o.state = StateOffline
		if u.IsWorking() {
			o.state = StateWorking
		}
	}
	o.baseline = baselineFor(u, now)
	o.mu.Unlock()

	if o.journal != nil {
		err := o.journal.RecordDailyTotal(domain.DailyTotal{
			Date:               now.Format("2006-01-02"),
			AccumulatedSeconds: u.AccumulatedSeconds,
			DailySchedule:      u.DailySchedule,
			UpdatedAt:          now,
		})
		if err != nil {
			o.logger.Warn("record daily total", slog.String("error", err.Error()))
		}
	}
}

// baselineFor picks where the live clock starts. A working user is
// back-dated to the server's check-in instant when it is known; otherwise
// the clock starts now.
func baselineFor(u *domain.User, now time.Time) time.Time {
	if !u.IsWorking() {
		return time.Time{}
	}
	if u.LastCheckIn != nil && !u.LastCheckIn.After(now) {
		return *u.LastCheckIn
	}
	return now
}

// persist copies the session under the lock and writes the copy without
// it, so readers are not held up by disk I/O.
func (o *Orchestrator) persist(s *domain.Session) {
	o.mu.Lock()
	rec := *s
	rec.User = s.User.Clone()
	o.mu.Unlock()

	if err := o.store.Save(&rec); err != nil {
		o.logger.Error("save session", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) currentProject() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil || o.session.User == nil {
		return ""
	}
	return o.session.User.CurrentProject
}

func (o *Orchestrator) record(kind domain.EventKind, projectID string) {
	o.mu.Lock()
	name := o.projects[projectID]
	o.mu.Unlock()
	o.recordNamed(kind, projectID, name)
}

func (o *Orchestrator) recordNamed(kind domain.EventKind, projectID, projectName string) {
	if o.journal == nil {
		return
	}
	err := o.journal.RecordEvent(domain.Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProjectID:   projectID,
		ProjectName: projectName,
		At:          o.now(),
	})
	if err != nil {
		o.logger.Warn("record event", slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a remote call is outstanding.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// SessionSeconds is the live clock: seconds since the baseline while
// working, 0 otherwise.
func (o *Orchestrator) SessionSeconds() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionSecondsLocked(o.now())
}

func (o *Orchestrator) sessionSecondsLocked(now time.Time) int64 {
	if o.state != StateWorking || o.baseline.IsZero() {
		return 0
	}
	d := now.Sub(o.baseline)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Snapshot is a consistent copy of what the UI needs to render.
type Snapshot struct {
	State     State
	User      *domain.User
	Summary   domain.WorkTimeSummary
	Stale     bool
	Busy      bool
	CSID      string
	ESID      string
	UpdatedAt time.Time
}

func (o *Orchestrator) Snapshot() Snapshot {
	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State: o.state,
		Stale: o.stale,
		Busy:  o.inFlight,
	}
	if o.session == nil {
		return snap
	}
	snap.CSID = o.session.CSID
	snap.ESID = o.session.ESID
	snap.UpdatedAt = o.session.Timestamp
	if u := o.session.User; u != nil {
		snap.User = u.Clone()
		snap.Summary = domain.NewWorkTimeSummary(u.AccumulatedSeconds, u.DailySchedule, o.sessionSecondsLocked(now))
	}
	return snap
}
