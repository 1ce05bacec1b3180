package worksession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// ============================================================
// Fakes
// ============================================================

type fakeStore struct {
	session *domain.Session
	loadErr error
	saveErr error
	saves   int
	cleared bool
	onSave  func()
}

func (f *fakeStore) Load() (*domain.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.session, nil
}

func (f *fakeStore) Save(s *domain.Session) error {
	if f.onSave != nil {
		f.onSave()
	}
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	cp := *s
	cp.User = s.User.Clone()
	f.session = &cp
	return nil
}

func (f *fakeStore) Clear() error {
	f.cleared = true
	f.session = nil
	return nil
}

type fakeAPI struct {
	mu sync.Mutex

	loginSession *domain.Session
	loginErr     error
	users        []*domain.User // returned by successive refresh calls
	refreshErrs  []error        // matched by index with refresh calls
	projects     []domain.Project
	projectsErr  error
	checkInErr   error
	checkOutErr  error

	logins, refreshes, checkIns, checkOuts int
	checkedInTo                            string

	// block, when set, is waited on inside CheckIn.
	block chan struct{}
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*domain.Session, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginSession, nil
}

func (f *fakeAPI) RefreshUserInfo(_ context.Context, s *domain.Session) (*domain.User, error) {
	if !s.IsValid() {
		return nil, domain.ErrInvalidSession
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.refreshes
	f.refreshes++
	if i < len(f.refreshErrs) && f.refreshErrs[i] != nil {
		return nil, f.refreshErrs[i]
	}
	if len(f.users) == 0 {
		return nil, domain.NewSessionError("refresh", 0, errors.New("no user"))
	}
	if i >= len(f.users) {
		i = len(f.users) - 1
	}
	return f.users[i].Clone(), nil
}

func (f *fakeAPI) ListAssignedProjects(_ context.Context, s *domain.Session) ([]domain.Project, error) {
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *fakeAPI) CheckIn(_ context.Context, s *domain.Session, projectID string) error {
	if f.block != nil {
		<-f.block
	}
	f.checkIns++
	f.checkedInTo = projectID
	return f.checkInErr
}

func (f *fakeAPI) CheckOut(_ context.Context, s *domain.Session) error {
	f.checkOuts++
	return f.checkOutErr
}

type fakePrompter struct {
	creds Credentials
	err   error
	calls int
}

func (f *fakePrompter) Credentials(context.Context) (Credentials, error) {
	f.calls++
	return f.creds, f.err
}

type fakeJournal struct {
	events []domain.Event
	totals []domain.DailyTotal
}

func (f *fakeJournal) RecordEvent(e domain.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeJournal) RecordDailyTotal(t domain.DailyTotal) error {
	f.totals = append(f.totals, t)
	return nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func offlineUser(acc int64) *domain.User {
	u := domain.NewUser("e1", "Ana", "c1", domain.StatusOffline, "")
	u.UpdateWorkTime(acc, 28800)
	return u
}

func workingUser(acc int64, project string, checkIn *time.Time) *domain.User {
	u := domain.NewUser("e1", "Ana", "c1", "online", project)
	u.UpdateWorkTime(acc, 28800)
	u.LastCheckIn = checkIn
	return u
}

func storedSession(u *domain.User) *domain.Session {
	s := domain.NewSession("c1", "e1", "USID=old", u)
	s.Timestamp = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	return s
}

type harness struct {
	o       *Orchestrator
	store   *fakeStore
	api     *fakeAPI
	prompt  *fakePrompter
	journal *fakeJournal
	clock   *testClock
}

func newHarness() *harness {
	h := &harness{
		store:   &fakeStore{},
		api:     &fakeAPI{},
		prompt:  &fakePrompter{creds: Credentials{Email: "ana@example.com", Password: "pw"}},
		journal: &fakeJournal{},
		clock:   &testClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	h.o = New(h.store, h.api, h.prompt, WithJournal(h.journal), WithClock(h.clock.now))
	return h
}

// startOffline brings the harness to Ready(offline) via a resumed session.
func (h *harness) startOffline(t *testing.T) {
	t.Helper()
	h.store.session = storedSession(offlineUser(3600))
	h.api.users = []*domain.User{offlineUser(3600)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.o.State() != StateOffline {
		t.Fatalf("expected offline, got %s", h.o.State())
	}
}

// ============================================================
// Start: resume or login
// ============================================================

func TestStartResumesValidSession(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(offlineUser(100))
	h.api.users = []*domain.User{offlineUser(3600)}

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateOffline {
		t.Fatalf("state = %s, want offline", h.o.State())
	}
	if h.prompt.calls != 0 || h.api.logins != 0 {
		t.Fatal("resume should not prompt or log in")
	}
	if h.store.saves != 1 {
		t.Fatalf("expected session re-persisted once, got %d saves", h.store.saves)
	}
	if h.store.session.User.AccumulatedSeconds != 3600 {
		t.Fatal("persisted user should be the refreshed one")
	}
	if !h.store.session.Timestamp.After(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)) {
		t.Fatal("refresh should bump the session timestamp")
	}
	if len(h.journal.totals) != 1 || h.journal.totals[0].AccumulatedSeconds != 3600 {
		t.Fatalf("expected one daily total, got %+v", h.journal.totals)
	}
}

func TestStartResumesWorkingSessionBackdated(t *testing.T) {
	h := newHarness()
	checkIn := h.clock.t.Add(-90 * time.Minute)
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(3600, "Dev", &checkIn)}

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateWorking {
		t.Fatalf("state = %s, want working", h.o.State())
	}
	if got := h.o.SessionSeconds(); got != 90*60 {
		t.Fatalf("SessionSeconds = %d, want %d", got, 90*60)
	}

	h.clock.advance(30 * time.Second)
	snap := h.o.Snapshot()
	if snap.Summary.TotalWorkedSeconds() != 3600+90*60+30 {
		t.Fatalf("total = %d", snap.Summary.TotalWorkedSeconds())
	}
	if h.store.session.User.AccumulatedSeconds != 3600 {
		t.Fatal("persisted accumulated seconds must stay server-authoritative")
	}
}

func TestStartWorkingWithoutCheckInTimeStartsClockNow(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(3600, "Dev", nil)}

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.o.SessionSeconds() != 0 {
		t.Fatal("clock should start from zero")
	}
	h.clock.advance(5 * time.Second)
	if h.o.SessionSeconds() != 5 {
		t.Fatalf("SessionSeconds = %d, want 5", h.o.SessionSeconds())
	}
}

func TestStartFutureCheckInIgnored(t *testing.T) {
	h := newHarness()
	future := h.clock.t.Add(time.Hour)
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(0, "Dev", &future)}

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.o.SessionSeconds() != 0 {
		t.Fatalf("future check-in should not produce negative or inflated time, got %d", h.o.SessionSeconds())
	}
}

func TestStartRefreshFailureFallsBackToLogin(t *testing.T) {
	h := newHarness()
	old := storedSession(offlineUser(100))
	h.store.session = old
	h.api.refreshErrs = []error{domain.NewSessionError("refresh", 401, nil)}
	h.api.loginSession = domain.NewSession("c1", "e1", "USID=new", offlineUser(200))

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.prompt.calls != 1 || h.api.logins != 1 {
		t.Fatalf("expected interactive login, prompts=%d logins=%d", h.prompt.calls, h.api.logins)
	}
	if h.store.cleared {
		t.Fatal("old session must not be cleared")
	}
	if h.store.session.Cookies != "USID=new" {
		t.Fatal("new session should replace the old one")
	}
	if len(h.journal.events) != 1 || h.journal.events[0].Kind != domain.EventLogin {
		t.Fatalf("expected login event, got %+v", h.journal.events)
	}
}

func TestStartLoginFailureKeepsOldSession(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(offlineUser(100))
	h.api.refreshErrs = []error{domain.NewSessionError("refresh", 401, nil)}
	h.api.loginErr = domain.NewAuthError("login", 401, errors.New("bad credentials"))

	err := h.o.Start(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if h.o.State() != StateUnauthenticated {
		t.Fatalf("state = %s", h.o.State())
	}
	if h.store.session == nil || h.store.session.Cookies != "USID=old" {
		t.Fatal("old session file should be untouched until a login succeeds")
	}
	if h.store.saves != 0 {
		t.Fatal("nothing should be saved")
	}
}

func TestStartWithoutStoredSessionPrompts(t *testing.T) {
	h := newHarness()
	h.api.loginSession = domain.NewSession("c1", "e1", "USID=new", workingUser(100, "Dev", nil))

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.api.refreshes != 0 {
		t.Fatal("no refresh without a stored session")
	}
	if h.o.State() != StateWorking {
		t.Fatalf("state = %s, want working", h.o.State())
	}
	if h.store.saves != 1 {
		t.Fatal("new session should be persisted")
	}
}

func TestStartInvalidStoredSessionPrompts(t *testing.T) {
	h := newHarness()
	s := storedSession(offlineUser(0))
	s.Cookies = ""
	h.store.session = s
	h.api.loginSession = domain.NewSession("c1", "e1", "USID=new", offlineUser(0))

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.api.refreshes != 0 {
		t.Fatal("invalid session should not be refreshed")
	}
	if h.prompt.calls != 1 {
		t.Fatal("should prompt for credentials")
	}
}

func TestStartUnreadableStoreTreatedAsAbsent(t *testing.T) {
	h := newHarness()
	h.store.loadErr = domain.NewConfigError("load session", errors.New("bad json"))
	h.api.loginSession = domain.NewSession("c1", "e1", "USID=new", offlineUser(0))

	if err := h.o.Start(context.Background()); err != nil {
		t.Fatalf("config error should not surface: %v", err)
	}
	if h.prompt.calls != 1 {
		t.Fatal("should prompt for credentials")
	}
}

func TestStartPromptAbortIsFatal(t *testing.T) {
	h := newHarness()
	h.prompt.err = errors.New("user aborted")

	err := h.o.Start(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if h.api.logins != 0 {
		t.Fatal("should not log in without credentials")
	}
}

func TestStartIncompleteLoginSessionIsFatal(t *testing.T) {
	h := newHarness()
	h.api.loginSession = domain.NewSession("c1", "", "USID=x", offlineUser(0))

	if err := h.o.Start(context.Background()); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	if err := h.o.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

// ============================================================
// Check-in / check-out
// ============================================================

func TestCheckInRefreshesAndPersists(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.users = append(h.api.users, workingUser(3600, "Dev", nil))
	h.api.projects = []domain.Project{{ID: "p1", Name: "Dev"}}
	if _, err := h.o.Projects(context.Background()); err != nil {
		t.Fatal(err)
	}
	saves := h.store.saves

	out, err := h.o.CheckIn(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if out.Stale {
		t.Fatal("outcome should not be stale")
	}
	if h.api.checkedInTo != "p1" {
		t.Fatalf("checked in to %q", h.api.checkedInTo)
	}
	if h.o.State() != StateWorking {
		t.Fatalf("state = %s, want working", h.o.State())
	}
	if h.store.saves != saves+1 {
		t.Fatal("session should be persisted after check-in")
	}
	if h.store.session.User.CurrentProject != "Dev" {
		t.Fatal("persisted user should carry the project")
	}

	last := h.journal.events[len(h.journal.events)-1]
	if last.Kind != domain.EventCheckIn || last.ProjectID != "p1" || last.ProjectName != "Dev" {
		t.Fatalf("unexpected journal event %+v", last)
	}
	if last.ID == "" {
		t.Fatal("event should have an id")
	}
}

func TestCheckInFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.checkInErr = domain.NewAPIError("check-in", 0, errors.New("connection refused"))
	saves := h.store.saves
	refreshes := h.api.refreshes

	_, err := h.o.CheckIn(context.Background(), "p1")
	if !errors.Is(err, domain.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if h.o.State() != StateOffline {
		t.Fatalf("state = %s, want offline", h.o.State())
	}
	if h.api.refreshes != refreshes {
		t.Fatal("no refresh after a failed check-in")
	}
	if h.store.saves != saves {
		t.Fatal("nothing should be persisted")
	}
	if h.api.checkIns != 1 {
		t.Fatalf("check-in must not be retried, got %d calls", h.api.checkIns)
	}
}

func TestCheckInAcceptedButRefreshFails(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.refreshErrs = []error{nil, domain.NewSessionError("refresh", 0, errors.New("timeout"))}
	saves := h.store.saves

	out, err := h.o.CheckIn(context.Background(), "p1")
	if err != nil {
		t.Fatalf("check-in itself succeeded, got %v", err)
	}
	if !out.Stale || out.RefreshErr == nil {
		t.Fatalf("expected stale outcome, got %+v", out)
	}
	if h.o.State() != StateWorking {
		t.Fatalf("state = %s, want working", h.o.State())
	}
	if h.store.saves != saves {
		t.Fatal("persisted user should remain unrefreshed")
	}
	if h.store.session.User.IsWorking() {
		t.Fatal("persisted user should still be the pre-check-in one")
	}

	snap := h.o.Snapshot()
	if !snap.Stale {
		t.Fatal("snapshot should be marked stale")
	}
	h.clock.advance(10 * time.Second)
	if h.o.SessionSeconds() != 10 {
		t.Fatalf("live clock should run, got %d", h.o.SessionSeconds())
	}
}

func TestCheckInRequiresOffline(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(0, "Dev", nil)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := h.o.CheckIn(context.Background(), "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if h.api.checkIns != 0 {
		t.Fatal("no remote call expected")
	}
}

func TestCheckInWithoutProject(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	if _, err := h.o.CheckIn(context.Background(), ""); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected unknown action, got %v", err)
	}
}

func TestCheckOutRefreshesAndPersists(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(3600, "Dev", nil), offlineUser(5400)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	out, err := h.o.CheckOut(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Stale {
		t.Fatal("outcome should not be stale")
	}
	if h.o.State() != StateOffline {
		t.Fatalf("state = %s, want offline", h.o.State())
	}
	if h.o.SessionSeconds() != 0 {
		t.Fatal("clock should stop when offline")
	}
	if h.store.session.User.AccumulatedSeconds != 5400 {
		t.Fatal("persisted user should be refreshed")
	}

	last := h.journal.events[len(h.journal.events)-1]
	if last.Kind != domain.EventCheckOut || last.ProjectName != "Dev" {
		t.Fatalf("unexpected journal event %+v", last)
	}
}

func TestCheckOutFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(3600, "Dev", nil)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.api.checkOutErr = domain.NewAPIError("check-out", 500, nil)

	if _, err := h.o.CheckOut(context.Background()); !errors.Is(err, domain.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if h.o.State() != StateWorking {
		t.Fatalf("state = %s, want working", h.o.State())
	}
}

func TestCheckOutRequiresWorking(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	if _, err := h.o.CheckOut(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestActionsBeforeStartRejected(t *testing.T) {
	h := newHarness()
	if _, err := h.o.CheckIn(context.Background(), "p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := h.o.Refresh(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSingleFlight(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.o.CheckIn(context.Background(), "p1")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !h.o.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("check-in never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := h.o.CheckIn(context.Background(), "p2"); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if err := h.o.Refresh(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if !h.o.Snapshot().Busy {
		t.Fatal("snapshot should report busy")
	}

	close(h.api.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if h.api.checkIns != 1 {
		t.Fatalf("expected exactly one check-in call, got %d", h.api.checkIns)
	}
}

// ============================================================
// Refresh and live clock
// ============================================================

func TestRefreshResetsClock(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(3600, "Dev", nil), workingUser(3700, "Dev", nil)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.clock.advance(100 * time.Second)
	if h.o.Snapshot().Summary.TotalWorkedSeconds() != 3700 {
		t.Fatal("expected 3600 + 100 live seconds")
	}

	if err := h.o.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := h.o.Snapshot()
	if snap.Summary.SessionSeconds != 0 {
		t.Fatal("refresh should restart the live clock")
	}
	if snap.Summary.TotalWorkedSeconds() != 3700 {
		t.Fatalf("total = %d, want server value 3700", snap.Summary.TotalWorkedSeconds())
	}
}

func TestRefreshTwiceDoesNotCompound(t *testing.T) {
	h := newHarness()
	checkIn := h.clock.t.Add(-time.Hour)
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(1000, "Dev", &checkIn)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := h.o.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.o.Snapshot().Summary.TotalWorkedSeconds(); got != 1000+3600 {
		t.Fatalf("total = %d, want %d", got, 1000+3600)
	}
	if h.store.session.User.AccumulatedSeconds != 1000 {
		t.Fatal("stored accumulated seconds must not include the live delta")
	}
}

func TestSnapshotNotBlockedBySave(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.users = []*domain.User{offlineUser(3700)}

	var blocked bool
	h.store.onSave = func() {
		done := make(chan struct{})
		go func() {
			h.o.Snapshot()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			blocked = true
		}
	}
	if err := h.o.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if blocked {
		t.Fatal("snapshot waited on the session save")
	}
	if h.store.session.User.AccumulatedSeconds != 3700 {
		t.Fatalf("saved accumulated = %d, want 3700", h.store.session.User.AccumulatedSeconds)
	}
}

func TestRefreshFailureKeepsState(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.refreshErrs = []error{nil, domain.NewSessionError("refresh", 401, nil)}
	saves := h.store.saves

	if err := h.o.Refresh(context.Background()); !errors.Is(err, domain.ErrSession) {
		t.Fatalf("expected session error, got %v", err)
	}
	if h.o.State() != StateOffline || h.store.saves != saves {
		t.Fatal("state and store should be unchanged")
	}
}

func TestProjectsFailure(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.projectsErr = domain.NewAPIError("list projects", 503, nil)

	if _, err := h.o.Projects(context.Background()); !errors.Is(err, domain.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if h.o.Busy() {
		t.Fatal("in-flight flag should be released")
	}
}

// ============================================================
// Dispatch, quit, logout
// ============================================================

func TestParseAction(t *testing.T) {
	tests := []struct {
		token   string
		want    Action
		wantErr bool
	}{
		{"checkin:p1", Action{Kind: ActionCheckIn, ProjectID: "p1"}, false},
		{"checkout", Action{Kind: ActionCheckOut}, false},
		{"quit", Action{Kind: ActionQuit}, false},
		{"checkin:", Action{}, true},
		{"dance", Action{}, true},
		{"", Action{}, true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) err = %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
		if err == nil && got.String() != tt.token {
			t.Errorf("Action.String() = %q, want %q", got.String(), tt.token)
		}
	}
}

func TestDispatch(t *testing.T) {
	h := newHarness()
	h.startOffline(t)
	h.api.users = append(h.api.users, workingUser(3600, "Dev", nil), offlineUser(3700))

	if _, err := h.o.Dispatch(context.Background(), "checkin:p9"); err != nil {
		t.Fatal(err)
	}
	if h.api.checkedInTo != "p9" || h.o.State() != StateWorking {
		t.Fatal("dispatch should check in")
	}
	if _, err := h.o.Dispatch(context.Background(), "checkout"); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateOffline {
		t.Fatal("dispatch should check out")
	}

	calls := h.api.refreshes
	if _, err := h.o.Dispatch(context.Background(), "quit"); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateTerminated {
		t.Fatal("dispatch quit should terminate")
	}
	if h.api.refreshes != calls {
		t.Fatal("quit should not touch the network")
	}
	if _, err := h.o.CheckIn(context.Background(), "p1"); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected terminated, got %v", err)
	}
}

func TestLogoutClearsStore(t *testing.T) {
	h := newHarness()
	h.startOffline(t)

	if err := h.o.Logout(); err != nil {
		t.Fatal(err)
	}
	if !h.store.cleared {
		t.Fatal("store should be cleared")
	}
	if h.o.State() != StateTerminated {
		t.Fatal("logout should terminate")
	}
}

// ============================================================
// Snapshot lines
// ============================================================

func TestSnapshotLinesOffline(t *testing.T) {
	h := newHarness()
	h.startOffline(t)

	text := strings.Join(h.o.Snapshot().Lines(), "\n")
	for _, want := range []string{"Hello, Ana!", "offline", "Scheduled: 8h 0m", "Worked: 1h 0m (13%)", "Remaining: 7h 0m"} {
		if !strings.Contains(text, want) {
			t.Errorf("lines missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Session time") {
		t.Error("offline lines should not show session time")
	}
}

func TestSnapshotLinesWorking(t *testing.T) {
	h := newHarness()
	h.store.session = storedSession(workingUser(0, "Dev", nil))
	h.api.users = []*domain.User{workingUser(28800, "Dev", nil)}
	if err := h.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.clock.advance(65 * time.Second)

	text := strings.Join(h.o.Snapshot().Lines(), "\n")
	for _, want := range []string{"Work Status: online", "Current Project: Dev", "Worked: 8h 1m 5s (100%)", "Complete!", "Session time: 0h 1m 5s"} {
		if !strings.Contains(text, want) {
			t.Errorf("lines missing %q:\n%s", want, text)
		}
	}
}

func TestSnapshotLinesNoUser(t *testing.T) {
	h := newHarness()
	lines := h.o.Snapshot().Lines()
	if len(lines) != 1 || lines[0] != "Not signed in" {
		t.Fatalf("unexpected lines %v", lines)
	}
}
