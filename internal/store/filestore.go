package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// FileStore keeps the session as a single JSON document, in the same shape
// the original sesame-cli wrote to ~/.sesame-cli/config.json.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath returns ~/.sesame-cli/config.json
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sesame-cli", "config.json"), nil
}

func (f *FileStore) Path() string { return f.path }

type userRecord struct {
	ID                 string     `json:"id"`
	FirstName          string     `json:"firstName"`
	CompanyID          string     `json:"companyId"`
	WorkStatus         string     `json:"workStatus"`
	CurrentProject     *string    `json:"currentProject"`
	AccumulatedSeconds int64      `json:"accumulatedSeconds"`
	DailySchedule      int64      `json:"dailySchedule"`
	LastCheckIn        *time.Time `json:"lastCheckIn,omitempty"`
}

type sessionRecord struct {
	CSID      string      `json:"csid"`
	ESID      string      `json:"esid"`
	Cookies   string      `json:"cookies"`
	User      *userRecord `json:"user"`
	Timestamp time.Time   `json:"timestamp"`
}

func toRecord(s *domain.Session) sessionRecord {
	rec := sessionRecord{CSID: s.CSID, ESID: s.ESID, Cookies: s.Cookies, Timestamp: s.Timestamp.UTC()}
	if u := s.User; u != nil {
		ur := &userRecord{
			ID:                 u.ID,
			FirstName:          u.FirstName,
			CompanyID:          u.CompanyID,
			WorkStatus:         string(u.WorkStatus),
			AccumulatedSeconds: u.AccumulatedSeconds,
			DailySchedule:      u.DailySchedule,
			LastCheckIn:        u.LastCheckIn,
		}
		if u.CurrentProject != "" {
			p := u.CurrentProject
			ur.CurrentProject = &p
		}
		rec.User = ur
	}
	return rec
}

func (r sessionRecord) toSession() (*domain.Session, error) {
	if r.CSID == "" || r.ESID == "" || r.Cookies == "" {
		return nil, errors.New("incomplete session record")
	}
	if r.User == nil {
		return nil, errors.New("session record has no user")
	}
	project := ""
	if r.User.CurrentProject != nil {
		project = *r.User.CurrentProject
	}
	u := domain.NewUser(r.User.ID, r.User.FirstName, r.User.CompanyID, domain.WorkStatus(r.User.WorkStatus), project)
	u.UpdateWorkTime(r.User.AccumulatedSeconds, r.User.DailySchedule)
	u.LastCheckIn = r.User.LastCheckIn
	return &domain.Session{CSID: r.CSID, ESID: r.ESID, Cookies: r.Cookies, User: u, Timestamp: r.Timestamp}, nil
}

// Load returns the stored session, (nil, nil) when the file does not exist,
// or a ConfigError when it cannot be decoded.
func (f *FileStore) Load() (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.NewConfigError("load session", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, domain.NewConfigError("load session", err)
	}
	s, err := rec.toSession()
	if err != nil {
		return nil, domain.NewConfigError("load session", err)
	}
	return s, nil
}

// Save writes the session atomically: a temp file in the same directory is
// synced and renamed over the target.
func (f *FileStore) Save(s *domain.Session) error {
	if s == nil {
		return errors.New("save session: nil session")
	}
	data, err := json.MarshalIndent(toRecord(s), "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear deletes the session file. A missing file is not an error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
