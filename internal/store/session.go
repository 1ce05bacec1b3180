package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// Load returns the stored session, (nil, nil) when none is stored, or a
// ConfigError when the row is unusable.
func (s *Store) Load() (*domain.Session, error) {
	var (
		csid, esid, cookies          string
		userID, firstName, companyID string
		status                       string
		project, lastCheckIn         sql.NullString
		accumulated, schedule        int64
		timestamp                    string
	)
	err := s.db.QueryRow(`
		SELECT csid, esid, cookies, user_id, first_name, company_id, work_status,
		       current_project, accumulated_seconds, daily_schedule, last_check_in, timestamp
		FROM session WHERE id = 1`,
	).Scan(&csid, &esid, &cookies, &userID, &firstName, &companyID, &status,
		&project, &accumulated, &schedule, &lastCheckIn, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewConfigError("load session", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, domain.NewConfigError("load session", fmt.Errorf("parse timestamp: %w", err))
	}

	u := domain.NewUser(userID, firstName, companyID, domain.WorkStatus(status), project.String)
	u.UpdateWorkTime(accumulated, schedule)
	if lastCheckIn.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastCheckIn.String); err == nil {
			u.LastCheckIn = &t
		}
	}

	sess := &domain.Session{CSID: csid, ESID: esid, Cookies: cookies, User: u, Timestamp: ts}
	if !sess.IsValid() {
		return nil, domain.NewConfigError("load session", errors.New("incomplete session record"))
	}
	return sess, nil
}

// Save replaces the stored session in a single transaction.
func (s *Store) Save(sess *domain.Session) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	u := sess.User
	if u == nil {
		u = domain.NewUser("", "", "", domain.StatusOffline, "")
	}

	var project, lastCheckIn sql.NullString
	if u.CurrentProject != "" {
		project = sql.NullString{String: u.CurrentProject, Valid: true}
	}
	if u.LastCheckIn != nil {
		lastCheckIn = sql.NullString{String: u.LastCheckIn.UTC().Format(timeLayout), Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save session: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO session (id, csid, esid, cookies, user_id, first_name, company_id, work_status,
		                     current_project, accumulated_seconds, daily_schedule, last_check_in, timestamp)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			csid = excluded.csid,
			esid = excluded.esid,
			cookies = excluded.cookies,
			user_id = excluded.user_id,
			first_name = excluded.first_name,
			company_id = excluded.company_id,
			work_status = excluded.work_status,
			current_project = excluded.current_project,
			accumulated_seconds = excluded.accumulated_seconds,
			daily_schedule = excluded.daily_schedule,
			last_check_in = excluded.last_check_in,
			timestamp = excluded.timestamp`,
		sess.CSID, sess.ESID, sess.Cookies, u.ID, u.FirstName, u.CompanyID, string(u.WorkStatus),
		project, u.AccumulatedSeconds, u.DailySchedule, lastCheckIn,
		sess.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return tx.Commit()
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
