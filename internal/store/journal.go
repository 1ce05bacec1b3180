package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

const dateLayout = "2006-01-02"

// timeLayout keeps nanoseconds at a fixed width, so stored instants sort
// lexically in time order and round-trip exactly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) RecordEvent(e domain.Event) error {
	if e.ID == "" {
		return errors.New("record event: missing id")
	}
	_, err := s.db.Exec(
		`INSERT INTO journal (id, kind, project_id, project_name, at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.ProjectID, e.ProjectName, e.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListEvents returns journal events, newest first.
func (s *Store) ListEvents(f EventFilter) ([]domain.Event, error) {
	query := `SELECT id, kind, project_id, project_name, at FROM journal WHERE 1=1`
	var args []any

	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.From != nil {
		query += ` AND at >= ?`
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if f.To != nil {
		query += ` AND at < ?`
		args = append(args, f.To.UTC().Format(timeLayout))
	}
	query += ` ORDER BY at DESC, rowid DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var kind, at string
		if err := rows.Scan(&e.ID, &kind, &e.ProjectID, &e.ProjectName, &at); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecordDailyTotal upserts the server-reported total for a day. The latest
// refresh of the day wins.
func (s *Store) RecordDailyTotal(t domain.DailyTotal) error {
	if _, err := time.Parse(dateLayout, t.Date); err != nil {
		return fmt.Errorf("record daily total: bad date %q", t.Date)
	}
	_, err := s.db.Exec(`
		INSERT INTO daily_totals (date, accumulated_seconds, daily_schedule, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			accumulated_seconds = excluded.accumulated_seconds,
			daily_schedule = excluded.daily_schedule,
			updated_at = excluded.updated_at`,
		t.Date, t.AccumulatedSeconds, t.DailySchedule, t.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record daily total: %w", err)
	}
	return nil
}

// DailyTotals returns the recorded totals for days in [from, to], oldest
// first. Days without a refresh are absent.
func (s *Store) DailyTotals(from, to time.Time) ([]domain.DailyTotal, error) {
	rows, err := s.db.Query(`
		SELECT date, accumulated_seconds, daily_schedule, updated_at
		FROM daily_totals
		WHERE date >= ? AND date <= ?
		ORDER BY date`,
		from.Format(dateLayout), to.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.DailyTotal
	for rows.Next() {
		var t domain.DailyTotal
		var updated string
		if err := rows.Scan(&t.Date, &t.AccumulatedSeconds, &t.DailySchedule, &updated); err != nil {
			return nil, err
		}
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// DailyTotal returns the total recorded for date, or nil if none.
func (s *Store) DailyTotal(date string) (*domain.DailyTotal, error) {
	t := &domain.DailyTotal{Date: date}
	var updated string
	err := s.db.QueryRow(
		`SELECT accumulated_seconds, daily_schedule, updated_at FROM daily_totals WHERE date = ?`, date,
	).Scan(&t.AccumulatedSeconds, &t.DailySchedule, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily total %s: %w", date, err)
	}
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return t, nil
}
