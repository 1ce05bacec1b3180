package domain

import (
	"fmt"
	"math"
)

// WorkTimeSummary derives worked/remaining/percentage from the server total,
// the schedule, and the live session delta.
type WorkTimeSummary struct {
	AccumulatedSeconds int64
	DailySchedule      int64
	SessionSeconds     int64
}

func NewWorkTimeSummary(accumulated, schedule, session int64) WorkTimeSummary {
	return WorkTimeSummary{
		AccumulatedSeconds: accumulated,
		DailySchedule:      schedule,
		SessionSeconds:     session,
	}
}

func (w WorkTimeSummary) TotalWorkedSeconds() int64 {
	return w.AccumulatedSeconds + w.SessionSeconds
}

func (w WorkTimeSummary) RemainingSeconds() int64 {
	return max(0, w.DailySchedule-w.TotalWorkedSeconds())
}

func (w WorkTimeSummary) IsComplete() bool {
	return w.TotalWorkedSeconds() >= w.DailySchedule
}

// Percentage is clamped to [0, 100] and is 0 when there is no schedule.
func (w WorkTimeSummary) Percentage() int {
	if w.DailySchedule <= 0 {
		return 0
	}
	p := math.Round(float64(w.TotalWorkedSeconds()) / float64(w.DailySchedule) * 100)
	return int(min(100, max(0, p)))
}

// FormattedSummary is the display form of a WorkTimeSummary. Session is only
// set by FormattedWithSeconds.
type FormattedSummary struct {
	Worked     string
	Scheduled  string
	Remaining  string
	Session    string
	IsComplete bool
	Percentage int
}

// Formatted is the coarse hours+minutes view used while offline.
func (w WorkTimeSummary) Formatted() FormattedSummary {
	return FormattedSummary{
		Worked:     FormatSecondsToTime(w.TotalWorkedSeconds()),
		Scheduled:  FormatSecondsToTime(w.DailySchedule),
		Remaining:  FormatSecondsToTime(w.RemainingSeconds()),
		IsComplete: w.IsComplete(),
		Percentage: w.Percentage(),
	}
}

// FormattedWithSeconds is the live view used while working.
func (w WorkTimeSummary) FormattedWithSeconds() FormattedSummary {
	return FormattedSummary{
		Worked:     FormatSecondsToTimeWithSeconds(w.TotalWorkedSeconds()),
		Scheduled:  FormatSecondsToTime(w.DailySchedule),
		Remaining:  FormatSecondsToTimeWithSeconds(w.RemainingSeconds()),
		Session:    FormatSecondsToTimeWithSeconds(w.SessionSeconds),
		IsComplete: w.IsComplete(),
		Percentage: w.Percentage(),
	}
}

// FormatSecondsToTime renders "Hh Mm". Negative input renders as "0h 0m".
func FormatSecondsToTime(secs int64) string {
	secs = max(secs, 0)
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}

// FormatSecondsToTimeWithSeconds renders "Hh Mm Ss".
func FormatSecondsToTimeWithSeconds(secs int64) string {
	secs = max(secs, 0)
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}
