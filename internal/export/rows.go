package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

// Row is one exported journal event. Check-outs that follow a check-in
// carry the length of the interval.
type Row struct {
	ID          string `json:"id" yaml:"id"`
	Kind        string `json:"kind" yaml:"kind"`
	Project     string `json:"project,omitempty" yaml:"project,omitempty"`
	ProjectID   string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	At          string `json:"at" yaml:"at"`
	DurationSec int64  `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Rows orders events oldest first and pairs check-ins with check-outs.
func Rows(events []domain.Event) []Row {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	rows := make([]Row, 0, len(sorted))
	var open *domain.Event
	for i := range sorted {
		e := sorted[i]
		r := Row{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Project:   e.ProjectName,
			ProjectID: e.ProjectID,
			At:        e.At.Local().Format(time.RFC3339),
		}
		switch e.Kind {
		case domain.EventCheckIn:
			open = &sorted[i]
		case domain.EventCheckOut:
			if open != nil {
				secs := int64(e.At.Sub(open.At) / time.Second)
				if secs < 0 {
					secs = 0
				}
				r.DurationSec = secs
				r.Duration = formatDuration(secs)
				if r.Project == "" {
					r.Project = open.ProjectName
				}
				open = nil
			}
		}
		rows = append(rows, r)
	}
	return rows
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
