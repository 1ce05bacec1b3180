package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/iaimans/sesame-cli/internal/domain"
)

func ToCSV(events []domain.Event, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ID", "Kind", "Project", "Project ID", "At", "Duration (s)", "Duration"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range Rows(events) {
		dur := ""
		if r.Duration != "" {
			dur = fmt.Sprintf("%d", r.DurationSec)
		}
		row := []string{r.ID, r.Kind, r.Project, r.ProjectID, r.At, dur, r.Duration}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
