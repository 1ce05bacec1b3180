package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

type document struct {
	ExportedAt string `json:"exported_at" yaml:"exported_at"`
	Count      int    `json:"count" yaml:"count"`
	Events     []Row  `json:"events" yaml:"events"`
}

func newDocument(events []domain.Event, now time.Time) document {
	return document{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(events),
		Events:     Rows(events),
	}
}

func ToJSON(events []domain.Event, w io.Writer) error {
	data, err := json.MarshalIndent(newDocument(events, time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
