package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/iaimans/sesame-cli/internal/domain"
)

func ToYAML(events []domain.Event, w io.Writer) error {
	data, err := yaml.Marshal(newDocument(events, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return nil
}
