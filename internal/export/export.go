// Package export writes the local check-in journal as CSV, JSON or YAML.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iaimans/sesame-cli/internal/domain"
)

var writers = map[string]func([]domain.Event, io.Writer) error{
	"csv":  ToCSV,
	"json": ToJSON,
	"yaml": ToYAML,
	"yml":  ToYAML,
}

// Write dispatches on format.
func Write(format string, events []domain.Event, w io.Writer) error {
	fn, ok := writers[strings.ToLower(format)]
	if !ok {
		return fmt.Errorf("unknown export format %q (want csv, json or yaml)", format)
	}
	return fn(events, w)
}
