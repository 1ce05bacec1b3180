package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/iaimans/sesame-cli/internal/domain"
)

func sampleEvents() []domain.Event {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	// Deliberately out of order.
	return []domain.Event{
		{ID: "c", Kind: domain.EventCheckOut, ProjectName: "", At: base.Add(2*time.Hour + 30*time.Second)},
		{ID: "a", Kind: domain.EventLogin, At: base},
		{ID: "b", Kind: domain.EventCheckIn, ProjectID: "p1", ProjectName: "Project Alpha", At: base.Add(30 * time.Second)},
		{ID: "d", Kind: domain.EventCheckIn, ProjectID: "p2", ProjectName: "Project Beta", At: base.Add(3 * time.Hour)},
	}
}

// ============================================================
// Rows
// ============================================================

func TestRowsPairsCheckOuts(t *testing.T) {
	rows := Rows(sampleEvents())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	order := []string{"a", "b", "c", "d"}
	for i, id := range order {
		if rows[i].ID != id {
			t.Fatalf("rows[%d].ID = %q, want %q", i, rows[i].ID, id)
		}
	}

	out := rows[2]
	if out.DurationSec != 7200 || out.Duration != "02:00:00" {
		t.Fatalf("check-out duration = %d %q, want 7200 02:00:00", out.DurationSec, out.Duration)
	}
	if out.Project != "Project Alpha" {
		t.Fatalf("check-out should inherit the project, got %q", out.Project)
	}
	if rows[3].Duration != "" {
		t.Fatal("open check-in should have no duration")
	}
}

func TestRowsUnpairedCheckOut(t *testing.T) {
	rows := Rows([]domain.Event{{ID: "x", Kind: domain.EventCheckOut, At: time.Now()}})
	if rows[0].Duration != "" || rows[0].DurationSec != 0 {
		t.Fatalf("unpaired check-out should have no duration: %+v", rows[0])
	}
}

func TestRowsDoesNotMutateInput(t *testing.T) {
	events := sampleEvents()
	Rows(events)
	if events[0].ID != "c" {
		t.Fatal("input slice was reordered")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{36000, "10:00:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.secs); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ToCSV(sampleEvents(), &buf); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 rows (1 header + 4 data), got %d", len(records))
	}

	expectedHeader := []string{"ID", "Kind", "Project", "Project ID", "At", "Duration (s)", "Duration"}
	for i, h := range expectedHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	checkIn := records[2]
	if checkIn[1] != "check_in" || checkIn[2] != "Project Alpha" || checkIn[3] != "p1" {
		t.Fatalf("unexpected check-in row %v", checkIn)
	}
	checkOut := records[3]
	if checkOut[5] != "7200" || checkOut[6] != "02:00:00" {
		t.Fatalf("unexpected check-out row %v", checkOut)
	}
	if records[1][5] != "" {
		t.Fatalf("login row should have no duration, got %q", records[1][5])
	}
}

func TestToCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ToCSV(nil, &buf); err != nil {
		t.Fatal(err)
	}
	records, _ := csv.NewReader(&buf).ReadAll()
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	events := []domain.Event{{ID: "1", Kind: domain.EventCheckIn, ProjectName: `Project "Special", Inc`, At: time.Now()}}
	var buf bytes.Buffer
	if err := ToCSV(events, &buf); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv with special chars should parse: %v", err)
	}
	if records[1][2] != `Project "Special", Inc` {
		t.Fatalf("project = %q", records[1][2])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestToCSVWriteError(t *testing.T) {
	if err := ToCSV(sampleEvents(), failingWriter{}); err == nil {
		t.Fatal("expected write error")
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ToJSON(sampleEvents(), &buf); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var doc document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Count != 4 || len(doc.Events) != 4 {
		t.Fatalf("count = %d, events = %d", doc.Count, len(doc.Events))
	}
	if _, err := time.Parse(time.RFC3339, doc.ExportedAt); err != nil {
		t.Fatalf("exported_at not RFC3339: %q", doc.ExportedAt)
	}
	if doc.Events[2].DurationSec != 7200 {
		t.Fatalf("duration = %d", doc.Events[2].DurationSec)
	}
	if strings.Contains(buf.String(), `"project_id": ""`) {
		t.Fatal("empty project id should be omitted")
	}
}

func TestToJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ToJSON(nil, &buf); err != nil {
		t.Fatal(err)
	}
	var doc document
	json.Unmarshal(buf.Bytes(), &doc)
	if doc.Count != 0 {
		t.Fatalf("expected count 0, got %d", doc.Count)
	}
}

// ============================================================
// YAML
// ============================================================

func TestToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := ToYAML(sampleEvents(), &buf); err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	var doc document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if doc.Count != 4 || doc.Events[1].Project != "Project Alpha" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Events[2].Duration != "02:00:00" {
		t.Fatalf("duration = %q, want 02:00:00", doc.Events[2].Duration)
	}
}

// ============================================================
// Write dispatch
// ============================================================

func TestWriteFormats(t *testing.T) {
	for _, format := range []string{"csv", "JSON", "yaml", "yml"} {
		var buf bytes.Buffer
		if err := Write(format, sampleEvents(), &buf); err != nil {
			t.Fatalf("Write(%q): %v", format, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("Write(%q) produced no output", format)
		}
	}
	if err := Write("xml", nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
