package worksession

import "fmt"

// Working reports whether the live clock is running.
func (s Snapshot) Working() bool { return s.State == StateWorking }

// Lines renders the status block shown above the action menu.
func (s Snapshot) Lines() []string {
	if s.User == nil {
		return []string{"Not signed in"}
	}

	lines := []string{fmt.Sprintf("Hello, %s!", s.User.FirstName), ""}

	if !s.Working() {
		f := s.Summary.Formatted()
		lines = append(lines,
			"You are currently offline (not checked in)",
			"",
			"Work Time Summary:",
			"  Scheduled: "+f.Scheduled,
			fmt.Sprintf("  Worked: %s (%d%%)", f.Worked, f.Percentage),
		)
		lines = append(lines, remainingLine(f.IsComplete, f.Remaining))
		return s.withStale(lines)
	}

	f := s.Summary.FormattedWithSeconds()
	status := string(s.User.WorkStatus)
	if s.User.IsOffline() {
		// Accepted check-in not yet confirmed by a refresh.
		status = "checked in"
	}
	lines = append(lines, "Work Status: "+status)
	if s.User.CurrentProject != "" {
		lines = append(lines, "Current Project: "+s.User.CurrentProject)
	}
	lines = append(lines,
		"",
		"Live Work Time Summary:",
		"  Scheduled: "+f.Scheduled,
		fmt.Sprintf("  Worked: %s (%d%%)", f.Worked, f.Percentage),
		remainingLine(f.IsComplete, f.Remaining),
		"",
		"Session time: "+f.Session,
	)
	return s.withStale(lines)
}

func remainingLine(complete bool, remaining string) string {
	if complete {
		return "  Complete! You've finished your scheduled hours"
	}
	return "  Remaining: " + remaining
}

func (s Snapshot) withStale(lines []string) []string {
	if !s.Stale {
		return lines
	}
	return append(lines, "", "(not yet confirmed by the server, press r to refresh)")
}
