package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iaimans/sesame-cli/internal/domain"
	"github.com/iaimans/sesame-cli/internal/store"
)

const historyDays = 7

type historyModel struct {
	records Records
	width   int
	height  int
	now     func() time.Time

	totals []domain.DailyTotal
	events []domain.Event
	offset int // 7-day blocks back from today (0 = current)
	err    error

	chart barchart.Model
}

func newHistoryModel(r Records) historyModel {
	return historyModel{
		records: r,
		now:     time.Now,
		chart:   barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
}

// dateRange is inclusive on both ends, in local time.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := today.AddDate(0, 0, -historyDays*h.offset)
	return to.AddDate(0, 0, 1-historyDays), to
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		totals, err := h.records.DailyTotals(from, to)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		end := to.AddDate(0, 0, 1)
		events, err := h.records.ListEvents(store.EventFilter{From: &from, To: &end})
		return historyLoadedMsg{totals: totals, events: events, err: err}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		h.totals = msg.totals
		h.events = msg.events
		h.err = msg.err
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

// split divides a day into scheduled work and overtime.
func split(t domain.DailyTotal) (worked, overtime int64) {
	if t.DailySchedule > 0 && t.AccumulatedSeconds > t.DailySchedule {
		return t.DailySchedule, t.AccumulatedSeconds - t.DailySchedule
	}
	return t.AccumulatedSeconds, 0
}

func (h historyModel) byDate() map[string]domain.DailyTotal {
	m := make(map[string]domain.DailyTotal, len(h.totals))
	for _, t := range h.totals {
		m[t.Date] = t
	}
	return m
}

func (h *historyModel) buildChart() {
	chartWidth := max(h.width-8, 20)
	chartHeight := 12
	if h.height > 30 {
		chartHeight = 16
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	workedStyle := lipgloss.NewStyle().Foreground(colorPrimary)
	overtimeStyle := lipgloss.NewStyle().Foreground(colorAccent)
	emptyStyle := lipgloss.NewStyle().Foreground(colorSubtle)

	days := h.byDate()
	from, to := h.dateRange()

	var bars []barchart.BarData
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		values := []barchart.BarValue{{Name: "", Value: 0, Style: emptyStyle}}
		if t, ok := days[d.Format("2006-01-02")]; ok {
			worked, overtime := split(t)
			values = []barchart.BarValue{
				{Name: "Worked", Value: float64(worked) / 3600, Style: workedStyle},
				{Name: "Overtime", Value: float64(overtime) / 3600, Style: overtimeStyle},
			}
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: values,
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("History"), "  ", dateLabel)

	if h.err != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", errorStyle.Render("Could not read history: "+h.err.Error()),
		))
	}

	legend := "  " + lipgloss.NewStyle().Foreground(colorPrimary).Render("●") + " worked  " +
		lipgloss.NewStyle().Foreground(colorAccent).Render("●") + " overtime"

	nav := mutedStyle.Render("  ←/→: navigate  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), "", legend, "", h.renderTable(w), "", h.renderCheckIns(), "", nav,
		),
	)
}

func (h historyModel) renderTable(w int) string {
	if len(h.totals) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s %6s", "Date", "Worked", "Scheduled", "%")),
		mutedStyle.Render("  " + strings.Repeat("─", max(min(w-6, 42), 0))),
	}
	var sum int64
	for _, t := range h.totals {
		s := domain.NewWorkTimeSummary(t.AccumulatedSeconds, t.DailySchedule, 0)
		pct := fmt.Sprintf("%5d%%", s.Percentage())
		if s.IsComplete() && t.DailySchedule > 0 {
			pct = successStyle.Render(pct)
		}
		rows = append(rows, fmt.Sprintf("  %-12s %10s %10s %s",
			t.Date, formatSeconds(t.AccumulatedSeconds), formatSeconds(t.DailySchedule), pct,
		))
		sum += t.AccumulatedSeconds
	}
	rows = append(rows, highlightStyle.Render(fmt.Sprintf("  %-12s %10s", "Total", formatHours(sum))))
	return strings.Join(rows, "\n")
}

// renderCheckIns counts check-ins per project over the period.
func (h historyModel) renderCheckIns() string {
	counts := make(map[string]int)
	var order []string
	for _, e := range h.events {
		if e.Kind != domain.EventCheckIn {
			continue
		}
		name := e.ProjectName
		if name == "" {
			name = e.ProjectID
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}
	if len(order) == 0 {
		return mutedStyle.Render("  No check-ins recorded")
	}
	items := make([]string, 0, len(order))
	for _, name := range order {
		items = append(items, fmt.Sprintf("%s ×%d", name, counts[name]))
	}
	return "  " + subtitleStyle.Render("Check-ins: ") + strings.Join(items, "  ")
}
