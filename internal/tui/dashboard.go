package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iaimans/sesame-cli/internal/domain"
	"github.com/iaimans/sesame-cli/internal/store"
	"github.com/iaimans/sesame-cli/internal/worksession"
)

type uiMode int

const (
	modeIdle uiMode = iota
	modeLoading
	modeShowingProjects
	modeError
)

// uiState is what the action area is showing. Only the field matching mode
// is meaningful.
type uiState struct {
	mode     uiMode
	reason   string
	projects []domain.Project
	message  string
}

func idle() uiState { return uiState{mode: modeIdle} }
func loading(reason string) uiState { return uiState{mode: modeLoading, reason: reason} }
func showing(ps []domain.Project) uiState { return uiState{mode: modeShowingProjects, projects: ps} }
func failed(message string) uiState { return uiState{mode: modeError, message: message} }
func (u uiState) is(m uiMode) bool { return u.mode == m }

type menuKind int

const (
	menuCheckIn menuKind = iota
	menuCheckOut
	menuRefresh
	menuQuit
)

type menuItem struct {
	label string
	kind  menuKind
}

const recentLimit = 5

type dashboardModel struct {
	ctx     context.Context
	engine  Engine
	records Records
	width   int
	height  int

	snap    worksession.Snapshot
	ui      uiState
	spinner spinner.Model
	recent  []domain.Event

	menuCursor   int
	pickerCursor int
	lastProject  string
}

type recentLoadedMsg struct {
	events      []domain.Event
	lastProject string
}

func newDashboardModel(ctx context.Context, e Engine, r Records) dashboardModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(colorPrimary)),
	)
	return dashboardModel{
		ctx:     ctx,
		engine:  e,
		records: r,
		snap:    e.Snapshot(),
		ui:      idle(),
		spinner: sp,
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) isIdle() bool { return d.ui.is(modeIdle) }

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		events, _ := d.records.ListEvents(store.EventFilter{Limit: recentLimit})
		last, _ := d.records.GetSetting(store.SettingLastProject)
		return recentLoadedMsg{events: events, lastProject: last}
	}
}

func (d dashboardModel) menu() []menuItem {
	if d.snap.Working() {
		label := "Check Out"
		if d.snap.User != nil && d.snap.User.CurrentProject != "" {
			label = fmt.Sprintf("Check Out from %q", d.snap.User.CurrentProject)
		}
		return []menuItem{{label, menuCheckOut}, {"Refresh", menuRefresh}, {"Quit", menuQuit}}
	}
	return []menuItem{{"Check In", menuCheckIn}, {"Refresh", menuRefresh}, {"Quit", menuQuit}}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case recentLoadedMsg:
		d.recent = msg.events
		d.lastProject = msg.lastProject
		return d, nil

	case tickMsg:
		d.snap = d.engine.Snapshot()
		if d.menuCursor >= len(d.menu()) {
			d.menuCursor = 0
		}
		return d, nil

	case spinner.TickMsg:
		if !d.ui.is(modeLoading) {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case projectsLoadedMsg:
		if msg.err != nil {
			d.ui = failed(errorText(msg.err))
			return d, nil
		}
		if len(msg.projects) == 0 {
			d.ui = failed("No projects are assigned to you")
			return d, nil
		}
		d.ui = showing(msg.projects)
		d.pickerCursor = 0
		for i, p := range msg.projects {
			if p.ID == d.lastProject {
				d.pickerCursor = i
			}
		}
		return d, nil

	case actionDoneMsg:
		d.snap = d.engine.Snapshot()
		d.menuCursor = 0
		if msg.err != nil {
			d.ui = failed(errorText(msg.err))
			return d, nil
		}
		d.ui = idle()
		if msg.action.Kind == worksession.ActionCheckIn {
			d.lastProject = msg.action.ProjectID
		}
		return d, tea.Batch(d.loadData(), outcomeStatus(msg))

	case refreshDoneMsg:
		d.snap = d.engine.Snapshot()
		if msg.auto {
			if msg.err != nil {
				return d, setStatus("Background refresh failed: "+errorText(msg.err), true)
			}
			return d, nil
		}
		if msg.err != nil {
			d.ui = failed(errorText(msg.err))
			return d, nil
		}
		d.ui = idle()
		return d, setStatus("Refreshed", false)

	case tea.KeyMsg:
		switch d.ui.mode {
		case modeLoading:
			return d, nil
		case modeShowingProjects:
			return d.updatePicker(msg)
		case modeError:
			if key.Matches(msg, keys.Enter, keys.Back) {
				d.ui = idle()
			}
			return d, nil
		}
		return d.updateMenu(msg)
	}
	return d, nil
}

func (d dashboardModel) updateMenu(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	items := d.menu()
	switch {
	case key.Matches(msg, keys.Up):
		if d.menuCursor > 0 {
			d.menuCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.menuCursor < len(items)-1 {
			d.menuCursor++
		}
	case key.Matches(msg, keys.Refresh):
		return d.startRefresh()
	case key.Matches(msg, keys.Enter):
		switch items[d.menuCursor].kind {
		case menuCheckIn:
			return d.startLoading("Loading projects...", d.fetchProjects())
		case menuCheckOut:
			return d.startLoading("Checking out...", d.dispatch(worksession.Action{Kind: worksession.ActionCheckOut}))
		case menuRefresh:
			return d.startRefresh()
		case menuQuit:
			d.engine.Dispatch(d.ctx, worksession.Action{Kind: worksession.ActionQuit}.String())
			return d, tea.Quit
		}
	}
	return d, nil
}

// updatePicker moves over the projects plus a trailing "Back" entry.
func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	n := len(d.ui.projects)
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < n {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Back):
		d.ui = idle()
	case key.Matches(msg, keys.Enter):
		if d.pickerCursor == n {
			d.ui = idle()
			return d, nil
		}
		p := d.ui.projects[d.pickerCursor]
		a := worksession.Action{Kind: worksession.ActionCheckIn, ProjectID: p.ID}
		return d.startLoading(fmt.Sprintf("Checking in to %s...", p.Name), d.dispatch(a))
	}
	return d, nil
}

func (d dashboardModel) startLoading(reason string, work tea.Cmd) (dashboardModel, tea.Cmd) {
	if d.snap.Busy {
		return d, setStatus(errorText(domain.ErrBusy), true)
	}
	d.ui = loading(reason)
	return d, tea.Batch(d.spinner.Tick, work)
}

func (d dashboardModel) startRefresh() (dashboardModel, tea.Cmd) {
	return d.startLoading("Refreshing...", d.refresh(false))
}

func (d dashboardModel) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		ps, err := d.engine.Projects(d.ctx)
		return projectsLoadedMsg{projects: ps, err: err}
	}
}

func (d dashboardModel) dispatch(a worksession.Action) tea.Cmd {
	return func() tea.Msg {
		out, err := d.engine.Dispatch(d.ctx, a.String())
		if err == nil && a.Kind == worksession.ActionCheckIn {
			d.records.SetSetting(store.SettingLastProject, a.ProjectID)
		}
		return actionDoneMsg{action: a, outcome: out, err: err}
	}
}

func (d dashboardModel) refresh(auto bool) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{auto: auto, err: d.engine.Refresh(d.ctx)}
	}
}

func setStatus(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

func outcomeStatus(msg actionDoneMsg) tea.Cmd {
	verb := "Checked in"
	if msg.action.Kind == worksession.ActionCheckOut {
		verb = "Checked out"
	}
	if msg.outcome.Stale {
		return setStatus(verb+", but the status could not be refreshed (press r)", true)
	}
	return setStatus(verb, false)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	var bottom string
	switch d.ui.mode {
	case modeShowingProjects:
		bottom = d.renderProjectPicker(contentWidth)
	case modeLoading:
		bottom = activePanelStyle.Width(contentWidth).Render(d.spinner.View() + " " + d.ui.reason)
	case modeError:
		bottom = activePanelStyle.Width(contentWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Error: "+d.ui.message),
			"",
			mutedStyle.Render("  enter: continue"),
		))
	default:
		bottom = d.renderMenu(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderStatusPanel(contentWidth),
		bottom,
		d.renderRecentPanel(contentWidth),
	)
}

func (d dashboardModel) renderStatusPanel(w int) string {
	lines := d.snap.Lines()
	rendered := make([]string, 0, len(lines)+2)
	for i, l := range lines {
		switch {
		case i == 0:
			rendered = append(rendered, titleStyle.Render(l))
		case strings.HasPrefix(l, "You are currently offline"):
			rendered = append(rendered, warningStyle.Render(l))
		case strings.HasPrefix(l, "Work Status:"), strings.Contains(l, "Complete!"):
			rendered = append(rendered, successStyle.Render(l))
		case strings.HasPrefix(l, "Current Project:"):
			rendered = append(rendered, highlightStyle.Render(l))
		case strings.HasPrefix(l, "(not yet confirmed"):
			rendered = append(rendered, accentStyle.Render(l))
		default:
			rendered = append(rendered, l)
		}
	}

	if d.snap.Working() {
		clock := clockWorkingStyle.Render("●  " + formatSeconds(d.snap.Summary.SessionSeconds))
		rendered = append(rendered, "", clock)
		return activePanelStyle.Width(w).Render(strings.Join(rendered, "\n"))
	}
	if d.snap.User != nil {
		rendered = append(rendered, "", clockOfflineStyle.Render("■  OFFLINE"))
	}
	return panelStyle.Width(w).Render(strings.Join(rendered, "\n"))
}

func (d dashboardModel) renderMenu(w int) string {
	rows := []string{titleStyle.Render("What would you like to do?")}
	for i, item := range d.menu() {
		cursor := "  "
		style := normalItemStyle
		if i == d.menuCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+item.label))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderProjectPicker(w int) string {
	rows := []string{titleStyle.Render("Select Project")}
	labels := make([]string, 0, len(d.ui.projects)+1)
	for _, p := range d.ui.projects {
		labels = append(labels, p.Name)
	}
	labels = append(labels, "Back")

	for i, label := range labels {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+label))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Activity")
	if len(d.recent) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("Nothing recorded yet"),
		))
	}

	rows := []string{title}
	for _, e := range d.recent {
		at := e.At.Local().Format("Jan 02 15:04")
		var what string
		switch e.Kind {
		case domain.EventCheckIn:
			what = successStyle.Render("in ") + "  " + e.ProjectName
		case domain.EventCheckOut:
			what = warningStyle.Render("out") + "  " + e.ProjectName
		default:
			what = subtitleStyle.Render(string(e.Kind))
		}
		rows = append(rows, fmt.Sprintf("  %s  %s", mutedStyle.Render(at), what))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
