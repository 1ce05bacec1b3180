package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iaimans/sesame-cli/internal/export"
	"github.com/iaimans/sesame-cli/internal/store"
	"github.com/iaimans/sesame-cli/internal/worksession"
)

var exportFormats = []string{"CSV", "JSON", "YAML"}

// Options tune the App. Zero values fall back to defaults.
type Options struct {
	Tick            time.Duration // display tick, default 1s
	RefreshInterval time.Duration // background refresh, 0 disables
	Backend         string        // session store name shown on the account view
	ExportDir       string        // default home directory
}

// App is the root Bubble Tea model.
type App struct {
	ctx     context.Context
	engine  Engine
	records Records
	opts    Options
	now     func() time.Time
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	history   historyModel
	account   accountModel

	lastRefresh time.Time
	loggedOut   bool

	help        help.Model
	status      string
	statusIsErr bool
}

func NewApp(ctx context.Context, e Engine, r Records, opts Options) App {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	h := help.New()
	h.ShowAll = false

	return App{
		ctx:         ctx,
		engine:      e,
		records:     r,
		opts:        opts,
		now:         time.Now,
		activeView:  viewDashboard,
		dashboard:   newDashboardModel(ctx, e, r),
		history:     newHistoryModel(r),
		account:     newAccountModel(e, r, opts.Backend),
		lastRefresh: time.Now(),
		help:        h,
	}
}

// LoggedOut reports whether the program ended through the logout action.
func (a App) LoggedOut() bool { return a.loggedOut }

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.tickCmd(),
	)
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.opts.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.account.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a.quit()
		}

		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a.quit()
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewAccount
			return a, a.account.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, a.tickCmd())
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		cmds = append(cmds, cmd)
		a.account, cmd = a.account.update(msg)
		cmds = append(cmds, cmd)
		if a.refreshDue(time.Time(msg)) {
			a.lastRefresh = time.Time(msg)
			cmds = append(cmds, a.dashboard.refresh(true))
		}
		return a, tea.Batch(cmds...)

	case spinner.TickMsg, projectsLoadedMsg, actionDoneMsg, recentLoadedMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case refreshDoneMsg:
		if msg.err == nil {
			a.lastRefresh = a.now()
		}
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case historyLoadedMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, cmd

	case accountLoadedMsg:
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, cmd

	case loggedOutMsg:
		if msg.err != nil {
			a.status = "Logout failed: " + errorText(msg.err)
			a.statusIsErr = true
			return a, nil
		}
		a.loggedOut = true
		return a, tea.Quit

	case statusMsg:
		a.status = msg.text
		a.statusIsErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusIsErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// refreshDue reports whether a background refresh should start at t.
func (a App) refreshDue(t time.Time) bool {
	if a.opts.RefreshInterval <= 0 || !a.dashboard.isIdle() {
		return false
	}
	snap := a.dashboard.snap
	if snap.Busy || !snap.State.Ready() {
		return false
	}
	return t.Sub(a.lastRefresh) >= a.opts.RefreshInterval
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.engine.Dispatch(a.ctx, worksession.Action{Kind: worksession.ActionQuit}.String())
	return a, tea.Quit
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewAccount:
		a.account, cmd = a.account.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		// The picker and error panel own the arrow and enter keys.
		return !a.dashboard.isIdle()
	case viewAccount:
		return a.account.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewHistory:
		return a.history.refresh()
	case viewAccount:
		return a.account.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewHistory:
		content = a.history.view()
	case viewAccount:
		content = a.account.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("sesame")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	clock := ""
	if snap := a.dashboard.snap; snap.Working() {
		clock = successStyle.Render(" ● " + formatSeconds(snap.Summary.SessionSeconds))
		if snap.Stale {
			clock = warningStyle.Render(" ● " + formatSeconds(snap.Summary.SessionSeconds))
		}
	}

	left := footerStyle.Render(helpView)
	right := clock + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Journal")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format string) tea.Cmd {
	return func() tea.Msg {
		events, err := a.records.ListEvents(store.EventFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		ext := strings.ToLower(format)
		path := filepath.Join(a.opts.ExportDir, fmt.Sprintf("sesame-export-%s.%s", a.now().Format("2006-01-02"), ext))

		f, err := os.Create(path)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		defer f.Close()

		if err := export.Write(ext, events, f); err != nil {
			return statusMsg{text: fmt.Sprintf("%s error: %v", format, err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
