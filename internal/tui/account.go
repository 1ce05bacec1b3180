package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/iaimans/sesame-cli/internal/store"
	"github.com/iaimans/sesame-cli/internal/worksession"
)

type accountModel struct {
	engine  Engine
	records Records
	backend string
	width   int
	height  int

	snap     worksession.Snapshot
	settings []store.Setting
	err      error

	formActive bool
	form       *huh.Form
	// pointer so the value survives model copies
	confirm *bool
}

func newAccountModel(e Engine, r Records, backend string) accountModel {
	c := false
	return accountModel{
		engine:  e,
		records: r,
		backend: backend,
		confirm: &c,
	}
}

func (a *accountModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

func (a accountModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := a.records.GetAllSettings()
		return accountLoadedMsg{settings: settings, err: err}
	}
}

func (a accountModel) update(msg tea.Msg) (accountModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case accountLoadedMsg:
		a.settings = msg.settings
		a.err = msg.err
		a.snap = a.engine.Snapshot()
		return a, nil

	case tickMsg:
		a.snap = a.engine.Snapshot()
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Logout) {
			return a.showForm()
		}
	}
	return a, nil
}

func (a accountModel) showForm() (accountModel, tea.Cmd) {
	*a.confirm = false
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Log out?").
				Description("The saved session is deleted and the next start asks for your password.").
				Affirmative("Log out").
				Negative("Cancel").
				Value(a.confirm),
		),
	).WithShowHelp(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a accountModel) updateForm(msg tea.Msg) (accountModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.formActive = false
		a.form = nil
		if *a.confirm {
			return a, a.logout()
		}
		return a, nil
	case huh.StateAborted:
		a.formActive = false
		a.form = nil
		return a, nil
	}
	return a, cmd
}

func (a accountModel) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: a.engine.Logout()}
	}
}

// mask keeps the first and last four characters of an identifier.
func mask(s string) string {
	if s == "" {
		return "-"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func (a accountModel) view() string {
	w := a.width - 4
	title := titleStyle.Render("Account")

	if a.formActive && a.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", a.form.View()),
		)
	}

	field := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(16).Render(label), highlightStyle.Render(value))
	}

	rows := []string{title, ""}
	if u := a.snap.User; u != nil {
		rows = append(rows,
			field("Name", u.FirstName),
			field("Employee", u.ID),
			field("Company", u.CompanyID),
		)
	}
	updated := "-"
	if !a.snap.UpdatedAt.IsZero() {
		updated = a.snap.UpdatedAt.Local().Format("2006-01-02 15:04:05")
	}
	rows = append(rows,
		field("Company session", mask(a.snap.CSID)),
		field("Employee session", mask(a.snap.ESID)),
		field("Last update", updated),
		field("Session store", a.backend),
		field("State", a.snap.State.String()),
	)

	rows = append(rows, "", subtitleStyle.Render("Remembered"))
	if a.err != nil {
		rows = append(rows, errorStyle.Render("  "+a.err.Error()))
	}
	for _, s := range a.settings {
		v := s.Value
		if v == "" {
			v = "-"
		}
		rows = append(rows, field(s.Key, v))
	}

	rows = append(rows, "", mutedStyle.Render("Press L to log out"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
