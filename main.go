package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/iaimans/sesame-cli/internal/config"
	"github.com/iaimans/sesame-cli/internal/export"
	"github.com/iaimans/sesame-cli/internal/logger"
	"github.com/iaimans/sesame-cli/internal/sesame"
	"github.com/iaimans/sesame-cli/internal/store"
	"github.com/iaimans/sesame-cli/internal/tui"
	"github.com/iaimans/sesame-cli/internal/updater"
	"github.com/iaimans/sesame-cli/internal/worksession"
)

const usage = `Usage: sesame [flags] [command]

Commands:
  run       open the interactive dashboard (default)
  status    print today's work summary and exit
  logout    forget the saved session
  export    write the local journal (--format csv|json|yaml, --output file)
  version   print the version
  upgrade   update to the latest release

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("sesame", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	format := fs.String("format", "csv", "export format: csv, json or yaml")
	output := fs.String("output", "", "export file (default stdout)")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cmd := fs.Arg(0)
	if cmd == "" {
		cmd = "run"
	}

	switch cmd {
	case "version":
		fmt.Println(updater.String(updater.Version))
		return nil
	case "upgrade":
		return updater.New(updater.Version).Upgrade(os.Stdout)
	case "run", "status", "logout", "export":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = logger.DefaultPath()
	}
	log, closer, err := logger.Open(logPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Debug("starting", slog.String("command", cmd), slog.String("version", updater.Version), slog.String("config", cfg.File))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return err
		}
	}
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	sessions, backend, err := sessionStore(cfg, db)
	if err != nil {
		return err
	}

	switch cmd {
	case "logout":
		if err := sessions.Clear(); err != nil {
			return err
		}
		log.Info("session cleared", slog.String("store", backend))
		fmt.Println("Logged out.")
		return nil
	case "export":
		return exportJournal(db, *format, *output)
	}

	client := sesame.NewClient(
		&http.Client{Timeout: cfg.Timeout},
		log,
		sesame.WithBaseURL(cfg.BaseURL),
		sesame.WithAppURL(cfg.AppURL),
		sesame.WithRateLimit(cfg.RateLimit),
	)

	lastEmail, _ := db.GetSetting(store.SettingLastEmail)
	form := tui.NewLoginForm(lastEmail)

	orch := worksession.New(sessions, client, form,
		worksession.WithJournal(db),
		worksession.WithLogger(log),
	)
	if err := orch.Start(ctx); err != nil {
		return err
	}
	if email := form.Email(); email != "" && email != lastEmail {
		if err := db.SetSetting(store.SettingLastEmail, email); err != nil {
			log.Warn("remembering email failed", slog.String("error", err.Error()))
		}
	}

	if cmd == "status" {
		for _, line := range orch.Snapshot().Lines() {
			fmt.Println(line)
		}
		return nil
	}

	app := tui.NewApp(ctx, orch, db, tui.Options{
		Tick:            cfg.Tick,
		RefreshInterval: cfg.RefreshInterval,
		Backend:         backend,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	m, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			orch.Quit()
			return nil
		}
		return err
	}
	if a, ok := m.(tui.App); ok && a.LoggedOut() {
		fmt.Println("Logged out.")
	}
	return nil
}

// sessionStore picks the session backend. The SQLite store is also the
// journal, so it is always open.
func sessionStore(cfg *config.Config, db *store.Store) (worksession.SessionStore, string, error) {
	if cfg.Store == config.StoreSQLite {
		return db, config.StoreSQLite, nil
	}
	path := cfg.SessionFile
	if path == "" {
		var err error
		if path, err = store.DefaultSessionPath(); err != nil {
			return nil, "", err
		}
	}
	return store.NewFileStore(path), config.StoreFile + " (" + path + ")", nil
}

func exportJournal(db *store.Store, format, output string) error {
	events, err := db.ListEvents(store.EventFilter{})
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(format, events, w); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", len(events), output)
	}
	return nil
}
