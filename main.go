package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/billr/internal/api"
	"github.com/sadopc/billr/internal/config"
	"github.com/sadopc/billr/internal/export"
	"github.com/sadopc/billr/internal/ledger"
	"github.com/sadopc/billr/internal/logging"
	"github.com/sadopc/billr/internal/model"
	"github.com/sadopc/billr/internal/pgstore"
	"github.com/sadopc/billr/internal/remote"
	"github.com/sadopc/billr/internal/store"
	"github.com/sadopc/billr/internal/tui"
)

const usage = `usage: billr [--config file] [command]

commands:
  (none)   open the terminal UI
  serve    serve the HTTP API
  export   write a report for a date range

run "billr <command> -h" for command flags
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("billr", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configFile := global.String("config", "", "path to billr.yaml")
	envFile := global.String("env", "", "path to a .env file")
	if err := global.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		return err
	}

	rest := global.Args()
	cmd := ""
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	switch cmd {
	case "":
		return runTUI(cfg)
	case "serve":
		return runServe(cfg, rest)
	case "export":
		return runExport(cfg, rest)
	}
	global.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

// openLedger connects the configured store and loads the ledger from it.
func openLedger(cfg *config.Config, log logging.Logger) (*ledger.Ledger, io.Closer, error) {
	var (
		s interface {
			ledger.Persister
			io.Closer
		}
		err error
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		s, err = pgstore.Open(cfg.Storage.DSN)
	default:
		var st *store.Store
		st, err = store.New(cfg.Storage.Path)
		if err == nil {
			logStoreSummary(st, cfg.Storage.Path, log)
			s = st
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	l := ledger.New(s, ledger.WithLogger(log), ledger.WithLocation(cfg.Loc()))
	if err := l.Load(); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("load data: %w", err)
	}
	return l, s, nil
}

// logStoreSummary reports what an opened sqlite file already holds.
func logStoreSummary(st *store.Store, path string, log logging.Logger) {
	ctx := context.Background()
	counts, err := st.Counts()
	if err != nil {
		log.Warn(ctx, "count stored documents", "err", err)
		return
	}
	settings, err := st.Settings()
	if err != nil {
		log.Warn(ctx, "list stored settings", "err", err)
		return
	}
	log.Info(ctx, "store opened", "path", path,
		"clients", counts[model.KindClients],
		"projects", counts[model.KindProjects],
		"entries", counts[model.KindTimeEntries],
		"invoices", counts[model.KindInvoices],
		"settings", len(settings))
}

// startPoller keeps the local timer in step with the remote one until ctx is
// cancelled. It is a no-op when no remote is configured.
func startPoller(ctx context.Context, cfg *config.Config, l *ledger.Ledger, log logging.Logger, onChange func(ledger.Reconciliation)) {
	if cfg.Remote.URL == "" {
		return
	}
	client := remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout)
	p := remote.NewPoller(client, l, cfg.Remote.PollInterval, log)
	p.OnChange = onChange
	go p.Run(ctx)
}

func runTUI(cfg *config.Config) error {
	// The terminal belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log, err := logging.New(logFile, cfg.Log.Level)
	if err != nil {
		return err
	}

	l, closer, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	app := tui.NewApp(l, tui.Options{ExportDir: cfg.Export.Dir})
	p := tea.NewProgram(app, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startPoller(ctx, cfg, l, log, func(o ledger.Reconciliation) {
		p.Send(tui.TimerSyncMsg{Outcome: o})
	})

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	l, closer, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startPoller(ctx, cfg, l, log, nil)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(l, log, api.Options{CORSOrigins: cfg.Server.CORSOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", *addr, "storage", cfg.Storage.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "csv", "csv, text or json")
	from := fs.String("from", "", "first day, YYYY-MM-DD (required)")
	to := fs.String("to", "", "last day, YYYY-MM-DD (required)")
	client := fs.String("client", "", "only this client id")
	project := fs.String("project", "", "only this project id")
	out := fs.String("o", "", "output file; - for stdout (default: export dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		fs.Usage()
		return errors.New("export: --from and --to are required")
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	l, closer, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	rep, err := l.Report(ledger.ReportQuery{From: *from, To: *to, ClientID: *client, ProjectID: *project})
	if err != nil {
		return err
	}
	payload, err := export.ReportPayload(rep, f)
	if err != nil {
		return err
	}

	switch *out {
	case "-":
		_, err = os.Stdout.Write(payload.Body)
		return err
	case "":
		*out = filepath.Join(cfg.Export.Dir, payload.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(*out, payload.Body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d entries)\n", *out, rep.Totals.Entries)
	return nil
}
