// Command pvreviews collects unreplied reviews, drafts replies with an LLM and
// posts them back in batches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/client"
	"pv-reviews/internal/config"
	"pv-reviews/internal/llm"
	"pv-reviews/internal/metrics"
	"pv-reviews/internal/notify"
	"pv-reviews/internal/pipeline"
	"pv-reviews/internal/progress"
	"pv-reviews/internal/storage"
	"pv-reviews/internal/types"
)

const usage = `usage: pvreviews <command> [flags]

commands:
  collect            collect unreplied reviews into the store
  generate           draft replies for unreplied reviews
  post               post pending replies in batches
  run                collect, generate, post (if enabled) and notify once
  daemon             run the daily pipeline on schedule and serve /metrics
  summary            print the recent run summary
  migrate            apply the schema, optionally importing a CSV export
  install-browsers   download the chromium build used for automation
`

// command describes what a subcommand needs before it runs.
type command struct {
	browser  bool
	llm      bool
	progress bool
	notify   bool
	oneShot  bool // push metrics on exit
	run      func(ctx context.Context, app *app, args []string) error
}

var commands = map[string]command{
	"collect":  {browser: true, oneShot: true, run: runCollect},
	"generate": {llm: true, oneShot: true, run: runGenerate},
	"post":     {browser: true, progress: true, oneShot: true, run: runPost},
	"run":      {browser: true, llm: true, progress: true, notify: true, oneShot: true, run: runDaily},
	"daemon":   {browser: true, llm: true, progress: true, notify: true, run: runDaemon},
	"summary":  {notify: true, run: runSummary},
	"migrate":  {run: runMigrate},
}

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	store    storage.Repository
	pipeline *pipeline.Pipeline
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	name := args[0]

	if name == "install-browsers" {
		if err := browser.InstallBrowsers(); err != nil {
			fmt.Fprintf(os.Stderr, "install browsers: %v\n", err)
			return 1
		}
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	// Load configuration first
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(cmd.browser, cmd.llm); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg, cmd)
	if err != nil {
		slog.Error("startup failed", "command", name, "error", err)
		return 1
	}
	defer cleanup()

	err = cmd.run(ctx, a, args[1:])

	if cmd.oneShot {
		if perr := metrics.Push(cfg.Metrics.Pushgateway, cfg.Metrics.Job); perr != nil {
			slog.Warn("push metrics failed", "error", perr)
		}
	}
	return exitCode(name, err)
}

// exitCode maps a command error to the process status. Only fatal errors
// and bad usage fail the process; partial failures are logged and exit 0.
func exitCode(name string, err error) int {
	if err == nil {
		return 0
	}
	var fatal *types.FatalError
	if errors.As(err, &fatal) || errors.Is(err, errUsage) {
		slog.Error("command failed", "command", name, "error", err)
		return 1
	}
	slog.Warn("command finished with errors", "command", name, "error", err)
	return 0
}

var errUsage = errors.New("invalid arguments")

// newApp opens the store and builds the pipeline with what cmd needs.
func newApp(ctx context.Context, cfg *config.Config, cmd command) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := storage.NewSQLRepository(cfg.Storage)
	if err != nil {
		return nil, func() {}, types.NewFatalError("store", err)
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			slog.Warn("close store failed", "error", err)
		}
	})
	slog.Info("store opened", "driver", cfg.Storage.Driver)

	var llmClient llm.Client
	if cmd.llm {
		llmClient, err = client.NewLLM(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("create llm: %w", err)
		}
		// Verify LLM connection
		if checker, ok := llmClient.(interface{ Ping(context.Context) error }); ok {
			if err := checker.Ping(ctx); err != nil {
				cleanup()
				return nil, func() {}, fmt.Errorf("llm health check: %w", err)
			}
		}
		slog.Info("llm initialized", "backend", llmClient.Name())
	}

	var prog progress.Store
	if cmd.progress {
		prog, err = progress.NewStore(cfg.Progress)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("open progress store: %w", err)
		}
		if c, ok := prog.(io.Closer); ok {
			closers = append(closers, func() { c.Close() })
		}
	}

	var notifier notify.Notifier
	if cmd.notify {
		notifier = notify.New(cfg)
	}

	var launch pipeline.Launcher
	if cmd.browser {
		launch = pipeline.PlaywrightLauncher(cfg)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline.New(cfg, store, launch, llmClient, prog, notifier),
	}, cleanup, nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}
