package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pv-reviews/internal/notify"
	"pv-reviews/internal/scheduler"
	"pv-reviews/internal/storage"
	"pv-reviews/internal/types"
)

func runCollect(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	maxReviews := fs.Int("max", a.cfg.Collection.MaxReviews, "maximum reviews to examine")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	a.cfg.Collection.MaxReviews = *maxReviews

	_, err := a.pipeline.Collect(ctx)
	return err
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	limit := fs.Int("limit", a.cfg.Generation.Limit, "maximum reviews to draft replies for (0 = all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	_, err := a.pipeline.Generate(ctx, *limit)
	return err
}

func runPost(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	limit := fs.Int("limit", a.cfg.Posting.Limit, "maximum replies to post (0 = all)")
	batchSize := fs.Int("batch-size", a.cfg.Posting.BatchSize, "replies per batch")
	delay := fs.Duration("delay", a.cfg.Posting.BatchDelay, "mean pause between batches")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *batchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive", errUsage)
	}
	a.cfg.Posting.BatchSize = *batchSize
	a.cfg.Posting.BatchDelay = *delay

	_, err := a.pipeline.Post(ctx, *limit)
	return err
}

func runDaily(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	post := fs.Bool("post", a.cfg.Posting.Auto, "post generated replies after generation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	a.cfg.Posting.Auto = *post

	return a.pipeline.RunDaily(ctx).Err
}

func runSummary(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	send := fs.Bool("notify", false, "also send the summary through the configured notifiers")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, err := a.pipeline.Summary(ctx)
	if err != nil {
		return types.NewFatalError("store", err)
	}
	fmt.Fprintln(os.Stdout, notify.TelegramText(a.cfg.Business.Name, s))

	if *send && !a.pipeline.Notify(ctx) {
		slog.Warn("summary not delivered by any notifier")
	}
	return nil
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "legacy CSV export to import")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	slog.Info("schema up to date", "driver", a.cfg.Storage.Driver)
	if *csvPath == "" {
		return nil
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	defer f.Close()

	res, err := storage.ImportCSV(ctx, a.store, f)
	if err != nil {
		return types.NewFatalError("store", fmt.Errorf("import %s: %w", *csvPath, err))
	}
	slog.Info("csv imported",
		"path", *csvPath,
		"attempted", res.Attempted,
		"inserted", res.Inserted,
		"invalid", res.Invalid,
		"failed", res.Failed)
	return nil
}

func runDaemon(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	now := fs.Bool("now", false, "run the pipeline once at startup")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	sched, err := scheduler.New(a.cfg.Schedule.Cron, a.cfg.Schedule.Timezone, func(ctx context.Context) {
		a.pipeline.RunDaily(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	mux := http.NewServeMux()

	// Liveness probe
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness probe checks the record store
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.Ping(r.Context()); err != nil {
			slog.Warn("store unhealthy", "error", err)
			http.Error(w, "Store Unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	// Prometheus Metrics Endpoint
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", a.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sched.Start()
	if *now {
		go sched.RunNow()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("daemon stopping")
	case err := <-serveErr:
		runErr = types.NewFatalError("server", err)
	}

	// Give the server 5 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown forced", "error", err)
	}

	// Cancels a run in progress and waits for it, so the run log is finalized
	sched.Stop()
	slog.Info("daemon stopped")
	return runErr
}
