package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/metrics"
	"github.com/amishk599/c2cradar/internal/scheduler"
)

// shutdownWait bounds how long start waits for in-flight runs after a signal.
const shutdownWait = 30 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	lock := flock.New(a.cfg.Database.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock database: %w", err)
	}
	if !locked {
		return fmt.Errorf("another c2cradar daemon is using %s", a.cfg.Database.Path)
	}
	defer lock.Unlock()

	logger.Info("config loaded",
		"database", a.cfg.Database.Path,
		"scrape_interval", a.cfg.Scraping.Interval.String(),
		"collectors", len(a.cfg.Collectors),
		"search_terms", len(a.searchTerms()),
		"location", a.cfg.Scraping.Location,
		"relevance_threshold", a.cfg.Alerts.RelevanceThreshold,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.metrics = metrics.New()
	comps, closeLedger, err := a.components(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	sched, err := scheduler.New(scheduler.Tasks(comps, a.intervals()), scheduler.Options{
		RunOnStart: a.cfg.Scheduler.RunOnStart,
		Metrics:    a.metrics,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var ops *http.Server
	if a.cfg.Ops.Addr != "" {
		ops = &http.Server{
			Addr:              a.cfg.Ops.Addr,
			Handler:           metrics.OpsMux(a.metrics, func() any { return sched.Status() }),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops listener started", "addr", a.cfg.Ops.Addr)
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops listener failed", "error", err)
			}
		}()
	}

	// Runs get their own context so a signal lets them finish; it is cancelled
	// only once shutdownWait has passed.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	sched.Start(runCtx)
	<-ctx.Done()
	logger.Info("shutting down")

	done := sched.Stop()
	select {
	case <-done.Done():
	case <-time.After(shutdownWait):
		logger.Warn("in-flight task runs did not finish in time, cancelling", "wait", shutdownWait.String())
		cancelRuns()
	}

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops listener shutdown", "error", err)
		}
	}

	logger.Info("goodbye")
	return nil
}
