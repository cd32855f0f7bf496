package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/dedup"
	"github.com/amishk599/c2cradar/internal/scheduler"
	"github.com/amishk599/c2cradar/internal/scoring"
)

var sweepTasks = map[string]string{
	"dedup":     scheduler.TaskDedup,
	"rescore":   scheduler.TaskRescore,
	"retention": scheduler.TaskRetention,
}

var sweepCmd = &cobra.Command{
	Use:       "sweep dedup|rescore|retention",
	Short:     "Run one maintenance sweep and exit",
	Long:      "Runs the duplicate removal, rescoring or retention sweep once against the database.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dedup", "rescore", "retention"},
	RunE:      runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	id, ok := sweepTasks[args[0]]
	if !ok {
		return fmt.Errorf("unknown sweep %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps := scheduler.Components{
		Detector:     dedup.NewDetector(a.store, a.logger),
		Rescorer:     scoring.NewRescorer(a.store, a.scorer(), a.logger),
		Retention:    a.store,
		RetentionAge: a.cfg.Retention.MaxAge,
	}
	return runTask(ctx, a, comps, id)
}
