package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/notifier"
	"github.com/amishk599/c2cradar/internal/scheduler"
)

var notifyTo string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample posting through the configured notifier (e-mail, or the log when e-mail is disabled).",
	Args:  cobra.NoArgs,
	RunE:  runNotifyTest,
}

var notifyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Check alerts once and send matches",
	Args:  cobra.NoArgs,
	RunE:  runNotifyRun,
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyTo, "to", "", "recipient (default: email.from)")
	notifyCmd.AddCommand(notifyTestCmd, notifyRunCmd)
	rootCmd.AddCommand(notifyCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	to := notifyTo
	if to == "" {
		to = a.cfg.Email.From
	}
	if to == "" {
		return fmt.Errorf("no recipient: pass --to or set email.from")
	}

	n, err := a.notifier()
	if err != nil {
		return err
	}
	if err := n.Deliver(cmd.Context(), notifier.SampleDelivery(to)); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	a.logger.Info("test notification sent successfully", "to", to)
	return nil
}

func runNotifyRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, closeLedger, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	return runTask(ctx, a, scheduler.Components{Dispatcher: d}, scheduler.TaskNotify)
}
