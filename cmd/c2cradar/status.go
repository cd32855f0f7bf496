package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/config"
	"github.com/amishk599/c2cradar/internal/scheduler"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's task status",
	Long:  "Asks the daemon's ops listener (ops.addr) for the scheduler status and prints one row per task.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Ops.Addr == "" {
		return fmt.Errorf("ops.addr is not set; the daemon exposes no status endpoint")
	}

	st, err := fetchStatus(cmd, cfg)
	if err != nil {
		// A daemon that is not running is reported, not treated as a failure.
		fmt.Fprintf(cmd.ErrOrStderr(), "daemon not reachable: %v\n", err)
		st = scheduler.Status{Status: "stopped", Jobs: []scheduler.JobStatus{}}
	}

	if jsonOutput {
		return printJSON(st)
	}

	fmt.Printf("scheduler: %s\n", st.Status)
	if len(st.Jobs) == 0 {
		return nil
	}

	t := newTable("Task", "Trigger", "Next Run", "Running", "Last Run", "Outcome", "Duration")
	for _, j := range st.Jobs {
		next := "-"
		if j.NextRun != nil {
			next = j.NextRun.Local().Format(time.DateTime)
		}
		last, outcome, dur := "-", "-", "-"
		if r := j.LastRun; r != nil {
			last = r.Started.Local().Format(time.DateTime)
			outcome = r.Outcome
			if r.Failures > 0 {
				outcome = fmt.Sprintf("%s (%d failures)", outcome, r.Failures)
			}
			dur = r.Duration.Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{j.ID, j.Trigger, next, j.Running, last, outcome, dur})
	}
	t.Render()
	return nil
}

func fetchStatus(cmd *cobra.Command, cfg *config.Config) (scheduler.Status, error) {
	addr := cfg.Ops.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+addr+"/status", nil)
	if err != nil {
		return scheduler.Status{}, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return scheduler.Status{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return scheduler.Status{}, fmt.Errorf("status endpoint returned %s", resp.Status)
	}

	var st scheduler.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return scheduler.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
