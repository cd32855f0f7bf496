package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/model"
)

var (
	alertKeywords  string
	alertLocation  string
	alertMinSalary float64
	alertEmail     string
	alertListEmail string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage alert subscriptions",
}

var alertsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Subscribe an e-mail address to matching postings",
	Example: `  c2cradar alerts add -k "golang kubernetes" -e me@example.com --location remote --min-salary 120000`,
	Args:    cobra.NoArgs,
	RunE:    runAlertsAdd,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert subscriptions",
	Args:  cobra.NoArgs,
	RunE:  runAlertsList,
}

var alertsDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Stop an alert subscription (cannot be undone)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsDeactivate,
}

func init() {
	f := alertsAddCmd.Flags()
	f.StringVarP(&alertKeywords, "keywords", "k", "", "space-separated keywords, any of which must match")
	f.StringVarP(&alertEmail, "email", "e", "", "address to notify")
	f.StringVarP(&alertLocation, "location", "l", "", "location substring (\"remote\" also matches remote postings)")
	f.Float64Var(&alertMinSalary, "min-salary", 0, "minimum salary")
	_ = alertsAddCmd.MarkFlagRequired("keywords")
	_ = alertsAddCmd.MarkFlagRequired("email")

	alertsListCmd.Flags().StringVarP(&alertListEmail, "email", "e", "", "only subscriptions for this address")

	alertsCmd.AddCommand(alertsAddCmd, alertsListCmd, alertsDeactivateCmd)
	rootCmd.AddCommand(alertsCmd)
}

func runAlertsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sub := model.AlertSubscription{
		Keywords: alertKeywords,
		Location: alertLocation,
		Email:    alertEmail,
	}
	if cmd.Flags().Changed("min-salary") {
		sub.MinSalary = &alertMinSalary
	}

	id, err := a.store.CreateAlert(cmd.Context(), &sub)
	if err != nil {
		return err
	}
	a.logger.Info("alert created", "id", id, "email", sub.Email, "keywords", sub.Keywords)
	if jsonOutput {
		return printJSON(sub)
	}
	fmt.Printf("created alert %d\n", id)
	return nil
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.store.ListAlerts(cmd.Context(), alertListEmail)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(alerts)
	}
	if len(alerts) == 0 {
		fmt.Println("no alerts")
		return nil
	}

	t := newTable("ID", "Keywords", "Location", "Min Salary", "Email", "Active", "Created")
	for _, al := range alerts {
		minSalary := "-"
		if al.MinSalary != nil {
			minSalary = model.FormatSalary(al.MinSalary, nil)
		}
		t.AppendRow(table.Row{
			al.ID, al.Keywords, al.Location, minSalary, al.Email,
			yesNo(al.IsActive), al.CreatedDate.Local().Format(time.DateOnly),
		})
	}
	t.Render()
	return nil
}

func runAlertsDeactivate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeactivateAlert(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("alert %d deactivated\n", id)
	return nil
}
