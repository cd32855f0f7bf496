package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/export"
	"github.com/amishk599/c2cradar/internal/model"
)

var (
	listQuery     model.PostingQuery
	listMinSalary float64
	listMaxSalary float64
	listC2C       bool

	updateApplied   bool
	updateFavorited bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Query and manage stored postings",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Search stored postings",
	Long:  "Lists stored postings, best match first. Every filter is optional.",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one posting with its analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored postings",
	Args:  cobra.NoArgs,
	RunE:  runJobsStats,
}

var jobsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Mark a posting applied or favorited",
	Example: `  c2cradar jobs update 42 --applied
  c2cradar jobs update 42 --favorited=false`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsUpdate,
}

func init() {
	f := jobsListCmd.Flags()
	f.StringVarP(&listQuery.Keywords, "keywords", "k", "", "any of these words in title, description or requirements")
	f.StringVarP(&listQuery.Location, "location", "l", "", "location substring")
	f.Float64Var(&listMinSalary, "min-salary", 0, "minimum salary")
	f.Float64Var(&listMaxSalary, "max-salary", 0, "maximum salary")
	f.StringVar(&listQuery.JobType, "job-type", "", "job type (contract, full-time, ...)")
	f.StringVar(&listQuery.Source, "source", "", "collector name")
	f.BoolVar(&listC2C, "c2c", false, "only corp-to-corp postings")
	f.Float64Var(&listQuery.MinRelevance, "min-relevance", 0, "minimum relevance score (0-1)")
	f.IntVar(&listQuery.PostedWithinHours, "posted-within", 0, "only postings posted in the last N hours")
	f.IntVarP(&listQuery.Limit, "limit", "n", 20, fmt.Sprintf("maximum results (at most %d)", model.MaxQueryLimit))

	jobsUpdateCmd.Flags().BoolVar(&updateApplied, "applied", false, "set the applied flag")
	jobsUpdateCmd.Flags().BoolVar(&updateFavorited, "favorited", false, "set the favorited flag")

	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsStatsCmd, jobsUpdateCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	q := listQuery
	if cmd.Flags().Changed("min-salary") {
		q.MinSalary = &listMinSalary
	}
	if cmd.Flags().Changed("max-salary") {
		q.MaxSalary = &listMaxSalary
	}
	if listC2C {
		q.IsCorpToCorp = &listC2C
	}

	postings, err := a.store.Search(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("search postings: %w", err)
	}
	if jsonOutput {
		return export.JSON(os.Stdout, postings)
	}
	if len(postings) == 0 {
		fmt.Println("no postings match")
		return nil
	}

	t := newTable("ID", "Title", "Company", "Location", "Salary", "C2C", "Score", "Posted")
	for _, p := range postings {
		t.AppendRow(table.Row{
			p.ID,
			text.Trim(p.Title, 48),
			text.Trim(p.Company, 24),
			text.Trim(p.Location, 24),
			model.FormatSalary(p.SalaryMin, p.SalaryMax),
			yesNo(p.IsCorpToCorp),
			fmt.Sprintf("%.2f", p.RelevanceScore),
			dateOrDash(p.PostedDate),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d postings", len(postings))})
	t.Render()
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.GetPosting(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return export.JSON(os.Stdout, []model.Posting{p})
	}

	t := newTable("Field", "Value")
	t.AppendRows([]table.Row{
		{"ID", p.ID},
		{"Title", p.Title},
		{"Company", p.Company},
		{"Location", p.Location},
		{"Salary", model.FormatSalary(p.SalaryMin, p.SalaryMax)},
		{"Job type", p.JobType},
		{"Source", p.Source},
		{"URL", p.SourceURL},
		{"Corp-to-corp", yesNo(p.IsCorpToCorp)},
		{"Relevance", fmt.Sprintf("%.3f", p.RelevanceScore)},
		{"Posted", dateOrDash(p.PostedDate)},
		{"Scraped", p.ScrapedDate.Local().Format(time.DateTime)},
		{"Applied", yesNo(p.IsApplied)},
		{"Favorited", yesNo(p.IsFavorited)},
	})
	if p.ContactEmail != "" || p.ContactPhone != "" {
		t.AppendRow(table.Row{"Contact", strings.TrimSpace(p.ContactEmail + " " + p.ContactPhone)})
	}
	if an := p.Analysis; an != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Skills", strings.Join(an.KeySkills, ", ")},
			{"Experience", an.ExperienceLevel},
			{"Remote friendly", yesNo(an.RemoteFriendly)},
			{"Urgency", an.UrgencyLevel},
			{"Salary indication", an.SalaryIndication},
			{"Analyzed by", an.Provider},
			{"Summary", text.WrapSoft(an.Summary, 80)},
		})
	}
	t.Render()

	if p.Description != "" {
		fmt.Println()
		fmt.Println(text.WrapSoft(p.Description, 100))
	}
	return nil
}

func runJobsStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(st)
	}

	t := newTable("Metric", "Value")
	t.AppendRows([]table.Row{
		{"Total postings", st.Total},
		{"Corp-to-corp", st.CorpToCorp},
		{"Scraped in last 24h", st.Last24h},
		{"Average relevance", fmt.Sprintf("%.3f", st.AvgRelevance)},
	})
	t.Render()

	renderCounts("Top companies", st.TopCompanies)
	renderCounts("Top locations", st.TopLocations)
	return nil
}

func renderCounts(title string, counts []model.Count) {
	if len(counts) == 0 {
		return
	}
	t := newTable(title, "Postings")
	for _, c := range counts {
		t.AppendRow(table.Row{c.Label, c.N})
	}
	t.Render()
}

func runJobsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var upd model.PostingUpdate
	if cmd.Flags().Changed("applied") {
		upd.IsApplied = &updateApplied
	}
	if cmd.Flags().Changed("favorited") {
		upd.IsFavorited = &updateFavorited
	}
	if upd.IsApplied == nil && upd.IsFavorited == nil {
		return fmt.Errorf("nothing to update: pass --applied and/or --favorited")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return updatePosting(cmd.Context(), a, id, upd)
}

func updatePosting(ctx context.Context, a *app, id int64, upd model.PostingUpdate) error {
	if err := a.store.UpdatePosting(ctx, id, upd); err != nil {
		return err
	}
	a.logger.Info("posting updated", "id", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}
