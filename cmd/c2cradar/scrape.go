package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/dedup"
	"github.com/amishk599/c2cradar/internal/scheduler"
	"github.com/amishk599/c2cradar/internal/store"
)

var (
	scrapeDryRun   bool
	scrapeTerms    []string
	scrapeLocation string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape once and exit",
	Long:  "One-shot scrape: runs every configured search through every collector and stores new postings.",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "collect, enrich and score but do not store anything")
	scrapeCmd.Flags().StringSliceVarP(&scrapeTerms, "term", "t", nil, "search term (repeatable, default: scraping.search_terms)")
	scrapeCmd.Flags().StringVarP(&scrapeLocation, "location", "l", "", "location (default: scraping.location)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	terms, location := a.searchTerms(), a.cfg.Scraping.Location
	if len(scrapeTerms) > 0 {
		terms = scrapeTerms
	}
	if scrapeLocation != "" {
		location = scrapeLocation
	}

	if scrapeDryRun {
		a.logger.Info("dry-run mode enabled, nothing will be stored")
		nop := store.NewNopStore()
		p, err := a.pipeline(ctx, nop, dedup.NewDetector(nop, a.logger))
		if err != nil {
			return err
		}
		res, err := p.Scrape(ctx, terms, location)
		if perr := printResult("dry-run scrape", res); perr != nil {
			return perr
		}
		return err
	}

	det := dedup.NewDetector(a.store, a.logger)
	p, err := a.pipeline(ctx, a.store, det)
	if err != nil {
		return err
	}
	comps := scheduler.Components{Pipeline: p, SearchTerms: terms, Location: location}
	return runTask(ctx, a, comps, scheduler.TaskScrape)
}

// runTask runs one scheduler task by hand, through the same guard, logging
// and panic recovery as the daemon uses, and prints its result.
func runTask(ctx context.Context, a *app, comps scheduler.Components, id string) error {
	sched, err := scheduler.New(scheduler.Tasks(comps, a.intervals()), scheduler.Options{
		Metrics: a.metrics,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	res, err := sched.RunNow(ctx, id)
	if perr := printResult(id, res); perr != nil {
		return perr
	}
	return err
}
