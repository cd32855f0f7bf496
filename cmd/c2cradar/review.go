package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/model"
	"github.com/amishk599/c2cradar/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse stored postings interactively",
	Long: `Opens a terminal UI over the stored postings. Pick a company (or all),
then browse every posting alongside the corp-to-corp subset.

Keys: tab switches pane, enter opens details, a toggles applied,
f toggles favorite, o (in details) opens the posting in a browser, q quits.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		fmt.Println("no postings stored yet; run `c2cradar scrape` first")
		return nil
	}

	company, ok, err := review.RunCompanyPicker(stats.TopCompanies, stats.Total)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	label := "Loading postings"
	if company != review.AllCompanies {
		label = "Loading postings for " + company
	}
	postings, err := review.RunLoader(label, 30*time.Second, func(ctx context.Context) ([]model.Posting, error) {
		all, err := a.store.ListPostings(ctx)
		if err != nil || company == review.AllCompanies {
			return all, err
		}
		var out []model.Posting
		for _, p := range all {
			if strings.EqualFold(p.Company, company) {
				out = append(out, p)
			}
		}
		return out, nil
	})
	if errors.Is(err, review.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	return review.Run(postings, a.store)
}
