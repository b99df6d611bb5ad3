package main

import (
	"errors"
	"fmt"
	"log/slog"

	"courseplanner-backend/internal/model"

	"github.com/spf13/cobra"
)

var runOpts pipelineOptions

func init() {
	runCmd.Flags().StringVar(&runOpts.Term, "term", "", "Scrape this term instead of the one the catalog preselects (e.g. FA25).")
	runCmd.Flags().BoolVar(&runOpts.Force, "force", false, "Re-scrape the active term even if it did not change.")
	runCmd.Flags().BoolVar(&runOpts.Headed, "headed", false, "Show the browser window.")
	runCmd.Flags().StringSliceVar(&runOpts.Subject, "subject", nil, "Only scrape these subjects, can be repeated.")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(subjectCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Performs a single ingestion run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd.Context(), config, clock, runOpts, tel)
		if err != nil {
			return err
		}
		defer p.Close()

		run, err := p.orchestrator.Run(cmd.Context())
		renderRuns([]model.IngestionRun{run})
		return err
	},
}

var subjectCmd = &cobra.Command{
	Use:   "subject <term> <subject...>",
	Short: "Scrapes the given subjects of a term without touching the term state, meant for debugging.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd.Context(), config, clock, pipelineOptions{Headed: runOpts.Headed}, tel)
		if err != nil {
			return err
		}
		defer p.Close()

		term := args[0]
		var errs []error
		for _, subject := range args[1:] {
			result, err := p.driver.Run(cmd.Context(), subject, term)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", subject, err))
				continue
			}
			slog.Info(
				"scraped subject",
				"subject", result.Subject,
				"skipped", result.Skipped,
				"pages", result.Pages,
				"courses", result.Courses,
			)
		}
		stats := p.cache.Stats()
		slog.Info("ratings", "hits", stats.Hits, "fetches", stats.Fetches, "misses", stats.Misses)
		return errors.Join(errs...)
	},
}
