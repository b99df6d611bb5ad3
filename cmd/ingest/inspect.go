package main

import (
	"fmt"

	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	courseFilter store.CourseFilter
	runsLimit    int
)

func init() {
	coursesCmd.Flags().StringVar(&courseFilter.Term, "term", "", "Only list courses of this term.")
	coursesCmd.Flags().StringVar(&courseFilter.NamePrefix, "name", "", "Only list courses whose name starts with this (e.g. \"CSE 1\").")
	coursesCmd.Flags().StringVar(&courseFilter.TeacherKey, "teacher", "", "Only list courses taught by this instructor key (e.g. \"smith john\").")
	coursesCmd.Flags().IntVar(&courseFilter.Limit, "limit", 50, "Maximum number of courses to list.")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list.")

	rootCmd.AddCommand(termsCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(ratingCmd)
	rootCmd.AddCommand(statusCmd)
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Lists the known terms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context(), config.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		terms, err := db.ListTerms(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"Term", "Active"})
		for _, term := range terms {
			t.AppendRow(table.Row{term.Name, term.IsActive})
		}
		t.Render()
		return nil
	},
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists stored courses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context(), config.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		courses, err := db.FindCourses(cmd.Context(), courseFilter)
		if err != nil {
			return err
		}
		renderCourses(courses)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the most recent ingestion runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context(), config.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		renderRuns(runs)
		return nil
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating <\"Last, First\">...",
	Short: "Looks up instructor ratings, fetching and storing the ones not stored yet.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context(), config.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		cache := newRatingCache(config, db, tel)
		var records []model.RatingRecord
		for _, name := range args {
			rec, err := cache.GetOrFetch(cmd.Context(), name)
			if err != nil {
				fmt.Printf("%s: %v\n", name, err)
				continue
			}
			records = append(records, rec)
		}
		renderRatings(records)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the active term and the populated collections.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context(), config.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		active, err := db.ActiveTerm(cmd.Context())
		if err != nil {
			return err
		}
		collections, err := db.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		ratings, err := db.ListRatings(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable()
		activeName := "-"
		if active != nil {
			activeName = active.Name
		}
		t.AppendRow(table.Row{"Active term", activeName})
		t.AppendRow(table.Row{"Collections", fmt.Sprint(collections)})
		t.AppendRow(table.Row{"Stored ratings", len(ratings)})
		t.Render()
		return nil
	},
}
