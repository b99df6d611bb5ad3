package main

import (
	"fmt"
	"os"
	"time"

	"courseplanner-backend/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(clock.Location()).Format(time.DateTime)
}

func renderRuns(runs []model.IngestionRun) {
	t := newTable()
	t.AppendHeader(table.Row{"Id", "Term", "Decision", "Status", "Started", "Finished", "Subjects", "Skipped", "Failed", "Courses", "Ratings", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID.String(),
			run.Term,
			run.Decision,
			run.Status,
			formatTime(run.StartedAt),
			formatTime(run.FinishedAt),
			run.SubjectsVisited,
			run.SubjectsSkipped,
			run.SubjectsFailed,
			run.CoursesInserted,
			run.RatingsFetched,
			run.Error,
		})
	}
	t.Render()
}

func renderCourses(courses []model.Course) {
	t := newTable()
	t.AppendHeader(table.Row{"Course", "Term", "Teacher", "Lecture", "Discussions", "Midterms", "Final", "Rating"})
	for _, c := range courses {
		lecture := "-"
		if c.Lecture != nil {
			lecture = fmt.Sprintf("%s %s %s", c.Lecture.Days, c.Lecture.Time, c.Lecture.Location)
		}
		final := "-"
		if c.Final != nil {
			final = fmt.Sprintf("%s %s", c.Final.Days, c.Final.Time)
		}
		rating := "-"
		if c.Rating != nil {
			rating = fmt.Sprintf("%.1f (%d)", c.Rating.AvgRating, c.Rating.NumRatings)
		}
		t.AppendRow(table.Row{c.Name, c.Term, c.Teacher, lecture, len(c.Discussions), len(c.Midterms), final, rating})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(courses)})
	t.Render()
}

func renderRatings(records []model.RatingRecord) {
	t := newTable()
	t.AppendHeader(table.Row{"Key", "Name", "Rating", "Difficulty", "Take again", "Ratings", "Legacy id"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.InstructorKey,
			r.DisplayName,
			fmt.Sprintf("%.1f", r.AvgRating),
			fmt.Sprintf("%.1f", r.AvgDifficulty),
			fmt.Sprintf("%d%%", r.TakeAgainPercent),
			r.NumRatings,
			r.LegacyID,
		})
	}
	t.Render()
}
