// Package storetest holds the behavior every store.Store implementation
// must share, implementations run it from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func lecture(number, id string) *model.Section {
	return &model.Section{
		CourseNumber: number,
		SectionID:    id,
		MeetingType:  "LE",
		Section:      "A00",
		Days:         "TuTh",
		Time:         "11:00a-12:20p",
		Location:     "CENTR 115",
	}
}

func sampleCourses(term string) []model.Course {
	return []model.Course{
		{
			Name:       "CSE 100 Advanced Data Structures",
			Term:       term,
			Teacher:    "Smith, John",
			TeacherKey: "smith john",
			Lecture:    lecture("100", "123456"),
			Discussions: []model.Section{
				{MeetingType: "DI", Section: "A01", Days: "M"},
				{MeetingType: "DI", Section: "A02", Days: "W"},
			},
			Final: &model.Section{MeetingType: "FI", Days: "12/10/2025"},
		},
		{
			Name:       "CSE 101 Design and Analysis of Algorithm",
			Term:       term,
			Teacher:    "O'Brien, Mary",
			TeacherKey: "obrien mary",
			Lecture:    lecture("101", "223456"),
			Midterms:   []model.Section{{MeetingType: "MI", Days: "10/20/2025"}},
		},
	}
}

var equateEmpty = cmpopts.EquateEmpty()

// Run exercises the store returned by open, every call must return an
// empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("Terms", func(t *testing.T) {
		s := open(t)

		active, err := s.ActiveTerm(ctx)
		require.NoError(t, err)
		require.Nil(t, active)

		require.NoError(t, s.CreateTerm(ctx, model.Term{Name: "FA25", IsActive: true}))
		active, err = s.ActiveTerm(ctx)
		require.NoError(t, err)
		require.Equal(t, &model.Term{Name: "FA25", IsActive: true}, active)

		require.NoError(t, s.DeactivateAllTerms(ctx))
		require.NoError(t, s.CreateTerm(ctx, model.Term{Name: "WI26", IsActive: true}))

		active, err = s.ActiveTerm(ctx)
		require.NoError(t, err)
		require.Equal(t, "WI26", active.Name)

		terms, err := s.ListTerms(ctx)
		require.NoError(t, err)
		require.Equal(t, []model.Term{
			{Name: "FA25", IsActive: false},
			{Name: "WI26", IsActive: true},
		}, terms)
	})

	t.Run("Courses", func(t *testing.T) {
		s := open(t)

		courses := sampleCourses("FA25")
		require.NoError(t, s.InsertCourses(ctx, courses))
		require.NoError(t, s.InsertCourses(ctx, sampleCourses("WI26")[:1]))
		require.NoError(t, s.InsertCourses(ctx, nil))

		found, err := s.FindCourses(ctx, store.CourseFilter{Term: "FA25"})
		require.NoError(t, err)
		if diff := cmp.Diff(courses, found, equateEmpty); diff != "" {
			t.Fatal(diff)
		}

		found, err = s.FindCourses(ctx, store.CourseFilter{NamePrefix: "CSE 101"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, "obrien mary", found[0].TeacherKey)

		found, err = s.FindCourses(ctx, store.CourseFilter{TeacherKey: "smith john"})
		require.NoError(t, err)
		require.Len(t, found, 2)

		found, err = s.FindCourses(ctx, store.CourseFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, found, 1)

		rating := model.RatingRecord{
			InstructorKey:    "smith john",
			DisplayName:      "John Smith",
			AvgRating:        4.5,
			AvgDifficulty:    2.1,
			TakeAgainPercent: 87,
		}
		n, err := s.AttachRating(ctx, "smith john", "FA25", rating)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		found, err = s.FindCourses(ctx, store.CourseFilter{Term: "FA25", TeacherKey: "smith john"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, &rating, found[0].Rating)

		deleted, err := s.DeleteCoursesForTerm(ctx, "FA25")
		require.NoError(t, err)
		require.Equal(t, 2, deleted)

		found, err = s.FindCourses(ctx, store.CourseFilter{Term: "FA25"})
		require.NoError(t, err)
		require.Empty(t, found)

		collections, err := s.ListCollections(ctx)
		require.NoError(t, err)
		require.Contains(t, collections, store.CollectionCourses)
	})

	t.Run("Ratings", func(t *testing.T) {
		s := open(t)

		_, err := s.GetRating(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)

		rating := model.RatingRecord{
			InstructorKey:    "obrien mary",
			DisplayName:      "Mary O'Brien",
			AvgRating:        3.9,
			AvgDifficulty:    3.2,
			TakeAgainPercent: 71,
			NumRatings:       40,
			LegacyID:         1234,
		}
		require.NoError(t, s.PutRating(ctx, rating))

		got, err := s.GetRating(ctx, "obrien mary")
		require.NoError(t, err)
		require.Equal(t, rating, got)

		rating.AvgRating = 4.0
		require.NoError(t, s.PutRating(ctx, rating))

		all, err := s.ListRatings(ctx)
		require.NoError(t, err)
		require.Equal(t, []model.RatingRecord{rating}, all)
	})

	t.Run("Runs", func(t *testing.T) {
		s := open(t)

		start := time.Date(2025, 9, 1, 3, 0, 0, 0, time.UTC)
		first := model.IngestionRun{
			ID:        uuid.New(),
			Term:      "FA25",
			Decision:  model.DecisionBootstrap,
			Status:    model.RunRunning,
			StartedAt: start,
		}
		require.NoError(t, s.CreateRun(ctx, first))

		first.Status = model.RunSucceeded
		first.FinishedAt = start.Add(time.Hour)
		first.SubjectsVisited = 3
		first.CoursesInserted = 42
		require.NoError(t, s.FinishRun(ctx, first))

		second := model.IngestionRun{
			ID:        uuid.New(),
			Term:      "FA25",
			Decision:  model.DecisionNoop,
			Status:    model.RunSucceeded,
			StartedAt: start.Add(24 * time.Hour),
		}
		require.NoError(t, s.CreateRun(ctx, second))

		got, err := s.GetRun(ctx, first.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(first, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
			t.Fatal(diff)
		}

		_, err = s.GetRun(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrNotFound)

		runs, err := s.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		require.Equal(t, second.ID, runs[0].ID)
		require.Equal(t, first.ID, runs[1].ID)
	})
}
