package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"courseplanner-backend/internal/components/chrono"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/ratings"
	"courseplanner-backend/internal/scrapers/catalog"
	"courseplanner-backend/internal/store"
	"courseplanner-backend/internal/store/sqlite"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	db       store.Store
	errs     map[string]error
	skipped  map[string]bool
	visited  []string
	onScrape func(subject string)
}

func (f *fakeScraper) Run(ctx context.Context, subject, term string) (catalog.SubjectResult, error) {
	f.visited = append(f.visited, subject)
	if f.onScrape != nil {
		f.onScrape(subject)
	}
	if err, ok := f.errs[subject]; ok {
		return catalog.SubjectResult{Subject: subject}, err
	}
	if f.skipped[subject] {
		return catalog.SubjectResult{Subject: subject, Skipped: true}, nil
	}
	err := f.db.InsertCourses(ctx, []model.Course{{
		Name: fmt.Sprintf("%s 1 Intro", subject),
		Term: term,
	}})
	if err != nil {
		return catalog.SubjectResult{Subject: subject}, err
	}
	return catalog.SubjectResult{Subject: subject, Pages: 1, Courses: 1}, nil
}

type fakeDiscoverer struct {
	subjects []string
	err      error
}

func (f fakeDiscoverer) DiscoverSubjects(ctx context.Context) ([]string, error) {
	return f.subjects, f.err
}

type fakeStats struct{}

func (fakeStats) Stats() ratings.Stats {
	return ratings.Stats{Fetches: 7}
}

type closeCounter struct {
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

var now = time.Date(2025, time.September, 20, 3, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) sqlite.Store {
	s, err := sqlite.Open(sqlite.Config{File: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOrchestrator(db store.Store, detector TermDetector, scraper SubjectScraper, opts Options) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Detector: detector,
		Scraper:  scraper,
		Store:    db,
		Clock:    chrono.FixedImpl{At: now},
		Ratings:  fakeStats{},
	}, opts, telemetry.NewRecorder())
}

func activeTerms(t *testing.T, db store.Store) []string {
	terms, err := db.ListTerms(context.Background())
	require.NoError(t, err)
	var active []string
	for _, term := range terms {
		if term.IsActive {
			active = append(active, term.Name)
		}
	}
	return active
}

func countCourses(t *testing.T, db store.Store, term string) int {
	courses, err := db.FindCourses(context.Background(), store.CourseFilter{Term: term})
	require.NoError(t, err)
	return len(courses)
}

func TestDecide(t *testing.T) {
	require.Equal(t, model.DecisionBootstrap, Decide(nil, "FA25"))
	require.Equal(t, model.DecisionNoop, Decide(&model.Term{Name: "FA25", IsActive: true}, "FA25"))
	require.Equal(t, model.DecisionRollover, Decide(&model.Term{Name: "FA25", IsActive: true}, "WI26"))
}

func TestRunBootstrap(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	scraper := &fakeScraper{db: db}
	o := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE", "MATH"}})

	run, err := o.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, model.DecisionBootstrap, run.Decision)
	require.Equal(t, model.RunSucceeded, run.Status)
	require.Equal(t, "FA25", run.Term)
	require.Equal(t, 2, run.SubjectsVisited)
	require.Equal(t, 2, run.CoursesInserted)
	require.Equal(t, 7, run.RatingsFetched)
	require.Equal(t, now, run.StartedAt)

	require.Equal(t, []string{"FA25"}, activeTerms(t, db))
	require.Equal(t, 2, countCourses(t, db, "FA25"))

	stored, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunSucceeded, stored.Status)
	require.Equal(t, 2, stored.CoursesInserted)
}

func TestRunNoopWhenTermUnchanged(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	require.NoError(t, db.CreateTerm(ctx, model.Term{Name: "FA25", IsActive: true}))

	scraper := &fakeScraper{db: db}
	run, err := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE"}}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, model.DecisionNoop, run.Decision)
	require.Empty(t, scraper.visited)
	require.Zero(t, countCourses(t, db, "FA25"))
}

func TestRunRollover(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	require.NoError(t, db.CreateTerm(ctx, model.Term{Name: "FA25", IsActive: true}))
	require.NoError(t, db.InsertCourses(ctx, []model.Course{{Name: "CSE 100 Old", Term: "FA25"}}))

	scraper := &fakeScraper{db: db}
	run, err := newTestOrchestrator(db, StaticTermDetector{Term: "WI26"}, scraper, Options{Subjects: []string{"CSE"}}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, model.DecisionRollover, run.Decision)

	require.Equal(t, []string{"WI26"}, activeTerms(t, db))
	require.Equal(t, 1, countCourses(t, db, "FA25"))
	require.Equal(t, 1, countCourses(t, db, "WI26"))
}

func TestRunForcedReplacesCourses(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	require.NoError(t, db.CreateTerm(ctx, model.Term{Name: "FA25", IsActive: true}))
	require.NoError(t, db.InsertCourses(ctx, []model.Course{
		{Name: "CSE 1 Intro", Term: "FA25"},
		{Name: "CSE 2 Stale", Term: "FA25"},
	}))

	scraper := &fakeScraper{db: db}
	o := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE"}, Force: true})
	for i := 0; i < 2; i++ {
		run, err := o.Run(ctx)
		require.NoError(t, err)
		require.Equal(t, model.DecisionForced, run.Decision)
		require.Equal(t, 1, countCourses(t, db, "FA25"))
	}
	require.Equal(t, []string{"FA25"}, activeTerms(t, db))
}

func TestRunTermDetectionFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	scraper := &fakeScraper{db: db}

	run, err := newTestOrchestrator(db, StaticTermDetector{}, scraper, Options{Subjects: []string{"CSE"}}).Run(ctx)
	require.ErrorIs(t, err, ErrTermDetection)
	require.Equal(t, model.RunFailed, run.Status)
	require.Empty(t, scraper.visited)
	require.Empty(t, activeTerms(t, db))

	stored, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunFailed, stored.Status)
	require.NotEmpty(t, stored.Error)
}

func TestRunSkipsFailedSubjects(t *testing.T) {
	db := newTestStore(t)
	scraper := &fakeScraper{
		db:      db,
		errs:    map[string]error{"MATH": fmt.Errorf("extract rows: %w: timeout", catalog.ErrTransientSite)},
		skipped: map[string]bool{"XYZ": true},
	}
	run, err := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE", "MATH", "XYZ", "PHYS"}}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"CSE", "MATH", "XYZ", "PHYS"}, scraper.visited)
	require.Equal(t, 2, run.SubjectsVisited)
	require.Equal(t, 1, run.SubjectsFailed)
	require.Equal(t, 1, run.SubjectsSkipped)
	require.Equal(t, 2, countCourses(t, db, "FA25"))
}

func TestRunPersistenceErrorAborts(t *testing.T) {
	db := newTestStore(t)
	scraper := &fakeScraper{
		db:   db,
		errs: map[string]error{"MATH": fmt.Errorf("insert: %w: disk full", store.ErrPersistence)},
	}
	run, err := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE", "MATH", "PHYS"}}).Run(context.Background())
	require.ErrorIs(t, err, store.ErrPersistence)
	require.Equal(t, model.RunFailed, run.Status)
	require.Equal(t, []string{"CSE", "MATH"}, scraper.visited)
}

func TestRunCancelledBetweenSubjects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := newTestStore(t)
	scraper := &fakeScraper{db: db}
	scraper.onScrape = func(subject string) {
		if subject == "MATH" {
			cancel()
		}
	}
	run, err := newTestOrchestrator(db, StaticTermDetector{Term: "FA25"}, scraper, Options{Subjects: []string{"CSE", "MATH", "PHYS"}}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, model.RunCancelled, run.Status)
	require.Equal(t, []string{"CSE", "MATH"}, scraper.visited)

	stored, err := db.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunCancelled, stored.Status)
}

func TestSubjectsDiscoveryAndFallback(t *testing.T) {
	db := newTestStore(t)
	scraper := &fakeScraper{db: db}
	o := NewOrchestrator(Dependencies{
		Detector:   StaticTermDetector{Term: "FA25"},
		Scraper:    scraper,
		Discoverer: fakeDiscoverer{subjects: []string{"BILD", "CHEM"}},
		Store:      db,
		Clock:      chrono.FixedImpl{At: now},
	}, Options{}, telemetry.NewRecorder())
	require.Equal(t, []string{"BILD", "CHEM"}, o.subjects(context.Background()))

	rec := telemetry.NewRecorder()
	o = NewOrchestrator(Dependencies{
		Detector:   StaticTermDetector{Term: "FA25"},
		Scraper:    scraper,
		Discoverer: fakeDiscoverer{err: errors.New("timeout")},
		Store:      db,
		Clock:      chrono.FixedImpl{At: now},
	}, Options{}, rec)
	require.Equal(t, catalog.DefaultSubjects, o.subjects(context.Background()))
	require.True(t, rec.Has(telemetry.KindWarning, report_run_subjects))
}

func TestCloseClosesOwnedResources(t *testing.T) {
	db := newTestStore(t)
	browser := &closeCounter{}
	o := NewOrchestrator(Dependencies{
		Detector: StaticTermDetector{Term: "FA25"},
		Scraper:  &fakeScraper{db: db},
		Store:    db,
		Clock:    chrono.FixedImpl{At: now},
		Owned:    []io.Closer{browser},
	}, Options{}, telemetry.NewRecorder())
	require.NoError(t, o.Close())
	require.Equal(t, 1, browser.closed)
}
