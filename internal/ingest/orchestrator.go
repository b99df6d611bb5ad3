// Package ingest decides whether the catalog needs to be scraped and runs
// the scrape of every subject for the current term.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"courseplanner-backend/internal/components/assert"
	"courseplanner-backend/internal/components/chrono"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/ratings"
	"courseplanner-backend/internal/scrapers/catalog"
	"courseplanner-backend/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_run_detect_term = "run.detect-term"
	report_run_decide      = "run.decide"
	report_run_subject     = "run.subject"
	report_run_subjects    = "run.subjects"
	report_run_record      = "run.record"
	report_run_close       = "run.close"
)

// ErrTermDetection means the current term could not be read from the
// catalog, nothing is scraped.
var ErrTermDetection = errors.New("term detection failed")

var (
	tracer = otel.Tracer("courseplanner-backend/internal/ingest")
	meter  = otel.Meter("courseplanner-backend/internal/ingest")
)

type TermDetector interface {
	Detect(ctx context.Context) (string, error)
}

// StaticTermDetector always detects Term.
type StaticTermDetector struct {
	Term string
}

func (d StaticTermDetector) Detect(ctx context.Context) (string, error) {
	term := strings.TrimSpace(d.Term)
	if term == "" {
		return "", fmt.Errorf("no term configured")
	}
	return term, nil
}

type SubjectScraper interface {
	Run(ctx context.Context, subject, term string) (catalog.SubjectResult, error)
}

type SubjectDiscoverer interface {
	DiscoverSubjects(ctx context.Context) ([]string, error)
}

// RatingStats is implemented by ratings.Cache.
type RatingStats interface {
	Stats() ratings.Stats
}

// Decide is the term state machine: no active term bootstraps, a changed
// term rolls over and the same term is left alone.
func Decide(active *model.Term, detected string) model.Decision {
	if active == nil {
		return model.DecisionBootstrap
	}
	if active.Name != detected {
		return model.DecisionRollover
	}
	return model.DecisionNoop
}

type Options struct {
	// Subjects to scrape, when empty they are discovered from the search
	// form and catalog.DefaultSubjects is the last resort.
	Subjects []string
	// Force re-scrapes the active term even though it did not change.
	Force bool
}

type Dependencies struct {
	Detector   TermDetector
	Scraper    SubjectScraper
	Discoverer SubjectDiscoverer
	Ratings    RatingStats
	Store      store.Store
	Clock      chrono.API
	// Owned is closed together with the orchestrator, usually the browser
	// session and the store.
	Owned []io.Closer
}

type Orchestrator struct {
	deps Dependencies
	opts Options
	tel  telemetry.API

	coursesCounter  metric.Int64Counter
	subjectsCounter metric.Int64Counter
}

func NewOrchestrator(deps Dependencies, opts Options, tel telemetry.API) *Orchestrator {
	assert.NotNil(deps.Detector)
	assert.NotNil(deps.Scraper)
	assert.NotNil(deps.Store)
	assert.NotNil(deps.Clock)
	assert.NotNil(tel)

	coursesCounter, _ := meter.Int64Counter("courses_inserted")
	subjectsCounter, _ := meter.Int64Counter("subjects_scraped")

	return &Orchestrator{
		deps:            deps,
		opts:            opts,
		tel:             telemetry.NewScopedAPI("ingest", tel),
		coursesCounter:  coursesCounter,
		subjectsCounter: subjectsCounter,
	}
}

// Run performs one ingestion run and records it in the store. The returned
// run is filled in even when an error is returned.
func (o *Orchestrator) Run(ctx context.Context) (model.IngestionRun, error) {
	ctx, span := tracer.Start(ctx, "ingest:run")
	defer span.End()

	run := model.IngestionRun{
		ID:        uuid.New(),
		Status:    model.RunRunning,
		StartedAt: o.deps.Clock.Now(),
	}
	err := o.deps.Store.CreateRun(ctx, run)
	if err != nil {
		o.tel.ReportBroken(report_run_record, err, run.ID)
		return o.finish(run, err)
	}

	err = o.run(ctx, &run)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
	}
	span.SetAttributes(
		attribute.String("term", run.Term),
		attribute.String("decision", string(run.Decision)),
		attribute.Int("courses", run.CoursesInserted),
	)

	run, err = o.finish(run, err)
	if recordErr := o.deps.Store.FinishRun(context.WithoutCancel(ctx), run); recordErr != nil {
		o.tel.ReportBroken(report_run_record, recordErr, run.ID)
		if err == nil {
			err = recordErr
		}
	}
	return run, err
}

func (o *Orchestrator) finish(run model.IngestionRun, err error) (model.IngestionRun, error) {
	run.FinishedAt = o.deps.Clock.Now()
	if o.deps.Ratings != nil {
		run.RatingsFetched = o.deps.Ratings.Stats().Fetches
	}
	switch {
	case err == nil:
		run.Status = model.RunSucceeded
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Status = model.RunCancelled
		run.Error = err.Error()
	default:
		run.Status = model.RunFailed
		run.Error = err.Error()
	}
	return run, err
}

func (o *Orchestrator) run(ctx context.Context, run *model.IngestionRun) error {
	detected, err := o.deps.Detector.Detect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fmt.Errorf("%w: %w", ErrTermDetection, err)
		o.tel.ReportBroken(report_run_detect_term, err)
		return err
	}
	run.Term = detected

	active, err := o.deps.Store.ActiveTerm(ctx)
	if err != nil {
		o.tel.ReportBroken(report_run_decide, err)
		return err
	}
	run.Decision = Decide(active, detected)
	if run.Decision == model.DecisionNoop && o.opts.Force {
		run.Decision = model.DecisionForced
	}
	o.tel.ReportDebug("decided", telemetry.KV{Key: "term", Value: detected}, telemetry.KV{Key: "decision", Value: run.Decision})

	switch run.Decision {
	case model.DecisionNoop:
		return nil
	case model.DecisionRollover:
		err = o.deps.Store.DeactivateAllTerms(ctx)
		if err != nil {
			o.tel.ReportBroken(report_run_decide, err)
			return err
		}
		fallthrough
	case model.DecisionBootstrap:
		err = o.deps.Store.CreateTerm(ctx, model.Term{Name: detected, IsActive: true})
		if err != nil {
			o.tel.ReportBroken(report_run_decide, err)
			return err
		}
	}

	return o.scrapeTerm(ctx, run)
}

func (o *Orchestrator) subjects(ctx context.Context) []string {
	if len(o.opts.Subjects) > 0 {
		return o.opts.Subjects
	}
	if o.deps.Discoverer != nil {
		subjects, err := o.deps.Discoverer.DiscoverSubjects(ctx)
		if err == nil && len(subjects) > 0 {
			return subjects
		}
		o.tel.ReportWarning(report_run_subjects, "falling back to the default subjects", err)
	}
	return catalog.DefaultSubjects
}

// scrapeTerm replaces every course of the term with a fresh scrape.
func (o *Orchestrator) scrapeTerm(ctx context.Context, run *model.IngestionRun) error {
	subjects := o.subjects(ctx)

	deleted, err := o.deps.Store.DeleteCoursesForTerm(ctx, run.Term)
	if err != nil {
		o.tel.ReportBroken(report_run_subject, err, run.Term)
		return err
	}
	o.tel.ReportDebug("cleared previous courses", run.Term, deleted)

	termAttr := metric.WithAttributes(attribute.String("term", run.Term))
	for _, subject := range subjects {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := o.deps.Scraper.Run(ctx, subject, run.Term)
		run.CoursesInserted += result.Courses
		o.coursesCounter.Add(ctx, int64(result.Courses), termAttr)

		switch {
		case err == nil && result.Skipped:
			run.SubjectsSkipped++
		case err == nil:
			run.SubjectsVisited++
			o.subjectsCounter.Add(ctx, 1, termAttr)
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, store.ErrPersistence):
			return err
		default:
			run.SubjectsFailed++
			o.tel.ReportWarning(report_run_subject, err, telemetry.KV{Key: "subject", Value: subject})
		}
	}

	o.tel.ReportCount("courses", int64(run.CoursesInserted))
	return nil
}

// Close releases every owned resource.
func (o *Orchestrator) Close() error {
	var errs []error
	for _, closer := range o.deps.Owned {
		err := closer.Close()
		if err != nil {
			o.tel.ReportWarning(report_run_close, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
