package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"courseplanner-backend/internal/components/assert"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/components/textutil"
	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_driver_run       = "driver.run"
	report_driver_page      = "driver.page"
	report_driver_max_page  = "driver.max-page"
	report_driver_discovery = "driver.discover-subjects"
)

const (
	DefaultSearchUrl = "https://act.ucsd.edu/scheduleOfClasses/scheduleOfClassesStudent.htm"

	subjectSelect     = "#selectedSubjects"
	subjectSelectTag  = "select#selectedSubjects"
	subjectOptions    = "#selectedSubjects option"
	submitButton      = "#socFacSubmit"
	resultsMarker     = "#socDisplayCVO"
	pageLinks         = `a[href*="page="]`
	nextPageLinks     = `a[href*="scheduleOfClassesStudentResult.htm?page="]`
	resultRowSelector = "tr"
)

var (
	// ErrTransientSite is a navigation or extraction failure of the catalog
	// site, the subject is skipped.
	ErrTransientSite = errors.New("transient site error")
	// ErrSubjectNotOffered means the subject is missing from the search
	// form, it never leaves this package.
	ErrSubjectNotOffered = errors.New("subject not offered")
)

var tracer = otel.Tracer("courseplanner-backend/internal/scrapers/catalog")

// RatingEnricher attaches ratings to the courses taught by the given
// instructors, failures are its own business.
type RatingEnricher interface {
	Enrich(ctx context.Context, term string, instructors []string)
}

// CourseInserter is the part of the store the driver writes to.
type CourseInserter interface {
	InsertCourses(ctx context.Context, courses []model.Course) error
}

type DriverOptions struct {
	SearchUrl string
	// NavigationTimeout bounds every single browser step.
	NavigationTimeout time.Duration
}

type SubjectResult struct {
	Subject string
	Skipped bool
	Pages   int
	Courses int
}

// SubjectPageDriver walks every results page of a subject search.
type SubjectPageDriver struct {
	browser  BrowserSession
	courses  CourseInserter
	enricher RatingEnricher
	opts     DriverOptions
	tel      telemetry.API
}

func NewSubjectPageDriver(
	browser BrowserSession,
	courses CourseInserter,
	enricher RatingEnricher,
	opts DriverOptions,
	tel telemetry.API,
) SubjectPageDriver {
	assert.NotNil(browser)
	assert.NotNil(courses)
	assert.NotNil(tel)

	if opts.SearchUrl == "" {
		opts.SearchUrl = DefaultSearchUrl
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = time.Second * 45
	}

	return SubjectPageDriver{
		browser:  browser,
		courses:  courses,
		enricher: enricher,
		opts:     opts,
		tel:      telemetry.NewScopedAPI("catalog", tel),
	}
}

// step runs one bounded browser step, failures that are not caused by ctx
// become ErrTransientSite.
func (d SubjectPageDriver) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, d.opts.NavigationTimeout)
	defer cancel()

	err := fn(stepCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w: %w", name, ErrTransientSite, err)
}

// openSubject loads the search form and submits it for the subject.
func (d SubjectPageDriver) openSubject(ctx context.Context, subject string) error {
	err := d.openForm(ctx)
	if err != nil {
		return err
	}

	var selected []string
	err = d.step(ctx, "select subject", func(ctx context.Context) error {
		var err error
		selected, err = d.browser.Select(ctx, subjectSelectTag, textutil.PadSubjectCode(subject))
		return err
	})
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return ErrSubjectNotOffered
	}

	err = d.step(ctx, "submit search", func(ctx context.Context) error {
		return d.browser.Click(ctx, submitButton)
	})
	if err != nil {
		return err
	}
	return d.step(ctx, "wait for results", func(ctx context.Context) error {
		return d.browser.WaitForSelector(ctx, resultsMarker)
	})
}

func (d SubjectPageDriver) openForm(ctx context.Context) error {
	err := d.step(ctx, "open search form", func(ctx context.Context) error {
		return d.browser.Goto(ctx, d.opts.SearchUrl, WaitNetworkIdle)
	})
	if err != nil {
		return err
	}
	return d.step(ctx, "wait for subjects", func(ctx context.Context) error {
		return d.browser.WaitForSelector(ctx, subjectSelect)
	})
}

// MaxPage returns the largest page query parameter among hrefs, 0 if none
// has one.
func MaxPage(hrefs []string) int {
	highest := 0
	for _, href := range hrefs {
		parsed, err := url.Parse(href)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(parsed.Query().Get("page"))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// Run scrapes every page of the subject for the term. A subject missing
// from the search form is skipped without error. Errors wrap either
// ErrTransientSite, store.ErrPersistence or the context's error.
func (d SubjectPageDriver) Run(ctx context.Context, subject, term string) (SubjectResult, error) {
	ctx, span := tracer.Start(ctx, "catalog:subject", trace.WithAttributes(
		attribute.String("subject", subject),
		attribute.String("term", term),
	))
	defer span.End()

	result, err := d.run(ctx, subject, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subject failed")
	}
	span.SetAttributes(
		attribute.Int("pages", result.Pages),
		attribute.Int("courses", result.Courses),
		attribute.Bool("skipped", result.Skipped),
	)
	return result, err
}

func (d SubjectPageDriver) run(ctx context.Context, subject, term string) (SubjectResult, error) {
	result := SubjectResult{Subject: strings.TrimSpace(subject)}

	err := d.openSubject(ctx, subject)
	if errors.Is(err, ErrSubjectNotOffered) {
		d.tel.ReportDebug("subject not offered, skipping", result.Subject)
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return result, err
	}

	var hrefs []string
	err = d.step(ctx, "read pagination", func(ctx context.Context) error {
		var err error
		hrefs, err = d.browser.HrefsMatching(ctx, pageLinks)
		return err
	})
	if err != nil {
		return result, err
	}
	maxPage := MaxPage(hrefs)
	d.tel.ReportDebug(report_driver_max_page, result.Subject, maxPage)

	accumulator := Accumulator{Term: term, Subject: result.Subject}
	for i := 0; i <= maxPage; i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		var rows []string
		err = d.step(ctx, "extract rows", func(ctx context.Context) error {
			var err error
			rows, err = d.browser.ExtractRows(ctx, resultRowSelector)
			return err
		})
		if err != nil {
			return result, err
		}
		events, err := ClassifyRows(rows)
		if err != nil {
			return result, fmt.Errorf("parse rows: %w: %w", ErrTransientSite, err)
		}

		courses := accumulator.Fold(events)
		if len(courses) == 0 {
			d.tel.ReportDebug(report_driver_page, "empty page, stopping", result.Subject, i)
			break
		}

		err = d.courses.InsertCourses(ctx, courses)
		if err != nil {
			if !errors.Is(err, store.ErrPersistence) {
				err = fmt.Errorf("%w: %w", store.ErrPersistence, err)
			}
			d.tel.ReportBroken(report_driver_run, err, result.Subject)
			return result, err
		}
		result.Pages++
		result.Courses += len(courses)

		if d.enricher != nil {
			d.enricher.Enrich(ctx, term, distinctInstructors(courses))
		}

		if i == maxPage {
			break
		}
		var clicked bool
		err = d.step(ctx, "next page", func(ctx context.Context) error {
			var err error
			clicked, err = d.browser.ClickLinkWithText(ctx, nextPageLinks, strconv.Itoa(i+2))
			return err
		})
		if err != nil {
			return result, err
		}
		if !clicked {
			d.tel.ReportDebug(report_driver_page, "no next page link, stopping", result.Subject, i)
			break
		}
	}

	return result, nil
}

func distinctInstructors(courses []model.Course) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range courses {
		if c.TeacherKey == "" || seen[c.TeacherKey] {
			continue
		}
		seen[c.TeacherKey] = true
		out = append(out, c.Teacher)
	}
	return out
}

// DiscoverSubjects reads every subject code offered by the search form.
func (d SubjectPageDriver) DiscoverSubjects(ctx context.Context) ([]string, error) {
	err := d.openForm(ctx)
	if err != nil {
		d.tel.ReportWarning(report_driver_discovery, err)
		return nil, err
	}

	var values []string
	err = d.step(ctx, "read subjects", func(ctx context.Context) error {
		var err error
		values, err = d.browser.OptionValues(ctx, subjectOptions)
		return err
	})
	if err != nil {
		d.tel.ReportWarning(report_driver_discovery, err)
		return nil, err
	}

	var subjects []string
	seen := map[string]bool{}
	for _, v := range values {
		code := strings.TrimSpace(v)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		subjects = append(subjects, code)
	}
	return subjects, nil
}
