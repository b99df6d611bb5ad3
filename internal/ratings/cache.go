// Package ratings looks up instructor ratings through the rating service and
// remembers them in the store, so every instructor is fetched at most once
// per run.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"courseplanner-backend/internal/components/assert"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/components/textutil"
	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/scrapers/rmp"
	"courseplanner-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	report_cache_get_or_fetch = "get-or-fetch"
	report_cache_school       = "resolve-school"
	report_cache_persist      = "persist"
	report_cache_attach       = "attach"
)

const DefaultSchoolName = "University of California San Diego"

// ErrNotFound means there is no rating for the instructor, either because
// the service does not know them or because the lookup failed earlier in
// this run.
var ErrNotFound = errors.New("rating not found")

var meter = otel.Meter("courseplanner-backend/internal/ratings")

// RatingService is the subset of rmp.Client the cache needs.
type RatingService interface {
	SearchSchool(ctx context.Context, name string) ([]rmp.SchoolRef, error)
	RatingForInstructor(ctx context.Context, name, schoolID string) (rmp.Rating, error)
}

// RatingStore is the subset of store.Store the cache needs.
type RatingStore interface {
	GetRating(ctx context.Context, instructorKey string) (model.RatingRecord, error)
	PutRating(ctx context.Context, rating model.RatingRecord) error
	AttachRating(ctx context.Context, teacherKey, term string, rating model.RatingRecord) (int, error)
}

type Options struct {
	// SchoolName defaults to DefaultSchoolName.
	SchoolName string
	// Concurrency bounds the lookups of a single Enrich call, defaults to 4.
	Concurrency int
}

type Stats struct {
	Hits    int
	Fetches int
	Misses  int
}

// Cache is a cache-aside lookup in front of the rating service. It is safe
// for concurrent use and is meant to live for a single ingestion run.
type Cache struct {
	service RatingService
	store   RatingStore
	opts    Options
	tel     telemetry.API

	group singleflight.Group

	mutex     sync.Mutex
	completed map[string]*model.RatingRecord
	schoolID  string
	schoolErr error
	stats     Stats

	fetchCounter metric.Int64Counter
}

func NewCache(service RatingService, store RatingStore, opts Options, tel telemetry.API) *Cache {
	assert.NotNil(service)
	assert.NotNil(store)
	assert.NotNil(tel)

	if opts.SchoolName == "" {
		opts.SchoolName = DefaultSchoolName
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	fetchCounter, _ := meter.Int64Counter("rating_lookups")

	return &Cache{
		service:      service,
		store:        store,
		opts:         opts,
		tel:          telemetry.NewScopedAPI("ratings", tel),
		completed:    map[string]*model.RatingRecord{},
		fetchCounter: fetchCounter,
	}
}

func (c *Cache) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

func (c *Cache) remembered(key string) (*model.RatingRecord, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	rec, ok := c.completed[key]
	return rec, ok
}

func (c *Cache) remember(key string, rec *model.RatingRecord, count func(s *Stats)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.completed[key] = rec
	count(&c.stats)
}

// school resolves the school id once per cache. A failed lookup is kept as
// well, so an outage of the rating service costs a single request per run.
func (c *Cache) school(ctx context.Context) (string, error) {
	c.mutex.Lock()
	id, schoolErr := c.schoolID, c.schoolErr
	c.mutex.Unlock()
	if id != "" || schoolErr != nil {
		return id, schoolErr
	}

	v, err, _ := c.group.Do("\x00school", func() (any, error) {
		schools, err := c.service.SearchSchool(ctx, c.opts.SchoolName)
		if err == nil && len(schools) == 0 {
			err = fmt.Errorf("school %q: %w", c.opts.SchoolName, rmp.ErrNoResults)
		}
		if err != nil {
			if ctx.Err() == nil {
				c.tel.ReportBroken(report_cache_school, err, c.opts.SchoolName)
				c.mutex.Lock()
				c.schoolErr = err
				c.mutex.Unlock()
			}
			return "", err
		}
		c.mutex.Lock()
		c.schoolID = schools[0].ID
		c.mutex.Unlock()
		return schools[0].ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetOrFetch returns the rating of the instructor with the given raw name
// ("Last, First"), looking in the store before asking the rating service.
func (c *Cache) GetOrFetch(ctx context.Context, rawName string) (model.RatingRecord, error) {
	key := textutil.NormalizeInstructorKey(rawName)
	if key == "" {
		return model.RatingRecord{}, ErrNotFound
	}

	if rec, ok := c.remembered(key); ok {
		if rec == nil {
			return model.RatingRecord{}, ErrNotFound
		}
		return *rec, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if rec, ok := c.remembered(key); ok {
			return rec, nil
		}
		return c.lookup(ctx, key, rawName)
	})
	if err != nil {
		return model.RatingRecord{}, err
	}
	rec := v.(*model.RatingRecord)
	if rec == nil {
		return model.RatingRecord{}, ErrNotFound
	}
	return *rec, nil
}

// lookup returns a nil record when the instructor has no rating, errors are
// reserved for store failures.
func (c *Cache) lookup(ctx context.Context, key, rawName string) (*model.RatingRecord, error) {
	stored, err := c.store.GetRating(ctx, key)
	if err == nil {
		c.remember(key, &stored, func(s *Stats) { s.Hits++ })
		return &stored, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		c.tel.ReportBroken(report_cache_get_or_fetch, err, key)
		return nil, err
	}

	schoolID, err := c.school(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.remember(key, nil, func(s *Stats) { s.Misses++ })
		return nil, nil
	}

	c.fetchCounter.Add(ctx, 1)
	rating, err := c.service.RatingForInstructor(ctx, textutil.SearchName(rawName), schoolID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, rmp.ErrNoResults) {
			c.tel.ReportWarning(report_cache_get_or_fetch, err, key)
		}
		c.remember(key, nil, func(s *Stats) {
			s.Fetches++
			s.Misses++
		})
		return nil, nil
	}

	rec := model.RatingRecord{
		InstructorKey:    key,
		DisplayName:      rating.FormattedName(),
		AvgRating:        rating.AvgRating,
		AvgDifficulty:    rating.AvgDifficulty,
		TakeAgainPercent: rating.WouldTakeAgainPercent,
		NumRatings:       rating.NumRatings,
		LegacyID:         rating.LegacyID,
	}
	err = c.store.PutRating(ctx, rec)
	if err != nil {
		c.tel.ReportBroken(report_cache_persist, err, key)
	}
	c.remember(key, &rec, func(s *Stats) { s.Fetches++ })
	return &rec, nil
}

// Enrich looks up the rating of every instructor and attaches it to their
// courses in term. Lookup and attach failures are reported and skipped.
func (c *Cache) Enrich(ctx context.Context, term string, instructors []string) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.opts.Concurrency)

	for _, name := range instructors {
		name := name
		group.Go(func() error {
			rec, err := c.GetOrFetch(groupCtx, name)
			if err != nil {
				// not found or already reported
				return nil
			}
			_, err = c.store.AttachRating(groupCtx, rec.InstructorKey, term, rec)
			if err != nil {
				c.tel.ReportBroken(report_cache_attach, fmt.Errorf("attach %s: %w", rec.InstructorKey, err), term)
			}
			return nil
		})
	}
	group.Wait()

	stats := c.Stats()
	c.tel.ReportCount("fetches", int64(stats.Fetches))
	c.tel.ReportCount("hits", int64(stats.Hits))
}
