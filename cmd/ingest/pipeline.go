package main

import (
	"context"
	"io"

	"courseplanner-backend/internal/components/chrono"
	"courseplanner-backend/internal/components/telemetry"
	"courseplanner-backend/internal/ingest"
	"courseplanner-backend/internal/ratings"
	"courseplanner-backend/internal/scrapers/catalog"
	"courseplanner-backend/internal/scrapers/rmp"
	"courseplanner-backend/internal/store"
)

type pipelineOptions struct {
	Term    string
	Force   bool
	Headed  bool
	Subject []string
}

// pipeline owns everything a single ingestion run needs, a fresh one is
// built for every run so a crashed browser never leaks into the next run.
type pipeline struct {
	store        store.Store
	browser      *catalog.ChromeSession
	cache        *ratings.Cache
	driver       catalog.SubjectPageDriver
	orchestrator *ingest.Orchestrator
}

func newRatingCache(cfg Config, db store.Store, tel telemetry.API) *ratings.Cache {
	client := rmp.NewClient(rmp.Options{
		Endpoint:          cfg.Ratings.Endpoint,
		RequestsPerSecond: cfg.Ratings.RequestsPerSecond,
		Output:            restyOutput,
	}, tel)
	return ratings.NewCache(client, db, ratings.Options{
		SchoolName:  cfg.Ratings.SchoolName,
		Concurrency: cfg.Ratings.Concurrency,
	}, tel)
}

func newPipeline(ctx context.Context, cfg Config, clock chrono.API, opts pipelineOptions, tel telemetry.API) (*pipeline, error) {
	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	browser, err := catalog.NewChromeSession(ctx, catalog.ChromeOptions{
		ExecPath:  cfg.Browser.ExecPath,
		Headless:  !(cfg.Browser.Headed || opts.Headed),
		IdleGrace: seconds(cfg.Browser.IdleGrace),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	cache := newRatingCache(cfg, db, tel)
	driver := catalog.NewSubjectPageDriver(browser, db, cache, catalog.DriverOptions{
		SearchUrl:         cfg.Browser.SearchUrl,
		NavigationTimeout: seconds(cfg.Browser.NavigationTimeout),
	}, tel)

	var detector ingest.TermDetector = catalog.NewBrowserTermDetector(driver)
	if opts.Term != "" {
		detector = ingest.StaticTermDetector{Term: opts.Term}
	}

	subjects := cfg.Subjects
	if len(opts.Subject) > 0 {
		subjects = opts.Subject
	}

	orchestrator := ingest.NewOrchestrator(ingest.Dependencies{
		Detector:   detector,
		Scraper:    driver,
		Discoverer: driver,
		Ratings:    cache,
		Store:      db,
		Clock:      clock,
		Owned:      []io.Closer{browser, db},
	}, ingest.Options{
		Subjects: subjects,
		Force:    opts.Force,
	}, tel)

	return &pipeline{
		store:        db,
		browser:      browser,
		cache:        cache,
		driver:       driver,
		orchestrator: orchestrator,
	}, nil
}

func (p *pipeline) Close() error {
	return p.orchestrator.Close()
}
