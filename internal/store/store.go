// Package store defines the persistence gateway of the ingestion pipeline.
//
// Implementations live in the sqlite and mongo subpackages, every method
// failure is wrapped with ErrPersistence so callers can tell storage
// failures apart from scraping failures.
package store

import (
	"context"
	"errors"
	"fmt"

	"courseplanner-backend/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrPersistence marks a failure of the underlying database, the
	// orchestrator treats it as fatal.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound is returned by single record lookups with no match.
	ErrNotFound = errors.New("record not found")
)

// Wrap marks err as a persistence error, nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// CourseFilter selects courses, empty fields match everything.
type CourseFilter struct {
	Term       string
	NamePrefix string
	TeacherKey string
	Limit      int
}

const (
	CollectionTerms   = "terms"
	CollectionCourses = "courses"
	CollectionRatings = "ratings"
	CollectionRuns    = "runs"
)

// Store is the persistence gateway.
//
// note: fault injection point
type Store interface {
	// ListCollections returns the names of the collections that currently
	// hold data.
	ListCollections(ctx context.Context) ([]string, error)

	// ActiveTerm returns the active term or nil when there is none.
	ActiveTerm(ctx context.Context) (*model.Term, error)
	// CreateTerm inserts the term or updates its active flag if it
	// already exists.
	CreateTerm(ctx context.Context, term model.Term) error
	DeactivateAllTerms(ctx context.Context) error
	ListTerms(ctx context.Context) ([]model.Term, error)

	InsertCourses(ctx context.Context, courses []model.Course) error
	// DeleteCoursesForTerm returns the number of deleted courses.
	DeleteCoursesForTerm(ctx context.Context, term string) (int, error)
	FindCourses(ctx context.Context, filter CourseFilter) ([]model.Course, error)
	// AttachRating sets the rating of every course in term taught by the
	// instructor with teacherKey, it returns the number of updated courses.
	AttachRating(ctx context.Context, teacherKey, term string, rating model.RatingRecord) (int, error)

	// GetRating returns ErrNotFound when no record exists for the key.
	GetRating(ctx context.Context, instructorKey string) (model.RatingRecord, error)
	PutRating(ctx context.Context, rating model.RatingRecord) error
	ListRatings(ctx context.Context) ([]model.RatingRecord, error)

	CreateRun(ctx context.Context, run model.IngestionRun) error
	FinishRun(ctx context.Context, run model.IngestionRun) error
	GetRun(ctx context.Context, id uuid.UUID) (model.IngestionRun, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error)

	Close() error
}
