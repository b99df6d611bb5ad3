package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// File is the path of the local database file, ":memory:" is allowed.
	File string `json:"file"`
	// Url of a remote libsql database, it takes priority over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the configured database and applies the schema.
func (config Config) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		url := config.Url
		if config.AuthToken != "" {
			url = fmt.Sprintf("%s?authToken=%s", url, config.AuthToken)
		}
		db, err := sql.Open("libsql", url)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		_, err = db.Exec(Schema)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if config.File == "" {
		return nil, wrapOpenDB(fmt.Errorf("a path was not specified"))
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

// Store implements store.Store on top of sqlite.
type Store struct {
	db     *sql.DB
	qry    *Queries
	makeTx MakeTx
}

var _ store.Store = Store{}

func NewStore(db *sql.DB) Store {
	return Store{
		db:     db,
		qry:    New(db),
		makeTx: NewMakeTx(db),
	}
}

// Open is OpenDB followed by NewStore.
func Open(config Config) (Store, error) {
	db, err := config.OpenDB()
	if err != nil {
		return Store{}, store.Wrap("open", err)
	}
	return NewStore(db), nil
}

func (s Store) Close() error {
	return store.Wrap("close", s.db.Close())
}

func (s Store) ListCollections(ctx context.Context) ([]string, error) {
	counts, err := s.qry.CountRows(ctx)
	if err != nil {
		return nil, store.Wrap("list collections", err)
	}
	var out []string
	if counts.Terms > 0 {
		out = append(out, store.CollectionTerms)
	}
	if counts.Courses > 0 {
		out = append(out, store.CollectionCourses)
	}
	if counts.Ratings > 0 {
		out = append(out, store.CollectionRatings)
	}
	if counts.Runs > 0 {
		out = append(out, store.CollectionRuns)
	}
	return out, nil
}

func (s Store) ActiveTerm(ctx context.Context) (*model.Term, error) {
	row, err := s.qry.GetActiveTerm(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap("active term", err)
	}
	return &model.Term{Name: row.Name, IsActive: row.IsActive}, nil
}

func (s Store) CreateTerm(ctx context.Context, term model.Term) error {
	return store.Wrap("create term", s.qry.UpsertTerm(ctx, term.Name, term.IsActive))
}

func (s Store) DeactivateAllTerms(ctx context.Context) error {
	return store.Wrap("deactivate terms", s.qry.DeactivateAllTerms(ctx))
}

func (s Store) ListTerms(ctx context.Context) ([]model.Term, error) {
	rows, err := s.qry.ListTerms(ctx)
	if err != nil {
		return nil, store.Wrap("list terms", err)
	}
	out := make([]model.Term, len(rows))
	for i, r := range rows {
		out[i] = model.Term{Name: r.Name, IsActive: r.IsActive}
	}
	return out, nil
}

func marshalNullable(value any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func marshalSections(sections []model.Section) (string, error) {
	if sections == nil {
		sections = []model.Section{}
	}
	encoded, err := json.Marshal(sections)
	return string(encoded), err
}

func courseToRow(c model.Course) (CourseRow, error) {
	row := CourseRow{
		Term:       c.Term,
		Name:       c.Name,
		Teacher:    c.Teacher,
		TeacherKey: c.TeacherKey,
	}
	var err error
	row.Lecture, err = marshalNullable(c.Lecture, c.Lecture == nil)
	if err != nil {
		return row, err
	}
	row.Final, err = marshalNullable(c.Final, c.Final == nil)
	if err != nil {
		return row, err
	}
	row.Rating, err = marshalNullable(c.Rating, c.Rating == nil)
	if err != nil {
		return row, err
	}
	row.Discussions, err = marshalSections(c.Discussions)
	if err != nil {
		return row, err
	}
	row.Midterms, err = marshalSections(c.Midterms)
	return row, err
}

func rowToCourse(r CourseRow) (model.Course, error) {
	c := model.Course{
		Term:       r.Term,
		Name:       r.Name,
		Teacher:    r.Teacher,
		TeacherKey: r.TeacherKey,
	}
	if r.Lecture.Valid {
		c.Lecture = &model.Section{}
		if err := json.Unmarshal([]byte(r.Lecture.String), c.Lecture); err != nil {
			return c, err
		}
	}
	if r.Final.Valid {
		c.Final = &model.Section{}
		if err := json.Unmarshal([]byte(r.Final.String), c.Final); err != nil {
			return c, err
		}
	}
	if r.Rating.Valid {
		c.Rating = &model.RatingRecord{}
		if err := json.Unmarshal([]byte(r.Rating.String), c.Rating); err != nil {
			return c, err
		}
	}
	if err := json.Unmarshal([]byte(r.Discussions), &c.Discussions); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(r.Midterms), &c.Midterms); err != nil {
		return c, err
	}
	return c, nil
}

// InsertCourses inserts every course in one transaction, either all of
// them are persisted or none are.
func (s Store) InsertCourses(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return store.Wrap("insert courses", err)
	}
	defer discard()

	for _, c := range courses {
		row, err := courseToRow(c)
		if err != nil {
			return store.Wrap("insert courses", err)
		}
		err = tx.InsertCourse(ctx, row)
		if err != nil {
			return store.Wrap("insert courses", err)
		}
	}
	return store.Wrap("insert courses", commit())
}

func (s Store) DeleteCoursesForTerm(ctx context.Context, term string) (int, error) {
	n, err := s.qry.DeleteCoursesForTerm(ctx, term)
	if err != nil {
		return 0, store.Wrap("delete courses", err)
	}
	return int(n), nil
}

func (s Store) FindCourses(ctx context.Context, filter store.CourseFilter) ([]model.Course, error) {
	rows, err := s.qry.FindCourses(ctx, FindCoursesParams{
		Term:       filter.Term,
		NamePrefix: filter.NamePrefix,
		TeacherKey: filter.TeacherKey,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, store.Wrap("find courses", err)
	}
	out := make([]model.Course, 0, len(rows))
	for _, r := range rows {
		c, err := rowToCourse(r)
		if err != nil {
			return nil, store.Wrap("find courses", fmt.Errorf("decode course %d: %w", r.ID, err))
		}
		out = append(out, c)
	}
	return out, nil
}

func (s Store) AttachRating(ctx context.Context, teacherKey, term string, rating model.RatingRecord) (int, error) {
	encoded, err := json.Marshal(rating)
	if err != nil {
		return 0, store.Wrap("attach rating", err)
	}
	n, err := s.qry.SetCourseRating(ctx, string(encoded), term, teacherKey)
	if err != nil {
		return 0, store.Wrap("attach rating", err)
	}
	return int(n), nil
}

func ratingFromRow(r RatingRow) model.RatingRecord {
	return model.RatingRecord{
		InstructorKey:    r.InstructorKey,
		DisplayName:      r.DisplayName,
		AvgRating:        r.AvgRating,
		AvgDifficulty:    r.AvgDifficulty,
		TakeAgainPercent: int(r.TakeAgainPercent),
		NumRatings:       int(r.NumRatings),
		LegacyID:         int(r.LegacyID),
	}
}

func (s Store) GetRating(ctx context.Context, instructorKey string) (model.RatingRecord, error) {
	row, err := s.qry.GetRating(ctx, instructorKey)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RatingRecord{}, store.ErrNotFound
	}
	if err != nil {
		return model.RatingRecord{}, store.Wrap("get rating", err)
	}
	return ratingFromRow(row), nil
}

func (s Store) PutRating(ctx context.Context, rating model.RatingRecord) error {
	return store.Wrap("put rating", s.qry.UpsertRating(ctx, RatingRow{
		InstructorKey:    rating.InstructorKey,
		DisplayName:      rating.DisplayName,
		AvgRating:        rating.AvgRating,
		AvgDifficulty:    rating.AvgDifficulty,
		TakeAgainPercent: int64(rating.TakeAgainPercent),
		NumRatings:       int64(rating.NumRatings),
		LegacyID:         int64(rating.LegacyID),
	}))
}

func (s Store) ListRatings(ctx context.Context) ([]model.RatingRecord, error) {
	rows, err := s.qry.ListRatings(ctx)
	if err != nil {
		return nil, store.Wrap("list ratings", err)
	}
	out := make([]model.RatingRecord, len(rows))
	for i, r := range rows {
		out[i] = ratingFromRow(r)
	}
	return out, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func runToRow(run model.IngestionRun) RunRow {
	return RunRow{
		ID:              run.ID.String(),
		Term:            run.Term,
		Decision:        string(run.Decision),
		Status:          string(run.Status),
		StartedAt:       unixOrZero(run.StartedAt),
		FinishedAt:      unixOrZero(run.FinishedAt),
		SubjectsVisited: int64(run.SubjectsVisited),
		SubjectsSkipped: int64(run.SubjectsSkipped),
		SubjectsFailed:  int64(run.SubjectsFailed),
		CoursesInserted: int64(run.CoursesInserted),
		RatingsFetched:  int64(run.RatingsFetched),
		Error:           run.Error,
	}
}

func rowToRun(r RunRow) (model.IngestionRun, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.IngestionRun{}, err
	}
	return model.IngestionRun{
		ID:              id,
		Term:            r.Term,
		Decision:        model.Decision(r.Decision),
		Status:          model.RunStatus(r.Status),
		StartedAt:       timeOrZero(r.StartedAt),
		FinishedAt:      timeOrZero(r.FinishedAt),
		SubjectsVisited: int(r.SubjectsVisited),
		SubjectsSkipped: int(r.SubjectsSkipped),
		SubjectsFailed:  int(r.SubjectsFailed),
		CoursesInserted: int(r.CoursesInserted),
		RatingsFetched:  int(r.RatingsFetched),
		Error:           r.Error,
	}, nil
}

func (s Store) CreateRun(ctx context.Context, run model.IngestionRun) error {
	return store.Wrap("create run", s.qry.UpsertRun(ctx, runToRow(run)))
}

func (s Store) FinishRun(ctx context.Context, run model.IngestionRun) error {
	return store.Wrap("finish run", s.qry.UpsertRun(ctx, runToRow(run)))
}

func (s Store) GetRun(ctx context.Context, id uuid.UUID) (model.IngestionRun, error) {
	row, err := s.qry.GetRun(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return model.IngestionRun{}, store.ErrNotFound
	}
	if err != nil {
		return model.IngestionRun{}, store.Wrap("get run", err)
	}
	run, err := rowToRun(row)
	return run, store.Wrap("get run", err)
}

func (s Store) ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.qry.ListRuns(ctx, limit)
	if err != nil {
		return nil, store.Wrap("list runs", err)
	}
	out := make([]model.IngestionRun, 0, len(rows))
	for _, r := range rows {
		run, err := rowToRun(r)
		if err != nil {
			return nil, store.Wrap("list runs", err)
		}
		out = append(out, run)
	}
	return out, nil
}
