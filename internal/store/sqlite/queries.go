package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds every statement the store issues, it runs against either
// the database or a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// MakeTx is a function that creates a db transaction
type MakeTx = func(ctx context.Context) (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(dbtx *sql.DB) MakeTx {
	return func(ctx context.Context) (tx *Queries, discard, commit func() error, err error) {
		sqltx, err := dbtx.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(sqltx),
			func() error {
				return sqltx.Rollback()
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}

const countRows = `select
    (select count(*) from terms),
    (select count(*) from courses),
    (select count(*) from ratings),
    (select count(*) from runs)`

type CountRowsRow struct {
	Terms   int64
	Courses int64
	Ratings int64
	Runs    int64
}

func (q *Queries) CountRows(ctx context.Context) (CountRowsRow, error) {
	var i CountRowsRow
	err := q.db.QueryRowContext(ctx, countRows).Scan(&i.Terms, &i.Courses, &i.Ratings, &i.Runs)
	return i, err
}

const getActiveTerm = `select name, is_active from terms where is_active = 1 limit 1`

type TermRow struct {
	Name     string
	IsActive bool
}

func (q *Queries) GetActiveTerm(ctx context.Context) (TermRow, error) {
	var i TermRow
	err := q.db.QueryRowContext(ctx, getActiveTerm).Scan(&i.Name, &i.IsActive)
	return i, err
}

const upsertTerm = `insert into terms(name, is_active) values (?, ?)
on conflict (name) do update set is_active = excluded.is_active`

func (q *Queries) UpsertTerm(ctx context.Context, name string, isActive bool) error {
	_, err := q.db.ExecContext(ctx, upsertTerm, name, isActive)
	return err
}

const deactivateAllTerms = `update terms set is_active = 0`

func (q *Queries) DeactivateAllTerms(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deactivateAllTerms)
	return err
}

const listTerms = `select name, is_active from terms order by name`

func (q *Queries) ListTerms(ctx context.Context) ([]TermRow, error) {
	rows, err := q.db.QueryContext(ctx, listTerms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TermRow
	for rows.Next() {
		var i TermRow
		if err := rows.Scan(&i.Name, &i.IsActive); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertCourse = `insert into courses(
    term, name, teacher, teacher_key, lecture, discussions, midterms, final, rating
) values (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CourseRow struct {
	ID          int64
	Term        string
	Name        string
	Teacher     string
	TeacherKey  string
	Lecture     sql.NullString
	Discussions string
	Midterms    string
	Final       sql.NullString
	Rating      sql.NullString
}

func (q *Queries) InsertCourse(ctx context.Context, arg CourseRow) error {
	_, err := q.db.ExecContext(
		ctx, insertCourse,
		arg.Term,
		arg.Name,
		arg.Teacher,
		arg.TeacherKey,
		arg.Lecture,
		arg.Discussions,
		arg.Midterms,
		arg.Final,
		arg.Rating,
	)
	return err
}

const deleteCoursesForTerm = `delete from courses where term = ?`

func (q *Queries) DeleteCoursesForTerm(ctx context.Context, term string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCoursesForTerm, term)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// findCourses treats empty parameters as wildcards, limit <= 0 is unbounded.
const findCourses = `select
    id, term, name, teacher, teacher_key, lecture, discussions, midterms, final, rating
from courses
where (?1 = '' or term = ?1)
  and (?2 = '' or name like ?2 || '%')
  and (?3 = '' or teacher_key = ?3)
order by id
limit case when ?4 > 0 then ?4 else -1 end`

type FindCoursesParams struct {
	Term       string
	NamePrefix string
	TeacherKey string
	Limit      int
}

func (q *Queries) FindCourses(ctx context.Context, arg FindCoursesParams) ([]CourseRow, error) {
	rows, err := q.db.QueryContext(ctx, findCourses, arg.Term, arg.NamePrefix, arg.TeacherKey, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CourseRow
	for rows.Next() {
		var i CourseRow
		err := rows.Scan(
			&i.ID,
			&i.Term,
			&i.Name,
			&i.Teacher,
			&i.TeacherKey,
			&i.Lecture,
			&i.Discussions,
			&i.Midterms,
			&i.Final,
			&i.Rating,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const setCourseRating = `update courses set rating = ? where term = ? and teacher_key = ?`

func (q *Queries) SetCourseRating(ctx context.Context, rating, term, teacherKey string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setCourseRating, rating, term, teacherKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const ratingColumns = `instructor_key, display_name, avg_rating, avg_difficulty, take_again_percent, num_ratings, legacy_id`

type RatingRow struct {
	InstructorKey    string
	DisplayName      string
	AvgRating        float64
	AvgDifficulty    float64
	TakeAgainPercent int64
	NumRatings       int64
	LegacyID         int64
}

func scanRating(row interface{ Scan(...any) error }) (RatingRow, error) {
	var i RatingRow
	err := row.Scan(
		&i.InstructorKey,
		&i.DisplayName,
		&i.AvgRating,
		&i.AvgDifficulty,
		&i.TakeAgainPercent,
		&i.NumRatings,
		&i.LegacyID,
	)
	return i, err
}

const getRating = `select ` + ratingColumns + ` from ratings where instructor_key = ?`

func (q *Queries) GetRating(ctx context.Context, instructorKey string) (RatingRow, error) {
	return scanRating(q.db.QueryRowContext(ctx, getRating, instructorKey))
}

const upsertRating = `insert into ratings(` + ratingColumns + `) values (?, ?, ?, ?, ?, ?, ?)
on conflict (instructor_key) do update set
    display_name = excluded.display_name,
    avg_rating = excluded.avg_rating,
    avg_difficulty = excluded.avg_difficulty,
    take_again_percent = excluded.take_again_percent,
    num_ratings = excluded.num_ratings,
    legacy_id = excluded.legacy_id`

func (q *Queries) UpsertRating(ctx context.Context, arg RatingRow) error {
	_, err := q.db.ExecContext(
		ctx, upsertRating,
		arg.InstructorKey,
		arg.DisplayName,
		arg.AvgRating,
		arg.AvgDifficulty,
		arg.TakeAgainPercent,
		arg.NumRatings,
		arg.LegacyID,
	)
	return err
}

const listRatings = `select ` + ratingColumns + ` from ratings order by instructor_key`

func (q *Queries) ListRatings(ctx context.Context) ([]RatingRow, error) {
	rows, err := q.db.QueryContext(ctx, listRatings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RatingRow
	for rows.Next() {
		i, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const runColumns = `id, term, decision, status, started_at, finished_at,
    subjects_visited, subjects_skipped, subjects_failed,
    courses_inserted, ratings_fetched, error`

type RunRow struct {
	ID              string
	Term            string
	Decision        string
	Status          string
	StartedAt       int64
	FinishedAt      int64
	SubjectsVisited int64
	SubjectsSkipped int64
	SubjectsFailed  int64
	CoursesInserted int64
	RatingsFetched  int64
	Error           string
}

func scanRun(row interface{ Scan(...any) error }) (RunRow, error) {
	var i RunRow
	err := row.Scan(
		&i.ID,
		&i.Term,
		&i.Decision,
		&i.Status,
		&i.StartedAt,
		&i.FinishedAt,
		&i.SubjectsVisited,
		&i.SubjectsSkipped,
		&i.SubjectsFailed,
		&i.CoursesInserted,
		&i.RatingsFetched,
		&i.Error,
	)
	return i, err
}

const upsertRun = `insert into runs(` + runColumns + `) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (id) do update set
    term = excluded.term,
    decision = excluded.decision,
    status = excluded.status,
    finished_at = excluded.finished_at,
    subjects_visited = excluded.subjects_visited,
    subjects_skipped = excluded.subjects_skipped,
    subjects_failed = excluded.subjects_failed,
    courses_inserted = excluded.courses_inserted,
    ratings_fetched = excluded.ratings_fetched,
    error = excluded.error`

func (q *Queries) UpsertRun(ctx context.Context, arg RunRow) error {
	_, err := q.db.ExecContext(
		ctx, upsertRun,
		arg.ID,
		arg.Term,
		arg.Decision,
		arg.Status,
		arg.StartedAt,
		arg.FinishedAt,
		arg.SubjectsVisited,
		arg.SubjectsSkipped,
		arg.SubjectsFailed,
		arg.CoursesInserted,
		arg.RatingsFetched,
		arg.Error,
	)
	return err
}

const getRun = `select ` + runColumns + ` from runs where id = ?`

func (q *Queries) GetRun(ctx context.Context, id string) (RunRow, error) {
	return scanRun(q.db.QueryRowContext(ctx, getRun, id))
}

const listRuns = `select ` + runColumns + ` from runs order by started_at desc, id limit ?`

func (q *Queries) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RunRow
	for rows.Next() {
		i, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
