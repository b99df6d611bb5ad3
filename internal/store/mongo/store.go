package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"courseplanner-backend/internal/model"
	"courseplanner-backend/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	Uri      string `json:"uri"`
	Database string `json:"database"`
}

// Store implements store.Store on MongoDB, it keeps the terms, courses and
// ratings collections plus a runs collection.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

func Open(ctx context.Context, config Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Uri))
	if err != nil {
		return nil, store.Wrap("connect", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, store.Wrap("connect", err)
	}

	database := config.Database
	if database == "" {
		database = "courseplanner"
	}
	s := &Store{client: client, db: client.Database(database)}

	_, err = s.db.Collection(store.CollectionCourses).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "term", Value: 1}}},
		{Keys: bson.D{{Key: "term", Value: 1}, {Key: "teacherKey", Value: 1}}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, store.Wrap("create indexes", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.Wrap("close", s.client.Disconnect(ctx))
}

func (s *Store) terms() *mongo.Collection   { return s.db.Collection(store.CollectionTerms) }
func (s *Store) courses() *mongo.Collection { return s.db.Collection(store.CollectionCourses) }
func (s *Store) ratings() *mongo.Collection { return s.db.Collection(store.CollectionRatings) }
func (s *Store) runs() *mongo.Collection    { return s.db.Collection(store.CollectionRuns) }

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, store.Wrap("list collections", err)
	}
	return names, nil
}

func (s *Store) ActiveTerm(ctx context.Context) (*model.Term, error) {
	var term model.Term
	err := s.terms().FindOne(ctx, bson.M{"isActive": true}).Decode(&term)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap("active term", err)
	}
	return &term, nil
}

func (s *Store) CreateTerm(ctx context.Context, term model.Term) error {
	_, err := s.terms().ReplaceOne(
		ctx,
		bson.M{"name": term.Name},
		term,
		options.Replace().SetUpsert(true),
	)
	return store.Wrap("create term", err)
}

func (s *Store) DeactivateAllTerms(ctx context.Context) error {
	_, err := s.terms().UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"isActive": false}})
	return store.Wrap("deactivate terms", err)
}

func (s *Store) ListTerms(ctx context.Context) ([]model.Term, error) {
	cursor, err := s.terms().Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetProjection(bson.M{"_id": 0}),
	)
	if err != nil {
		return nil, store.Wrap("list terms", err)
	}
	var out []model.Term
	err = cursor.All(ctx, &out)
	return out, store.Wrap("list terms", err)
}

func (s *Store) InsertCourses(ctx context.Context, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}
	docs := make([]any, len(courses))
	for i, c := range courses {
		docs[i] = c
	}
	_, err := s.courses().InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return store.Wrap("insert courses", err)
}

func (s *Store) DeleteCoursesForTerm(ctx context.Context, term string) (int, error) {
	res, err := s.courses().DeleteMany(ctx, bson.M{"term": term})
	if err != nil {
		return 0, store.Wrap("delete courses", err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) FindCourses(ctx context.Context, filter store.CourseFilter) ([]model.Course, error) {
	query := bson.M{}
	if filter.Term != "" {
		query["term"] = filter.Term
	}
	if filter.TeacherKey != "" {
		query["teacherKey"] = filter.TeacherKey
	}
	if filter.NamePrefix != "" {
		query["name"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.NamePrefix)}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 0})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.courses().Find(ctx, query, opts)
	if err != nil {
		return nil, store.Wrap("find courses", err)
	}
	out := []model.Course{}
	err = cursor.All(ctx, &out)
	return out, store.Wrap("find courses", err)
}

func (s *Store) AttachRating(ctx context.Context, teacherKey, term string, rating model.RatingRecord) (int, error) {
	res, err := s.courses().UpdateMany(
		ctx,
		bson.M{"term": term, "teacherKey": teacherKey},
		bson.M{"$set": bson.M{"rating": rating}},
	)
	if err != nil {
		return 0, store.Wrap("attach rating", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *Store) GetRating(ctx context.Context, instructorKey string) (model.RatingRecord, error) {
	var rating model.RatingRecord
	err := s.ratings().FindOne(ctx, bson.M{"instructorKey": instructorKey}).Decode(&rating)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.RatingRecord{}, store.ErrNotFound
	}
	if err != nil {
		return model.RatingRecord{}, store.Wrap("get rating", err)
	}
	return rating, nil
}

func (s *Store) PutRating(ctx context.Context, rating model.RatingRecord) error {
	_, err := s.ratings().ReplaceOne(
		ctx,
		bson.M{"instructorKey": rating.InstructorKey},
		rating,
		options.Replace().SetUpsert(true),
	)
	return store.Wrap("put rating", err)
}

func (s *Store) ListRatings(ctx context.Context) ([]model.RatingRecord, error) {
	cursor, err := s.ratings().Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "instructorKey", Value: 1}}).SetProjection(bson.M{"_id": 0}),
	)
	if err != nil {
		return nil, store.Wrap("list ratings", err)
	}
	var out []model.RatingRecord
	err = cursor.All(ctx, &out)
	return out, store.Wrap("list ratings", err)
}

// runDocument stores the run id as a string so the documents stay readable
// from the mongo shell.
type runDocument struct {
	ID              string    `bson:"_id"`
	Term            string    `bson:"term"`
	Decision        string    `bson:"decision"`
	Status          string    `bson:"status"`
	StartedAt       time.Time `bson:"startedAt"`
	FinishedAt      time.Time `bson:"finishedAt"`
	SubjectsVisited int       `bson:"subjectsVisited"`
	SubjectsSkipped int       `bson:"subjectsSkipped"`
	SubjectsFailed  int       `bson:"subjectsFailed"`
	CoursesInserted int       `bson:"coursesInserted"`
	RatingsFetched  int       `bson:"ratingsFetched"`
	Error           string    `bson:"error"`
}

func toRunDocument(run model.IngestionRun) runDocument {
	return runDocument{
		ID:              run.ID.String(),
		Term:            run.Term,
		Decision:        string(run.Decision),
		Status:          string(run.Status),
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		SubjectsVisited: run.SubjectsVisited,
		SubjectsSkipped: run.SubjectsSkipped,
		SubjectsFailed:  run.SubjectsFailed,
		CoursesInserted: run.CoursesInserted,
		RatingsFetched:  run.RatingsFetched,
		Error:           run.Error,
	}
}

func (d runDocument) toModel() (model.IngestionRun, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.IngestionRun{}, err
	}
	return model.IngestionRun{
		ID:              id,
		Term:            d.Term,
		Decision:        model.Decision(d.Decision),
		Status:          model.RunStatus(d.Status),
		StartedAt:       d.StartedAt,
		FinishedAt:      d.FinishedAt,
		SubjectsVisited: d.SubjectsVisited,
		SubjectsSkipped: d.SubjectsSkipped,
		SubjectsFailed:  d.SubjectsFailed,
		CoursesInserted: d.CoursesInserted,
		RatingsFetched:  d.RatingsFetched,
		Error:           d.Error,
	}, nil
}

func (s *Store) CreateRun(ctx context.Context, run model.IngestionRun) error {
	_, err := s.runs().InsertOne(ctx, toRunDocument(run))
	return store.Wrap("create run", err)
}

func (s *Store) FinishRun(ctx context.Context, run model.IngestionRun) error {
	doc := toRunDocument(run)
	_, err := s.runs().ReplaceOne(
		ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return store.Wrap("finish run", err)
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (model.IngestionRun, error) {
	var doc runDocument
	err := s.runs().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.IngestionRun{}, store.ErrNotFound
	}
	if err != nil {
		return model.IngestionRun{}, store.Wrap("get run", err)
	}
	run, err := doc.toModel()
	return run, store.Wrap("get run", err)
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	cursor, err := s.runs().Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, store.Wrap("list runs", err)
	}
	var docs []runDocument
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, store.Wrap("list runs", err)
	}
	out := make([]model.IngestionRun, 0, len(docs))
	for _, d := range docs {
		run, err := d.toModel()
		if err != nil {
			return nil, store.Wrap("list runs", err)
		}
		out = append(out, run)
	}
	return out, nil
}
