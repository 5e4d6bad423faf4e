package repository

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/store"
)

// reviewRecord is a review joined with its author
type reviewRecord struct {
	domain.Review `bson:",inline"`
	Author        *domain.ReviewAuthor `bson:"author,omitempty"`
}

type ratings struct {
	Quantity int     `bson:"nRating"`
	Average  float64 `bson:"avgRating"`
}

type mongoReviewRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoReviewRepository will create an object that represent the domain.ReviewRepository interface
func NewMongoReviewRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.ReviewRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &mongoReviewRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

// pipeline builds shaped read populating author name and photo
func pipeline(q *query.Request) mongo.Pipeline {
	if q == nil {
		q = &query.Request{}
	}

	filter := q.Filter
	if filter == nil {
		filter = bson.D{}
	}

	p := mongo.Pipeline{{{Key: "$match", Value: filter}}}
	if len(q.Sort) > 0 {
		p = append(p, bson.D{{Key: "$sort", Value: q.Sort}})
	}
	if q.Skip > 0 {
		p = append(p, bson.D{{Key: "$skip", Value: q.Skip}})
	}
	if q.Limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: q.Limit}})
	}

	p = append(p,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: store.Users},
			{Key: "let", Value: bson.D{{Key: "uid", Value: "$user"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", "$$uid"}}}}}}},
				bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "photo", Value: 1}}}},
			}},
			{Key: "as", Value: "author"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	)

	if len(q.Projection) > 0 {
		projection := q.Projection
		if inclusive(projection) && !projectsAuthor(projection) {
			projection = append(append(bson.D{}, projection...), primitive.E{Key: "author", Value: 1})
		}
		p = append(p, bson.D{{Key: "$project", Value: projection}})
	}

	return p
}

// projectsAuthor reports whether author or one of its subfields is projected
func projectsAuthor(projection bson.D) bool {
	for _, e := range projection {
		if e.Key == "author" || strings.HasPrefix(e.Key, "author.") {
			return true
		}
	}
	return false
}

func inclusive(projection bson.D) bool {
	for _, e := range projection {
		if e.Key == "_id" {
			continue
		}
		switch v := e.Value.(type) {
		case int:
			return v != 0
		case int32:
			return v != 0
		case int64:
			return v != 0
		case bool:
			return v
		}
	}
	return false
}

func (m *mongoReviewRepository) fetch(ctx context.Context, p mongo.Pipeline) ([]*domain.Review, error) {
	ctx, span := m.tracer.Start(ctx, "repository fetch")
	defer span.End()

	cur, err := m.Conn.Collection(store.Reviews).Aggregate(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't execute aggregation: %w", err)
	}

	records, err := store.DecodeAll[reviewRecord](ctx, cur, m.logger)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review fetch error: %w", err)
	}

	result := make([]*domain.Review, 0, len(records))
	for _, r := range records {
		review := r.Review
		review.Author = r.Author
		result = append(result, &review)
	}

	return result, nil
}

func (m *mongoReviewRepository) Fetch(ctx context.Context, q *query.Request) ([]*domain.Review, error) {
	ctx, span := m.tracer.Start(ctx, "repository Fetch")
	defer span.End()

	list, err := m.fetch(ctx, pipeline(q))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("reviewid", id.Hex())),
	)
	defer span.End()

	q := &query.Request{
		Filter: bson.D{primitive.E{Key: "_id", Value: id}},
		Limit:  1,
	}

	list, err := m.fetch(ctx, pipeline(q))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		err = fmt.Errorf("review was not found: %w", domain.ErrNotFound)
		span.RecordError(err)
		return nil, err
	}

	return list[0], nil
}

func (m *mongoReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("reviewid", review.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.Reviews).InsertOne(ctx, review)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "review store error")
	}

	return nil
}

func (m *mongoReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("reviewid", review.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: review.ID},
	}

	update, err := store.UpdateAll(review, "tour", "user", "createdAt")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert Review to bson.D: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	updRes, err := m.Conn.Collection(store.Reviews).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "review update error")
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("review was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("reviewid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.Reviews).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("review delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("review was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

// Ratings returns zero quantity when the tour has no reviews
func (m *mongoReviewRepository) Ratings(ctx context.Context, tourID primitive.ObjectID) (int, float64, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Ratings",
		trace.WithAttributes(
			attribute.String("tourid", tourID.Hex())),
	)
	defer span.End()

	p := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tour", Value: tourID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tour"},
			{Key: "nRating", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}

	cur, err := m.Conn.Collection(store.Reviews).Aggregate(ctx, p)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("can't execute aggregation: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	stats, err := store.DecodeAll[ratings](ctx, cur, m.logger)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("ratings aggregation error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(stats) == 0 {
		return 0, 0, nil
	}

	return stats[0].Quantity, stats[0].Average, nil
}
