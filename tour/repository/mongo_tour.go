package repository

import (
	"context"
	"fmt"
	"time"

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

var notSecret = bson.D{primitive.E{Key: "secretTour", Value: bson.D{primitive.E{Key: "$ne", Value: true}}}}

var monthNames = bson.A{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type mongoTourRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoTourRepository will create an object that represent the domain.TourRepository interface
func NewMongoTourRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.TourRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &mongoTourRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

func (m *mongoTourRepository) fetch(ctx context.Context, command interface{}) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(ctx, "repository fetch")
	defer span.End()

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't execute command: %w", err)
	}

	result, err := store.DecodeAll[domain.Tour](ctx, cur, m.logger)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour fetch error: %w", err)
	}

	for _, t := range result {
		t.Derive()
	}

	return result, nil
}

func (m *mongoTourRepository) getOne(ctx context.Context, filter bson.D) (*domain.Tour, error) {
	command := store.FindCommand(store.Tours, store.MergeFilter(notSecret, filter), &query.Request{Limit: 1})

	list, err := m.fetch(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("tour get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("tour was not found: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (m *mongoTourRepository) Fetch(ctx context.Context, q *query.Request) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(ctx, "repository Fetch")
	defer span.End()

	var filter bson.D
	if q != nil {
		filter = q.Filter
	}

	list, err := m.fetch(ctx, store.FindCommand(store.Tours, store.MergeFilter(notSecret, filter), q))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoTourRepository) FetchByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(ctx, "repository FetchByIDs")
	defer span.End()

	if len(ids) == 0 {
		return make([]*domain.Tour, 0), nil
	}

	filter := bson.D{primitive.E{Key: "_id", Value: bson.D{primitive.E{Key: "$in", Value: ids}}}}
	list, err := m.fetch(ctx, store.FindCommand(store.Tours, store.MergeFilter(notSecret, filter), nil))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoTourRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("tourid", id.Hex())),
	)
	defer span.End()

	t, err := m.getOne(ctx, bson.D{primitive.E{Key: "_id", Value: id}})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return t, nil
}

func (m *mongoTourRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetBySlug",
		trace.WithAttributes(
			attribute.String("slug", slug)),
	)
	defer span.End()

	t, err := m.getOne(ctx, bson.D{primitive.E{Key: "slug", Value: slug}})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return t, nil
}

func (m *mongoTourRepository) Create(ctx context.Context, tour *domain.Tour) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("tourid", tour.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.Tours).InsertOne(ctx, tour)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "tour store error")
	}

	return nil
}

// derived fields are written by UpdateRatings and Create only
var tourReadOnly = map[string]bool{
	"ratingsAverage":  true,
	"ratingsQuantity": true,
	"createdAt":       true,
}

// Update writes the listed fields of tour
func (m *mongoTourRepository) Update(ctx context.Context, tour *domain.Tour, fields []string) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("tourid", tour.ID.Hex()),
			attribute.StringSlice("fields", fields)),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: tour.ID},
	}

	writable := make([]string, 0, len(fields))
	for _, f := range fields {
		if !tourReadOnly[f] {
			writable = append(writable, f)
		}
	}

	update, err := store.UpdateFields(tour, writable)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert Tour to bson.D: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	updRes, err := m.Conn.Collection(store.Tours).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "tour update error")
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("tour was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoTourRepository) UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository UpdateRatings",
		trace.WithAttributes(
			attribute.String("tourid", id.Hex()),
			attribute.Int("quantity", quantity),
			attribute.Float64("average", average)),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}
	update := bson.D{primitive.E{Key: "$set", Value: bson.D{
		primitive.E{Key: "ratingsQuantity", Value: quantity},
		primitive.E{Key: "ratingsAverage", Value: average},
	}}}

	updRes, err := m.Conn.Collection(store.Tours).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour ratings update error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("tour ratings were not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoTourRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("tourid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.Tours).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("tour was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func aggregate[T any](ctx context.Context, m *mongoTourRepository, pipeline mongo.Pipeline) ([]*T, error) {
	cur, err := m.Conn.Collection(store.Tours).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("can't execute aggregation: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	result, err := store.DecodeAll[T](ctx, cur, m.logger)
	if err != nil {
		return nil, fmt.Errorf("aggregation error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return result, nil
}

func (m *mongoTourRepository) Stats(ctx context.Context, minRating float64) ([]*domain.TourStats, error) {
	ctx, span := m.tracer.Start(ctx, "repository Stats")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: store.MergeFilter(notSecret, bson.D{
			{Key: "ratingsAverage", Value: bson.D{{Key: "$gte", Value: minRating}}},
		})}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toUpper", Value: "$difficulty"}}},
			{Key: "numTours", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "numRatings", Value: bson.D{{Key: "$sum", Value: "$ratingsQuantity"}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$ratingsAverage"}}},
			{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "minPrice", Value: bson.D{{Key: "$min", Value: "$price"}}},
			{Key: "maxPrice", Value: bson.D{{Key: "$max", Value: "$price"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	}

	stats, err := aggregate[domain.TourStats](ctx, m, pipeline)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return stats, nil
}

func (m *mongoTourRepository) MonthlyPlan(ctx context.Context, year int) ([]*domain.MonthlyPlan, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository MonthlyPlan",
		trace.WithAttributes(
			attribute.Int("year", year)),
	)
	defer span.End()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: notSecret}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.D{
			{Key: "startDates", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lt", Value: to}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$month", Value: "$startDates"}}},
			{Key: "numTourStarts", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "tours", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "monthName", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{monthNames, "$_id"}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	}

	plan, err := aggregate[domain.MonthlyPlan](ctx, m, pipeline)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return plan, nil
}

func (m *mongoTourRepository) Within(ctx context.Context, lng, lat, radius float64) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(ctx, "repository Within")
	defer span.End()

	filter := bson.D{
		{Key: "startLocation", Value: bson.D{
			{Key: "$geoWithin", Value: bson.D{
				{Key: "$centerSphere", Value: bson.A{bson.A{lng, lat}, radius}},
			}},
		}},
	}

	list, err := m.fetch(ctx, store.FindCommand(store.Tours, store.MergeFilter(notSecret, filter), nil))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoTourRepository) Distances(ctx context.Context, lng, lat, multiplier float64) ([]*domain.TourDistance, error) {
	ctx, span := m.tracer.Start(ctx, "repository Distances")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: bson.A{lng, lat}},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "distanceMultiplier", Value: multiplier},
			{Key: "query", Value: notSecret},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "distance", Value: 1},
			{Key: "name", Value: 1},
		}}},
	}

	distances, err := aggregate[domain.TourDistance](ctx, m, pipeline)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return distances, nil
}
