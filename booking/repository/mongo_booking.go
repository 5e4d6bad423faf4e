package repository

import (
	"context"
	"fmt"

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

type mongoBookingRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoBookingRepository will create an object that represent the domain.BookingRepository interface
func NewMongoBookingRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.BookingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &mongoBookingRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

func (m *mongoBookingRepository) fetch(ctx context.Context, command interface{}) ([]*domain.Booking, error) {
	ctx, span := m.tracer.Start(ctx, "repository fetch")
	defer span.End()

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't execute command: %w", err)
	}

	result, err := store.DecodeAll[domain.Booking](ctx, cur, m.logger)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking fetch error: %w", err)
	}

	return result, nil
}

func (m *mongoBookingRepository) Fetch(ctx context.Context, q *query.Request) ([]*domain.Booking, error) {
	ctx, span := m.tracer.Start(ctx, "repository Fetch")
	defer span.End()

	var filter bson.D
	if q != nil {
		filter = q.Filter
	}

	list, err := m.fetch(ctx, store.FindCommand(store.Bookings, filter, q))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoBookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Booking, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("bookingid", id.Hex())),
	)
	defer span.End()

	command := store.FindCommand(store.Bookings, bson.D{primitive.E{Key: "_id", Value: id}}, &query.Request{Limit: 1})
	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		err = fmt.Errorf("booking was not found: %w", domain.ErrNotFound)
		span.RecordError(err)
		return nil, err
	}

	return list[0], nil
}

// GetByUser returns bookings of the user, newest first
func (m *mongoBookingRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Booking, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByUser",
		trace.WithAttributes(
			attribute.String("userid", userID.Hex())),
	)
	defer span.End()

	q := &query.Request{Sort: bson.D{primitive.E{Key: "createdAt", Value: -1}}}
	list, err := m.fetch(ctx, store.FindCommand(store.Bookings, bson.D{primitive.E{Key: "user", Value: userID}}, q))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("bookingid", booking.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.Bookings).InsertOne(ctx, booking)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "booking store error")
	}

	return nil
}

func (m *mongoBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("bookingid", booking.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: booking.ID},
	}

	update, err := store.UpdateAll(booking, "createdAt")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert Booking to bson.D: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	updRes, err := m.Conn.Collection(store.Bookings).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "booking update error")
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("booking was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoBookingRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("bookingid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.Bookings).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("booking was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}
