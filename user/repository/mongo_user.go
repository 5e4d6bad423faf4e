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

// inactive users are soft deleted and invisible to every read
var active = bson.D{primitive.E{Key: "active", Value: bson.D{primitive.E{Key: "$ne", Value: false}}}}

var noPassword = bson.D{primitive.E{Key: "password", Value: 0}}

type mongoUserRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoUserRepository will create an object that represent the domain.UserRepository interface
func NewMongoUserRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.UserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &mongoUserRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

func (m *mongoUserRepository) fetch(ctx context.Context, command interface{}) ([]*domain.User, error) {
	ctx, span := m.tracer.Start(ctx, "repository fetch")
	defer span.End()

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't execute command: %w", err)
	}

	result, err := store.DecodeAll[domain.User](ctx, cur, m.logger)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user fetch error: %w", err)
	}

	return result, nil
}

// getOne finds single active user, password is read only when withPassword is set
func (m *mongoUserRepository) getOne(ctx context.Context, filter bson.D, withPassword bool) (*domain.User, error) {
	q := &query.Request{Limit: 1, Projection: noPassword}
	if withPassword {
		q.Projection = nil
	}

	list, err := m.fetch(ctx, store.FindCommand(store.Users, store.MergeFilter(active, filter), q))
	if err != nil {
		return nil, fmt.Errorf("user get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("user was not found: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (m *mongoUserRepository) Fetch(ctx context.Context, q *query.Request) ([]*domain.User, error) {
	ctx, span := m.tracer.Start(ctx, "repository Fetch")
	defer span.End()

	if q == nil {
		q = &query.Request{}
	}
	shaped := *q
	if len(shaped.Projection) == 0 {
		shaped.Projection = noPassword
	}

	list, err := m.fetch(ctx, store.FindCommand(store.Users, store.MergeFilter(active, shaped.Filter), &shaped))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoUserRepository) FetchByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.User, error) {
	ctx, span := m.tracer.Start(ctx, "repository FetchByIDs")
	defer span.End()

	if len(ids) == 0 {
		return make([]*domain.User, 0), nil
	}

	filter := bson.D{primitive.E{Key: "_id", Value: bson.D{primitive.E{Key: "$in", Value: ids}}}}
	list, err := m.fetch(ctx, store.FindCommand(store.Users, store.MergeFilter(active, filter), &query.Request{Projection: noPassword}))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
	)
	defer span.End()

	u, err := m.getOne(ctx, bson.D{primitive.E{Key: "_id", Value: id}}, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (m *mongoUserRepository) GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByIDWithPassword",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
	)
	defer span.End()

	u, err := m.getOne(ctx, bson.D{primitive.E{Key: "_id", Value: id}}, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (m *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByEmail",
	)
	defer span.End()

	u, err := m.getOne(ctx, bson.D{primitive.E{Key: "email", Value: email}}, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return u, nil
}

func (m *mongoUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByEmailWithPassword",
	)
	defer span.End()

	u, err := m.getOne(ctx, bson.D{primitive.E{Key: "email", Value: email}}, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return u, nil
}

func (m *mongoUserRepository) GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByResetToken",
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "passwordResetToken", Value: hashedToken},
		primitive.E{Key: "passwordResetExpires", Value: bson.D{primitive.E{Key: "$gt", Value: now}}},
	}

	u, err := m.getOne(ctx, filter, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return u, nil
}

func (m *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("userid", user.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.Users).InsertOne(ctx, user)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "user store error")
	}

	return nil
}

// Update sets every stored field of user except creation time, empty reset
// token fields are removed from the document
func (m *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("userid", user.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: user.ID},
	}

	update, err := store.UpdateAll(user, "createdAt")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert User to bson.D: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	var unset []string
	if user.PasswordResetToken == "" {
		unset = append(unset, "passwordResetToken")
	}
	if user.PasswordResetExpires == nil {
		unset = append(unset, "passwordResetExpires")
	}
	update = store.Unset(update, unset...)

	updRes, err := m.Conn.Collection(store.Users).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return store.WriteError(err, "user update error")
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("user was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.Users).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("user delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("user was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}
