package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web/auth"
)

// Review usecase messages
const (
	MsgNoTour       = "Review must belong to a tour."
	MsgNotOwnReview = "You can only change your own reviews"
)

type reviewUsecase struct {
	reviewRepo     domain.ReviewRepository
	tourRepo       domain.TourRepository
	contextTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewReviewUsecase will create new a reviewUsecase object representation of domain.ReviewUsecase interface
func NewReviewUsecase(r domain.ReviewRepository, t domain.TourRepository, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) domain.ReviewUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &reviewUsecase{
		reviewRepo:     r,
		tourRepo:       t,
		contextTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
		now:            time.Now,
	}
}

func (uc *reviewUsecase) Fetch(c context.Context, q *query.Request) ([]*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	reviews, err := uc.reviewRepo.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return reviews, nil
}

func (uc *reviewUsecase) GetByID(c context.Context, id string) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	r, err := uc.reviewRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return r, nil
}

func (uc *reviewUsecase) Create(c context.Context, m domain.CreateReview, author *domain.User) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Create",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if m.Tour == "" {
		err := domain.NewAppError(http.StatusBadRequest, MsgNoTour, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	tourID, err := primitive.ObjectIDFromHex(m.Tour)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(m.Tour)
	}

	if _, err = uc.tourRepo.GetByID(ctx, tourID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := uc.now().Truncate(time.Millisecond).UTC()
	r := &domain.Review{
		ID:        primitive.NewObjectID(),
		Review:    strings.TrimSpace(m.Review),
		Rating:    m.Rating,
		Tour:      tourID,
		User:      author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("reviewid", r.ID.Hex()))

	if err = uc.reviewRepo.Create(ctx, r); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.calcRatings(ctx, tourID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.Author = &domain.ReviewAuthor{
		ID:    author.ID,
		Name:  author.Name,
		Photo: author.Photo,
	}

	return r, nil
}

func (uc *reviewUsecase) Update(c context.Context, id string, m domain.UpdateReview, user *domain.User) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	r, err := uc.owned(ctx, id, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if m.Review != nil {
		r.Review = strings.TrimSpace(*m.Review)
	}
	if m.Rating != nil {
		r.Rating = *m.Rating
	}
	r.UpdatedAt = uc.now().Truncate(time.Millisecond).UTC()

	if err = uc.reviewRepo.Update(ctx, r); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.calcRatings(ctx, r.Tour); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return r, nil
}

func (uc *reviewUsecase) Delete(c context.Context, id string, user *domain.User) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	r, err := uc.owned(ctx, id, user)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err = uc.reviewRepo.Delete(ctx, r.ID); err != nil {
		span.RecordError(err)
		return err
	}

	if err = uc.calcRatings(ctx, r.Tour); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// owned loads review the user is allowed to change, admins may change any
func (uc *reviewUsecase) owned(ctx context.Context, id string, user *domain.User) (*domain.Review, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.InvalidID(id)
	}

	r, err := uc.reviewRepo.GetByID(ctx, objID)
	if err != nil {
		return nil, err
	}

	if user.Role != auth.RoleAdmin && r.User != user.ID {
		return nil, domain.NewAppError(http.StatusForbidden, MsgNotOwnReview, domain.ErrForbidden)
	}

	return r, nil
}

// calcRatings stores review count and rounded average rating on the tour
func (uc *reviewUsecase) calcRatings(ctx context.Context, tourID primitive.ObjectID) error {
	ctx, span := uc.tracer.Start(
		ctx,
		"usecase calcRatings",
		trace.WithAttributes(
			attribute.String("tourid", tourID.Hex())),
	)
	defer span.End()

	quantity, average, err := uc.reviewRepo.Ratings(ctx, tourID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if quantity == 0 {
		average = domain.DefaultRatingsAverage
	}

	err = uc.tourRepo.UpdateRatings(ctx, tourID, quantity, domain.RoundRating(average))
	if errors.Is(err, domain.ErrNoAffected) {
		uc.logger.Warn("ratings of missing tour were not updated", zap.String("tourid", tourID.Hex()))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}
