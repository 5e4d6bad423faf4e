package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
)

// StatsMinRating is the lowest average rating included in tour stats
const StatsMinRating = 4.5

// Earth radius and meters conversion per distance unit
var (
	earthRadius = map[string]float64{
		domain.UnitMiles:      3963.2,
		domain.UnitKilometers: 6378.1,
	}
	distanceMultiplier = map[string]float64{
		domain.UnitMiles:      0.000621371,
		domain.UnitKilometers: 0.001,
	}
)

type tourUsecase struct {
	tourRepo       domain.TourRepository
	userRepo       domain.UserRepository
	reviewRepo     domain.ReviewRepository
	contextTimeout time.Duration
	tracer         trace.Tracer
}

// NewTourUsecase will create new a tourUsecase object representation of domain.TourUsecase interface
func NewTourUsecase(t domain.TourRepository, u domain.UserRepository, r domain.ReviewRepository, timeout time.Duration, tracer trace.Tracer) domain.TourUsecase {
	return &tourUsecase{
		tourRepo:       t,
		userRepo:       u,
		reviewRepo:     r,
		contextTimeout: timeout,
		tracer:         tracer,
	}
}

func (uc *tourUsecase) Fetch(c context.Context, q *query.Request) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	tours, err := uc.tourRepo.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return tours, nil
}

func (uc *tourUsecase) GetByID(c context.Context, id string) (*domain.TourDetail, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	t, err := uc.tourRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	detail, err := uc.detail(ctx, t)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return detail, nil
}

func (uc *tourUsecase) GetBySlug(c context.Context, slug string) (*domain.TourDetail, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetBySlug",
		trace.WithAttributes(
			attribute.String("slug", slug)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	t, err := uc.tourRepo.GetBySlug(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	detail, err := uc.detail(ctx, t)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return detail, nil
}

// detail populates tour guides and reviews
func (uc *tourUsecase) detail(ctx context.Context, t *domain.Tour) (*domain.TourDetail, error) {
	guides, err := uc.userRepo.FetchByIDs(ctx, t.Guides)
	if err != nil {
		return nil, fmt.Errorf("can't get tour guides: %w", err)
	}

	reviews, err := uc.reviewRepo.Fetch(ctx, &query.Request{
		Filter: bson.D{primitive.E{Key: "tour", Value: t.ID}},
		Sort:   bson.D{primitive.E{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("can't get tour reviews: %w", err)
	}

	return &domain.TourDetail{
		Tour:    t,
		Guides:  guides,
		Reviews: reviews,
	}, nil
}

func (uc *tourUsecase) Create(c context.Context, m domain.CreateTour) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Create",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	guides, err := parseIDs(m.Guides)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	t := &domain.Tour{
		ID:              primitive.NewObjectID(),
		Duration:        m.Duration,
		MaxGroupSize:    m.MaxGroupSize,
		Difficulty:      m.Difficulty,
		RatingsAverage:  domain.DefaultRatingsAverage,
		RatingsQuantity: domain.DefaultRatingsQuantity,
		Price:           m.Price,
		PriceDiscount:   m.PriceDiscount,
		Summary:         m.Summary,
		Description:     m.Description,
		ImageCover:      m.ImageCover,
		Images:          m.Images,
		CreatedAt:       time.Now().Truncate(time.Millisecond).UTC(),
		StartDates:      m.StartDates,
		SecretTour:      m.SecretTour,
		StartLocation:   m.StartLocation,
		Locations:       m.Locations,
		Guides:          guides,
	}
	t.SetName(m.Name)
	normalize(t)
	span.SetAttributes(attribute.String("tourid", t.ID.Hex()))

	if err = checkDiscount(t); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.tourRepo.Create(ctx, t); err != nil {
		span.RecordError(err)
		return nil, err
	}
	t.Derive()

	return t, nil
}

func (uc *tourUsecase) Update(c context.Context, id string, m domain.UpdateTour) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	t, err := uc.tourRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var fields []string
	if m.Name != nil {
		t.SetName(*m.Name)
		fields = append(fields, "name", "slug")
	}
	if m.Duration != nil {
		t.Duration = *m.Duration
		fields = append(fields, "duration")
	}
	if m.MaxGroupSize != nil {
		t.MaxGroupSize = *m.MaxGroupSize
		fields = append(fields, "maxGroupSize")
	}
	if m.Difficulty != nil {
		t.Difficulty = *m.Difficulty
		fields = append(fields, "difficulty")
	}
	if m.Price != nil {
		t.Price = *m.Price
		fields = append(fields, "price")
	}
	if m.PriceDiscount != nil {
		t.PriceDiscount = *m.PriceDiscount
		fields = append(fields, "priceDiscount")
	}
	if m.Summary != nil {
		t.Summary = *m.Summary
		fields = append(fields, "summary")
	}
	if m.Description != nil {
		t.Description = *m.Description
		fields = append(fields, "description")
	}
	if m.ImageCover != nil {
		t.ImageCover = *m.ImageCover
		fields = append(fields, "imageCover")
	}
	if m.Images != nil {
		t.Images = m.Images
		fields = append(fields, "images")
	}
	if m.StartDates != nil {
		t.StartDates = m.StartDates
		fields = append(fields, "startDates")
	}
	if m.SecretTour != nil {
		t.SecretTour = *m.SecretTour
		fields = append(fields, "secretTour")
	}
	if m.StartLocation != nil {
		t.StartLocation = m.StartLocation
		fields = append(fields, "startLocation")
	}
	if m.Locations != nil {
		t.Locations = m.Locations
		fields = append(fields, "locations")
	}
	if m.Guides != nil {
		if t.Guides, err = parseIDs(m.Guides); err != nil {
			span.RecordError(err)
			return nil, err
		}
		fields = append(fields, "guides")
	}
	normalize(t)

	if err = checkDiscount(t); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.tourRepo.Update(ctx, t, fields); err != nil {
		span.RecordError(err)
		return nil, err
	}
	t.Version++
	t.Derive()

	return t, nil
}

func (uc *tourUsecase) Delete(c context.Context, id string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return domain.InvalidID(id)
	}

	return uc.tourRepo.Delete(ctx, objID)
}

func (uc *tourUsecase) Stats(c context.Context) ([]*domain.TourStats, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Stats",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	stats, err := uc.tourRepo.Stats(ctx, StatsMinRating)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return stats, nil
}

func (uc *tourUsecase) MonthlyPlan(c context.Context, year int) ([]*domain.MonthlyPlan, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase MonthlyPlan",
		trace.WithAttributes(
			attribute.Int("year", year)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if year < 1 || year > 9999 {
		err := domain.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid year: %d", year), domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	plan, err := uc.tourRepo.MonthlyPlan(ctx, year)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return plan, nil
}

func (uc *tourUsecase) Within(c context.Context, distance, lat, lng float64, unit string) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Within",
		trace.WithAttributes(
			attribute.Float64("distance", distance),
			attribute.Float64("lat", lat),
			attribute.Float64("lng", lng),
			attribute.String("unit", unit)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	r, ok := earthRadius[unit]
	if !ok {
		err := badUnit(unit)
		span.RecordError(err)
		return nil, err
	}
	if distance <= 0 {
		err := domain.NewAppError(http.StatusBadRequest, "Distance must be a positive number.", domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	tours, err := uc.tourRepo.Within(ctx, lng, lat, distance/r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return tours, nil
}

func (uc *tourUsecase) Distances(c context.Context, lat, lng float64, unit string) ([]*domain.TourDistance, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Distances",
		trace.WithAttributes(
			attribute.Float64("lat", lat),
			attribute.Float64("lng", lng),
			attribute.String("unit", unit)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	multiplier, ok := distanceMultiplier[unit]
	if !ok {
		err := badUnit(unit)
		span.RecordError(err)
		return nil, err
	}

	distances, err := uc.tourRepo.Distances(ctx, lng, lat, multiplier)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return distances, nil
}

func badUnit(unit string) error {
	return domain.NewAppError(http.StatusBadRequest, fmt.Sprintf("Unit %q is not supported, use mi or km.", unit), domain.ErrBadParamInput)
}

func checkDiscount(t *domain.Tour) error {
	if t.PriceDiscount > 0 && t.PriceDiscount >= t.Price {
		return domain.NewAppError(
			http.StatusBadRequest,
			fmt.Sprintf("Invalid input data. Discount price (%g) should be below regular price", t.PriceDiscount),
			domain.ErrBadParamInput,
		)
	}
	return nil
}

// normalize fills GeoJSON point types omitted by clients
func normalize(t *domain.Tour) {
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	if t.Images == nil {
		t.Images = make([]string, 0)
	}
	if t.Guides == nil {
		t.Guides = make([]primitive.ObjectID, 0)
	}
}

func parseIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, domain.InvalidID(h)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
