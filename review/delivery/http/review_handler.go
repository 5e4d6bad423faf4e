package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

// ReviewHandler represent the http handler for review
type ReviewHandler struct {
	reviewUsecase domain.ReviewUsecase
	validator     *web.AppValidator
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewReviewHandler will initialize the reviews/ resources endpoint
func NewReviewHandler(ru domain.ReviewUsecase, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *ReviewHandler {
	return &ReviewHandler{
		reviewUsecase: ru,
		validator:     v,
		logger:        logger,
		tracer:        tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler. Reviews
// of a single tour are also served under /tours/:tourId/reviews.
func (rh *ReviewHandler) RegisterRoutes(g *echo.Group, m *_MyMiddleware.GoMiddleware) {
	for _, path := range []string{"/reviews", "/tours/:tourId/reviews"} {
		reviews := g.Group(path, m.Protect)
		reviews.GET("", rh.Fetch)
		reviews.POST("", rh.Create, m.RestrictTo(auth.RoleUser))
	}

	reviews := g.Group("/reviews", m.Protect)
	reviews.GET("/:id", rh.GetByID)
	reviews.PATCH("/:id", rh.Update, m.RestrictTo(auth.RoleUser, auth.RoleAdmin))
	reviews.DELETE("/:id", rh.Delete, m.RestrictTo(auth.RoleUser, auth.RoleAdmin))
}

// Fetch will fetch reviews shaped by query string, limited to one tour on
// the nested route
func (rh *ReviewHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	base := query.Request{}
	if tourID := c.Param("tourId"); tourID != "" {
		id, err := primitive.ObjectIDFromHex(tourID)
		if err != nil {
			span.RecordError(err)
			return web.RespondError(c, domain.InvalidID(tourID), rh.logger)
		}
		base.Filter = bson.D{primitive.E{Key: "tour", Value: id}}
		span.SetAttributes(attribute.String("tourid", tourID))
	}

	q, err := query.Apply(base, c.QueryParams(), domain.ReviewQuerySchema)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	reviews, err := rh.reviewUsecase.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	data, err := q.Project(reviews)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("reviews", data, len(reviews)))
}

// GetByID will get review by given id
func (rh *ReviewHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http GetByID",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	r, err := rh.reviewUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("review", r))
}

// Create will store new review written by the current user
func (rh *ReviewHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Create",
	)
	defer span.End()

	author, _ := _MyMiddleware.CurrentUser(c)

	var cr domain.CreateReview
	if err := c.Bind(&cr); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), rh.logger)
	}

	if tourID := c.Param("tourId"); tourID != "" {
		cr.Tour = tourID
	}

	if err := c.Validate(cr); err != nil {
		span.RecordError(err)
		return web.RespondError(c, rh.validator.Translate(err), rh.logger)
	}

	r, err := rh.reviewUsecase.Create(ctx, cr, author)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}
	span.SetAttributes(
		attribute.String("reviewid", r.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.NewResponse("review", r))
}

// Update will update review by given request body
func (rh *ReviewHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Update",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	user, _ := _MyMiddleware.CurrentUser(c)

	var ur domain.UpdateReview
	if err := c.Bind(&ur); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), rh.logger)
	}

	if err := c.Validate(ur); err != nil {
		span.RecordError(err)
		return web.RespondError(c, rh.validator.Translate(err), rh.logger)
	}

	r, err := rh.reviewUsecase.Update(ctx, id, ur, user)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("review", r))
}

// Delete will delete review by given id
func (rh *ReviewHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Delete",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	user, _ := _MyMiddleware.CurrentUser(c)

	if err := rh.reviewUsecase.Delete(ctx, id, user); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, rh.logger)
	}

	return c.NoContent(http.StatusNoContent)
}
