package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

const aliasFields = "name,price,ratingsAverage,summary,difficulty"

// TourHandler represent the http handler for tour
type TourHandler struct {
	tourUsecase domain.TourUsecase
	validator   *web.AppValidator
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewTourHandler will initialize the tours/ resources endpoint
func NewTourHandler(tu domain.TourUsecase, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *TourHandler {
	return &TourHandler{
		tourUsecase: tu,
		validator:   v,
		logger:      logger,
		tracer:      tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (th *TourHandler) RegisterRoutes(g *echo.Group, m *_MyMiddleware.GoMiddleware) {
	tours := g.Group("/tours")

	tours.GET("/top-5-cheap", th.Fetch, alias("-ratingsAverage,price"))
	tours.GET("/cheap-tours", th.Fetch, alias("price,-ratingsAverage"))
	tours.GET("/tour-stats", th.Stats)
	tours.GET("/monthly-plan/:year", th.MonthlyPlan, m.Protect, m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide, auth.RoleGuide))
	tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", th.Within)
	tours.GET("/distances/:latlng/unit/:unit", th.Distances)

	tours.GET("", th.Fetch)
	tours.POST("", th.Create, m.Protect, m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide))
	tours.GET("/:id", th.GetByID)
	tours.PATCH("/:id", th.Update, m.Protect, m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide))
	tours.DELETE("/:id", th.Delete, m.Protect, m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide))
}

// alias presets limit, sort and fields of a listing
func alias(sort string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			values := c.QueryParams()
			values.Set("limit", "5")
			values.Set("sort", sort)
			values.Set("fields", aliasFields)
			c.Request().URL.RawQuery = values.Encode()
			return next(c)
		}
	}
}

// Fetch will fetch tours shaped by query string
func (th *TourHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	q, err := query.Apply(query.Request{}, c.QueryParams(), domain.TourQuerySchema)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	tours, err := th.tourUsecase.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	data, err := q.Project(tours)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("tours", data, len(tours)))
}

// GetByID will get tour with guides and reviews by given id
func (th *TourHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http GetByID",
		trace.WithAttributes(
			attribute.String("tourid", id)),
	)
	defer span.End()

	t, err := th.tourUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("tour", t))
}

// Create will store the Tour by given request body
func (th *TourHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Create",
	)
	defer span.End()

	var ct domain.CreateTour
	if err := c.Bind(&ct); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), th.logger)
	}

	if err := c.Validate(ct); err != nil {
		span.RecordError(err)
		return web.RespondError(c, th.validator.Translate(err), th.logger)
	}

	t, err := th.tourUsecase.Create(ctx, ct)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}
	span.SetAttributes(
		attribute.String("tourid", t.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.NewResponse("tour", t))
}

// Update will partially update the Tour by given request body
func (th *TourHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Update",
		trace.WithAttributes(
			attribute.String("tourid", id)),
	)
	defer span.End()

	var ut domain.UpdateTour
	if err := c.Bind(&ut); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), th.logger)
	}

	if err := c.Validate(ut); err != nil {
		span.RecordError(err)
		return web.RespondError(c, th.validator.Translate(err), th.logger)
	}

	t, err := th.tourUsecase.Update(ctx, id, ut)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("tour", t))
}

// Delete will delete tour by given id
func (th *TourHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Delete",
		trace.WithAttributes(
			attribute.String("tourid", id)),
	)
	defer span.End()

	if err := th.tourUsecase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.NoContent(http.StatusNoContent)
}

// Stats will get stats of well rated tours grouped by difficulty
func (th *TourHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Stats",
	)
	defer span.End()

	stats, err := th.tourUsecase.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("stats", stats))
}

// MonthlyPlan will get tour starts per month of given year
func (th *TourHandler) MonthlyPlan(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http MonthlyPlan",
	)
	defer span.End()

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid year: "+c.Param("year"), domain.ErrBadParamInput), th.logger)
	}

	plan, err := th.tourUsecase.MonthlyPlan(ctx, year)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("plan", plan, len(plan)))
}

// Within will get tours starting within distance from the center
func (th *TourHandler) Within(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Within",
	)
	defer span.End()

	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	distance, perr := strconv.ParseFloat(c.Param("distance"), 64)
	if perr != nil {
		span.RecordError(perr)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Distance must be a positive number.", domain.ErrBadParamInput), th.logger)
	}

	tours, err := th.tourUsecase.Within(ctx, distance, lat, lng, c.Param("unit"))
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("tours", tours, len(tours)))
}

// Distances will get distances from the point to every tour start
func (th *TourHandler) Distances(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Distances",
	)
	defer span.End()

	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	distances, err := th.tourUsecase.Distances(ctx, lat, lng, c.Param("unit"))
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, th.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("distances", distances, len(distances)))
}

func parseLatLng(raw string) (float64, float64, error) {
	bad := domain.NewAppError(http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.", domain.ErrBadParamInput)

	raw, err := url.PathUnescape(raw)
	if err != nil {
		return 0, 0, bad
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, bad
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, bad
	}

	return lat, lng, nil
}
