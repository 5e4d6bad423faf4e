package http

import (
	"context"
	"io"
	"net/http"

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

// SignatureHeader carries payment gateway webhook signature
const SignatureHeader = "Stripe-Signature"

// BookingHandler represent the http handler for booking
type BookingHandler struct {
	bookingUsecase domain.BookingUsecase
	validator      *web.AppValidator
	baseURL        string
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewBookingHandler will initialize the bookings/ resources endpoint. Gateway
// redirect links point to baseURL, request host is used when it is empty.
func NewBookingHandler(bu domain.BookingUsecase, v *web.AppValidator, baseURL string, logger *zap.Logger, tracer trace.Tracer) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bu,
		validator:      v,
		baseURL:        baseURL,
		logger:         logger,
		tracer:         tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (bh *BookingHandler) RegisterRoutes(g *echo.Group, m *_MyMiddleware.GoMiddleware) {
	bookings := g.Group("/bookings", m.Protect)

	bookings.GET("/checkout-session/:tourId", bh.CheckoutSession)

	staff := m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide)
	bookings.GET("", bh.Fetch, staff)
	bookings.POST("", bh.Create, staff)
	bookings.GET("/:id", bh.GetByID, staff)
	bookings.PATCH("/:id", bh.Update, staff)
	bookings.DELETE("/:id", bh.Delete, staff)
}

// RegisterWebhook registers payment gateway callback, it reads raw body so
// it must not be placed behind body parsing middleware
func (bh *BookingHandler) RegisterWebhook(g *echo.Group) {
	g.POST("/webhook-checkout", bh.WebhookCheckout)
}

// CheckoutSession will create payment gateway session for the tour
func (bh *BookingHandler) CheckoutSession(c echo.Context) error {
	tourID := c.Param("tourId")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http CheckoutSession",
		trace.WithAttributes(
			attribute.String("tourid", tourID)),
	)
	defer span.End()

	user, _ := _MyMiddleware.CurrentUser(c)

	baseURL := bh.baseURL
	if baseURL == "" {
		baseURL = c.Scheme() + "://" + c.Request().Host
	}

	s, err := bh.bookingUsecase.CheckoutSession(ctx, tourID, user, baseURL)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  domain.StatusSuccess,
		"session": s,
	})
}

// WebhookCheckout will verify and handle payment gateway event
func (bh *BookingHandler) WebhookCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http WebhookCheckout",
	)
	defer span.End()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Webhook error: "+err.Error(), domain.ErrBadParamInput), bh.logger)
	}

	if err = bh.bookingUsecase.WebhookCheckout(ctx, payload, c.Request().Header.Get(SignatureHeader)); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// Fetch will fetch bookings shaped by query string
func (bh *BookingHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	q, err := query.Apply(query.Request{}, c.QueryParams(), domain.BookingQuerySchema)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	bookings, err := bh.bookingUsecase.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	data, err := q.Project(bookings)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("bookings", data, len(bookings)))
}

// GetByID will get booking by given id
func (bh *BookingHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http GetByID",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
	)
	defer span.End()

	b, err := bh.bookingUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("booking", b))
}

// Create will store new booking by given request body
func (bh *BookingHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http Create",
	)
	defer span.End()

	var cb domain.CreateBooking
	if err := c.Bind(&cb); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), bh.logger)
	}

	if err := c.Validate(cb); err != nil {
		span.RecordError(err)
		return web.RespondError(c, bh.validator.Translate(err), bh.logger)
	}

	b, err := bh.bookingUsecase.Create(ctx, cb)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}
	span.SetAttributes(
		attribute.String("bookingid", b.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.NewResponse("booking", b))
}

// Update will update booking by given request body
func (bh *BookingHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http Update",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
	)
	defer span.End()

	var ub domain.UpdateBooking
	if err := c.Bind(&ub); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), bh.logger)
	}

	if err := c.Validate(ub); err != nil {
		span.RecordError(err)
		return web.RespondError(c, bh.validator.Translate(err), bh.logger)
	}

	b, err := bh.bookingUsecase.Update(ctx, id, ub)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("booking", b))
}

// Delete will delete booking by given id
func (bh *BookingHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := bh.tracer.Start(
		ctx,
		"http Delete",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
	)
	defer span.End()

	if err := bh.bookingUsecase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, bh.logger)
	}

	return c.NoContent(http.StatusNoContent)
}
