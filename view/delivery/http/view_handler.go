package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/upload"
	"github.com/semka95/natours/backend/web"
)

// alerts shown on a page by the alert query parameter
var alerts = map[string]string{
	"booking": "Your booking was successful! Please check your email for a confirmation. If your booking doesn't show up here immediately, please come back later.",
}

// Page is the data every page template is executed with
type Page struct {
	Title string
	User  *domain.User
	Alert string
	Tours []*domain.Tour
	Tour  *domain.TourDetail
}

// ViewHandler represent the http handler for server rendered pages
type ViewHandler struct {
	tourUsecase    domain.TourUsecase
	userUsecase    domain.UserUsecase
	bookingUsecase domain.BookingUsecase
	photos         *upload.PhotoStore
	validator      *web.AppValidator
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewViewHandler will initialize site pages
func NewViewHandler(tu domain.TourUsecase, uu domain.UserUsecase, bu domain.BookingUsecase, photos *upload.PhotoStore, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *ViewHandler {
	return &ViewHandler{
		tourUsecase:    tu,
		userUsecase:    uu,
		bookingUsecase: bu,
		photos:         photos,
		validator:      v,
		logger:         logger,
		tracer:         tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (vh *ViewHandler) RegisterRoutes(g *echo.Group, m *_MyMiddleware.GoMiddleware) {
	g.GET("/", vh.Overview, m.IsLoggedIn)
	g.GET("/tour/:slug", vh.Tour, m.IsLoggedIn)
	g.GET("/login", vh.Login, m.IsLoggedIn)
	g.GET("/sign-up", vh.Signup, m.IsLoggedIn)

	g.GET("/me", vh.Account, m.Protect)
	g.GET("/my-tours", vh.MyTours, m.Protect)
	g.POST("/submit-user-data", vh.SubmitUserData, m.Protect)
}

func (vh *ViewHandler) page(c echo.Context, title string) Page {
	p := Page{
		Title: title,
		Alert: alerts[c.QueryParam("alert")],
	}
	if u, ok := _MyMiddleware.CurrentUser(c); ok {
		p.User = u
	}
	return p
}

// Overview will render all tours
func (vh *ViewHandler) Overview(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := vh.tracer.Start(
		ctx,
		"http Overview",
	)
	defer span.End()

	tours, err := vh.tourUsecase.Fetch(ctx, &query.Request{})
	if err != nil {
		span.RecordError(err)
		return web.RenderError(c, err, vh.logger)
	}

	p := vh.page(c, "All Tours")
	p.Tours = tours

	return c.Render(http.StatusOK, "overview", p)
}

// Tour will render tour details by slug
func (vh *ViewHandler) Tour(c echo.Context) error {
	slug := c.Param("slug")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := vh.tracer.Start(
		ctx,
		"http Tour",
		trace.WithAttributes(
			attribute.String("slug", slug)),
	)
	defer span.End()

	t, err := vh.tourUsecase.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return web.RenderError(c, domain.NewAppError(http.StatusNotFound, "There is no tour with that name.", err), vh.logger)
	}
	if err != nil {
		span.RecordError(err)
		return web.RenderError(c, err, vh.logger)
	}

	p := vh.page(c, t.Name+" Tour")
	p.Tour = t

	return c.Render(http.StatusOK, "tour", p)
}

// Login will render login form
func (vh *ViewHandler) Login(c echo.Context) error {
	return c.Render(http.StatusOK, "login", vh.page(c, "Log into your account"))
}

// Signup will render signup form
func (vh *ViewHandler) Signup(c echo.Context) error {
	return c.Render(http.StatusOK, "signup", vh.page(c, "Create your account"))
}

// Account will render settings of the current user
func (vh *ViewHandler) Account(c echo.Context) error {
	return c.Render(http.StatusOK, "account", vh.page(c, "Your account"))
}

// MyTours will render tours booked by the current user
func (vh *ViewHandler) MyTours(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := vh.tracer.Start(
		ctx,
		"http MyTours",
	)
	defer span.End()

	user, _ := _MyMiddleware.CurrentUser(c)

	tours, err := vh.bookingUsecase.MyTours(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return web.RenderError(c, err, vh.logger)
	}

	p := vh.page(c, "My Tours")
	p.Tours = tours

	return c.Render(http.StatusOK, "overview", p)
}

// SubmitUserData will update current user from the settings form
func (vh *ViewHandler) SubmitUserData(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := vh.tracer.Start(
		ctx,
		"http SubmitUserData",
	)
	defer span.End()

	user, _ := _MyMiddleware.CurrentUser(c)
	span.SetAttributes(attribute.String("userid", user.ID.Hex()))

	name, email := c.FormValue("name"), c.FormValue("email")
	um := domain.UpdateMe{Name: &name, Email: &email}

	if err := c.Validate(um); err != nil {
		span.RecordError(err)
		return web.RenderError(c, vh.validator.Translate(err), vh.logger)
	}

	photo, err := vh.photos.SaveFormPhoto(c, "photo", user.ID.Hex())
	if err != nil {
		span.RecordError(err)
		return web.RenderError(c, err, vh.logger)
	}
	if photo != "" {
		um.Photo = &photo
	}

	updated, err := vh.userUsecase.UpdateMe(ctx, user.ID, um)
	if err != nil {
		span.RecordError(err)
		return web.RenderError(c, err, vh.logger)
	}

	_MyMiddleware.SetCurrentUser(c, updated)

	return c.Render(http.StatusOK, "account", vh.page(c, "Your account"))
}
