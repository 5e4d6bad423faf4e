package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/upload"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

// LoggedOut replaces token in the cookie on logout
const LoggedOut = "loggedout"

// SessionConfig configures issued tokens and the cookie carrying them
type SessionConfig struct {
	TokenTTL     time.Duration
	CookieTTL    time.Duration
	SecureCookie bool
	// BaseURL is used in emailed links, request host is used when empty
	BaseURL string
}

// UserHandler represent the http handler for user
type UserHandler struct {
	userUsecase   domain.UserUsecase
	authenticator *auth.Authenticator
	photos        *upload.PhotoStore
	validator     *web.AppValidator
	session       SessionConfig
	logger        *zap.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewUserHandler will initialize the users/ resources endpoint
func NewUserHandler(us domain.UserUsecase, authenticator *auth.Authenticator, photos *upload.PhotoStore, v *web.AppValidator, session SessionConfig, logger *zap.Logger, tracer trace.Tracer) *UserHandler {
	return &UserHandler{
		userUsecase:   us,
		authenticator: authenticator,
		photos:        photos,
		validator:     v,
		session:       session,
		logger:        logger,
		tracer:        tracer,
		now:           time.Now,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (uh *UserHandler) RegisterRoutes(g *echo.Group, m *_MyMiddleware.GoMiddleware) {
	users := g.Group("/users")

	users.POST("/signup", uh.Signup)
	users.POST("/login", uh.Login)
	users.GET("/logout", uh.Logout)
	users.POST("/forgot-password", uh.ForgotPassword)
	users.PATCH("/reset-password/:token", uh.ResetPassword)

	users.PATCH("/update-password", uh.UpdatePassword, m.Protect)
	users.GET("/me", uh.GetMe, m.Protect)
	users.PATCH("/update-me", uh.UpdateMe, m.Protect)
	users.DELETE("/delete-me", uh.DeleteMe, m.Protect)

	admin := []echo.MiddlewareFunc{m.Protect, m.RestrictTo(auth.RoleAdmin)}
	users.GET("", uh.Fetch, admin...)
	users.POST("", uh.Create, admin...)
	users.GET("/:id", uh.GetByID, admin...)
	users.PATCH("/:id", uh.Update, admin...)
	users.DELETE("/:id", uh.Delete, admin...)
}

func (uh *UserHandler) baseURL(c echo.Context) string {
	if uh.session.BaseURL != "" {
		return uh.session.BaseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

// sendToken issues token for the user, sets it as http-only cookie and
// writes it with the user to the response
func (uh *UserHandler) sendToken(c echo.Context, code int, u *domain.User) error {
	now := uh.now()
	tkn, err := uh.authenticator.GenerateToken(auth.NewClaims(u.ID.Hex(), u.Role, now, uh.session.TokenTTL))
	if err != nil {
		return web.RespondError(c, err, uh.logger)
	}

	c.SetCookie(&http.Cookie{
		Name:     _MyMiddleware.CookieName,
		Value:    tkn,
		Path:     "/",
		Expires:  now.Add(uh.session.CookieTTL),
		HttpOnly: true,
		Secure:   uh.session.SecureCookie || c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})

	resp := domain.NewResponse("user", u)
	resp.Token = tkn

	return c.JSON(code, resp)
}

// Signup will register new User and log them in
func (uh *UserHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Signup",
	)
	defer span.End()

	var su domain.SignupUser
	if err := c.Bind(&su); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(su); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	u, err := uh.userUsecase.Signup(ctx, su, uh.baseURL(c)+"/me")
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}
	span.SetAttributes(
		attribute.String("userid", u.ID.Hex()),
	)

	return uh.sendToken(c, http.StatusCreated, u)
}

// Login will log User in by email and password
func (uh *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Login",
	)
	defer span.End()

	var lu domain.LoginUser
	if err := c.Bind(&lu); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	u, err := uh.userUsecase.Login(ctx, lu.Email, lu.Password)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}
	span.SetAttributes(
		attribute.String("userid", u.ID.Hex()),
	)

	return uh.sendToken(c, http.StatusOK, u)
}

// Logout will overwrite the token cookie with short lived dummy value
func (uh *UserHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     _MyMiddleware.CookieName,
		Value:    LoggedOut,
		Path:     "/",
		Expires:  uh.now().Add(10 * time.Second),
		HttpOnly: true,
	})

	return c.JSON(http.StatusOK, domain.Response{Status: domain.StatusSuccess})
}

// ForgotPassword will email reset token to the User
func (uh *UserHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http ForgotPassword",
	)
	defer span.End()

	var fp domain.ForgotPassword
	if err := c.Bind(&fp); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(fp); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	if err := uh.userUsecase.ForgotPassword(ctx, fp.Email, uh.baseURL(c)+"/api/v1/users/reset-password/"); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.JSON(http.StatusOK, domain.Response{
		Status:  domain.StatusSuccess,
		Message: "Token sent to email!",
	})
}

// ResetPassword will set new password by reset token and log User in
func (uh *UserHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http ResetPassword",
	)
	defer span.End()

	var rp domain.ResetPassword
	if err := c.Bind(&rp); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(rp); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	u, err := uh.userUsecase.ResetPassword(ctx, c.Param("token"), rp)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return uh.sendToken(c, http.StatusOK, u)
}

// UpdatePassword will change password of the current User and log them in again
func (uh *UserHandler) UpdatePassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http UpdatePassword",
	)
	defer span.End()

	current, _ := _MyMiddleware.CurrentUser(c)

	var up domain.UpdatePassword
	if err := c.Bind(&up); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(up); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	u, err := uh.userUsecase.UpdatePassword(ctx, current.ID, up)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return uh.sendToken(c, http.StatusOK, u)
}

// GetMe will get the current User
func (uh *UserHandler) GetMe(c echo.Context) error {
	current, _ := _MyMiddleware.CurrentUser(c)
	c.SetParamNames("id")
	c.SetParamValues(current.ID.Hex())

	return uh.GetByID(c)
}

// UpdateMe will update name, email and photo of the current User. Photo is
// accepted as multipart file.
func (uh *UserHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http UpdateMe",
	)
	defer span.End()

	current, _ := _MyMiddleware.CurrentUser(c)
	span.SetAttributes(attribute.String("userid", current.ID.Hex()))

	var um domain.UpdateMe
	if err := c.Bind(&um); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(um); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	if um.Password == nil && um.PasswordConfirm == nil {
		photo, err := uh.photos.SaveFormPhoto(c, "photo", current.ID.Hex())
		if err != nil {
			span.RecordError(err)
			return web.RespondError(c, err, uh.logger)
		}
		if photo != "" {
			um.Photo = &photo
		}
	}

	u, err := uh.userUsecase.UpdateMe(ctx, current.ID, um)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("user", u))
}

// DeleteMe will deactivate the current User
func (uh *UserHandler) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http DeleteMe",
	)
	defer span.End()

	current, _ := _MyMiddleware.CurrentUser(c)

	if err := uh.userUsecase.DeleteMe(ctx, current.ID); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.NoContent(http.StatusNoContent)
}

// Fetch will fetch users shaped by query string
func (uh *UserHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	q, err := query.Apply(query.Request{}, c.QueryParams(), domain.UserQuerySchema)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	users, err := uh.userUsecase.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	data, err := q.Project(users)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewListResponse("users", data, len(users)))
}

// Create is not supported, users register through signup
func (uh *UserHandler) Create(c echo.Context) error {
	return web.RespondError(c, domain.NewAppError(
		http.StatusInternalServerError,
		"This route is not defined! Please use /signup instead",
		domain.ErrBadParamInput,
	), uh.logger)
}

// GetByID will get user by given id
func (uh *UserHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http GetByID",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	u, err := uh.userUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("user", u))
}

// Update will update the User by given request body, password can't be
// changed here
func (uh *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Update",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	var uu domain.UpdateUser
	if err := c.Bind(&uu); err != nil {
		span.RecordError(err)
		return web.RespondError(c, domain.NewAppError(http.StatusBadRequest, "Invalid request body", err), uh.logger)
	}

	if err := c.Validate(uu); err != nil {
		span.RecordError(err)
		return web.RespondError(c, uh.validator.Translate(err), uh.logger)
	}

	u, err := uh.userUsecase.Update(ctx, id, uu)
	if err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.JSON(http.StatusOK, domain.NewResponse("user", u))
}

// Delete will delete User by given id
func (uh *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Delete",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	if err := uh.userUsecase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return web.RespondError(c, err, uh.logger)
	}

	return c.NoContent(http.StatusNoContent)
}
