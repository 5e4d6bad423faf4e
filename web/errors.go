package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web/auth"
)

// Client facing messages
const (
	MsgSomethingWrong = "Something went wrong!"
	MsgInvalidToken   = "Invalid token. Please log in again!"
	MsgExpiredToken   = "Your token expired. Please log in again!"
	MsgNotFound       = "No document found with that ID"
	MsgTooMany        = "Too many requests from this IP, please try again in an hour!"
)

// Classify converts any error to operational error with a client safe message
func Classify(err error, logger *zap.Logger) *domain.AppError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return domain.NewAppError(http.StatusUnauthorized, MsgExpiredToken, err)
	case errors.Is(err, auth.ErrTokenInvalid):
		return domain.NewAppError(http.StatusUnauthorized, MsgInvalidToken, err)
	case errors.Is(err, query.ErrInvalidQuery):
		return domain.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoAffected):
		return domain.NewAppError(http.StatusNotFound, MsgNotFound, err)
	}

	code := domain.GetStatusCode(err, logger)
	if code >= http.StatusInternalServerError {
		return domain.NewAppError(code, MsgSomethingWrong, err)
	}

	return domain.NewAppError(code, err.Error(), err)
}

func fromHTTPError(he *echo.HTTPError) *domain.AppError {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok {
		msg = m
	}
	switch he.Code {
	case http.StatusTooManyRequests:
		msg = MsgTooMany
	case http.StatusInternalServerError:
		msg = MsgSomethingWrong
	}

	return domain.NewAppError(he.Code, msg, he)
}

// RespondError writes error envelope, raw error is exposed in debug mode only
func RespondError(c echo.Context, err error, logger *zap.Logger) error {
	appErr := Classify(err, logger)

	body := domain.ResponseError{
		Status:  appErr.Status(),
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}
	if c.Echo().Debug && appErr.Err != nil {
		body.Error = appErr.Err.Error()
	}

	return c.JSON(appErr.Code, body)
}

// ErrorHandler is echo HTTPErrorHandler, it renders error page for site
// routes and JSON envelope for API routes
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusNotFound {
			err = domain.NewAppError(
				http.StatusNotFound,
				fmt.Sprintf("Can't find %s on this server", c.Request().URL.Path),
				domain.ErrNotFound,
			)
		}

		if !strings.HasPrefix(c.Request().URL.Path, "/api") && c.Echo().Renderer != nil {
			err = RenderError(c, err, logger)
		} else {
			err = RespondError(c, err, logger)
		}

		if err != nil && logger != nil {
			logger.Error("can't write error response", zap.Error(err))
		}
	}
}

// RenderError renders error page
func RenderError(c echo.Context, err error, logger *zap.Logger) error {
	appErr := Classify(err, logger)

	msg := appErr.Message
	if appErr.Code >= http.StatusInternalServerError && !c.Echo().Debug {
		msg = "Please try again later."
	}

	return c.Render(appErr.Code, "error", map[string]interface{}{
		"Title": "Something went wrong!",
		"Msg":   msg,
	})
}
