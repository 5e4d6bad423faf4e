package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/semka95/natours/backend/web/auth"
)

// GoMiddleware represent the data-struct for middleware
type GoMiddleware struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator
	users         UserResolver
}

// Option configures GoMiddleware
type Option func(*GoMiddleware)

// WithAuth enables Protect, IsLoggedIn and RestrictTo middlewares
func WithAuth(authenticator *auth.Authenticator, users UserResolver) Option {
	return func(m *GoMiddleware) {
		m.authenticator = authenticator
		m.users = users
	}
}

// InitMiddleware initialize the middleware
func InitMiddleware(logger *zap.Logger, opts ...Option) *GoMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &GoMiddleware{
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CORS allows any origin and answers preflight requests itself
func (m *GoMiddleware) CORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")

		if c.Request().Method != http.MethodOptions {
			return next(c)
		}

		h.Set(echo.HeaderAccessControlAllowMethods, corsMethods)
		if reqHeaders := c.Request().Header.Get(echo.HeaderAccessControlRequestHeaders); reqHeaders != "" {
			h.Set(echo.HeaderAccessControlAllowHeaders, reqHeaders)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

const corsMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// Logger is a middleware that logs requests
func (m *GoMiddleware) Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()

		id := req.Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = res.Header().Get(echo.HeaderXRequestID)
		}

		fields := []zapcore.Field{
			zap.Int("status", res.Status),
			zap.String("latency", time.Since(start).String()),
			zap.String("id", id),
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.String("host", req.Host),
			zap.String("remote_ip", c.RealIP()),
		}
		if u, ok := CurrentUser(c); ok {
			fields = append(fields, zap.String("userid", u.ID.Hex()))
		}

		n := res.Status
		switch {
		case n >= 500:
			m.logger.Error("Server error", fields...)
		case n >= 400:
			m.logger.Warn("Client error", fields...)
		case n >= 300:
			m.logger.Info("Redirection", fields...)
		default:
			m.logger.Info("Success", fields...)
		}

		return nil
	}
}
