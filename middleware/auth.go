package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/web/auth"
)

// CookieName is the cookie carrying JWT
const CookieName = "jwt"

const userKey = "user"

// UserResolver loads user the token was issued to
type UserResolver interface {
	CurrentUser(ctx context.Context, claims auth.Claims) (*domain.User, error)
}

// CurrentUser returns user set by Protect or IsLoggedIn
func CurrentUser(c echo.Context) (*domain.User, bool) {
	u, ok := c.Get(userKey).(*domain.User)
	return u, ok && u != nil
}

// SetCurrentUser stores user in echo context
func SetCurrentUser(c echo.Context, u *domain.User) {
	c.Set(userKey, u)
}

func tokenFromRequest(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// Protect allows only requests with valid token of existing user whose
// password didn't change after the token was issued
func (m *GoMiddleware) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tkn := tokenFromRequest(c)
		if tkn == "" {
			return domain.NewAppError(http.StatusUnauthorized, "You are not logged in! Please log in to get access.", domain.ErrAuthenticationFailure)
		}

		claims, err := m.authenticator.ParseClaims(tkn)
		if err != nil {
			return err
		}

		u, err := m.users.CurrentUser(c.Request().Context(), claims)
		if err != nil {
			return err
		}

		SetCurrentUser(c, u)
		return next(c)
	}
}

// IsLoggedIn exposes user of a valid cookie to rendered pages, it never fails
func (m *GoMiddleware) IsLoggedIn(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			return next(c)
		}

		claims, err := m.authenticator.ParseClaims(cookie.Value)
		if err != nil {
			return next(c)
		}

		u, err := m.users.CurrentUser(c.Request().Context(), claims)
		if err != nil {
			return next(c)
		}

		SetCurrentUser(c, u)
		return next(c)
	}
}

// RestrictTo validates that an authenticated user has one of the
// provided roles. It must run after Protect.
func (m *GoMiddleware) RestrictTo(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return domain.NewAppError(http.StatusUnauthorized, "You are not logged in! Please log in to get access.", domain.ErrAuthenticationFailure)
			}

			if auth.HasRole(u.Role, roles...) {
				return next(c)
			}

			return domain.NewAppError(http.StatusForbidden, "You do not have permission to perform this action", domain.ErrForbidden)
		}
	}
}
