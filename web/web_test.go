package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/tests"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

func TestAppValidator(t *testing.T) {
	v, err := web.NewAppValidator()
	require.NoError(t, err)

	t.Run("valid tour", func(t *testing.T) {
		err := v.Validate(tests.NewCreateTour())
		assert.NoError(t, err)
	})

	t.Run("name with digits", func(t *testing.T) {
		tour := tests.NewCreateTour()
		tour.Name = "The Forest Hiker 2"

		err := v.Translate(v.Validate(tour))

		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, "name must only contain letters", appErr.Fields["name"])
		assert.Equal(t, "Invalid input data. name must only contain letters", appErr.Message)
	})

	t.Run("discount above price", func(t *testing.T) {
		tour := tests.NewCreateTour()
		tour.PriceDiscount = tour.Price + 1

		err := v.Translate(v.Validate(tour))

		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "priceDiscount")
	})

	t.Run("password confirm mismatch", func(t *testing.T) {
		u := tests.NewSignupUser()
		u.PasswordConfirm = "different1"

		err := v.Translate(v.Validate(u))

		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "passwordConfirm must match Password", appErr.Fields["passwordConfirm"])
	})

	t.Run("other errors untouched", func(t *testing.T) {
		err := v.Translate(domain.ErrNotFound)
		assert.Equal(t, domain.ErrNotFound, err)
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		description string
		err         error
		code        int
		message     string
	}{
		{"app error", domain.InvalidID("abc"), http.StatusBadRequest, "Invalid _id: abc"},
		{"expired token", fmt.Errorf("%w: exp", auth.ErrTokenExpired), http.StatusUnauthorized, web.MsgExpiredToken},
		{"invalid token", auth.ErrTokenInvalid, http.StatusUnauthorized, web.MsgInvalidToken},
		{"bad query", fmt.Errorf("%w: unsupported operator", query.ErrInvalidQuery), http.StatusBadRequest, "invalid query: unsupported operator"},
		{"not found", fmt.Errorf("tour was not found: %w", domain.ErrNotFound), http.StatusNotFound, web.MsgNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, domain.ErrForbidden.Error()},
		{"rate limited", echo.ErrTooManyRequests, http.StatusTooManyRequests, web.MsgTooMany},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, web.MsgSomethingWrong},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			appErr := web.Classify(tc.err, zap.NewNop())
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestRespondError(t *testing.T) {
	e := echo.New()

	cases := []struct {
		description string
		debug       bool
		err         error
		status      string
		code        int
		rawErr      string
	}{
		{"client error", false, domain.DuplicateField("The Forest Hiker"), domain.StatusFail, http.StatusBadRequest, ""},
		{"server error hidden", false, errors.New("db is down"), domain.StatusError, http.StatusInternalServerError, ""},
		{"server error in debug", true, errors.New("db is down"), domain.StatusError, http.StatusInternalServerError, "db is down"},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			e.Debug = tc.debug
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(echo.GET, "/api/v1/tours", nil), rec)

			err := web.RespondError(c, tc.err, zap.NewNop())
			require.NoError(t, err)

			body := new(domain.ResponseError)
			err = json.NewDecoder(rec.Body).Decode(body)
			require.NoError(t, err)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.rawErr, body.Error)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	r, err := web.NewRenderer()
	require.NoError(t, err)
	e.Renderer = r
	e.HTTPErrorHandler = web.ErrorHandler(zap.NewNop())

	t.Run("unknown api route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(echo.GET, "/api/v1/unknown", nil))

		body := new(domain.ResponseError)
		err := json.NewDecoder(rec.Body).Decode(body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Can't find /api/v1/unknown on this server", body.Message)
	})

	t.Run("unknown page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(echo.GET, "/nowhere", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Can&#39;t find /nowhere on this server")
	})
}

func TestRenderer(t *testing.T) {
	r, err := web.NewRenderer()
	require.NoError(t, err)

	tour := tests.NewTourDetail()
	buf := new(bytes.Buffer)
	err = r.Render(buf, "tour", map[string]interface{}{
		"Title": tour.Name,
		"Tour":  tour,
		"User":  tests.NewUser(),
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Natours | "+tour.Name)
	assert.Contains(t, buf.String(), tour.Guides[0].Name)
	assert.Contains(t, buf.String(), "book-tour")

	buf.Reset()
	err = r.Render(buf, "overview", map[string]interface{}{
		"Title": "All Tours",
		"Tours": []*domain.Tour{tour.Tour},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/tour/"+tour.Slug)
	assert.Contains(t, buf.String(), "Log in")

	err = r.Render(buf, "missing", nil, nil)
	assert.Error(t, err)
}
