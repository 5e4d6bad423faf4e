package middleware_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/semka95/natours/backend/domain"
	_mid "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/tests"
	"github.com/semka95/natours/backend/user/mock"
	"github.com/semka95/natours/backend/web/auth"
)

func TestCORS(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(echo.GET, "/", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	m := _mid.InitMiddleware(nil)

	h := m.CORS(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err := h(c)
	require.NoError(t, err)
	assert.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tours/1", nil)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "Content-Type")
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	m := _mid.InitMiddleware(nil)

	h := m.CORS(func(c echo.Context) error {
		t.Fatal("preflight must not reach the handler")
		return nil
	})

	require.NoError(t, h(c))
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "*", res.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, res.Header().Get(echo.HeaderAccessControlAllowMethods), "PATCH")
	assert.Equal(t, "Content-Type", res.Header().Get(echo.HeaderAccessControlAllowHeaders))
}

type loggerJSON struct {
	Level   string `json:"L"`
	Message string `json:"M"`
	Status  int    `json:"status"`
	Method  string `json:"method"`
	URI     string `json:"uri"`
	UserID  string `json:"userid"`
}

func TestLogger(t *testing.T) {
	var b []byte
	l := bytes.NewBuffer(b)
	writerSyncer := zapcore.AddSync(l)
	encoder := zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, writerSyncer, zapcore.DebugLevel)
	logger := zap.New(core)
	defer func() {
		err := logger.Sync()
		if err != nil {
			t.Log("Can't close logger")
		}
	}()

	m := _mid.InitMiddleware(logger)
	tUser := tests.NewUser()

	cases := []struct {
		Description string
		MidFunc     echo.HandlerFunc
		Want        loggerJSON
	}{
		{
			"test success",
			echo.HandlerFunc(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}),
			loggerJSON{Level: "INFO", Message: "Success", Status: 200, Method: "GET", URI: "/api/v1/tours"},
		},
		{
			"test server error",
			echo.HandlerFunc(func(c echo.Context) error {
				return errors.New("test error")
			}),
			loggerJSON{Level: "ERROR", Message: "Server error", Status: 500, Method: "GET", URI: "/api/v1/tours"},
		},
		{
			"test client error",
			echo.HandlerFunc(func(c echo.Context) error {
				return c.NoContent(http.StatusBadRequest)
			}),
			loggerJSON{Level: "WARN", Message: "Client error", Status: 400, Method: "GET", URI: "/api/v1/tours"},
		},
		{
			"test redirection",
			echo.HandlerFunc(func(c echo.Context) error {
				return c.NoContent(http.StatusMovedPermanently)
			}),
			loggerJSON{Level: "INFO", Message: "Redirection", Status: 301, Method: "GET", URI: "/api/v1/tours"},
		},
		{
			"test logged in user",
			echo.HandlerFunc(func(c echo.Context) error {
				_mid.SetCurrentUser(c, tUser)
				return c.NoContent(http.StatusOK)
			}),
			loggerJSON{Level: "INFO", Message: "Success", Status: 200, Method: "GET", URI: "/api/v1/tours", UserID: tUser.ID.Hex()},
		},
	}

	for _, test := range cases {
		t.Run(test.Description, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(echo.GET, "/api/v1/tours", nil)
			res := httptest.NewRecorder()
			c := e.NewContext(req, res)

			h := m.Logger(test.MidFunc)
			err := h(c)
			require.NoError(t, err)

			answer := new(loggerJSON)
			err = json.Unmarshal(l.Bytes(), answer)
			require.NoError(t, err)

			assert.EqualValues(t, test.Want, *answer)

			l.Reset()
		})
	}
}

func newAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid := "4754d86b-7a6d-4df5-9c65-224741361492"
	kf := auth.NewSimpleKeyLookupFunc(kid, key.Public().(*rsa.PublicKey))
	authenticator, err := auth.NewAuthenticator(key, kid, "RS256", kf)
	require.NoError(t, err)

	return authenticator
}

func TestProtect(t *testing.T) {
	authenticator := newAuthenticator(t)
	tUser := tests.NewUser()

	claims := auth.NewClaims(tUser.ID.Hex(), tUser.Role, time.Now(), time.Hour)
	token, err := authenticator.GenerateToken(claims)
	require.NoError(t, err)

	expClaims := auth.NewClaims(tUser.ID.Hex(), tUser.Role, time.Now().Add(-2*time.Hour), time.Hour)
	expToken, err := authenticator.GenerateToken(expClaims)
	require.NoError(t, err)

	controller := gomock.NewController(t)
	defer controller.Finish()
	uc := mock.NewMockUserUsecase(controller)

	m := _mid.InitMiddleware(zap.NewNop(), _mid.WithAuth(authenticator, uc))

	cases := []struct {
		description string
		mockCalls   func(muc *mock.MockUserUsecase)
		setRequest  func(req *http.Request)
		checkResult func(c echo.Context, err error)
	}{
		{
			description: "no token",
			mockCalls:   func(muc *mock.MockUserUsecase) {},
			setRequest:  func(req *http.Request) {},
			checkResult: func(c echo.Context, err error) {
				var appErr *domain.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, http.StatusUnauthorized, appErr.Code)
				assert.Equal(t, "You are not logged in! Please log in to get access.", appErr.Message)
			},
		},
		{
			description: "expired token",
			mockCalls:   func(muc *mock.MockUserUsecase) {},
			setRequest: func(req *http.Request) {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+expToken)
			},
			checkResult: func(c echo.Context, err error) {
				assert.ErrorIs(t, err, auth.ErrTokenExpired)
			},
		},
		{
			description: "malformed token",
			mockCalls:   func(muc *mock.MockUserUsecase) {},
			setRequest: func(req *http.Request) {
				req.Header.Set(echo.HeaderAuthorization, "Bearer not.a.token")
			},
			checkResult: func(c echo.Context, err error) {
				assert.ErrorIs(t, err, auth.ErrTokenInvalid)
			},
		},
		{
			description: "user no longer exists",
			mockCalls: func(muc *mock.MockUserUsecase) {
				muc.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(nil, domain.NewAppError(http.StatusUnauthorized, "The user belonging to this token does no longer exist.", domain.ErrAuthenticationFailure))
			},
			setRequest: func(req *http.Request) {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			},
			checkResult: func(c echo.Context, err error) {
				assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
				_, ok := _mid.CurrentUser(c)
				assert.False(t, ok)
			},
		},
		{
			description: "bearer token",
			mockCalls: func(muc *mock.MockUserUsecase) {
				muc.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(tUser, nil)
			},
			setRequest: func(req *http.Request) {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			},
			checkResult: func(c echo.Context, err error) {
				require.NoError(t, err)
				u, ok := _mid.CurrentUser(c)
				require.True(t, ok)
				assert.Equal(t, tUser.ID, u.ID)
			},
		},
		{
			description: "cookie token",
			mockCalls: func(muc *mock.MockUserUsecase) {
				muc.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(tUser, nil)
			},
			setRequest: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: _mid.CookieName, Value: token})
			},
			checkResult: func(c echo.Context, err error) {
				require.NoError(t, err)
				_, ok := _mid.CurrentUser(c)
				assert.True(t, ok)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			tc.mockCalls(uc)

			e := echo.New()
			req := httptest.NewRequest(echo.GET, "/api/v1/users/me", nil)
			tc.setRequest(req)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := m.Protect(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			tc.checkResult(c, h(c))
		})
	}
}

func TestIsLoggedIn(t *testing.T) {
	authenticator := newAuthenticator(t)
	tUser := tests.NewUser()

	claims := auth.NewClaims(tUser.ID.Hex(), tUser.Role, time.Now(), time.Hour)
	token, err := authenticator.GenerateToken(claims)
	require.NoError(t, err)

	controller := gomock.NewController(t)
	defer controller.Finish()
	uc := mock.NewMockUserUsecase(controller)

	m := _mid.InitMiddleware(zap.NewNop(), _mid.WithAuth(authenticator, uc))

	cases := []struct {
		description string
		mockCalls   func(muc *mock.MockUserUsecase)
		cookie      string
		loggedIn    bool
	}{
		{
			description: "no cookie",
			mockCalls:   func(muc *mock.MockUserUsecase) {},
		},
		{
			description: "logged out cookie",
			mockCalls:   func(muc *mock.MockUserUsecase) {},
			cookie:      "loggedout",
		},
		{
			description: "user changed password",
			mockCalls: func(muc *mock.MockUserUsecase) {
				muc.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(nil, domain.ErrAuthenticationFailure)
			},
			cookie: token,
		},
		{
			description: "valid cookie",
			mockCalls: func(muc *mock.MockUserUsecase) {
				muc.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(tUser, nil)
			},
			cookie:   token,
			loggedIn: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			tc.mockCalls(uc)

			e := echo.New()
			req := httptest.NewRequest(echo.GET, "/", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: _mid.CookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			h := m.IsLoggedIn(func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			})

			require.NoError(t, h(c))
			assert.True(t, called)
			_, ok := _mid.CurrentUser(c)
			assert.Equal(t, tc.loggedIn, ok)
		})
	}
}

func TestRestrictTo(t *testing.T) {
	m := _mid.InitMiddleware(nil)

	cases := []struct {
		description string
		user        *domain.User
		wantCode    int
	}{
		{
			description: "admin allowed",
			user:        tests.NewAdmin(),
			wantCode:    http.StatusOK,
		},
		{
			description: "lead guide allowed",
			user: func() *domain.User {
				u := tests.NewGuide()
				u.Role = auth.RoleLeadGuide
				return u
			}(),
			wantCode: http.StatusOK,
		},
		{
			description: "user forbidden",
			user:        tests.NewUser(),
			wantCode:    http.StatusForbidden,
		},
		{
			description: "guide forbidden",
			user:        tests.NewGuide(),
			wantCode:    http.StatusForbidden,
		},
		{
			description: "not logged in",
			wantCode:    http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(echo.DELETE, "/api/v1/tours/1", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tc.user != nil {
				_mid.SetCurrentUser(c, tc.user)
			}

			h := m.RestrictTo(auth.RoleAdmin, auth.RoleLeadGuide)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			err := h(c)
			if tc.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}

			var appErr *domain.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

func TestRedisRateLimitStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := _mid.NewRedisRateLimitStore(client, 2, time.Hour, nil)

	for i := 0; i < 2; i++ {
		ok, err := store.Allow("192.0.2.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.Allow("192.0.2.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Allow("192.0.2.2")
	require.NoError(t, err)
	assert.True(t, ok)

	keys := mr.Keys()
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "ratelimit:192.0.2."))
		assert.Equal(t, time.Hour, mr.TTL(k))
	}

	t.Run("redis unavailable", func(t *testing.T) {
		mr.Close()

		ok, err := store.Allow("192.0.2.1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRateLimit(t *testing.T) {
	m := _mid.InitMiddleware(nil)
	store := _mid.NewRateLimitStore(nil, 1, time.Hour, nil)

	h := m.RateLimit(store)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()

	req := httptest.NewRequest(echo.GET, "/api/v1/tours", nil)
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(echo.GET, "/api/v1/tours", nil)
	rec = httptest.NewRecorder()
	err = h(e.NewContext(req, rec))
	assert.ErrorIs(t, err, echo.ErrTooManyRequests)
}
