package http_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/query"
	reviewHttp "github.com/semka95/natours/backend/review/delivery/http"
	"github.com/semka95/natours/backend/review/mock"
	"github.com/semka95/natours/backend/tests"
	userMock "github.com/semka95/natours/backend/user/mock"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

type envelope struct {
	Status  string                     `json:"status"`
	Results *int                       `json:"results"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

type server struct {
	e       *echo.Echo
	reviews *mock.MockReviewUsecase
	users   *userMock.MockUserUsecase
	authr   *auth.Authenticator
}

func newServer(t *testing.T) *server {
	controller := gomock.NewController(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kid := "4754d86b-7a6d-4df5-9c65-224741361492"
	kf := auth.NewSimpleKeyLookupFunc(kid, key.Public().(*rsa.PublicKey))
	authenticator, err := auth.NewAuthenticator(key, kid, "RS256", kf)
	require.NoError(t, err)

	v, err := web.NewAppValidator()
	require.NoError(t, err)

	s := &server{
		e:       echo.New(),
		reviews: mock.NewMockReviewUsecase(controller),
		users:   userMock.NewMockUserUsecase(controller),
		authr:   authenticator,
	}
	s.e.Validator = v
	s.e.HTTPErrorHandler = web.ErrorHandler(zap.NewNop())

	m := _MyMiddleware.InitMiddleware(zap.NewNop(), _MyMiddleware.WithAuth(authenticator, s.users))
	handler := reviewHttp.NewReviewHandler(s.reviews, v, zap.NewNop(), sdktrace.NewTracerProvider().Tracer(""))
	handler.RegisterRoutes(s.e.Group("/api/v1"), m)

	return s
}

func (s *server) request(t *testing.T, u *domain.User, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(data))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	if u != nil {
		tkn, err := s.authr.GenerateToken(auth.NewClaims(u.ID.Hex(), u.Role, time.Now(), time.Hour))
		require.NoError(t, err)
		s.users.EXPECT().CurrentUser(gomock.Any(), gomock.Any()).Return(u, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tkn)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestReviewHTTP_Fetch(t *testing.T) {
	tUser := tests.NewUser()
	tReview := tests.NewReview()

	t.Run("all reviews", func(t *testing.T) {
		s := newServer(t)
		s.reviews.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ interface{}, q *query.Request) ([]*domain.Review, error) {
				assert.Empty(t, q.Filter)
				return []*domain.Review{tReview}, nil
			})

		rec := s.request(t, tUser, http.MethodGet, "/api/v1/reviews", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		require.NotNil(t, body.Results)
		assert.Equal(t, 1, *body.Results)

		var reviews []map[string]interface{}
		require.NoError(t, json.Unmarshal(body.Data["reviews"], &reviews))
		author, ok := reviews[0]["user"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, tUser.Name, author["name"])
	})

	t.Run("reviews of a tour", func(t *testing.T) {
		s := newServer(t)
		s.reviews.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ interface{}, q *query.Request) ([]*domain.Review, error) {
				require.Len(t, q.Filter, 1)
				assert.Equal(t, "tour", q.Filter[0].Key)
				assert.Equal(t, tests.TourID, q.Filter[0].Value)
				return []*domain.Review{tReview}, nil
			})

		rec := s.request(t, tUser, http.MethodGet, "/api/v1/tours/"+tests.TourID.Hex()+"/reviews?tour=5c88fa8cf4afda39709c2951", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid tour id", func(t *testing.T) {
		s := newServer(t)

		rec := s.request(t, tUser, http.MethodGet, "/api/v1/tours/nope/reviews", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid _id: nope", decode(t, rec).Message)
	})

	t.Run("not logged in", func(t *testing.T) {
		s := newServer(t)

		rec := s.request(t, nil, http.MethodGet, "/api/v1/reviews", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestReviewHTTP_Create(t *testing.T) {
	tUser := tests.NewUser()
	tReview := tests.NewReview()

	t.Run("nested route sets tour", func(t *testing.T) {
		s := newServer(t)
		cr := tests.NewCreateReview()
		s.reviews.EXPECT().Create(gomock.Any(), gomock.Any(), tUser).DoAndReturn(
			func(_ interface{}, m domain.CreateReview, _ *domain.User) (*domain.Review, error) {
				assert.Equal(t, tests.TourID.Hex(), m.Tour)
				return tReview, nil
			})

		rec := s.request(t, tUser, http.MethodPost, "/api/v1/tours/"+tests.TourID.Hex()+"/reviews", cr)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("rating out of range", func(t *testing.T) {
		s := newServer(t)
		cr := tests.NewCreateReview()
		cr.Rating = 6

		rec := s.request(t, tUser, http.MethodPost, "/api/v1/tours/"+tests.TourID.Hex()+"/reviews", cr)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin can't write reviews", func(t *testing.T) {
		s := newServer(t)

		rec := s.request(t, tests.NewAdmin(), http.MethodPost, "/api/v1/reviews", tests.NewCreateReview())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestReviewHTTP_UpdateDelete(t *testing.T) {
	tUser := tests.NewUser()
	tReview := tests.NewReview()

	t.Run("update", func(t *testing.T) {
		s := newServer(t)
		ur := domain.UpdateReview{Review: tests.StringPointer("Changed my mind")}
		s.reviews.EXPECT().Update(gomock.Any(), tReview.ID.Hex(), ur, tUser).Return(tReview, nil)

		rec := s.request(t, tUser, http.MethodPatch, "/api/v1/reviews/"+tReview.ID.Hex(), ur)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update foreign review", func(t *testing.T) {
		s := newServer(t)
		ur := domain.UpdateReview{Rating: tests.FloatPointer(1)}
		s.reviews.EXPECT().Update(gomock.Any(), tReview.ID.Hex(), ur, tUser).Return(nil,
			domain.NewAppError(http.StatusForbidden, "You can only change your own reviews", domain.ErrForbidden))

		rec := s.request(t, tUser, http.MethodPatch, "/api/v1/reviews/"+tReview.ID.Hex(), ur)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("guide can't delete", func(t *testing.T) {
		s := newServer(t)

		rec := s.request(t, tests.NewGuide(), http.MethodDelete, "/api/v1/reviews/"+tReview.ID.Hex(), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		s := newServer(t)
		s.reviews.EXPECT().Delete(gomock.Any(), tReview.ID.Hex(), tUser).Return(nil)

		rec := s.request(t, tUser, http.MethodDelete, "/api/v1/reviews/"+tReview.ID.Hex(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		s := newServer(t)
		s.reviews.EXPECT().GetByID(gomock.Any(), tReview.ID.Hex()).Return(tReview, nil)

		rec := s.request(t, tUser, http.MethodGet, "/api/v1/reviews/"+tReview.ID.Hex(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
