package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/semka95/natours/backend/booking/mock"
	"github.com/semka95/natours/backend/booking/usecase"
	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/tests"
	tourMock "github.com/semka95/natours/backend/tour/mock"
	userMock "github.com/semka95/natours/backend/user/mock"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

type mocks struct {
	bookings  *mock.MockBookingRepository
	tours     *tourMock.MockTourRepository
	users     *userMock.MockUserRepository
	gateway   *mock.MockPaymentGateway
	publisher *mock.MockEventPublisher
}

func newUsecase(t *testing.T) (domain.BookingUsecase, mocks) {
	controller := gomock.NewController(t)
	m := mocks{
		bookings:  mock.NewMockBookingRepository(controller),
		tours:     tourMock.NewMockTourRepository(controller),
		users:     userMock.NewMockUserRepository(controller),
		gateway:   mock.NewMockPaymentGateway(controller),
		publisher: mock.NewMockEventPublisher(controller),
	}
	return usecase.NewBookingUsecase(m.bookings, m.tours, m.users, m.gateway, m.publisher, time.Second, nil, tracer), m
}

func appCode(t *testing.T, err error) int {
	t.Helper()
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestBookingUsecase_Create(t *testing.T) {
	t.Run("paid by default", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.bookings.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b *domain.Booking) error {
				assert.True(t, b.Paid)
				assert.Equal(t, tests.TourID, b.Tour)
				assert.Equal(t, tests.UserID, b.User)
				return nil
			})

		b, err := uc.Create(context.Background(), tests.NewCreateBooking())
		require.NoError(t, err)
		assert.Equal(t, 397.0, b.Price)
	})

	t.Run("invalid user id", func(t *testing.T) {
		uc, _ := newUsecase(t)
		cb := tests.NewCreateBooking()
		cb.User = "bad"

		b, err := uc.Create(context.Background(), cb)
		assert.Nil(t, b)
		assert.Equal(t, http.StatusBadRequest, appCode(t, err))
	})
}

func TestBookingUsecase_Update(t *testing.T) {
	tBooking := tests.NewBooking()

	t.Run("success", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.bookings.EXPECT().GetByID(gomock.Any(), tBooking.ID).Return(tests.NewBooking(), nil)
		m.bookings.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		b, err := uc.Update(context.Background(), tBooking.ID.Hex(), domain.UpdateBooking{Paid: tests.BoolPointer(false)})
		require.NoError(t, err)
		assert.False(t, b.Paid)
		assert.Equal(t, tBooking.Price, b.Price)
	})

	t.Run("not found", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.bookings.EXPECT().GetByID(gomock.Any(), tBooking.ID).Return(nil, fmt.Errorf("booking was not found: %w", domain.ErrNotFound))

		b, err := uc.Update(context.Background(), tBooking.ID.Hex(), domain.UpdateBooking{})
		assert.Nil(t, b)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookingUsecase_Delete(t *testing.T) {
	uc, m := newUsecase(t)
	tBooking := tests.NewBooking()
	m.bookings.EXPECT().Delete(gomock.Any(), tBooking.ID).Return(nil)

	require.NoError(t, uc.Delete(context.Background(), tBooking.ID.Hex()))
	assert.Equal(t, http.StatusBadRequest, appCode(t, uc.Delete(context.Background(), "x")))
}

func TestBookingUsecase_CheckoutSession(t *testing.T) {
	tTour := tests.NewTour()
	tUser := tests.NewUser()

	t.Run("success", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.tours.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		m.gateway.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r domain.CheckoutRequest) (*domain.CheckoutSession, error) {
				assert.Equal(t, tTour.ID.Hex(), r.TourID)
				assert.Equal(t, tTour.Price, r.Price)
				assert.Equal(t, tUser.Email, r.CustomerEmail)
				assert.Equal(t, []string{"http://natours.test/img/tours/" + tTour.ImageCover}, r.Images)
				assert.Equal(t, "http://natours.test/tour/"+tTour.Slug, r.CancelURL)
				return &domain.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
			})

		s, err := uc.CheckoutSession(context.Background(), tTour.ID.Hex(), tUser, "http://natours.test")
		require.NoError(t, err)
		assert.Equal(t, "cs_test_1", s.ID)
	})

	t.Run("tour not found", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.tours.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(nil, fmt.Errorf("tour was not found: %w", domain.ErrNotFound))

		s, err := uc.CheckoutSession(context.Background(), tTour.ID.Hex(), tUser, "http://natours.test")
		assert.Nil(t, s)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("gateway fails", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.tours.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		m.gateway.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(nil, domain.ErrInternalServerError)

		s, err := uc.CheckoutSession(context.Background(), tTour.ID.Hex(), tUser, "http://natours.test")
		assert.Nil(t, s)
		assert.ErrorIs(t, err, domain.ErrInternalServerError)
	})
}

func TestBookingUsecase_WebhookCheckout(t *testing.T) {
	tUser := tests.NewUser()
	payload := []byte(`{"type":"checkout.session.completed"}`)
	completed := &domain.CheckoutCompleted{
		TourID:        tests.TourID.Hex(),
		CustomerEmail: tUser.Email,
		AmountTotal:   49700,
	}

	t.Run("records booking and publishes event", func(t *testing.T) {
		uc, m := newUsecase(t)
		var booked *domain.Booking
		gomock.InOrder(
			m.gateway.EXPECT().ParseWebhook(payload, "sig").Return(completed, nil),
			m.users.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil),
			m.bookings.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, b *domain.Booking) error {
					booked = b
					assert.Equal(t, 497.0, b.Price)
					assert.Equal(t, tests.TourID, b.Tour)
					assert.Equal(t, tUser.ID, b.User)
					assert.True(t, b.Paid)
					return nil
				}),
			m.publisher.EXPECT().Publish(gomock.Any(), domain.EventBookingCreated, gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, _, aggregateID string, payload interface{}) error {
					assert.Equal(t, booked.ID.Hex(), aggregateID)
					created, ok := payload.(domain.BookingCreated)
					require.True(t, ok)
					assert.Equal(t, 497.0, created.Price)
					return nil
				}),
		)

		require.NoError(t, uc.WebhookCheckout(context.Background(), payload, "sig"))
	})

	t.Run("bad signature", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.gateway.EXPECT().ParseWebhook(payload, "bad").Return(nil, errors.New("signature mismatch"))

		err := uc.WebhookCheckout(context.Background(), payload, "bad")
		assert.Equal(t, http.StatusBadRequest, appCode(t, err))
		assert.EqualError(t, err, "Webhook error: signature mismatch")
	})

	t.Run("other event", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.gateway.EXPECT().ParseWebhook(payload, "sig").Return(nil, nil)

		require.NoError(t, uc.WebhookCheckout(context.Background(), payload, "sig"))
	})

	t.Run("publish failure keeps booking", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.gateway.EXPECT().ParseWebhook(payload, "sig").Return(completed, nil)
		m.users.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)
		m.bookings.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		require.NoError(t, uc.WebhookCheckout(context.Background(), payload, "sig"))
	})

	t.Run("customer email case ignored", func(t *testing.T) {
		uc, m := newUsecase(t)
		mixed := *completed
		mixed.CustomerEmail = " Leo@Example.COM"
		m.gateway.EXPECT().ParseWebhook(payload, "sig").Return(&mixed, nil)
		m.users.EXPECT().GetByEmail(gomock.Any(), "leo@example.com").Return(tUser, nil)
		m.bookings.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, uc.WebhookCheckout(context.Background(), payload, "sig"))
	})

	t.Run("unknown customer", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.gateway.EXPECT().ParseWebhook(payload, "sig").Return(completed, nil)
		m.users.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(nil, fmt.Errorf("user was not found: %w", domain.ErrNotFound))

		err := uc.WebhookCheckout(context.Background(), payload, "sig")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookingUsecase_MyTours(t *testing.T) {
	tTour := tests.NewTour()

	t.Run("success", func(t *testing.T) {
		uc, m := newUsecase(t)
		first := tests.NewBooking()
		second := tests.NewBooking()
		second.ID = primitive.NewObjectID()

		m.bookings.EXPECT().GetByUser(gomock.Any(), tests.UserID).Return([]*domain.Booking{first, second}, nil)
		m.tours.EXPECT().FetchByIDs(gomock.Any(), []primitive.ObjectID{tests.TourID}).Return([]*domain.Tour{tTour}, nil)

		tours, err := uc.MyTours(context.Background(), tests.UserID)
		require.NoError(t, err)
		assert.Equal(t, []*domain.Tour{tTour}, tours)
	})

	t.Run("no bookings", func(t *testing.T) {
		uc, m := newUsecase(t)
		m.bookings.EXPECT().GetByUser(gomock.Any(), tests.UserID).Return([]*domain.Booking{}, nil)
		m.tours.EXPECT().FetchByIDs(gomock.Any(), []primitive.ObjectID{}).Return([]*domain.Tour{}, nil)

		tours, err := uc.MyTours(context.Background(), tests.UserID)
		require.NoError(t, err)
		assert.Empty(t, tours)
	})
}
