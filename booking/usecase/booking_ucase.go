package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
)

type bookingUsecase struct {
	bookingRepo    domain.BookingRepository
	tourRepo       domain.TourRepository
	userRepo       domain.UserRepository
	gateway        domain.PaymentGateway
	publisher      domain.EventPublisher
	contextTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewBookingUsecase will create new a bookingUsecase object representation of domain.BookingUsecase interface
func NewBookingUsecase(b domain.BookingRepository, t domain.TourRepository, u domain.UserRepository, g domain.PaymentGateway, p domain.EventPublisher, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) domain.BookingUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &bookingUsecase{
		bookingRepo:    b,
		tourRepo:       t,
		userRepo:       u,
		gateway:        g,
		publisher:      p,
		contextTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
		now:            time.Now,
	}
}

func (uc *bookingUsecase) Fetch(c context.Context, q *query.Request) ([]*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	bookings, err := uc.bookingRepo.Fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return bookings, nil
}

func (uc *bookingUsecase) GetByID(c context.Context, id string) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	b, err := uc.bookingRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return b, nil
}

func (uc *bookingUsecase) Create(c context.Context, m domain.CreateBooking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Create",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	tourID, err := primitive.ObjectIDFromHex(m.Tour)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(m.Tour)
	}
	userID, err := primitive.ObjectIDFromHex(m.User)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(m.User)
	}

	paid := true
	if m.Paid != nil {
		paid = *m.Paid
	}

	b := &domain.Booking{
		ID:        primitive.NewObjectID(),
		Tour:      tourID,
		User:      userID,
		Price:     m.Price,
		Paid:      paid,
		CreatedAt: uc.now().Truncate(time.Millisecond).UTC(),
	}
	span.SetAttributes(attribute.String("bookingid", b.ID.Hex()))

	if err = uc.bookingRepo.Create(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return b, nil
}

func (uc *bookingUsecase) Update(c context.Context, id string, m domain.UpdateBooking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(id)
	}

	b, err := uc.bookingRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if m.Price != nil {
		b.Price = *m.Price
	}
	if m.Paid != nil {
		b.Paid = *m.Paid
	}

	if err = uc.bookingRepo.Update(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return b, nil
}

func (uc *bookingUsecase) Delete(c context.Context, id string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("bookingid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return domain.InvalidID(id)
	}

	if err = uc.bookingRepo.Delete(ctx, objID); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// CheckoutSession creates payment gateway session for the tour bought by user
func (uc *bookingUsecase) CheckoutSession(c context.Context, tourID string, user *domain.User, baseURL string) (*domain.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase CheckoutSession",
		trace.WithAttributes(
			attribute.String("tourid", tourID),
			attribute.String("userid", user.ID.Hex())),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidID(tourID)
	}

	t, err := uc.tourRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s, err := uc.gateway.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		TourID:        t.ID.Hex(),
		TourName:      t.Name,
		Summary:       t.Summary,
		Images:        []string{fmt.Sprintf("%s/img/tours/%s", baseURL, t.ImageCover)},
		Price:         t.Price,
		CustomerEmail: user.Email,
		SuccessURL:    baseURL + "/my-tours?alert=booking",
		CancelURL:     fmt.Sprintf("%s/tour/%s", baseURL, t.Slug),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s, nil
}

// WebhookCheckout records paid booking of a verified completed checkout.
// Other gateway events are acknowledged and ignored.
func (uc *bookingUsecase) WebhookCheckout(c context.Context, payload []byte, signature string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase WebhookCheckout",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	completed, err := uc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		span.RecordError(err)
		return domain.NewAppError(http.StatusBadRequest, fmt.Sprintf("Webhook error: %s", err.Error()), domain.ErrBadParamInput)
	}
	if completed == nil {
		return nil
	}

	tourID, err := primitive.ObjectIDFromHex(completed.TourID)
	if err != nil {
		span.RecordError(err)
		return domain.InvalidID(completed.TourID)
	}

	u, err := uc.userRepo.GetByEmail(ctx, domain.NormalizeEmail(completed.CustomerEmail))
	if err != nil {
		span.RecordError(err)
		return err
	}

	b := &domain.Booking{
		ID:        primitive.NewObjectID(),
		Tour:      tourID,
		User:      u.ID,
		Price:     float64(completed.AmountTotal) / 100,
		Paid:      true,
		CreatedAt: uc.now().Truncate(time.Millisecond).UTC(),
	}
	span.SetAttributes(attribute.String("bookingid", b.ID.Hex()))

	if err = uc.bookingRepo.Create(ctx, b); err != nil {
		span.RecordError(err)
		return err
	}

	err = uc.publisher.Publish(ctx, domain.EventBookingCreated, b.ID.Hex(), domain.BookingCreated{
		BookingID: b.ID.Hex(),
		TourID:    b.Tour.Hex(),
		UserID:    b.User.Hex(),
		Price:     b.Price,
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("can't publish booking event", zap.String("bookingid", b.ID.Hex()), zap.Error(err))
	}

	return nil
}

// MyTours returns tours booked by the user
func (uc *bookingUsecase) MyTours(c context.Context, userID primitive.ObjectID) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase MyTours",
		trace.WithAttributes(
			attribute.String("userid", userID.Hex())),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	bookings, err := uc.bookingRepo.GetByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(bookings))
	seen := make(map[primitive.ObjectID]struct{}, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.Tour]; ok {
			continue
		}
		seen[b.Tour] = struct{}{}
		ids = append(ids, b.Tour)
	}

	tours, err := uc.tourRepo.FetchByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return tours, nil
}
