package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/semka95/natours/backend/query"
)

// EventBookingCreated is published after a paid booking is recorded
const EventBookingCreated = "booking.created"

// BookingQuerySchema describes queryable booking fields
var BookingQuerySchema = query.Schema{
	Fields: map[string]query.Kind{
		"_id":       query.ObjectID,
		"tour":      query.ObjectID,
		"user":      query.ObjectID,
		"price":     query.Number,
		"paid":      query.Bool,
		"createdAt": query.Date,
	},
}

// Booking represents the Booking model
type Booking struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Tour      primitive.ObjectID `json:"tour" bson:"tour"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	Price     float64            `json:"price" bson:"price"`
	Paid      bool               `json:"paid" bson:"paid"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	Version   int                `json:"-" bson:"__v"`
}

// CreateBooking represents data to create new Booking
type CreateBooking struct {
	Tour  string  `json:"tour" validate:"required,mongodb"`
	User  string  `json:"user" validate:"required,mongodb"`
	Price float64 `json:"price" validate:"required,gt=0"`
	Paid  *bool   `json:"paid"`
}

// UpdateBooking represents partial update of Booking
type UpdateBooking struct {
	Price *float64 `json:"price" validate:"omitempty,gt=0"`
	Paid  *bool    `json:"paid"`
}

// BookingCreated is the payload of EventBookingCreated
type BookingCreated struct {
	BookingID string  `json:"bookingId"`
	TourID    string  `json:"tourId"`
	UserID    string  `json:"userId"`
	Price     float64 `json:"price"`
}

// CheckoutRequest describes a tour purchase at the payment gateway
type CheckoutRequest struct {
	TourID        string
	TourName      string
	Summary       string
	Images        []string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is a created payment gateway session
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutCompleted is a verified completed checkout
type CheckoutCompleted struct {
	TourID        string
	CustomerEmail string
	AmountTotal   int64
}

// BookingUsecase represents the Booking's usecases
type BookingUsecase interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	Create(ctx context.Context, booking CreateBooking) (*Booking, error)
	Update(ctx context.Context, id string, booking UpdateBooking) (*Booking, error)
	Delete(ctx context.Context, id string) error
	CheckoutSession(ctx context.Context, tourID string, user *User, baseURL string) (*CheckoutSession, error)
	WebhookCheckout(ctx context.Context, payload []byte, signature string) error
	MyTours(ctx context.Context, userID primitive.ObjectID) ([]*Tour, error)
}

// BookingRepository represents the Booking's repository contract
type BookingRepository interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Booking, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]*Booking, error)
	Create(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PaymentGateway creates checkout sessions and verifies their callbacks
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, r CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies payload signature, it returns nil event for
	// event types other than completed checkout
	ParseWebhook(payload []byte, signature string) (*CheckoutCompleted, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, eventType, aggregateID string, payload interface{}) error
}
