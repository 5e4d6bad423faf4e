package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/semka95/natours/backend/query"
)

// ReviewQuerySchema describes queryable review fields
var ReviewQuerySchema = query.Schema{
	Fields: map[string]query.Kind{
		"_id":       query.ObjectID,
		"rating":    query.Number,
		"tour":      query.ObjectID,
		"user":      query.ObjectID,
		"createdAt": query.Date,
		"updatedAt": query.Date,
	},
}

// Review represents the Review model
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Review    string             `json:"review" bson:"review"`
	Rating    float64            `json:"rating" bson:"rating"`
	Tour      primitive.ObjectID `json:"tour" bson:"tour"`
	User      primitive.ObjectID `json:"-" bson:"user"`
	Author    *ReviewAuthor      `json:"user,omitempty" bson:"-"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
	Version   int                `json:"-" bson:"__v"`
}

// ReviewAuthor is the populated author of a review
type ReviewAuthor struct {
	ID    primitive.ObjectID `json:"id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	Photo string             `json:"photo" bson:"photo"`
}

// CreateReview represents data to create new Review. Tour comes from the
// nested route when present.
type CreateReview struct {
	Review string  `json:"review" validate:"required,max=500"`
	Rating float64 `json:"rating" validate:"required,min=1,max=5"`
	Tour   string  `json:"tour" validate:"omitempty,mongodb"`
}

// UpdateReview represents partial update of Review
type UpdateReview struct {
	Review *string  `json:"review" validate:"omitempty,min=1,max=500"`
	Rating *float64 `json:"rating" validate:"omitempty,min=1,max=5"`
}

// ReviewUsecase represents the Review's usecases
type ReviewUsecase interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Review, error)
	GetByID(ctx context.Context, id string) (*Review, error)
	Create(ctx context.Context, review CreateReview, author *User) (*Review, error)
	Update(ctx context.Context, id string, review UpdateReview, user *User) (*Review, error)
	Delete(ctx context.Context, id string, user *User) error
}

// ReviewRepository represents the Review's repository contract
type ReviewRepository interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Review, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	Create(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Ratings aggregates review count and average rating of a tour
	Ratings(ctx context.Context, tourID primitive.ObjectID) (quantity int, average float64, err error)
}
