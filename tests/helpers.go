package tests

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/web/auth"
)

// PasswordHash is bcrypt hash of Password
const (
	Password     = "password"
	PasswordHash = "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS"
)

// Fixture ids
var (
	UserID   = mustID("5c8a1d5b0190b214360dc057")
	AdminID  = mustID("5c8a1dfa2f8fb814b56fa181")
	GuideID  = mustID("5c8a21d02f8fb814b56fa189")
	TourID   = mustID("5c88fa8cf4afda39709c2955")
	ReviewID = mustID("5c8a34ed14eb5c17645c9108")
)

func mustID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

// StringPointer returns pointer of a string
func StringPointer(s string) *string {
	return &s
}

// FloatPointer returns pointer of a float64
func FloatPointer(f float64) *float64 {
	return &f
}

// BoolPointer returns pointer of a bool
func BoolPointer(b bool) *bool {
	return &b
}

// DatePointer returns pointer of a time.Time
func DatePointer(t time.Time) *time.Time {
	return &t
}

// Now returns current time with database precision
func Now() time.Time {
	return time.Now().Truncate(time.Millisecond).UTC()
}

// ToBsonD converts model to bson document the way it is stored
func ToBsonD(v interface{}) bson.D {
	data, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var doc bson.D
	if err = bson.Unmarshal(data, &doc); err != nil {
		panic(err)
	}
	return doc
}

// NewUser creates instance of User model
func NewUser() *domain.User {
	return &domain.User{
		ID:        UserID,
		Name:      "Leo Gillespie",
		Email:     "leo@example.com",
		Photo:     "user-1.jpg",
		Role:      auth.RoleUser,
		Active:    true,
		CreatedAt: Now(),
	}
}

// NewUserWithPassword creates instance of User model as it is read by the
// authentication path
func NewUserWithPassword() *domain.User {
	u := NewUser()
	u.Password = PasswordHash
	return u
}

// NewAdmin creates instance of admin User
func NewAdmin() *domain.User {
	return &domain.User{
		ID:        AdminID,
		Name:      "Jonas Schmedtmann",
		Email:     "admin@natours.io",
		Photo:     "user-0.jpg",
		Role:      auth.RoleAdmin,
		Active:    true,
		CreatedAt: Now(),
	}
}

// NewGuide creates instance of guide User
func NewGuide() *domain.User {
	return &domain.User{
		ID:        GuideID,
		Name:      "Lourdes Browning",
		Email:     "loulou@example.com",
		Photo:     "user-2.jpg",
		Role:      auth.RoleGuide,
		Active:    true,
		CreatedAt: Now(),
	}
}

// NewSignupUser creates instance of SignupUser model
func NewSignupUser() domain.SignupUser {
	return domain.SignupUser{
		Name:            "Leo Gillespie",
		Email:           "leo@example.com",
		Password:        Password,
		PasswordConfirm: Password,
	}
}

// NewTour creates instance of Tour model
func NewTour() *domain.Tour {
	t := &domain.Tour{
		ID:              TourID,
		Name:            "The Forest Hiker",
		Slug:            "the-forest-hiker",
		Duration:        5,
		MaxGroupSize:    25,
		Difficulty:      domain.DifficultyEasy,
		RatingsAverage:  4.7,
		RatingsQuantity: 37,
		Price:           397,
		Summary:         "Breathtaking hike through the Canadian Banff National Park",
		Description:     "Lorem ipsum dolor sit amet.\nConsectetur adipisicing elit.",
		ImageCover:      "tour-1-cover.jpg",
		Images:          []string{"tour-1-1.jpg", "tour-1-2.jpg", "tour-1-3.jpg"},
		CreatedAt:       Now(),
		StartDates:      []time.Time{time.Date(2021, 4, 25, 9, 0, 0, 0, time.UTC)},
		StartLocation: &domain.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{-115.570154, 51.178456},
			Address:     "224 Banff Ave, Banff, AB, Canada",
			Description: "Banff, CAN",
		},
		Locations: []domain.GeoPoint{
			{
				Type:        "Point",
				Coordinates: []float64{-116.214531, 51.417611},
				Description: "Banff National Park",
				Day:         1,
			},
		},
		Guides: []primitive.ObjectID{GuideID},
	}
	t.Derive()
	return t
}

// NewTourDetail creates instance of TourDetail model
func NewTourDetail() *domain.TourDetail {
	return &domain.TourDetail{
		Tour:    NewTour(),
		Guides:  []*domain.User{NewGuide()},
		Reviews: []*domain.Review{NewReview()},
	}
}

// NewCreateTour creates instance of CreateTour model
func NewCreateTour() domain.CreateTour {
	return domain.CreateTour{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   domain.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:   "tour-1-cover.jpg",
		Guides:       []string{GuideID.Hex()},
	}
}

// NewReview creates instance of Review model
func NewReview() *domain.Review {
	u := NewUser()
	return &domain.Review{
		ID:     ReviewID,
		Review: "Amazing tour, would do it again!",
		Rating: 5,
		Tour:   TourID,
		User:   u.ID,
		Author: &domain.ReviewAuthor{
			ID:    u.ID,
			Name:  u.Name,
			Photo: u.Photo,
		},
		CreatedAt: Now(),
		UpdatedAt: Now(),
	}
}

// NewCreateReview creates instance of CreateReview model
func NewCreateReview() domain.CreateReview {
	return domain.CreateReview{
		Review: "Amazing tour, would do it again!",
		Rating: 5,
	}
}

// NewBooking creates instance of Booking model
func NewBooking() *domain.Booking {
	return &domain.Booking{
		ID:        mustID("5c8a355b14eb5c17645c9109"),
		Tour:      TourID,
		User:      UserID,
		Price:     397,
		Paid:      true,
		CreatedAt: Now(),
	}
}

// NewCreateBooking creates instance of CreateBooking model
func NewCreateBooking() domain.CreateBooking {
	return domain.CreateBooking{
		Tour:  TourID.Hex(),
		User:  UserID.Hex(),
		Price: 397,
	}
}
