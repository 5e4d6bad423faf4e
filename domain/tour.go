package domain

import (
	"context"
	"math"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/semka95/natours/backend/query"
)

// Tour difficulties
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Rating defaults for tours without reviews
const (
	DefaultRatingsAverage  = 5
	DefaultRatingsQuantity = 0
)

// TourQuerySchema describes queryable tour fields
var TourQuerySchema = query.Schema{
	Fields: map[string]query.Kind{
		"_id":             query.ObjectID,
		"name":            query.String,
		"slug":            query.String,
		"duration":        query.Number,
		"maxGroupSize":    query.Number,
		"difficulty":      query.String,
		"ratingsAverage":  query.Number,
		"ratingsQuantity": query.Number,
		"price":           query.Number,
		"priceDiscount":   query.Number,
		"createdAt":       query.Date,
		"startDates":      query.Date,
		"guides":          query.ObjectID,
	},
	Hidden: []string{"secretTour"},
	Whitelist: []string{
		"duration",
		"ratingsQuantity",
		"ratingsAverage",
		"maxGroupSize",
		"difficulty",
		"price",
	},
}

// GeoPoint is a GeoJSON point with optional description
type GeoPoint struct {
	Type        string    `json:"type" bson:"type" validate:"omitempty,eq=Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"len=2"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Day         int       `json:"day,omitempty" bson:"day,omitempty"`
}

// Tour represents the Tour model
type Tour struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id"`
	Name            string               `json:"name" bson:"name"`
	Slug            string               `json:"slug" bson:"slug"`
	Duration        float64              `json:"duration" bson:"duration"`
	DurationWeeks   float64              `json:"durationWeeks" bson:"-"`
	MaxGroupSize    int                  `json:"maxGroupSize" bson:"maxGroupSize"`
	Difficulty      string               `json:"difficulty" bson:"difficulty"`
	RatingsAverage  float64              `json:"ratingsAverage" bson:"ratingsAverage"`
	RatingsQuantity int                  `json:"ratingsQuantity" bson:"ratingsQuantity"`
	Price           float64              `json:"price" bson:"price"`
	PriceDiscount   float64              `json:"priceDiscount,omitempty" bson:"priceDiscount,omitempty"`
	Summary         string               `json:"summary" bson:"summary"`
	Description     string               `json:"description,omitempty" bson:"description,omitempty"`
	ImageCover      string               `json:"imageCover" bson:"imageCover"`
	Images          []string             `json:"images" bson:"images"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
	StartDates      []time.Time          `json:"startDates" bson:"startDates"`
	SecretTour      bool                 `json:"-" bson:"secretTour"`
	StartLocation   *GeoPoint            `json:"startLocation,omitempty" bson:"startLocation,omitempty"`
	Locations       []GeoPoint           `json:"locations" bson:"locations"`
	Guides          []primitive.ObjectID `json:"guides" bson:"guides"`
	Version         int                  `json:"-" bson:"__v"`
}

// Derive fills fields that are computed and never stored
func (t *Tour) Derive() {
	t.DurationWeeks = t.Duration / 7
}

// SetName sets name and slug derived from it
func (t *Tour) SetName(name string) {
	t.Name = name
	t.Slug = slug.Make(name)
}

// RoundRating rounds rating to one decimal place
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// TourDetail is a tour with populated guides and reviews
type TourDetail struct {
	*Tour
	Guides  []*User   `json:"guides"`
	Reviews []*Review `json:"reviews"`
}

// CreateTour represents data to create new Tour
type CreateTour struct {
	Name          string      `json:"name" validate:"required,min=10,max=40,alphaspace"`
	Duration      float64     `json:"duration" validate:"required,gt=0"`
	MaxGroupSize  int         `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty    string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price         float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount float64     `json:"priceDiscount" validate:"omitempty,gte=0,ltfield=Price"`
	Summary       string      `json:"summary" validate:"required"`
	Description   string      `json:"description"`
	ImageCover    string      `json:"imageCover" validate:"required"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"startDates"`
	SecretTour    bool        `json:"secretTour"`
	StartLocation *GeoPoint   `json:"startLocation" validate:"omitempty"`
	Locations     []GeoPoint  `json:"locations" validate:"omitempty,dive"`
	Guides        []string    `json:"guides" validate:"omitempty,dive,mongodb"`
}

// UpdateTour represents partial update of Tour, ratings are derived and
// can't be set directly
type UpdateTour struct {
	Name          *string     `json:"name" validate:"omitempty,min=10,max=40,alphaspace"`
	Duration      *float64    `json:"duration" validate:"omitempty,gt=0"`
	MaxGroupSize  *int        `json:"maxGroupSize" validate:"omitempty,gt=0"`
	Difficulty    *string     `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	Price         *float64    `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount *float64    `json:"priceDiscount" validate:"omitempty,gte=0"`
	Summary       *string     `json:"summary" validate:"omitempty,min=1"`
	Description   *string     `json:"description"`
	ImageCover    *string     `json:"imageCover" validate:"omitempty,min=1"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"startDates"`
	SecretTour    *bool       `json:"secretTour"`
	StartLocation *GeoPoint   `json:"startLocation" validate:"omitempty"`
	Locations     []GeoPoint  `json:"locations" validate:"omitempty,dive"`
	Guides        []string    `json:"guides" validate:"omitempty,dive,mongodb"`
}

// TourStats is a per-difficulty aggregate of well rated tours
type TourStats struct {
	Difficulty string  `json:"_id" bson:"_id"`
	NumTours   int     `json:"numTours" bson:"numTours"`
	NumRatings int     `json:"numRatings" bson:"numRatings"`
	AvgRating  float64 `json:"avgRating" bson:"avgRating"`
	AvgPrice   float64 `json:"avgPrice" bson:"avgPrice"`
	MinPrice   float64 `json:"minPrice" bson:"minPrice"`
	MaxPrice   float64 `json:"maxPrice" bson:"maxPrice"`
}

// MonthlyPlan lists tours starting in a month
type MonthlyPlan struct {
	Month         int      `json:"month" bson:"_id"`
	MonthName     string   `json:"monthName" bson:"monthName"`
	NumTourStarts int      `json:"numTourStarts" bson:"numTourStarts"`
	Tours         []string `json:"tours" bson:"tours"`
}

// TourDistance is a distance from a point to tour start location
type TourDistance struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	Name     string             `json:"name" bson:"name"`
	Distance float64            `json:"distance" bson:"distance"`
}

// Distance units
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"
)

// TourUsecase represents the Tour's usecases
type TourUsecase interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Tour, error)
	GetByID(ctx context.Context, id string) (*TourDetail, error)
	GetBySlug(ctx context.Context, slug string) (*TourDetail, error)
	Create(ctx context.Context, tour CreateTour) (*Tour, error)
	Update(ctx context.Context, id string, tour UpdateTour) (*Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]*TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]*MonthlyPlan, error)
	Within(ctx context.Context, distance, lat, lng float64, unit string) ([]*Tour, error)
	Distances(ctx context.Context, lat, lng float64, unit string) ([]*TourDistance, error)
}

// TourRepository represents the Tour's repository contract. Secret tours are
// never returned.
type TourRepository interface {
	Fetch(ctx context.Context, q *query.Request) ([]*Tour, error)
	FetchByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Tour, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Tour, error)
	GetBySlug(ctx context.Context, slug string) (*Tour, error)
	Create(ctx context.Context, tour *Tour) error
	Update(ctx context.Context, tour *Tour, fields []string) error
	UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context, minRating float64) ([]*TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]*MonthlyPlan, error)
	Within(ctx context.Context, lng, lat, radius float64) ([]*Tour, error)
	Distances(ctx context.Context, lng, lat, multiplier float64) ([]*TourDistance, error)
}
