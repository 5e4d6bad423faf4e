package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/web/auth"
)

// bcrypt hash of "password"
const seedPassword = "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS"

// Seed inserts data in database for development purposes
func Seed(ctx context.Context, db *mongo.Database) error {
	now := time.Now().Truncate(time.Millisecond).UTC()
	year := now.Year() + 1

	user := func(name, email, role string, photo int) *domain.User {
		return &domain.User{
			ID:        primitive.NewObjectID(),
			Name:      name,
			Email:     email,
			Photo:     fmt.Sprintf("user-%d.jpg", photo),
			Role:      role,
			Password:  seedPassword,
			Active:    true,
			CreatedAt: now,
		}
	}

	admin := user("Jonas Schmedtmann", "admin@natours.io", auth.RoleAdmin, 0)
	leadGuide := user("Steve T. Scaife", "steve@example.com", auth.RoleLeadGuide, 3)
	guide := user("Lourdes Browning", "loulou@example.com", auth.RoleGuide, 2)
	guide2 := user("Kate Morrison", "kate@example.com", auth.RoleGuide, 10)
	regular := user("Leo Gillespie", "leo@example.com", auth.RoleUser, 1)
	regular2 := user("Ayla Cornell", "ayls@example.com", auth.RoleUser, 13)
	users := []*domain.User{admin, leadGuide, guide, guide2, regular, regular2}

	point := func(lng, lat float64, desc string, day int) domain.GeoPoint {
		return domain.GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}, Description: desc, Day: day}
	}
	dates := func(months ...time.Month) []time.Time {
		res := make([]time.Time, 0, len(months))
		for _, m := range months {
			res = append(res, time.Date(year, m, 10, 9, 0, 0, 0, time.UTC))
		}
		return res
	}

	tour := func(n int, name string, duration float64, size int, difficulty string, price float64, summary string, start domain.GeoPoint, stops []domain.GeoPoint, starts []time.Time, guides ...*domain.User) *domain.Tour {
		t := &domain.Tour{
			ID:              primitive.NewObjectID(),
			Name:            name,
			Slug:            slug.Make(name),
			Duration:        duration,
			MaxGroupSize:    size,
			Difficulty:      difficulty,
			RatingsAverage:  domain.DefaultRatingsAverage,
			RatingsQuantity: domain.DefaultRatingsQuantity,
			Price:           price,
			Summary:         summary,
			Description:     "Lorem ipsum dolor sit amet, consectetur adipisicing elit.\nIrure dolor in reprehenderit in voluptate velit esse cillum dolore.",
			ImageCover:      fmt.Sprintf("tour-%d-cover.jpg", n),
			Images:          []string{fmt.Sprintf("tour-%d-1.jpg", n), fmt.Sprintf("tour-%d-2.jpg", n), fmt.Sprintf("tour-%d-3.jpg", n)},
			CreatedAt:       now,
			StartDates:      starts,
			StartLocation:   &start,
			Locations:       stops,
		}
		for _, g := range guides {
			t.Guides = append(t.Guides, g.ID)
		}
		return t
	}

	forest := tour(2, "The Forest Hiker", 5, 25, domain.DifficultyEasy, 397,
		"Breathtaking hike through the Canadian Banff National Park",
		point(-115.570154, 51.178456, "Banff, CAN", 0),
		[]domain.GeoPoint{point(-116.214531, 51.417611, "Banff National Park", 1), point(-118.076152, 52.875223, "Jasper National Park", 3)},
		dates(time.April, time.July, time.October), leadGuide, guide)
	sea := tour(3, "The Sea Explorer", 7, 15, domain.DifficultyMedium, 497,
		"Exploring the jaw-dropping US east coast by foot and by boat",
		point(-80.185942, 25.774772, "Miami, USA", 0),
		[]domain.GeoPoint{point(-80.128473, 25.781842, "Lummus Park Beach", 1), point(-80.647885, 24.909047, "Islamorada", 2)},
		dates(time.June, time.July, time.August), leadGuide, guide2)
	snow := tour(4, "The Snow Adventurer", 4, 10, domain.DifficultyDifficult, 997,
		"Exciting adventure in the snow with snowboarding and skiing",
		point(-106.822318, 39.190872, "Aspen, USA", 0),
		[]domain.GeoPoint{point(-106.855385, 39.182677, "Aspen Highlands", 1), point(-106.516623, 39.60499, "Beaver Creek", 2)},
		dates(time.January, time.February, time.December), leadGuide, guide)
	city := tour(5, "The City Wanderer", 9, 20, domain.DifficultyEasy, 1197,
		"Living the life of Wanderlust in the US most beatiful cities",
		point(-73.985141, 40.75894, "NYC, USA", 0),
		[]domain.GeoPoint{point(-73.967696, 40.781821, "Central Park", 1), point(-118.324396, 34.097984, "Hollywood", 5)},
		dates(time.March, time.August, time.November), leadGuide, guide2)
	tours := []*domain.Tour{forest, sea, snow, city}

	review := func(text string, rating float64, t *domain.Tour, u *domain.User) *domain.Review {
		return &domain.Review{
			ID:        primitive.NewObjectID(),
			Review:    text,
			Rating:    rating,
			Tour:      t.ID,
			User:      u.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	reviews := []*domain.Review{
		review("Cras mollis nisi parturient mi nec aliquet suspendisse sagittis eros condimentum scelerisque taciti mattis praesent feugiat eu nascetur a tincidunt", 5, forest, regular),
		review("Tempus curabitur faucibus auctor bibendum duis gravida tincidunt litora himenaeos facilisis vivamus vehicula potenti semper fusce suspendisse sagittis!", 4, forest, regular2),
		review("Convallis turpis porttitor sapien ad urna efficitur dui vivamus in praesent nulla hac non potenti!", 5, sea, regular),
		review("Quisque egestas faucibus primis ridiculus mi felis tristique curabitur habitasse vehicula", 4, snow, regular2),
	}

	for _, t := range tours {
		var sum float64
		var n int
		for _, r := range reviews {
			if r.Tour == t.ID {
				sum += r.Rating
				n++
			}
		}
		if n > 0 {
			t.RatingsQuantity = n
			t.RatingsAverage = domain.RoundRating(sum / float64(n))
		}
	}

	collections := map[string][]interface{}{
		Users:   toDocs(users),
		Tours:   toDocs(tours),
		Reviews: toDocs(reviews),
	}

	for k, v := range collections {
		res, err := db.Collection(k).InsertMany(ctx, v)
		if err != nil {
			return fmt.Errorf("can't seed %s: %w", k, err)
		}
		if len(res.InsertedIDs) != len(v) {
			return fmt.Errorf("%s seeded partially: %d of %d", k, len(res.InsertedIDs), len(v))
		}
	}

	return nil
}

// DeleteAll removes all development data
func DeleteAll(ctx context.Context, db *mongo.Database) error {
	for _, k := range []string{Tours, Users, Reviews, Bookings} {
		if _, err := db.Collection(k).DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("can't delete %s: %w", k, err)
		}
	}

	return nil
}

func toDocs[T any](items []T) []interface{} {
	docs := make([]interface{}, 0, len(items))
	for _, v := range items {
		docs = append(docs, v)
	}
	return docs
}
