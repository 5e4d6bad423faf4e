package store_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/store"
	"github.com/semka95/natours/backend/tests"
)

func TestStatusCheck(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/api/v1/status", nil)

		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/v1/status")

		handler := store.StatusHandler{
			DB: mt.Client.Database("natours"),
		}

		err := handler.StatusCheckHandler(c)
		assert.NoError(t, err)

		body := new(domain.Response)
		err = json.NewDecoder(rec.Body).Decode(body)
		require.NoError(t, err)
		assert.Equal(mt, http.StatusOK, rec.Code)
		assert.Equal(mt, domain.StatusSuccess, body.Status)
	})
	mt.Run("error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    1,
			Message: "test",
			Name:    "123",
			Labels:  []string{},
		}))
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/api/v1/status", nil)

		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/v1/status")

		handler := store.StatusHandler{
			DB: mt.Client.Database("natours"),
		}

		err := handler.StatusCheckHandler(c)
		assert.NoError(t, err)

		body := new(domain.ResponseError)
		err = json.NewDecoder(rec.Body).Decode(body)
		require.NoError(t, err)
		assert.Equal(mt, http.StatusInternalServerError, rec.Code)
		assert.Equal(mt, "(123) test", body.Message)
	})
}

func TestStructToDoc(t *testing.T) {
	doc, err := store.StructToDoc(tests.NewTour())
	require.NoError(t, err)

	m := doc.Map()
	assert.Equal(t, "the-forest-hiker", m["slug"])
	assert.NotContains(t, m, "durationWeeks")
	assert.Contains(t, m, "__v")
}

func TestWriteError(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: `E11000 duplicate key error collection: natours.tours index: name_1 dup key: { name: "The Forest Hiker" }`,
		}))

		_, err := mt.Coll.InsertOne(mtest.Background, tests.NewTour())
		require.Error(mt, err)

		err = store.WriteError(err, "tour store error")
		var appErr *domain.AppError
		require.ErrorAs(mt, err, &appErr)
		assert.ErrorIs(mt, err, domain.ErrConflict)
		assert.Equal(mt, `Duplicate field value: "The Forest Hiker". Please use another value!`, appErr.Message)
	})

	t.Run("other error", func(t *testing.T) {
		err := store.WriteError(errors.New("boom"), "tour store error")
		assert.ErrorIs(t, err, domain.ErrInternalServerError)
	})
}

func TestFindCommand(t *testing.T) {
	t.Run("no request", func(t *testing.T) {
		cmd := store.FindCommand(store.Tours, nil, nil)
		assert.Equal(t, bson.D{{Key: "find", Value: "tours"}, {Key: "filter", Value: bson.D{}}}, cmd)
	})

	t.Run("shaped read", func(t *testing.T) {
		q := &query.Request{
			Sort:       bson.D{{Key: "price", Value: 1}},
			Projection: bson.D{{Key: "name", Value: 1}},
			Skip:       10,
			Limit:      5,
		}
		cmd := store.FindCommand(store.Tours, bson.D{{Key: "difficulty", Value: "easy"}}, q)

		m := cmd.Map()
		assert.Equal(t, "tours", m["find"])
		assert.Equal(t, q.Sort, m["sort"])
		assert.Equal(t, q.Projection, m["projection"])
		assert.Equal(t, int64(10), m["skip"])
		assert.Equal(t, int64(5), m["limit"])
	})
}

func TestMergeFilter(t *testing.T) {
	required := bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}
	requested := bson.D{{Key: "secretTour", Value: "true"}}

	assert.Equal(t, bson.D{}, store.MergeFilter(nil, nil))
	assert.Equal(t, required, store.MergeFilter(required, nil))
	assert.Equal(t, requested, store.MergeFilter(nil, requested))
	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{required, requested}}}, store.MergeFilter(required, requested))
}

func TestUpdateFields(t *testing.T) {
	tour := tests.NewTour()
	tour.Price = 450
	tour.PriceDiscount = 0

	update, err := store.UpdateFields(tour, []string{"_id", "price", "priceDiscount", "__v"})
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "$set", Value: bson.D{{Key: "price", Value: 450.0}}},
		{Key: "$unset", Value: bson.D{{Key: "priceDiscount", Value: ""}}},
		{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}},
	}, update)
}

func TestUpdateFields_NoFields(t *testing.T) {
	update, err := store.UpdateFields(tests.NewTour(), nil)
	require.NoError(t, err)

	assert.Equal(t, bson.D{{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}}}, update)
}

func TestUpdateAll(t *testing.T) {
	update, err := store.UpdateAll(tests.NewBooking(), "createdAt")
	require.NoError(t, err)
	update = store.Unset(update, "legacy")

	require.Len(t, update, 3)
	assert.Equal(t, "$set", update[0].Key)
	set := update[0].Value.(bson.D).Map()
	assert.NotContains(t, set, "_id")
	assert.NotContains(t, set, "__v")
	assert.NotContains(t, set, "createdAt")
	assert.Contains(t, set, "price")
	assert.Equal(t, "$inc", update[1].Key)
	assert.Equal(t, bson.D{{Key: "legacy", Value: ""}}, update[2].Value)
}
