package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/query"
)

// Collection names
const (
	Tours    = "tours"
	Users    = "users"
	Reviews  = "reviews"
	Bookings = "bookings"
)

// MongoConfig stores MongoDB configuration
type MongoConfig struct {
	Name     string `yaml:"name" env:"MONGO_NAME"`
	User     string `yaml:"user" env:"MONGO_USER"`
	Password string `yaml:"pwd" env:"MONGO_PWD"`
	HostPort string `yaml:"host_port" env:"MONGO_HOST_PORT"`
}

// Open creates MongoDB client
func Open(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	uri := url.URL{
		Scheme: "mongodb",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.HostPort,
	}

	if cfg.User == "" || cfg.Password == "" {
		uri.User = nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri.String()))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection problem: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping error: %w", err)
	}
	logger.Info("mongodb ping: ok", zap.String("db", cfg.Name))

	return client, nil
}

// StatusHandler represent the http handler for status check
type StatusHandler struct {
	DB *mongo.Database
}

// NewStatusHandler will initialize the /status endpoint
func NewStatusHandler(g *echo.Group, db *mongo.Database) {
	handler := &StatusHandler{
		DB: db,
	}

	g.GET("/status", handler.StatusCheckHandler)
}

// StatusCheckHandler will get status of the database
func (h *StatusHandler) StatusCheckHandler(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := StatusCheck(ctx, h.DB)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ResponseError{
			Status:  domain.StatusError,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, domain.NewResponse("status", res))
}

// StatusCheck gets database status and metrics
func StatusCheck(ctx context.Context, db *mongo.Database) (*bson.M, error) {
	statCmd := bson.D{
		primitive.E{Key: "serverStatus", Value: 1},
		primitive.E{Key: "metrics", Value: 1},
	}

	result := new(bson.M)
	if err := db.RunCommand(ctx, statCmd).Decode(result); err != nil {
		return nil, err
	}

	return result, nil
}

// StructToDoc transforms any struct to bson.D document
func StructToDoc(v interface{}) (doc *bson.D, err error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return doc, err
	}

	err = bson.Unmarshal(data, &doc)
	return doc, err
}

// VersionKey is the document version field, incremented by every update
const VersionKey = "__v"

// UpdateFields builds update document from the listed fields of v. Listed
// fields missing from the marshalled struct (empty omitempty values) are
// unset, version is incremented.
func UpdateFields(v interface{}, fields []string) (bson.D, error) {
	doc, err := StructToDoc(v)
	if err != nil {
		return nil, err
	}
	values := doc.Map()

	set, unset := bson.D{}, bson.D{}
	for _, f := range fields {
		if f == "_id" || f == VersionKey {
			continue
		}
		if val, ok := values[f]; ok {
			set = append(set, primitive.E{Key: f, Value: val})
		} else {
			unset = append(unset, primitive.E{Key: f, Value: ""})
		}
	}

	return updateDoc(set, unset), nil
}

// UpdateAll builds update document setting every stored field of v except
// _id, version and skipped fields, version is incremented.
func UpdateAll(v interface{}, skip ...string) (bson.D, error) {
	doc, err := StructToDoc(v)
	if err != nil {
		return nil, err
	}

	set := bson.D{}
	for _, e := range *doc {
		if e.Key == "_id" || e.Key == VersionKey || contains(skip, e.Key) {
			continue
		}
		set = append(set, e)
	}

	return updateDoc(set, nil), nil
}

// Unset adds fields to $unset of update built by UpdateAll or UpdateFields
func Unset(update bson.D, fields ...string) bson.D {
	if len(fields) == 0 {
		return update
	}

	unset := bson.D{}
	for _, f := range fields {
		unset = append(unset, primitive.E{Key: f, Value: ""})
	}

	for i, e := range update {
		if e.Key == "$unset" {
			update[i].Value = append(e.Value.(bson.D), unset...)
			return update
		}
	}
	return append(update, primitive.E{Key: "$unset", Value: unset})
}

func updateDoc(set, unset bson.D) bson.D {
	update := bson.D{}
	if len(set) > 0 {
		update = append(update, primitive.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, primitive.E{Key: "$unset", Value: unset})
	}
	return append(update, primitive.E{Key: "$inc", Value: bson.D{primitive.E{Key: VersionKey, Value: 1}}})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DecodeAll reads every document of the cursor and closes it
func DecodeAll[T any](ctx context.Context, cur *mongo.Cursor, logger *zap.Logger) ([]*T, error) {
	defer func(ctx context.Context) {
		if err := cur.Close(ctx); err != nil && logger != nil {
			logger.Error("Can't close cursor: ", zap.Error(err))
		}
	}(ctx)

	result := make([]*T, 0)
	for cur.Next(ctx) {
		elem := new(T)
		if err := cur.Decode(elem); err != nil {
			return nil, fmt.Errorf("can't unmarshal document: %w", err)
		}

		result = append(result, elem)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return result, nil
}

// FindCommand builds find command executing shaped read on collection
func FindCommand(collection string, filter bson.D, q *query.Request) bson.D {
	if filter == nil {
		filter = bson.D{}
	}

	command := bson.D{
		primitive.E{Key: "find", Value: collection},
		primitive.E{Key: "filter", Value: filter},
	}
	if q == nil {
		return command
	}

	if len(q.Sort) > 0 {
		command = append(command, primitive.E{Key: "sort", Value: q.Sort})
	}
	if len(q.Projection) > 0 {
		command = append(command, primitive.E{Key: "projection", Value: q.Projection})
	}
	if q.Skip > 0 {
		command = append(command, primitive.E{Key: "skip", Value: q.Skip})
	}
	if q.Limit > 0 {
		command = append(command, primitive.E{Key: "limit", Value: q.Limit})
	}

	return command
}

// MergeFilter joins conditions every read must satisfy with requested filter
func MergeFilter(required, requested bson.D) bson.D {
	switch {
	case len(requested) == 0 && len(required) == 0:
		return bson.D{}
	case len(requested) == 0:
		return required
	case len(required) == 0:
		return requested
	}

	return bson.D{primitive.E{Key: "$and", Value: bson.A{required, requested}}}
}

var dupValue = regexp.MustCompile(`dup key: \{ ?[^:]*: ("(?:[^"\\]|\\.)*"|[^ }]+)`)

// WriteError converts driver write errors to domain errors. Unique index
// violations become operational duplicate field errors.
func WriteError(err error, what string) error {
	if mongo.IsDuplicateKeyError(err) {
		value := "value"
		if m := dupValue.FindStringSubmatch(err.Error()); m != nil {
			value = m[1]
		}
		return domain.DuplicateField(value)
	}

	return fmt.Errorf("%s: %w: %s", what, domain.ErrInternalServerError, err.Error())
}
