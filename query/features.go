// Package query translates URL query strings into MongoDB read requests:
// filter, sort, projection and pagination. It never talks to the database.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Pagination defaults
const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

// VersionField is the internal document version, hidden from default output
const VersionField = "__v"

// ErrInvalidQuery is returned for query strings that can't be translated
var ErrInvalidQuery = errors.New("invalid query")

var reserved = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var operators = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

var (
	filterKey = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)(?:\[([A-Za-z]+)\])?$`)
	fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// Kind tells how raw query value is cast before it gets into the filter
type Kind int

// Supported kinds
const (
	String Kind = iota
	Number
	Integer
	Bool
	Date
	ObjectID
)

// Schema describes queryable fields of a collection
type Schema struct {
	Fields map[string]Kind
	// Hidden fields are never projected in
	Hidden []string
	// Whitelist fields may repeat in query string, repeated values become $in
	Whitelist []string
}

// Request is a shaped collection read
type Request struct {
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Page       int64
	Limit      int64
	Skip       int64

	include []string
	exclude []string
}

// Apply translates query values into read request on top of base request.
// Base filter conditions take precedence over the parsed ones.
func Apply(base Request, values url.Values, schema Schema) (*Request, error) {
	f := &features{
		req:    base,
		values: values,
		schema: schema,
	}

	if err := f.filter(); err != nil {
		return nil, err
	}
	if err := f.sort(); err != nil {
		return nil, err
	}
	if err := f.limitFields(); err != nil {
		return nil, err
	}
	f.paginate()

	return &f.req, nil
}

// FindOptions converts request to driver options
func (r *Request) FindOptions() *options.FindOptions {
	opts := options.Find().SetSkip(r.Skip)
	if r.Limit > 0 {
		opts.SetLimit(r.Limit)
	}
	if len(r.Sort) > 0 {
		opts.SetSort(r.Sort)
	}
	if len(r.Projection) > 0 {
		opts.SetProjection(r.Projection)
	}
	return opts
}

type features struct {
	req    Request
	values url.Values
	schema Schema
}

type condition struct {
	equal interface{}
	isEq  bool
	ops   bson.D
}

func (f *features) filter() error {
	preset := make(map[string]struct{}, len(f.req.Filter))
	for _, e := range f.req.Filter {
		preset[e.Key] = struct{}{}
	}

	conditions := make(map[string]*condition)
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := reserved[key]; ok {
			continue
		}
		raw := f.values[key]
		if len(raw) == 0 {
			continue
		}

		m := filterKey.FindStringSubmatch(key)
		if m == nil {
			return fmt.Errorf("%w: unsupported filter key %q", ErrInvalidQuery, key)
		}
		field, op := m[1], m[2]
		if _, ok := preset[field]; ok || f.hidden(field) {
			continue
		}

		c, ok := conditions[field]
		if !ok {
			c = new(condition)
			conditions[field] = c
		}

		if op == "" {
			v, err := f.equality(field, raw)
			if err != nil {
				return err
			}
			if len(c.ops) > 0 {
				return fmt.Errorf("%w: %s mixes equality and range", ErrInvalidQuery, field)
			}
			c.equal, c.isEq = v, true
			continue
		}

		mongoOp, ok := operators[op]
		if !ok {
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, op)
		}
		if c.isEq {
			return fmt.Errorf("%w: %s mixes equality and range", ErrInvalidQuery, field)
		}
		v, err := f.cast(field, raw[len(raw)-1])
		if err != nil {
			return err
		}
		c.ops = append(c.ops, bson.E{Key: mongoOp, Value: v})
	}

	fields := make([]string, 0, len(conditions))
	for k := range conditions {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		c := conditions[field]
		if c.isEq {
			f.req.Filter = append(f.req.Filter, bson.E{Key: field, Value: c.equal})
			continue
		}
		sort.Slice(c.ops, func(i, j int) bool { return c.ops[i].Key < c.ops[j].Key })
		f.req.Filter = append(f.req.Filter, bson.E{Key: field, Value: c.ops})
	}

	return nil
}

func (f *features) equality(field string, raw []string) (interface{}, error) {
	if len(raw) > 1 && f.whitelisted(field) {
		in := make(bson.A, 0, len(raw))
		for _, r := range raw {
			v, err := f.cast(field, r)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
		return bson.D{{Key: "$in", Value: in}}, nil
	}

	return f.cast(field, raw[len(raw)-1])
}

func (f *features) whitelisted(field string) bool {
	for _, w := range f.schema.Whitelist {
		if w == field {
			return true
		}
	}
	return false
}

func (f *features) cast(field, raw string) (interface{}, error) {
	kind, ok := f.schema.Fields[field]
	if !ok {
		return raw, nil
	}

	var (
		v   interface{}
		err error
	)
	switch kind {
	case Number:
		v, err = strconv.ParseFloat(raw, 64)
	case Integer:
		v, err = strconv.ParseInt(raw, 10, 64)
	case Bool:
		v, err = strconv.ParseBool(raw)
	case Date:
		v, err = parseDate(raw)
	case ObjectID:
		v, err = primitive.ObjectIDFromHex(raw)
	default:
		v = raw
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %s", ErrInvalidQuery, field, raw)
	}

	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	return t.UTC(), err
}

func (f *features) sort() error {
	f.req.Sort = nil

	if s := last(f.values, "sort"); s != "" {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			order := 1
			if strings.HasPrefix(part, "-") {
				order = -1
				part = part[1:]
			}
			if !fieldName.MatchString(part) {
				return fmt.Errorf("%w: can't sort by %q", ErrInvalidQuery, part)
			}
			if f.hidden(part) {
				continue
			}
			f.req.Sort = append(f.req.Sort, bson.E{Key: part, Value: order})
		}
	}

	if len(f.req.Sort) == 0 {
		// newest first, _id keeps pages stable for equal timestamps
		f.req.Sort = bson.D{
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: 1},
		}
	}

	return nil
}

func (f *features) limitFields() error {
	f.req.Projection = nil
	f.req.include, f.req.exclude = nil, nil

	var include, exclude []string
	if s := last(f.values, "fields"); s != "" {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, "-") {
				exclude = append(exclude, part[1:])
				continue
			}
			include = append(include, part)
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		return fmt.Errorf("%w: fields can't mix inclusion and exclusion", ErrInvalidQuery)
	}

	for _, name := range append(include, exclude...) {
		if !fieldName.MatchString(name) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
		}
	}

	for _, name := range include {
		if f.hidden(name) {
			continue
		}
		f.req.include = append(f.req.include, name)
		f.req.Projection = append(f.req.Projection, bson.E{Key: name, Value: 1})
	}
	if len(f.req.include) > 0 {
		return nil
	}

	if len(exclude) == 0 {
		exclude = []string{VersionField}
	}
	for _, name := range f.schema.Hidden {
		if !contains(exclude, name) {
			exclude = append(exclude, name)
		}
	}
	for _, name := range exclude {
		f.req.exclude = append(f.req.exclude, name)
		f.req.Projection = append(f.req.Projection, bson.E{Key: name, Value: 0})
	}

	return nil
}

func (f *features) hidden(name string) bool {
	return contains(f.schema.Hidden, name)
}

func (f *features) paginate() {
	page := positive(last(f.values, "page"), DefaultPage)
	limit := positive(last(f.values, "limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}

	f.req.Page = page
	f.req.Limit = limit
	f.req.Skip = (page - 1) * limit
}

func positive(raw string, def int64) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func last(values url.Values, key string) string {
	v := values[key]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
