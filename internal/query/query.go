// Package query turns URL query parameters into a filtered, sorted,
// paginated read of one Mongo collection.
//
// Operators are parsed per field from keys shaped like "tuition[lte]".
// There is deliberately no string substitution over a serialized filter:
// a field value that happens to contain "gt" or "in" is just a value.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 100
)

// Keys consumed as directives rather than filter fields.
var reserved = map[string]struct{}{
	"select": {},
	"sort":   {},
	"page":   {},
	"limit":  {},
}

type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
	OpNe  Op = "ne"
)

var knownOps = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
	"ne":  OpNe,
}

type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

type SortField struct {
	Field string
	Desc  bool
}

type ListQuery struct {
	Conditions []Condition
	Select     []string
	Sort       []SortField
	Page       int
	Limit      int
}

// Parse never fails: malformed directives fall back to defaults and
// unknown operator suffixes are treated as part of the field name.
func Parse(values url.Values) ListQuery {
	q := ListQuery{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}

		if _, ok := reserved[key]; ok {
			continue
		}

		for _, raw := range vals {
			q.Conditions = append(q.Conditions, parseCondition(key, raw))
		}
	}

	if sel := values.Get("select"); sel != "" {
		for _, f := range strings.Split(sel, ",") {
			f = strings.TrimSpace(f)

			if f != "" {
				q.Select = append(q.Select, f)
			}
		}
	}

	if sort := values.Get("sort"); sort != "" {
		for _, f := range strings.Split(sort, ",") {
			f = strings.TrimSpace(f)

			if f == "" {
				continue
			}

			if strings.HasPrefix(f, "-") {
				q.Sort = append(q.Sort, SortField{Field: f[1:], Desc: true})
			} else {
				q.Sort = append(q.Sort, SortField{Field: f})
			}
		}
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}

	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		q.Limit = limit
	}

	return q
}

func parseCondition(key, raw string) Condition {
	field, opName, ok := splitOperator(key)

	if !ok {
		return Condition{Field: key, Op: OpEq, Value: coerce(raw)}
	}

	op := knownOps[opName]

	if op == OpIn {
		parts := strings.Split(raw, ",")
		vals := make([]interface{}, 0, len(parts))

		for _, p := range parts {
			vals = append(vals, coerce(strings.TrimSpace(p)))
		}

		return Condition{Field: field, Op: op, Value: vals}
	}

	return Condition{Field: field, Op: op, Value: coerce(raw)}
}

// splitOperator pulls a trailing "[op]" off a key when op is recognized.
func splitOperator(key string) (field, op string, ok bool) {
	if !strings.HasSuffix(key, "]") {
		return "", "", false
	}

	open := strings.LastIndex(key, "[")

	if open <= 0 {
		return "", "", false
	}

	op = key[open+1 : len(key)-1]

	if _, known := knownOps[op]; !known {
		return "", "", false
	}

	return key[:open], op, true
}

// coerce maps numeric and boolean literals onto their Mongo-comparable
// types; anything else stays a string.
func coerce(raw string) interface{} {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}

	return raw
}

// Filter builds the Mongo filter document, merging several comparison
// operators on the same field into one sub-document.
//
// When a field carries both a bare equality and operator conditions,
// the equality wins regardless of the order the URL parameters were
// parsed in. Nested-route scoping via With relies on that: a client
// cannot loosen the parent filter with an operator on the same field.
func (q ListQuery) Filter() bson.M {
	filter := bson.M{}

	for _, c := range q.Conditions {
		if c.Op == OpEq {
			continue
		}

		sub, ok := filter[c.Field].(bson.M)

		if !ok {
			sub = bson.M{}
			filter[c.Field] = sub
		}

		sub["$"+string(c.Op)] = c.Value
	}

	for _, c := range q.Conditions {
		if c.Op == OpEq {
			filter[c.Field] = c.Value
		}
	}

	return filter
}

// SortSpec defaults to newest-created-first.
func (q ListQuery) SortSpec() bson.D {
	if len(q.Sort) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}

	spec := make(bson.D, 0, len(q.Sort))

	for _, s := range q.Sort {
		dir := 1

		if s.Desc {
			dir = -1
		}

		spec = append(spec, bson.E{Key: s.Field, Value: dir})
	}

	return spec
}

func (q ListQuery) Projection() bson.D {
	if len(q.Select) == 0 {
		return nil
	}

	proj := make(bson.D, 0, len(q.Select))

	for _, f := range q.Select {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}

	return proj
}

func (q ListQuery) Skip() int64 {
	return int64(q.Page-1) * int64(q.Limit)
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate derives next/prev descriptors from the total number of
// documents matching the active filter.
func (q ListQuery) Paginate(total int64) Pagination {
	var p Pagination

	if q.Skip()+int64(q.Limit) < total {
		p.Next = &PageRef{Page: q.Page + 1, Limit: q.Limit}
	}

	if q.Skip() > 0 {
		p.Prev = &PageRef{Page: q.Page - 1, Limit: q.Limit}
	}

	return p
}

// With returns a copy with one extra equality condition, used by handlers
// to scope a list to a parent resource (e.g. courses of one bootcamp).
func (q ListQuery) With(field string, value interface{}) ListQuery {
	out := q
	out.Conditions = append(append([]Condition(nil), q.Conditions...), Condition{
		Field: field,
		Op:    OpEq,
		Value: value,
	})

	return out
}
