package jsonquery

import (
	"encoding/json"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

const sampleQuery = `{
  "limit": 10,
  "offset": 5,
  "sortOrder": ["-rating", "+date"],
  "filter": {"type": "logOp", "op": "AND", "operands": [
    {"type": "string", "field": "status", "value": "ACTIVE"},
    {"type": "longRange", "field": "qty", "min": 1}
  ]},
  "fields": ["name", "rating"]
}`

func TestFromJSON(t *testing.T) {
	q, err := FromJSON([]byte(sampleQuery))
	require.NoError(t, err)

	assert.Equal(t, 10, *q.Limit)
	assert.Equal(t, 5, *q.Offset)
	assert.Equal(t, "-rating,+date", q.SortOrder.String())
	assert.Equal(t, []string{"name", "rating"}, q.Fields)
	require.IsType(t, &filter.LogOpFilter{}, q.Filter)
	assert.Len(t, q.Filter.(*filter.LogOpFilter).Operands, 2)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, sampleQuery, string(data))
}

func TestFromJSONUnknownFilterType(t *testing.T) {
	_, err := FromJSON([]byte(`{"filter": {"type": "regex", "field": "a"}}`))
	require.Error(t, err)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse))

	_, err = FromJSON([]byte(`{"sortOrder": [""]}`))
	require.Error(t, err)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse))

	_, err = FromJSON([]byte(`{"limit": "ten"}`))
	require.Error(t, err)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse))
}

func TestMergeFilters(t *testing.T) {
	f1 := &filter.StringFilter{Field: "status", Value: "active"}
	f2 := &filter.LongRangeFilter{Field: "qty", Min: filter.Ptr[int64](5)}

	q := &GetQuery{Filter: f1}
	q.Merge(&GetQuery{Filter: f2})

	merged := filter.MustCompile(q.Filter, Options{})
	p1 := filter.MustCompile(f1, Options{})
	p2 := filter.MustCompile(f2, Options{})
	for _, r := range []any{
		map[string]any{"status": "active", "qty": 10},
		map[string]any{"status": "active", "qty": 1},
		map[string]any{"status": "gone", "qty": 10},
		map[string]any{},
	} {
		assert.Equal(t, p1(r) && p2(r), merged(r), "%v", r)
	}

	only := &GetQuery{}
	only.Merge(&GetQuery{Filter: f2})
	assert.Same(t, f2, only.Filter)
}

func TestMergePolicy(t *testing.T) {
	a := &GetQuery{
		Limit:     intp(20),
		Offset:    intp(5),
		SortOrder: sortorder.MustFromJSON("-rating"),
		Fields:    []string{"name", "id"},
		Min:       strp("b"),
	}
	b := &GetQuery{
		Limit:     intp(10),
		Offset:    intp(2),
		SortOrder: sortorder.MustFromJSON("+rating", "id"),
		Fields:    []string{"id", "price"},
		Min:       strp("a"),
		Max:       strp("m"),
	}
	a.Merge(b)

	assert.Equal(t, 10, *a.Limit)
	assert.Equal(t, 5, *a.Offset)
	assert.Equal(t, "-rating,+id", a.SortOrder.String())
	assert.Equal(t, []string{"name", "id", "price"}, a.Fields)
	assert.Equal(t, "b", *a.Min)
	assert.Equal(t, "m", *a.Max)

	c := &GetQuery{}
	c.Merge(&GetQuery{Limit: intp(3)})
	assert.Equal(t, 3, *c.Limit)
	assert.Nil(t, c.Offset)
}

func TestMergeDoesNotTouchOther(t *testing.T) {
	shared := sortorder.MustFromJSON("a")
	fields := []string{"x"}
	limit := intp(4)

	a := &GetQuery{SortOrder: shared, Fields: fields, Limit: limit}
	b := &GetQuery{SortOrder: shared, Fields: fields, Limit: limit}

	a.Merge(&GetQuery{SortOrder: sortorder.MustFromJSON("b"), Fields: []string{"y"}, Limit: intp(2)})
	a.Optimize()

	assert.Equal(t, "+a", b.SortOrder.String())
	assert.Equal(t, []string{"x"}, b.Fields)
	assert.Equal(t, 4, *b.Limit)
	assert.Equal(t, "+a,+b", a.SortOrder.String())
	assert.Equal(t, 2, *a.Limit)

	// a merged query keeps its own copy of a sort order it adopted
	d := &GetQuery{}
	d.Merge(b)
	d.SortOrder.SortFields[0].Ascending = false
	assert.Equal(t, "+a", b.SortOrder.String())
}

func TestOptimize(t *testing.T) {
	a := &filter.StringFilter{Field: "a", Value: "1"}
	b := &filter.StringFilter{Field: "b", Value: "2"}
	c := &filter.StringFilter{Field: "c", Value: "3"}

	q := &GetQuery{
		Filter:    filter.And(filter.And(a, b), c),
		SortOrder: sortorder.MustFromJSON("x", "-y", "-x"),
	}
	q.Optimize()
	assert.Equal(t, filter.And(a, b, c), q.Filter)
	assert.Equal(t, "+x,-y", q.SortOrder.String())

	q = &GetQuery{Filter: filter.Or(a)}
	q.Optimize()
	assert.Same(t, a, q.Filter)
}

func TestQueryParams(t *testing.T) {
	_, ok, err := (&GetQuery{}).QueryParams()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = (&GetQuery{SortOrder: &sortorder.SortOrder{}}).QueryString()
	require.NoError(t, err)
	assert.False(t, ok)

	q := &GetQuery{
		Limit:     intp(10),
		Offset:    intp(0),
		SortOrder: sortorder.MustFromJSON("-rating", "date"),
		Filter:    &filter.StringFilter{Field: "status", Value: "a b"},
		Fields:    []string{"name", "id"},
		Max:       strp("k"),
	}
	v, ok, err := q.QueryParams()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10", v.Get("limit"))
	assert.Equal(t, "0", v.Get("offset"))
	assert.Equal(t, "-rating,+date", v.Get("sort"))
	assert.JSONEq(t, `{"type":"string","field":"status","value":"a b"}`, v.Get("filter"))
	assert.Equal(t, "name,id", v.Get("fields"))
	assert.Equal(t, "k", v.Get("max"))
	assert.False(t, v.Has("min"))

	s1, _, err := q.QueryString()
	require.NoError(t, err)
	s2, _, err := q.Clone().QueryString()
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	parsed, err := url.ParseQuery(s1)
	require.NoError(t, err)
	back, err := ParseQueryParams(parsed)
	require.NoError(t, err)
	assert.Equal(t, q, back)
}

func TestParseQueryParamsErrors(t *testing.T) {
	for _, in := range []string{"limit=x", "offset=-1", "sort=-", "filter=%7B%7D"} {
		v, err := url.ParseQuery(in)
		require.NoError(t, err)
		_, err = ParseQueryParams(v)
		require.Error(t, err, in)
		assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse), in)
	}
}

func TestParseGetQuery(t *testing.T) {
	q, err := ParseGetQuery([]byte(sampleQuery))
	require.NoError(t, err)
	assert.Equal(t, 10, *q.Limit)

	for _, in := range []string{
		`{"limit": -1}`,
		`{"limit": 1.5}`,
		`{"unknown": true}`,
		`{"filter": {"field": "a"}}`,
		`{"filter": {"type": "regex", "field": "a"}}`,
		`{"filter": {"type": "logOp", "op": "AND", "operands": []}}`,
		`{"fields": [""]}`,
	} {
		_, err := ParseGetQuery([]byte(in))
		require.Error(t, err, in)
		assert.True(t, jqerrors.IsKind(err, jqerrors.ErrSchema), in)
	}

	_, err = ParseGetQuery([]byte(`{`))
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	records := []any{
		map[string]any{"id": 1, "name": "Apple", "status": "active", "rating": 4},
		map[string]any{"id": 2, "name": "Banana", "status": "ACTIVE", "rating": 5},
		map[string]any{"id": 3, "name": "Cherry", "status": "sold", "rating": 3},
		map[string]any{"id": 4, "name": "Date", "status": "active"},
		map[string]any{"id": 5, "name": "Elder", "status": "active", "rating": 4},
	}
	q := &GetQuery{
		Filter:    &filter.StringFilter{Field: "status", Value: "active"},
		SortOrder: sortorder.MustFromJSON("-rating"),
		Offset:    intp(1),
		Limit:     intp(2),
		Fields:    []string{"name", "rating"},
	}
	got, err := q.Apply(records, Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"name": "Apple", "rating": 4},
		map[string]any{"name": "Elder", "rating": 4},
	}, got)

	got, err = (&GetQuery{}).Apply(records, Options{})
	require.NoError(t, err)
	assert.Equal(t, records, got)

	got, err = (&GetQuery{Offset: intp(10)}).Apply(records, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = (&GetQuery{Filter: &filter.StringFilter{Field: "status", Value: "active"}}).Apply(records, Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestApplyLimitNearMaxInt(t *testing.T) {
	q, err := FromJSON([]byte(`{"limit": 9223372036854775807, "offset": 1}`))
	require.NoError(t, err)

	records := []any{map[string]any{"id": 1}, map[string]any{"id": 2}}
	var got []any
	require.NotPanics(t, func() {
		got, err = q.Apply(records, Options{})
	})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": 2}}, got)

	assert.Equal(t, []int{2, 3}, window([]int{1, 2, 3}, intp(1), intp(math.MaxInt)))
	assert.Empty(t, window([]int{1, 2, 3}, intp(math.MaxInt), intp(math.MaxInt)))
}

func TestApplyProjectionSkipsMissing(t *testing.T) {
	got, err := (&GetQuery{Fields: []string{"a", "b.c"}}).Apply([]any{
		map[string]any{"a": 1, "b": map[string]any{"c": false}},
		map[string]any{"z": 1},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"a": 1, "b.c": false},
		map[string]any{},
	}, got)
}
