package filter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

func records() []map[string]any {
	return []map[string]any{
		{"name": "Apple", "status": "active", "price": 1.5, "qty": 10, "tags": map[string]any{"color": "Red"}, "added": "2024-01-10T00:00:00Z", "organic": true},
		{"name": "Banana", "status": "ACTIVE", "price": 0.25, "qty": 120, "tags": map[string]any{"color": "yellow"}, "added": "2024-02-01T00:00:00Z", "organic": false},
		{"name": "Cherry", "status": "sold", "price": 7.0, "qty": 0, "deletedAt": "2024-03-01T00:00:00Z"},
		{"name": "Are", "status": nil},
		{},
	}
}

func TestStringCaseSensitivity(t *testing.T) {
	f := &StringFilter{Field: "status", Value: "ACTIVE"}
	rec := map[string]any{"status": "active"}

	assert.True(t, MustCompile(f, Options{})(rec))
	assert.False(t, MustCompile(f, Options{CaseSensitive: true})(rec))
}

func TestLike(t *testing.T) {
	p := MustCompile(&LikeFilter{Field: "name", Pattern: "A%e"}, Options{})
	assert.True(t, p(map[string]any{"name": "Apple"}))
	assert.True(t, p(map[string]any{"name": "Are"}))
	assert.False(t, p(map[string]any{"name": "Banana"}))
	assert.False(t, p(map[string]any{"name": "Apples"}))

	p = MustCompile(&LikeFilter{Field: "name", Pattern: "B_n%"}, Options{})
	assert.True(t, p(map[string]any{"name": "banana"}))

	p = MustCompile(&LikeFilter{Field: "code", Pattern: `50\%`}, Options{})
	assert.True(t, p(map[string]any{"code": "50%"}))
	assert.False(t, p(map[string]any{"code": "500"}))

	p = MustCompile(&LikeFilter{Field: "code", Pattern: "a.c"}, Options{})
	assert.False(t, p(map[string]any{"code": "abc"}))
}

func TestNull(t *testing.T) {
	isNull := MustCompile(&NullFilter{Field: "deletedAt", IsNull: true}, Options{})
	notNull := MustCompile(&NullFilter{Field: "deletedAt", IsNull: false}, Options{})

	assert.True(t, isNull(map[string]any{}))
	assert.True(t, isNull(map[string]any{"deletedAt": nil}))
	assert.False(t, isNull(map[string]any{"deletedAt": "2024-03-01"}))
	assert.False(t, isNull(map[string]any{"deletedAt": false}))

	assert.True(t, notNull(map[string]any{"deletedAt": false}))
	assert.False(t, notNull(map[string]any{}))
}

func TestLeaves(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"boolean", &BooleanFilter{Field: "organic", Value: false}, []string{"Banana"}},
		{"contains", &ContainsStringFilter{Field: "name", Value: "AN"}, []string{"Banana"}},
		{"enum", &StringEnumFilter{Field: "status", Values: []string{"Active", "sold"}}, []string{"Apple", "Banana", "Cherry"}},
		{"map", &StringMapFilter{Field: "tags", Key: "color", Value: "red"}, []string{"Apple"}},
		{"string range", &StringRangeFilter{Field: "name", Min: Ptr("b"), Max: Ptr("cherry")}, []string{"Banana", "Cherry"}},
		{"string range open", &StringRangeFilter{Field: "name", Max: Ptr("Apple")}, []string{"Apple"}},
		{"long enum", &LongEnumFilter{Field: "qty", Values: []int64{0, 10}}, []string{"Apple", "Cherry"}},
		{"long range", &LongRangeFilter{Field: "qty", Min: Ptr[int64](10)}, []string{"Apple", "Banana"}},
		{"double range", &DoubleRangeFilter{Field: "price", Min: Ptr(0.25), Max: Ptr(1.5)}, []string{"Apple", "Banana"}},
		{"date range", &DateRangeFilter{Field: "added", Min: &jan, Max: &feb}, []string{"Apple", "Banana"}},
		{"date range open", &DateRangeFilter{Field: "deletedAt", Min: &feb}, []string{"Cherry"}},
		{"nested", &StringFilter{Field: "tags.color", Value: "YELLOW"}, []string{"Banana"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(tt.f, Options{})
			var got []string
			for _, r := range records() {
				if p(r) {
					got = append(got, r["name"].(string))
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrongTypesDoNotMatch(t *testing.T) {
	rec := map[string]any{"n": "12", "s": 12, "b": "true", "m": "x"}
	assert.False(t, MustCompile(&LongRangeFilter{Field: "n", Min: Ptr[int64](0)}, Options{})(rec))
	assert.False(t, MustCompile(&StringFilter{Field: "s", Value: "12"}, Options{})(rec))
	assert.False(t, MustCompile(&BooleanFilter{Field: "b", Value: true}, Options{})(rec))
	assert.False(t, MustCompile(&StringMapFilter{Field: "m", Key: "k", Value: "x"}, Options{})(rec))
	assert.False(t, MustCompile(&StringFilter{Field: "missing.deep", Value: "x"}, Options{})(rec))
}

func TestLogicalIdentities(t *testing.T) {
	a := &StringFilter{Field: "status", Value: "active"}
	b := &DoubleRangeFilter{Field: "price", Max: Ptr(1.0)}

	and := MustCompile(And(a, b), Options{})
	or := MustCompile(Or(a, b), Options{})
	nand := MustCompile(Nand(a, b), Options{})
	nor := MustCompile(Nor(a, b), Options{})

	matchedAnd, matchedOr := 0, 0
	for _, r := range records() {
		assert.Equal(t, !and(r), nand(r), "%v", r)
		assert.Equal(t, !or(r), nor(r), "%v", r)
		if and(r) {
			matchedAnd++
		}
		if or(r) {
			matchedOr++
		}
	}
	assert.Equal(t, 1, matchedAnd)
	assert.Equal(t, 2, matchedOr)
}

func TestCompileNil(t *testing.T) {
	p, err := Compile(nil, Options{})
	require.NoError(t, err)
	assert.True(t, p(nil))
}

func TestCompileBadPath(t *testing.T) {
	_, err := Compile(And(&StringFilter{Field: "a[", Value: "x"}), Options{})
	require.Error(t, err)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrCompile))
}

func TestCompileRawJSON(t *testing.T) {
	p, err := CompileJSON([]byte(`{"type":"logOp","op":"AND","operands":[
		{"type":"longRange","field":"qty","min":5},
		{"type":"string","field":"meta.kind","value":"Fruit"}]}`), Options{})
	require.NoError(t, err)
	assert.True(t, p(json.RawMessage(`{"qty": 7, "meta": {"kind": "fruit"}}`)))
	assert.False(t, p(json.RawMessage(`{"qty": 2, "meta": {"kind": "fruit"}}`)))
}

// counter only implements LogOp, so every operator lands there
type counter struct {
	identity
	self   Visitor[Filter]
	logOps []LogOp
	ands   int
}

func (c *counter) LogOp(f *LogOpFilter) Filter {
	c.logOps = append(c.logOps, f.Op)
	for _, operand := range f.Operands {
		Visit(c.self, operand)
	}
	return f
}

type andCounter struct {
	*counter
}

func (c andCounter) AndOp(f *LogOpFilter) Filter {
	c.ands++
	for _, operand := range f.Operands {
		Visit(c.self, operand)
	}
	return f
}

func TestVisitDispatch(t *testing.T) {
	leaf := &BooleanFilter{Field: "x"}
	tree := Or(And(leaf), Nand(leaf), Nor(And(leaf)))

	c := &counter{}
	c.self = c
	Visit[Filter](c, tree)
	assert.Equal(t, []LogOp{OR, AND, NAND, NOR, AND}, c.logOps)
	assert.Zero(t, c.ands)

	ac := andCounter{&counter{}}
	ac.self = ac
	Visit[Filter](ac, tree)
	assert.Equal(t, 2, ac.ands)
	assert.Equal(t, []LogOp{OR, NAND, NOR}, ac.logOps)
}

func TestJSONRoundTrip(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tree := Or(
		And(
			&BooleanFilter{Field: "organic", Value: false},
			&NullFilter{Field: "deletedAt", IsNull: true},
			&StringFilter{Field: "status", Value: ""},
			&ContainsStringFilter{Field: "name", Value: "an"},
			&LikeFilter{Field: "name", Pattern: "A%"},
		),
		Nor(
			&StringEnumFilter{Field: "status", Values: []string{"a", "b"}},
			&StringMapFilter{Field: "tags", Key: "color", Value: "red"},
			&StringRangeFilter{Field: "name", Min: Ptr("a")},
		),
		Nand(
			&LongEnumFilter{Field: "qty", Values: []int64{1, 9007199254740993}},
			&LongRangeFilter{Field: "qty", Max: Ptr[int64](5)},
			&DoubleRangeFilter{Field: "price", Min: Ptr(0.5), Max: Ptr(2.5)},
			&DateRangeFilter{Field: "added", Min: &since},
		),
	)

	data, err := Marshal(tree)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, tree, back)

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestMarshalShape(t *testing.T) {
	data, err := Marshal(&LongRangeFilter{Field: "qty", Min: Ptr[int64](3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"longRange","field":"qty","min":3}`, string(data))

	data, err = Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`{"type":"regex","field":"a"}`,
		`{"type":"logOp","op":"XOR","operands":[{"type":"null","field":"a"}]}`,
		`{"type":"logOp","op":"AND","operands":[]}`,
		`{"type":"logOp","op":"AND","operands":[null]}`,
		`{"type":"string","value":"x"}`,
		`{"type":"string","field":"a"}`,
		`{"type":"string","field":"a","value":3}`,
		`{"type":"longEnum","field":"a","values":[1.5]}`,
		`{"type":"longRange","field":"a","min":"x"}`,
		`{"type":"dateRange","field":"a","max":"soon"}`,
		`{"field":"a"}`,
		`[1,2]`,
	}
	for _, in := range tests {
		_, err := Parse([]byte(in))
		require.Error(t, err, in)
		assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse), in)
	}
}

func TestParseLenient(t *testing.T) {
	f, err := Parse([]byte(`{"type":"logOp","op":"and","operands":[{"type":"null","field":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, And(&NullFilter{Field: "a", IsNull: true}), f)

	f, err = Parse([]byte(` null `))
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestOptimize(t *testing.T) {
	a := &StringFilter{Field: "a", Value: "1"}
	b := &StringFilter{Field: "b", Value: "2"}
	c := &StringFilter{Field: "c", Value: "3"}

	tests := []struct {
		name string
		in   Filter
		want Filter
	}{
		{"single and", And(a), a},
		{"single or", Or(And(b)), b},
		{"nested and", And(And(a, b), c), And(a, b, c)},
		{"deep or", Or(a, Or(b, Or(c))), Or(a, b, c)},
		{"mixed kept", And(Or(a, b), c), And(Or(a, b), c)},
		{"nand of and", Nand(And(a, b), c), Nand(a, b, c)},
		{"nor of or", Nor(Or(a, b)), Nor(a, b)},
		{"single nand kept", Nand(a), Nand(a)},
		{"nand of nand kept", Nand(Nand(a, b)), Nand(Nand(a, b))},
		{"leaf", a, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Optimize(tt.in))
		})
	}
}

func TestOptimizeDoesNotMutate(t *testing.T) {
	a := &StringFilter{Field: "a", Value: "1"}
	inner := And(a, a)
	outer := And(inner, a)

	Optimize(outer)
	assert.Len(t, outer.Operands, 2)
	assert.Same(t, inner, outer.Operands[0])
}

func TestOptimizePreservesMeaning(t *testing.T) {
	tree := Nand(And(&StringFilter{Field: "status", Value: "active"}, Or(Or(&LongRangeFilter{Field: "qty", Min: Ptr[int64](50)}))))
	before := MustCompile(tree, Options{})
	after := MustCompile(Optimize(tree), Options{})
	for _, r := range records() {
		assert.Equal(t, before(r), after(r), "%v", r)
	}
}

func TestCombine(t *testing.T) {
	a := &NullFilter{Field: "a", IsNull: true}
	assert.Nil(t, Combine(nil, nil))
	assert.Equal(t, a, Combine(a, nil))
	assert.Equal(t, a, Combine(nil, a))
	assert.Equal(t, And(a, a), Combine(a, a))
}

func TestString(t *testing.T) {
	tree := Or(
		&StringFilter{Field: "status", Value: "it's"},
		Nand(&LongRangeFilter{Field: "qty", Min: Ptr[int64](1), Max: Ptr[int64](3)}, &NullFilter{Field: "x"}),
	)
	assert.Equal(t, "(status = 'it''s' OR NOT (qty BETWEEN 1 AND 3 AND x IS NOT NULL))", String(tree))
	assert.Equal(t, "TRUE", String(nil))
}
