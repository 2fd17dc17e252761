package values

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "active", Options{}.Fold("ACTIVE"))
	assert.Equal(t, "ACTIVE", Options{CaseSensitive: true}.Fold("ACTIVE"))
	assert.True(t, Options{}.EqualStrings("Apple", "aPPLE"))
	assert.False(t, Options{CaseSensitive: true}.EqualStrings("Apple", "aPPLE"))
}

func TestOptionsJSON(t *testing.T) {
	var o Options
	require.NoError(t, json.Unmarshal([]byte(`{"casesensitive": true}`), &o))
	assert.True(t, o.CaseSensitive)
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{3, 3, true},
		{int8(-2), -2, true},
		{uint16(9), 9, true},
		{4.0, 4, true},
		{4.5, 0, false},
		{json.Number("9007199254740993"), 9007199254740993, true},
		{json.Number("1e400"), 0, false},
		{"5", 0, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		got, ok := AsInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.in)
		}
	}
}

func TestAsTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	got, ok := AsTime("2024-03-01T12:00:00Z")
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = AsTime(want.UnixMilli())
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = AsTime("2024-03-01")
	require.True(t, ok)
	assert.Equal(t, 1, got.Day())

	_, ok = AsTime("yesterday")
	assert.False(t, ok)
	_, ok = AsTime(true)
	assert.False(t, ok)
}

func TestCompareSameKind(t *testing.T) {
	opts := Options{}
	assert.Equal(t, -1, Compare(1, 2.5, opts))
	assert.Equal(t, 0, Compare(json.Number("2"), 2, opts))
	assert.Equal(t, 1, Compare(json.Number("9007199254740993"), json.Number("9007199254740992"), opts))
	assert.Equal(t, -1, Compare(false, true, opts))
	assert.Equal(t, 0, Compare("abc", "ABC", opts))
	assert.Equal(t, 1, Compare("abc", "ABC", Options{CaseSensitive: true}))
	assert.Equal(t, -1, Compare(math.NaN(), 1, opts))

	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, -1, Compare(early, early.Add(time.Hour), opts))
}

func TestCompareMixedKinds(t *testing.T) {
	ordered := []any{nil, true, 3, time.Unix(0, 0), "x", map[string]any{"a": 1}}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j], Options{})
			switch {
			case i < j:
				assert.Equal(t, -1, got, "%v < %v", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, got, "%v > %v", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, got)
			}
		}
	}
}

func TestCompareTimestampStrings(t *testing.T) {
	opts := Options{}
	// 08:00Z is earlier than 09:00Z even though it sorts later as text
	assert.Equal(t, -1, Compare("2024-05-01T10:00:00+02:00", "2024-05-01T09:00:00Z", opts))
	assert.Equal(t, 1, Compare("2024-05-01T09:00:00Z", "2024-05-01T10:00:00+02:00", opts))
	assert.Equal(t, -1, Compare("2024-05-01", "2024-05-01 00:00:01", opts))

	// same instant, different text: still a strict order
	assert.NotEqual(t, 0, Compare("2024-05-01T08:00:00Z", "2024-05-01T10:00:00+02:00", opts))
	assert.Equal(t, 0, Compare("2024-05-01T08:00:00Z", "2024-05-01T08:00:00Z", opts))

	ordered := []any{"2024-05-01T10:00:00+02:00", "2024-05-01T09:00:00Z", "2024-05-01T09:30:00x", "apple"}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j], opts)
			switch {
			case i < j:
				assert.Equal(t, -1, got, "%v < %v", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, got, "%v > %v", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, got)
			}
		}
	}
}
