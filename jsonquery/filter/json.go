package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/values"
)

// wireFilter is the decoded form of any filter node
type wireFilter struct {
	Type     string            `json:"type"`
	Op       string            `json:"op"`
	Operands []json.RawMessage `json:"operands"`
	Field    string            `json:"field"`
	Value    json.RawMessage   `json:"value"`
	Values   json.RawMessage   `json:"values"`
	Key      string            `json:"key"`
	Pattern  string            `json:"pattern"`
	IsNull   *bool             `json:"isNull"`
	Min      json.RawMessage   `json:"min"`
	Max      json.RawMessage   `json:"max"`
}

// encodedFilter is the encoded form; only the members of the variant are set
type encodedFilter struct {
	Type     string           `json:"type"`
	Op       LogOp            `json:"op,omitempty"`
	Operands []*encodedFilter `json:"operands,omitempty"`
	Field    string           `json:"field,omitempty"`
	Key      string           `json:"key,omitempty"`
	Value    any              `json:"value,omitempty"`
	Values   any              `json:"values,omitempty"`
	Pattern  *string          `json:"pattern,omitempty"`
	IsNull   *bool            `json:"isNull,omitempty"`
	Min      any              `json:"min,omitempty"`
	Max      any              `json:"max,omitempty"`
}

// Parse decodes a filter from its JSON form. Unknown types, unknown
// operators and malformed members are reported as ErrParse.
func Parse(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	return parseNode(data, "$")
}

// MustParse is like Parse but panics on error
func MustParse(s string) Filter {
	f, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return f
}

func parseNode(data []byte, at string) (Filter, error) {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrParse, fmt.Sprintf("filter at %s", at), err)
	}

	if w.Type == TypeLogOp {
		return parseLogOp(w, at)
	}

	if w.Type == "" {
		return nil, parseErr(at, "missing filter type")
	}
	if w.Field == "" {
		return nil, parseErr(at, fmt.Sprintf("%s filter requires a field", w.Type))
	}

	switch w.Type {
	case TypeBoolean:
		var v bool
		if err := decodeMember(w.Value, &v, at, "value"); err != nil {
			return nil, err
		}
		return &BooleanFilter{Field: w.Field, Value: v}, nil
	case TypeNull:
		isNull := true
		if w.IsNull != nil {
			isNull = *w.IsNull
		}
		return &NullFilter{Field: w.Field, IsNull: isNull}, nil
	case TypeString:
		var v string
		if err := decodeMember(w.Value, &v, at, "value"); err != nil {
			return nil, err
		}
		return &StringFilter{Field: w.Field, Value: v}, nil
	case TypeContainsString:
		var v string
		if err := decodeMember(w.Value, &v, at, "value"); err != nil {
			return nil, err
		}
		return &ContainsStringFilter{Field: w.Field, Value: v}, nil
	case TypeLike:
		return &LikeFilter{Field: w.Field, Pattern: w.Pattern}, nil
	case TypeStringEnum:
		var vs []string
		if err := decodeMember(w.Values, &vs, at, "values"); err != nil {
			return nil, err
		}
		return &StringEnumFilter{Field: w.Field, Values: vs}, nil
	case TypeStringMap:
		var v string
		if err := decodeMember(w.Value, &v, at, "value"); err != nil {
			return nil, err
		}
		return &StringMapFilter{Field: w.Field, Key: w.Key, Value: v}, nil
	case TypeStringRange:
		f := &StringRangeFilter{Field: w.Field}
		if err := decodeBound(w.Min, &f.Min, at, "min"); err != nil {
			return nil, err
		}
		if err := decodeBound(w.Max, &f.Max, at, "max"); err != nil {
			return nil, err
		}
		return f, nil
	case TypeLongEnum:
		var nums []json.Number
		if err := decodeMember(w.Values, &nums, at, "values"); err != nil {
			return nil, err
		}
		f := &LongEnumFilter{Field: w.Field, Values: make([]int64, 0, len(nums))}
		for _, n := range nums {
			i, ok := values.AsInt64(n)
			if !ok {
				return nil, parseErr(at, fmt.Sprintf("values: %s is not an integer", n))
			}
			f.Values = append(f.Values, i)
		}
		return f, nil
	case TypeLongRange:
		f := &LongRangeFilter{Field: w.Field}
		var err error
		if f.Min, err = decodeLong(w.Min, at, "min"); err != nil {
			return nil, err
		}
		if f.Max, err = decodeLong(w.Max, at, "max"); err != nil {
			return nil, err
		}
		return f, nil
	case TypeDoubleRange:
		f := &DoubleRangeFilter{Field: w.Field}
		if err := decodeBound(w.Min, &f.Min, at, "min"); err != nil {
			return nil, err
		}
		if err := decodeBound(w.Max, &f.Max, at, "max"); err != nil {
			return nil, err
		}
		return f, nil
	case TypeDateRange:
		f := &DateRangeFilter{Field: w.Field}
		var err error
		if f.Min, err = decodeDate(w.Min, at, "min"); err != nil {
			return nil, err
		}
		if f.Max, err = decodeDate(w.Max, at, "max"); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, parseErr(at, fmt.Sprintf("unknown filter type %q", w.Type))
}

func parseLogOp(w wireFilter, at string) (Filter, error) {
	op := LogOp(strings.ToUpper(w.Op))
	if !op.Valid() {
		return nil, parseErr(at, fmt.Sprintf("unknown logical operator %q", w.Op))
	}
	if len(w.Operands) == 0 {
		return nil, parseErr(at, fmt.Sprintf("%s requires at least one operand", op))
	}
	f := &LogOpFilter{Op: op, Operands: make([]Filter, 0, len(w.Operands))}
	for i, raw := range w.Operands {
		child, err := parseNode(raw, fmt.Sprintf("%s.operands[%d]", at, i))
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, parseErr(at, fmt.Sprintf("operands[%d] is null", i))
		}
		f.Operands = append(f.Operands, child)
	}
	return f, nil
}

func parseErr(at, msg string) error {
	return jqerrors.ParseError(fmt.Sprintf("filter at %s: %s", at, msg))
}

func decodeMember(raw json.RawMessage, dst any, at, name string) error {
	if len(raw) == 0 {
		return parseErr(at, fmt.Sprintf("missing %s", name))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return jqerrors.Wrap(jqerrors.ErrParse, fmt.Sprintf("filter at %s: invalid %s", at, name), err)
	}
	return nil
}

func decodeBound[T any](raw json.RawMessage, dst **T, at, name string) error {
	if isAbsent(raw) {
		return nil
	}
	var v T
	if err := decodeMember(raw, &v, at, name); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func decodeLong(raw json.RawMessage, at, name string) (*int64, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var n json.Number
	if err := decodeMember(raw, &n, at, name); err != nil {
		return nil, err
	}
	i, ok := values.AsInt64(n)
	if !ok {
		return nil, parseErr(at, fmt.Sprintf("%s: %s is not an integer", name, n))
	}
	return &i, nil
}

func decodeDate(raw json.RawMessage, at, name string) (*time.Time, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var s string
	if err := decodeMember(raw, &s, at, name); err != nil {
		return nil, err
	}
	t, ok := values.ParseTime(s)
	if !ok {
		return nil, parseErr(at, fmt.Sprintf("%s: %q is not a date", name, s))
	}
	return &t, nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Marshal encodes f in its JSON form. A nil filter encodes as null.
func Marshal(f Filter) ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	return json.Marshal(Visit[*encodedFilter](encoder{}, f))
}

type encoder struct{}

func (e encoder) LogOp(f *LogOpFilter) *encodedFilter {
	out := &encodedFilter{Type: TypeLogOp, Op: f.Op}
	for _, operand := range f.Operands {
		out.Operands = append(out.Operands, Visit[*encodedFilter](e, operand))
	}
	return out
}

func (encoder) Boolean(f *BooleanFilter) *encodedFilter {
	return &encodedFilter{Type: TypeBoolean, Field: f.Field, Value: f.Value}
}

func (encoder) Null(f *NullFilter) *encodedFilter {
	return &encodedFilter{Type: TypeNull, Field: f.Field, IsNull: &f.IsNull}
}

func (encoder) String(f *StringFilter) *encodedFilter {
	return &encodedFilter{Type: TypeString, Field: f.Field, Value: f.Value}
}

func (encoder) ContainsString(f *ContainsStringFilter) *encodedFilter {
	return &encodedFilter{Type: TypeContainsString, Field: f.Field, Value: f.Value}
}

func (encoder) Like(f *LikeFilter) *encodedFilter {
	return &encodedFilter{Type: TypeLike, Field: f.Field, Pattern: &f.Pattern}
}

func (encoder) StringEnum(f *StringEnumFilter) *encodedFilter {
	vs := f.Values
	if vs == nil {
		vs = []string{}
	}
	return &encodedFilter{Type: TypeStringEnum, Field: f.Field, Values: vs}
}

func (encoder) StringMap(f *StringMapFilter) *encodedFilter {
	return &encodedFilter{Type: TypeStringMap, Field: f.Field, Key: f.Key, Value: f.Value}
}

func (encoder) StringRange(f *StringRangeFilter) *encodedFilter {
	return &encodedFilter{Type: TypeStringRange, Field: f.Field, Min: bound(f.Min), Max: bound(f.Max)}
}

func (encoder) LongEnum(f *LongEnumFilter) *encodedFilter {
	vs := f.Values
	if vs == nil {
		vs = []int64{}
	}
	return &encodedFilter{Type: TypeLongEnum, Field: f.Field, Values: vs}
}

func (encoder) LongRange(f *LongRangeFilter) *encodedFilter {
	return &encodedFilter{Type: TypeLongRange, Field: f.Field, Min: bound(f.Min), Max: bound(f.Max)}
}

func (encoder) DoubleRange(f *DoubleRangeFilter) *encodedFilter {
	return &encodedFilter{Type: TypeDoubleRange, Field: f.Field, Min: bound(f.Min), Max: bound(f.Max)}
}

func (encoder) DateRange(f *DateRangeFilter) *encodedFilter {
	out := &encodedFilter{Type: TypeDateRange, Field: f.Field}
	if f.Min != nil {
		out.Min = f.Min.Format(time.RFC3339Nano)
	}
	if f.Max != nil {
		out.Max = f.Max.Format(time.RFC3339Nano)
	}
	return out
}

// bound keeps a nil bound out of the encoded form
func bound[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
