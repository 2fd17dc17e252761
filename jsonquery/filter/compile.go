package filter

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/nonibytes/jsonquery/jsonquery/pathexpr"
	"github.com/nonibytes/jsonquery/jsonquery/values"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

// Options controls compilation; the zero value compares strings case-insensitively
type Options = values.Options

// Predicate reports whether a record matches
type Predicate func(record any) bool

// MatchAll is the predicate of an absent filter
func MatchAll(any) bool { return true }

func matchNone(any) bool { return false }

// Compile walks f once and returns its predicate. A nil filter matches every
// record. Only malformed field paths fail compilation; records that do not
// resolve a field simply fail that leaf.
func Compile(f Filter, opts Options) (Predicate, error) {
	if f == nil {
		return MatchAll, nil
	}
	c := &compiler{opts: opts, paths: make(map[string]*pathexpr.Expression)}
	p := Visit[Predicate](c, f)
	if c.err != nil {
		return nil, c.err
	}
	return p, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(f Filter, opts Options) Predicate {
	p, err := Compile(f, opts)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileJSON parses and compiles a filter in its JSON form
func CompileJSON(data []byte, opts Options) (Predicate, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Compile(f, opts)
}

type compiler struct {
	opts  Options
	paths map[string]*pathexpr.Expression
	err   error
}

func (c *compiler) fail(err error) Predicate {
	if c.err == nil {
		c.err = err
	}
	return matchNone
}

// resolve compiles field once per tree and returns an accessor for it
func (c *compiler) resolve(field string) func(record any) (any, bool) {
	e, ok := c.paths[field]
	if !ok {
		var err error
		e, err = pathexpr.Compile(field)
		if err != nil {
			c.fail(err)
			return func(any) (any, bool) { return nil, false }
		}
		c.paths[field] = e
	}
	return e.Evaluate
}

func (c *compiler) operands(f *LogOpFilter) []Predicate {
	preds := make([]Predicate, len(f.Operands))
	for i, operand := range f.Operands {
		if operand == nil {
			preds[i] = c.fail(jqerrors.New(jqerrors.ErrCompile, "nil operand"))
			continue
		}
		preds[i] = Visit[Predicate](c, operand)
	}
	return preds
}

// LogOp handles AND and OR; NAND and NOR negate them.
func (c *compiler) LogOp(f *LogOpFilter) Predicate {
	preds := c.operands(f)
	switch f.Op {
	case AND:
		return func(r any) bool {
			for _, p := range preds {
				if !p(r) {
					return false
				}
			}
			return true
		}
	case OR:
		return func(r any) bool {
			for _, p := range preds {
				if p(r) {
					return true
				}
			}
			return false
		}
	}
	return c.fail(jqerrors.New(jqerrors.ErrCompile, "unknown logical operator "+string(f.Op)))
}

func (c *compiler) NandOp(f *LogOpFilter) Predicate {
	p := c.LogOp(&LogOpFilter{Op: AND, Operands: f.Operands})
	return func(r any) bool { return !p(r) }
}

func (c *compiler) NorOp(f *LogOpFilter) Predicate {
	p := c.LogOp(&LogOpFilter{Op: OR, Operands: f.Operands})
	return func(r any) bool { return !p(r) }
}

func (c *compiler) Boolean(f *BooleanFilter) Predicate {
	get := c.resolve(f.Field)
	return func(r any) bool {
		v, ok := get(r)
		if !ok {
			return false
		}
		b, ok := values.AsBool(v)
		return ok && b == f.Value
	}
}

func (c *compiler) Null(f *NullFilter) Predicate {
	get := c.resolve(f.Field)
	return func(r any) bool {
		v, ok := get(r)
		isNull := !ok || v == nil
		return isNull == f.IsNull
	}
}

// str resolves a string-valued field; other value types never match
func (c *compiler) str(field string, test func(s string) bool) Predicate {
	get := c.resolve(field)
	return func(r any) bool {
		v, ok := get(r)
		if !ok {
			return false
		}
		s, ok := values.AsString(v)
		return ok && test(s)
	}
}

func (c *compiler) String(f *StringFilter) Predicate {
	want := f.Value
	return c.str(f.Field, func(s string) bool {
		return c.opts.EqualStrings(s, want)
	})
}

func (c *compiler) ContainsString(f *ContainsStringFilter) Predicate {
	needle := c.opts.Fold(f.Value)
	return c.str(f.Field, func(s string) bool {
		return strings.Contains(c.opts.Fold(s), needle)
	})
}

func (c *compiler) Like(f *LikeFilter) Predicate {
	re, err := likeRegexp(f.Pattern, c.opts.CaseSensitive)
	if err != nil {
		return c.fail(jqerrors.CompileError(f.Field, "invalid like pattern", err))
	}
	return c.str(f.Field, re.MatchString)
}

func (c *compiler) StringEnum(f *StringEnumFilter) Predicate {
	set := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		set[c.opts.Fold(v)] = struct{}{}
	}
	return c.str(f.Field, func(s string) bool {
		_, ok := set[c.opts.Fold(s)]
		return ok
	})
}

func (c *compiler) StringMap(f *StringMapFilter) Predicate {
	get := c.resolve(f.Field)
	return func(r any) bool {
		m, ok := get(r)
		if !ok {
			return false
		}
		v, ok := mapValue(m, f.Key)
		if !ok {
			return false
		}
		s, ok := values.AsString(v)
		return ok && c.opts.EqualStrings(s, f.Value)
	}
}

func (c *compiler) StringRange(f *StringRangeFilter) Predicate {
	var lo, hi *string
	if f.Min != nil {
		lo = Ptr(c.opts.Fold(*f.Min))
	}
	if f.Max != nil {
		hi = Ptr(c.opts.Fold(*f.Max))
	}
	return c.str(f.Field, func(s string) bool {
		s = c.opts.Fold(s)
		return (lo == nil || s >= *lo) && (hi == nil || s <= *hi)
	})
}

// num resolves a numeric field; other value types never match
func (c *compiler) num(field string, test func(v any) bool) Predicate {
	get := c.resolve(field)
	return func(r any) bool {
		v, ok := get(r)
		return ok && values.IsNumber(v) && test(v)
	}
}

func (c *compiler) LongEnum(f *LongEnumFilter) Predicate {
	set := make(map[int64]struct{}, len(f.Values))
	for _, v := range f.Values {
		set[v] = struct{}{}
	}
	return c.num(f.Field, func(v any) bool {
		n, ok := values.AsInt64(v)
		if !ok {
			return false
		}
		_, ok = set[n]
		return ok
	})
}

func (c *compiler) LongRange(f *LongRangeFilter) Predicate {
	return c.num(f.Field, func(v any) bool {
		return (f.Min == nil || values.CompareNumbers(v, *f.Min) >= 0) &&
			(f.Max == nil || values.CompareNumbers(v, *f.Max) <= 0)
	})
}

func (c *compiler) DoubleRange(f *DoubleRangeFilter) Predicate {
	return c.num(f.Field, func(v any) bool {
		return (f.Min == nil || values.CompareNumbers(v, *f.Min) >= 0) &&
			(f.Max == nil || values.CompareNumbers(v, *f.Max) <= 0)
	})
}

func (c *compiler) DateRange(f *DateRangeFilter) Predicate {
	get := c.resolve(f.Field)
	return func(r any) bool {
		v, ok := get(r)
		if !ok {
			return false
		}
		t, ok := values.AsTime(v)
		if !ok {
			return false
		}
		return (f.Min == nil || !t.Before(*f.Min)) && (f.Max == nil || !t.After(*f.Max))
	}
}

// likeRegexp translates a LIKE pattern to an anchored regexp. A backslash
// escapes the next character.
func likeRegexp(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s")
	if !caseSensitive {
		b.WriteString("i")
	}
	b.WriteString(")^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(`\\`)
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func mapValue(m any, key string) (any, bool) {
	switch t := m.(type) {
	case map[string]any:
		v, ok := t[key]
		return v, ok
	case map[string]string:
		v, ok := t[key]
		return v, ok
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}
