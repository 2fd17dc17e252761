package filter

import (
	"strconv"
	"strings"
	"time"
)

// String renders f as a readable, SQL-like expression. It is meant for logs
// and CLI output; use Marshal for a form that can be parsed back.
func String(f Filter) string {
	if f == nil {
		return "TRUE"
	}
	return Visit[string](describer{}, f)
}

type describer struct{}

func (d describer) LogOp(f *LogOpFilter) string {
	parts := make([]string, len(f.Operands))
	for i, operand := range f.Operands {
		parts[i] = Visit[string](d, operand)
	}
	return "(" + strings.Join(parts, " "+string(f.Op)+" ") + ")"
}

// NAND and NOR read better as negations
func (d describer) NandOp(f *LogOpFilter) string {
	return "NOT " + d.LogOp(&LogOpFilter{Op: AND, Operands: f.Operands})
}

func (d describer) NorOp(f *LogOpFilter) string {
	return "NOT " + d.LogOp(&LogOpFilter{Op: OR, Operands: f.Operands})
}

func (describer) Boolean(f *BooleanFilter) string {
	return f.Field + " = " + strconv.FormatBool(f.Value)
}

func (describer) Null(f *NullFilter) string {
	if f.IsNull {
		return f.Field + " IS NULL"
	}
	return f.Field + " IS NOT NULL"
}

func (describer) String(f *StringFilter) string {
	return f.Field + " = " + quote(f.Value)
}

func (describer) ContainsString(f *ContainsStringFilter) string {
	return f.Field + " CONTAINS " + quote(f.Value)
}

func (describer) Like(f *LikeFilter) string {
	return f.Field + " LIKE " + quote(f.Pattern)
}

func (describer) StringEnum(f *StringEnumFilter) string {
	parts := make([]string, len(f.Values))
	for i, v := range f.Values {
		parts[i] = quote(v)
	}
	return f.Field + " IN (" + strings.Join(parts, ", ") + ")"
}

func (describer) StringMap(f *StringMapFilter) string {
	return f.Field + "[" + quote(f.Key) + "] = " + quote(f.Value)
}

func (describer) StringRange(f *StringRangeFilter) string {
	return between(f.Field, f.Min, f.Max, quote)
}

func (describer) LongEnum(f *LongEnumFilter) string {
	parts := make([]string, len(f.Values))
	for i, v := range f.Values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return f.Field + " IN (" + strings.Join(parts, ", ") + ")"
}

func (describer) LongRange(f *LongRangeFilter) string {
	return between(f.Field, f.Min, f.Max, func(v int64) string { return strconv.FormatInt(v, 10) })
}

func (describer) DoubleRange(f *DoubleRangeFilter) string {
	return between(f.Field, f.Min, f.Max, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
}

func (describer) DateRange(f *DateRangeFilter) string {
	return between(f.Field, f.Min, f.Max, func(v time.Time) string { return quote(v.Format(time.RFC3339)) })
}

func between[T any](field string, lo, hi *T, format func(T) string) string {
	switch {
	case lo != nil && hi != nil:
		return field + " BETWEEN " + format(*lo) + " AND " + format(*hi)
	case lo != nil:
		return field + " >= " + format(*lo)
	case hi != nil:
		return field + " <= " + format(*hi)
	}
	return field + " IS ANY"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
