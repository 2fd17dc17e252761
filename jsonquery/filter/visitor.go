package filter

import (
	"fmt"
)

// Visitor maps each filter variant to a result. Logical operators go to
// LogOp unless the visitor also implements one of the operator interfaces
// below.
type Visitor[R any] interface {
	LogOp(f *LogOpFilter) R
	Boolean(f *BooleanFilter) R
	Null(f *NullFilter) R
	String(f *StringFilter) R
	ContainsString(f *ContainsStringFilter) R
	Like(f *LikeFilter) R
	StringEnum(f *StringEnumFilter) R
	StringMap(f *StringMapFilter) R
	StringRange(f *StringRangeFilter) R
	LongEnum(f *LongEnumFilter) R
	LongRange(f *LongRangeFilter) R
	DoubleRange(f *DoubleRangeFilter) R
	DateRange(f *DateRangeFilter) R
}

// AndVisitor overrides dispatch of AND nodes
type AndVisitor[R any] interface {
	AndOp(f *LogOpFilter) R
}

// OrVisitor overrides dispatch of OR nodes
type OrVisitor[R any] interface {
	OrOp(f *LogOpFilter) R
}

// NandVisitor overrides dispatch of NAND nodes
type NandVisitor[R any] interface {
	NandOp(f *LogOpFilter) R
}

// NorVisitor overrides dispatch of NOR nodes
type NorVisitor[R any] interface {
	NorOp(f *LogOpFilter) R
}

// Visit dispatches f to the matching method of v. It panics on a nil filter
// or a variant not declared in this package.
func Visit[R any](v Visitor[R], f Filter) R {
	switch n := f.(type) {
	case *LogOpFilter:
		return visitLogOp(v, n)
	case *BooleanFilter:
		return v.Boolean(n)
	case *NullFilter:
		return v.Null(n)
	case *StringFilter:
		return v.String(n)
	case *ContainsStringFilter:
		return v.ContainsString(n)
	case *LikeFilter:
		return v.Like(n)
	case *StringEnumFilter:
		return v.StringEnum(n)
	case *StringMapFilter:
		return v.StringMap(n)
	case *StringRangeFilter:
		return v.StringRange(n)
	case *LongEnumFilter:
		return v.LongEnum(n)
	case *LongRangeFilter:
		return v.LongRange(n)
	case *DoubleRangeFilter:
		return v.DoubleRange(n)
	case *DateRangeFilter:
		return v.DateRange(n)
	}
	panic(fmt.Sprintf("filter: cannot visit %T", f))
}

func visitLogOp[R any](v Visitor[R], f *LogOpFilter) R {
	switch f.Op {
	case AND:
		if ov, ok := v.(AndVisitor[R]); ok {
			return ov.AndOp(f)
		}
	case OR:
		if ov, ok := v.(OrVisitor[R]); ok {
			return ov.OrOp(f)
		}
	case NAND:
		if ov, ok := v.(NandVisitor[R]); ok {
			return ov.NandOp(f)
		}
	case NOR:
		if ov, ok := v.(NorVisitor[R]); ok {
			return ov.NorOp(f)
		}
	}
	return v.LogOp(f)
}
