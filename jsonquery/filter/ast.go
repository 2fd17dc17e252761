// Package filter represents query filters as data and compiles them into
// predicates over loosely typed records.
package filter

import "time"

// Filter is a node in a filter tree. The set of implementations is closed.
type Filter interface {
	// Type returns the wire name of the variant
	Type() string
	isFilter()
}

// LogOp is a logical operator
type LogOp string

const (
	AND  LogOp = "AND"
	OR   LogOp = "OR"
	NAND LogOp = "NAND"
	NOR  LogOp = "NOR"
)

// Valid reports whether op is one of the four operators
func (op LogOp) Valid() bool {
	switch op {
	case AND, OR, NAND, NOR:
		return true
	}
	return false
}

// Wire names of the filter variants
const (
	TypeLogOp          = "logOp"
	TypeBoolean        = "boolean"
	TypeNull           = "null"
	TypeString         = "string"
	TypeContainsString = "containsString"
	TypeLike           = "like"
	TypeStringEnum     = "stringEnum"
	TypeStringMap      = "stringMap"
	TypeStringRange    = "stringRange"
	TypeLongEnum       = "longEnum"
	TypeLongRange      = "longRange"
	TypeDoubleRange    = "doubleRange"
	TypeDateRange      = "dateRange"
)

// LogOpFilter combines an ordered, non-empty list of operands
type LogOpFilter struct {
	Op       LogOp
	Operands []Filter
}

func (*LogOpFilter) Type() string { return TypeLogOp }
func (*LogOpFilter) isFilter()    {}

// BooleanFilter matches a boolean field
type BooleanFilter struct {
	Field string
	Value bool
}

func (*BooleanFilter) Type() string { return TypeBoolean }
func (*BooleanFilter) isFilter()    {}

// NullFilter matches records where the field has no value (IsNull) or has one
type NullFilter struct {
	Field  string
	IsNull bool
}

func (*NullFilter) Type() string { return TypeNull }
func (*NullFilter) isFilter()    {}

// StringFilter is an exact string match
type StringFilter struct {
	Field string
	Value string
}

func (*StringFilter) Type() string { return TypeString }
func (*StringFilter) isFilter()    {}

// ContainsStringFilter is a substring match
type ContainsStringFilter struct {
	Field string
	Value string
}

func (*ContainsStringFilter) Type() string { return TypeContainsString }
func (*ContainsStringFilter) isFilter()    {}

// LikeFilter matches a SQL LIKE pattern: % is any run, _ is one character
type LikeFilter struct {
	Field   string
	Pattern string
}

func (*LikeFilter) Type() string { return TypeLike }
func (*LikeFilter) isFilter()    {}

// StringEnumFilter matches any of Values
type StringEnumFilter struct {
	Field  string
	Values []string
}

func (*StringEnumFilter) Type() string { return TypeStringEnum }
func (*StringEnumFilter) isFilter()    {}

// StringMapFilter tests Value under Key of a map-valued field
type StringMapFilter struct {
	Field string
	Key   string
	Value string
}

func (*StringMapFilter) Type() string { return TypeStringMap }
func (*StringMapFilter) isFilter()    {}

// StringRangeFilter is an inclusive lexicographic range; nil bounds are open
type StringRangeFilter struct {
	Field string
	Min   *string
	Max   *string
}

func (*StringRangeFilter) Type() string { return TypeStringRange }
func (*StringRangeFilter) isFilter()    {}

// LongEnumFilter matches any of Values
type LongEnumFilter struct {
	Field  string
	Values []int64
}

func (*LongEnumFilter) Type() string { return TypeLongEnum }
func (*LongEnumFilter) isFilter()    {}

// LongRangeFilter is an inclusive integer range
type LongRangeFilter struct {
	Field string
	Min   *int64
	Max   *int64
}

func (*LongRangeFilter) Type() string { return TypeLongRange }
func (*LongRangeFilter) isFilter()    {}

// DoubleRangeFilter is an inclusive floating point range
type DoubleRangeFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

func (*DoubleRangeFilter) Type() string { return TypeDoubleRange }
func (*DoubleRangeFilter) isFilter()    {}

// DateRangeFilter is an inclusive chronological range
type DateRangeFilter struct {
	Field string
	Min   *time.Time
	Max   *time.Time
}

func (*DateRangeFilter) Type() string { return TypeDateRange }
func (*DateRangeFilter) isFilter()    {}

// And returns AND(operands...)
func And(operands ...Filter) *LogOpFilter {
	return &LogOpFilter{Op: AND, Operands: operands}
}

// Or returns OR(operands...)
func Or(operands ...Filter) *LogOpFilter {
	return &LogOpFilter{Op: OR, Operands: operands}
}

// Nand returns NAND(operands...)
func Nand(operands ...Filter) *LogOpFilter {
	return &LogOpFilter{Op: NAND, Operands: operands}
}

// Nor returns NOR(operands...)
func Nor(operands ...Filter) *LogOpFilter {
	return &LogOpFilter{Op: NOR, Operands: operands}
}

// Ptr returns a pointer to v, for building range bounds
func Ptr[T any](v T) *T {
	return &v
}
