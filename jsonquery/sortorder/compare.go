package sortorder

import (
	"github.com/nonibytes/jsonquery/jsonquery/pathexpr"
	"github.com/nonibytes/jsonquery/jsonquery/values"
)

// Options controls string comparison
type Options = values.Options

// Comparator orders two records: negative when a sorts first
type Comparator func(a, b any) int

type key struct {
	get       func(record any) (any, bool)
	ascending bool
}

// Compile returns the comparator of o. Records missing a sort field order
// before records that have it; the direction is applied afterwards. A nil or
// empty order compares every pair as equal.
func Compile(o *SortOrder, opts Options) (Comparator, error) {
	if o.Empty() {
		return func(any, any) int { return 0 }, nil
	}
	keys := make([]key, len(o.SortFields))
	for i, f := range o.SortFields {
		e, err := pathexpr.Compile(f.Name)
		if err != nil {
			return nil, err
		}
		keys[i] = key{get: e.Evaluate, ascending: f.Ascending}
	}

	return func(a, b any) int {
		for _, k := range keys {
			va, oka := k.get(a)
			vb, okb := k.get(b)
			var c int
			switch {
			case !oka && !okb:
				c = 0
			case !oka:
				c = -1
			case !okb:
				c = 1
			default:
				c = values.Compare(va, vb, opts)
			}
			if c == 0 {
				continue
			}
			if !k.ascending {
				return -c
			}
			return c
		}
		return 0
	}, nil
}

// CompileJSON compiles the JSON array form of an order
func CompileJSON(fields []string, opts Options) (Comparator, error) {
	o, err := FromJSON(fields)
	if err != nil {
		return nil, err
	}
	return Compile(o, opts)
}

// MustCompile is like Compile but panics on error
func MustCompile(o *SortOrder, opts Options) Comparator {
	c, err := Compile(o, opts)
	if err != nil {
		panic(err)
	}
	return c
}
