package pathexpr

import (
	"encoding/json"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// ResultType selects what an Evaluator returns for each match.
type ResultType int

const (
	ResultValue ResultType = iota
	ResultPath
)

// EvalOptions is the option set understood by an Evaluator.
type EvalOptions struct {
	ResultType ResultType
	// Wrap returns every result in a []any (or []string for paths). When false,
	// a single match is returned as a scalar and no match as nil.
	Wrap bool
}

// Engine compiles path strings into Evaluators. Any JSONPath implementation
// can be plugged in behind this interface.
type Engine interface {
	Compile(path string) (Evaluator, error)
}

// Evaluator evaluates one compiled path against a target.
type Evaluator interface {
	Evaluate(target any, opts EvalOptions) (any, error)
}

// DefaultEngine evaluates paths with ojg's jp package.
var DefaultEngine Engine = ojgEngine{}

type ojgEngine struct{}

func (ojgEngine) Compile(path string) (Evaluator, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, err
	}
	return ojgEvaluator{x: x, scripted: hasFilter(x)}, nil
}

type ojgEvaluator struct {
	x jp.Expr
	// scripted is set when the expression holds a [?()] filter. Filter
	// scripts compare native numbers, so json.Number leaves are converted
	// before evaluation.
	scripted bool
}

func (e ojgEvaluator) Evaluate(target any, opts EvalOptions) (any, error) {
	if e.scripted {
		target = nativeNumbers(target)
	}

	if opts.ResultType == ResultPath {
		locs := e.x.Locate(target, 0)
		paths := make([]string, len(locs))
		for i, loc := range locs {
			paths[i] = loc.String()
		}
		if opts.Wrap {
			return paths, nil
		}
		switch len(paths) {
		case 0:
			return nil, nil
		case 1:
			return paths[0], nil
		}
		return paths, nil
	}

	values := e.x.Get(target)
	if values == nil {
		values = []any{}
	}
	if opts.Wrap {
		return values, nil
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return values[0], nil
	}
	return values, nil
}

func hasFilter(x jp.Expr) bool {
	return strings.Contains(x.String(), "[?")
}

func nativeNumbers(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i
		}
		if f, err := tv.Float64(); err == nil {
			return f
		}
		return tv.String()
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = nativeNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = nativeNumbers(item)
		}
		return out
	}
	return v
}
