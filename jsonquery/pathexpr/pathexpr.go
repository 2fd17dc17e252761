// Package pathexpr compiles property paths such as "a.b[0].c" and evaluates
// them against loosely typed records.
//
// A path that is a single bare identifier is resolved with a direct property
// lookup. Everything else goes through an Engine (JSONPath grammar, including
// wildcards, filters and recursive descent).
package pathexpr

import (
	"bytes"
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

var simplePathRe = regexp.MustCompile(`^\w+$`)

// Expression is a compiled path. It is immutable and safe for concurrent use.
type Expression struct {
	raw    string
	simple bool
	eval   Evaluator
}

// Compile compiles path with DefaultEngine.
func Compile(path string) (*Expression, error) {
	return CompileWith(DefaultEngine, path)
}

// CompileWith compiles path with the given engine. Engine failures are
// reported as ErrCompile so that bad paths fail here rather than at evaluation.
func CompileWith(engine Engine, path string) (*Expression, error) {
	if simplePathRe.MatchString(path) {
		return &Expression{raw: path, simple: true}, nil
	}
	if engine == nil {
		engine = DefaultEngine
	}
	ev, err := engine.Compile(normalize(path))
	if err != nil {
		return nil, jqerrors.CompileError(path, "invalid path expression", err)
	}
	return &Expression{raw: path, eval: ev}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(path string) *Expression {
	e, err := Compile(path)
	if err != nil {
		panic(err)
	}
	return e
}

// normalize turns the relative dot/bracket form into a rooted JSONPath.
func normalize(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return path
	case strings.HasPrefix(path, "$"):
		return path
	case strings.HasPrefix(path, "["), strings.HasPrefix(path, ".."):
		return "$" + path
	default:
		return "$." + path
	}
}

// String returns the path as written.
func (e *Expression) String() string {
	return e.raw
}

// Simple reports whether the path is a single property name.
func (e *Expression) Simple() bool {
	return e.simple
}

// Evaluate resolves the path against target. ok is false when the path does
// not resolve ("no value"), which is distinct from resolving to false or nil.
func (e *Expression) Evaluate(target any) (any, bool) {
	if e.simple {
		return lookup(target, e.raw)
	}

	target = decodeRaw(target)
	raw, err := e.eval.Evaluate(target, EvalOptions{ResultType: ResultValue})
	if err != nil {
		return nil, false
	}
	if raw == false || raw == nil {
		paths, err := e.eval.Evaluate(target, EvalOptions{ResultType: ResultPath, Wrap: true})
		if err != nil {
			return nil, false
		}
		if p, ok := paths.([]string); !ok || len(p) == 0 {
			return nil, false
		}
	}
	return raw, true
}

// EvaluateOptions evaluates with caller-supplied engine options and returns
// the raw engine result without missing-value disambiguation.
func (e *Expression) EvaluateOptions(target any, opts EvalOptions) (any, error) {
	if e.simple {
		v, ok := lookup(target, e.raw)
		return shapeSimple(e.raw, v, ok, opts), nil
	}
	return e.eval.Evaluate(decodeRaw(target), opts)
}

func shapeSimple(name string, v any, ok bool, opts EvalOptions) any {
	if opts.ResultType == ResultPath {
		switch {
		case !ok && opts.Wrap:
			return []string{}
		case !ok:
			return nil
		case opts.Wrap:
			return []string{"$." + name}
		}
		return "$." + name
	}
	switch {
	case !ok && opts.Wrap:
		return []any{}
	case !ok:
		return nil
	case opts.Wrap:
		return []any{v}
	}
	return v
}

// lookup is the direct property access used for bare identifiers.
func lookup(target any, name string) (any, bool) {
	switch t := target.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := t[name]
		return v, ok
	case map[string]string:
		v, ok := t[name]
		return v, ok
	case json.RawMessage:
		return lookupRaw(t, name)
	case []byte:
		return lookupRaw(t, name)
	}

	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func lookupRaw(raw []byte, name string) (any, bool) {
	res := gjson.GetBytes(raw, name)
	if !res.Exists() {
		return nil, false
	}
	return decodeResult(res), true
}

// decodeResult converts a gjson result into the same shapes json.Decoder
// with UseNumber produces.
func decodeResult(res gjson.Result) any {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(res.Raw)
	case gjson.String:
		return res.String()
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(res.Raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return res.Value()
	}
	return v
}

// decodeRaw decodes raw JSON records so the engine sees Go values.
func decodeRaw(target any) any {
	var raw []byte
	switch t := target.(type) {
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		return target
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
