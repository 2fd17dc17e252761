// Package jsonquery combines a filter, a sort order and paging into a
// GetQuery, and evaluates queries against in-memory records or a persisted
// record cache.
package jsonquery

import (
	"encoding/json"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
)

// GetQuery is a filter plus sort order, paging and field selection.
//
// Merge and Optimize reassign members instead of writing through them, so
// two queries may share a SortOrder, Filter or Fields slice. Code that
// mutates those values directly must Clone first.
type GetQuery struct {
	Limit     *int
	Offset    *int
	SortOrder *sortorder.SortOrder
	Filter    filter.Filter
	Fields    []string
	// Min and Max bound record keys (inclusive); backends without keys ignore them
	Min *string
	Max *string
}

type getQueryJSON struct {
	Limit     *int                 `json:"limit,omitempty"`
	Offset    *int                 `json:"offset,omitempty"`
	SortOrder *sortorder.SortOrder `json:"sortOrder,omitempty"`
	Filter    json.RawMessage      `json:"filter,omitempty"`
	Fields    []string             `json:"fields,omitempty"`
	Min       *string              `json:"min,omitempty"`
	Max       *string              `json:"max,omitempty"`
}

// FromJSON decodes a GetQuery without schema validation
func FromJSON(data []byte) (*GetQuery, error) {
	q := &GetQuery{}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *GetQuery) UnmarshalJSON(data []byte) error {
	var w getQueryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		if jqerrors.IsKind(err, jqerrors.ErrParse) {
			return err
		}
		return jqerrors.Wrap(jqerrors.ErrParse, "get query", err)
	}
	f, err := filter.Parse(w.Filter)
	if err != nil {
		return err
	}
	*q = GetQuery{
		Limit:     w.Limit,
		Offset:    w.Offset,
		SortOrder: w.SortOrder,
		Filter:    f,
		Fields:    w.Fields,
		Min:       w.Min,
		Max:       w.Max,
	}
	return nil
}

func (q GetQuery) MarshalJSON() ([]byte, error) {
	w := getQueryJSON{
		Limit:     q.Limit,
		Offset:    q.Offset,
		SortOrder: q.SortOrder,
		Fields:    q.Fields,
		Min:       q.Min,
		Max:       q.Max,
	}
	if q.Filter != nil {
		f, err := filter.Marshal(q.Filter)
		if err != nil {
			return nil, err
		}
		w.Filter = f
	}
	return json.Marshal(w)
}

// Clone returns a copy that shares nothing mutable with q. Filter trees are
// immutable and stay shared.
func (q *GetQuery) Clone() *GetQuery {
	if q == nil {
		return nil
	}
	return &GetQuery{
		Limit:     clonePtr(q.Limit),
		Offset:    clonePtr(q.Offset),
		SortOrder: q.SortOrder.Clone(),
		Filter:    q.Filter,
		Fields:    cloneSlice(q.Fields),
		Min:       clonePtr(q.Min),
		Max:       clonePtr(q.Max),
	}
}

// Merge narrows q so that only records satisfying both queries remain:
// filters are ANDed, other's sort fields become tie-breakers, fields are
// unioned, the smaller limit and larger offset win, and the key range is
// intersected.
func (q *GetQuery) Merge(other *GetQuery) {
	if other == nil {
		return
	}

	q.Filter = filter.Combine(q.Filter, other.Filter)

	switch {
	case q.SortOrder == nil:
		q.SortOrder = other.SortOrder.Clone()
	case !other.SortOrder.Empty():
		so := q.SortOrder.Clone()
		so.Merge(other.SortOrder)
		q.SortOrder = so
	}

	q.Fields = union(q.Fields, other.Fields)
	q.Limit = pick(q.Limit, other.Limit, func(a, b int) bool { return a <= b })
	q.Offset = pick(q.Offset, other.Offset, func(a, b int) bool { return a >= b })
	q.Min = pick(q.Min, other.Min, func(a, b string) bool { return a >= b })
	q.Max = pick(q.Max, other.Max, func(a, b string) bool { return a <= b })
}

// Optimize simplifies the sort order and the filter tree without changing
// which records match or how they are ordered.
func (q *GetQuery) Optimize() {
	if q.SortOrder != nil {
		so := q.SortOrder.Clone()
		so.Optimize()
		q.SortOrder = so
	}
	q.Filter = filter.Optimize(q.Filter)
}

// Empty reports whether q constrains nothing
func (q *GetQuery) Empty() bool {
	return q.Limit == nil && q.Offset == nil && q.SortOrder.Empty() && q.Filter == nil &&
		len(q.Fields) == 0 && q.Min == nil && q.Max == nil
}

// pick returns a copy of whichever of a and b is preferred; nil loses
func pick[T any](a, b *T, prefer func(x, y T) bool) *T {
	switch {
	case a == nil:
		return clonePtr(b)
	case b == nil:
		return clonePtr(a)
	case prefer(*a, *b):
		return clonePtr(a)
	}
	return clonePtr(b)
}

func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
