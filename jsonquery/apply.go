package jsonquery

import (
	"slices"

	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/pathexpr"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
	"github.com/nonibytes/jsonquery/jsonquery/values"
)

// Options controls string comparison in filters and sorting
type Options = values.Options

// Compiled is a GetQuery ready to run against records
type Compiled struct {
	Query   *GetQuery
	Match   filter.Predicate
	Compare sortorder.Comparator
	project *projection
}

// Compile compiles the filter, sort order and field selection of q
func (q *GetQuery) Compile(opts Options) (*Compiled, error) {
	match, err := filter.Compile(q.Filter, opts)
	if err != nil {
		return nil, err
	}
	cmp, err := sortorder.Compile(q.SortOrder, opts)
	if err != nil {
		return nil, err
	}
	proj, err := newProjection(q.Fields)
	if err != nil {
		return nil, err
	}
	return &Compiled{Query: q, Match: match, Compare: cmp, project: proj}, nil
}

// Apply runs q over records: filter, stable sort, offset, limit and field
// projection, in that order. Min and Max are not applied since plain records
// carry no key.
func (q *GetQuery) Apply(records []any, opts Options) ([]any, error) {
	c, err := q.Compile(opts)
	if err != nil {
		return nil, err
	}
	return c.Apply(records), nil
}

// Apply runs the compiled query over records
func (c *Compiled) Apply(records []any) []any {
	matched := c.Filter(records)
	c.Sort(matched)
	page := c.Page(matched)
	out := make([]any, len(page))
	for i, r := range page {
		out[i] = c.Project(r)
	}
	return out
}

// Filter returns the matching records in their original order
func (c *Compiled) Filter(records []any) []any {
	out := make([]any, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders records in place; ties keep their relative order
func (c *Compiled) Sort(records []any) {
	if c.Query.SortOrder.Empty() {
		return
	}
	slices.SortStableFunc(records, func(a, b any) int { return c.Compare(a, b) })
}

// Page applies offset and limit
func (c *Compiled) Page(records []any) []any {
	return window(records, c.Query.Offset, c.Query.Limit)
}

// Project keeps only the selected fields of record. Without a selection the
// record is returned unchanged.
func (c *Compiled) Project(record any) any {
	return c.project.apply(record)
}

func window[T any](items []T, offset, limit *int) []T {
	start := 0
	if offset != nil {
		start = min(max(*offset, 0), len(items))
	}
	end := len(items)
	if limit != nil {
		end = start + min(max(*limit, 0), len(items)-start)
	}
	return items[start:end]
}

type projection struct {
	fields []string
	paths  []*pathexpr.Expression
}

func newProjection(fields []string) (*projection, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	p := &projection{fields: fields, paths: make([]*pathexpr.Expression, len(fields))}
	for i, f := range fields {
		e, err := pathexpr.Compile(f)
		if err != nil {
			return nil, err
		}
		p.paths[i] = e
	}
	return p, nil
}

// apply returns a map keyed by the selected field names as written; fields
// the record does not have are left out
func (p *projection) apply(record any) any {
	if p == nil {
		return record
	}
	out := make(map[string]any, len(p.fields))
	for i, e := range p.paths {
		if v, ok := e.Evaluate(record); ok {
			out[p.fields[i]] = v
		}
	}
	return out
}
