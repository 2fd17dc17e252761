package jsonquery

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/pathexpr"
	"github.com/nonibytes/jsonquery/jsonquery/values"
)

// DefaultDiscoverTop is how many values DiscoverValues returns when top <= 0
const DefaultDiscoverTop = 20

// ValueCount is a field value with the number of records holding it
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DeleteWhere deletes all records matching f and returns how many were
// deleted. A nil filter deletes everything.
func (c *Cache) DeleteWhere(ctx context.Context, f filter.Filter) (int, error) {
	q := &GetQuery{Filter: f}
	compiled, err := c.compile(q, c.settings.Options)
	if err != nil {
		return 0, err
	}
	rows, _, err := c.scan(ctx, q, compiled)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	del := c.adapter.SQL().DeleteRecord
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, del, r.key); err != nil {
			return 0, jqerrors.Wrap(jqerrors.ErrSQL, "delete record "+r.key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "commit", err)
	}

	c.log.Debug("delete where", "filter", filter.String(f), "deleted", len(rows))
	return len(rows), nil
}

// DiscoverValues returns the most frequent values of field among the records
// matching f, most frequent first. Array values count each element once.
func (c *Cache) DiscoverValues(ctx context.Context, field string, f filter.Filter, top int) ([]ValueCount, error) {
	expr, err := pathexpr.Compile(field)
	if err != nil {
		return nil, err
	}
	if top <= 0 {
		top = DefaultDiscoverTop
	}

	q := &GetQuery{Filter: f}
	compiled, err := c.compile(q, c.settings.Options)
	if err != nil {
		return nil, err
	}
	rows, _, err := c.scan(ctx, q, compiled)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range rows {
		v, ok := expr.Evaluate(r.doc)
		if !ok {
			continue
		}
		seen := make(map[string]bool)
		for _, item := range flatten(v) {
			s, ok := discoverKey(item)
			if !ok || seen[s] {
				continue
			}
			seen[s] = true
			counts[s]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if len(out) > top {
		out = out[:top]
	}
	return out, nil
}

func flatten(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// discoverKey renders scalars; objects and nulls are not counted
func discoverKey(v any) (string, bool) {
	switch t := v.(type) {
	case nil, map[string]any, []any:
		return "", false
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	}
	return values.AsString(v)
}
