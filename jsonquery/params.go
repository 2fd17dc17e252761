package jsonquery

import (
	"net/url"
	"strconv"
	"strings"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
)

// Query parameter names
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamSort   = "sort"
	ParamFilter = "filter"
	ParamFields = "fields"
	ParamMin    = "min"
	ParamMax    = "max"
)

// QueryParams encodes the populated members of q as URL parameters. ok is
// false when q has nothing to encode.
func (q *GetQuery) QueryParams() (params url.Values, ok bool, err error) {
	v := url.Values{}
	if q.Limit != nil {
		v.Set(ParamLimit, strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		v.Set(ParamOffset, strconv.Itoa(*q.Offset))
	}
	if !q.SortOrder.Empty() {
		v.Set(ParamSort, q.SortOrder.String())
	}
	if q.Filter != nil {
		f, err := filter.Marshal(q.Filter)
		if err != nil {
			return nil, false, err
		}
		v.Set(ParamFilter, string(f))
	}
	if len(q.Fields) > 0 {
		v.Set(ParamFields, strings.Join(q.Fields, ","))
	}
	if q.Min != nil {
		v.Set(ParamMin, *q.Min)
	}
	if q.Max != nil {
		v.Set(ParamMax, *q.Max)
	}
	if len(v) == 0 {
		return nil, false, nil
	}
	return v, true, nil
}

// QueryString is QueryParams encoded with sorted keys
func (q *GetQuery) QueryString() (string, bool, error) {
	v, ok, err := q.QueryParams()
	if err != nil || !ok {
		return "", ok, err
	}
	return v.Encode(), true, nil
}

// ParseQueryParams reads the parameters written by QueryParams. Unknown
// parameters are ignored.
func ParseQueryParams(v url.Values) (*GetQuery, error) {
	q := &GetQuery{}
	if s := v.Get(ParamLimit); s != "" {
		n, err := parseCount(ParamLimit, s)
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}
	if s := v.Get(ParamOffset); s != "" {
		n, err := parseCount(ParamOffset, s)
		if err != nil {
			return nil, err
		}
		q.Offset = &n
	}
	if s := v.Get(ParamSort); s != "" {
		so, err := sortorder.Parse(s)
		if err != nil {
			return nil, err
		}
		q.SortOrder = so
	}
	if s := v.Get(ParamFilter); s != "" {
		f, err := filter.Parse([]byte(s))
		if err != nil {
			return nil, err
		}
		q.Filter = f
	}
	if s := v.Get(ParamFields); s != "" {
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				q.Fields = append(q.Fields, f)
			}
		}
	}
	if v.Has(ParamMin) {
		s := v.Get(ParamMin)
		q.Min = &s
	}
	if v.Has(ParamMax) {
		s := v.Get(ParamMax)
		q.Max = &s
	}
	return q, nil
}

func parseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrParse, name+" must be an integer", err)
	}
	if n < 0 {
		return 0, jqerrors.ParseError(name + " must not be negative")
	}
	return n, nil
}
