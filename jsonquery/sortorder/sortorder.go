// Package sortorder models multi-field sort orders and compiles them into
// comparators.
package sortorder

import (
	"encoding/json"
	"strings"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

// SortField is one sort key
type SortField struct {
	Name      string
	Ascending bool
}

// String formats the field with an explicit sign
func (f SortField) String() string {
	if f.Ascending {
		return "+" + f.Name
	}
	return "-" + f.Name
}

// SortOrder is a list of sort keys by priority, primary key first.
//
// Merge and Optimize replace SortFields with a fresh slice and never write
// into the previous one, so a SortOrder may share its slice with a copy.
type SortOrder struct {
	SortFields []SortField
}

// ParseField parses "[+|-]name"; no sign means ascending
func ParseField(s string) (SortField, error) {
	s = strings.TrimSpace(s)
	f := SortField{Ascending: true}
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		f.Ascending = false
		s = s[1:]
	}
	f.Name = strings.TrimSpace(s)
	if f.Name == "" {
		return SortField{}, jqerrors.ParseError("empty sort field name")
	}
	return f, nil
}

// FromJSON builds an order from its JSON array form
func FromJSON(fields []string) (*SortOrder, error) {
	o := &SortOrder{SortFields: make([]SortField, 0, len(fields))}
	for _, s := range fields {
		f, err := ParseField(s)
		if err != nil {
			return nil, err
		}
		o.SortFields = append(o.SortFields, f)
	}
	return o, nil
}

// MustFromJSON is like FromJSON but panics on error
func MustFromJSON(fields ...string) *SortOrder {
	o, err := FromJSON(fields)
	if err != nil {
		panic(err)
	}
	return o
}

// Parse parses the comma separated form produced by String
func Parse(s string) (*SortOrder, error) {
	if strings.TrimSpace(s) == "" {
		return &SortOrder{}, nil
	}
	return FromJSON(strings.Split(s, ","))
}

// String formats the order as "-rating,+date"; an empty order is ""
func (o *SortOrder) String() string {
	if o == nil {
		return ""
	}
	parts := make([]string, len(o.SortFields))
	for i, f := range o.SortFields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// Strings returns the JSON array form
func (o *SortOrder) Strings() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.SortFields))
	for i, f := range o.SortFields {
		out[i] = f.String()
	}
	return out
}

// Empty reports whether the order has no fields
func (o *SortOrder) Empty() bool {
	return o == nil || len(o.SortFields) == 0
}

// Clone returns a deep copy
func (o *SortOrder) Clone() *SortOrder {
	if o == nil {
		return nil
	}
	out := &SortOrder{}
	if o.SortFields != nil {
		out.SortFields = append(make([]SortField, 0, len(o.SortFields)), o.SortFields...)
	}
	return out
}

// Has reports whether name is already a sort key
func (o *SortOrder) Has(name string) bool {
	if o == nil {
		return false
	}
	for _, f := range o.SortFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Merge appends other's fields as tie-breakers, skipping names this order
// already sorts by. The first occurrence of a name keeps its direction.
// A nil receiver has nowhere to store the result and is left as is.
func (o *SortOrder) Merge(other *SortOrder) {
	if o == nil || other.Empty() {
		return
	}
	merged := make([]SortField, len(o.SortFields), len(o.SortFields)+len(other.SortFields))
	copy(merged, o.SortFields)
	seen := make(map[string]struct{}, cap(merged))
	for _, f := range merged {
		seen[f.Name] = struct{}{}
	}
	for _, f := range other.SortFields {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		merged = append(merged, f)
	}
	o.SortFields = merged
}

// Optimize drops repeated field names after their first occurrence. Later
// keys on the same name can never break a tie, so the order is unchanged.
func (o *SortOrder) Optimize() {
	if o.Empty() {
		return
	}
	seen := make(map[string]struct{}, len(o.SortFields))
	out := make([]SortField, 0, len(o.SortFields))
	for _, f := range o.SortFields {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	o.SortFields = out
}

// MarshalJSON encodes the order as ["-rating","+date"]
func (o SortOrder) MarshalJSON() ([]byte, error) {
	s := o.Strings()
	if s == nil {
		s = []string{}
	}
	return json.Marshal(s)
}

// UnmarshalJSON accepts the array form or a comma separated string
func (o *SortOrder) UnmarshalJSON(data []byte) error {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		var s string
		if err2 := json.Unmarshal(data, &s); err2 != nil {
			return jqerrors.Wrap(jqerrors.ErrParse, "sort order must be an array of strings", err)
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*o = *parsed
		return nil
	}
	parsed, err := FromJSON(fields)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}
