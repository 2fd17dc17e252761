package values

import (
	"cmp"
	"encoding/json"
	"fmt"
	"time"
)

type rank int

const (
	rankNull rank = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

func rankOf(v any) rank {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case time.Time, *time.Time:
		return rankTime
	}
	if IsNumber(v) {
		return rankNumber
	}
	if _, ok := AsString(v); ok {
		return rankString
	}
	return rankOther
}

// Compare orders two arbitrary values. Values of the same kind use their
// natural ordering; different kinds are ranked
// null < bool < number < time < string < everything else. Strings holding
// timestamps sort chronologically ahead of other strings.
func Compare(a, b any, opts Options) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		x, _ := AsBool(a)
		y, _ := AsBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankNumber:
		return CompareNumbers(a, b)
	case rankTime:
		x, _ := AsTime(a)
		y, _ := AsTime(b)
		return x.Compare(y)
	case rankString:
		x, _ := AsString(a)
		y, _ := AsString(b)
		return compareStrings(x, y, opts)
	}
	return cmp.Compare(canonical(a), canonical(b))
}

// compareStrings orders strings that parse as timestamps by instant, ahead
// of all other strings, which compare lexicographically. Equal instants
// written differently fall back to the text.
func compareStrings(x, y string, opts Options) int {
	tx, okx := stringTime(x)
	ty, oky := stringTime(y)
	switch {
	case okx && oky:
		if c := tx.Compare(ty); c != 0 {
			return c
		}
	case okx:
		return -1
	case oky:
		return 1
	}
	return cmp.Compare(opts.Fold(x), opts.Fold(y))
}

func stringTime(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02") || s[4] != '-' || s[0] < '0' || s[0] > '9' {
		return time.Time{}, false
	}
	return ParseTime(s)
}

// CompareNumbers compares two numeric values exactly. Non-finite floats fall
// back to float comparison with NaN ordered first.
func CompareNumbers(a, b any) int {
	x, okx := AsDecimal(a)
	y, oky := AsDecimal(b)
	if okx && oky {
		return x.Cmp(y)
	}
	fx, _ := AsFloat64(a)
	fy, _ := AsFloat64(b)
	return cmp.Compare(fx, fy)
}

func canonical(v any) string {
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
