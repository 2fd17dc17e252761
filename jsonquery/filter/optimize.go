package filter

// Optimize returns an equivalent tree with single-operand AND/OR nodes
// collapsed and nested chains of the same operator flattened. The input is
// not modified; unchanged leaves are shared with it.
func Optimize(f Filter) Filter {
	if f == nil {
		return nil
	}
	return Visit[Filter](optimizer{}, f)
}

// Combine returns a filter matching records that match both a and b
func Combine(a, b Filter) Filter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return And(a, b)
}

type optimizer struct {
	identity
}

func (o optimizer) LogOp(f *LogOpFilter) Filter {
	// operator whose children can be spliced into f
	var splice LogOp
	switch f.Op {
	case AND, NAND:
		splice = AND
	case OR, NOR:
		splice = OR
	}

	out := &LogOpFilter{Op: f.Op, Operands: make([]Filter, 0, len(f.Operands))}
	for _, operand := range f.Operands {
		if operand == nil {
			continue
		}
		child := Visit[Filter](o, operand)
		if lf, ok := child.(*LogOpFilter); ok && lf.Op == splice {
			out.Operands = append(out.Operands, lf.Operands...)
			continue
		}
		out.Operands = append(out.Operands, child)
	}

	if len(out.Operands) == 1 && (out.Op == AND || out.Op == OR) {
		return out.Operands[0]
	}
	return out
}

// identity returns every leaf unchanged
type identity struct{}

func (identity) Boolean(f *BooleanFilter) Filter               { return f }
func (identity) Null(f *NullFilter) Filter                     { return f }
func (identity) String(f *StringFilter) Filter                 { return f }
func (identity) ContainsString(f *ContainsStringFilter) Filter { return f }
func (identity) Like(f *LikeFilter) Filter                     { return f }
func (identity) StringEnum(f *StringEnumFilter) Filter         { return f }
func (identity) StringMap(f *StringMapFilter) Filter           { return f }
func (identity) StringRange(f *StringRangeFilter) Filter       { return f }
func (identity) LongEnum(f *LongEnumFilter) Filter             { return f }
func (identity) LongRange(f *LongRangeFilter) Filter           { return f }
func (identity) DoubleRange(f *DoubleRangeFilter) Filter       { return f }
func (identity) DateRange(f *DateRangeFilter) Filter           { return f }
