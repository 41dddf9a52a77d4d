package output

// PropColumn is a column-oriented output vector: one optional value per
// emitted tick for one selected property. The first non-null push fixes
// the column's Kind and back-fills the nulls pushed before it with a zero
// Variant of that Kind (Present stays false). Nulls pushed after that point
// are kept as a zero Variant (KindAbsent); Extend takes other's Kind when c
// has none but does not back-fill c's earlier nulls.
type PropColumn struct {
	Name    string
	Kind    Kind
	kindSet bool
	Values  []Variant
	Present []bool
}

// NewPropColumn returns an empty column for the named property.
func NewPropColumn(name string) *PropColumn {
	return &PropColumn{Name: name}
}

// Push appends one tick's value. present=false records a null; the
// column's Kind is fixed by the first present push.
func (c *PropColumn) Push(v Variant, present bool) {
	if present && !c.kindSet {
		c.Kind = v.Kind
		c.kindSet = true
		for i := range c.Values {
			if !c.Present[i] {
				c.Values[i] = Variant{Kind: v.Kind}
			}
		}
	}
	c.Values = append(c.Values, v)
	c.Present = append(c.Present, present)
}

// Len reports how many ticks this column has recorded.
func (c *PropColumn) Len() int { return len(c.Values) }

// Extend appends other's rows after c's own, used by the combiner to
// concatenate per-shard columns in file order (§4.12).
func (c *PropColumn) Extend(other *PropColumn) {
	if !c.kindSet && other.kindSet {
		c.Kind = other.Kind
		c.kindSet = true
	}
	c.Values = append(c.Values, other.Values...)
	c.Present = append(c.Present, other.Present...)
}

// PadTo null-fills the column up to length n, used when merging sibling
// columns of unequal length (§4.12: "null-filling shorter columns to equal
// length").
func (c *PropColumn) PadTo(n int) {
	for c.Len() < n {
		c.Push(Variant{}, false)
	}
}

// SliceIndices returns a new column containing only the rows at the given
// positions, used by the combiner's wanted_ticks filter.
func (c *PropColumn) SliceIndices(indices []int) *PropColumn {
	out := &PropColumn{Name: c.Name, Kind: c.Kind, kindSet: c.kindSet}
	for _, i := range indices {
		out.Values = append(out.Values, c.Values[i])
		out.Present = append(out.Present, c.Present[i])
	}
	return out
}
