package output

import "testing"

func TestPropColumnFirstNonNullFixesKind(t *testing.T) {
	c := NewPropColumn("health")
	c.Push(Variant{}, false)
	c.Push(Variant{}, false)
	c.Push(VI32(100), true)
	if c.Kind != KindI32 {
		t.Fatalf("got kind %v, want KindI32", c.Kind)
	}
	if c.Len() != 3 {
		t.Fatalf("got len %d, want 3", c.Len())
	}
	if c.Present[0] || c.Present[1] || !c.Present[2] {
		t.Fatalf("unexpected presence vector: %v", c.Present)
	}
}

func TestPropColumnExtendAndPad(t *testing.T) {
	a := NewPropColumn("armor")
	a.Push(VI32(1), true)
	b := NewPropColumn("armor")
	b.Push(VI32(2), true)
	b.Push(VI32(3), true)

	a.Extend(b)
	if a.Len() != 3 {
		t.Fatalf("got len %d, want 3", a.Len())
	}

	a.PadTo(5)
	if a.Len() != 5 {
		t.Fatalf("got len %d after pad, want 5", a.Len())
	}
	if a.Present[3] || a.Present[4] {
		t.Fatal("padded rows should not be present")
	}
}

func TestPropColumnSliceIndices(t *testing.T) {
	c := NewPropColumn("tick")
	for i := int32(0); i < 10; i++ {
		c.Push(VI32(i), true)
	}
	sliced := c.SliceIndices([]int{2, 5, 7})
	if sliced.Len() != 3 {
		t.Fatalf("got len %d, want 3", sliced.Len())
	}
	if sliced.Values[0].I32 != 2 || sliced.Values[1].I32 != 5 || sliced.Values[2].I32 != 7 {
		t.Fatalf("unexpected sliced values: %+v", sliced.Values)
	}
}
