package class

import (
	"testing"

	"github.com/csdemo/csdemo/sendtable"
)

func TestAddClassInfoImmediateResolve(t *testing.T) {
	sr := sendtable.NewRegistry()
	if _, err := sr.Build(sendtable.SerializerDef{Name: "CWorld"}); err != nil {
		t.Fatal(err)
	}
	cr := NewRegistry()
	cr.AddClassInfo(3, "CWorld", "CWorld", sr)

	c, ok := cr.ByID(3)
	if !ok || c.Name != "CWorld" || c.Serializer == nil {
		t.Fatalf("expected class 3 resolved immediately, got %+v ok=%v", c, ok)
	}
	if cr.Pending() != 0 {
		t.Fatalf("expected no pending classes, got %d", cr.Pending())
	}
}

func TestAddClassInfoDeferredResolve(t *testing.T) {
	sr := sendtable.NewRegistry()
	cr := NewRegistry()
	cr.AddClassInfo(5, "CCSPlayerPawn", "CCSPlayerPawn", sr)

	if _, ok := cr.ByID(5); ok {
		t.Fatal("expected class 5 to be pending, not yet resolved")
	}
	if cr.Pending() != 1 {
		t.Fatalf("expected 1 pending class, got %d", cr.Pending())
	}

	if _, err := sr.Build(sendtable.SerializerDef{Name: "CCSPlayerPawn"}); err != nil {
		t.Fatal(err)
	}
	cr.ResolvePending("CCSPlayerPawn", sr)

	c, ok := cr.ByID(5)
	if !ok || c.Serializer == nil {
		t.Fatal("expected class 5 resolved after ResolvePending")
	}
	if cr.Pending() != 0 {
		t.Fatalf("expected 0 pending classes after resolve, got %d", cr.Pending())
	}
}

func TestBitWidth(t *testing.T) {
	cr := NewRegistry()
	sr := sendtable.NewRegistry()
	sr.Build(sendtable.SerializerDef{Name: "A"})
	for id := int32(0); id < 17; id++ {
		cr.AddClassInfo(id, "A", "A", sr)
	}
	// max_classes = 16 -> ceil(log2(17)) = 5
	if w := cr.BitWidth(); w != 5 {
		t.Fatalf("got bit width %d, want 5", w)
	}
}
