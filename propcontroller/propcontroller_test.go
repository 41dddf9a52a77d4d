package propcontroller

import (
	"testing"

	"github.com/csdemo/csdemo/sendtable"
)

func TestPathsForResolvesDirectField(t *testing.T) {
	ser := sendtable.Serializer{Name: "CTestPawn", Fields: []sendtable.Field{
		{Name: "m_iHealth"},
		{Name: "m_vecOrigin"},
	}}
	c := New([]string{"m_iHealth"})
	paths := c.PathsFor(ser)
	key, ok := paths["m_iHealth"]
	if !ok {
		t.Fatal("expected m_iHealth to resolve")
	}
	if key.Depth != 0 || key.Indices[0] != 0 {
		t.Fatalf("unexpected path: %+v", key)
	}
}

func TestPathsForStripsWeaponAndGrenadePrefixes(t *testing.T) {
	weapon := &sendtable.Serializer{Name: "CWeaponBase", Fields: []sendtable.Field{{Name: "m_iClip1"}}}
	ser := sendtable.Serializer{Name: "CTestPawn", Fields: []sendtable.Field{
		{Name: "m_hWeapons", ChildSerializer: weapon},
	}}
	c := New([]string{"Weapon.m_iClip1"})
	paths := c.PathsFor(ser)
	key, ok := paths["Weapon.m_iClip1"]
	if !ok {
		t.Fatal("expected Weapon.m_iClip1 to resolve through the nested serializer")
	}
	if key.Depth != 1 {
		t.Fatalf("expected depth 1, got %d", key.Depth)
	}

	g := New([]string{"Grenade.m_iClip1"})
	gkey, ok := g.PathsFor(ser)["Grenade.m_iClip1"]
	if !ok || gkey.Depth != 1 {
		t.Fatalf("expected Grenade.m_iClip1 to resolve at depth 1, got %+v ok=%v", gkey, ok)
	}
}

func TestPathsForSkipsUnresolvableNames(t *testing.T) {
	ser := sendtable.Serializer{Name: "CTestPawn"}
	c := New([]string{"m_iDoesNotExist"})
	paths := c.PathsFor(ser)
	if len(paths) != 0 {
		t.Fatalf("expected no resolved paths, got %+v", paths)
	}
}

func TestPathsForCachesPerClass(t *testing.T) {
	ser := sendtable.Serializer{Name: "CTestPawn", Fields: []sendtable.Field{{Name: "m_iHealth"}}}
	c := New([]string{"m_iHealth"})
	first := c.PathsFor(ser)
	second := c.PathsFor(ser)
	if len(first) != len(second) {
		t.Fatal("expected cached result to match")
	}
}
