package sendtable

import (
	"errors"
	"testing"

	"github.com/csdemo/csdemo/errs"
)

func TestBuildResolvesBasicDecisionTable(t *testing.T) {
	r := NewRegistry()
	def := SerializerDef{
		Name:    "CBasePlayerPawn",
		Version: 1,
		Fields: []FieldDef{
			{VarName: "m_bIsValid", VarType: "bool"},
			{VarName: "m_flHealth", VarType: "float32", BitCount: 8, LowValue: 0, HighValue: 100},
			{VarName: "m_hController", VarType: "CHandle<CBasePlayerController>"},
			{VarName: "m_vecOrigin", VarType: "Vector", Encoder: "coord"},
			{VarName: "m_szName", VarType: "CUtlSymbolLarge"},
		},
	}
	s, err := r.Build(def)
	if err != nil {
		t.Fatal(err)
	}
	want := []Decoder{DecoderBool, DecoderQuantizedFloat, DecoderCentityHandle, DecoderFloatCoord, DecoderString}
	if len(s.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(s.Fields), len(want))
	}
	for i, f := range s.Fields {
		if f.Decoder != want[i] {
			t.Errorf("field %d (%s): got decoder %v want %v", i, f.Name, f.Decoder, want[i])
		}
	}
	if _, ok := r.Lookup("CBasePlayerPawn"); !ok {
		t.Fatal("expected serializer to be published under its name")
	}
}

func TestBuildNestedSerializerReference(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Build(SerializerDef{Name: "Inner", Fields: []FieldDef{{VarName: "x", VarType: "bool"}}}); err != nil {
		t.Fatal(err)
	}
	outer, err := r.Build(SerializerDef{
		Name: "Outer",
		Fields: []FieldDef{
			{VarName: "inner", FieldSerializerName: "Inner"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if outer.Fields[0].ChildSerializer == nil || outer.Fields[0].ChildSerializer.Name != "Inner" {
		t.Fatal("expected nested serializer to resolve by name")
	}
}

func TestBuildUnknownTypeFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(SerializerDef{
		Name:   "Broken",
		Fields: []FieldDef{{VarName: "mystery", VarType: "CSomeUnmappedType"}},
	})
	if !errors.Is(err, errs.ErrPropTypeNotFound) {
		t.Fatalf("got %v, want ErrPropTypeNotFound", err)
	}
}

func TestQuantizedFloatFieldsShareMapper(t *testing.T) {
	r := NewRegistry()
	def := SerializerDef{
		Name: "Stats",
		Fields: []FieldDef{
			{VarName: "a", VarType: "float32", BitCount: 10, LowValue: 0, HighValue: 1},
			{VarName: "b", VarType: "float32", BitCount: 10, LowValue: -1, HighValue: 1},
		},
	}
	s, err := r.Build(def)
	if err != nil {
		t.Fatal(err)
	}
	if s.Fields[0].QFloatIndex == s.Fields[1].QFloatIndex {
		t.Fatal("expected distinct qfloat mapper slots")
	}
	cfgA := r.QFloatConfig(s.Fields[0].QFloatIndex)
	cfgB := r.QFloatConfig(s.Fields[1].QFloatIndex)
	if cfgA.Low != 0 || cfgB.Low != -1 {
		t.Fatalf("mapper entries don't match their field's bounds: %+v %+v", cfgA, cfgB)
	}
}
