// Package output defines the typed value and columnar output model shared
// by the entity engine, game-event decoder, and second-pass/combiner
// stages (spec §3 Data Model, component C12).
package output

import "github.com/csdemo/csdemo/qfloat"

// Kind discriminates Variant's active field.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindI32
	KindU32
	KindU64
	KindF32
	KindString
	KindVec3
	KindVecF32
)

// Variant is the sum type every field decoder writes into (§3:
// "Bool | I32 | U32 | U64 | F32 | String | Vec3<f32> | Vec<...>").
type Variant struct {
	Kind   Kind
	Bool   bool
	I32    int32
	U32    uint32
	U64    uint64
	F32    float32
	Str    string
	Vec3   qfloat.Vec3
	VecF32 []float32
}

func VBool(v bool) Variant        { return Variant{Kind: KindBool, Bool: v} }
func VI32(v int32) Variant        { return Variant{Kind: KindI32, I32: v} }
func VU32(v uint32) Variant       { return Variant{Kind: KindU32, U32: v} }
func VU64(v uint64) Variant       { return Variant{Kind: KindU64, U64: v} }
func VF32(v float32) Variant      { return Variant{Kind: KindF32, F32: v} }
func VString(v string) Variant    { return Variant{Kind: KindString, Str: v} }
func VVec3(v qfloat.Vec3) Variant { return Variant{Kind: KindVec3, Vec3: v} }
