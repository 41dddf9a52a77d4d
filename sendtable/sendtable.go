// Package sendtable builds named serializer trees from a demo's SendTables
// message (spec component C4) and owns the shared quantized-float mapper
// referenced by QuantizedFloat-decoded fields. The registry is a
// name->serializer map plus a grow-only mapper slice; Build adds to both in
// place.
package sendtable

import (
	"fmt"

	"github.com/csdemo/csdemo/errs"
	"github.com/csdemo/csdemo/qfloat"
)

// Decoder identifies which bit-level decoding routine a field uses. The
// entity engine (C9) switches on this, not on the raw encoder/type strings,
// so the decision table in Build runs exactly once per field.
type Decoder int

const (
	DecoderUnknown Decoder = iota
	DecoderBool
	DecoderI32
	DecoderU32
	DecoderU64
	DecoderString
	DecoderQuantizedFloat
	DecoderNoscale
	DecoderFloatCoord
	DecoderSimulationTime
	DecoderQangle
	DecoderQangleVarBits
	DecoderQanglePrecise
	DecoderVectorNormal
	DecoderCentityHandle
	DecoderAmmo
	DecoderGameModeRules
	DecoderArray
	DecoderVectorXY
)

// Field is one resolved node in a Serializer tree.
type Field struct {
	Name            string
	Encoder         string
	TypeName        string
	Flags           int32
	BitCount        int32
	Decoder         Decoder
	QFloatIndex     int // valid when Decoder == DecoderQuantizedFloat
	ArrayLength     int
	ChildSerializer *Serializer // non-nil for nested-class / array-of-struct fields
	ElemDecoder     Decoder     // for arrays: the decoder of each element
}

// Serializer is a named, immutable field tree. Serializers are created once
// per name per demo and shared by reference across shards (§3).
type Serializer struct {
	Name    string
	Version int32
	Fields  []Field
}

// Registry owns every published Serializer plus the shared quantized-float
// mapper every QuantizedFloat-decoded field indexes into.
type Registry struct {
	byName   map[string]*Serializer
	qfMapper []qfloat.Config
}

// NewRegistry returns an empty registry ready to receive Build calls.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Serializer)}
}

// Lookup returns the named serializer, or (nil, false) if it hasn't been
// published yet (expected for forward references resolved on a later
// SendTables entry within the same message).
func (r *Registry) Lookup(name string) (*Serializer, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// QFloatConfig resolves a field's QFloatIndex into its Config.
func (r *Registry) QFloatConfig(idx int) qfloat.Config {
	return r.qfMapper[idx]
}

// FieldDef is the raw, already-protobuf-decoded shape of one serializer
// field, prior to decoder resolution. csdemo's protobuf schema types
// (generated from the engine's .proto files) are an out-of-scope external
// collaborator (§1); this struct is the shape the generated message would
// be projected into before being handed to Build.
type FieldDef struct {
	VarName                string
	VarType                string
	SendNode               string // "(root)" for a non-nested field
	Encoder                string
	Flags                  int32
	BitCount               int32
	LowValue               float32
	HighValue              float32
	FieldSerializerName    string // set when this field's type is itself a serializer
	FieldSerializerVersion int32
}

// SerializerDef is the raw shape of one SendTable serializer definition.
type SerializerDef struct {
	Name    string
	Version int32
	Fields  []FieldDef
}

// Build resolves every field of def into a Serializer and publishes it into
// r under def.Name, recursing into already-published nested serializers by
// name (§4.4 step 3). It returns ErrPropTypeNotFound if a field's shape
// matches no entry in the decision table.
func (r *Registry) Build(def SerializerDef) (*Serializer, error) {
	s := &Serializer{Name: def.Name, Version: def.Version}
	for _, fd := range def.Fields {
		f, err := r.resolveField(fd)
		if err != nil {
			return nil, fmt.Errorf("serializer %s field %s: %w", def.Name, fd.VarName, err)
		}
		s.Fields = append(s.Fields, f)
	}
	r.byName[def.Name] = s
	return s, nil
}

// resolveField runs the fixed (encoder, type-name, flags, bit-count)
// decision table from §4.4.
func (r *Registry) resolveField(fd FieldDef) (Field, error) {
	f := Field{
		Name:     fd.VarName,
		Encoder:  fd.Encoder,
		TypeName: fd.VarType,
		Flags:    fd.Flags,
		BitCount: fd.BitCount,
	}

	if fd.FieldSerializerName != "" {
		child, ok := r.byName[fd.FieldSerializerName]
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", errs.ErrPropTypeNotFound, fd.FieldSerializerName)
		}
		f.ChildSerializer = child
		f.Decoder = DecoderArray
		return f, nil
	}

	switch {
	case isCHandleType(fd.VarType):
		f.Decoder = DecoderCentityHandle
	case fd.Encoder == "coord":
		f.Decoder = DecoderFloatCoord
	case fd.Encoder == "normal" && isVectorType(fd.VarType):
		f.Decoder = DecoderVectorNormal
	case fd.Encoder == "simtime":
		f.Decoder = DecoderSimulationTime
	case fd.Encoder == "qangle_precise":
		f.Decoder = DecoderQanglePrecise
	case fd.Encoder == "qangle_var":
		f.Decoder = DecoderQangleVarBits
	case fd.Encoder == "qangle":
		f.Decoder = DecoderQangle
	case fd.VarType == "CGameRules":
		f.Decoder = DecoderGameModeRules
	case fd.VarName == "m_iAmmo" || fd.Encoder == "ammo":
		f.Decoder = DecoderAmmo
	case fd.VarType == "bool":
		f.Decoder = DecoderBool
	case fd.VarType == "float32" || fd.VarType == "float":
		idx := len(r.qfMapper)
		r.qfMapper = append(r.qfMapper, qfloat.New(uint32(fd.BitCount), uint32(fd.Flags), fd.LowValue, fd.HighValue))
		f.Decoder = DecoderQuantizedFloat
		f.QFloatIndex = idx
	case fd.VarType == "uint64" || fd.VarType == "CStrongHandle":
		f.Decoder = DecoderU64
	case fd.VarType == "uint32" || fd.VarType == "CEntityHandle" || fd.VarType == "color32":
		f.Decoder = DecoderU32
	case fd.VarType == "int32" || fd.VarType == "CHandle":
		f.Decoder = DecoderI32
	case fd.VarType == "char" || isStringType(fd.VarType):
		f.Decoder = DecoderString
	case isVectorType(fd.VarType):
		f.Decoder = DecoderVectorXY
	default:
		return Field{}, fmt.Errorf("%w: %s", errs.ErrPropTypeNotFound, fd.VarType)
	}
	return f, nil
}

func isCHandleType(t string) bool {
	return len(t) > 7 && t[:7] == "CHandle"
}

func isVectorType(t string) bool {
	return t == "Vector" || t == "Vector2D" || t == "QAngle"
}

func isStringType(t string) bool {
	return t == "CUtlSymbolLarge" || t == "string" || t == "CUtlString"
}
