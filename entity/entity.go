// Package entity implements the entity state engine (spec component C9):
// entity creation/update/deletion driven by PacketEntities messages, field
// decoding via the C8 field-path decoder and each field's assigned
// decoder, and baseline capture/application.
package entity

import (
	"fmt"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/class"
	"github.com/csdemo/csdemo/errs"
	"github.com/csdemo/csdemo/fieldpath"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/qfloat"
	"github.com/csdemo/csdemo/sendtable"
)

// Command is the 2-bit PacketEntities per-entity command (§4.9).
type Command uint8

const (
	CommandUpdate         Command = 0
	CommandLeave          Command = 1
	CommandEnter          Command = 2
	CommandLeaveAndDelete Command = 3
)

// PathKey is a FieldPath flattened into a comparable map key.
type PathKey struct {
	Indices [7]int32
	Depth   int
}

func keyFromPath(p *fieldpath.Path) PathKey {
	return PathKey{Indices: p.Indices, Depth: p.Depth}
}

// Entity is {entity_id, class, field_values} (§3).
type Entity struct {
	ID     int32
	Class  class.Class
	Serial uint32
	Values map[PathKey]output.Variant
}

// Engine owns the live entity map and per-class baselines for one shard.
// Baselines are seeded by copying first pass's baseline map (§5); the
// per-shard Entities map is never shared across shards.
type Engine struct {
	Entities  map[int32]*Entity
	Baselines map[uint32][]byte
	lastID    int32
	classes   *class.Registry
}

// NewEngine returns an engine seeded with a copy of baselines (the
// per-shard baseline map must not alias the first-pass map: §5's
// "Mutable, per-shard: ... baseline map (seeded by copy from first pass)").
func NewEngine(classes *class.Registry, baselines map[uint32][]byte) *Engine {
	seeded := make(map[uint32][]byte, len(baselines))
	for k, v := range baselines {
		seeded[k] = v
	}
	return &Engine{
		Entities:  make(map[int32]*Entity),
		Baselines: seeded,
		classes:   classes,
		lastID:    -1,
	}
}

// PacketEntitiesHeader is the decoded message header (§4.9).
type PacketEntitiesHeader struct {
	MaxEntries     int32
	UpdatedEntries int32
	IsDelta        bool
	UpdateBaseline bool
	BaselineIndex  int32
	DeltaFrom      int32
}

// ApplyPacketEntities processes one PacketEntities message's entity loop.
func (e *Engine) ApplyPacketEntities(r *bitread.Reader, hdr PacketEntitiesHeader, classBits uint) error {
	for i := int32(0); i < hdr.UpdatedEntries; i++ {
		delta, err := r.ReadUBitVarFP()
		if err != nil {
			return err
		}
		e.lastID = e.lastID + 1 + int32(delta)
		id := e.lastID

		cmdBits, err := r.ReadNBits(2)
		if err != nil {
			return err
		}
		cmd := Command(cmdBits)

		switch cmd {
		case CommandEnter:
			if err := e.enter(r, id, classBits); err != nil {
				return fmt.Errorf("entity %d enter: %w", id, err)
			}
		case CommandUpdate:
			ent, ok := e.Entities[id]
			if !ok {
				return fmt.Errorf("%w: entity %d", errs.ErrEntityNotFound, id)
			}
			if err := applyDelta(r, ent); err != nil {
				return fmt.Errorf("entity %d update: %w", id, err)
			}
		case CommandLeave:
			// PVS leave without deletion: the entity stays in Entities
			// with its last known values, and CollectEntities keeps
			// emitting it.
		case CommandLeaveAndDelete:
			delete(e.Entities, id)
		}
	}
	return nil
}

// enter handles the Enter command: reads the class id and serial, seeds a
// zeroed entity with its class baseline applied as an initial delta, then
// applies the packet's own delta on top (§4.9 step 3).
func (e *Engine) enter(r *bitread.Reader, id int32, classBits uint) error {
	clsID, err := r.ReadNBits(classBits)
	if err != nil {
		return err
	}
	serial, err := r.ReadNBits(17)
	if err != nil {
		return err
	}
	cls, ok := e.classes.ByID(int32(clsID))
	if !ok {
		return fmt.Errorf("%w: class %d", errs.ErrClassNotFound, clsID)
	}
	ent := &Entity{ID: id, Class: cls, Serial: serial, Values: make(map[PathKey]output.Variant)}

	if baseline, ok := e.Baselines[uint32(clsID)]; ok {
		br := bitread.New(baseline)
		if err := applyDelta(br, ent); err != nil {
			return fmt.Errorf("applying baseline: %w", err)
		}
	}
	if err := applyDelta(r, ent); err != nil {
		return err
	}
	e.Entities[id] = ent
	return nil
}

// applyDelta drives the field-path decoder to completion; for each decoded
// path it resolves the target field through ent's serializer tree and
// invokes that field's decoder, storing the resulting Variant (§4.9 "driving
// C8 to completion").
func applyDelta(r *bitread.Reader, ent *Entity) error {
	path := &fieldpath.Path{}
	for {
		done, err := fieldpath.Decode(r, path)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		field, err := resolveField(ent.Class.Serializer, path)
		if err != nil {
			return err
		}
		v, err := decodeFieldValue(r, field)
		if err != nil {
			return err
		}
		ent.Values[keyFromPath(path)] = v
	}
}

// resolveField walks path through nested serializers (§3: "Field paths
// never address beyond the serializer's declared depth").
func resolveField(root *sendtable.Serializer, path *fieldpath.Path) (*sendtable.Field, error) {
	cur := root
	for d := 0; d < path.Depth; d++ {
		idx := path.Indices[d]
		if cur == nil || int(idx) >= len(cur.Fields) || idx < 0 {
			return nil, errs.ErrIllegalPathOp
		}
		cur = cur.Fields[idx].ChildSerializer
	}
	last := path.Indices[path.Depth]
	if cur == nil || int(last) >= len(cur.Fields) || last < 0 {
		return nil, errs.ErrIllegalPathOp
	}
	return &cur.Fields[last], nil
}

// decodeFieldValue dispatches on field.Decoder (resolved once at
// serializer-build time) to the right bit-level routine.
func decodeFieldValue(r *bitread.Reader, field *sendtable.Field) (output.Variant, error) {
	switch field.Decoder {
	case sendtable.DecoderBool:
		v, err := r.ReadBit()
		return output.VBool(v), err
	case sendtable.DecoderI32:
		v, err := r.ReadVarInt32()
		return output.VI32(v), err
	case sendtable.DecoderU32, sendtable.DecoderCentityHandle:
		v, err := r.ReadVarUint32()
		return output.VU32(v), err
	case sendtable.DecoderU64:
		v, err := r.ReadVarUint64()
		return output.VU64(v), err
	case sendtable.DecoderString:
		v, err := r.ReadString()
		return output.VString(v), err
	case sendtable.DecoderNoscale:
		v, err := qfloat.DecodeNoscale(r)
		return output.VF32(v), err
	case sendtable.DecoderFloatCoord:
		v, err := qfloat.DecodeFloatCoord(r)
		return output.VF32(v), err
	case sendtable.DecoderSimulationTime:
		v, err := qfloat.DecodeSimulationTime(r)
		return output.VF32(v), err
	case sendtable.DecoderQangle:
		v, err := qfloat.DecodeQangle(r)
		return output.VVec3(v), err
	case sendtable.DecoderQangleVarBits:
		v, err := qfloat.DecodeQangleVarBits(r)
		return output.VVec3(v), err
	case sendtable.DecoderQanglePrecise:
		v, err := qfloat.DecodeQanglePrecise(r)
		return output.VVec3(v), err
	case sendtable.DecoderVectorNormal:
		v, err := qfloat.DecodeVectorNormal(r)
		return output.VVec3(v), err
	case sendtable.DecoderAmmo:
		v, err := r.ReadVarUint32()
		if err != nil {
			return output.Variant{}, err
		}
		if v > 0 {
			v--
		}
		return output.VU32(v), nil
	case sendtable.DecoderGameModeRules:
		v, err := r.ReadNBits(7)
		return output.VU32(v), err
	default:
		return output.Variant{}, fmt.Errorf("%w: decoder %d", errs.ErrFieldNoDecoder, field.Decoder)
	}
}

// CollectEntities appends, for every (entity, property) the caller wants,
// the current value (or an absent marker) to the corresponding PropColumn
// (§4.9's "collect_entities", run once per processed packet).
func (e *Engine) CollectEntities(wanted []PathKey, columns map[int32]map[PathKey]*output.PropColumn) {
	for id, ent := range e.Entities {
		byPath, ok := columns[id]
		if !ok {
			byPath = make(map[PathKey]*output.PropColumn)
			columns[id] = byPath
		}
		for _, key := range wanted {
			col, ok := byPath[key]
			if !ok {
				col = output.NewPropColumn(fmt.Sprintf("entity-%d-path-%v", id, key))
				byPath[key] = col
			}
			v, present := ent.Values[key]
			col.Push(v, present)
		}
	}
}
