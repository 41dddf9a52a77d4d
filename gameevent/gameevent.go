// Package gameevent implements the game-event decoder (spec component
// C10): resolving GameEvent messages against a GameEventList's descriptor
// table into typed key/value records, enriching pawn-referencing keys with
// player identity, and buffering events that arrive before the
// PacketEntities that would populate their referenced entities.
package gameevent

import (
	"fmt"
	"strings"

	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/errs"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/propcontroller"
	"github.com/csdemo/csdemo/stringtable"
)

// KeyType is the wire discriminator for one event key's value (§4.10).
type KeyType int32

const (
	KeyTypeStr    KeyType = 1
	KeyTypeF32    KeyType = 2
	KeyTypeI32    KeyType = 3
	KeyTypeI16    KeyType = 4
	KeyTypeU8     KeyType = 5
	KeyTypeBool   KeyType = 6
	KeyTypeU64    KeyType = 7
	KeyTypeI32Alt KeyType = 8
	KeyTypeI16Alt KeyType = 9
)

// KeyDescriptor names and types one field of an event descriptor.
type KeyDescriptor struct {
	Name string
	Type KeyType
}

// Descriptor is one GameEventList entry: event_id -> {name, keys}.
type Descriptor struct {
	Name string
	Keys []KeyDescriptor
}

// RawKey is one decoded (not-yet-enriched) key/value pair from a GameEvent
// message, keyed by its descriptor position.
type RawKey struct {
	Name  string
	Value output.Variant
}

// Event is a fully resolved, enriched game event ready for emission.
type Event struct {
	Name   string
	Tick   int32
	Fields map[string]output.Variant
}

// internalFieldNames are stripped before emission (§4.10).
var internalFieldNames = map[string]bool{
	"userid":        true,
	"attacker":      true,
	"assister":      true,
	"userid_pawn":   true,
	"attacker_pawn": true,
	"assister_pawn": true,
}

// Decoder owns the descriptor table and the wrong-order event buffer.
type Decoder struct {
	descriptors map[int32]Descriptor
	wrongOrder  []pendingEvent
}

type pendingEvent struct {
	desc Descriptor
	keys []RawKey
	tick int32
}

// NewDecoder returns an empty decoder; SetDescriptor populates it from the
// GameEventList message.
func NewDecoder() *Decoder {
	return &Decoder{descriptors: make(map[int32]Descriptor)}
}

// SetDescriptor registers one event_id -> Descriptor mapping.
func (d *Decoder) SetDescriptor(id int32, desc Descriptor) {
	d.descriptors[id] = desc
}

// Descriptor looks up an event's descriptor by id.
func (d *Decoder) Descriptor(id int32) (Descriptor, bool) {
	desc, ok := d.descriptors[id]
	return desc, ok
}

// DecodeRawKeys pairs wire-decoded values against their descriptor's key
// names, given a pre-decoded slice of (type, value) pairs already widened
// to their I32/F32/etc. Go representation (the actual bit-level reads are
// driven by the caller against the demo's inner protobuf fields, which are
// an out-of-scope external collaborator per §1).
func (d *Decoder) DecodeRawKeys(eventID int32, values []output.Variant) ([]RawKey, error) {
	desc, ok := d.descriptors[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrGameEventUnknownID, eventID)
	}
	if len(values) != len(desc.Keys) {
		return nil, fmt.Errorf("%w: event %s expected %d keys got %d", errs.ErrUnknownGameEventVariant, desc.Name, len(desc.Keys), len(values))
	}
	keys := make([]RawKey, len(desc.Keys))
	for i, k := range desc.Keys {
		keys[i] = RawKey{Name: k.Name, Value: values[i]}
	}
	return keys, nil
}

// Resolve enriches a raw key set into an emittable Event, consulting
// entities for pawn-referencing keys and strTables for player identity.
// If a pawn-referencing key's entity handle isn't yet resolvable, Resolve
// buffers the event in the wrong-order list and returns (nil, nil) — the
// caller should call DrainWrongOrder after the owning PacketEntities has
// been applied.
func (d *Decoder) Resolve(desc Descriptor, keys []RawKey, tick int32, entities *entity.Engine, strTables *stringtable.Engine, props *propcontroller.Controller) (*Event, error) {
	fields := make(map[string]output.Variant)
	for _, k := range keys {
		// internal fields are kept until after the loop so their pawn
		// handles are still enriched; they are stripped below.
		fields[k.Name] = k.Value

		if !strings.Contains(k.Name, "pawn") {
			continue
		}
		prefix := strings.TrimSuffix(k.Name, "_pawn")
		entHandle := k.Value.U32
		entID := int32(entHandle & 0x7FF)
		ent, ok := entities.Entities[entID]
		if !ok {
			d.wrongOrder = append(d.wrongOrder, pendingEvent{desc: desc, keys: keys, tick: tick})
			return nil, nil
		}
		if ui, ok := lookupUserInfoByEntity(strTables, entID); ok {
			fields[prefix+"_name"] = output.VString(ui.Name)
			fields[prefix+"_steamid"] = output.VU64(ui.SteamID)
		}
		if props != nil && ent.Class.Serializer != nil {
			paths := props.PathsFor(*ent.Class.Serializer)
			for _, prop := range props.WantedProps() {
				if key, ok := paths[prop]; ok {
					if v, present := ent.Values[key]; present {
						fields[prefix+"_"+prop] = v
					}
				}
			}
		}
	}
	for name := range internalFieldNames {
		delete(fields, name)
	}
	fields["tick"] = output.VI32(tick)
	return &Event{Name: desc.Name, Tick: tick, Fields: fields}, nil
}

// DrainWrongOrder reprocesses every event buffered by Resolve because its
// pawn entity wasn't populated yet, called after the current packet's
// entity delta has been applied (§4.10 "Ordering hazard").
func (d *Decoder) DrainWrongOrder(entities *entity.Engine, strTables *stringtable.Engine, props *propcontroller.Controller) ([]*Event, error) {
	pending := d.wrongOrder
	d.wrongOrder = nil
	var out []*Event
	for _, p := range pending {
		ev, err := d.Resolve(p.desc, p.keys, p.tick, entities, strTables, props)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func lookupUserInfoByEntity(strTables *stringtable.Engine, entID int32) (stringtable.UserInfo, bool) {
	for _, ui := range strTables.UserInfo {
		if ui.EntityIndex == entID {
			return ui, true
		}
	}
	return stringtable.UserInfo{}, false
}
