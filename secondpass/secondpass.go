// Package secondpass implements the second-pass parser (spec component
// C11): given a (start_offset, end_offset) shard and the read-only state
// first pass produced, it decodes PacketEntities and GameEvent messages
// into a ShardOutput. One Engine instance handles exactly one shard; the
// combiner in package output merges every shard's ShardOutput afterward.
package secondpass

import (
	"fmt"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/class"
	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/firstpass"
	"github.com/csdemo/csdemo/frame"
	"github.com/csdemo/csdemo/gameevent"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/propcontroller"
	"github.com/csdemo/csdemo/sendtable"
	"github.com/csdemo/csdemo/stringtable"
)

// Shard is one (start_offset, end_offset) chunk assigned to one Engine
// (§4.11). EndOffset is exclusive; a value of -1 means "to EOF" and is only
// valid for the last shard.
type Shard struct {
	StartOffset int64
	EndOffset   int64
}

// Settings controls second-pass behavior that isn't derivable from the
// demo itself (§4.11 "parse all packets").
type Settings struct {
	ParseAllPackets bool
	Props           *propcontroller.Controller
	WantedPaths     []entity.PathKey
}

// Engine runs one shard. It owns the per-shard mutable state: Entities is
// never shared across shards, but Serializers/Classes/StringTables/
// GameEvents carry first pass's frozen, read-only state by reference (§5).
type Engine struct {
	first    *firstpass.Output
	settings Settings
	entities *entity.Engine
	events   *gameevent.Decoder
}

// NewEngine seeds a fresh per-shard Entities map from first's baselines,
// and a fresh per-shard game-event wrong-order buffer.
func NewEngine(first *firstpass.Output, settings Settings) *Engine {
	return &Engine{
		first:    first,
		settings: settings,
		entities: entity.NewEngine(first.Classes, collectBaselines(first.Classes, first.StringTables)),
		events:   gameevent.NewDecoder(),
	}
}

// collectBaselines maps class id -> instancebaseline bytes via the
// stringtable engine's Baselines side table (§4.6).
func collectBaselines(classes *class.Registry, strTables *stringtable.Engine) map[uint32][]byte {
	out := make(map[uint32][]byte, len(strTables.Baselines))
	for k, v := range strTables.Baselines {
		out[k] = v
	}
	return out
}

// Run decodes buf over shard, dispatching PacketEntities and GameEvent
// payloads to decodeMsg, and returns the accumulated ShardOutput. Frame
// kinds already handled by first pass (SendTables, StringTables,
// AnimationData) are skipped; FullPackets after the first one are only
// decoded when settings.ParseAllPackets is set (§4.11).
func (e *Engine) Run(buf []byte, shard Shard, decodeMsg MessageDispatcher) (output.ShardOutput, error) {
	out := output.ShardOutput{StartOffset: shard.StartOffset, Columns: make(map[string]*output.PropColumn), Convars: make(map[string]string)}

	if shard.StartOffset != int64(frame.HeaderSize) && !containsOffset(e.first.FullPacketOffsets, shard.StartOffset) {
		return out, fmt.Errorf("shard start %d is neither the header end nor a known FullPacket offset", shard.StartOffset)
	}

	offset := shard.StartOffset
	seenFirstFullPacket := false
	for offset < int64(len(buf)) {
		if shard.EndOffset >= 0 && offset >= shard.EndOffset {
			break
		}
		f, err := frame.ReadFrame(buf, offset)
		if err != nil {
			return out, fmt.Errorf("at offset %d: %w", offset, err)
		}
		offset = f.PayloadEnd()

		switch f.Kind {
		case frame.KindStop:
			return out, nil
		case frame.KindSendTables, frame.KindStringTables, frame.KindAnimationData, frame.KindClassInfo:
			// already applied from first pass (§4.11).
			continue
		case frame.KindFullPacket:
			if seenFirstFullPacket && !e.settings.ParseAllPackets {
				// this frame belongs to the following shard.
				return out, nil
			}
			seenFirstFullPacket = true
			fallthrough
		case frame.KindPacket, frame.KindSignonPacket:
			payload, err := frame.Payload(buf, f)
			if err != nil {
				return out, err
			}
			if err := decodeMsg(f, payload, e, &out); err != nil {
				return out, fmt.Errorf("%w: frame at %d", err, f.StartsAt)
			}
		default:
			// irrelevant to entity/event extraction, skipped by size.
		}
	}
	return out, nil
}

func containsOffset(offsets []int64, want int64) bool {
	for _, o := range offsets {
		if o == want {
			return true
		}
	}
	return false
}

// ApplyPacketEntities drives the entity engine's PacketEntities handling
// (§4.9 step 4). Callers should follow with CollectTick and Drain once the
// owning tick's game events have also been decoded.
func (e *Engine) ApplyPacketEntities(r *bitread.Reader, hdr entity.PacketEntitiesHeader) error {
	return e.entities.ApplyPacketEntities(r, hdr, e.first.Classes.BitWidth())
}

// ResolveGameEvent decodes one GameEvent's raw keys against its descriptor
// and enriches it, appending the result (if any) to out.Events. An event
// whose pawn reference is not populated yet is buffered instead and is
// appended by a later Drain call; ResolveGameEvent itself does not drain.
func (e *Engine) ResolveGameEvent(eventID int32, values []output.Variant, tick int32, out *output.ShardOutput) error {
	desc, ok := e.events.Descriptor(eventID)
	if !ok {
		return nil
	}
	keys, err := e.events.DecodeRawKeys(eventID, values)
	if err != nil {
		return err
	}
	ev, err := e.events.Resolve(desc, keys, tick, e.entities, e.first.StringTables, e.settings.Props)
	if err != nil {
		return err
	}
	if ev != nil {
		out.Events = append(out.Events, output.GameEventRow{Name: ev.Name, Tick: ev.Tick, Fields: ev.Fields})
	}
	return nil
}

// Drain appends any game events that had been buffered because their pawn
// reference wasn't populated yet when first decoded (§4.10).
func (e *Engine) Drain(out *output.ShardOutput) error {
	drained, err := e.events.DrainWrongOrder(e.entities, e.first.StringTables, e.settings.Props)
	if err != nil {
		return err
	}
	for _, ev := range drained {
		out.Events = append(out.Events, output.GameEventRow{Name: ev.Name, Tick: ev.Tick, Fields: ev.Fields})
	}
	return nil
}

// CollectTick snapshots the current value of every wanted (entity, path)
// pair into out's columns, called once per processed tick (§4.9
// "collect_entities").
func (e *Engine) CollectTick(out *output.ShardOutput) {
	byEntity := make(map[int32]map[entity.PathKey]*output.PropColumn)
	e.entities.CollectEntities(e.settings.WantedPaths, byEntity)
	for id, byPath := range byEntity {
		for key, col := range byPath {
			target, ok := out.Columns[columnName(id, key)]
			if !ok {
				target = output.NewPropColumn(columnName(id, key))
				out.Columns[columnName(id, key)] = target
			}
			target.Extend(col)
		}
	}
}

func columnName(entID int32, key entity.PathKey) string {
	return fmt.Sprintf("entity-%d-path-%v", entID, key)
}

// Entities exposes the shard's live entity engine, e.g. for AddClassInfo
// resolution hooks a caller's MessageDispatcher might need.
func (e *Engine) Entities() *entity.Engine { return e.entities }

// Serializers exposes first pass's frozen serializer registry.
func (e *Engine) Serializers() *sendtable.Registry { return e.first.Serializers }

// MessageDispatcher decodes one in-shard frame's already-decompressed
// payload, driving e's ApplyPacketEntities/ResolveGameEvent/Drain and
// appending chat/item-drop/convar rows to out. Supplied by the caller
// because the inner protobuf message shapes are out of scope (§1).
type MessageDispatcher func(f frame.Frame, payload []byte, e *Engine, out *output.ShardOutput) error
