package secondpass

import (
	"bytes"
	"testing"

	"github.com/csdemo/csdemo/class"
	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/firstpass"
	"github.com/csdemo/csdemo/frame"
	"github.com/csdemo/csdemo/gameevent"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/sendtable"
	"github.com/csdemo/csdemo/stringtable"
)

func varint(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func buildFrame(kind frame.Kind, tick int32, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(varint(uint32(kind)))
	buf.Write(varint(uint32(tick)))
	buf.Write(varint(uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

func demoFile(frames ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(frame.MagicPBDEMS2[:])
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	for _, f := range frames {
		buf.Write(f)
	}
	buf.Write(buildFrame(frame.KindStop, 0, nil))
	return buf.Bytes()
}

func newTestFirstPassOutput() *firstpass.Output {
	sr := sendtable.NewRegistry()
	sr.Build(sendtable.SerializerDef{Name: "CTestPawn"})
	cr := class.NewRegistry()
	cr.AddClassInfo(0, "CTestPawn", "CTestPawn", sr)
	return &firstpass.Output{
		Serializers:  sr,
		Classes:      cr,
		StringTables: nil,
	}
}

func TestRunStopsAtSecondFullPacketWhenNotParsingAll(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	first.FullPacketOffsets = []int64{int64(frame.HeaderSize)}

	f1 := buildFrame(frame.KindFullPacket, 1, []byte{1})
	f2 := buildFrame(frame.KindFullPacket, 2, []byte{2})
	buf := demoFile(f1, f2)

	var dispatched int
	dispatcher := func(f frame.Frame, payload []byte, e *Engine, out *output.ShardOutput) error {
		dispatched++
		return nil
	}

	eng := NewEngine(first, Settings{ParseAllPackets: false})
	_, err := eng.Run(buf, Shard{StartOffset: int64(frame.HeaderSize), EndOffset: -1}, dispatcher)
	if err != nil {
		t.Fatal(err)
	}
	if dispatched != 1 {
		t.Fatalf("got %d dispatches, want 1 (stop before second FullPacket)", dispatched)
	}
}

func TestRunParsesAllPacketsWhenConfigured(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	first.FullPacketOffsets = []int64{int64(frame.HeaderSize)}

	f1 := buildFrame(frame.KindFullPacket, 1, []byte{1})
	f2 := buildFrame(frame.KindFullPacket, 2, []byte{2})
	buf := demoFile(f1, f2)

	var dispatched int
	dispatcher := func(f frame.Frame, payload []byte, e *Engine, out *output.ShardOutput) error {
		dispatched++
		return nil
	}

	eng := NewEngine(first, Settings{ParseAllPackets: true})
	_, err := eng.Run(buf, Shard{StartOffset: int64(frame.HeaderSize), EndOffset: -1}, dispatcher)
	if err != nil {
		t.Fatal(err)
	}
	if dispatched != 2 {
		t.Fatalf("got %d dispatches, want 2", dispatched)
	}
}

func TestRunRejectsShardStartNotAFullPacketOffset(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	first.FullPacketOffsets = nil

	buf := demoFile()
	eng := NewEngine(first, Settings{})
	_, err := eng.Run(buf, Shard{StartOffset: 9999, EndOffset: -1}, nil)
	if err == nil {
		t.Fatal("expected an error for a shard start that is neither HeaderSize nor a FullPacket offset")
	}
}

func TestResolveGameEventAppendsEnrichedRow(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	eng := NewEngine(first, Settings{})
	eng.events.SetDescriptor(1, gameevent.Descriptor{Name: "round_end"})

	var out output.ShardOutput
	if err := eng.ResolveGameEvent(1, nil, 42, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 || out.Events[0].Name != "round_end" {
		t.Fatalf("unexpected events: %+v", out.Events)
	}
	if out.Events[0].Tick != 42 {
		t.Fatalf("expected tick 42, got %d", out.Events[0].Tick)
	}
}

func TestResolveGameEventUnknownIDIsIgnored(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	eng := NewEngine(first, Settings{})

	var out output.ShardOutput
	if err := eng.ResolveGameEvent(999, nil, 1, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 0 {
		t.Fatal("expected no event for an unregistered descriptor id")
	}
}

func TestCollectTickPopulatesEntityColumns(t *testing.T) {
	first := newTestFirstPassOutput()
	first.StringTables = stringtable.NewEngine()
	eng := NewEngine(first, Settings{WantedPaths: []entity.PathKey{{Depth: 0}}})
	cls, _ := first.Classes.ByID(0)
	eng.entities.Entities[5] = &entity.Entity{ID: 5, Class: cls, Values: map[entity.PathKey]output.Variant{}}

	out := output.ShardOutput{Columns: make(map[string]*output.PropColumn)}
	eng.CollectTick(&out)
	if len(out.Columns) != 1 {
		t.Fatalf("got %d columns, want 1", len(out.Columns))
	}
}
