package firstpass

import (
	"bytes"
	"testing"

	"github.com/csdemo/csdemo/frame"
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

func noopDispatcher(kind frame.Kind, payload []byte, out *Output) error { return nil }

func TestRunRecordsFullPacketOffsets(t *testing.T) {
	f1 := buildFrame(frame.KindFullPacket, 10, []byte{1, 2, 3})
	f2 := buildFrame(frame.KindFullPacket, 20, []byte{4, 5, 6})
	buf := demoFile(f1, f2)

	out, err := Run(buf, noopDispatcher)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.FullPacketOffsets) != 2 {
		t.Fatalf("got %d offsets, want 2", len(out.FullPacketOffsets))
	}
	if out.FullPacketOffsets[0] != frame.HeaderSize {
		t.Fatalf("got first offset %d, want %d", out.FullPacketOffsets[0], frame.HeaderSize)
	}
}

func TestRunStopsAtStopFrame(t *testing.T) {
	f1 := buildFrame(frame.KindFullPacket, 1, []byte{9})
	var buf bytes.Buffer
	buf.Write(frame.MagicPBDEMS2[:])
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	buf.Write(buildFrame(frame.KindStop, 0, nil))
	buf.Write(f1) // this frame comes after Stop and must never be reached

	out, err := Run(buf.Bytes(), noopDispatcher)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.FullPacketOffsets) != 0 {
		t.Fatal("expected Run to stop before the post-Stop FullPacket frame")
	}
}

func TestRunDispatchesSendTables(t *testing.T) {
	payload := []byte("sendtables-bytes")
	f1 := buildFrame(frame.KindSendTables, 0, payload)
	buf := demoFile(f1)

	var seen []byte
	dispatcher := func(kind frame.Kind, p []byte, out *Output) error {
		if kind == frame.KindSendTables {
			seen = append([]byte(nil), p...)
		}
		return nil
	}
	if _, err := Run(buf, dispatcher); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(seen, payload) {
		t.Fatalf("got dispatched payload %q, want %q", seen, payload)
	}
}
