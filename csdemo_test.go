package csdemo

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/csdemo/csdemo/firstpass"
	"github.com/csdemo/csdemo/frame"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/secondpass"
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

func writeDemoFile(t *testing.T, frames ...[]byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(frame.MagicPBDEMS2[:])
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	for _, f := range frames {
		buf.Write(f)
	}
	buf.Write(buildFrame(frame.KindStop, 0, nil))

	path := filepath.Join(t.TempDir(), "demo.dem")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRunsFirstAndSecondPassAcrossShards(t *testing.T) {
	f1 := buildFrame(frame.KindFullPacket, 10, []byte{1})
	f2 := buildFrame(frame.KindFullPacket, 20, []byte{2})
	path := writeDemoFile(t, f1, f2)

	dispatch := MessageDispatchers{
		FirstPass:  func(kind frame.Kind, payload []byte, out *firstpass.Output) error { return nil },
		SecondPass: func(f frame.Frame, payload []byte, e *secondpass.Engine, out *output.ShardOutput) error { return nil },
	}

	result, err := Parse(path, Settings{}, dispatch)
	if err != nil {
		t.Fatal(err)
	}
	if result.Combined.Columns == nil {
		t.Fatal("expected a non-nil combined column map")
	}
}

func TestParseRejectsUnknownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.dem")
	if err := os.WriteFile(path, []byte("not a demo file at all............"), 0o644); err != nil {
		t.Fatal(err)
	}
	dispatch := MessageDispatchers{
		FirstPass:  func(kind frame.Kind, payload []byte, out *firstpass.Output) error { return nil },
		SecondPass: func(f frame.Frame, payload []byte, e *secondpass.Engine, out *output.ShardOutput) error { return nil },
	}
	if _, err := Parse(path, Settings{}, dispatch); err == nil {
		t.Fatal("expected an error for an unrecognized file format")
	}
}
