package frame

import (
	"fmt"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/compr"
	"github.com/csdemo/csdemo/errs"
)

// Frame is one outer (cmd, tick, size, bytes) record. StartsAt/EndsAt are
// absolute byte offsets into the demo file: EndsAt is the offset of the
// first payload byte, and the frame's payload runs [EndsAt, EndsAt+Size).
type Frame struct {
	Cmd        int32
	Tick       int32
	Size       int32
	StartsAt   int64
	EndsAt     int64
	Compressed bool
	Kind       Kind
}

// PayloadEnd returns the absolute offset just past this frame's payload,
// i.e. where the next frame begins.
func (f Frame) PayloadEnd() int64 { return f.EndsAt + int64(f.Size) }

// ReadFrame decodes the (cmd, tick, size) varint triple starting at byte
// offset start in buf, per §4.2. The three fields are always byte-aligned
// varints, so this reuses the bit reader's varint routines starting from a
// byte boundary.
func ReadFrame(buf []byte, start int64) (Frame, error) {
	if start < 0 || start >= int64(len(buf)) {
		return Frame{}, errs.ErrOutOfBytes
	}
	r := bitread.New(buf[start:])
	cmd, err := r.ReadVarUint32()
	if err != nil {
		return Frame{}, fmt.Errorf("reading cmd varint: %w", err)
	}
	tick, err := r.ReadVarUint32()
	if err != nil {
		return Frame{}, fmt.Errorf("reading tick varint: %w", err)
	}
	size, err := r.ReadVarUint32()
	if err != nil {
		return Frame{}, fmt.Errorf("reading size varint: %w", err)
	}
	ends := start + r.BytePosition()
	kindVal := int32(cmd) &^ CompressedFlag
	kind, ok := KindFromInt(kindVal)
	if !ok {
		return Frame{}, fmt.Errorf("%w: %d", errs.ErrUnknownDemoCmd, kindVal)
	}
	if ends+int64(size) > int64(len(buf)) {
		return Frame{}, errs.ErrDemoEndsEarly
	}
	return Frame{
		Cmd:        int32(cmd),
		Tick:       int32(tick),
		Size:       int32(size),
		StartsAt:   start,
		EndsAt:     ends,
		Compressed: int32(cmd)&CompressedFlag != 0,
		Kind:       kind,
	}, nil
}

// Payload returns f's payload bytes from buf, transparently Snappy/s2
// decompressing them if the frame's compressed flag is set.
func Payload(buf []byte, f Frame) ([]byte, error) {
	raw := buf[f.EndsAt:f.PayloadEnd()]
	if !f.Compressed {
		return raw, nil
	}
	out, err := compr.DecodeSnappy(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: frame at %d: %s", errs.ErrDecompression, f.StartsAt, err)
	}
	return out, nil
}
