// Package firstpass implements the first-pass parser (spec component C7):
// a single-threaded sequential walk over frames that builds the
// serializer/class/string-table state every second-pass shard needs, and
// records every FullPacket byte offset for sharding.
package firstpass

import (
	"fmt"

	"github.com/csdemo/csdemo/class"
	"github.com/csdemo/csdemo/frame"
	"github.com/csdemo/csdemo/gameevent"
	"github.com/csdemo/csdemo/sendtable"
	"github.com/csdemo/csdemo/stringtable"
)

// Output is FirstPassOutput (§4.7): everything the second pass needs,
// read-only and shared by reference across shards (§5).
type Output struct {
	Header            frame.Header
	Serializers       *sendtable.Registry
	Classes           *class.Registry
	StringTables      *stringtable.Engine
	FullPacketOffsets []int64
	GameEvents        *gameevent.Decoder
}

// Run walks buf from HeaderSize to EOF, dispatching each frame's payload
// to the C4/C5/C6 builders, and returns the accumulated Output. decodeMsg
// is supplied by the caller (csdemo's root package) since message bodies
// are protobuf, an out-of-scope external collaborator per §1; it receives
// the frame's Kind and decompressed payload and must invoke the passed
// callbacks for whichever sub-messages it recognizes.
func Run(buf []byte, decodeMsg MessageDispatcher) (*Output, error) {
	hdr, err := frame.ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	out := &Output{
		Header:       hdr,
		Serializers:  sendtable.NewRegistry(),
		Classes:      class.NewRegistry(),
		StringTables: stringtable.NewEngine(),
		GameEvents:   gameevent.NewDecoder(),
	}

	offset := int64(frame.HeaderSize)
	for offset < int64(len(buf)) {
		f, err := frame.ReadFrame(buf, offset)
		if err != nil {
			return nil, fmt.Errorf("at offset %d: %w", offset, err)
		}
		offset = f.PayloadEnd()

		switch f.Kind {
		case frame.KindStop:
			return out, nil
		case frame.KindFullPacket:
			out.FullPacketOffsets = append(out.FullPacketOffsets, f.StartsAt)
			continue
		case frame.KindSendTables, frame.KindClassInfo, frame.KindStringTables:
			payload, err := frame.Payload(buf, f)
			if err != nil {
				return nil, err
			}
			if err := decodeMsg(f.Kind, payload, out); err != nil {
				return nil, fmt.Errorf("%w: frame at %d", err, f.StartsAt)
			}
		default:
			// every other kind is irrelevant to first-pass metadata and is
			// skipped by its declared size (§4.7).
		}
	}
	return out, nil
}

// MessageDispatcher decodes one frame's already-decompressed payload and
// applies it to out's builders. Supplied by the caller because the actual
// protobuf message shapes are out of scope (§1).
type MessageDispatcher func(kind frame.Kind, payload []byte, out *Output) error
