package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/csdemo/csdemo/errs"
)

// HeaderSize is the fixed 16-byte file header every valid demo starts with:
// an 8-byte magic, a little-endian u32 size field, and 4 reserved bytes.
const HeaderSize = 16

// MagicPBDEMS2 is the Source 2 demo magic. MagicHL2Demo is the legacy
// Source 1 magic, which is explicitly rejected (§1 Non-goals).
var (
	MagicPBDEMS2 = [8]byte{'P', 'B', 'D', 'E', 'M', 'S', '2', 0}
	MagicHL2Demo = [8]byte{'H', 'L', '2', 'D', 'E', 'M', 'O', 0}
)

// Header is the parsed fixed-size file header.
type Header struct {
	Magic               [8]byte
	ExpectedSizeMinus18 uint32
	Reserved            [4]byte
}

// ParseHeader validates and decodes the first 16 bytes of a demo file.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: file shorter than the 16-byte header", errs.ErrDemoEndsEarly)
	}
	var h Header
	copy(h.Magic[:], buf[:8])
	if h.Magic == MagicHL2Demo {
		return Header{}, errs.ErrSource1Demo
	}
	if h.Magic != MagicPBDEMS2 {
		return Header{}, errs.ErrUnknownFile
	}
	h.ExpectedSizeMinus18 = binary.LittleEndian.Uint32(buf[8:12])
	copy(h.Reserved[:], buf[12:16])
	return h, nil
}
