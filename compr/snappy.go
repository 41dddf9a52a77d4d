// Package compr wraps the third-party block compressors the demo format
// and the result cache depend on: Snappy-compatible frame/string-table
// payloads via klauspost/compress/s2, and zstd for the on-disk result
// cache (see the cache package).
package compr

import (
	"fmt"
	"unsafe"

	"github.com/klauspost/compress/s2"

	"github.com/csdemo/csdemo/errs"
)

var errDecompression = errs.ErrDecompression

// DecodeSnappy decompresses a Snappy (or s2) block-format payload, as found
// in a bit-6-flagged outer frame (§6) or a string-table value chunk whose
// is_compressed bit was set (§4.6). The snappy block format self-describes
// its uncompressed length, so no destination size is required up front.
func DecodeSnappy(src []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("%w: bad snappy header: %s", errDecompression, err)
	}
	dst := make([]byte, n)
	ret, err := s2.Decode(dst, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errDecompression, err)
	}
	return ret, nil
}

// DecodeSnappyInto decompresses src into dst in place where possible,
// avoiding an allocation on the hot per-tick string-table-update path; dst
// must have capacity for the decompressed output or it will be reallocated
// and returned separately. Grounded on compr.s2Compressor.Decompress's
// overlap-aware in-place decode in the teacher (_examples/SnellerInc-sneller/compr/compression.go).
func DecodeSnappyInto(src, dst []byte) ([]byte, error) {
	tail := dst[len(dst):cap(dst)]
	if overlaps(src, tail) {
		tail = nil
	}
	ret, err := s2.Decode(tail, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errDecompression, err)
	}
	return ret, nil
}

// EncodeSnappy compresses src using the s2 (Snappy-superset) block format.
// Not required by the decoder itself; used by tests to build fixtures.
func EncodeSnappy(src []byte) []byte {
	return s2.Encode(nil, src)
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	a0 := uintptr(unsafe.Pointer(&a[0]))
	a1 := a0 + uintptr(len(a))
	b0 := uintptr(unsafe.Pointer(&b[0]))
	b1 := b0 + uintptr(len(b))
	return a0 < b1 && b0 < a1
}
