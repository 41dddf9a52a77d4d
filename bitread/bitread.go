// Package bitread implements the little-endian bit/byte reader that every
// other decoding component (frame scanner, quantized float codec,
// field-path decoder, entity state engine) is built on top of (spec
// component C1).
//
// The reader holds an absolute bit cursor into a byte slice and exposes
// both bit-level (ReadBit, ReadNBits, ReadUBitVar, ReadBitCoord, ...) and
// byte-level (ReadString, ReadNBytes) operations; byte-level reads simply
// pull 8 bits at a time so they work correctly even when the cursor isn't
// byte-aligned, matching how the upstream stream interleaves bit-packed
// entity deltas with NUL-terminated name strings.
package bitread

import (
	"math"
	"strings"

	"github.com/csdemo/csdemo/errs"
	"github.com/csdemo/csdemo/ints"
)

// Reader is a little-endian bit reader over an in-memory buffer.
type Reader struct {
	buf    []byte
	bitpos int64 // absolute bit offset from the start of buf
	nbits  int64 // total number of addressable bits
}

// New wraps buf for bit-level reading starting at bit offset 0.
func New(buf []byte) *Reader {
	return &Reader{buf: buf, nbits: int64(len(buf)) * 8}
}

// BitPosition returns the current absolute bit offset.
func (r *Reader) BitPosition() int64 { return r.bitpos }

// BytePosition returns the byte-aligned offset rounded down from the
// current bit cursor (used by the frame scanner to report resync offsets).
func (r *Reader) BytePosition() int64 { return r.bitpos / 8 }

// BitsLeft returns the number of unread bits.
func (r *Reader) BitsLeft() int64 { return r.nbits - r.bitpos }

// Seek moves the cursor to an absolute bit offset.
func (r *Reader) Seek(bitpos int64) { r.bitpos = bitpos }

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.readBits(1)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadNBits reads n (<=32) bits and returns them as an unsigned integer.
func (r *Reader) ReadNBits(n uint) (uint32, error) {
	if n > 32 {
		return 0, errs.ErrOutOfBits
	}
	v, err := r.readBits(n)
	return uint32(v), err
}

// readBits is the core primitive: reads n (<=64) bits LSB-first, crossing
// byte boundaries a run at a time.
func (r *Reader) readBits(n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		return 0, errs.ErrOutOfBits
	}
	if r.BitsLeft() < int64(n) {
		return 0, errs.ErrOutOfBits
	}
	var result uint64
	var gotten uint
	for gotten < n {
		byteIdx := r.bitpos >> 3
		bitInByte := uint(r.bitpos & 7)
		avail := 8 - bitInByte
		take := ints.Min(avail, n-gotten)
		mask := byte((uint(1) << take) - 1)
		bits := (r.buf[byteIdx] >> bitInByte) & mask
		result |= uint64(bits) << gotten
		gotten += take
		r.bitpos += int64(take)
	}
	return result, nil
}

// ReadVarUint32 reads an unsigned LEB128 varint capped at 5 bytes (protobuf
// varint32 wire format).
func (r *Reader) ReadVarUint32() (uint32, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.readBits(8)
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, errs.ErrMalformedMessage
}

// ReadVarInt32 reads a protobuf-style zig-zag encoded signed varint32.
func (r *Reader) ReadVarInt32() (int32, error) {
	u, err := r.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// ReadVarUint64 reads an unsigned LEB128 varint capped at 10 bytes; the
// 10th byte's continuation bit overflowing is a MalformedMessage.
func (r *Reader) ReadVarUint64() (uint64, error) {
	var result uint64
	for i := 0; i < 10; i++ {
		b, err := r.readBits(8)
		if err != nil {
			return 0, err
		}
		if i == 9 && b&0xfe != 0 {
			return 0, errs.ErrMalformedMessage
		}
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, errs.ErrMalformedMessage
}

// ReadUBitVar reads a 6-bit tag with a 2-bit length selector choosing
// +0/+4/+8/+28 extra bits (§4.1, scenario S5).
func (r *Reader) ReadUBitVar() (uint32, error) {
	ret, err := r.ReadNBits(6)
	if err != nil {
		return 0, err
	}
	switch ret & 48 {
	case 16:
		extra, err := r.ReadNBits(4)
		if err != nil {
			return 0, err
		}
		ret = (ret & 15) | (extra << 4)
	case 32:
		extra, err := r.ReadNBits(8)
		if err != nil {
			return 0, err
		}
		ret = (ret & 15) | (extra << 4)
	case 48:
		extra, err := r.ReadNBits(28)
		if err != nil {
			return 0, err
		}
		ret = (ret & 15) | (extra << 4)
	}
	return ret, nil
}

// ReadUBitVarFP reads a prefix-coded value used exclusively by the
// field-path decoder: one flag bit selects among widths 2/4/10/17, the
// last width (31) has no flag bit.
func (r *Reader) ReadUBitVarFP() (uint32, error) {
	widths := [4]uint{2, 4, 10, 17}
	for _, w := range widths {
		has, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if has {
			return r.ReadNBits(w)
		}
	}
	return r.ReadNBits(31)
}

// ReadBitCoord reads two flag bits, an optional sign bit, an optional
// 14-bit integer part (+1 biased so has_int=true never collides with the
// all-absent case) and an optional 5-bit fraction at 1/32 resolution.
func (r *Reader) ReadBitCoord() (float32, error) {
	hasInt, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	hasFrac, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	if !hasInt && !hasFrac {
		return 0, nil
	}
	neg, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	var intPart uint32
	if hasInt {
		v, err := r.ReadNBits(14)
		if err != nil {
			return 0, err
		}
		intPart = v + 1
	}
	var fracPart uint32
	if hasFrac {
		v, err := r.ReadNBits(5)
		if err != nil {
			return 0, err
		}
		fracPart = v
	}
	value := float32(intPart) + float32(fracPart)*(1.0/32.0)
	if neg {
		value = -value
	}
	return value, nil
}

// ReadAngle reads n raw bits and divides by 2^n, per §4.1.
func (r *Reader) ReadAngle(n uint) (float32, error) {
	v, err := r.ReadNBits(n)
	if err != nil {
		return 0, err
	}
	return float32(v) / float32(uint64(1)<<n), nil
}

// ReadFloat32Bits reads 32 raw bits and reinterprets them as an IEEE-754
// float (used by the Noscale and Qangle raw-angle decoders).
func (r *Reader) ReadFloat32Bits() (float32, error) {
	v, err := r.ReadNBits(32)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadString reads a NUL-terminated byte run and returns it as a
// (possibly lossily re-encoded) UTF-8 string. Scenario S3.
func (r *Reader) ReadString() (string, error) {
	var sb strings.Builder
	for {
		b, err := r.readBits(8)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		sb.WriteByte(byte(b))
	}
	return strings.ToValidUTF8(sb.String(), "�"), nil
}

// ReadNBytes reads n whole bytes.
func (r *Reader) ReadNBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadNBytesInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadNBytesInto fills buf completely from the bitstream.
func (r *Reader) ReadNBytesInto(buf []byte) error {
	// fast path: byte-aligned cursor can copy directly out of the
	// underlying buffer instead of looping bit-by-bit.
	if r.bitpos&7 == 0 {
		start := r.bitpos / 8
		end := start + int64(len(buf))
		if end*8 > r.nbits {
			return errs.ErrOutOfBytes
		}
		copy(buf, r.buf[start:end])
		r.bitpos = end * 8
		return nil
	}
	for i := range buf {
		b, err := r.readBits(8)
		if err != nil {
			return err
		}
		buf[i] = byte(b)
	}
	return nil
}
