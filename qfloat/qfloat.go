// Package qfloat implements the quantized float codec (spec component C3):
// a per-field decoder configured by a bit count, value range, and a small
// set of rounding/encoding flags, plus the handful of specialized angle and
// simulation-time decoders that ride on top of the same bit reader.
package qfloat

import (
	"math"

	"github.com/csdemo/csdemo/bitread"
)

// Flag bits, named to match the wire format (spec §4.3).
const (
	RoundDown      uint32 = 1 << 0
	RoundUp        uint32 = 1 << 1
	EncodeZero     uint32 = 1 << 2
	EncodeIntegers uint32 = 1 << 3
)

var fallbackMultipliers = [...]float32{0.9999, 0.99, 0.9, 0.8, 0.7}

// Config is a fully-resolved quantized float decoder. Construct one with
// New; the zero value is not usable.
type Config struct {
	BitCount   uint32
	Flags      uint32
	Low        float32
	High       float32
	NoScale    bool
	highLowMul float32
	decMul     float32
}

// New resolves {bitCount, flags, low, high} into a Config, running the same
// validation/widening steps the engine runs once per field at send-table
// build time (§4.3). bitCount == 0 or >= 32 yields an unscaled (raw
// IEEE-754) decoder.
func New(bitCount uint32, flags uint32, low, high float32) Config {
	if bitCount == 0 || bitCount >= 32 {
		return Config{NoScale: true, BitCount: 32}
	}
	c := Config{BitCount: bitCount, Flags: flags, Low: low, High: high}
	c.validateFlags()
	c.resolveRange()
	c.assignMultipliers()
	return c
}

// validateFlags applies the mutual-exclusion and degenerate-range rules:
// rounding toward a zero-valued endpoint is meaningless, EncodeZero is
// redundant once rounding already reproduces zero, and a strictly
// positive/negative range can never encode zero at all.
func (c *Config) validateFlags() {
	if c.Flags == 0 {
		return
	}
	if (c.Low == 0 && c.Flags&RoundDown != 0) || (c.High == 0 && c.Flags&RoundUp != 0) {
		c.Flags &^= EncodeZero
	}
	if c.Low == 0 && c.Flags&EncodeZero != 0 {
		c.Flags |= RoundDown
		c.Flags &^= EncodeZero
	}
	if c.High == 0 && c.Flags&EncodeZero != 0 {
		c.Flags |= RoundUp
		c.Flags &^= EncodeZero
	}
	if c.Low > 0 || c.High < 0 {
		c.Flags &^= EncodeZero
	}
	if c.Flags&EncodeIntegers != 0 {
		c.Flags &^= RoundUp | RoundDown | EncodeZero
	}
	if c.Flags&(RoundDown|RoundUp) == RoundDown|RoundUp {
		// the upstream engine treats this as a content error in the
		// serializer definition rather than a recoverable runtime state;
		// csdemo keeps it a panic to match "corrupt schema" severity.
		panic("qfloat: RoundDown and RoundUp are mutually exclusive")
	}
}

// resolveRange narrows [Low, High] by one quantization step when rounding
// is in effect, so the narrowed endpoint decodes back to exactly Low/High,
// and widens BitCount for EncodeIntegers so every integer in range has a
// representable code.
func (c *Config) resolveRange() {
	steps := uint64(1) << c.BitCount
	switch {
	case c.Flags&RoundDown != 0:
		c.High -= (c.High - c.Low) / float32(steps)
	case c.Flags&RoundUp != 0:
		c.Low += (c.High - c.Low) / float32(steps)
	}
	if c.Flags&EncodeIntegers != 0 {
		delta := c.High - c.Low
		if delta < 1 {
			delta = 1
		}
		deltaLog2 := math.Ceil(math.Log2(float64(delta)))
		rangeBits := uint64(1) << uint(deltaLog2)
		bitCount := c.BitCount
		for (uint64(1) << bitCount) <= rangeBits {
			bitCount++
		}
		if bitCount > c.BitCount {
			c.BitCount = bitCount
			steps = uint64(1) << bitCount
		}
		c.High = c.Low + (float32(rangeBits) - float32(rangeBits)/float32(steps))
	}
}

// assignMultipliers derives highLowMul (used only by quantize, the
// encode-side helper kept for round-trip tests) and decMul, the
// 1/(2^bitCount - 1) factor decode scales raw bits by. When the naive
// multiplier would make quantize(range) overflow the bit width, the
// upstream engine retries with a shrinking set of safety margins.
func (c *Config) assignMultipliers() {
	high := uint64(1)<<c.BitCount - 1
	rng := c.High - c.Low
	var mul float32
	if rng <= 0 {
		mul = float32(high)
	} else {
		mul = float32(high) / rng
	}
	if mul*rng > float32(high) {
		for _, factor := range fallbackMultipliers {
			candidate := float32(high) / rng * factor
			if candidate*rng <= float32(high) {
				mul = candidate
				break
			}
		}
	}
	c.highLowMul = mul
	c.decMul = 1.0 / float32(high)
}

// quantize maps a raw value into its quantized representation; kept for
// symmetry with the upstream encoder and exercised by round-trip tests.
func (c Config) quantize(val float32) float32 {
	if val < c.Low {
		return c.Low
	}
	if val > c.High {
		return c.High
	}
	i := (val - c.Low) * c.highLowMul
	return c.Low + (c.High-c.Low)*(i*c.decMul)
}

// Decode reads one quantized float from r per §4.3: RoundDown/RoundUp/
// EncodeZero each consume a leading flag bit that can short-circuit to a
// fixed value; otherwise BitCount raw bits are read and scaled into
// [Low, High]. NoScale configs reinterpret 32 raw bits as IEEE-754.
func (c Config) Decode(r *bitread.Reader) (float32, error) {
	if c.NoScale {
		return r.ReadFloat32Bits()
	}
	if c.Flags&RoundDown != 0 {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			return c.Low, nil
		}
	}
	if c.Flags&RoundUp != 0 {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			return c.High, nil
		}
	}
	if c.Flags&EncodeZero != 0 {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			return 0, nil
		}
	}
	bits, err := r.ReadNBits(uint(c.BitCount))
	if err != nil {
		return 0, err
	}
	return c.Low + (c.High-c.Low)*float32(bits)*c.decMul, nil
}

// DecodeNoscale reads 32 raw bits and reinterprets them as an IEEE-754
// float, independent of any Config (used by fields whose encoder name is
// "noscale" directly rather than through a QuantizedFloat index).
func DecodeNoscale(r *bitread.Reader) (float32, error) {
	return r.ReadFloat32Bits()
}

// DecodeSimulationTime reads an unsigned varint tick count and scales it
// by 1/30 (the engine's fixed simulation tick rate).
func DecodeSimulationTime(r *bitread.Reader) (float32, error) {
	v, err := r.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return float32(v) * (1.0 / 30.0), nil
}

// DecodeFloatCoord is read_bit_coord, exposed under the name the
// send-table decision table (§4.4) uses for the "coord" encoder.
func DecodeFloatCoord(r *bitread.Reader) (float32, error) {
	return r.ReadBitCoord()
}

// Vec3 is a 3-component vector, used by the normal/qangle decoders below.
type Vec3 struct {
	X, Y, Z float32
}

// DecodeQangle reads three raw 32-bit angles, each divided by 2^32.
func DecodeQangle(r *bitread.Reader) (Vec3, error) {
	x, err := r.ReadAngle(32)
	if err != nil {
		return Vec3{}, err
	}
	y, err := r.ReadAngle(32)
	if err != nil {
		return Vec3{}, err
	}
	z, err := r.ReadAngle(32)
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{X: x, Y: y, Z: z}, nil
}

// DecodeQangleVarBits reads three optional bit_coord values, each gated by
// its own leading "has this component" flag bit — the variant used when
// the field's encoder is "qangle" without a fixed bit width.
func DecodeQangleVarBits(r *bitread.Reader) (Vec3, error) {
	var v Vec3
	hasX, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	hasY, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	hasZ, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	if hasX {
		if v.X, err = r.ReadBitCoord(); err != nil {
			return v, err
		}
	}
	if hasY {
		if v.Y, err = r.ReadBitCoord(); err != nil {
			return v, err
		}
	}
	if hasZ {
		if v.Z, err = r.ReadBitCoord(); err != nil {
			return v, err
		}
	}
	return v, nil
}

// DecodeQanglePrecise reads three optional 20-bit unsigned values, each
// mapped from [0, 2^20) into [-180, 180).
func DecodeQanglePrecise(r *bitread.Reader) (Vec3, error) {
	var v Vec3
	hasX, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	hasY, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	hasZ, err := r.ReadBit()
	if err != nil {
		return v, err
	}
	const scale = 360.0 / (1 << 20)
	if hasX {
		bits, err := r.ReadNBits(20)
		if err != nil {
			return v, err
		}
		v.X = float32(bits)*scale - 180
	}
	if hasY {
		bits, err := r.ReadNBits(20)
		if err != nil {
			return v, err
		}
		v.Y = float32(bits)*scale - 180
	}
	if hasZ {
		bits, err := r.ReadNBits(20)
		if err != nil {
			return v, err
		}
		v.Z = float32(bits)*scale - 180
	}
	return v, nil
}

// decodeNormal reads one signed 11-bit fraction: a sign bit followed by an
// 11-bit magnitude, scaled by 1/(2^11 - 1) into [0, 1].
func decodeNormal(r *bitread.Reader) (float32, error) {
	isNeg, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	const fracBits = 11
	length, err := r.ReadNBits(fracBits)
	if err != nil {
		return 0, err
	}
	result := float32(length) * (1.0 / ((1 << fracBits) - 1))
	if isNeg {
		result = -result
	}
	return result, nil
}

// DecodeVectorNormal reads a compressed unit normal: has_x/has_y presence
// flags, a signed 11-bit fraction for each present axis, then a trailing
// neg_z flag; Z is reconstructed from the unit-length constraint.
func DecodeVectorNormal(r *bitread.Reader) (Vec3, error) {
	hasX, err := r.ReadBit()
	if err != nil {
		return Vec3{}, err
	}
	hasY, err := r.ReadBit()
	if err != nil {
		return Vec3{}, err
	}
	var x, y float32
	if hasX {
		x, err = decodeNormal(r)
		if err != nil {
			return Vec3{}, err
		}
	}
	if hasY {
		y, err = decodeNormal(r)
		if err != nil {
			return Vec3{}, err
		}
	}
	negZ, err := r.ReadBit()
	if err != nil {
		return Vec3{}, err
	}
	zSq := x*x + y*y
	z := float32(0)
	if zSq < 1 {
		z = float32(math.Sqrt(float64(1 - zSq)))
	}
	if negZ {
		z = -z
	}
	return Vec3{X: x, Y: y, Z: z}, nil
}
