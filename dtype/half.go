package dtype

import (
	"math"

	arrowfloat16 "github.com/apache/arrow-go/v18/arrow/float16"
)

// Half16 is the 16-bit opaque storage representation shared by f16 and
// bf16 values. Which interpretation applies is determined by the dtype
// tag carried alongside the storage, never by the bits themselves.
type Half16 uint16

// F16FromFloat32 converts f32 to IEEE 754 binary16, round-to-nearest-even,
// delegating to arrow's float16 implementation. NaN maps to NaN and ±Inf
// maps to ±Inf; values that overflow f16's range on narrowing saturate to
// ±Inf, the "round-to-nearest-even with overflow to infinity" option
// spec.md §4.1 explicitly allows.
func F16FromFloat32(f float32) Half16 {
	return Half16(arrowfloat16.New(f).Uint16())
}

// F16ToFloat32 widens an IEEE 754 binary16 value to f32, preserving NaN,
// ±Inf, and subnormals exactly.
func F16ToFloat32(h Half16) float32 {
	return arrowfloat16.FromBits(uint16(h)).Float32()
}

// BF16FromFloat32 converts f32 to bfloat16 by taking the high 16 bits of
// the f32 bit pattern and rounding to nearest even. No bfloat16 library
// exists anywhere in the reference corpus (see DESIGN.md), so this is a
// direct port of the bit-manipulation routine used throughout it.
func BF16FromFloat32(f float32) Half16 {
	bits := math.Float32bits(f)
	if math.IsNaN(float64(f)) {
		// Preserve NaN rather than letting round-to-even corrupt the
		// payload into an inf.
		return Half16(bits >> 16)
	}

	// Round to nearest, ties to even: inspect the 16 bits being
	// discarded (bit 15 down to bit 0 of the low half).
	roundBit := bits & 0x8000
	stickyBits := bits & 0x7FFF
	lsb := (bits >> 16) & 0x1

	rounded := bits >> 16
	if roundBit != 0 && (stickyBits != 0 || lsb != 0) {
		rounded++
	}
	return Half16(rounded)
}

// BF16ToFloat32 widens a bfloat16 value to f32 by shifting it into the
// high 16 bits of an f32 bit pattern. BF16FromFloat32 does not flush
// subnormals, and widening loses no information, so subnormal bf16
// values come back exactly.
func BF16ToFloat32(h Half16) float32 {
	return math.Float32frombits(uint32(h) << 16)
}
