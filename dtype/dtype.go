// Package dtype enumerates the element types Kiln tensors can hold and
// provides the scalar conversions kernels need when promoting
// half-precision inputs to f32 for accumulation.
package dtype

import (
	"fmt"

	"github.com/kiln-ml/kiln/errs"
)

// DType is a tagged enumeration of supported tensor element types.
// Tagged-variant dispatch is used instead of an interface hierarchy
// because the set of dtypes is closed and known at build time.
type DType uint8

const (
	Byte DType = iota // signed 8-bit character
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	F16 // IEEE 754 binary16
	BF16
	F32
	F64
)

// ElementSize returns the byte size of one element of dtype d.
func (d DType) ElementSize() int {
	switch d {
	case Byte, Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, F16, BF16:
		return 2
	case Int32, Uint32, F32:
		return 4
	case Int64, Uint64, F64:
		return 8
	default:
		// A DType value outside the enum can only arise from a bug inside
		// this package (e.g. a new constant added without a case here) —
		// never from caller input, which is why this panics rather than
		// returning an error.
		panic(errs.New(errs.LogicError, "DType.ElementSize", fmt.Sprintf("unknown dtype %d", uint8(d))))
	}
}

// IsFloat reports whether d is one of the floating-point dtypes.
func (d DType) IsFloat() bool {
	switch d {
	case F16, BF16, F32, F64:
		return true
	default:
		return false
	}
}

// IsHalf reports whether d is one of the two 16-bit float dtypes that
// kernels must promote to f32 before doing arithmetic.
func (d DType) IsHalf() bool {
	return d == F16 || d == BF16
}

func (d DType) String() string {
	switch d {
	case Byte:
		return "byte"
	case Bool:
		return "bool"
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}
