package dtype

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/errs"
)

// Cast converts a single scalar value of dtype "from" to its
// representation under dtype "to". It is the scalar conversion routine
// spec.md §4.1 requires to exist for every pair drawn from
// {f16, bf16, f32, f64, i*, u*, bool, byte}. Cast returns an error when
// "from" or "to" falls outside that closed set, never because of the
// numeric value being converted. value must hold the Go type that
// represents "from" (bool, int8, ..., Half16, float32, float64): another
// type is an error for Bool and a panic for every other dtype.
//
// Integer/float conversions round to nearest even. bool/numeric treats
// true as 1 and any nonzero numeric value as true.
func Cast(value any, from, to DType) (any, error) {
	pivot, err := toFloat64(value, from)
	if err != nil {
		return nil, err
	}
	return fromFloat64(pivot, to)
}

// toFloat64 widens a scalar of the given dtype to a float64 pivot. Every
// supported dtype round-trips through float64 exactly except u64/i64
// values beyond float64's 53-bit mantissa, which is an accepted
// precision loss of the pivot representation (consistent with every
// dtype pair in the contract being expressible this way).
func toFloat64(value any, from DType) (float64, error) {
	switch from {
	case Bool:
		v, ok := value.(bool)
		if !ok {
			return 0, errs.New(errs.UnsupportedDtype, "cast", fmt.Sprintf("value is not bool for dtype %s", from))
		}
		if v {
			return 1, nil
		}
		return 0, nil
	case Byte, Int8:
		return float64(value.(int8)), nil
	case Int16:
		return float64(value.(int16)), nil
	case Int32:
		return float64(value.(int32)), nil
	case Int64:
		return float64(value.(int64)), nil
	case Uint8:
		return float64(value.(uint8)), nil
	case Uint16:
		return float64(value.(uint16)), nil
	case Uint32:
		return float64(value.(uint32)), nil
	case Uint64:
		return float64(value.(uint64)), nil
	case F16:
		return float64(F16ToFloat32(value.(Half16))), nil
	case BF16:
		return float64(BF16ToFloat32(value.(Half16))), nil
	case F32:
		return float64(value.(float32)), nil
	case F64:
		return value.(float64), nil
	default:
		return 0, errs.New(errs.UnsupportedDtype, "cast", fmt.Sprintf("unsupported source dtype %s", from))
	}
}

// fromFloat64 narrows a float64 pivot to the representation for "to".
// Integer narrowing rounds to nearest even via math.RoundToEven.
func fromFloat64(v float64, to DType) (any, error) {
	switch to {
	case Bool:
		return v != 0, nil
	case Byte, Int8:
		return int8(math.RoundToEven(v)), nil
	case Int16:
		return int16(math.RoundToEven(v)), nil
	case Int32:
		return int32(math.RoundToEven(v)), nil
	case Int64:
		return int64(math.RoundToEven(v)), nil
	case Uint8:
		return uint8(math.RoundToEven(v)), nil
	case Uint16:
		return uint16(math.RoundToEven(v)), nil
	case Uint32:
		return uint32(math.RoundToEven(v)), nil
	case Uint64:
		return uint64(math.RoundToEven(v)), nil
	case F16:
		return F16FromFloat32(float32(v)), nil
	case BF16:
		return BF16FromFloat32(float32(v)), nil
	case F32:
		return float32(v), nil
	case F64:
		return v, nil
	default:
		return nil, errs.New(errs.UnsupportedDtype, "cast", fmt.Sprintf("unsupported destination dtype %s", to))
	}
}
