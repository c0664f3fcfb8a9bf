package kernel

import (
	"fmt"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/tensor"
)

// floatView is the accumulation surface every dtype branch of a kernel
// reads and writes through: get/set always deal in f32, matching the
// "accumulate at f32, cast back on write" contract for half-precision
// inputs. f32 views pass through unchanged; f64 views narrow to f32 on
// read and widen back to f64 on write.
type floatView struct {
	get func(i int) float32
	set func(i int, v float32)
	n   int
}

// newFloatView builds the get/set accessors for t's dtype. This is the
// tagged-variant dispatch table spec.md §9 calls for: one case per
// supported dtype, no interface polymorphism.
func newFloatView(op string, t *tensor.Tensor) (floatView, error) {
	switch t.DType() {
	case dtype.F32:
		data := tensor.Data[float32](t, dtype.F32)
		return floatView{
			get: func(i int) float32 { return data[i] },
			set: func(i int, v float32) { data[i] = v },
			n:   len(data),
		}, nil
	case dtype.F16:
		data := tensor.Data[dtype.Half16](t, dtype.F16)
		return floatView{
			get: func(i int) float32 { return dtype.F16ToFloat32(data[i]) },
			set: func(i int, v float32) { data[i] = dtype.F16FromFloat32(v) },
			n:   len(data),
		}, nil
	case dtype.BF16:
		data := tensor.Data[dtype.Half16](t, dtype.BF16)
		return floatView{
			get: func(i int) float32 { return dtype.BF16ToFloat32(data[i]) },
			set: func(i int, v float32) { data[i] = dtype.BF16FromFloat32(v) },
			n:   len(data),
		}, nil
	case dtype.F64:
		data := tensor.Data[float64](t, dtype.F64)
		return floatView{
			get: func(i int) float32 { return float32(data[i]) },
			set: func(i int, v float32) { data[i] = float64(v) },
			n:   len(data),
		}, nil
	default:
		return floatView{}, errs.New(errs.UnsupportedDtype, op, fmt.Sprintf("dtype %s is not supported", t.DType()))
	}
}
