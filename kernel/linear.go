package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/tensor"
)

// Linear computes out = in * weight^T + bias, where weight is stored
// [O, I] so each output unit's row is contiguous. bias may be nil, in
// which case it is treated as zero. f64 inputs are computed with
// gonum's mat.Dense (matmul) and gonum/floats.Add (bias), the one
// numeric type the rest of this package's f32-accumulating floatView
// path doesn't cover; every other dtype accumulates in f32 via a
// batch-parallel dot product.
func Linear(out, in, weight, bias *tensor.Tensor) error {
	return observe("linear", out.DType(), func() error {
		ts := []*tensor.Tensor{out, in, weight}
		if bias != nil {
			ts = append(ts, bias)
		}
		if err := requireCPU("linear", ts...); err != nil {
			return err
		}
		for _, t := range ts {
			if err := requireContiguous("linear", t); err != nil {
				return err
			}
		}
		if err := requireSameDType("linear", ts...); err != nil {
			return err
		}

		inShape, outShape, wShape := in.Shape(), out.Shape(), weight.Shape()
		if len(inShape) != 2 || len(outShape) != 2 || len(wShape) != 2 {
			return errs.New(errs.PreconditionFailed, "linear", "in, out and weight must be rank 2")
		}
		b, i := inShape[0], inShape[1]
		o := wShape[0]
		if wShape[1] != i {
			return errs.New(errs.PreconditionFailed, "linear", fmt.Sprintf("weight in-features %d does not match in features %d", wShape[1], i))
		}
		if outShape[0] != b || outShape[1] != o {
			return errs.New(errs.PreconditionFailed, "linear", fmt.Sprintf("out shape %v must be [%d, %d]", outShape, b, o))
		}
		if bias != nil {
			bShape := bias.Shape()
			if len(bShape) != 1 || bShape[0] != o {
				return errs.New(errs.PreconditionFailed, "linear", fmt.Sprintf("bias shape %v must be [%d]", bShape, o))
			}
		}

		if out.DType() == dtype.F64 {
			return linearF64(out, in, weight, bias, b, i, o)
		}
		return linearPromoted(out, in, weight, bias, b, i, o)
	})
}

func linearF64(out, in, weight, bias *tensor.Tensor, b, i, o int) error {
	inData := tensor.Data[float64](in, dtype.F64)
	wData := tensor.Data[float64](weight, dtype.F64)
	outData := tensor.Data[float64](out, dtype.F64)

	inMat := mat.NewDense(b, i, append([]float64(nil), inData...))
	wMat := mat.NewDense(o, i, append([]float64(nil), wData...))
	outMat := mat.NewDense(b, o, nil)
	outMat.Mul(inMat, wMat.T())

	if bias != nil {
		biasData := tensor.Data[float64](bias, dtype.F64)
		for r := 0; r < b; r++ {
			floats.Add(outMat.RawRowView(r), biasData)
		}
	}

	copy(outData, outMat.RawMatrix().Data)
	return nil
}

func linearPromoted(out, in, weight, bias *tensor.Tensor, b, i, o int) error {
	inView, err := newFloatView("linear", in)
	if err != nil {
		return err
	}
	wView, err := newFloatView("linear", weight)
	if err != nil {
		return err
	}
	outView, err := newFloatView("linear", out)
	if err != nil {
		return err
	}
	var biasView floatView
	if bias != nil {
		biasView, err = newFloatView("linear", bias)
		if err != nil {
			return err
		}
	}

	cfg := parallel.DefaultConfig()
	parallel.For(b, func(row int) {
		inBase := row * i
		outBase := row * o
		for col := 0; col < o; col++ {
			wBase := col * i
			var acc float32
			for k := 0; k < i; k++ {
				acc += inView.get(inBase+k) * wView.get(wBase+k)
			}
			if bias != nil {
				acc += biasView.get(col)
			}
			outView.set(outBase+col, acc)
		}
	}, cfg)
	return nil
}
