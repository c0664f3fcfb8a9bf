package kernel

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/tensor"
)

// RMSNorm computes out[b,:] = weight * in[b,:] / sqrt(mean(in[b,:]^2) + eps)
// per row, accumulating the mean-square in f32 regardless of input
// dtype. Rows are processed with internal/parallel's row-parallel
// fan-out, the data-parallelism spec.md §5 explicitly allows inside a
// single operator.
func RMSNorm(out, in, weight *tensor.Tensor, eps float32) error {
	return observe("rms_norm", out.DType(), func() error {
		if err := requireCPU("rms_norm", out, in, weight); err != nil {
			return err
		}
		for _, t := range []*tensor.Tensor{out, in, weight} {
			if err := requireContiguous("rms_norm", t); err != nil {
				return err
			}
		}
		if err := requireSameDType("rms_norm", out, in, weight); err != nil {
			return err
		}

		inShape, outShape, wShape := in.Shape(), out.Shape(), weight.Shape()
		if len(inShape) != 2 || len(outShape) != 2 {
			return errs.New(errs.PreconditionFailed, "rms_norm", "in and out must be rank 2 [B, H]")
		}
		if inShape[0] != outShape[0] || inShape[1] != outShape[1] {
			return errs.New(errs.PreconditionFailed, "rms_norm", fmt.Sprintf("in shape %v does not match out shape %v", inShape, outShape))
		}
		if len(wShape) != 1 || wShape[0] != inShape[1] {
			return errs.New(errs.PreconditionFailed, "rms_norm", fmt.Sprintf("weight shape %v must be [%d]", wShape, inShape[1]))
		}

		b, h := inShape[0], inShape[1]
		inView, err := newFloatView("rms_norm", in)
		if err != nil {
			return err
		}
		outView, err := newFloatView("rms_norm", out)
		if err != nil {
			return err
		}
		wView, err := newFloatView("rms_norm", weight)
		if err != nil {
			return err
		}

		cfg := parallel.DefaultConfig()
		parallel.For(b, func(row int) {
			base := row * h
			var sumSq float32
			for i := 0; i < h; i++ {
				v := inView.get(base + i)
				sumSq += v * v
			}
			ms := sumSq / float32(h)
			rms := float32(math.Sqrt(float64(ms + eps)))
			for i := 0; i < h; i++ {
				outView.set(base+i, wView.get(i)*inView.get(base+i)/rms)
			}
		}, cfg)
		return nil
	})
}
