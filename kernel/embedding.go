package kernel

import (
	"fmt"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/tensor"
)

// Embedding computes out[b, :] = weight[index[b], :], zero-filling rows
// whose index falls outside [0, V) rather than failing — the one
// operator in this package whose out-of-range policy is zero-fill
// instead of PreconditionFailed.
func Embedding(out, index, weight *tensor.Tensor) error {
	return observe("embedding", out.DType(), func() error {
		if err := requireCPU("embedding", out, index, weight); err != nil {
			return err
		}
		for _, t := range []*tensor.Tensor{out, index, weight} {
			if err := requireContiguous("embedding", t); err != nil {
				return err
			}
		}
		if err := requireSameDType("embedding", out, weight); err != nil {
			return err
		}
		if index.DType() != dtype.Int64 {
			return errs.New(errs.PreconditionFailed, "embedding", fmt.Sprintf("index must be i64, got %s", index.DType()))
		}

		outShape, weightShape, idxShape := out.Shape(), weight.Shape(), index.Shape()
		if len(outShape) != 2 || len(weightShape) != 2 || len(idxShape) != 1 {
			return errs.New(errs.PreconditionFailed, "embedding", "out and weight must be rank 2, index must be rank 1")
		}
		n, e := outShape[0], outShape[1]
		v := weightShape[0]
		if weightShape[1] != e {
			return errs.New(errs.PreconditionFailed, "embedding", fmt.Sprintf("weight embed dim %d does not match out embed dim %d", weightShape[1], e))
		}
		if idxShape[0] != n {
			return errs.New(errs.PreconditionFailed, "embedding", fmt.Sprintf("index length %d does not match out rows %d", idxShape[0], n))
		}

		indices := tensor.Data[int64](index, dtype.Int64)
		outView, err := newFloatView("embedding", out)
		if err != nil {
			return err
		}
		weightView, err := newFloatView("embedding", weight)
		if err != nil {
			return err
		}

		for b := 0; b < n; b++ {
			j := int(indices[b])
			if j < 0 || j >= v {
				for i := 0; i < e; i++ {
					outView.set(b*e+i, 0)
				}
				continue
			}
			for i := 0; i < e; i++ {
				outView.set(b*e+i, weightView.get(j*e+i))
			}
		}
		return nil
	})
}
