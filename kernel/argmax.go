package kernel

import (
	"fmt"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/tensor"
)

// Argmax scans vals in storage order and writes the smallest index
// achieving the maximum into maxIdx (i64, shape [1]) and the
// corresponding value into maxVal (vals' dtype). The running maximum
// starts at element 0 and is replaced only on a raw >, so a NaN after
// element 0 is never selected. If element 0 is NaN, no later value
// compares greater than it and the result is index 0 with value NaN.
func Argmax(maxIdx, maxVal, vals *tensor.Tensor) error {
	return observe("argmax", vals.DType(), func() error {
		if err := requireCPU("argmax", maxIdx, maxVal, vals); err != nil {
			return err
		}
		for _, t := range []*tensor.Tensor{maxIdx, maxVal, vals} {
			if err := requireContiguous("argmax", t); err != nil {
				return err
			}
		}
		if maxIdx.DType() != dtype.Int64 {
			return errs.New(errs.PreconditionFailed, "argmax", fmt.Sprintf("max_idx must be i64, got %s", maxIdx.DType()))
		}
		if maxVal.DType() != vals.DType() {
			return errs.New(errs.PreconditionFailed, "argmax", fmt.Sprintf("max_val dtype %s must match vals dtype %s", maxVal.DType(), vals.DType()))
		}
		if idxShape := maxIdx.Shape(); len(idxShape) != 1 || idxShape[0] != 1 {
			return errs.New(errs.PreconditionFailed, "argmax", fmt.Sprintf("max_idx shape %v must be [1]", idxShape))
		}
		if valShape := maxVal.Shape(); len(valShape) != 1 || valShape[0] != 1 {
			return errs.New(errs.PreconditionFailed, "argmax", fmt.Sprintf("max_val shape %v must be [1]", valShape))
		}
		n := vals.NumElements()
		if n == 0 {
			return errs.New(errs.PreconditionFailed, "argmax", "vals must have at least one element")
		}

		idxOut := tensor.Data[int64](maxIdx, dtype.Int64)

		switch vals.DType() {
		case dtype.Int32:
			data := tensor.Data[int32](vals, dtype.Int32)
			best, bestIdx := data[0], 0
			for i := 1; i < n; i++ {
				if data[i] > best {
					best, bestIdx = data[i], i
				}
			}
			tensor.Data[int32](maxVal, dtype.Int32)[0] = best
			idxOut[0] = int64(bestIdx)
		case dtype.Int64:
			data := tensor.Data[int64](vals, dtype.Int64)
			best, bestIdx := data[0], 0
			for i := 1; i < n; i++ {
				if data[i] > best {
					best, bestIdx = data[i], i
				}
			}
			tensor.Data[int64](maxVal, dtype.Int64)[0] = best
			idxOut[0] = int64(bestIdx)
		default:
			view, err := newFloatView("argmax", vals)
			if err != nil {
				return err
			}
			outView, err := newFloatView("argmax", maxVal)
			if err != nil {
				return err
			}
			best, bestIdx := view.get(0), 0
			for i := 1; i < n; i++ {
				v := view.get(i)
				if v > best {
					best, bestIdx = v, i
				}
			}
			outView.set(0, best)
			idxOut[0] = int64(bestIdx)
		}
		return nil
	})
}
