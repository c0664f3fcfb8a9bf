package kernel

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/tensor"
)

// RoPE applies split-halves rotary position embedding: for pair index i
// in [0, D/2), the first-half element in[s,h,i] and second-half element
// in[s,h,d+i] are rotated by the angle pos_ids[s]/theta^(2i/D). This is
// the split-halves layout (not interleaved) — grounded on the backend's
// RoPE kernel, which already pairs x[i] with x[halfDim+i] rather than
// adjacent elements.
func RoPE(out, in, posIDs *tensor.Tensor, theta float32) error {
	return observe("rope", out.DType(), func() error {
		if err := requireCPU("rope", out, in, posIDs); err != nil {
			return err
		}
		if err := requireContiguous("rope", in); err != nil {
			return err
		}
		if err := requireContiguous("rope", out); err != nil {
			return err
		}
		if err := requireContiguous("rope", posIDs); err != nil {
			return err
		}
		if err := requireSameDType("rope", out, in); err != nil {
			return err
		}
		if posIDs.DType() != dtype.Int64 {
			return errs.New(errs.PreconditionFailed, "rope", fmt.Sprintf("pos_ids must be i64, got %s", posIDs.DType()))
		}

		inShape, outShape := in.Shape(), out.Shape()
		if len(inShape) != 3 || len(outShape) != 3 {
			return errs.New(errs.PreconditionFailed, "rope", "in and out must be rank 3 [S, H, D]")
		}
		for k := range inShape {
			if inShape[k] != outShape[k] {
				return errs.New(errs.PreconditionFailed, "rope", fmt.Sprintf("out shape %v does not match in shape %v", outShape, inShape))
			}
		}
		s, hh, d := inShape[0], inShape[1], inShape[2]
		if d%2 != 0 {
			return errs.New(errs.PreconditionFailed, "rope", fmt.Sprintf("head dim %d must be even", d))
		}
		posShape := posIDs.Shape()
		if len(posShape) != 1 || posShape[0] != s {
			return errs.New(errs.PreconditionFailed, "rope", fmt.Sprintf("pos_ids shape %v must be [%d]", posShape, s))
		}

		half := d / 2
		invFreq := make([]float64, half)
		for i := 0; i < half; i++ {
			invFreq[i] = 1.0 / math.Pow(float64(theta), float64(2*i)/float64(d))
		}

		positions := tensor.Data[int64](posIDs, dtype.Int64)
		cosTable := make([][]float32, s)
		sinTable := make([][]float32, s)
		for sp := 0; sp < s; sp++ {
			cosRow := make([]float32, half)
			sinRow := make([]float32, half)
			pos := float64(positions[sp])
			for i := 0; i < half; i++ {
				angle := pos * invFreq[i]
				cosRow[i] = float32(math.Cos(angle))
				sinRow[i] = float32(math.Sin(angle))
			}
			cosTable[sp] = cosRow
			sinTable[sp] = sinRow
		}

		inView, err := newFloatView("rope", in)
		if err != nil {
			return err
		}
		outView, err := newFloatView("rope", out)
		if err != nil {
			return err
		}

		for sp := 0; sp < s; sp++ {
			for h := 0; h < hh; h++ {
				base := (sp*hh + h) * d
				cosRow, sinRow := cosTable[sp], sinTable[sp]
				for i := 0; i < half; i++ {
					xa := inView.get(base + i)
					xb := inView.get(base + half + i)
					c, sn := cosRow[i], sinRow[i]
					outView.set(base+i, xa*c-xb*sn)
					outView.set(base+half+i, xb*c+xa*sn)
				}
			}
		}
		return nil
	})
}
