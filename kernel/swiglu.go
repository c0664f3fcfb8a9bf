package kernel

import (
	"math"

	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/tensor"
)

// SwiGLU computes out = up * silu(gate), where silu(x) = x/(1+exp(-x)).
// gate == 0 yields out == 0 since silu(0) == 0. Elementwise like the
// unaryOp/binaryOp helpers in the backend, but fused into a single pass
// since the contract is a single named operator, not a composition of
// primitives.
func SwiGLU(out, gate, up *tensor.Tensor) error {
	return observe("swiglu", out.DType(), func() error {
		if err := requireCPU("swiglu", out, gate, up); err != nil {
			return err
		}
		for _, t := range []*tensor.Tensor{out, gate, up} {
			if err := requireContiguous("swiglu", t); err != nil {
				return err
			}
		}
		if err := requireSameDType("swiglu", out, gate, up); err != nil {
			return err
		}

		gShape, uShape, oShape := gate.Shape(), up.Shape(), out.Shape()
		if len(gShape) != len(uShape) || len(gShape) != len(oShape) {
			return errs.New(errs.PreconditionFailed, "swiglu", "gate, up and out must have the same rank")
		}
		for k := range gShape {
			if gShape[k] != uShape[k] || gShape[k] != oShape[k] {
				return errs.New(errs.PreconditionFailed, "swiglu", "gate, up and out must have identical shapes")
			}
		}

		gateView, err := newFloatView("swiglu", gate)
		if err != nil {
			return err
		}
		upView, err := newFloatView("swiglu", up)
		if err != nil {
			return err
		}
		outView, err := newFloatView("swiglu", out)
		if err != nil {
			return err
		}

		n := gateView.n
		for i := 0; i < n; i++ {
			g := gateView.get(i)
			silu := g / (1 + float32(math.Exp(float64(-g))))
			outView.set(i, upView.get(i)*silu)
		}
		return nil
	})
}
