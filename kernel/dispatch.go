// Package kernel implements Kiln's operator kernels: embedding,
// rms_norm, linear, rope, self_attention, swiglu and argmax. Every
// kernel is a pure function over already-allocated tensors — kernels
// never allocate their output — dispatched on dtype via a tagged
// switch rather than an interface, per the closed, build-time-known set
// of supported dtypes.
package kernel

import (
	"fmt"
	"time"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/internal/obs"
	"github.com/kiln-ml/kiln/tensor"
)

// requireContiguous fails with PreconditionFailed unless t is
// contiguous, the shared precondition every kernel places on its
// tensor arguments except where explicitly noted.
func requireContiguous(op string, t *tensor.Tensor) error {
	if !t.IsContiguous() {
		return errs.New(errs.PreconditionFailed, op, "tensor argument is not contiguous")
	}
	return nil
}

// requireCPU fails with UnsupportedDevice unless every tensor is on the
// CPU. Kernels in this package execute only on the host; accelerator
// dispatch is out of scope.
func requireCPU(op string, ts ...*tensor.Tensor) error {
	for _, t := range ts {
		if t.DeviceKind() != device.CPU {
			return errs.New(errs.UnsupportedDevice, op, fmt.Sprintf("kernel runs on cpu only, got %s", t.DeviceKind()))
		}
	}
	return nil
}

// requireShape fails with PreconditionFailed unless t's shape equals want.
func requireShape(op string, t *tensor.Tensor, want []int) error {
	got := t.Shape()
	if len(got) != len(want) {
		return errs.New(errs.PreconditionFailed, op, fmt.Sprintf("expected rank %d, got shape %v", len(want), got))
	}
	for i, w := range want {
		if got[i] != w {
			return errs.New(errs.PreconditionFailed, op, fmt.Sprintf("expected shape %v, got %v", want, got))
		}
	}
	return nil
}

// requireSameDType fails unless every tensor shares the first tensor's
// dtype.
func requireSameDType(op string, ts ...*tensor.Tensor) error {
	if len(ts) == 0 {
		return nil
	}
	want := ts[0].DType()
	for _, t := range ts[1:] {
		if t.DType() != want {
			return errs.New(errs.PreconditionFailed, op, fmt.Sprintf("dtype mismatch: expected %s, got %s", want, t.DType()))
		}
	}
	return nil
}

// observe wraps a kernel body with a prometheus timing observation and
// error-kind counter, following the fletcher metrics.go convention of a
// promauto HistogramVec per package. Kernels stay on the hot path — this
// is the only obs touchpoint per call.
func observe(op string, dt dtype.DType, fn func() error) error {
	start := time.Now()
	err := fn()
	kind := ""
	if e, ok := err.(*errs.Error); ok {
		kind = e.Kind.String()
	} else if err != nil {
		kind = errs.LogicError.String()
	}
	obs.Observe(op, dt.String(), time.Since(start).Seconds(), kind)
	return err
}
