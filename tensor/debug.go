package tensor

import (
	"fmt"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/dtype"
)

// Debug synchronizes the tensor's device, prints shape/stride/dtype,
// then walks every element in shape order and prints its value.
// Half-precision values are promoted to f32 for display.
func (t *Tensor) Debug() error {
	rt, err := device.Get(t.DeviceKind())
	if err == nil {
		if syncErr := rt.DeviceSynchronize(); syncErr != nil {
			return syncErr
		}
	}

	fmt.Printf("tensor(dtype=%s, shape=%v, strides=%v, device=%s:%d, offset=%d)\n",
		t.dt, t.shape, t.strides, t.DeviceKind(), t.DeviceID(), t.byteOffset)

	n := t.NumElements()
	if n == 0 {
		fmt.Println("[]")
		return nil
	}

	// Data exposes only numel elements from byteOffset, which a strided
	// view (e.g. a slice along the last dimension) can reach past, so
	// non-contiguous tensors are read from a contiguous copy.
	src := t
	if !t.IsContiguous() {
		c, err := t.Contiguous()
		if err != nil {
			return err
		}
		defer c.Release()
		src = c
	}

	idx := make([]int, t.NDim())
	for linear := 0; linear < n; linear++ {
		off := 0
		for k, i := range idx {
			off += i * src.strides[k]
		}
		fmt.Printf("%v = %v\n", idx, src.elementAt(off))
		incrementIndex(idx, t.shape)
	}
	return nil
}

// elementAt reads the scalar at element offset off (in elements, not
// bytes) and promotes half-precision values to f32 for display.
func (t *Tensor) elementAt(off int) any {
	switch t.dt {
	case dtype.F32:
		return Data[float32](t, dtype.F32)[off]
	case dtype.F64:
		return Data[float64](t, dtype.F64)[off]
	case dtype.F16:
		return dtype.F16ToFloat32(Data[dtype.Half16](t, dtype.F16)[off])
	case dtype.BF16:
		return dtype.BF16ToFloat32(Data[dtype.Half16](t, dtype.BF16)[off])
	case dtype.Int32:
		return Data[int32](t, dtype.Int32)[off]
	case dtype.Int64:
		return Data[int64](t, dtype.Int64)[off]
	case dtype.Int16:
		return Data[int16](t, dtype.Int16)[off]
	case dtype.Int8, dtype.Byte:
		return Data[int8](t, t.dt)[off]
	case dtype.Uint8:
		return Data[uint8](t, dtype.Uint8)[off]
	case dtype.Uint16:
		return Data[uint16](t, dtype.Uint16)[off]
	case dtype.Uint32:
		return Data[uint32](t, dtype.Uint32)[off]
	case dtype.Uint64:
		return Data[uint64](t, dtype.Uint64)[off]
	case dtype.Bool:
		return Data[bool](t, dtype.Bool)[off]
	default:
		return fmt.Sprintf("<unsupported dtype %s>", t.dt)
	}
}
