// Package tensor implements Kiln's strided multi-dimensional array: a
// device-agnostic view over a refcounted storage.Storage buffer plus
// the metadata (dtype, shape, element strides, byte offset) needed to
// interpret it. Tensors are immutable w.r.t. shape/dtype/offset after
// construction; permute/slice/view/reshape derive new metadata over
// shared or freshly allocated storage.
package tensor

import (
	"fmt"
	"unsafe"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/storage"
)

// Tensor is the triple (meta, storage, byte_offset) spec.md §3 defines.
// Strides are in elements; byteOffset is in bytes. Slice converts an
// element offset to bytes when it moves byteOffset, and Contiguous
// scales element offsets by ElementSize when it gather-copies.
type Tensor struct {
	dt         dtype.DType
	shape      []int
	strides    []int // element strides
	byteOffset int
	store      *storage.Storage
}

// Shape returns the tensor's extents, one per dimension.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Strides returns the tensor's element strides.
func (t *Tensor) Strides() []int { return append([]int(nil), t.strides...) }

// DType returns the tensor's element type.
func (t *Tensor) DType() dtype.DType { return t.dt }

// NDim returns the number of dimensions.
func (t *Tensor) NDim() int { return len(t.shape) }

// NumElements returns the product of the shape's extents (1 for a
// rank-0 tensor, 0 if any extent is 0).
func (t *Tensor) NumElements() int {
	return numel(t.shape)
}

// ElementSize returns the byte size of one element.
func (t *Tensor) ElementSize() int { return t.dt.ElementSize() }

// DeviceKind returns the device kind backing this tensor's storage.
func (t *Tensor) DeviceKind() device.Kind { return t.store.DeviceKind() }

// DeviceID returns the device id backing this tensor's storage.
func (t *Tensor) DeviceID() int { return t.store.DeviceID() }

// ByteOffset returns the tensor's offset into its storage, in bytes.
func (t *Tensor) ByteOffset() int { return t.byteOffset }

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// IsContiguous reports whether strides describe a row-major, densely
// packed layout: strides[n-1] == 1 and strides[k] == strides[k+1]*shape[k+1].
func (t *Tensor) IsContiguous() bool {
	return isContiguous(t.shape, t.strides)
}

func isContiguous(shape, strides []int) bool {
	n := len(shape)
	if n == 0 {
		return true
	}
	if strides[n-1] != 1 {
		return false
	}
	for k := n - 2; k >= 0; k-- {
		if strides[k] != strides[k+1]*shape[k+1] {
			return false
		}
	}
	return true
}

// rowMajorStrides computes the contiguous strides for shape.
func rowMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	acc := 1
	for k := n - 1; k >= 0; k-- {
		strides[k] = acc
		acc *= shape[k]
	}
	return strides
}

// Create allocates fresh contiguous row-major storage of
// numel(shape)*element_size(dtype) bytes on the given device and
// returns a contiguous tensor at offset 0.
func Create(shape []int, dt dtype.DType, kind device.Kind, id int) (*Tensor, error) {
	size := numel(shape) * dt.ElementSize()
	st, err := storage.Allocate(kind, id, size)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		dt:      dt,
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		store:   st,
	}, nil
}

// dataSlice returns the byte range of this tensor within its storage,
// from byteOffset to the end of the backing buffer. Data reinterprets
// it as a typed slice; Contiguous indexes it with element offsets
// multiplied by ElementSize.
func (t *Tensor) dataSlice() []byte {
	return t.store.Bytes()[t.byteOffset:]
}

// Data returns the tensor's element range reinterpreted as a typed Go
// slice. It panics with a LogicError if dt does not match the tensor's
// dtype: callers are expected to dispatch on DType() first, the same
// tagged-variant convention every kernel in this module follows, so a
// mismatch here is a bug in the caller, not a condition a caller can
// recover from.
func Data[T any](t *Tensor, want dtype.DType) []T {
	if t.dt != want {
		panic(errs.New(errs.LogicError, "tensor.Data", fmt.Sprintf("called with dtype %s on a %s tensor", want, t.dt)))
	}
	raw := t.dataSlice()
	n := t.NumElements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n)
}

// Permute returns a view with shape and strides reordered by order,
// which must be a permutation of [0, ndim). byteOffset and storage are
// unchanged; the result may be non-contiguous.
func (t *Tensor) Permute(order []int) (*Tensor, error) {
	n := t.NDim()
	if len(order) != n {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.Permute", fmt.Sprintf("order length %d does not match ndim %d", len(order), n))
	}
	seen := make([]bool, n)
	for _, o := range order {
		if o < 0 || o >= n || seen[o] {
			return nil, errs.New(errs.PreconditionFailed, "Tensor.Permute", fmt.Sprintf("order %v is not a permutation of [0,%d)", order, n))
		}
		seen[o] = true
	}

	newShape := make([]int, n)
	newStrides := make([]int, n)
	for i, o := range order {
		newShape[i] = t.shape[o]
		newStrides[i] = t.strides[o]
	}

	t.store.AddRef()
	return &Tensor{dt: t.dt, shape: newShape, strides: newStrides, byteOffset: t.byteOffset, store: t.store}, nil
}

// View returns a contiguous view over newShape, requiring the source to
// already be contiguous and numel-preserving. Reshape is an alias.
func (t *Tensor) View(newShape []int) (*Tensor, error) {
	if !t.IsContiguous() {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.View", "source tensor is not contiguous")
	}
	if numel(newShape) != t.NumElements() {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.View", fmt.Sprintf("new shape %v has %d elements, source has %d", newShape, numel(newShape), t.NumElements()))
	}

	t.store.AddRef()
	return &Tensor{dt: t.dt, shape: append([]int(nil), newShape...), strides: rowMajorStrides(newShape), byteOffset: t.byteOffset, store: t.store}, nil
}

// Reshape is an alias of View.
func (t *Tensor) Reshape(newShape []int) (*Tensor, error) { return t.View(newShape) }

// Slice returns a view narrowing dimension dim to [start, end),
// preserving strides and any existing non-contiguity along other
// dimensions.
func (t *Tensor) Slice(dim, start, end int) (*Tensor, error) {
	if dim < 0 || dim >= t.NDim() {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.Slice", fmt.Sprintf("dim %d out of range for ndim %d", dim, t.NDim()))
	}
	if start < 0 || start > end || end > t.shape[dim] {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.Slice", fmt.Sprintf("invalid range [%d,%d) for extent %d", start, end, t.shape[dim]))
	}

	newShape := append([]int(nil), t.shape...)
	newShape[dim] = end - start
	newOffset := t.byteOffset + start*t.strides[dim]*t.dt.ElementSize()

	t.store.AddRef()
	return &Tensor{dt: t.dt, shape: newShape, strides: append([]int(nil), t.strides...), byteOffset: newOffset, store: t.store}, nil
}

// Contiguous returns a tensor guaranteed to be contiguous. If t already
// is, it returns a view sharing storage (identity semantics). Otherwise
// it allocates fresh CPU storage and gather-copies element by element,
// delinearizing a row-major destination index against source strides.
// Only defined for CPU tensors; non-CPU sources must call To(cpu, id)
// first.
func (t *Tensor) Contiguous() (*Tensor, error) {
	if t.IsContiguous() {
		t.store.AddRef()
		return &Tensor{dt: t.dt, shape: append([]int(nil), t.shape...), strides: append([]int(nil), t.strides...), byteOffset: t.byteOffset, store: t.store}, nil
	}
	if t.DeviceKind() != device.CPU {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.Contiguous", "non-CPU tensor must be moved to CPU (To) before Contiguous")
	}

	out, err := Create(t.shape, t.dt, device.CPU, t.DeviceID())
	if err != nil {
		return nil, err
	}

	elemSize := t.dt.ElementSize()
	n := t.NumElements()
	srcBytes := t.dataSlice()
	dstBytes := out.dataSlice()
	idx := make([]int, t.NDim())
	for linear := 0; linear < n; linear++ {
		srcOff := 0
		for k, i := range idx {
			srcOff += i * t.strides[k]
		}
		copy(dstBytes[linear*elemSize:(linear+1)*elemSize], srcBytes[srcOff*elemSize:srcOff*elemSize+elemSize])
		incrementIndex(idx, t.shape)
	}
	return out, nil
}

// incrementIndex advances idx to the next row-major multi-index for shape,
// carrying from the last dimension.
func incrementIndex(idx, shape []int) {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < shape[k] {
			return
		}
		idx[k] = 0
	}
}

// Load copies numel*element_size bytes from src into the tensor's
// storage at byteOffset: a raw memory copy when the destination is on
// CPU, memcpy_sync with H2D when it is on-device.
func (t *Tensor) Load(src []byte) error {
	n := t.NumElements() * t.dt.ElementSize()
	if len(src) < n {
		return errs.New(errs.PreconditionFailed, "Tensor.Load", fmt.Sprintf("source has %d bytes, need %d", len(src), n))
	}

	dst := t.dataSlice()
	if t.DeviceKind() == device.CPU {
		copy(dst[:n], src[:n])
		return nil
	}

	rt, err := device.Get(t.DeviceKind())
	if err != nil {
		return err
	}
	if err := rt.MemcpySync(dst[:n], src[:n], n, device.H2D); err != nil {
		return errs.Wrap(errs.RuntimeFailure, "Tensor.Load", "memcpy_sync H2D failed", err)
	}
	return nil
}

// To returns a tensor on the requested device. If already there, it
// returns an identity view. Otherwise it requires t to be contiguous
// (callers must call Contiguous first — spec.md §9 resolves the
// non-contiguous-to() open question this way) and transfers bytes with
// the matching memcpy direction.
func (t *Tensor) To(kind device.Kind, id int) (*Tensor, error) {
	if t.DeviceKind() == kind && t.DeviceID() == id {
		t.store.AddRef()
		return &Tensor{dt: t.dt, shape: append([]int(nil), t.shape...), strides: append([]int(nil), t.strides...), byteOffset: t.byteOffset, store: t.store}, nil
	}
	if !t.IsContiguous() {
		return nil, errs.New(errs.PreconditionFailed, "Tensor.To", "source must be contiguous before a cross-device transfer; call Contiguous() first")
	}

	out, err := Create(t.shape, t.dt, kind, id)
	if err != nil {
		return nil, err
	}

	n := t.NumElements() * t.dt.ElementSize()
	src := t.dataSlice()[:n]
	dst := out.dataSlice()[:n]

	dir := transferDirection(t.DeviceKind(), kind)
	rt, err := device.Get(kind)
	if err != nil {
		return nil, err
	}
	if dir == device.H2H {
		copy(dst, src)
		return out, nil
	}
	if err := rt.MemcpySync(dst, src, n, dir); err != nil {
		return nil, errs.Wrap(errs.RuntimeFailure, "Tensor.To", "memcpy_sync failed", err)
	}
	return out, nil
}

func transferDirection(from, to device.Kind) device.Direction {
	switch {
	case from == device.CPU && to == device.CPU:
		return device.H2H
	case from == device.CPU && to != device.CPU:
		return device.H2D
	case from != device.CPU && to == device.CPU:
		return device.D2H
	default:
		return device.D2D
	}
}

// Release drops this tensor's reference to its storage. Callers that
// hold onto a Tensor beyond its last use should call Release so
// storage is freed deterministically rather than left to the garbage
// collector.
func (t *Tensor) Release() {
	t.store.Release()
}
