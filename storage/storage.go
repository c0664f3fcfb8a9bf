// Package storage implements the refcounted device-resident byte buffer
// that every Tensor's storage field points at. Sharing a Storage across
// tensors is how permute/slice/view produce zero-copy aliases of the
// same underlying bytes.
package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/errs"
)

// Storage is a shared-ownership byte buffer tagged with the device it
// lives on. It is acquired through the device runtime and released when
// the last owner drops it, following the teacher's tensorBuffer
// refcounting design (atomic refcount, mutex-guarded teardown).
type Storage struct {
	data       []byte
	refCount   atomic.Int32
	mu         sync.Mutex
	deviceKind device.Kind
	deviceID   int
}

// Allocate acquires size bytes of storage on the given device via the
// runtime registered for that device kind. The returned Storage starts
// with a single reference.
func Allocate(kind device.Kind, id int, size int) (*Storage, error) {
	rt, err := device.Get(kind)
	if err != nil {
		return nil, err
	}

	var buf []byte
	if kind == device.CPU {
		buf, err = rt.AllocateHost(size)
	} else {
		buf, err = rt.AllocateDevice(size, id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.RuntimeFailure, "storage.Allocate", "device allocation failed", err)
	}

	s := &Storage{data: buf, deviceKind: kind, deviceID: id}
	s.refCount.Store(1)
	return s, nil
}

// AddRef increments the reference count. Callers that keep an
// independent handle to a Storage (e.g. a view sharing the same
// backing bytes) must call this so Release on either handle doesn't
// tear down memory the other still needs.
func (s *Storage) AddRef() {
	s.refCount.Add(1)
}

// Release decrements the reference count, freeing the backing buffer
// once the last owner has released it.
func (s *Storage) Release() {
	if s.refCount.Add(-1) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.data = nil
	}
}

// IsUnique reports whether this Storage has exactly one owner, meaning
// in-place mutation through it is safe.
func (s *Storage) IsUnique() bool {
	return s.refCount.Load() == 1
}

// Bytes returns the full backing buffer. Tensor is responsible for
// respecting its own byte_offset and extent within it; Storage never
// slices on a caller's behalf so that refcounting always tracks the
// whole allocation.
func (s *Storage) Bytes() []byte {
	return s.data
}

// Size returns the total byte length of the buffer.
func (s *Storage) Size() int {
	return len(s.data)
}

// DeviceKind returns which device kind this storage was allocated on.
func (s *Storage) DeviceKind() device.Kind {
	return s.deviceKind
}

// DeviceID returns the device index within DeviceKind's family.
func (s *Storage) DeviceID() int {
	return s.deviceID
}

func (s *Storage) String() string {
	return fmt.Sprintf("storage(%s:%d, %d bytes, refs=%d)", s.deviceKind, s.deviceID, len(s.data), s.refCount.Load())
}
