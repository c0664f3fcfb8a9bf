package device

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/kiln-ml/kiln/errs"
)

// cpuRuntime is the default Runtime registered for Kind CPU. It has no
// real device to synchronize with or select, so DeviceSynchronize and
// SetDevice are no-ops beyond validating the device id.
type cpuRuntime struct {
	alloc    memory.Allocator
	zeroFill bool
}

// NewCPURuntime builds the CPU Runtime used by device.Register(CPU, ...)
// at package init. Exposed so tests and cmd/kiln can construct a runtime
// with a non-default Config.
func NewCPURuntime(cfg Config) Runtime {
	var alloc memory.Allocator
	if cfg.UseArrowAllocator {
		alloc = memory.NewGoAllocator()
	}
	return &cpuRuntime{alloc: alloc, zeroFill: cfg.ZeroFill}
}

func (r *cpuRuntime) allocate(size int) []byte {
	if r.alloc != nil {
		buf := r.alloc.Allocate(size)
		if r.zeroFill {
			clear(buf)
		}
		return buf
	}
	return make([]byte, size)
}

func (r *cpuRuntime) AllocateHost(size int) ([]byte, error) {
	if size < 0 {
		return nil, errs.New(errs.PreconditionFailed, "device.AllocateHost", fmt.Sprintf("negative size %d", size))
	}
	return r.allocate(size), nil
}

func (r *cpuRuntime) AllocateDevice(size int, deviceID int) ([]byte, error) {
	if deviceID != 0 {
		return nil, errs.New(errs.UnsupportedDevice, "device.AllocateDevice", fmt.Sprintf("cpu runtime only serves device id 0, got %d", deviceID))
	}
	return r.AllocateHost(size)
}

// MemcpySync copies size bytes from src to dst. The CPU runtime treats
// every Direction identically: there is only one memory space, so H2H,
// H2D, D2H and D2D all resolve to the same byte copy.
func (r *cpuRuntime) MemcpySync(dst, src []byte, size int, dir Direction) error {
	if size < 0 || size > len(src) || size > len(dst) {
		return errs.New(errs.PreconditionFailed, "device.MemcpySync", fmt.Sprintf("size %d out of range for src(%d)/dst(%d)", size, len(src), len(dst)))
	}
	copy(dst[:size], src[:size])
	return nil
}

func (r *cpuRuntime) DeviceSynchronize() error {
	return nil
}

func (r *cpuRuntime) SetDevice(id int) error {
	if id != 0 {
		return errs.New(errs.UnsupportedDevice, "device.SetDevice", fmt.Sprintf("cpu runtime only serves device id 0, got %d", id))
	}
	return nil
}
