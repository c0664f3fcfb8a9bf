// Package device defines the runtime collaborator the tensor core uses
// to allocate and move bytes, and a process-wide registry of concrete
// runtimes keyed by device kind. The core never talks to hardware
// directly; it calls through this interface, mirroring the teacher
// pack's backend.Register/backend.Get split between the tensor core and
// the hardware-specific implementation.
package device

import (
	"fmt"
	"sync"

	"github.com/kiln-ml/kiln/errs"
)

// Kind identifies the family of device a tensor's storage lives on.
// Exactly one accelerator family is registered per process; CPU is
// always available.
type Kind uint8

const (
	CPU Kind = iota
	Accelerator
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Accelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Device identifies a specific device: a kind plus an index within that
// kind's family (always 0 for CPU).
type Device struct {
	Kind Kind
	ID   int
}

// CPU0 is the default CPU device.
var CPU0 = Device{Kind: CPU, ID: 0}

func (d Device) String() string {
	if d.Kind == CPU {
		return "cpu"
	}
	return fmt.Sprintf("%s:%d", d.Kind, d.ID)
}

// Direction names the source/destination pairing of a memcpy_sync call.
type Direction uint8

const (
	H2H Direction = iota // host to host
	H2D                  // host to device
	D2H                  // device to host
	D2D                  // device to device
)

func (d Direction) String() string {
	switch d {
	case H2H:
		return "H2H"
	case H2D:
		return "H2D"
	case D2H:
		return "D2H"
	case D2D:
		return "D2D"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Runtime is the opaque device collaborator spec.md §4.2 describes:
// allocate_host, allocate_device, memcpy_sync, device_synchronize and
// set_device. A Tensor never holds a Runtime directly; it looks one up
// from the registry by the Kind recorded in its Storage.
type Runtime interface {
	// AllocateHost returns size bytes of host-resident (possibly
	// pinned, for accelerator runtimes) memory.
	AllocateHost(size int) ([]byte, error)
	// AllocateDevice returns size bytes of device-resident memory for
	// the given device id.
	AllocateDevice(size int, deviceID int) ([]byte, error)
	// MemcpySync copies size bytes from src to dst according to
	// direction, blocking until the copy completes.
	MemcpySync(dst, src []byte, size int, dir Direction) error
	// DeviceSynchronize blocks until all outstanding device work
	// completes.
	DeviceSynchronize() error
	// SetDevice selects the thread-local current device. CPU runtimes
	// accept id 0 only.
	SetDevice(id int) error
}

var (
	mu       sync.RWMutex
	registry = map[Kind]Runtime{}
)

// Register installs the runtime responsible for a device kind. Calling
// Register again for the same kind replaces the previous runtime.
func Register(kind Kind, rt Runtime) {
	mu.Lock()
	defer mu.Unlock()
	registry[kind] = rt
}

// Get returns the runtime registered for kind, or UnsupportedDevice if
// none has been registered.
func Get(kind Kind) (Runtime, error) {
	mu.RLock()
	defer mu.RUnlock()
	rt, ok := registry[kind]
	if !ok {
		return nil, errs.New(errs.UnsupportedDevice, "device.Get", fmt.Sprintf("no runtime registered for device kind %s", kind))
	}
	return rt, nil
}

func init() {
	Register(CPU, NewCPURuntime(DefaultConfig()))
}
