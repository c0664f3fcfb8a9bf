package device

// Config configures the default CPU runtime, following the teacher's
// RotaryEncodingConfig/GQAConfig convention of a plain struct with a
// DefaultConfig constructor. It has no required fields, so
// NewCPURuntime uses the values as given and validates nothing.
type Config struct {
	// UseArrowAllocator selects arrow/memory.NewGoAllocator() as the
	// backing allocator instead of a plain make([]byte, n). Both
	// satisfy the same Runtime contract; the arrow allocator is the
	// default so CPU-resident tensors share the allocation discipline
	// Arrow-based tooling elsewhere in the stack expects.
	UseArrowAllocator bool
	// ZeroFill requests allocations be zeroed before returning. Go's
	// allocator already zeroes fresh memory, so this only matters when
	// an allocator implementation reuses buffers.
	ZeroFill bool
}

// DefaultConfig returns the CPU runtime configuration used when no
// explicit Config is supplied: arrow-backed allocation, zero-filled.
func DefaultConfig() Config {
	return Config{UseArrowAllocator: true, ZeroFill: true}
}
