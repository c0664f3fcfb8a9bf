package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/tensor"
)

func TestSwiGLUConcreteScenario(t *testing.T) {
	gate, err := tensor.Create([]int{1, 2}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer gate.Release()
	copy(tensor.Data[float32](gate, dtype.F32), []float32{0, 1})

	up, err := tensor.Create([]int{1, 2}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer up.Release()
	copy(tensor.Data[float32](up, dtype.F32), []float32{2, 3})

	out, err := tensor.Create([]int{1, 2}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer out.Release()

	require.NoError(t, SwiGLU(out, gate, up))
	got := tensor.Data[float32](out, dtype.F32)
	assert.InDelta(t, float32(0), got[0], 1e-6)
	assert.InDelta(t, float32(2.19318), got[1], 1e-4)
}

func TestSwiGLUGateZeroYieldsZero(t *testing.T) {
	gate, err := tensor.Create([]int{1, 4}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer gate.Release()

	up, err := tensor.Create([]int{1, 4}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer up.Release()
	copy(tensor.Data[float32](up, dtype.F32), []float32{1, 2, 3, 4})

	out, err := tensor.Create([]int{1, 4}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer out.Release()

	require.NoError(t, SwiGLU(out, gate, up))
	assert.Equal(t, []float32{0, 0, 0, 0}, tensor.Data[float32](out, dtype.F32))
}

func TestSwiGLUInPlaceOnGate(t *testing.T) {
	gate, err := tensor.Create([]int{1, 2}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer gate.Release()
	copy(tensor.Data[float32](gate, dtype.F32), []float32{0, 1})

	up, err := tensor.Create([]int{1, 2}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer up.Release()
	copy(tensor.Data[float32](up, dtype.F32), []float32{2, 3})

	require.NoError(t, SwiGLU(gate, gate, up))
	got := tensor.Data[float32](gate, dtype.F32)
	assert.InDelta(t, float32(0), got[0], 1e-6)
	assert.InDelta(t, float32(2.19318), got[1], 1e-4)
}
