package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPURuntimeRegisteredByDefault(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)
	require.NotNil(t, rt)
}

func TestGetUnregisteredKindFails(t *testing.T) {
	_, err := Get(Accelerator)
	require.Error(t, err)
}

func TestCPURuntimeAllocateHost(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)

	buf, err := rt.AllocateHost(16)
	require.NoError(t, err)
	assert.Len(t, buf, 16)
}

func TestCPURuntimeAllocateDeviceRejectsNonZeroID(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)

	_, err = rt.AllocateDevice(16, 1)
	require.Error(t, err)
}

func TestCPURuntimeMemcpySync(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)

	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)
	require.NoError(t, rt.MemcpySync(dst, src, 4, H2H))
	assert.Equal(t, src, dst)
}

func TestCPURuntimeMemcpySyncOutOfRange(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)

	src := []byte{1, 2}
	dst := make([]byte, 2)
	require.Error(t, rt.MemcpySync(dst, src, 10, H2H))
}

func TestCPURuntimeSetDevice(t *testing.T) {
	rt, err := Get(CPU)
	require.NoError(t, err)

	require.NoError(t, rt.SetDevice(0))
	require.Error(t, rt.SetDevice(1))
}

func TestRegisterReplacesRuntime(t *testing.T) {
	custom := NewCPURuntime(Config{UseArrowAllocator: false, ZeroFill: false})
	Register(CPU, custom)
	defer Register(CPU, NewCPURuntime(DefaultConfig()))

	rt, err := Get(CPU)
	require.NoError(t, err)
	assert.Same(t, custom, rt)
}

func TestDeviceString(t *testing.T) {
	assert.Equal(t, "cpu", CPU0.String())
	assert.Equal(t, "accelerator:2", Device{Kind: Accelerator, ID: 2}.String())
}
