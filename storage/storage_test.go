package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/device"
)

func TestAllocateCPU(t *testing.T) {
	s, err := Allocate(device.CPU, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Size())
	assert.Equal(t, device.CPU, s.DeviceKind())
	assert.Equal(t, 0, s.DeviceID())
	assert.True(t, s.IsUnique())
}

func TestAllocateUnregisteredKindFails(t *testing.T) {
	_, err := Allocate(device.Accelerator, 0, 64)
	require.Error(t, err)
}

func TestRefcounting(t *testing.T) {
	s, err := Allocate(device.CPU, 0, 16)
	require.NoError(t, err)
	assert.True(t, s.IsUnique())

	s.AddRef()
	assert.False(t, s.IsUnique())

	s.Release()
	assert.True(t, s.IsUnique())

	s.Release()
}

func TestBytesReflectsAllocationSize(t *testing.T) {
	s, err := Allocate(device.CPU, 0, 32)
	require.NoError(t, err)
	assert.Len(t, s.Bytes(), 32)
}
