package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastFloatToInt(t *testing.T) {
	out, err := Cast(float32(3.7), F32, Int32)
	require.NoError(t, err)
	assert.Equal(t, int32(4), out)
}

func TestCastIntToFloat(t *testing.T) {
	out, err := Cast(int32(7), Int32, F32)
	require.NoError(t, err)
	assert.Equal(t, float32(7), out)
}

func TestCastBoolRoundTrip(t *testing.T) {
	out, err := Cast(true, Bool, F32)
	require.NoError(t, err)
	assert.Equal(t, float32(1), out)

	back, err := Cast(float32(1), F32, Bool)
	require.NoError(t, err)
	assert.Equal(t, true, back)

	zero, err := Cast(float32(0), F32, Bool)
	require.NoError(t, err)
	assert.Equal(t, false, zero)
}

func TestCastF32ToF16AndBack(t *testing.T) {
	h, err := Cast(float32(2.5), F32, F16)
	require.NoError(t, err)
	half, ok := h.(Half16)
	require.True(t, ok)

	back, err := Cast(half, F16, F32)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), back)
}

func TestCastUnsupportedDtype(t *testing.T) {
	_, err := Cast(float32(1), DType(255), F32)
	require.Error(t, err)
}

func TestCastRoundToNearestEven(t *testing.T) {
	out, err := Cast(float32(2.5), F32, Int32)
	require.NoError(t, err)
	assert.Equal(t, int32(2), out)

	out, err = Cast(float32(3.5), F32, Int32)
	require.NoError(t, err)
	assert.Equal(t, int32(4), out)
}
