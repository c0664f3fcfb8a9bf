package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementSize(t *testing.T) {
	cases := []struct {
		dt   DType
		want int
	}{
		{Byte, 1}, {Bool, 1}, {Int8, 1}, {Uint8, 1},
		{Int16, 2}, {Uint16, 2}, {F16, 2}, {BF16, 2},
		{Int32, 4}, {Uint32, 4}, {F32, 4},
		{Int64, 8}, {Uint64, 8}, {F64, 8},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.dt.ElementSize(), "dtype %s", c.dt)
	}
}

func TestIsFloat(t *testing.T) {
	assert.True(t, F32.IsFloat())
	assert.True(t, F64.IsFloat())
	assert.True(t, F16.IsFloat())
	assert.True(t, BF16.IsFloat())
	assert.False(t, Int32.IsFloat())
	assert.False(t, Bool.IsFloat())
}

func TestIsHalf(t *testing.T) {
	assert.True(t, F16.IsHalf())
	assert.True(t, BF16.IsHalf())
	assert.False(t, F32.IsHalf())
	assert.False(t, F64.IsHalf())
}

func TestString(t *testing.T) {
	assert.Equal(t, "f32", F32.String())
	assert.Equal(t, "bf16", BF16.String())
	assert.Equal(t, "i64", Int64.String())
	assert.Equal(t, "u8", Uint8.String())
}
