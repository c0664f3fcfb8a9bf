package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/device"
	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/tensor"
)

func TestSelfAttentionZeroScaleIsUniformMean(t *testing.T) {
	s, hq, d, tlen, hkv, dv := 1, 1, 2, 3, 1, 2

	q, err := tensor.Create([]int{s, hq, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer q.Release()
	copy(tensor.Data[float32](q, dtype.F32), []float32{1, 1})

	k, err := tensor.Create([]int{tlen, hkv, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer k.Release()
	copy(tensor.Data[float32](k, dtype.F32), []float32{1, 0, 0, 1, 1, 1})

	v, err := tensor.Create([]int{tlen, hkv, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer v.Release()
	copy(tensor.Data[float32](v, dtype.F32), []float32{2, 2, 4, 4, 6, 6})

	attn, err := tensor.Create([]int{s, hq, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer attn.Release()

	// kv_off = T - S = 2, qp=0 => C = min(0+2+1, 3) = 3: all 3 kv positions visible.
	require.NoError(t, SelfAttention(attn, q, k, v, 0))
	assert.InDeltaSlice(t, []float32{4, 4}, tensor.Data[float32](attn, dtype.F32), 1e-5)
}

func TestSelfAttentionCausalMasking(t *testing.T) {
	s, hq, d, tlen, hkv, dv := 2, 1, 1, 2, 1, 1

	q, err := tensor.Create([]int{s, hq, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer q.Release()
	copy(tensor.Data[float32](q, dtype.F32), []float32{1, 1})

	k, err := tensor.Create([]int{tlen, hkv, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer k.Release()
	copy(tensor.Data[float32](k, dtype.F32), []float32{1, 1})

	v, err := tensor.Create([]int{tlen, hkv, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer v.Release()
	copy(tensor.Data[float32](v, dtype.F32), []float32{5, 9})

	attn, err := tensor.Create([]int{s, hq, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer attn.Release()

	require.NoError(t, SelfAttention(attn, q, k, v, 1))
	got := tensor.Data[float32](attn, dtype.F32)
	// qp=0: C=min(0+0+1,2)=1, only kp=0 visible -> attn=v[0]=5
	assert.InDelta(t, float32(5), got[0], 1e-5)
	// qp=1: C=min(1+0+1,2)=2, both visible with equal scores -> mean of v
	assert.InDelta(t, float32(7), got[1], 1e-5)
}

func TestSelfAttentionGQAHeadMapping(t *testing.T) {
	s, hq, d, tlen, hkv, dv := 1, 2, 1, 1, 1, 1

	q, err := tensor.Create([]int{s, hq, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer q.Release()
	copy(tensor.Data[float32](q, dtype.F32), []float32{1, 1})

	k, err := tensor.Create([]int{tlen, hkv, d}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer k.Release()
	tensor.Data[float32](k, dtype.F32)[0] = 1

	v, err := tensor.Create([]int{tlen, hkv, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer v.Release()
	tensor.Data[float32](v, dtype.F32)[0] = 42

	attn, err := tensor.Create([]int{s, hq, dv}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer attn.Release()

	require.NoError(t, SelfAttention(attn, q, k, v, 1))
	got := tensor.Data[float32](attn, dtype.F32)
	assert.InDelta(t, float32(42), got[0], 1e-5)
	assert.InDelta(t, float32(42), got[1], 1e-5)
}

func TestSelfAttentionRejectsHqNotMultipleOfHkv(t *testing.T) {
	q, err := tensor.Create([]int{1, 3, 1}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer q.Release()
	k, err := tensor.Create([]int{1, 2, 1}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer k.Release()
	v, err := tensor.Create([]int{1, 2, 1}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer v.Release()
	attn, err := tensor.Create([]int{1, 3, 1}, dtype.F32, device.CPU, 0)
	require.NoError(t, err)
	defer attn.Release()

	require.Error(t, SelfAttention(attn, q, k, v, 1))
}
