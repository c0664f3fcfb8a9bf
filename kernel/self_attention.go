package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kiln-ml/kiln/dtype"
	"github.com/kiln-ml/kiln/errs"
	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/tensor"
)

// SelfAttention computes grouped-query causal attention over a KV cache
// of total length T >= S: attn[qp,hq,:] = softmax(scale * q . k)[0:C] . v,
// where C = min(qp + (T-S) + 1, T) is the causal context length and
// query head hq maps to kv head hq/group with group = Hq/Hkv. Softmax
// uses max-subtraction for stability and defines the degenerate
// all-masked row (never reached here since C >= 1) as zero weights.
// f64 inputs route the per-head matmuls through gonum's mat.Dense and
// find the softmax max via gonum/floats.MaxIdx; every other dtype
// accumulates in f32 via the shared floatView dot product, parallelized
// over (query position, query head) pairs with internal/parallel,
// matching the backend's scaled-dot-product-attention loop shape.
func SelfAttention(attn, q, k, v *tensor.Tensor, scale float32) error {
	return observe("self_attention", attn.DType(), func() error {
		if err := requireCPU("self_attention", attn, q, k, v); err != nil {
			return err
		}
		for _, t := range []*tensor.Tensor{attn, q, k, v} {
			if err := requireContiguous("self_attention", t); err != nil {
				return err
			}
		}
		if err := requireSameDType("self_attention", attn, q, k, v); err != nil {
			return err
		}

		qShape, kShape, vShape, attnShape := q.Shape(), k.Shape(), v.Shape(), attn.Shape()
		if len(qShape) != 3 || len(kShape) != 3 || len(vShape) != 3 || len(attnShape) != 3 {
			return errs.New(errs.PreconditionFailed, "self_attention", "q, k, v and attn must be rank 3")
		}
		s, hq, d := qShape[0], qShape[1], qShape[2]
		t, hkv, dk := kShape[0], kShape[1], kShape[2]
		tv, hkvV, dv := vShape[0], vShape[1], vShape[2]
		if dk != d {
			return errs.New(errs.PreconditionFailed, "self_attention", fmt.Sprintf("k head dim %d does not match q head dim %d", dk, d))
		}
		if tv != t || hkvV != hkv {
			return errs.New(errs.PreconditionFailed, "self_attention", fmt.Sprintf("v shape %v inconsistent with k shape %v", vShape, kShape))
		}
		if t < s {
			return errs.New(errs.PreconditionFailed, "self_attention", fmt.Sprintf("kv cache length %d must be >= query length %d", t, s))
		}
		if hq%hkv != 0 {
			return errs.New(errs.PreconditionFailed, "self_attention", fmt.Sprintf("Hq %d must be a multiple of Hkv %d", hq, hkv))
		}
		if attnShape[0] != s || attnShape[1] != hq || attnShape[2] != dv {
			return errs.New(errs.PreconditionFailed, "self_attention", fmt.Sprintf("attn shape %v must be [%d, %d, %d]", attnShape, s, hq, dv))
		}

		group := hq / hkv
		kvOff := t - s

		if attn.DType() == dtype.F64 {
			return selfAttentionF64(attn, q, k, v, s, hq, d, t, hkv, dv, group, kvOff, scale)
		}
		return selfAttentionPromoted(attn, q, k, v, s, hq, d, t, hkv, dv, group, kvOff, scale)
	})
}

func selfAttentionPromoted(attn, q, k, v *tensor.Tensor, s, hq, d, t, hkv, dv, group, kvOff int, scale float32) error {
	qView, err := newFloatView("self_attention", q)
	if err != nil {
		return err
	}
	kView, err := newFloatView("self_attention", k)
	if err != nil {
		return err
	}
	vView, err := newFloatView("self_attention", v)
	if err != nil {
		return err
	}
	attnView, err := newFloatView("self_attention", attn)
	if err != nil {
		return err
	}

	// Each (qp, hqIdx) pair reads shared q/k/v views and writes a
	// disjoint attn range, so ForBatch's goroutine fan-out is safe as
	// long as the score scratch buffer is allocated per call rather
	// than shared across the batch.
	cfg := parallel.DefaultConfig()
	parallel.ForBatch(s, hq, func(qp, hqIdx int) {
		c := qp + kvOff + 1
		if c > t {
			c = t
		}
		hkvIdx := hqIdx / group
		qBase := (qp*hq + hqIdx) * d

		scores := make([]float32, c)
		var maxScore float32 = float32(math.Inf(-1))
		for kp := 0; kp < c; kp++ {
			kBase := (kp*hkv + hkvIdx) * d
			var dot float32
			for i := 0; i < d; i++ {
				dot += qView.get(qBase+i) * kView.get(kBase+i)
			}
			sc := scale * dot
			scores[kp] = sc
			if sc > maxScore {
				maxScore = sc
			}
		}

		var sumExp float32
		for kp := 0; kp < c; kp++ {
			e := float32(math.Exp(float64(scores[kp] - maxScore)))
			scores[kp] = e
			sumExp += e
		}

		attnBase := (qp*hq + hqIdx) * dv
		if sumExp == 0 {
			for i := 0; i < dv; i++ {
				attnView.set(attnBase+i, 0)
			}
			return
		}
		for i := 0; i < dv; i++ {
			var acc float32
			for kp := 0; kp < c; kp++ {
				vBase := (kp*hkv + hkvIdx) * dv
				acc += (scores[kp] / sumExp) * vView.get(vBase+i)
			}
			attnView.set(attnBase+i, acc)
		}
	}, cfg)
	return nil
}

func selfAttentionF64(attn, q, k, v *tensor.Tensor, s, hq, d, t, hkv, dv, group, kvOff int, scale float32) error {
	qData := tensor.Data[float64](q, dtype.F64)
	kData := tensor.Data[float64](k, dtype.F64)
	vData := tensor.Data[float64](v, dtype.F64)
	attnData := tensor.Data[float64](attn, dtype.F64)

	qRow := make([]float64, d)
	scores := make([]float64, t)
	for qp := 0; qp < s; qp++ {
		c := qp + kvOff + 1
		if c > t {
			c = t
		}
		for hqIdx := 0; hqIdx < hq; hqIdx++ {
			hkvIdx := hqIdx / group
			qBase := (qp*hq + hqIdx) * d
			copy(qRow, qData[qBase:qBase+d])
			qMat := mat.NewDense(1, d, qRow)

			kScratch := make([]float64, c*d)
			for kp := 0; kp < c; kp++ {
				kBase := (kp*hkv + hkvIdx) * d
				copy(kScratch[kp*d:(kp+1)*d], kData[kBase:kBase+d])
			}
			kMat := mat.NewDense(c, d, kScratch)

			scoreMat := mat.NewDense(1, c, nil)
			scoreMat.Mul(qMat, kMat.T())

			for kp := 0; kp < c; kp++ {
				scores[kp] = float64(scale) * scoreMat.At(0, kp)
			}
			maxScore := scores[floats.MaxIdx(scores[:c])]

			sumExp := 0.0
			for kp := 0; kp < c; kp++ {
				e := math.Exp(scores[kp] - maxScore)
				scores[kp] = e
				sumExp += e
			}

			attnBase := (qp*hq + hqIdx) * dv
			if sumExp == 0 {
				for i := 0; i < dv; i++ {
					attnData[attnBase+i] = 0
				}
				continue
			}

			vScratch := make([]float64, c*dv)
			for kp := 0; kp < c; kp++ {
				vBase := (kp*hkv + hkvIdx) * dv
				copy(vScratch[kp*dv:(kp+1)*dv], vData[vBase:vBase+dv])
			}
			vMat := mat.NewDense(c, dv, vScratch)
			weights := make([]float64, c)
			for kp := 0; kp < c; kp++ {
				weights[kp] = scores[kp] / sumExp
			}
			wMat := mat.NewDense(1, c, weights)
			outMat := mat.NewDense(1, dv, nil)
			outMat.Mul(wMat, vMat)
			copy(attnData[attnBase:attnBase+dv], outMat.RawMatrix().Data)
		}
	}
	return nil
}
