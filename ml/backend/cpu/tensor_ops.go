package cpu

import (
	"math"

	"github.com/linerec/linerec/ml"
)

// Softmax normalizes along dimension 0.
func (t *Tensor) Softmax(ctx ml.Context) ml.Tensor {
	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				maxv := float32(math.Inf(-1))
				for i0 := range t.shape[0] {
					maxv = max(maxv, t.at(i0, i1, i2, i3))
				}

				var sum float64
				for i0 := range t.shape[0] {
					e := math.Exp(float64(t.at(i0, i1, i2, i3) - maxv))
					sum += e
					out.set(i0, i1, i2, i3, float32(e))
				}

				for i0 := range t.shape[0] {
					out.set(i0, i1, i2, i3, float32(float64(out.at(i0, i1, i2, i3))/sum))
				}
			}
		}
	}
	return out
}

// LayerNorm normalizes along dimension 0, then applies a [d0] weight
// and optional bias.
func (t *Tensor) LayerNorm(ctx ml.Context, weight, bias ml.Tensor, eps float32) ml.Tensor {
	w := weight.(*Tensor)
	var b *Tensor
	if bias != nil {
		b = bias.(*Tensor)
	}

	d0 := t.shape[0]
	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				var mean float64
				for i0 := range d0 {
					mean += float64(t.at(i0, i1, i2, i3))
				}
				mean /= float64(d0)

				var variance float64
				for i0 := range d0 {
					d := float64(t.at(i0, i1, i2, i3)) - mean
					variance += d * d
				}
				variance /= float64(d0)

				rstd := 1 / math.Sqrt(variance+float64(eps))
				for i0 := range d0 {
					v := (float64(t.at(i0, i1, i2, i3)) - mean) * rstd
					v *= float64(w.at(i0, 0, 0, 0))
					if b != nil {
						v += float64(b.at(i0, 0, 0, 0))
					}
					out.set(i0, i1, i2, i3, float32(v))
				}
			}
		}
	}
	return out
}

// BatchNorm applies inference-time batch normalization over dimension 2
// (the channel dimension of a [W, H, C, N] tensor) using recorded
// running statistics.
func (t *Tensor) BatchNorm(ctx ml.Context, weight, bias, mean, variance ml.Tensor, eps float32) ml.Tensor {
	w := weight.(*Tensor)
	b := bias.(*Tensor)
	mu := mean.(*Tensor)
	va := variance.(*Tensor)

	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i3 := range t.shape[3] {
		for c := range t.shape[2] {
			scale := float32(1/math.Sqrt(float64(va.at(c, 0, 0, 0))+float64(eps))) * w.at(c, 0, 0, 0)
			shift := b.at(c, 0, 0, 0) - mu.at(c, 0, 0, 0)*scale
			for i1 := range t.shape[1] {
				for i0 := range t.shape[0] {
					out.set(i0, i1, c, i3, t.at(i0, i1, c, i3)*scale+shift)
				}
			}
		}
	}
	return out
}

func (t *Tensor) Relu(ctx ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 { return max(v, 0) })
}

func (t *Tensor) GELU(ctx ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 {
		x := float64(v)
		return float32(0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x))))
	})
}

func (t *Tensor) Tanh(ctx ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 { return float32(math.Tanh(float64(v))) })
}

// Argmax reduces dimension 0, returning the index of the largest
// element as an int32 tensor shaped like the remaining dimensions.
func (t *Tensor) Argmax(ctx ml.Context) ml.Tensor {
	shape := append([]int{}, t.Shape()[1:]...)
	if len(shape) == 0 {
		shape = []int{1}
	}

	out := newTensor(ml.DTypeI32, shape...)
	var n int
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				best := 0
				for i0 := 1; i0 < t.shape[0]; i0++ {
					if t.at(i0, i1, i2, i3) > t.at(best, i1, i2, i3) {
						best = i0
					}
				}
				out.idata[n] = int32(best)
				n++
			}
		}
	}
	return out
}
