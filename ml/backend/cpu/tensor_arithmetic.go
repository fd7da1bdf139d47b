package cpu

import (
	"fmt"

	"github.com/linerec/linerec/ml"
)

// broadcastIndex maps a result coordinate onto a (possibly smaller)
// operand: size-1 dimensions repeat.
func broadcastIndex(i, dim int) int {
	if dim == 1 {
		return 0
	}
	return i
}

func (t *Tensor) binary(t2 ml.Tensor, op func(a, b float32) float32) ml.Tensor {
	u := t2.(*Tensor)
	if t.dtype != ml.DTypeF32 || u.dtype != ml.DTypeF32 {
		panic("cpu: arithmetic on non-f32 tensors")
	}

	for i := range maxDims {
		if u.shape[i] != t.shape[i] && u.shape[i] != 1 {
			panic(fmt.Sprintf("cpu: cannot broadcast %v onto %v", u.Shape(), t.Shape()))
		}
	}

	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				for i0 := range t.shape[0] {
					v := u.at(
						broadcastIndex(i0, u.shape[0]),
						broadcastIndex(i1, u.shape[1]),
						broadcastIndex(i2, u.shape[2]),
						broadcastIndex(i3, u.shape[3]),
					)
					out.set(i0, i1, i2, i3, op(t.at(i0, i1, i2, i3), v))
				}
			}
		}
	}
	return out
}

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(t2, func(a, b float32) float32 { return a + b })
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binary(t2, func(a, b float32) float32 { return a * b })
}

func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	return t.unary(func(v float32) float32 { return v * float32(s) })
}

func (t *Tensor) unary(op func(float32) float32) ml.Tensor {
	if t.dtype != ml.DTypeF32 {
		panic("cpu: arithmetic on non-f32 tensor")
	}

	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				for i0 := range t.shape[0] {
					out.set(i0, i1, i2, i3, op(t.at(i0, i1, i2, i3)))
				}
			}
		}
	}
	return out
}
