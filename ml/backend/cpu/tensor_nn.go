package cpu

import (
	"fmt"
	"math"

	"github.com/linerec/linerec/ml"
)

// Conv2D convolves a [W, H, C, N] input with the receiver, a
// [KW, KH, C, OC] weight, producing [OW, OH, OC, N].
func (t *Tensor) Conv2D(ctx ml.Context, t2 ml.Tensor, s0, s1, p0, p1, d0, d1 int) ml.Tensor {
	w := t.materialize()
	in := t2.(*Tensor).materialize()

	kw, kh, c, oc := w.shape[0], w.shape[1], w.shape[2], w.shape[3]
	iw, ih, ic, n := in.shape[0], in.shape[1], in.shape[2], in.shape[3]
	if c != ic {
		panic(fmt.Sprintf("cpu: conv2d channel mismatch, weight %v input %v", w.Shape(), in.Shape()))
	}

	ow := (iw+2*p0-d0*(kw-1)-1)/s0 + 1
	oh := (ih+2*p1-d1*(kh-1)-1)/s1 + 1

	out := newTensor(ml.DTypeF32, ow, oh, oc, n)
	for b := range n {
		for o := range oc {
			for oy := range oh {
				for ox := range ow {
					var acc float64
					for ch := range c {
						for ky := range kh {
							iy := oy*s1 + ky*d1 - p1
							if iy < 0 || iy >= ih {
								continue
							}
							for kx := range kw {
								ix := ox*s0 + kx*d0 - p0
								if ix < 0 || ix >= iw {
									continue
								}
								acc += float64(in.at(ix, iy, ch, b)) * float64(w.at(kx, ky, ch, o))
							}
						}
					}
					out.set(ox, oy, o, b, float32(acc))
				}
			}
		}
	}
	return out
}

// MaxPool2D applies max pooling over the two spatial dimensions of a
// [W, H, C, N] tensor.
func (t *Tensor) MaxPool2D(ctx ml.Context, k0, k1, s0, s1 int) ml.Tensor {
	in := t.materialize()

	iw, ih, c, n := in.shape[0], in.shape[1], in.shape[2], in.shape[3]
	ow := (iw-k0)/s0 + 1
	oh := (ih-k1)/s1 + 1

	out := newTensor(ml.DTypeF32, ow, oh, c, n)
	for b := range n {
		for ch := range c {
			for oy := range oh {
				for ox := range ow {
					maxv := float32(math.Inf(-1))
					for ky := range k1 {
						for kx := range k0 {
							maxv = max(maxv, in.at(ox*s0+kx, oy*s1+ky, ch, b))
						}
					}
					out.set(ox, oy, ch, b, maxv)
				}
			}
		}
	}
	return out
}

// Rows gathers rows of the receiver, a [E, V] table, by the int32
// indices in t2. Indices may be [n] or [n, b]; the result is [E, n] or
// [E, n, b].
func (t *Tensor) Rows(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	idx := t2.(*Tensor)
	if idx.dtype != ml.DTypeI32 {
		panic("cpu: rows requires i32 indices")
	}

	e := t.shape[0]
	v := t.shape[1]

	shape := append([]int{e}, idx.Shape()...)
	out := newTensor(ml.DTypeF32, shape...)

	ids := idx.Ints()
	for n, id := range ids {
		if id < 0 || int(id) >= v {
			panic(fmt.Sprintf("cpu: row index %d out of range [0, %d)", id, v))
		}
		for i0 := range e {
			out.data[n*e+i0] = t.at(i0, int(id), 0, 0)
		}
	}
	return out
}
