package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/linerec/linerec/ml"
)

// Mulmat multiplies the receiver, interpreted as a [k, n] weight, with
// a [k, m] input: the result is [n, m] with out[m][n] = Σ_k t[n][k] *
// t2[m][k]. Dimensions 2 and 3 are batch dimensions; a size-1 batch
// dimension on either side broadcasts.
func (t *Tensor) Mulmat(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	a := t.materialize()
	b := t2.(*Tensor).materialize()

	if a.shape[0] != b.shape[0] {
		panic(fmt.Sprintf("cpu: mulmat inner dimension mismatch %v x %v", a.Shape(), b.Shape()))
	}
	for i := 2; i < maxDims; i++ {
		if a.shape[i] != b.shape[i] && a.shape[i] != 1 && b.shape[i] != 1 {
			panic(fmt.Sprintf("cpu: mulmat batch dimension mismatch %v x %v", a.Shape(), b.Shape()))
		}
	}

	k := a.shape[0]
	n := a.shape[1]
	m := b.shape[1]
	b2 := max(a.shape[2], b.shape[2])
	b3 := max(a.shape[3], b.shape[3])

	dims := max(a.dims, b.dims)
	out := newTensor(ml.DTypeF32, []int{n, m, b2, b3}[:max(dims, 2)]...)

	for i3 := range b3 {
		for i2 := range b2 {
			am := blas32.General{
				Rows: n, Cols: k, Stride: k,
				Data: a.data[a.index(0, 0, broadcastIndex(i2, a.shape[2]), broadcastIndex(i3, a.shape[3])):],
			}
			bm := blas32.General{
				Rows: m, Cols: k, Stride: k,
				Data: b.data[b.index(0, 0, broadcastIndex(i2, b.shape[2]), broadcastIndex(i3, b.shape[3])):],
			}
			cm := blas32.General{
				Rows: m, Cols: n, Stride: n,
				Data: out.data[out.index(0, 0, i2, i3):],
			}

			blas32.Gemm(blas.NoTrans, blas.Trans, 1, bm, am, 0, cm)
		}
	}

	return out
}

// materialize returns t itself when packed, otherwise a contiguous copy.
func (t *Tensor) materialize() *Tensor {
	if t.contiguous() {
		return t
	}
	return t.Contiguous(nil).(*Tensor)
}
