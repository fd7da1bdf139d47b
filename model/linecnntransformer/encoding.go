package linecnntransformer

import (
	"math"

	"github.com/linerec/linerec/ml"
)

// positionalEncoding builds the sinusoidal position table as an
// [dim, maxLen] tensor: column p holds sin(p/10000^(2i/dim)) at even
// rows and cos at odd rows.
func positionalEncoding(ctx ml.Context, dim, maxLen int) ml.Tensor {
	s := make([]float32, dim*maxLen)
	for pos := range maxLen {
		for i := 0; i < dim; i += 2 {
			angle := float64(pos) * math.Exp(-float64(i)*math.Log(10000)/float64(dim))
			s[pos*dim+i] = float32(math.Sin(angle))
			if i+1 < dim {
				s[pos*dim+i+1] = float32(math.Cos(angle))
			}
		}
	}

	t, err := ctx.FromFloatSlice(s, dim, maxLen)
	if err != nil {
		panic(err)
	}
	return t
}

var negInf = float32(math.Inf(-1))

// causalMask returns a [size, size] row-major table where entry (q, k)
// is -inf for k > q and 0 elsewhere, so a position can only attend to
// itself and earlier positions.
func causalMask(size int) []float32 {
	m := make([]float32, size*size)
	for q := range size {
		for k := q + 1; k < size; k++ {
			m[q*size+k] = negInf
		}
	}
	return m
}

// decodeMask combines the causal mask with a key-padding mask for the
// token prefix, returning a [Sy, Sy, 1, B] tensor added to attention
// scores before softmax. tokens is the [Sy, B] prefix in logical order.
func decodeMask(ctx ml.Context, causal []float32, tokens []int32, sy, batch int, padding int32) ml.Tensor {
	size := int(math.Sqrt(float64(len(causal))))

	s := make([]float32, sy*sy*batch)
	for b := range batch {
		for q := range sy {
			for k := range sy {
				v := causal[q*size+k]
				if tokens[b*sy+k] == padding {
					v = negInf
				}
				s[b*sy*sy+q*sy+k] = v
			}
		}
	}

	t, err := ctx.FromFloatSlice(s, sy, sy, 1, batch)
	if err != nil {
		panic(err)
	}
	return t
}
