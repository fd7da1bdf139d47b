package nn

import "github.com/linerec/linerec/ml"

type Embedding struct {
	Weight ml.Tensor `gguf:"weight"`
}

// NewEmbedding allocates a vocab x dim lookup table with uniform
// initialization in [-r, r].
func NewEmbedding(ctx ml.Context, init *Init, vocab, dim int, r float64) *Embedding {
	return &Embedding{Weight: init.Uniform(ctx, r, dim, vocab)}
}

func (m *Embedding) Forward(ctx ml.Context, ids ml.Tensor) ml.Tensor {
	return m.Weight.Rows(ctx, ids)
}
