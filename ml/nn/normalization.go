package nn

import (
	"github.com/linerec/linerec/ml"
)

type LayerNorm struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

// NewLayerNorm allocates an identity-initialized layer norm over dim
// features.
func NewLayerNorm(ctx ml.Context, init *Init, dim int) *LayerNorm {
	return &LayerNorm{
		Weight: init.Ones(ctx, dim),
		Bias:   ctx.Zeros(ml.DTypeF32, dim),
	}
}

func (m *LayerNorm) Forward(ctx ml.Context, t ml.Tensor, eps float32) ml.Tensor {
	return t.LayerNorm(ctx, m.Weight, m.Bias, eps)
}

// BatchNorm2D carries the affine parameters and running statistics of a
// batch normalization layer. At inference the running statistics are
// fixed, so the op reduces to a per-channel scale and shift.
type BatchNorm2D struct {
	Weight   ml.Tensor `gguf:"weight"`
	Bias     ml.Tensor `gguf:"bias"`
	Mean     ml.Tensor `gguf:"running_mean"`
	Variance ml.Tensor `gguf:"running_var"`
}

// NewBatchNorm2D allocates an identity batch norm over c channels.
func NewBatchNorm2D(ctx ml.Context, init *Init, c int) *BatchNorm2D {
	return &BatchNorm2D{
		Weight:   init.Ones(ctx, c),
		Bias:     ctx.Zeros(ml.DTypeF32, c),
		Mean:     ctx.Zeros(ml.DTypeF32, c),
		Variance: init.Ones(ctx, c),
	}
}

func (m *BatchNorm2D) Forward(ctx ml.Context, t ml.Tensor, eps float32) ml.Tensor {
	return t.BatchNorm(ctx, m.Weight, m.Bias, m.Mean, m.Variance, eps)
}
