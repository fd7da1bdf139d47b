package nn

import "github.com/linerec/linerec/ml"

type Linear struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

// NewLinear allocates a linear layer mapping in features to out
// features, with fan-out scaled weights.
func NewLinear(ctx ml.Context, init *Init, in, out int) *Linear {
	return &Linear{
		Weight: init.KaimingNormal(ctx, out, in, out),
		Bias:   init.FanOutNormal(ctx, out, out),
	}
}

func (m *Linear) Forward(ctx ml.Context, t ml.Tensor) ml.Tensor {
	t = m.Weight.Mulmat(ctx, t)
	if m.Bias != nil {
		t = t.Add(ctx, m.Bias)
	}

	return t
}
