package nn

import "github.com/linerec/linerec/ml"

type Conv2D struct {
	Weight ml.Tensor `gguf:"weight"`
	Bias   ml.Tensor `gguf:"bias"`
}

// NewConv2D allocates a kw x kh convolution over in channels producing
// out channels, with fan-out scaled weights.
func NewConv2D(ctx ml.Context, init *Init, in, out, kw, kh int) *Conv2D {
	fanOut := out * kw * kh
	return &Conv2D{
		Weight: init.KaimingNormal(ctx, fanOut, kw, kh, in, out),
		Bias:   init.FanOutNormal(ctx, fanOut, out),
	}
}

func (m *Conv2D) Forward(ctx ml.Context, t ml.Tensor, s0, s1, p0, p1, d0, d1 int) ml.Tensor {
	t = m.Weight.Conv2D(ctx, t, s0, s1, p0, p1, d0, d1)
	if m.Bias != nil {
		// one bias per output channel
		t = t.Add(ctx, m.Bias.Reshape(ctx, 1, 1, m.Bias.Dim(0), 1))
	}
	return t
}
