package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/linerec/linerec/ml"
)

// Init draws initial weights from a seeded source so freshly built
// models are reproducible.
type Init struct {
	src rand.Source
}

func NewInit(seed uint64) *Init {
	return &Init{src: rand.NewSource(seed)}
}

// KaimingNormal fills a tensor from N(0, sqrt(2/fanOut)), the fan-out
// scaled scheme used for convolution and linear weights feeding ReLUs.
func (in *Init) KaimingNormal(ctx ml.Context, fanOut int, shape ...int) ml.Tensor {
	return in.normal(ctx, math.Sqrt(2/float64(fanOut)), shape...)
}

// FanOutNormal fills a bias tensor from N(0, 1/sqrt(fanOut)).
func (in *Init) FanOutNormal(ctx ml.Context, fanOut int, shape ...int) ml.Tensor {
	return in.normal(ctx, 1/math.Sqrt(float64(fanOut)), shape...)
}

func (in *Init) normal(ctx ml.Context, sigma float64, shape ...int) ml.Tensor {
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: in.src}

	s := make([]float32, numel(shape))
	for i := range s {
		s[i] = float32(dist.Rand())
	}

	t, err := ctx.FromFloatSlice(s, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Uniform fills a tensor from U(-r, r).
func (in *Init) Uniform(ctx ml.Context, r float64, shape ...int) ml.Tensor {
	dist := distuv.Uniform{Min: -r, Max: r, Src: in.src}

	s := make([]float32, numel(shape))
	for i := range s {
		s[i] = float32(dist.Rand())
	}

	t, err := ctx.FromFloatSlice(s, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Ones fills a tensor with 1.
func (in *Init) Ones(ctx ml.Context, shape ...int) ml.Tensor {
	s := make([]float32, numel(shape))
	for i := range s {
		s[i] = 1
	}

	t, err := ctx.FromFloatSlice(s, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
