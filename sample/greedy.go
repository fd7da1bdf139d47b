package sample

import "gonum.org/v1/gonum/floats"

type greedy struct{}

// Greedy always picks the highest logit. Transforms are ignored since
// monotonic transforms cannot change the argmax.
func Greedy() Sampler {
	return greedy{}
}

func (greedy) Sample(logits []float32, _ ...Transform) (int, error) {
	logits64 := make([]float64, len(logits))
	for i, v := range logits {
		logits64[i] = float64(v)
	}
	return floats.MaxIdx(logits64), nil
}
