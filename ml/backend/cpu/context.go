package cpu

import (
	"fmt"

	"github.com/linerec/linerec/ml"
)

type Context struct{}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return newTensor(dtype, shape...)
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	// freshly allocated storage is already zero
	return newTensor(dtype, shape...)
}

func (c *Context) FromFloatSlice(s []float32, shape ...int) (ml.Tensor, error) {
	if n := mul(shape...); n != len(s) {
		return nil, fmt.Errorf("invalid shape %v for %d elements", shape, len(s))
	}

	t := newTensor(ml.DTypeF32, shape...)
	copy(t.data, s)
	return t, nil
}

func (c *Context) FromIntSlice(s []int32, shape ...int) (ml.Tensor, error) {
	if n := mul(shape...); n != len(s) {
		return nil, fmt.Errorf("invalid shape %v for %d elements", shape, len(s))
	}

	t := newTensor(ml.DTypeI32, shape...)
	copy(t.idata, s)
	return t, nil
}

// Compute is a no-op: this backend evaluates operations eagerly rather
// than building a graph. It exists so callers can treat all backends
// uniformly.
func (c *Context) Compute(t ml.Tensor) ml.Tensor {
	return t
}

func (c *Context) Close() error {
	return nil
}
