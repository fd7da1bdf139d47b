// Package cpu is a pure Go compute backend. Operations are evaluated
// eagerly on the calling goroutine; the batch dimension is handled by
// vectorized loops, not goroutines.
package cpu

import (
	"github.com/linerec/linerec/fs"
	"github.com/linerec/linerec/ml"
)

type Backend struct {
	config fs.Config
}

func New(c fs.Config) (ml.Backend, error) {
	return &Backend{config: c}, nil
}

func (b *Backend) Config() fs.Config {
	return b.config
}

func (b *Backend) NewContext() ml.Context {
	return &Context{}
}

func init() {
	ml.RegisterBackend("cpu", New)
}
