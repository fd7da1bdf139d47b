package linecnntransformer

import (
	"fmt"

	"github.com/linerec/linerec/fs"
)

const (
	defaultDim      = 256
	defaultFCDim    = 256
	defaultDropout  = 0.4
	defaultLayers   = 4
	defaultNumHeads = 4

	layerNormEps = 1e-5
)

// Options hold the hyperparameters fixed at construction time. dim is
// both the decoder's model dimension and the embedding dimension the
// image encoder is built to emit.
type Options struct {
	numClasses      int
	maxOutputLength int

	dim       int
	fcDim     int
	numHeads  int
	numLayers int
	dropout   float32

	eps float32
}

func newOptions(c fs.Config, numClasses int) (*Options, error) {
	opts := &Options{
		numClasses:      numClasses,
		maxOutputLength: int(c.Uint("output_length")),

		dim:       int(c.Uint("transformer.dim", defaultDim)),
		fcDim:     int(c.Uint("transformer.fc_dim", defaultFCDim)),
		numHeads:  int(c.Uint("transformer.head_count", defaultNumHeads)),
		numLayers: int(c.Uint("transformer.block_count", defaultLayers)),
		dropout:   c.Float("transformer.dropout", defaultDropout),

		eps: layerNormEps,
	}

	if opts.maxOutputLength < 2 {
		return nil, fmt.Errorf("output_length %d leaves no room to generate past the start token", opts.maxOutputLength)
	}
	if opts.numHeads < 1 || opts.dim%opts.numHeads != 0 {
		return nil, fmt.Errorf("model dimension %d is not divisible by %d heads", opts.dim, opts.numHeads)
	}

	return opts, nil
}

// MaxOutputLength reports the fixed length of generated sequences.
func (o *Options) MaxOutputLength() int {
	return o.maxOutputLength
}

// Dim reports the shared encoder/decoder embedding dimension.
func (o *Options) Dim() int {
	return o.dim
}
