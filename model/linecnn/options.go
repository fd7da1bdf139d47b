package linecnn

import (
	"fmt"

	"github.com/linerec/linerec/fs"
)

const (
	defaultConvDim      = 32
	defaultFCDim        = 512
	defaultFCDropout    = 0.2
	defaultWindowWidth  = 16
	defaultWindowStride = 8

	// four 2x2 max pools between the stem and the head
	downsample = 16

	normEps = 1e-5
)

// Options hold the hyperparameters fixed at construction time.
type Options struct {
	numClasses   int
	height       int
	width        int
	outputLength int

	convDim   int
	fcDim     int
	fcDropout float32

	windowWidth  int
	windowStride int

	limitOutputLength bool
}

func newOptions(c fs.Config, numClasses int) (*Options, error) {
	opts := &Options{
		numClasses:   numClasses,
		height:       int(c.Uint("image.height")),
		width:        int(c.Uint("image.width")),
		outputLength: int(c.Uint("output_length")),

		convDim:   int(c.Uint("linecnn.conv_dim", defaultConvDim)),
		fcDim:     int(c.Uint("linecnn.fc_dim", defaultFCDim)),
		fcDropout: c.Float("linecnn.fc_dropout", defaultFCDropout),

		windowWidth:  int(c.Uint("linecnn.window_width", defaultWindowWidth)),
		windowStride: int(c.Uint("linecnn.window_stride", defaultWindowStride)),

		limitOutputLength: c.Bool("linecnn.limit_output_length", false),
	}

	if opts.height < downsample || opts.height%downsample != 0 {
		return nil, fmt.Errorf("image height %d must be a multiple of %d", opts.height, downsample)
	}
	if opts.width < downsample {
		return nil, fmt.Errorf("image width %d must be at least %d", opts.width, downsample)
	}
	if opts.numClasses < 1 {
		return nil, fmt.Errorf("invalid class count %d", opts.numClasses)
	}
	if opts.limitOutputLength && opts.outputLength < 1 {
		return nil, fmt.Errorf("output_length required when limiting output length")
	}

	return opts, nil
}

// SequenceLength returns the number of window positions produced for an
// input of the given width: each pooling stage halves it.
func (o *Options) SequenceLength(width int) int {
	s := width
	for range 4 {
		s /= 2
	}
	return s
}

// InputSize reports the fixed line image size the model accepts.
func (o *Options) InputSize() (width, height int) {
	return o.width, o.height
}

// WindowGeometry reports the receptive-field width and stride of one
// output position in input pixels.
func (o *Options) WindowGeometry() (width, stride int) {
	return o.windowWidth, o.windowStride
}

// NumClasses reports the size of each output logit vector.
func (o *Options) NumClasses() int {
	return o.numClasses
}
