// Package linecnn reads a fixed-size image of a handwritten text line
// with a sliding receptive field, producing one class-logit vector per
// window position.
package linecnn

import (
	"fmt"

	"github.com/linerec/linerec/ml"
	"github.com/linerec/linerec/ml/nn"
	"github.com/linerec/linerec/model"
)

// ConvBlock is a 3x3 convolution at stride 1 with padding 1, leaving
// the spatial size unchanged, normalized and passed through a ReLU.
type ConvBlock struct {
	Conv *nn.Conv2D      `gguf:"conv"`
	Norm *nn.BatchNorm2D `gguf:"bn"`
}

func newConvBlock(ctx ml.Context, init *nn.Init, in, out, kw, kh int) *ConvBlock {
	return &ConvBlock{
		Conv: nn.NewConv2D(ctx, init, in, out, kw, kh),
		Norm: nn.NewBatchNorm2D(ctx, init, out),
	}
}

func (b *ConvBlock) Forward(ctx ml.Context, t ml.Tensor, p0, p1 int) ml.Tensor {
	t = b.Conv.Forward(ctx, t, 1, 1, p0, p1, 1, 1)
	t = b.Norm.Forward(ctx, t, normEps)
	return t.Relu(ctx)
}

// ResBlock is a residual block of two normalized 3x3 convolutions. When
// the channel count changes, the skip connection projects through a 1x1
// convolution.
type ResBlock struct {
	Conv1 *nn.Conv2D      `gguf:"conv1"`
	Norm1 *nn.BatchNorm2D `gguf:"bn1"`
	Conv2 *nn.Conv2D      `gguf:"conv2"`
	Norm2 *nn.BatchNorm2D `gguf:"bn2"`

	SkipConv *nn.Conv2D      `gguf:"skip.0"`
	SkipNorm *nn.BatchNorm2D `gguf:"skip.1"`
}

func newResBlock(ctx ml.Context, init *nn.Init, in, out int) *ResBlock {
	b := &ResBlock{
		Conv1: nn.NewConv2D(ctx, init, in, out, 3, 3),
		Norm1: nn.NewBatchNorm2D(ctx, init, out),
		Conv2: nn.NewConv2D(ctx, init, out, out, 3, 3),
		Norm2: nn.NewBatchNorm2D(ctx, init, out),
	}

	if in != out {
		b.SkipConv = nn.NewConv2D(ctx, init, in, out, 1, 1)
		b.SkipNorm = nn.NewBatchNorm2D(ctx, init, out)
	}

	return b
}

func (b *ResBlock) Forward(ctx ml.Context, t ml.Tensor) ml.Tensor {
	identity := t

	t = b.Conv1.Forward(ctx, t, 1, 1, 1, 1, 1, 1)
	t = b.Norm1.Forward(ctx, t, normEps)
	t = t.Relu(ctx)

	t = b.Conv2.Forward(ctx, t, 1, 1, 1, 1, 1, 1)
	t = b.Norm2.Forward(ctx, t, normEps)

	if b.SkipConv != nil {
		identity = b.SkipConv.Forward(ctx, identity, 1, 1, 0, 0, 1, 1)
		identity = b.SkipNorm.Forward(ctx, identity, normEps)
	}

	return t.Add(ctx, identity).Relu(ctx)
}

type Model struct {
	model.Base

	Stem *ConvBlock  `gguf:"stem"`
	Res  []*ResBlock `gguf:"res"`
	Head *ConvBlock  `gguf:"head"`

	FC1 *nn.Linear `gguf:"fc1"`
	FC2 *nn.Linear `gguf:"fc2"`

	*Options
}

// New builds a LineCNN emitting logits over the configured vocabulary.
func New(b ml.Backend) (model.Model, error) {
	c := b.Config()

	vocab, err := model.NewVocabulary(c.Strings("vocabulary.tokens", model.DefaultMapping()))
	if err != nil {
		return nil, err
	}

	return NewModel(b, vocab.Len())
}

// NewModel builds a LineCNN with an explicit class count. The
// transformer wrapper repurposes this to emit embeddings instead of
// class logits.
func NewModel(b ml.Backend, numClasses int) (*Model, error) {
	c := b.Config()

	opts, err := newOptions(c, numClasses)
	if err != nil {
		return nil, err
	}

	ctx := b.NewContext()
	init := nn.NewInit(uint64(c.Uint("seed")))

	cd := opts.convDim
	m := &Model{
		Base: model.NewBase(b),
		Stem: newConvBlock(ctx, init, 1, cd, 3, 3),
		Res: []*ResBlock{
			newResBlock(ctx, init, cd, cd),
			newResBlock(ctx, init, cd, cd),
			newResBlock(ctx, init, cd, 2*cd),
			newResBlock(ctx, init, 2*cd, 4*cd),
			newResBlock(ctx, init, 4*cd, 8*cd),
		},
		Head:    newConvBlock(ctx, init, 8*cd, opts.fcDim, 3, opts.height/downsample),
		FC1:     nn.NewLinear(ctx, init, opts.fcDim, opts.fcDim),
		FC2:     nn.NewLinear(ctx, init, opts.fcDim, numClasses),
		Options: opts,
	}

	return m, nil
}

// Forward maps a [W, H, 1, B] image batch to [C, S, B] logits, where S
// is the window count for W and C the class count.
func (m *Model) Forward(ctx ml.Context, images ml.Tensor) (ml.Tensor, error) {
	if images.Dim(0) != m.width || images.Dim(1) != m.height || images.Dim(2) != 1 {
		return nil, fmt.Errorf("input shape %v does not match configured %dx%d single-channel line",
			images.Shape(), m.width, m.height)
	}

	t := m.Stem.Forward(ctx, images, 1, 1)

	// pooling after the plain residual pair, then after each widening block
	t = m.Res[0].Forward(ctx, t)
	t = m.Res[1].Forward(ctx, t)
	t = t.MaxPool2D(ctx, 2, 2, 2, 2)
	for _, res := range m.Res[2:] {
		t = res.Forward(ctx, t)
		t = t.MaxPool2D(ctx, 2, 2, 2, 2)
	}

	// collapse the remaining height, keeping width: kernel (3, H/16),
	// horizontal padding 1
	t = m.Head.Forward(ctx, t, 1, 0)

	s := m.SequenceLength(m.width)
	batch := t.Dim(3)

	t = t.Reshape(ctx, s, m.fcDim, batch)
	t = t.Permute(ctx, 1, 0, 2, 3).Contiguous(ctx) // (fcDim, S, B)

	t = m.FC1.Forward(ctx, t).Relu(ctx)
	// fcDropout applies during training only; inference leaves activations intact
	t = m.FC2.Forward(ctx, t) // (C, S, B)

	if m.limitOutputLength {
		t = truncate(ctx, t, min(m.outputLength, s))
	}

	return t, nil
}

// truncate shortens the sequence dimension of a [C, S, B] tensor to n
// positions.
func truncate(ctx ml.Context, t ml.Tensor, n int) ml.Tensor {
	c, s, batch := t.Dim(0), t.Dim(1), t.Dim(2)
	if n >= s {
		return t
	}

	out := t.View(ctx, 0, c, n, 1)
	for b := 1; b < batch; b++ {
		out = out.Concat(ctx, t.View(ctx, b*c*s, c, n, 1), 2)
	}
	return out
}

func init() {
	model.Register("linecnn", New)
}
