// Package linecnntransformer couples the LineCNN image encoder with a
// transformer decoder that spells out the text of the line one
// character token at a time.
package linecnntransformer

import (
	"fmt"
	"math"

	"github.com/linerec/linerec/ml"
	"github.com/linerec/linerec/ml/nn"
	"github.com/linerec/linerec/model"
	"github.com/linerec/linerec/model/linecnn"
	"github.com/linerec/linerec/sample"
)

const initRange = 0.1

type Model struct {
	model.Base

	Encoder   *linecnn.Model `gguf:"line_cnn"`
	Embedding *nn.Embedding  `gguf:"embedding"`
	Layers    []DecoderLayer `gguf:"decoder.layers"`
	Output    *nn.Linear     `gguf:"fc"`

	vocab       *model.Vocabulary
	posEncoding ml.Tensor
	causal      []float32

	*Options
}

func New(b ml.Backend) (model.Model, error) {
	c := b.Config()

	vocab, err := model.NewVocabulary(c.Strings("vocabulary.tokens", model.DefaultMapping()))
	if err != nil {
		return nil, err
	}

	opts, err := newOptions(c, vocab.Len())
	if err != nil {
		return nil, err
	}

	// the encoder's class count doubles as the decoder's embedding
	// dimension, so the two always agree
	encoder, err := linecnn.NewModel(b, opts.dim)
	if err != nil {
		return nil, err
	}

	ctx := b.NewContext()
	init := nn.NewInit(uint64(c.Uint("seed")))

	layers := make([]DecoderLayer, opts.numLayers)
	for i := range layers {
		layers[i] = newDecoderLayer(ctx, init, opts)
	}

	width, _ := encoder.InputSize()
	maxLen := max(encoder.SequenceLength(width), opts.maxOutputLength)

	m := &Model{
		Base:      model.NewBase(b),
		Encoder:   encoder,
		Embedding: nn.NewEmbedding(ctx, init, vocab.Len(), opts.dim, initRange),
		Layers:    layers,
		Output: &nn.Linear{
			Weight: init.Uniform(ctx, initRange, opts.dim, vocab.Len()),
			Bias:   ctx.Zeros(ml.DTypeF32, vocab.Len()),
		},

		vocab:       vocab,
		posEncoding: positionalEncoding(ctx, opts.dim, maxLen),
		causal:      causalMask(opts.maxOutputLength),

		Options: opts,
	}

	return m, nil
}

// Vocabulary returns the character mapping the emitted indices refer
// to.
func (m *Model) Vocabulary() *model.Vocabulary {
	return m.vocab
}

// Encode maps a [W, H, 1, B] image batch to a positionally encoded
// embedding sequence [E, Sx, B] for the decoder to attend over.
func (m *Model) Encode(ctx ml.Context, images ml.Tensor) (ml.Tensor, error) {
	t, err := m.Encoder.Forward(ctx, images)
	if err != nil {
		return nil, err
	}

	t = t.Scale(ctx, math.Sqrt(float64(m.dim)))
	return t.Add(ctx, m.posEncoding.View(ctx, 0, m.dim, t.Dim(1))), nil
}

// Decode runs the decoder stack over a [Sy, B] token prefix with causal
// and padding masking, attending to the encoded images, and returns
// [C, Sy, B] logits, one vector per prefix position. With a shifted
// ground-truth prefix this is the teacher-forced training step; during
// generation the prefix is the model's own output so far.
func (m *Model) Decode(ctx ml.Context, memory, tokens ml.Tensor) (ml.Tensor, error) {
	if memory.Dim(0) != m.dim {
		return nil, fmt.Errorf("encoded dimension %d does not match decoder dimension %d", memory.Dim(0), m.dim)
	}

	sy := tokens.Dim(0)
	batch := tokens.Dim(1)
	if sy > m.maxOutputLength {
		return nil, fmt.Errorf("prefix length %d exceeds maximum output length %d", sy, m.maxOutputLength)
	}

	t := m.Embedding.Forward(ctx, tokens)
	t = t.Scale(ctx, math.Sqrt(float64(m.dim)))
	t = t.Add(ctx, m.posEncoding.View(ctx, 0, m.dim, sy))

	mask := decodeMask(ctx, m.causal, tokens.Ints(), sy, batch, m.vocab.Padding)
	for _, layer := range m.Layers {
		t = layer.Forward(ctx, t, memory, mask, m.Options)
	}

	return m.Output.Forward(ctx, t), nil
}

// Forward greedily transcribes a [W, H, 1, B] image batch into an
// [S, B] int32 token tensor of exactly the maximum output length.
func (m *Model) Forward(ctx ml.Context, images ml.Tensor) (ml.Tensor, error) {
	return m.Generate(ctx, images, sample.Greedy())
}

// Generate decodes autoregressively with a pluggable sampler: the
// output buffer starts as padding with a start token at position 0, and
// each step re-decodes the whole prefix (there is no incremental cache)
// and samples the next token from the newest position's logits. Once an
// end or padding token appears, every later position is forced to
// padding.
func (m *Model) Generate(ctx ml.Context, images ml.Tensor, sampler sample.Sampler) (ml.Tensor, error) {
	memory, err := m.Encode(ctx, images)
	if err != nil {
		return nil, err
	}

	batch := images.Dim(3)
	s := m.maxOutputLength
	classes := m.numClasses

	buf := make([]int32, s*batch)
	for b := range batch {
		for i := range s {
			buf[b*s+i] = m.vocab.Padding
		}
		buf[b*s] = m.vocab.Start
	}

	for sy := 1; sy < s; sy++ {
		prefix := make([]int32, sy*batch)
		for b := range batch {
			copy(prefix[b*sy:], buf[b*s:b*s+sy])
		}

		tokens, err := ctx.FromIntSlice(prefix, sy, batch)
		if err != nil {
			return nil, err
		}

		logits, err := m.Decode(ctx, memory, tokens)
		if err != nil {
			return nil, err
		}

		lf := logits.Floats()
		for b := range batch {
			newest := lf[b*classes*sy+(sy-1)*classes:][:classes]
			id, err := sampler.Sample(newest)
			if err != nil {
				return nil, err
			}
			buf[b*s+sy] = int32(id)
		}
	}

	// nothing follows an end or padding token
	for b := range batch {
		for sy := 1; sy < s; sy++ {
			if prev := buf[b*s+sy-1]; prev == m.vocab.End || prev == m.vocab.Padding {
				buf[b*s+sy] = m.vocab.Padding
			}
		}
	}

	return ctx.FromIntSlice(buf, s, batch)
}

func init() {
	model.Register("linecnn-transformer", New)
}
