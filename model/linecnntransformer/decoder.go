package linecnntransformer

import (
	"math"

	"github.com/linerec/linerec/ml"
	"github.com/linerec/linerec/ml/nn"
)

// Attention projects queries from the decoder state and keys/values
// from kv (the decoder state for self attention, the encoded image for
// cross attention). mask, when non-nil, is added to the scores before
// softmax.
type Attention struct {
	Query  *nn.Linear `gguf:"q"`
	Key    *nn.Linear `gguf:"k"`
	Value  *nn.Linear `gguf:"v"`
	Output *nn.Linear `gguf:"out_proj"`
}

func newAttention(ctx ml.Context, init *nn.Init, dim int) *Attention {
	return &Attention{
		Query:  nn.NewLinear(ctx, init, dim, dim),
		Key:    nn.NewLinear(ctx, init, dim, dim),
		Value:  nn.NewLinear(ctx, init, dim, dim),
		Output: nn.NewLinear(ctx, init, dim, dim),
	}
}

func (a *Attention) Forward(ctx ml.Context, hiddenState, kv, mask ml.Tensor, opts *Options) ml.Tensor {
	headDim := opts.dim / opts.numHeads
	seqQ := hiddenState.Dim(1)
	seqKV := kv.Dim(1)
	batch := hiddenState.Dim(2)

	query := a.Query.Forward(ctx, hiddenState)
	query = query.Reshape(ctx, headDim, opts.numHeads, seqQ, batch)
	query = query.Permute(ctx, 0, 2, 1, 3).Contiguous(ctx)

	key := a.Key.Forward(ctx, kv)
	key = key.Reshape(ctx, headDim, opts.numHeads, seqKV, batch)
	key = key.Permute(ctx, 0, 2, 1, 3).Contiguous(ctx)

	value := a.Value.Forward(ctx, kv)
	value = value.Reshape(ctx, headDim, opts.numHeads, seqKV, batch)
	value = value.Permute(ctx, 1, 2, 0, 3).Contiguous(ctx)

	scores := key.Mulmat(ctx, query)
	scores = scores.Scale(ctx, 1.0/math.Sqrt(float64(headDim)))
	if mask != nil {
		scores = scores.Add(ctx, mask)
	}
	scores = scores.Softmax(ctx)

	attention := value.Mulmat(ctx, scores)
	attention = attention.Permute(ctx, 0, 2, 1, 3).Contiguous(ctx)
	attention = attention.Reshape(ctx, opts.dim, seqQ, batch)

	return a.Output.Forward(ctx, attention)
}

// MLP is the position-wise feed-forward sublayer: expand, GELU,
// project back.
type MLP struct {
	Up   *nn.Linear `gguf:"ffn.0"`
	Down *nn.Linear `gguf:"ffn.3"`
}

func newMLP(ctx ml.Context, init *nn.Init, dim, fcDim int) *MLP {
	return &MLP{
		Up:   nn.NewLinear(ctx, init, dim, fcDim),
		Down: nn.NewLinear(ctx, init, fcDim, dim),
	}
}

func (mlp *MLP) Forward(ctx ml.Context, hiddenState ml.Tensor) ml.Tensor {
	hiddenState = mlp.Up.Forward(ctx, hiddenState).GELU(ctx)
	return mlp.Down.Forward(ctx, hiddenState)
}

// DecoderLayer is a pre-norm transformer decoder layer: masked self
// attention over the token prefix, cross attention over the encoded
// image sequence, then the feed-forward sublayer, each behind its own
// layer norm with a residual connection around it.
type DecoderLayer struct {
	AttentionNorm  *nn.LayerNorm `gguf:"norm1"`
	SelfAttention  *Attention    `gguf:"self_attn"`
	CrossNorm      *nn.LayerNorm `gguf:"norm2"`
	CrossAttention *Attention    `gguf:"cross_attn"`
	MLPNorm        *nn.LayerNorm `gguf:"norm3"`
	MLP            *MLP
}

func newDecoderLayer(ctx ml.Context, init *nn.Init, opts *Options) DecoderLayer {
	return DecoderLayer{
		AttentionNorm:  nn.NewLayerNorm(ctx, init, opts.dim),
		SelfAttention:  newAttention(ctx, init, opts.dim),
		CrossNorm:      nn.NewLayerNorm(ctx, init, opts.dim),
		CrossAttention: newAttention(ctx, init, opts.dim),
		MLPNorm:        nn.NewLayerNorm(ctx, init, opts.dim),
		MLP:            newMLP(ctx, init, opts.dim, opts.fcDim),
	}
}

func (l *DecoderLayer) Forward(ctx ml.Context, hiddenState, memory, mask ml.Tensor, opts *Options) ml.Tensor {
	residual := hiddenState

	hiddenState = l.AttentionNorm.Forward(ctx, hiddenState, opts.eps)
	hiddenState = l.SelfAttention.Forward(ctx, hiddenState, hiddenState, mask, opts)
	hiddenState = hiddenState.Add(ctx, residual)
	residual = hiddenState

	hiddenState = l.CrossNorm.Forward(ctx, hiddenState, opts.eps)
	hiddenState = l.CrossAttention.Forward(ctx, hiddenState, memory, nil, opts)
	hiddenState = hiddenState.Add(ctx, residual)
	residual = hiddenState

	hiddenState = l.MLPNorm.Forward(ctx, hiddenState, opts.eps)
	hiddenState = l.MLP.Forward(ctx, hiddenState)
	return hiddenState.Add(ctx, residual)
}
