package linecnntransformer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/linerec/linerec/fs"
	"github.com/linerec/linerec/ml"
	"github.com/linerec/linerec/model"
	"github.com/linerec/linerec/sample"
)

var testTokens = []string{"<B>", "<S>", "<E>", "<P>", "a", "b"}

func testModel(t *testing.T) (*Model, ml.Context) {
	t.Helper()

	b, err := ml.NewBackend(fs.KV{
		"general.architecture":    "linecnn-transformer",
		"image.height":            uint32(16),
		"image.width":             uint32(32),
		"output_length":           uint32(4),
		"transformer.dim":         uint32(8),
		"transformer.fc_dim":      uint32(8),
		"transformer.head_count":  uint32(2),
		"transformer.block_count": uint32(1),
		"linecnn.conv_dim":        uint32(2),
		"linecnn.fc_dim":          uint32(4),
		"vocabulary.tokens":       testTokens,
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := model.New(b)
	if err != nil {
		t.Fatal(err)
	}

	return m.(*Model), b.NewContext()
}

func TestEncodeShape(t *testing.T) {
	m, ctx := testModel(t)

	memory, err := m.Encode(ctx, ctx.Zeros(ml.DTypeF32, 32, 16, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	// two window positions for a 32px line, embedding dim 8
	if diff := cmp.Diff([]int{8, 2, 1}, memory.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeShape(t *testing.T) {
	m, ctx := testModel(t)

	memory, err := m.Encode(ctx, ctx.Zeros(ml.DTypeF32, 32, 16, 1, 2))
	if err != nil {
		t.Fatal(err)
	}

	tokens, err := ctx.FromIntSlice([]int32{m.vocab.Start, 4, m.vocab.Start, 5}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	logits, err := m.Decode(ctx, memory, tokens)
	if err != nil {
		t.Fatal(err)
	}

	// one logit vector per prefix position
	if diff := cmp.Diff([]int{len(testTokens), 2, 2}, logits.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsLongPrefix(t *testing.T) {
	m, ctx := testModel(t)

	memory, err := m.Encode(ctx, ctx.Zeros(ml.DTypeF32, 32, 16, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	tokens, err := ctx.FromIntSlice([]int32{1, 1, 1, 1, 1}, 5, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Decode(ctx, memory, tokens); err == nil {
		t.Error("expected error for prefix longer than the maximum output length")
	}
}

func TestForward(t *testing.T) {
	m, ctx := testModel(t)

	out, err := m.Forward(ctx, ctx.Zeros(ml.DTypeF32, 32, 16, 1, 2))
	if err != nil {
		t.Fatal(err)
	}

	// output is always the full maximum length
	if diff := cmp.Diff([]int{4, 2}, out.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if out.DType() != ml.DTypeI32 {
		t.Fatalf("expected i32 tokens, got %v", out.DType())
	}

	tokens := out.Ints()
	for b := range 2 {
		seq := tokens[b*4 : (b+1)*4]
		if seq[0] != m.vocab.Start {
			t.Errorf("batch %d starts with token %d, want start token %d", b, seq[0], m.vocab.Start)
		}

		for i, id := range seq {
			if id < 0 || int(id) >= len(testTokens) {
				t.Errorf("batch %d token %d out of range: %d", b, i, id)
			}

			// padding propagates once an end or padding token appears
			if i > 0 && (seq[i-1] == m.vocab.End || seq[i-1] == m.vocab.Padding) && id != m.vocab.Padding {
				t.Errorf("batch %d token %d = %d after end of sequence, want padding", b, i, id)
			}
		}
	}
}

func TestForwardDeterministic(t *testing.T) {
	m1, ctx1 := testModel(t)
	m2, ctx2 := testModel(t)

	out1, err := m1.Forward(ctx1, ctx1.Zeros(ml.DTypeF32, 32, 16, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	out2, err := m2.Forward(ctx2, ctx2.Zeros(ml.DTypeF32, 32, 16, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(out1.Ints(), out2.Ints()); diff != "" {
		t.Errorf("same seed produced different sequences (-first +second):\n%s", diff)
	}
}

func TestGenerateGreedyMatchesForward(t *testing.T) {
	m, ctx := testModel(t)

	images := ctx.Zeros(ml.DTypeF32, 32, 16, 1, 1)
	forward, err := m.Forward(ctx, images)
	if err != nil {
		t.Fatal(err)
	}
	generated, err := m.Generate(ctx, images, sample.Greedy())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(forward.Ints(), generated.Ints()); diff != "" {
		t.Errorf("greedy generate differs from forward (-want +got):\n%s", diff)
	}
}
