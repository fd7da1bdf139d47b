package linecnn

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/linerec/linerec/fs"
	"github.com/linerec/linerec/ml"
)

func testBackend(t *testing.T, kv fs.KV) ml.Backend {
	t.Helper()

	config := fs.KV{
		"general.architecture": "linecnn",
		"image.height":         uint32(16),
		"image.width":          uint32(64),
		"output_length":        uint32(2),
		"linecnn.conv_dim":     uint32(2),
		"linecnn.fc_dim":       uint32(4),
	}
	for k, v := range kv {
		config[k] = v
	}

	b, err := ml.NewBackend(config)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSequenceLength(t *testing.T) {
	m, err := NewModel(testBackend(t, nil), 5)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[int]int{
		16:   1,
		64:   4,
		120:  7,
		1024: 64,
	}
	for width, want := range cases {
		if got := m.SequenceLength(width); got != want {
			t.Errorf("SequenceLength(%d) = %d, want %d", width, got, want)
		}
	}
}

func TestForwardShape(t *testing.T) {
	b := testBackend(t, nil)
	m, err := NewModel(b, 5)
	if err != nil {
		t.Fatal(err)
	}

	ctx := b.NewContext()
	images := ctx.Zeros(ml.DTypeF32, 64, 16, 1, 2)

	out, err := m.Forward(ctx, images)
	if err != nil {
		t.Fatal(err)
	}

	// one logit vector per window position, per batch element
	if diff := cmp.Diff([]int{5, 4, 2}, out.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}

func TestForwardLimitOutputLength(t *testing.T) {
	b := testBackend(t, fs.KV{"linecnn.limit_output_length": true})
	m, err := NewModel(b, 5)
	if err != nil {
		t.Fatal(err)
	}

	ctx := b.NewContext()
	images := ctx.Zeros(ml.DTypeF32, 64, 16, 1, 2)

	out, err := m.Forward(ctx, images)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{5, 2, 2}, out.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}

func TestForwardRejectsWrongSize(t *testing.T) {
	b := testBackend(t, nil)
	m, err := NewModel(b, 5)
	if err != nil {
		t.Fatal(err)
	}

	ctx := b.NewContext()
	if _, err := m.Forward(ctx, ctx.Zeros(ml.DTypeF32, 32, 16, 1, 1)); err == nil {
		t.Error("expected error for mismatched image width")
	}
}

func TestOptionsValidation(t *testing.T) {
	if _, err := NewModel(testBackend(t, fs.KV{"image.height": uint32(20)}), 5); err == nil {
		t.Error("expected error for height not divisible by the downsampling factor")
	}
}
