package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/linerec/linerec/fs"
	"github.com/linerec/linerec/ml"
)

type testLayer struct {
	Norm ml.Tensor `gguf:"norm"`
}

type testModule struct {
	Base

	Weight ml.Tensor    `gguf:"weight"`
	Layers []*testLayer `gguf:"layers"`
}

func (m *testModule) Forward(ctx ml.Context, t ml.Tensor) (ml.Tensor, error) {
	return t, nil
}

func newTestModule(t *testing.T) (*testModule, ml.Context) {
	t.Helper()

	b, err := ml.NewBackend(fs.KV{})
	if err != nil {
		t.Fatal(err)
	}

	ctx := b.NewContext()
	return &testModule{
		Base:   NewBase(b),
		Weight: ctx.Zeros(ml.DTypeF32, 2, 3),
		Layers: []*testLayer{
			{Norm: ctx.Zeros(ml.DTypeF32, 2)},
		},
	}, ctx
}

func TestLoadTensors(t *testing.T) {
	m, ctx := newTestModule(t)

	// checkpoint shapes are outermost-first
	err := LoadTensors(ctx, m, []TensorData{
		{Name: "weight", Shape: []int{3, 2}, Data: []float32{1, 2, 3, 4, 5, 6}},
		{Name: "layers.0.norm", Shape: []int{2}, Data: []float32{7, 8}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, m.Weight.Floats()); diff != "" {
		t.Errorf("weight mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{7, 8}, m.Layers[0].Norm.Floats()); diff != "" {
		t.Errorf("layer norm mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTensorsUnused(t *testing.T) {
	m, ctx := newTestModule(t)

	err := LoadTensors(ctx, m, []TensorData{
		{Name: "no.such.tensor", Shape: []int{1}, Data: []float32{1}},
	})
	if err == nil || !strings.Contains(err.Error(), "no.such.tensor") {
		t.Errorf("expected unused tensor error naming the tensor, got %v", err)
	}
}

func TestLoadTensorsShapeMismatch(t *testing.T) {
	m, ctx := newTestModule(t)

	err := LoadTensors(ctx, m, []TensorData{
		{Name: "weight", Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}},
	})
	if err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestNumParameters(t *testing.T) {
	m, _ := newTestModule(t)

	if got := NumParameters(m); got != 8 {
		t.Errorf("NumParameters = %d, want 8", got)
	}
}
