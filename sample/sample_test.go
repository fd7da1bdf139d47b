package sample

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGreedy(t *testing.T) {
	idx, err := Greedy().Sample([]float32{1, 5, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("Sample = %d, want 1", idx)
	}
}

func TestTemperature(t *testing.T) {
	got, err := Temperature(0.5).Apply([]float64{2, 0, 1})
	if err != nil {
		t.Fatal(err)
	}

	// max logit is pinned at zero, the rest scaled up
	want := []float64{0, -4, -2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("logits mismatch (-want +got):\n%s", diff)
	}

	if _, err := Temperature(0).Apply([]float64{1}); err == nil {
		t.Error("expected error for zero temperature")
	}
	if _, err := Temperature(3).Apply([]float64{1}); err == nil {
		t.Error("expected error for out of range temperature")
	}
}

func TestTopK(t *testing.T) {
	got, err := TopK(2).Apply([]float64{4, 1, 3, 2})
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{4, math.Inf(-1), 3, math.Inf(-1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("logits mismatch (-want +got):\n%s", diff)
	}

	// k at least the vocabulary size leaves logits untouched
	got, err = TopK(10).Apply([]float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("passthrough mismatch (-want +got):\n%s", diff)
	}

	if _, err := TopK(0).Apply([]float64{1}); err == nil {
		t.Error("expected error for k = 0")
	}
}

func TestTopP(t *testing.T) {
	got, err := TopP(0.9).Apply([]float64{10, 9, -10, -10})
	if err != nil {
		t.Fatal(err)
	}

	for _, i := range []int{2, 3} {
		if !math.IsInf(got[i], -1) {
			t.Errorf("logit %d = %v, want -inf", i, got[i])
		}
	}
	for _, i := range []int{0, 1} {
		if math.IsInf(got[i], -1) {
			t.Errorf("logit %d dropped, want kept", i)
		}
	}
}

func TestMinP(t *testing.T) {
	got, err := MinP(0.2).Apply([]float64{10, 9, -10, -10})
	if err != nil {
		t.Fatal(err)
	}

	for _, i := range []int{2, 3} {
		if !math.IsInf(got[i], -1) {
			t.Errorf("logit %d = %v, want -inf", i, got[i])
		}
	}
	for _, i := range []int{0, 1} {
		if math.IsInf(got[i], -1) {
			t.Errorf("logit %d dropped, want kept", i)
		}
	}

	if _, err := MinP(0).Apply([]float64{1}); err == nil {
		t.Error("expected error for p = 0")
	}
}

func TestWeighted(t *testing.T) {
	// only one valid logit leaves no choice
	idx, err := Weighted(nil).Sample([]float32{float32(math.Inf(-1)), 2, float32(math.Inf(-1))})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("Sample = %d, want 1", idx)
	}

	if _, err := Weighted(nil).Sample([]float32{float32(math.Inf(-1)), float32(math.Inf(-1))}); err == nil {
		t.Error("expected error when every logit is masked")
	}
}

func TestWeightedSeeded(t *testing.T) {
	logits := []float32{1, 2, 3, 4}

	seed := int64(42)
	first, err := Weighted(&seed).Sample(logits)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Weighted(&seed).Sample(logits)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("same seed sampled %d then %d", first, second)
	}
}
