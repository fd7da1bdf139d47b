package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerec/linerec/model"
)

func TestReplacer(t *testing.T) {
	cases := map[string]string{
		"convs.0.weight":           "stem.conv.weight",
		"convs.1.running_mean":     "stem.bn.running_mean",
		"convs.3.conv1.weight":     "res.0.conv1.weight",
		"convs.4.skip.0.weight":    "res.1.skip.0.weight",
		"convs.6.bn2.bias":         "res.2.bn2.bias",
		"convs.8.conv2.weight":     "res.3.conv2.weight",
		"convs.10.bn1.running_var": "res.4.bn1.running_var",
		"convs.12.weight":          "head.conv.weight",
		"convs.13.bias":            "head.bn.bias",
		"fc1.weight":               "fc1.weight",

		"line_cnn.convs.12.weight": "line_cnn.head.conv.weight",
		"line_cnn.fc2.bias":        "line_cnn.fc2.bias",
		"embedding.weight":         "embedding.weight",

		"transformer_decoder.layers.0.self_attn.out_proj.weight": "decoder.layers.0.self_attn.out_proj.weight",
		"transformer_decoder.layers.1.multihead_attn.in_proj_bias": "decoder.layers.1.cross_attn.in_proj_bias",
		"transformer_decoder.layers.2.linear1.weight":              "decoder.layers.2.ffn.0.weight",
		"transformer_decoder.layers.3.linear2.bias":                "decoder.layers.3.ffn.3.bias",
		"transformer_decoder.layers.0.norm3.weight":                "decoder.layers.0.norm3.weight",
	}

	for name, want := range cases {
		if got := replacer.Replace(name); got != want {
			t.Errorf("Replace(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSkip(t *testing.T) {
	for _, name := range []string{
		"stem.bn.num_batches_tracked",
		"pos_encoder.pe",
		"y_mask",
	} {
		assert.True(t, skip(name), name)
	}

	assert.False(t, skip("stem.conv.weight"))
	assert.False(t, skip("decoder.layers.0.norm1.weight"))
}

func TestSplitFusedWeight(t *testing.T) {
	data := make([]float32, 12)
	for i := range data {
		data[i] = float32(i)
	}

	out, err := splitFused("decoder.layers.0.self_attn.in_proj_weight", []int{6, 2}, data)
	require.NoError(t, err)
	require.Len(t, out, 3)

	want := []model.TensorData{
		{Name: "decoder.layers.0.self_attn.q.weight", Shape: []int{2, 2}, Data: []float32{0, 1, 2, 3}},
		{Name: "decoder.layers.0.self_attn.k.weight", Shape: []int{2, 2}, Data: []float32{4, 5, 6, 7}},
		{Name: "decoder.layers.0.self_attn.v.weight", Shape: []int{2, 2}, Data: []float32{8, 9, 10, 11}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitFusedBias(t *testing.T) {
	out, err := splitFused("decoder.layers.0.cross_attn.in_proj_bias", []int{6}, []float32{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "decoder.layers.0.cross_attn.q.bias", out[0].Name)
	assert.Equal(t, []int{2}, out[0].Shape)
	assert.Equal(t, []float32{4, 5}, out[2].Data)
}

func TestSplitFusedPassthrough(t *testing.T) {
	out, err := splitFused("fc1.weight", []int{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "fc1.weight", out[0].Name)
}

func TestSplitFusedInvalid(t *testing.T) {
	_, err := splitFused("x.in_proj_weight", []int{5, 2}, make([]float32, 10))
	assert.Error(t, err)
}
