package convert

import (
	"fmt"
	"strings"

	"github.com/linerec/linerec/model"
)

// replacer maps checkpoint module paths to the parameter paths the
// models bind. The convolutional stack is flattened in checkpoints, so
// each sequential index names a block; two-digit indices come first so
// their single-digit prefixes cannot shadow them.
var replacer = strings.NewReplacer(
	"convs.13.", "head.bn.",
	"convs.12.", "head.conv.",
	"convs.10.", "res.4.",
	"convs.0.", "stem.conv.",
	"convs.1.", "stem.bn.",
	"convs.3.", "res.0.",
	"convs.4.", "res.1.",
	"convs.6.", "res.2.",
	"convs.8.", "res.3.",

	"transformer_decoder.layers.", "decoder.layers.",
	"multihead_attn.", "cross_attn.",
	"linear1.", "ffn.0.",
	"linear2.", "ffn.3.",
)

// buffers saved alongside the weights but rebuilt at construction time
var skipSuffixes = []string{
	"num_batches_tracked",
	"pos_encoder.pe",
	"y_mask",
}

// Convert reads the checkpoint in directory d and returns its tensors
// renamed for model.LoadTensors, with fused attention projections split
// into per-projection weights and training-only buffers dropped.
func Convert(d string) ([]model.TensorData, error) {
	ts, err := parseTensors(d)
	if err != nil {
		return nil, err
	}

	var out []model.TensorData
	for _, t := range ts {
		name := replacer.Replace(t.Name())
		if skip(name) {
			continue
		}

		shape := make([]int, len(t.Shape()))
		for i, dim := range t.Shape() {
			shape[i] = int(dim)
		}

		data, err := t.Floats()
		if err != nil {
			return nil, err
		}

		split, err := splitFused(name, shape, data)
		if err != nil {
			return nil, err
		}
		out = append(out, split...)
	}

	return out, nil
}

func skip(name string) bool {
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// splitFused breaks a fused in_proj weight or bias into its query, key
// and value thirds. Anything else passes through unchanged.
func splitFused(name string, shape []int, data []float32) ([]model.TensorData, error) {
	var kind string
	switch {
	case strings.HasSuffix(name, ".in_proj_weight"):
		kind = "weight"
	case strings.HasSuffix(name, ".in_proj_bias"):
		kind = "bias"
	default:
		return []model.TensorData{{Name: name, Shape: shape, Data: data}}, nil
	}

	if shape[0]%3 != 0 {
		return nil, fmt.Errorf("fused projection %q has %d rows, not divisible by 3", name, shape[0])
	}

	prefix := name[:strings.LastIndex(name, "in_proj_")]
	third := slicesProduct(shape) / 3

	out := make([]model.TensorData, 0, 3)
	for i, proj := range []string{"q", "k", "v"} {
		s := append([]int{shape[0] / 3}, shape[1:]...)
		out = append(out, model.TensorData{
			Name:  prefix + proj + "." + kind,
			Shape: s,
			Data:  data[i*third : (i+1)*third],
		})
	}

	return out, nil
}

func slicesProduct(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}
