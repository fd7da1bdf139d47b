package convert

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
)

func parseTorch(ps ...string) ([]Tensor, error) {
	var ts []Tensor
	for _, p := range ps {
		pt, err := pytorch.Load(p)
		if err != nil {
			return nil, err
		}

		sd := map[string]*pytorch.Tensor{}
		if err := flattenStateDict(pt, sd); err != nil {
			return nil, err
		}

		for k, t := range sd {
			var shape []uint64
			for _, dim := range t.Size {
				shape = append(shape, uint64(dim))
			}

			ts = append(ts, torch{
				tensor: t,
				tensorBase: &tensorBase{
					name:  k,
					shape: shape,
				},
			})
		}
	}

	return ts, nil
}

// flattenStateDict collects the tensors of a pickled state dict into m,
// unwrapping the checkpoint containers training frameworks nest the
// weights in.
func flattenStateDict(v any, m map[string]*pytorch.Tensor) error {
	set := func(k, vv any) error {
		name, ok := k.(string)
		if !ok {
			return nil
		}

		switch t := vv.(type) {
		case *pytorch.Tensor:
			m[name] = t
		case *types.Dict, *types.OrderedDict:
			if name == "state_dict" || name == "model_state_dict" {
				return flattenStateDict(t, m)
			}
		}
		return nil
	}

	switch d := v.(type) {
	case *types.Dict:
		for _, k := range d.Keys() {
			if err := set(k, d.MustGet(k)); err != nil {
				return err
			}
		}
	case *types.OrderedDict:
		for k, e := range d.Map {
			if err := set(k, e.Value); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unexpected checkpoint container: %T", v)
	}

	return nil
}

type torch struct {
	tensor *pytorch.Tensor
	*tensorBase
}

func (pt torch) Floats() ([]float32, error) {
	var f32s []float32
	switch s := pt.tensor.Source.(type) {
	case *pytorch.FloatStorage:
		f32s = s.Data
	case *pytorch.HalfStorage:
		f32s = s.Data
	case *pytorch.BFloat16Storage:
		f32s = s.Data
	case *pytorch.DoubleStorage:
		f32s = make([]float32, len(s.Data))
		for i, v := range s.Data {
			f32s[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unknown data type: %T", s)
	}

	n := 1
	for _, dim := range pt.tensor.Size {
		n *= dim
	}

	offset := pt.tensor.StorageOffset
	if offset+n > len(f32s) {
		return nil, fmt.Errorf("tensor %q overruns its storage", pt.name)
	}

	return f32s[offset : offset+n], nil
}
