// Package convert reads externally trained checkpoints and renames
// their tensors to the parameter paths the models bind.
package convert

import (
	"errors"
	"path/filepath"
)

// Tensor is a named weight read from a checkpoint file. Shape follows
// the checkpoint's outermost-first convention.
type Tensor interface {
	Name() string
	Shape() []uint64
	Floats() ([]float32, error)
}

type tensorBase struct {
	name  string
	shape []uint64
}

func (t tensorBase) Name() string {
	return t.name
}

func (t tensorBase) Shape() []uint64 {
	return t.shape
}

func parseTensors(d string) ([]Tensor, error) {
	patterns := map[string]func(...string) ([]Tensor, error){
		"*.safetensors": parseSafetensors,
		"*.pt":          parseTorch,
		"*.pth":         parseTorch,
		"*.bin":         parseTorch,
	}

	for pattern, parseFn := range patterns {
		matches, err := filepath.Glob(filepath.Join(d, pattern))
		if err != nil {
			return nil, err
		}

		if len(matches) > 0 {
			return parseFn(matches...)
		}
	}

	return nil, errors.New("unknown checkpoint format")
}
