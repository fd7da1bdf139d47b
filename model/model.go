package model

import (
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/linerec/linerec/logutil"
	"github.com/linerec/linerec/ml"
	_ "github.com/linerec/linerec/ml/backend"
)

// Model implements a specific architecture: the forward pass plus any
// model-specific configuration. Forward takes a batch of preprocessed
// line images and returns the model's output tensor.
type Model interface {
	Forward(ml.Context, ml.Tensor) (ml.Tensor, error)

	Backend() ml.Backend
}

// Base implements the common fields and methods for all models
type Base struct {
	b ml.Backend
}

func NewBase(b ml.Backend) Base {
	return Base{b: b}
}

// Backend returns the underlying backend that will run the model
func (m *Base) Backend() ml.Backend {
	return m.b
}

var models = make(map[string]func(ml.Backend) (Model, error))

// Register registers a model constructor for the given architecture
func Register(name string, f func(ml.Backend) (Model, error)) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// New builds a freshly initialized model of the architecture named in
// the backend's configuration.
func New(b ml.Backend) (Model, error) {
	arch := b.Config().Architecture()
	f, ok := models[arch]
	if !ok {
		return nil, fmt.Errorf("unsupported model architecture %q", arch)
	}

	return f(b)
}

// TensorData is a named weight loaded from an external checkpoint.
// Shape follows the checkpoint's outermost-first convention.
type TensorData struct {
	Name  string
	Shape []int
	Data  []float32
}

// LoadTensors walks m's modules and replaces the contents of every
// tensor field whose gguf tag path names an entry in ts. Entries that
// match no field are an error: they usually indicate a name mapping
// bug, not a harmless extra.
func LoadTensors(ctx ml.Context, m Model, ts []TensorData) error {
	byName := make(map[string]TensorData, len(ts))
	for _, t := range ts {
		byName[t.Name] = t
	}

	used := make(map[string]bool, len(ts))
	if err := loadFields(ctx, reflect.ValueOf(m).Elem(), byName, used); err != nil {
		return err
	}

	var unused []string
	for name := range byName {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		slices.Sort(unused)
		return fmt.Errorf("checkpoint tensors not used by model: %s", strings.Join(unused, ", "))
	}

	return nil
}

func loadFields(ctx ml.Context, v reflect.Value, byName map[string]TensorData, used map[string]bool, path ...string) error {
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return nil
	}

	for i := range t.NumField() {
		tt := t.Field(i).Type
		vv := v.Field(i)
		if !vv.CanSet() {
			continue
		}

		fieldPath := path
		if tag := t.Field(i).Tag.Get("gguf"); tag != "" {
			fieldPath = append(slices.Clone(path), tag)
		}

		switch {
		case tt == reflect.TypeOf((*ml.Tensor)(nil)).Elem():
			name := strings.Join(fieldPath, ".")
			td, ok := byName[name]
			if !ok {
				continue
			}

			if vv.IsNil() {
				return fmt.Errorf("checkpoint tensor %q has no allocated destination", name)
			}

			dst := vv.Interface().(ml.Tensor)
			if err := checkShape(name, td, dst); err != nil {
				return err
			}

			loaded, err := ctx.FromFloatSlice(td.Data, dst.Shape()...)
			if err != nil {
				return err
			}

			slog.Debug("loaded tensor", "name", name, "shape", td.Shape)
			logutil.Trace("loaded tensor data", "name", name, "data", ml.Dump(loaded))
			vv.Set(reflect.ValueOf(loaded))
			used[name] = true
		case tt.Kind() == reflect.Pointer:
			if !vv.IsNil() {
				if err := loadFields(ctx, vv.Elem(), byName, used, fieldPath...); err != nil {
					return err
				}
			}
		case tt.Kind() == reflect.Struct:
			if err := loadFields(ctx, vv, byName, used, fieldPath...); err != nil {
				return err
			}
		case tt.Kind() == reflect.Slice:
			for j := range vv.Len() {
				vvv := vv.Index(j)
				indexed := append(slices.Clone(fieldPath), strconv.Itoa(j))
				if vvv.Kind() == reflect.Pointer {
					if vvv.IsNil() {
						continue
					}
					vvv = vvv.Elem()
				}
				if vvv.Kind() == reflect.Struct {
					if err := loadFields(ctx, vvv, byName, used, indexed...); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

// NumParameters reports the total element count across m's bound
// tensors.
func NumParameters(m Model) int64 {
	var n int64
	countTensors(reflect.ValueOf(m).Elem(), &n)
	return n
}

func countTensors(v reflect.Value, n *int64) {
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return
	}

	for i := range t.NumField() {
		vv := v.Field(i)
		if !vv.CanSet() {
			continue
		}

		switch {
		case vv.Type() == reflect.TypeOf((*ml.Tensor)(nil)).Elem():
			if !vv.IsNil() {
				nn := int64(1)
				for _, dim := range vv.Interface().(ml.Tensor).Shape() {
					nn *= int64(dim)
				}
				*n += nn
			}
		case vv.Kind() == reflect.Pointer:
			if !vv.IsNil() {
				countTensors(vv.Elem(), n)
			}
		case vv.Kind() == reflect.Struct:
			countTensors(vv, n)
		case vv.Kind() == reflect.Slice:
			for j := range vv.Len() {
				vvv := vv.Index(j)
				if vvv.Kind() == reflect.Pointer {
					if vvv.IsNil() {
						continue
					}
					vvv = vvv.Elem()
				}
				if vvv.Kind() == reflect.Struct {
					countTensors(vvv, n)
				}
			}
		}
	}
}

// checkShape verifies a checkpoint tensor fits its destination.
// Checkpoint shapes are outermost-first, destination shapes innermost
// first, so the comparison reverses.
func checkShape(name string, td TensorData, dst ml.Tensor) error {
	if len(td.Data) == 0 {
		return fmt.Errorf("checkpoint tensor %q has no data", name)
	}

	want := dst.Shape()
	got := slices.Clone(td.Shape)
	slices.Reverse(got)

	for len(got) < len(want) {
		got = append(got, 1)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("checkpoint tensor %q has shape %v, model expects %v", name, td.Shape, want)
	}

	n := 1
	for _, d := range td.Shape {
		n *= d
	}
	if n != len(td.Data) {
		return fmt.Errorf("checkpoint tensor %q has %d elements for shape %v", name, len(td.Data), td.Shape)
	}

	return nil
}
