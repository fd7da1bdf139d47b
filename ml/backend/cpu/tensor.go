package cpu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/linerec/linerec/ml"
)

const maxDims = 4

// Tensor is a strided view over flat storage. Dimension 0 is the
// innermost (fastest varying) dimension. Permute produces views sharing
// storage; Contiguous materializes a view back into packed storage.
type Tensor struct {
	dtype  ml.DType
	dims   int
	shape  [maxDims]int
	stride [maxDims]int
	offset int

	data  []float32
	idata []int32
}

func newTensor(dtype ml.DType, shape ...int) *Tensor {
	if len(shape) == 0 || len(shape) > maxDims {
		panic(fmt.Sprintf("cpu: invalid tensor rank %d", len(shape)))
	}

	t := &Tensor{dtype: dtype, dims: len(shape)}
	for i := range maxDims {
		t.shape[i] = 1
	}
	for i, d := range shape {
		if d < 1 {
			panic(fmt.Sprintf("cpu: invalid dimension %d in shape %v", d, shape))
		}
		t.shape[i] = d
	}
	t.stride[0] = 1
	for i := 1; i < maxDims; i++ {
		t.stride[i] = t.stride[i-1] * t.shape[i-1]
	}

	n := t.shape[0] * t.shape[1] * t.shape[2] * t.shape[3]
	switch dtype {
	case ml.DTypeF32:
		t.data = make([]float32, n)
	case ml.DTypeI32:
		t.idata = make([]int32, n)
	default:
		panic("cpu: unsupported dtype")
	}

	return t
}

func (t *Tensor) Dim(n int) int {
	return t.shape[n]
}

func (t *Tensor) Shape() []int {
	return t.shape[:t.dims]
}

func (t *Tensor) DType() ml.DType {
	return t.dtype
}

func (t *Tensor) numel() int {
	return t.shape[0] * t.shape[1] * t.shape[2] * t.shape[3]
}

func (t *Tensor) index(i0, i1, i2, i3 int) int {
	return t.offset + i0*t.stride[0] + i1*t.stride[1] + i2*t.stride[2] + i3*t.stride[3]
}

func (t *Tensor) at(i0, i1, i2, i3 int) float32 {
	return t.data[t.index(i0, i1, i2, i3)]
}

func (t *Tensor) set(i0, i1, i2, i3 int, v float32) {
	t.data[t.index(i0, i1, i2, i3)] = v
}

// contiguous reports whether the tensor's elements are packed in
// logical order (an offset into shared storage is still allowed).
func (t *Tensor) contiguous() bool {
	if t.stride[0] != 1 {
		return false
	}
	for i := 1; i < maxDims; i++ {
		if t.stride[i] != t.stride[i-1]*t.shape[i-1] {
			return false
		}
	}
	return true
}

// Floats returns the tensor's elements in logical order.
func (t *Tensor) Floats() []float32 {
	if t.dtype != ml.DTypeF32 {
		panic("cpu: Floats on non-f32 tensor")
	}

	out := make([]float32, 0, t.numel())
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				for i0 := range t.shape[0] {
					out = append(out, t.at(i0, i1, i2, i3))
				}
			}
		}
	}
	return out
}

func (t *Tensor) Ints() []int32 {
	if t.dtype != ml.DTypeI32 {
		panic("cpu: Ints on non-i32 tensor")
	}

	out := make([]int32, 0, t.numel())
	for i3 := range t.shape[3] {
		for i2 := range t.shape[2] {
			for i1 := range t.shape[1] {
				for i0 := range t.shape[0] {
					out = append(out, t.idata[t.index(i0, i1, i2, i3)])
				}
			}
		}
	}
	return out
}

func (t *Tensor) Bytes() []byte {
	var b bytes.Buffer
	switch t.dtype {
	case ml.DTypeF32:
		binary.Write(&b, binary.LittleEndian, t.Floats())
	case ml.DTypeI32:
		binary.Write(&b, binary.LittleEndian, t.Ints())
	default:
		return nil
	}
	return b.Bytes()
}

func mul(s ...int) int {
	p := 1
	for _, d := range s {
		p *= d
	}
	return p
}
