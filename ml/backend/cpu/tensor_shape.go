package cpu

import (
	"fmt"

	"github.com/linerec/linerec/ml"
)

func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	if mul(shape...) != t.numel() {
		panic(fmt.Sprintf("cpu: cannot reshape %v to %v", t.Shape(), shape))
	}

	src := t.materialize()
	out := newTensor(t.dtype, shape...)
	copy(out.data, src.data[src.offset:])
	copy(out.idata, src.idata[src.offset:])
	return out
}

// View reinterprets a contiguous region of the receiver's storage,
// starting offset elements in. The view shares storage with t.
func (t *Tensor) View(ctx ml.Context, offset int, shape ...int) ml.Tensor {
	if !t.contiguous() {
		panic("cpu: view of non-contiguous tensor")
	}
	if offset+mul(shape...) > t.numel() {
		panic(fmt.Sprintf("cpu: view %v at offset %d exceeds storage of %v", shape, offset, t.Shape()))
	}

	out := &Tensor{dtype: t.dtype, dims: len(shape), offset: t.offset + offset, data: t.data, idata: t.idata}
	for i := range maxDims {
		out.shape[i] = 1
	}
	for i, d := range shape {
		out.shape[i] = d
	}
	out.stride[0] = 1
	for i := 1; i < maxDims; i++ {
		out.stride[i] = out.stride[i-1] * out.shape[i-1]
	}
	return out
}

// Permute moves dimension i of the receiver to position order[i],
// returning a view.
func (t *Tensor) Permute(ctx ml.Context, order ...int) ml.Tensor {
	if len(order) != maxDims {
		panic("cpu: permute requires all four axes")
	}

	out := &Tensor{dtype: t.dtype, dims: t.dims, offset: t.offset, data: t.data, idata: t.idata}
	seen := 0
	for i, o := range order {
		out.shape[o] = t.shape[i]
		out.stride[o] = t.stride[i]
		seen |= 1 << o
	}
	if seen != 1<<maxDims-1 {
		panic(fmt.Sprintf("cpu: invalid permutation %v", order))
	}

	out.dims = maxDims
	for out.dims > 1 && out.shape[out.dims-1] == 1 {
		out.dims--
	}
	return out
}

func (t *Tensor) Contiguous(ctx ml.Context) ml.Tensor {
	out := newTensor(t.dtype, t.Shape()...)
	switch t.dtype {
	case ml.DTypeF32:
		copy(out.data, t.Floats())
	case ml.DTypeI32:
		copy(out.idata, t.Ints())
	}
	return out
}

// Concat joins t and t2 along dim; all other dimensions must match.
func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	u := t2.(*Tensor)
	for i := range maxDims {
		if i != dim && t.shape[i] != u.shape[i] {
			panic(fmt.Sprintf("cpu: cannot concat %v and %v along %d", t.Shape(), u.Shape(), dim))
		}
	}

	shape := make([]int, max(t.dims, u.dims, dim+1))
	for i := range shape {
		shape[i] = t.shape[i]
	}
	shape[dim] = t.shape[dim] + u.shape[dim]

	out := newTensor(t.dtype, shape...)
	for i3 := range out.shape[3] {
		for i2 := range out.shape[2] {
			for i1 := range out.shape[1] {
				for i0 := range out.shape[0] {
					i := [maxDims]int{i0, i1, i2, i3}
					src := t
					if i[dim] >= t.shape[dim] {
						i[dim] -= t.shape[dim]
						src = u
					}
					out.set(i0, i1, i2, i3, src.at(i[0], i[1], i[2], i[3]))
				}
			}
		}
	}
	return out
}

// Copy writes the receiver's elements into t2, which must hold the same
// number of elements, and returns t2.
func (t *Tensor) Copy(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	u := t2.(*Tensor)
	if t.numel() != u.numel() {
		panic(fmt.Sprintf("cpu: cannot copy %v into %v", t.Shape(), u.Shape()))
	}
	if !u.contiguous() {
		panic("cpu: copy into non-contiguous tensor")
	}

	switch t.dtype {
	case ml.DTypeF32:
		copy(u.data[u.offset:], t.Floats())
	case ml.DTypeI32:
		copy(u.idata[u.offset:], t.Ints())
	}
	return u
}
