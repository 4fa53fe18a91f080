package tensor

import (
	"fmt"
	"math/rand/v2"
)

// Tensor is a dense, row-major N-dimensional array of T.
//
// A rank-0 tensor (empty shape) holds exactly one element. Views returned by
// Reshape, KeepRight and Slices share storage with their parent; everything
// else returns fresh storage.
//
// Example:
//
//	t, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	row, _ := t.Index(1) // [3 4]
type Tensor[T DType] struct {
	shape Shape
	data  []T
}

// New wraps data without copying it. len(data) must equal shape.NumElements().
func New[T DType](shape Shape, data []T) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, but got %d",
			ErrBufferLength, shape, shape.NumElements(), len(data))
	}
	return &Tensor[T]{shape: shape.Clone(), data: data}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	buf := make([]T, len(data))
	copy(buf, data)
	return New(shape, buf)
}

// Zeros creates a zero-filled tensor.
func Zeros[T DType](shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor[T]{shape: shape.Clone(), data: make([]T, shape.NumElements())}, nil
}

// Full creates a tensor with every element set to value.
func Full[T DType](shape Shape, value T) (*Tensor[T], error) {
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	t.Fill(value)
	return t, nil
}

// ZerosLike returns a zero tensor with the same shape as t.
func ZerosLike[T DType](t *Tensor[T]) *Tensor[T] {
	return &Tensor[T]{shape: t.shape.Clone(), data: make([]T, len(t.data))}
}

// Scalar creates a rank-0 tensor.
func Scalar[T DType](value T) *Tensor[T] {
	return &Tensor[T]{shape: Shape{}, data: []T{value}}
}

// Rand creates a float32 tensor with values drawn uniformly from [-1, 1).
func Rand(rng *rand.Rand, shape Shape) (*Tensor[float32], error) {
	t, err := Zeros[float32](shape)
	if err != nil {
		return nil, err
	}
	for i := range t.data {
		t.data[i] = rng.Float32()*2 - 1
	}
	return t, nil
}

// Shape returns the tensor's shape. Callers must not modify it.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int {
	return len(t.shape)
}

// DType returns the tensor's data type.
func (t *Tensor[T]) DType() DataType {
	return inferDataType[T]()
}

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// Item returns the single element of a one-element tensor.
func (t *Tensor[T]) Item() (T, error) {
	if len(t.data) != 1 {
		var zero T
		return zero, fmt.Errorf("%w: Item on tensor of shape %v", ErrIndexOutOfRange, t.shape)
	}
	return t.data[0], nil
}

// At returns the element at the given indices.
func (t *Tensor[T]) At(indices ...int) (T, error) {
	offset, err := t.offset(indices)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.data[offset], nil
}

// Set sets the element at the given indices.
func (t *Tensor[T]) Set(value T, indices ...int) error {
	offset, err := t.offset(indices)
	if err != nil {
		return err
	}
	t.data[offset] = value
	return nil
}

func (t *Tensor[T]) offset(indices []int) (int, error) {
	if len(indices) != len(t.shape) {
		return 0, fmt.Errorf("%w: expected %d indices, got %d", ErrIndexOutOfRange, len(t.shape), len(indices))
	}
	offset := 0
	strides := t.shape.ComputeStrides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			return 0, fmt.Errorf("%w: index %d for dimension %d (size %d)", ErrIndexOutOfRange, idx, i, t.shape[i])
		}
		offset += idx * strides[i]
	}
	return offset, nil
}

// Fill sets every element to value.
func (t *Tensor[T]) Fill(value T) {
	for i := range t.data {
		t.data[i] = value
	}
}

// CopyFrom overwrites t's elements with src's. Shapes must match.
func (t *Tensor[T]) CopyFrom(src *Tensor[T]) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("%w: copy %v into %v", ErrShapeMismatch, src.shape, t.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Clone creates a deep copy of the tensor.
func (t *Tensor[T]) Clone() *Tensor[T] {
	data := make([]T, len(t.data))
	copy(data, t.data)
	return &Tensor[T]{shape: t.shape.Clone(), data: data}
}

// Equal reports whether both tensors have the same shape and elements.
func (t *Tensor[T]) Equal(other *Tensor[T]) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Reshape returns a view with a new shape over the same storage.
func (t *Tensor[T]) Reshape(shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShapeMismatch, t.shape, shape)
	}
	return &Tensor[T]{shape: shape.Clone(), data: t.data}, nil
}

// KeepRight returns a view that keeps the last n dimensions and folds all
// leading dimensions into one, giving a tensor of rank n+1.
//
// Example: shape [2, 3, 4, 5] with n = 2 becomes [6, 4, 5].
func (t *Tensor[T]) KeepRight(n int) (*Tensor[T], error) {
	if n < 0 || n > len(t.shape) {
		return nil, fmt.Errorf("%w: keep %d of %d dimensions", ErrIndexOutOfRange, n, len(t.shape))
	}
	right := t.shape[len(t.shape)-n:]
	shape := append(Shape{t.shape[:len(t.shape)-n].NumElements()}, right...)
	return &Tensor[T]{shape: shape, data: t.data}, nil
}

// Slices returns views of every sub-tensor along the first dimension.
func (t *Tensor[T]) Slices() ([]*Tensor[T], error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("%w: cannot slice a scalar", ErrIndexOutOfRange)
	}
	inner := t.shape[1:].Clone()
	size := inner.NumElements()
	out := make([]*Tensor[T], t.shape[0])
	for i := range out {
		out[i] = &Tensor[T]{shape: inner, data: t.data[i*size : (i+1)*size]}
	}
	return out, nil
}

// Index returns a copy of the i-th sub-tensor along the first dimension.
func (t *Tensor[T]) Index(i int) (*Tensor[T], error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("%w: cannot index a scalar", ErrIndexOutOfRange)
	}
	if i < 0 || i >= t.shape[0] {
		return nil, fmt.Errorf("%w: index %d for dimension 0 (size %d)", ErrIndexOutOfRange, i, t.shape[0])
	}
	inner := t.shape[1:]
	size := inner.NumElements()
	data := make([]T, size)
	copy(data, t.data[i*size:(i+1)*size])
	return &Tensor[T]{shape: inner.Clone(), data: data}, nil
}

// Map applies f to every element and returns a new tensor.
func (t *Tensor[T]) Map(f func(T) T) *Tensor[T] {
	out := ZerosLike(t)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%v", t.DType(), t.shape)
}
