// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense arrays used by
// femtograd graphs.
//
// Example:
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	y, _ := tensor.MatMul(x, x)
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/tensor"
)

// DType is a constraint for tensor element types.
type DType = tensor.DType

// Float is the constraint for element types with arithmetic kernels.
type Float = tensor.Float

// DataType represents the runtime element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Int     DataType = tensor.Int
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Tensor is a dense row-major array.
type Tensor[T DType] = tensor.Tensor[T]

// Errors returned by tensor functions.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrInvalidBroadcast = tensor.ErrInvalidBroadcast
	ErrIndexOutOfRange  = tensor.ErrIndexOutOfRange
	ErrInvalidShape     = tensor.ErrInvalidShape
)

// FromSlice creates a tensor from a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a zero-filled tensor.
func Zeros[T DType](shape Shape) (*Tensor[T], error) {
	return tensor.Zeros[T](shape)
}

// Full creates a tensor with every element set to value.
func Full[T DType](shape Shape, value T) (*Tensor[T], error) {
	return tensor.Full(shape, value)
}

// Scalar creates a rank-0 tensor.
func Scalar[T DType](value T) *Tensor[T] {
	return tensor.Scalar(value)
}

// Rand creates a float32 tensor uniformly distributed in [-1, 1).
func Rand(rng *rand.Rand, shape Shape) (*Tensor[float32], error) {
	return tensor.Rand(rng, shape)
}

// Add, Sub, Mul and Div broadcast their operands.

// Add returns a + b.
func Add[T Float](a, b *Tensor[T]) (*Tensor[T], error) { return tensor.Add(a, b) }

// Sub returns a - b.
func Sub[T Float](a, b *Tensor[T]) (*Tensor[T], error) { return tensor.Sub(a, b) }

// Mul returns a * b.
func Mul[T Float](a, b *Tensor[T]) (*Tensor[T], error) { return tensor.Mul(a, b) }

// Div returns a / b.
func Div[T Float](a, b *Tensor[T]) (*Tensor[T], error) { return tensor.Div(a, b) }

// MatMul multiplies the last two dimensions, batching over the rest.
func MatMul(a, b *Tensor[float32]) (*Tensor[float32], error) {
	return tensor.MatMul(a, b)
}
