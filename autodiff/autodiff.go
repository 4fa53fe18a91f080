// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides a define-by-run computation graph with
// reverse-mode gradients.
//
// Tensors live in an append-only arena addressed by TensorID. Calling an
// operation evaluates it immediately and records it; Forward replays every
// record after inputs change, and BackwardAll propagates the gradient of a
// loss from an output back to every tensor that influenced it.
//
// Example:
//
//	g := autodiff.New()
//	a := g.Alloc(x, "a")
//	b := g.Alloc(y, "b")
//	c, _ := g.Call(autodiff.NewMulOp(), a, b)
//	_, _ = g.BackwardAll(c, nn.Identity{}, autodiff.NoLimit)
//	grad, _ := g.GetGrad(a) // equals y
package autodiff

import (
	"log/slog"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Graph is the computation graph.
type Graph = autodiff.Graph

// TensorID addresses a slot in a Graph.
type TensorID = autodiff.TensorID

// IDSet is a set of tensor ids.
type IDSet = autodiff.IDSet

// Loss maps an output tensor to per-element losses and their gradient.
type Loss = autodiff.Loss

// Optimizer updates parameters from gradients.
type Optimizer = autodiff.Optimizer

// Option configures a Graph.
type Option = autodiff.Option

// Operation is a differentiable function of tensors.
type Operation = ops.Operation

// NoLimit visits every record in BackwardAll.
const NoLimit = autodiff.NoLimit

// Errors returned by graph methods.
var (
	ErrTensorNotFound   = autodiff.ErrTensorNotFound
	ErrArity            = ops.ErrArity
	ErrGradientMismatch = ops.ErrGradientMismatch
)

// New creates an empty graph.
func New(opts ...Option) *Graph { return autodiff.New(opts...) }

// WithLogger sets the graph's logger.
func WithLogger(logger *slog.Logger) Option { return autodiff.WithLogger(logger) }

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...TensorID) IDSet { return autodiff.NewIDSet(ids...) }

// NewAddOp returns a + b with broadcasting.
func NewAddOp() Operation { return ops.NewAddOp() }

// NewSubOp returns a - b with broadcasting.
func NewSubOp() Operation { return ops.NewSubOp() }

// NewMulOp returns a * b with broadcasting.
func NewMulOp() Operation { return ops.NewMulOp() }

// NewDivOp returns a / b with broadcasting.
func NewDivOp() Operation { return ops.NewDivOp() }

// NewCoeffOp scales its input by c.
func NewCoeffOp(c float32) Operation { return ops.NewCoeffOp(c) }

// NewMatMulOp multiplies the last two dimensions.
func NewMatMulOp() Operation { return ops.NewMatMulOp() }

// NewReLUOp returns max(x, 0).
func NewReLUOp() Operation { return ops.NewReLUOp() }

// NewSigmoidOp returns 1 / (1 + exp(-x)).
func NewSigmoidOp() Operation { return ops.NewSigmoidOp() }

// NewTanhOp returns tanh(x).
func NewTanhOp() Operation { return ops.NewTanhOp() }

// NewExpOp returns exp(x).
func NewExpOp() Operation { return ops.NewExpOp() }

// NewLogOp returns the natural logarithm.
func NewLogOp() Operation { return ops.NewLogOp() }

// NewSoftmaxOp normalizes the last axis.
func NewSoftmaxOp() Operation { return ops.NewSoftmaxOp() }

// NewMaskOp replaces positions where mask is true with value.
func NewMaskOp(mask *tensor.Tensor[bool], value float32) Operation {
	return ops.NewMaskOp(mask, value)
}

// NewDropoutOp creates a seeded dropout operation.
func NewDropoutOp(rate float32, seed uint64) (Operation, error) {
	op, err := ops.NewDropoutOp(rate, seed)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// GradCheckConfig controls CheckGradient.
type GradCheckConfig = ops.GradCheckConfig

// DefaultGradCheckConfig returns tolerances suited to float32.
func DefaultGradCheckConfig() GradCheckConfig { return ops.DefaultGradCheckConfig() }

// CheckGradient compares an operation's Backward with finite differences.
func CheckGradient(op Operation, inputs []*tensor.Tensor[float32], cfg GradCheckConfig) error {
	return ops.CheckGradient(op, inputs, cfg)
}
