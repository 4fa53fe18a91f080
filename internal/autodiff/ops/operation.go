// Package ops defines the operation contract consumed by the autodiff graph
// and a set of concrete differentiable operations.
//
// Each operation implements the Operation interface, which provides:
//   - Forward: computes the output from the current input values
//   - Backward: computes one gradient per input given the output gradient
//   - Clone: duplicates the operation's configuration for graph checkpoints
//
// Gradients returned by Backward may keep the broadcast shape of the output
// when an input was broadcast in Forward. The graph reduces them back to the
// input's shape when it accumulates them.
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: element-wise with broadcasting
//   - CoeffOp: multiplication by a fixed coefficient
//   - MaskOp: fills masked positions with a constant
//   - MatMulOp: (batched) matrix multiplication
//   - ReLUOp, SigmoidOp, TanhOp, ExpOp, LogOp: element-wise activations
//   - SoftmaxOp: softmax along the last dimension
//   - DropoutOp: inverted dropout, active only in training mode
package ops

import (
	"errors"

	"github.com/born-ml/femtograd/internal/tensor"
)

// Errors returned by operations in addition to tensor errors.
var (
	ErrArity           = errors.New("wrong number of inputs")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Operation represents a differentiable operation in the computation graph.
//
// Operations must not depend on hidden mutable state across calls, except
// where training mode explicitly permits randomized behavior (DropoutOp).
type Operation interface {
	// Forward computes the output for the given inputs.
	// training is true during a training forward pass.
	Forward(inputs []*tensor.Tensor[float32], training bool) (*tensor.Tensor[float32], error)

	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error)

	// Clone returns an independent copy of the operation.
	Clone() Operation
}
