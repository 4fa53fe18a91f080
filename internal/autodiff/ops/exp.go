package ops

import (
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// ExpOp represents element-wise exponential: output = exp(x).
//
// Backward pass:
//   - d(exp(x))/dx = exp(x)
type ExpOp struct{}

// NewExpOp creates a new ExpOp.
func NewExpOp() *ExpOp {
	return &ExpOp{}
}

func exp(v float32) float32 {
	return float32(math.Exp(float64(v)))
}

// Forward computes exp(x).
func (op *ExpOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("exp", inputs, 1); err != nil {
		return nil, err
	}
	return inputs[0].Map(exp), nil
}

// Backward computes input gradient for exp.
func (op *ExpOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("exp", inputs, 1); err != nil {
		return nil, err
	}
	grad, err := chain(inputs[0], outputGrad, exp)
	return grads(err, grad)
}

// Clone returns a new ExpOp.
func (op *ExpOp) Clone() Operation {
	return &ExpOp{}
}
