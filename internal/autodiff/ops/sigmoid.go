package ops

import (
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// SigmoidOp represents the sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - dσ/dx = σ(x) * (1 - σ(x))
type SigmoidOp struct{}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp() *SigmoidOp {
	return &SigmoidOp{}
}

func sigmoid(v float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-v))))
}

// Forward computes σ(x).
func (op *SigmoidOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("sigmoid", inputs, 1); err != nil {
		return nil, err
	}
	return inputs[0].Map(sigmoid), nil
}

// Backward computes input gradient for sigmoid.
func (op *SigmoidOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("sigmoid", inputs, 1); err != nil {
		return nil, err
	}
	grad, err := chain(inputs[0], outputGrad, func(v float32) float32 {
		s := sigmoid(v)
		return s * (1 - s)
	})
	return grads(err, grad)
}

// Clone returns a new SigmoidOp.
func (op *SigmoidOp) Clone() Operation {
	return &SigmoidOp{}
}
