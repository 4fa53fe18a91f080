package ops

import (
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// TanhOp represents the hyperbolic tangent activation.
//
// Backward pass:
//   - d(tanh(x))/dx = 1 - tanh²(x)
type TanhOp struct{}

// NewTanhOp creates a new TanhOp.
func NewTanhOp() *TanhOp {
	return &TanhOp{}
}

func tanh(v float32) float32 {
	return float32(math.Tanh(float64(v)))
}

// Forward computes tanh(x).
func (op *TanhOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("tanh", inputs, 1); err != nil {
		return nil, err
	}
	return inputs[0].Map(tanh), nil
}

// Backward computes input gradient for tanh.
func (op *TanhOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("tanh", inputs, 1); err != nil {
		return nil, err
	}
	grad, err := chain(inputs[0], outputGrad, func(v float32) float32 {
		t := tanh(v)
		return 1 - t*t
	})
	return grads(err, grad)
}

// Clone returns a new TanhOp.
func (op *TanhOp) Clone() Operation {
	return &TanhOp{}
}
