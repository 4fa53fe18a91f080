package ops

import "github.com/born-ml/femtograd/internal/tensor"

// ReLUOp represents a ReLU (Rectified Linear Unit) activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
type ReLUOp struct{}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp() *ReLUOp {
	return &ReLUOp{}
}

// Forward computes max(0, x).
func (op *ReLUOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("relu", inputs, 1); err != nil {
		return nil, err
	}
	return inputs[0].Map(func(v float32) float32 { return max(v, 0) }), nil
}

// Backward computes input gradient for ReLU.
func (op *ReLUOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("relu", inputs, 1); err != nil {
		return nil, err
	}
	grad, err := chain(inputs[0], outputGrad, func(v float32) float32 {
		if v > 0 {
			return 1
		}
		return 0
	})
	return grads(err, grad)
}

// Clone returns a new ReLUOp.
func (op *ReLUOp) Clone() Operation {
	return &ReLUOp{}
}
