package ops

import "github.com/born-ml/femtograd/internal/tensor"

// SubOp represents an element-wise subtraction operation: output = a - b.
//
// Backward pass:
//   - grad_a = outputGrad
//   - grad_b = -outputGrad
type SubOp struct{}

// NewSubOp creates a new SubOp.
func NewSubOp() *SubOp {
	return &SubOp{}
}

// Forward computes a - b.
func (op *SubOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("sub", inputs, 2); err != nil {
		return nil, err
	}
	return tensor.Sub(inputs[0], inputs[1])
}

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("sub", inputs, 2); err != nil {
		return nil, err
	}
	return []*tensor.Tensor[float32]{outputGrad.Clone(), tensor.Scale(outputGrad, -1)}, nil
}

// Clone returns a new SubOp.
func (op *SubOp) Clone() Operation {
	return &SubOp{}
}
