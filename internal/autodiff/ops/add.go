package ops

import "github.com/born-ml/femtograd/internal/tensor"

// AddOp represents an element-wise addition operation: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
type AddOp struct{}

// NewAddOp creates a new AddOp.
func NewAddOp() *AddOp {
	return &AddOp{}
}

// Forward computes a + b.
func (op *AddOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("add", inputs, 2); err != nil {
		return nil, err
	}
	return tensor.Add(inputs[0], inputs[1])
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("add", inputs, 2); err != nil {
		return nil, err
	}
	return []*tensor.Tensor[float32]{outputGrad.Clone(), outputGrad.Clone()}, nil
}

// Clone returns a new AddOp.
func (op *AddOp) Clone() Operation {
	return &AddOp{}
}
