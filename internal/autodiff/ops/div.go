package ops

import "github.com/born-ml/femtograd/internal/tensor"

// DivOp represents an element-wise division operation: output = a / b.
//
// Backward pass:
//   - grad_a = outputGrad / b
//   - grad_b = -outputGrad * a / b²
type DivOp struct{}

// NewDivOp creates a new DivOp.
func NewDivOp() *DivOp {
	return &DivOp{}
}

// Forward computes a / b.
func (op *DivOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("div", inputs, 2); err != nil {
		return nil, err
	}
	return tensor.Div(inputs[0], inputs[1])
}

// Backward computes input gradients for division.
func (op *DivOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("div", inputs, 2); err != nil {
		return nil, err
	}
	a, b := inputs[0], inputs[1]

	gradA, err := tensor.Div(outputGrad, b)
	if err != nil {
		return nil, err
	}

	// grad_b = -(grad_a * a / b)
	gradB, err := tensor.Mul(gradA, a)
	if err != nil {
		return nil, err
	}
	gradB, err = tensor.Div(gradB, b)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor[float32]{gradA, tensor.Scale(gradB, -1)}, nil
}

// Clone returns a new DivOp.
func (op *DivOp) Clone() Operation {
	return &DivOp{}
}
