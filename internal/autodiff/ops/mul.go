package ops

import "github.com/born-ml/femtograd/internal/tensor"

// MulOp represents an element-wise multiplication operation: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type MulOp struct{}

// NewMulOp creates a new MulOp.
func NewMulOp() *MulOp {
	return &MulOp{}
}

// Forward computes a * b.
func (op *MulOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("mul", inputs, 2); err != nil {
		return nil, err
	}
	return tensor.Mul(inputs[0], inputs[1])
}

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("mul", inputs, 2); err != nil {
		return nil, err
	}
	a, b := inputs[0], inputs[1]

	gradA, err := tensor.Mul(outputGrad, b)
	if err != nil {
		return nil, err
	}
	gradB, err := tensor.Mul(outputGrad, a)
	return grads(err, gradA, gradB)
}

// Clone returns a new MulOp.
func (op *MulOp) Clone() Operation {
	return &MulOp{}
}
