package ops

import "github.com/born-ml/femtograd/internal/tensor"

// MatMulOp represents a matrix multiplication: output = A @ B.
//
// Either operand may carry leading batch dimensions; a rank-2 operand is
// shared across the batch of the other.
//
// Backward pass:
//   - grad_A = outputGrad @ B^T
//   - grad_B = A^T @ outputGrad
//
// When B is shared across a batch of A, grad_B keeps the batch dimensions and
// the graph sums them on accumulation.
type MatMulOp struct{}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp() *MatMulOp {
	return &MatMulOp{}
}

// Forward computes A @ B.
func (op *MatMulOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("matmul", inputs, 2); err != nil {
		return nil, err
	}
	return tensor.MatMul(inputs[0], inputs[1])
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("matmul", inputs, 2); err != nil {
		return nil, err
	}
	a, b := inputs[0], inputs[1]

	gradA, err := tensor.MatMulTransposed(outputGrad, b, false, true)
	if err != nil {
		return nil, err
	}
	gradB, err := tensor.MatMulTransposed(a, outputGrad, true, false)
	return grads(err, gradA, gradB)
}

// Clone returns a new MatMulOp.
func (op *MatMulOp) Clone() Operation {
	return &MatMulOp{}
}
