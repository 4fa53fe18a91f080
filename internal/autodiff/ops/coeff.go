package ops

import "github.com/born-ml/femtograd/internal/tensor"

// CoeffOp multiplies its input by a fixed coefficient: output = c * x.
type CoeffOp struct {
	coeff float32
}

// NewCoeffOp creates a new CoeffOp.
func NewCoeffOp(coeff float32) *CoeffOp {
	return &CoeffOp{coeff: coeff}
}

// Forward computes c * x.
func (op *CoeffOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("coeff", inputs, 1); err != nil {
		return nil, err
	}
	return tensor.Scale(inputs[0], op.coeff), nil
}

// Backward returns c * outputGrad.
func (op *CoeffOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("coeff", inputs, 1); err != nil {
		return nil, err
	}
	return []*tensor.Tensor[float32]{tensor.Scale(outputGrad, op.coeff)}, nil
}

// Clone returns a copy of the operation.
func (op *CoeffOp) Clone() Operation {
	c := *op
	return &c
}
