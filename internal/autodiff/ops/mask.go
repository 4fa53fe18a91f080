package ops

import (
	"fmt"

	"github.com/born-ml/femtograd/internal/tensor"
)

// MaskOp replaces every masked position of its input with a constant value.
//
// The mask covers the trailing dimensions of the input and is repeated over
// any leading (batch) dimensions. A typical use is the causal mask of
// attention scores, filled with -Inf before a softmax.
//
// Backward pass:
//   - grad_x = outputGrad where the mask is false, 0 where it is true
type MaskOp struct {
	mask  []bool
	shape tensor.Shape
	value float32
}

// NewMaskOp creates a new MaskOp from a boolean mask.
func NewMaskOp(mask *tensor.Tensor[bool], value float32) *MaskOp {
	data := make([]bool, mask.NumElements())
	copy(data, mask.Data())
	return &MaskOp{
		mask:  data,
		shape: mask.Shape().Clone(),
		value: value,
	}
}

// Forward fills masked positions with the constant value.
func (op *MaskOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("mask", inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if err := op.checkShape(x); err != nil {
		return nil, err
	}

	out := x.Clone()
	data := out.Data()
	for i := range data {
		if op.mask[i%len(op.mask)] {
			data[i] = op.value
		}
	}
	return out, nil
}

// Backward zeroes the gradient at masked positions.
func (op *MaskOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("mask", inputs, 1); err != nil {
		return nil, err
	}
	if err := op.checkShape(outputGrad); err != nil {
		return nil, err
	}

	grad := outputGrad.Clone()
	data := grad.Data()
	for i := range data {
		if op.mask[i%len(op.mask)] {
			data[i] = 0
		}
	}
	return []*tensor.Tensor[float32]{grad}, nil
}

func (op *MaskOp) checkShape(x *tensor.Tensor[float32]) error {
	if !x.Shape().HasSuffix(op.shape) {
		return fmt.Errorf("mask: %w: mask %v does not cover input %v", tensor.ErrShapeMismatch, op.shape, x.Shape())
	}
	return nil
}

// Clone returns a copy of the operation with its own mask.
func (op *MaskOp) Clone() Operation {
	mask := make([]bool, len(op.mask))
	copy(mask, op.mask)
	return &MaskOp{mask: mask, shape: op.shape.Clone(), value: op.value}
}
