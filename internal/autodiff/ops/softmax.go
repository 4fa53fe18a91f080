package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// SoftmaxOp represents the softmax operation along the last dimension.
//
// Forward (for each row):
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// The max-shifting prevents overflow.
//
// Backward:
//
//	∂L/∂x_j = softmax_j * (∂L/∂softmax_j - Σ_i (∂L/∂softmax_i * softmax_i))
//
// The softmax output is recomputed from the input in Backward, so the
// operation holds no state between passes. Inputs of any rank >= 1 are
// accepted; all leading dimensions are treated as rows.
type SoftmaxOp struct{}

// NewSoftmaxOp creates a new softmax operation.
func NewSoftmaxOp() *SoftmaxOp {
	return &SoftmaxOp{}
}

// Forward computes softmax over the last dimension.
func (op *SoftmaxOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("softmax", inputs, 1); err != nil {
		return nil, err
	}
	return softmax(inputs[0])
}

// Backward computes the gradient with respect to the input.
func (op *SoftmaxOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("softmax", inputs, 1); err != nil {
		return nil, err
	}
	y, err := softmax(inputs[0])
	if err != nil {
		return nil, err
	}
	if !outputGrad.Shape().Equal(y.Shape()) {
		return nil, fmt.Errorf("softmax: %w: gradient %v for output %v", tensor.ErrShapeMismatch, outputGrad.Shape(), y.Shape())
	}

	cols := y.Shape()[y.Rank()-1]
	yd, gd := y.Data(), outputGrad.Data()
	grad := tensor.ZerosLike(y)
	out := grad.Data()
	for row := 0; row < len(yd); row += cols {
		var dot float32
		for j := row; j < row+cols; j++ {
			dot += gd[j] * yd[j]
		}
		for j := row; j < row+cols; j++ {
			out[j] = yd[j] * (gd[j] - dot)
		}
	}
	return []*tensor.Tensor[float32]{grad}, nil
}

// Clone returns a new SoftmaxOp.
func (op *SoftmaxOp) Clone() Operation {
	return &SoftmaxOp{}
}

func softmax(x *tensor.Tensor[float32]) (*tensor.Tensor[float32], error) {
	if x.Rank() == 0 {
		return nil, fmt.Errorf("softmax: %w: input must have rank >= 1", tensor.ErrShapeMismatch)
	}
	cols := x.Shape()[x.Rank()-1]
	xd := x.Data()
	out := tensor.ZerosLike(x)
	od := out.Data()
	for row := 0; row < len(xd); row += cols {
		maxVal := xd[row]
		for j := row + 1; j < row+cols; j++ {
			maxVal = max(maxVal, xd[j])
		}
		var sum float64
		for j := row; j < row+cols; j++ {
			e := math.Exp(float64(xd[j] - maxVal))
			od[j] = float32(e)
			sum += e
		}
		for j := row; j < row+cols; j++ {
			od[j] = float32(float64(od[j]) / sum)
		}
	}
	return out, nil
}
