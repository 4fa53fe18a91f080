package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/tensor"
)

// ErrNoTarget is returned when a loss runs before its targets are set.
var ErrNoTarget = errors.New("no target set")

var (
	_ autodiff.Loss = Identity{}
	_ autodiff.Loss = (*MSELoss)(nil)
	_ autodiff.Loss = (*CrossEntropyLoss)(nil)
)

// Identity treats the output itself as the loss. Its gradient is all ones.
type Identity struct{}

// Run returns a copy of output and a tensor of ones.
func (Identity) Run(output *tensor.Tensor[float32]) (*tensor.Tensor[float32], *tensor.Tensor[float32], error) {
	ones, err := tensor.Full(output.Shape(), float32(1))
	if err != nil {
		return nil, nil, err
	}
	return output.Clone(), ones, nil
}

// MSELoss computes the squared error against a target tensor.
//
// Loss_i = (output_i - target_i)²
// Grad_i = 2 * (output_i - target_i)
//
// Targets are swapped with SetTarget between batches.
type MSELoss struct {
	target *tensor.Tensor[float32]
}

// NewMSELoss creates a squared-error loss for the given targets.
func NewMSELoss(target *tensor.Tensor[float32]) *MSELoss {
	return &MSELoss{target: target}
}

// SetTarget replaces the targets.
func (m *MSELoss) SetTarget(target *tensor.Tensor[float32]) {
	m.target = target
}

// Run computes per-element squared errors and their gradient.
func (m *MSELoss) Run(output *tensor.Tensor[float32]) (*tensor.Tensor[float32], *tensor.Tensor[float32], error) {
	if m.target == nil {
		return nil, nil, fmt.Errorf("mse: %w", ErrNoTarget)
	}
	if !output.Shape().Equal(m.target.Shape()) {
		return nil, nil, fmt.Errorf("mse: %w: output %v, target %v",
			tensor.ErrShapeMismatch, output.Shape(), m.target.Shape())
	}

	diff, err := tensor.Sub(output, m.target)
	if err != nil {
		return nil, nil, err
	}
	loss, err := tensor.Mul(diff, diff)
	if err != nil {
		return nil, nil, err
	}
	return loss, tensor.Scale(diff, 2), nil
}
