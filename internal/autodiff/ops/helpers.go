package ops

import (
	"fmt"

	"github.com/born-ml/femtograd/internal/tensor"
)

// checkArity verifies that an operation received exactly n inputs.
func checkArity(name string, inputs []*tensor.Tensor[float32], n int) error {
	if len(inputs) != n {
		return fmt.Errorf("%s: %w: got %d, want %d", name, ErrArity, len(inputs), n)
	}
	return nil
}

// grads wraps gradients and an error into Backward's return values.
func grads(err error, g ...*tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}

// chain multiplies the output gradient by a local derivative computed from x.
func chain(x, outputGrad *tensor.Tensor[float32], local func(float32) float32) (*tensor.Tensor[float32], error) {
	return tensor.Mul(outputGrad, x.Map(local))
}
