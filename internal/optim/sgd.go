package optim

import (
	"github.com/born-ml/femtograd/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	momentum   float32
	velocities []*tensor.Tensor[float32]
}

// NewSGD creates a new SGD optimizer. momentum is in [0, 1); 0 disables it.
func NewSGD(momentum float32) *SGD {
	return &SGD{momentum: momentum}
}

// Step performs a single optimization step.
func (s *SGD) Step(params, grads []*tensor.Tensor[float32], lr float32) error {
	if err := checkLengths(params, grads); err != nil {
		return err
	}
	if s.momentum == 0 {
		for i, p := range params {
			if err := tensor.Axpy(-lr, grads[i], p); err != nil {
				return err
			}
		}
		return nil
	}

	velocities, err := ensureState(s.velocities, params)
	if err != nil {
		return err
	}
	s.velocities = velocities
	for i, p := range params {
		v := s.velocities[i]
		tensor.Scal(s.momentum, v)
		if err := tensor.Axpy(1, grads[i], v); err != nil {
			return err
		}
		if err := tensor.Axpy(-lr, v, p); err != nil {
			return err
		}
	}
	return nil
}

// Velocities returns copies of the momentum buffers, or nil before the first
// step.
func (s *SGD) Velocities() []*tensor.Tensor[float32] {
	return cloneAll(s.velocities)
}

// SetVelocities restores buffers saved by Velocities. A nil slice resets the
// optimizer to its initial state.
func (s *SGD) SetVelocities(vs []*tensor.Tensor[float32]) {
	s.velocities = cloneAll(vs)
}
