// Package optim implements optimization algorithms for autodiff graphs.
//
// This package provides:
//   - SGD: Stochastic Gradient Descent with momentum
//   - AdamW: Adam with decoupled weight decay
//
// Both implement autodiff.Optimizer. The graph passes parameters and their
// gradients in ascending id order, so per-parameter state is kept by
// position and stays valid as long as the parameter set does not change.
//
// Example usage:
//
//	opt := optim.NewAdamW(optim.AdamWConfig{})
//	for step := range steps {
//	    _ = g.Forward(true)
//	    g.ZeroGrad()
//	    _, _ = g.BackwardAll(out, loss, autodiff.NoLimit)
//	    _ = g.Optimize(opt, params, schedule.LR(step))
//	}
package optim

import (
	"errors"
	"fmt"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Common errors.
var (
	ErrLengthMismatch = errors.New("params and grads differ in length")
	ErrStateMismatch  = errors.New("optimizer state does not match parameters")
)

var (
	_ autodiff.Optimizer = (*SGD)(nil)
	_ autodiff.Optimizer = (*AdamW)(nil)
)

func checkLengths(params, grads []*tensor.Tensor[float32]) error {
	if len(params) != len(grads) {
		return fmt.Errorf("%w: %d params, %d grads", ErrLengthMismatch, len(params), len(grads))
	}
	for i := range params {
		if !params[i].Shape().Equal(grads[i].Shape()) {
			return fmt.Errorf("param %d: %w: %v vs grad %v",
				i, tensor.ErrShapeMismatch, params[i].Shape(), grads[i].Shape())
		}
	}
	return nil
}

// ensureState lazily creates zero buffers shaped like params, or checks that
// existing buffers still line up with them.
func ensureState(state []*tensor.Tensor[float32], params []*tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if state == nil {
		state = make([]*tensor.Tensor[float32], len(params))
		for i, p := range params {
			state[i] = tensor.ZerosLike(p)
		}
		return state, nil
	}
	if len(state) != len(params) {
		return nil, fmt.Errorf("%w: %d buffers for %d params", ErrStateMismatch, len(state), len(params))
	}
	for i, p := range params {
		if !state[i].Shape().Equal(p.Shape()) {
			return nil, fmt.Errorf("%w: buffer %d is %v, param is %v", ErrStateMismatch, i, state[i].Shape(), p.Shape())
		}
	}
	return state, nil
}

func cloneAll(ts []*tensor.Tensor[float32]) []*tensor.Tensor[float32] {
	if len(ts) == 0 {
		return nil
	}
	out := make([]*tensor.Tensor[float32], len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}
