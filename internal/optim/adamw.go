package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// AdamW implements Adam with decoupled weight decay.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * (m_hat / (sqrt(v_hat) + eps) + weight_decay * param)
//
// Reference: "Decoupled Weight Decay Regularization" (Loshchilov & Hutter, 2019)
type AdamW struct {
	cfg AdamWConfig
	t   int
	m   []*tensor.Tensor[float32]
	v   []*tensor.Tensor[float32]
}

// AdamWConfig holds configuration for AdamW. Zero fields take defaults.
type AdamWConfig struct {
	Beta1       float32 // default: 0.9
	Beta2       float32 // default: 0.999
	Eps         float32 // default: 1e-8
	WeightDecay float32 // default: 0.01; negative disables decay
}

// AdamWState is the optimizer state saved in checkpoints.
type AdamWState struct {
	Step int
	M    []*tensor.Tensor[float32]
	V    []*tensor.Tensor[float32]
}

// NewAdamW creates a new AdamW optimizer.
func NewAdamW(cfg AdamWConfig) *AdamW {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	switch {
	case cfg.WeightDecay == 0:
		cfg.WeightDecay = 0.01
	case cfg.WeightDecay < 0:
		cfg.WeightDecay = 0
	}
	return &AdamW{cfg: cfg}
}

// Config returns the effective configuration.
func (a *AdamW) Config() AdamWConfig {
	return a.cfg
}

// Step performs a single optimization step.
func (a *AdamW) Step(params, grads []*tensor.Tensor[float32], lr float32) error {
	if err := checkLengths(params, grads); err != nil {
		return err
	}
	m, err := ensureState(a.m, params)
	if err != nil {
		return err
	}
	v, err := ensureState(a.v, params)
	if err != nil {
		return err
	}
	a.m, a.v = m, v
	a.t++

	c := a.cfg
	bc1 := float32(1 - math.Pow(float64(c.Beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(c.Beta2), float64(a.t)))

	for i, p := range params {
		pd, gd := p.Data(), grads[i].Data()
		md, vd := a.m[i].Data(), a.v[i].Data()
		for j, g := range gd {
			md[j] = c.Beta1*md[j] + (1-c.Beta1)*g
			vd[j] = c.Beta2*vd[j] + (1-c.Beta2)*g*g
			mHat := md[j] / bc1
			vHat := vd[j] / bc2
			pd[j] -= lr * (mHat/(float32(math.Sqrt(float64(vHat)))+c.Eps) + c.WeightDecay*pd[j])
		}
	}
	return nil
}

// State returns a copy of the optimizer state.
func (a *AdamW) State() AdamWState {
	return AdamWState{Step: a.t, M: cloneAll(a.m), V: cloneAll(a.v)}
}

// SetState restores state saved by State.
func (a *AdamW) SetState(s AdamWState) error {
	if len(s.M) != len(s.V) {
		return fmt.Errorf("%w: %d first moments, %d second moments", ErrStateMismatch, len(s.M), len(s.V))
	}
	for i := range s.M {
		if !s.M[i].Shape().Equal(s.V[i].Shape()) {
			return fmt.Errorf("%w: moment %d shapes %v and %v", ErrStateMismatch, i, s.M[i].Shape(), s.V[i].Shape())
		}
	}
	a.t = s.Step
	a.m, a.v = cloneAll(s.M), cloneAll(s.V)
	return nil
}
