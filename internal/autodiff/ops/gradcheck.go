package ops

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/tensor"
)

// GradCheckConfig controls CheckGradient.
type GradCheckConfig struct {
	Epsilon float32 // central difference step
	ATol    float32 // absolute tolerance
	RTol    float32 // relative tolerance
	Seed    uint64  // seed of the random objective weights
}

// DefaultGradCheckConfig returns tolerances suited to float32 arithmetic.
func DefaultGradCheckConfig() GradCheckConfig {
	return GradCheckConfig{Epsilon: 1e-2, ATol: 1e-2, RTol: 1e-2, Seed: 1}
}

// GradientError reports the first element whose analytic gradient disagrees
// with the numerical estimate.
type GradientError struct {
	Input    int
	Index    int
	Analytic float32
	Numeric  float32
}

func (e *GradientError) Error() string {
	return fmt.Sprintf("gradient mismatch at input %d element %d: analytic %g, numeric %g",
		e.Input, e.Index, e.Analytic, e.Numeric)
}

// ErrGradientMismatch is matched by every *GradientError.
var ErrGradientMismatch = errors.New("gradient mismatch")

// Is reports whether target is ErrGradientMismatch.
func (e *GradientError) Is(target error) bool {
	return target == ErrGradientMismatch
}

// CheckGradient compares op.Backward against central finite differences.
//
// The scalar objective is Σ w_i * y_i with fixed random weights w, so every
// output element contributes. Analytic gradients are reduced to their input's
// shape first, as the graph does on accumulation. Forward runs in inference
// mode. Inputs are not modified.
func CheckGradient(op Operation, inputs []*tensor.Tensor[float32], cfg GradCheckConfig) error {
	y, err := op.Forward(inputs, false)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	weights, err := tensor.Rand(rng, y.Shape())
	if err != nil {
		return err
	}

	analytic, err := op.Backward(inputs, weights)
	if err != nil {
		return err
	}
	if len(analytic) != len(inputs) {
		return fmt.Errorf("%w: %d gradients for %d inputs", ErrArity, len(analytic), len(inputs))
	}

	objective := func(xs []*tensor.Tensor[float32]) (float64, error) {
		out, err := op.Forward(xs, false)
		if err != nil {
			return 0, err
		}
		var sum float64
		wd := weights.Data()
		for i, v := range out.Data() {
			sum += float64(wd[i]) * float64(v)
		}
		return sum, nil
	}

	for k, x := range inputs {
		g, err := tensor.SumTo(analytic[k], x.Shape())
		if err != nil {
			return fmt.Errorf("input %d: %w", k, err)
		}

		perturbed := make([]*tensor.Tensor[float32], len(inputs))
		copy(perturbed, inputs)
		probe := x.Clone()
		perturbed[k] = probe
		pd := probe.Data()

		for i := range pd {
			orig := pd[i]
			pd[i] = orig + cfg.Epsilon
			plus, err := objective(perturbed)
			if err != nil {
				return err
			}
			pd[i] = orig - cfg.Epsilon
			minus, err := objective(perturbed)
			if err != nil {
				return err
			}
			pd[i] = orig

			numeric := float32((plus - minus) / (2 * float64(cfg.Epsilon)))
			got := g.Data()[i]
			diff := math.Abs(float64(got - numeric))
			if diff > float64(cfg.ATol)+float64(cfg.RTol)*math.Abs(float64(numeric)) {
				return &GradientError{Input: k, Index: i, Analytic: got, Numeric: numeric}
			}
		}
	}
	return nil
}
