package ops

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/tensor"
)

// DropoutOp implements inverted dropout.
//
// In training mode each element is zeroed with probability rate and the
// survivors are scaled by 1/(1-rate), so no rescaling is needed at inference.
// Outside training the operation is the identity.
//
// The mask drawn by the last training Forward is kept for Backward; after an
// inference Forward Backward passes the gradient through unchanged.
type DropoutOp struct {
	rate float32
	src  *rand.PCG
	rng  *rand.Rand
	mask []float32
}

// NewDropoutOp creates a dropout operation with a deterministic seed.
// rate must be in [0, 1).
func NewDropoutOp(rate float32, seed uint64) (*DropoutOp, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout: %w: rate %v not in [0, 1)", ErrInvalidArgument, rate)
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &DropoutOp{rate: rate, src: src, rng: rand.New(src)}, nil
}

// Rate returns the drop probability.
func (op *DropoutOp) Rate() float32 {
	return op.rate
}

// Forward applies dropout when training, identity otherwise.
func (op *DropoutOp) Forward(inputs []*tensor.Tensor[float32], training bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("dropout", inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if !training || op.rate == 0 {
		op.mask = nil
		return x.Clone(), nil
	}

	scale := 1 / (1 - op.rate)
	op.mask = make([]float32, x.NumElements())
	for i := range op.mask {
		if op.rng.Float32() >= op.rate {
			op.mask[i] = scale
		}
	}

	out := tensor.ZerosLike(x)
	od, xd := out.Data(), x.Data()
	for i, m := range op.mask {
		od[i] = xd[i] * m
	}
	return out, nil
}

// Backward applies the last training mask to the gradient.
func (op *DropoutOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("dropout", inputs, 1); err != nil {
		return nil, err
	}
	if op.mask == nil {
		return []*tensor.Tensor[float32]{outputGrad.Clone()}, nil
	}
	if len(op.mask) != outputGrad.NumElements() {
		return nil, fmt.Errorf("dropout: %w: gradient %v does not match last mask of %d elements",
			tensor.ErrShapeMismatch, outputGrad.Shape(), len(op.mask))
	}

	grad := tensor.ZerosLike(outputGrad)
	gd, od := grad.Data(), outputGrad.Data()
	for i, m := range op.mask {
		gd[i] = od[i] * m
	}
	return []*tensor.Tensor[float32]{grad}, nil
}

// Clone returns a copy with the same RNG position and mask.
func (op *DropoutOp) Clone() Operation {
	src := *op.src
	var mask []float32
	if op.mask != nil {
		mask = make([]float32, len(op.mask))
		copy(mask, op.mask)
	}
	return &DropoutOp{rate: op.rate, src: &src, rng: rand.New(&src), mask: mask}
}
