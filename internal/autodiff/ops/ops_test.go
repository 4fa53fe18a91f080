package ops_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

func mustTensor(t *testing.T, data []float32, shape tensor.Shape) *tensor.Tensor[float32] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

// randTensor returns values in [lo, hi) away from any kink of the op under test.
func randTensor(t *testing.T, rng *rand.Rand, shape tensor.Shape, lo, hi float32) *tensor.Tensor[float32] {
	t.Helper()
	x, err := tensor.Zeros[float32](shape)
	require.NoError(t, err)
	for i := range x.Data() {
		x.Data()[i] = lo + rng.Float32()*(hi-lo)
	}
	return x
}

func TestCheckGradient_AllOps(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	mask, err := tensor.FromSlice([]bool{false, true, false, false, false, true}, tensor.Shape{2, 3})
	require.NoError(t, err)
	dropout, err := ops.NewDropoutOp(0.5, 3)
	require.NoError(t, err)

	tests := []struct {
		name   string
		op     ops.Operation
		inputs func() []*tensor.Tensor[float32]
	}{
		{"add", ops.NewAddOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 3}, -1, 1), randTensor(t, rng, tensor.Shape{2, 3}, -1, 1)}
		}},
		{"add broadcast", ops.NewAddOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{4, 2, 3}, -1, 1), randTensor(t, rng, tensor.Shape{3}, -1, 1)}
		}},
		{"sub broadcast", ops.NewSubOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 1}, -1, 1), randTensor(t, rng, tensor.Shape{2, 3}, -1, 1)}
		}},
		{"mul broadcast", ops.NewMulOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{3, 4}, -1, 1), randTensor(t, rng, tensor.Shape{1, 4}, -1, 1)}
		}},
		{"div", ops.NewDivOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{5}, -1, 1), randTensor(t, rng, tensor.Shape{5}, 1, 2)}
		}},
		{"coeff", ops.NewCoeffOp(-1.5), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 2}, -1, 1)}
		}},
		{"mask", ops.NewMaskOp(mask, -5), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{3, 2, 3}, -1, 1)}
		}},
		{"matmul", ops.NewMatMulOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{3, 4}, -1, 1), randTensor(t, rng, tensor.Shape{4, 2}, -1, 1)}
		}},
		{"matmul batched", ops.NewMatMulOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 3, 4}, -1, 1), randTensor(t, rng, tensor.Shape{4, 2}, -1, 1)}
		}},
		{"matmul shared left", ops.NewMatMulOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{3, 4}, -1, 1), randTensor(t, rng, tensor.Shape{2, 4, 5}, -1, 1)}
		}},
		{"relu", ops.NewReLUOp(), func() []*tensor.Tensor[float32] {
			x := randTensor(t, rng, tensor.Shape{8}, 0.1, 1)
			for i := 0; i < 8; i += 2 {
				x.Data()[i] = -x.Data()[i]
			}
			return []*tensor.Tensor[float32]{x}
		}},
		{"sigmoid", ops.NewSigmoidOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{6}, -2, 2)}
		}},
		{"tanh", ops.NewTanhOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 3}, -2, 2)}
		}},
		{"exp", ops.NewExpOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{4}, -1, 1)}
		}},
		{"log", ops.NewLogOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{4}, 0.5, 2)}
		}},
		{"softmax", ops.NewSoftmaxOp(), func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{2, 2, 5}, -2, 2)}
		}},
		{"dropout inference", dropout, func() []*tensor.Tensor[float32] {
			return []*tensor.Tensor[float32]{randTensor(t, rng, tensor.Shape{10}, -1, 1)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ops.CheckGradient(tt.op, tt.inputs(), ops.DefaultGradCheckConfig()))
		})
	}
}

// brokenOp claims d(2x)/dx = 1.
type brokenOp struct{}

func (brokenOp) Forward(in []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	return tensor.Scale(in[0], 2), nil
}

func (brokenOp) Backward(_ []*tensor.Tensor[float32], g *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	return []*tensor.Tensor[float32]{g.Clone()}, nil
}

func (brokenOp) Clone() ops.Operation { return brokenOp{} }

func TestCheckGradient_DetectsWrongBackward(t *testing.T) {
	x := mustTensor(t, []float32{1, 2, 3}, tensor.Shape{3})

	err := ops.CheckGradient(brokenOp{}, []*tensor.Tensor[float32]{x}, ops.DefaultGradCheckConfig())
	require.ErrorIs(t, err, ops.ErrGradientMismatch)

	var gerr *ops.GradientError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 0, gerr.Input)
}

func TestCoeffOp_Scenario(t *testing.T) {
	op := ops.NewCoeffOp(2)
	x := mustTensor(t, []float32{3}, tensor.Shape{1, 1})

	y, err := op.Forward([]*tensor.Tensor[float32]{x}, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{6}, y.Data())
	assert.Equal(t, tensor.Shape{1, 1}, y.Shape())

	g := mustTensor(t, []float32{1}, tensor.Shape{1, 1})
	grads, err := op.Backward([]*tensor.Tensor[float32]{x}, g)
	require.NoError(t, err)
	require.Len(t, grads, 1)
	assert.Equal(t, []float32{2}, grads[0].Data())
}

func TestAddOp_BroadcastGradientKeepsOutputShape(t *testing.T) {
	a := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := mustTensor(t, []float32{10, 20, 30}, tensor.Shape{3})
	op := ops.NewAddOp()

	y, err := op.Forward([]*tensor.Tensor[float32]{a, b}, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, y.Data())

	g := mustTensor(t, []float32{1, 1, 1, 1, 1, 1}, tensor.Shape{2, 3})
	grads, err := op.Backward([]*tensor.Tensor[float32]{a, b}, g)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, grads[1].Shape())
}

func TestMaskOp(t *testing.T) {
	mask, err := tensor.FromSlice([]bool{false, true, false, false}, tensor.Shape{2, 2})
	require.NoError(t, err)
	op := ops.NewMaskOp(mask, float32(math.Inf(-1)))

	x := mustTensor(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 2, 2})
	y, err := op.Forward([]*tensor.Tensor[float32]{x}, false)
	require.NoError(t, err)
	ninf := float32(math.Inf(-1))
	assert.Equal(t, []float32{1, ninf, 3, 4, 5, ninf, 7, 8}, y.Data())

	g, err := tensor.Full(tensor.Shape{2, 2, 2}, float32(1))
	require.NoError(t, err)
	grads, err := op.Backward([]*tensor.Tensor[float32]{x}, g)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 1, 1, 1, 0, 1, 1}, grads[0].Data())

	_, err = op.Forward([]*tensor.Tensor[float32]{mustTensor(t, []float32{1, 2, 3}, tensor.Shape{3})}, false)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSoftmaxOp_RowsSumToOne(t *testing.T) {
	x := mustTensor(t, []float32{1, 2, 3, 1000, 1000, 1000}, tensor.Shape{2, 3})
	y, err := ops.NewSoftmaxOp().Forward([]*tensor.Tensor[float32]{x}, false)
	require.NoError(t, err)

	want := []float32{0.09003057, 0.24472848, 0.66524094, 1.0 / 3, 1.0 / 3, 1.0 / 3}
	if diff := cmp.Diff(want, y.Data(), approx); diff != "" {
		t.Errorf("softmax mismatch (-want +got):\n%s", diff)
	}
}

func TestMatMulOp_Forward(t *testing.T) {
	a := mustTensor(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := mustTensor(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y, err := ops.NewMatMulOp().Forward([]*tensor.Tensor[float32]{a, b}, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{19, 22, 43, 50}, y.Data())
}

func TestDropoutOp(t *testing.T) {
	_, err := ops.NewDropoutOp(1, 0)
	require.ErrorIs(t, err, ops.ErrInvalidArgument)
	_, err = ops.NewDropoutOp(-0.1, 0)
	require.ErrorIs(t, err, ops.ErrInvalidArgument)

	op, err := ops.NewDropoutOp(0.5, 42)
	require.NoError(t, err)
	x, err := tensor.Full(tensor.Shape{64}, float32(1))
	require.NoError(t, err)
	in := []*tensor.Tensor[float32]{x}

	t.Run("inference is identity", func(t *testing.T) {
		y, err := op.Forward(in, false)
		require.NoError(t, err)
		assert.True(t, y.Equal(x))
	})

	t.Run("training scales survivors", func(t *testing.T) {
		y, err := op.Forward(in, true)
		require.NoError(t, err)
		kept := 0
		for _, v := range y.Data() {
			assert.Contains(t, []float32{0, 2}, v)
			if v != 0 {
				kept++
			}
		}
		assert.Greater(t, kept, 0)
		assert.Less(t, kept, 64)

		grads, err := op.Backward(in, x)
		require.NoError(t, err)
		assert.Equal(t, y.Data(), grads[0].Data())
	})

	t.Run("training backward matches the drawn mask", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 5))
		op, err := ops.NewDropoutOp(0.5, 9)
		require.NoError(t, err)
		x := randTensor(t, rng, tensor.Shape{32}, 0.5, 1)
		y, err := op.Forward([]*tensor.Tensor[float32]{x}, true)
		require.NoError(t, err)
		mask := make([]float32, 32)
		for i := range mask {
			mask[i] = y.Data()[i] / x.Data()[i]
		}

		// With the mask fixed the op is linear, so Σ g·y has gradient g·mask;
		// compare against central differences of that objective.
		g := randTensor(t, rng, tensor.Shape{32}, -1, 1)
		objective := func(xs []float32) float64 {
			var sum float64
			for i, v := range xs {
				sum += float64(g.Data()[i] * mask[i] * v)
			}
			return sum
		}
		grads, err := op.Backward([]*tensor.Tensor[float32]{x}, g)
		require.NoError(t, err)
		const eps = 1e-2
		for i := range mask {
			xs := append([]float32(nil), x.Data()...)
			xs[i] += eps
			plus := objective(xs)
			xs[i] -= 2 * eps
			minus := objective(xs)
			assert.InDelta(t, (plus-minus)/(2*eps), grads[0].Data()[i], 1e-4, "element %d", i)
		}

		again, err := op.Backward([]*tensor.Tensor[float32]{x}, g)
		require.NoError(t, err)
		assert.Equal(t, grads[0].Data(), again[0].Data())
	})

	t.Run("clone replays the same mask", func(t *testing.T) {
		clone := op.Clone()
		a, err := op.Forward(in, true)
		require.NoError(t, err)
		b, err := clone.Forward(in, true)
		require.NoError(t, err)
		assert.Equal(t, a.Data(), b.Data())
	})
}

func TestOps_Arity(t *testing.T) {
	x := mustTensor(t, []float32{1}, tensor.Shape{1})
	dropout, err := ops.NewDropoutOp(0.1, 1)
	require.NoError(t, err)
	mask, err := tensor.FromSlice([]bool{true}, tensor.Shape{1})
	require.NoError(t, err)

	for _, op := range []ops.Operation{
		ops.NewAddOp(), ops.NewSubOp(), ops.NewMulOp(), ops.NewDivOp(), ops.NewMatMulOp(),
		ops.NewCoeffOp(1), ops.NewMaskOp(mask, 0), ops.NewReLUOp(), ops.NewSigmoidOp(),
		ops.NewTanhOp(), ops.NewExpOp(), ops.NewLogOp(), ops.NewSoftmaxOp(), dropout,
	} {
		_, err := op.Forward([]*tensor.Tensor[float32]{x, x, x}, false)
		assert.ErrorIs(t, err, ops.ErrArity, "%T", op)
		_, err = op.Backward([]*tensor.Tensor[float32]{x, x, x}, x)
		assert.ErrorIs(t, err, ops.ErrArity, "%T", op)
	}
}
