package train

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/nn"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Model is a graph together with its output and trainable tensors.
type Model struct {
	Graph  *autodiff.Graph
	Input  autodiff.TensorID
	Output autodiff.TensorID
	Params autodiff.IDSet
}

// Batch is one sampled minibatch: values for input leaves and a loss bound
// to the matching targets.
type Batch struct {
	Inputs map[autodiff.TensorID]*tensor.Tensor[float32]
	Loss   autodiff.Loss
}

// Sampler draws minibatches.
type Sampler interface {
	Sample(rng *rand.Rand, batchSize int) (Batch, error)
}

// RegressionTask is a synthetic regression problem y = x @ W + bias with a
// fixed random W, used by the CLI demo and tests.
type RegressionTask struct {
	input   autodiff.TensorID
	weights *tensor.Tensor[float32]
	bias    float32
}

// NewRegressionTask creates a task with in input features and out targets.
// input is the graph leaf that receives x.
func NewRegressionTask(rng *rand.Rand, input autodiff.TensorID, in, out int) (*RegressionTask, error) {
	w, err := tensor.Rand(rng, tensor.Shape{in, out})
	if err != nil {
		return nil, err
	}
	return &RegressionTask{input: input, weights: w, bias: 0.5}, nil
}

// Sample draws x uniformly from [-1, 1) and computes exact targets.
func (r *RegressionTask) Sample(rng *rand.Rand, batchSize int) (Batch, error) {
	x, err := tensor.Rand(rng, tensor.Shape{batchSize, r.weights.Shape()[0]})
	if err != nil {
		return Batch{}, err
	}
	y, err := tensor.MatMul(x, r.weights)
	if err != nil {
		return Batch{}, err
	}
	y = y.Map(func(v float32) float32 { return v + r.bias })
	return Batch{
		Inputs: map[autodiff.TensorID]*tensor.Tensor[float32]{r.input: x},
		Loss:   nn.NewMSELoss(y),
	}, nil
}

// BuildMLP builds x -> Linear -> Tanh -> Dropout -> Linear in a new graph.
// The input leaf starts with a single row; its batch size follows whatever
// is loaded into it.
func BuildMLP(rng *rand.Rand, in, hidden, out int, dropout float32, opts ...autodiff.Option) (*Model, error) {
	g := autodiff.New(opts...)
	x0, err := tensor.Zeros[float32](tensor.Shape{1, in})
	if err != nil {
		return nil, err
	}
	x := g.Alloc(x0, "x")

	l1, err := nn.NewLinear(g, rng, in, hidden, "fc1")
	if err != nil {
		return nil, err
	}
	l2, err := nn.NewLinear(g, rng, hidden, out, "fc2")
	if err != nil {
		return nil, err
	}
	drop, err := ops.NewDropoutOp(dropout, rng.Uint64())
	if err != nil {
		return nil, fmt.Errorf("build mlp: %w", err)
	}

	h, err := l1.Apply(x)
	if err != nil {
		return nil, err
	}
	if h, err = g.Call(ops.NewTanhOp(), h); err != nil {
		return nil, err
	}
	if h, err = g.Call(drop, h); err != nil {
		return nil, err
	}
	y, err := l2.Apply(h)
	if err != nil {
		return nil, err
	}

	params := l1.Parameters()
	for id := range l2.Parameters() {
		params.Add(id)
	}
	return &Model{Graph: g, Input: x, Output: y, Params: params}, nil
}
