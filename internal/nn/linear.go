package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Linear is a fully connected layer built inside a graph.
//
// Performs the transformation: y = x @ W + b
// where:
//   - x has shape [..., in_features]
//   - W has shape [in_features, out_features]
//   - b has shape [out_features] and is broadcast over the batch
//
// Weights use Xavier initialization; biases start at zero.
//
// Example:
//
//	layer, _ := nn.NewLinear(g, rng, 784, 128, "fc1")
//	h, _ := layer.Apply(x) // [32, 784] -> [32, 128]
type Linear struct {
	graph  *autodiff.Graph
	Weight autodiff.TensorID
	Bias   autodiff.TensorID
}

// NewLinear allocates the layer's parameters in g, named name.weight and
// name.bias.
func NewLinear(g *autodiff.Graph, rng *rand.Rand, inFeatures, outFeatures int, name string) (*Linear, error) {
	w, err := Xavier(rng, inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures})
	if err != nil {
		return nil, fmt.Errorf("linear %q: %w", name, err)
	}
	b, err := tensor.Zeros[float32](tensor.Shape{outFeatures})
	if err != nil {
		return nil, fmt.Errorf("linear %q: %w", name, err)
	}
	return &Linear{
		graph:  g,
		Weight: g.Alloc(w, name+".weight"),
		Bias:   g.Alloc(b, name+".bias"),
	}, nil
}

// Apply appends x @ W + b to the graph and returns the output id.
func (l *Linear) Apply(x autodiff.TensorID) (autodiff.TensorID, error) {
	h, err := l.graph.Call(ops.NewMatMulOp(), x, l.Weight)
	if err != nil {
		return 0, err
	}
	return l.graph.Call(ops.NewAddOp(), h, l.Bias)
}

// Parameters returns the layer's trainable tensors.
func (l *Linear) Parameters() autodiff.IDSet {
	return autodiff.NewIDSet(l.Weight, l.Bias)
}
