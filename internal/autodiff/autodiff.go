// Package autodiff implements reverse-mode automatic differentiation over an
// append-only tensor arena.
//
// A Graph owns three parallel arenas indexed by TensorID: tensor values,
// gradients and diagnostic names. Leaves are allocated directly; derived
// tensors are produced by Call, which runs an operation once and records
// which inputs produced which output. Because ids only grow and every input
// exists before its output, ascending id order is a valid topological order:
// Forward replays records in that order and BackwardAll walks them in reverse.
//
// Usage:
//
//	g := autodiff.New()
//	x := g.Alloc(xValue, "x")
//	w := g.Alloc(wValue, "w")
//	y, _ := g.Call(ops.NewMatMulOp(), x, w)
//	loss, _ := g.BackwardAll(y, nn.NewMSELoss(target), autodiff.NoLimit)
//	_ = g.Optimize(optim.NewSGD(0.9), autodiff.NewIDSet(w), 0.01)
//
// A Graph is not safe for concurrent use. Use Clone to obtain an independent
// copy per goroutine.
package autodiff

import (
	"log/slog"

	"github.com/born-ml/femtograd/internal/tensor"
)

// TensorID identifies a slot in a Graph. Ids are assigned in allocation
// order and never reused.
type TensorID int

// NoLimit disables truncation in BackwardAll.
const NoLimit = -1

// IDSet is a set of tensor ids, typically the trainable parameters.
type IDSet map[TensorID]struct{}

// NewIDSet builds an IDSet from ids.
func NewIDSet(ids ...TensorID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add inserts ids into the set.
func (s IDSet) Add(ids ...TensorID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id TensorID) bool {
	_, ok := s[id]
	return ok
}

// Loss turns the output of a graph into a loss value and the gradient of the
// loss with respect to that output.
type Loss interface {
	// Run returns the per-element loss and dLoss/dOutput. grad must have the
	// same shape as output.
	Run(output *tensor.Tensor[float32]) (loss, grad *tensor.Tensor[float32], err error)
}

// Optimizer updates parameters in place from their gradients.
type Optimizer interface {
	// Step updates params[i] using grads[i]. Both slices have equal length
	// and are ordered by ascending tensor id.
	Step(params, grads []*tensor.Tensor[float32], lr float32) error
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for pass-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}
