package autodiff

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/emirpasic/gods/v2/maps/treemap"

	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Graph is a computation graph over an append-only tensor arena.
//
// tensors, grads and names always have equal length. Leaves have no
// computation record; every tensor produced by Call has exactly one.
type Graph struct {
	tensors      []*tensor.Tensor[float32]
	grads        []*tensor.Tensor[float32]
	names        []string
	computations *treemap.Map[TensorID, computation]
	logger       *slog.Logger
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		computations: treemap.New[TensorID, computation](),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Alloc adds a leaf tensor and a zero gradient of the same shape.
// The graph takes ownership of value.
func (g *Graph) Alloc(value *tensor.Tensor[float32], name string) TensorID {
	id := TensorID(len(g.tensors))
	g.tensors = append(g.tensors, value)
	g.grads = append(g.grads, tensor.ZerosLike(value))
	g.names = append(g.names, name)
	return id
}

// AllocRand adds a leaf with values drawn uniformly from [-1, 1).
func (g *Graph) AllocRand(rng *rand.Rand, shape tensor.Shape, name string) (TensorID, error) {
	value, err := tensor.Rand(rng, shape)
	if err != nil {
		return 0, fmt.Errorf("alloc %q: %w", name, err)
	}
	return g.Alloc(value, name), nil
}

func (g *Graph) check(id TensorID) error {
	if id < 0 || int(id) >= len(g.tensors) {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Len returns the number of allocated tensors.
func (g *Graph) Len() int {
	return len(g.tensors)
}

// NumComputations returns the number of recorded computations.
func (g *Graph) NumComputations() int {
	return g.computations.Size()
}

// IsLeaf reports whether id was allocated directly rather than by Call.
func (g *Graph) IsLeaf(id TensorID) (bool, error) {
	if err := g.check(id); err != nil {
		return false, err
	}
	_, found := g.computations.Get(id)
	return !found, nil
}

// Get returns the tensor stored at id. The result aliases the slot.
func (g *Graph) Get(id TensorID) (*tensor.Tensor[float32], error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return g.tensors[id], nil
}

// GetGrad returns the gradient stored at id. The result aliases the slot.
func (g *Graph) GetGrad(id TensorID) (*tensor.Tensor[float32], error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return g.grads[id], nil
}

// NameOf returns the name given to id at allocation. Call outputs are unnamed.
func (g *Graph) NameOf(id TensorID) (string, error) {
	if err := g.check(id); err != nil {
		return "", err
	}
	return g.names[id], nil
}

// Load replaces the tensor at id. The graph takes ownership of value.
//
// A value with a new shape is allowed; the gradient slot is then replaced by
// zeros of the new shape.
func (g *Graph) Load(id TensorID, value *tensor.Tensor[float32]) error {
	if err := g.check(id); err != nil {
		return err
	}
	g.tensors[id] = value
	if !g.grads[id].Shape().Equal(value.Shape()) {
		g.grads[id] = tensor.ZerosLike(value)
	}
	return nil
}

// LoadGrad replaces the gradient at id. value must match the tensor's shape.
func (g *Graph) LoadGrad(id TensorID, value *tensor.Tensor[float32]) error {
	if err := g.check(id); err != nil {
		return err
	}
	if !g.tensors[id].Shape().Equal(value.Shape()) {
		return fmt.Errorf("load grad %d: %w: %v for tensor %v",
			id, tensor.ErrShapeMismatch, value.Shape(), g.tensors[id].Shape())
	}
	g.grads[id] = value
	return nil
}

// ZeroGrad resets every gradient to zeros shaped like its tensor.
func (g *Graph) ZeroGrad() {
	for i, t := range g.tensors {
		if g.grads[i].Shape().Equal(t.Shape()) {
			g.grads[i].Fill(0)
			continue
		}
		g.grads[i] = tensor.ZerosLike(t)
	}
}

// Embed overwrites outID with rows of tableID selected by indices.
//
// The result has shape indices.Shape() followed by table.Shape()[1:]. No
// computation is recorded, so the table receives no gradient through this
// path and Forward does not repeat the lookup.
func (g *Graph) Embed(outID, tableID TensorID, indices *tensor.Tensor[int]) error {
	if err := g.check(tableID); err != nil {
		return err
	}
	if err := g.check(outID); err != nil {
		return err
	}
	rows, err := tensor.Gather(g.tensors[tableID], indices)
	if err != nil {
		return fmt.Errorf("embed %d into %d: %w", tableID, outID, err)
	}
	return g.Load(outID, rows)
}

// Call runs op on the given inputs, stores the result in a new slot and
// records the computation for later passes.
func (g *Graph) Call(op ops.Operation, inputs ...TensorID) (TensorID, error) {
	values, err := g.gather(inputs)
	if err != nil {
		return 0, err
	}
	out, err := op.Forward(values, false)
	if err != nil {
		return 0, fmt.Errorf("call %T: %w", op, err)
	}
	id := g.Alloc(out, "")
	g.computations.Put(id, computation{
		inputs: append([]TensorID(nil), inputs...),
		op:     op,
	})
	return id, nil
}

func (g *Graph) gather(ids []TensorID) ([]*tensor.Tensor[float32], error) {
	values := make([]*tensor.Tensor[float32], len(ids))
	for i, id := range ids {
		if err := g.check(id); err != nil {
			return nil, err
		}
		values[i] = g.tensors[id]
	}
	return values, nil
}

// Clone returns a deep copy of the graph. Tensors and gradients are copied
// and every operation is cloned, so the copy evolves independently.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		tensors:      make([]*tensor.Tensor[float32], len(g.tensors)),
		grads:        make([]*tensor.Tensor[float32], len(g.grads)),
		names:        append([]string(nil), g.names...),
		computations: treemap.New[TensorID, computation](),
		logger:       g.logger,
	}
	for i := range g.tensors {
		c.tensors[i] = g.tensors[i].Clone()
		c.grads[i] = g.grads[i].Clone()
	}
	it := g.computations.Iterator()
	for it.Next() {
		c.computations.Put(it.Key(), it.Value().clone())
	}
	return c
}
