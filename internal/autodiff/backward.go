package autodiff

import (
	"fmt"
	"slices"

	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// BackwardAll seeds the gradient of id from loss and propagates it back
// through the recorded computations.
//
// The seed is dLoss/dOutput divided by the number of loss elements, so the
// gradients are those of the mean loss. Records are visited from the newest
// to the oldest; limit caps how many are visited (NoLimit for all, 0 to only
// seed). Gradients accumulate into existing slots: call ZeroGrad between
// steps.
//
// Returns the mean of the loss tensor.
func (g *Graph) BackwardAll(id TensorID, loss Loss, limit int) (float32, error) {
	if err := g.check(id); err != nil {
		return 0, err
	}
	output := g.tensors[id]

	lossValue, grad, err := loss.Run(output)
	if err != nil {
		return 0, fmt.Errorf("backward %d: loss: %w", id, err)
	}
	if !grad.Shape().Equal(output.Shape()) {
		return 0, fmt.Errorf("backward %d: %w: loss gradient %v for output %v",
			id, tensor.ErrShapeMismatch, grad.Shape(), output.Shape())
	}

	seed := tensor.Scale(grad, 1/float32(lossValue.NumElements()))
	if err := g.AddGrad(id, seed); err != nil {
		return 0, err
	}

	visited := 0
	it := g.computations.Iterator()
	it.End()
	for it.Prev() {
		if limit >= 0 && visited >= limit {
			break
		}
		if err := g.backwardOne(it.Key(), it.Value()); err != nil {
			return 0, err
		}
		visited++
	}

	mean := tensor.Mean(lossValue)
	g.logger.Debug("backward pass", "output", id, "visited", visited, "loss", mean)
	return mean, nil
}

func (g *Graph) backwardOne(id TensorID, c computation) error {
	inputs, err := g.gather(c.inputs)
	if err != nil {
		return err
	}
	grads, err := c.op.Backward(inputs, g.grads[id])
	if err != nil {
		return fmt.Errorf("backward %d (%T): %w", id, c.op, err)
	}
	if len(grads) != len(c.inputs) {
		return fmt.Errorf("backward %d (%T): %w: %d gradients for %d inputs",
			id, c.op, ops.ErrArity, len(grads), len(c.inputs))
	}
	for i, input := range c.inputs {
		if err := g.AddGrad(input, grads[i]); err != nil {
			return fmt.Errorf("backward %d (%T): %w", id, c.op, err)
		}
	}
	return nil
}

// AddGrad adds grad into the gradient slot of id.
//
// Broadcasting is undone before the addition:
//   - extra leading dimensions of grad are summed away
//   - dimensions of size 1 in the slot are summed over
//   - a grad that broadcasts to the slot's shape is expanded
//
// Incompatible shapes return tensor.ErrShapeMismatch and leave the slot
// unchanged.
func (g *Graph) AddGrad(id TensorID, grad *tensor.Tensor[float32]) error {
	if err := g.check(id); err != nil {
		return err
	}
	slot := g.grads[id]
	if grad.Shape().Equal(slot.Shape()) {
		return tensor.Axpy(1, grad, slot)
	}

	shape, _, err := tensor.BroadcastShapes(slot.Shape(), grad.Shape())
	if err != nil {
		return fmt.Errorf("add grad %d: %w: %v", id, tensor.ErrShapeMismatch, err)
	}
	if shape.Equal(slot.Shape()) {
		sum, err := tensor.Add(slot, grad)
		if err != nil {
			return fmt.Errorf("add grad %d: %w", id, err)
		}
		return slot.CopyFrom(sum)
	}

	reduced, err := tensor.SumTo(grad, slot.Shape())
	if err != nil {
		return fmt.Errorf("add grad %d: %w", id, err)
	}
	return tensor.Axpy(1, reduced, slot)
}

// Optimize applies one optimizer step to params.
//
// Parameters and their gradients are passed in ascending id order; the
// parameter tensors are the graph's own slots and are updated in place.
func (g *Graph) Optimize(opt Optimizer, params IDSet, lr float32) error {
	ids := make([]TensorID, 0, len(params))
	for id := range params {
		if err := g.check(id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	values := make([]*tensor.Tensor[float32], len(ids))
	grads := make([]*tensor.Tensor[float32], len(ids))
	for i, id := range ids {
		values[i] = g.tensors[id]
		grads[i] = g.grads[id]
	}
	if err := opt.Step(values, grads, lr); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}
