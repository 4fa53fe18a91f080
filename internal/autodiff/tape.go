package autodiff

import (
	"fmt"

	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// computation records how a derived tensor was produced.
type computation struct {
	inputs []TensorID
	op     ops.Operation
}

func (c computation) clone() computation {
	return computation{
		inputs: append([]TensorID(nil), c.inputs...),
		op:     c.op.Clone(),
	}
}

// Forward recomputes every derived tensor from the current leaves.
//
// Records are replayed in creation order, so each operation sees refreshed
// inputs. training is passed to every operation. On error the pass stops:
// earlier outputs keep their new values and later ones are left stale.
// Gradients are not touched, except that an output whose shape changed gets
// a zero gradient of the new shape.
func (g *Graph) Forward(training bool) error {
	it := g.computations.Iterator()
	for it.Next() {
		id, c := it.Key(), it.Value()
		inputs, err := g.gather(c.inputs)
		if err != nil {
			return err
		}
		out, err := c.op.Forward(inputs, training)
		if err != nil {
			return fmt.Errorf("forward %d (%T): %w", id, c.op, err)
		}
		if !out.Shape().Equal(g.grads[id].Shape()) {
			g.grads[id] = tensor.ZerosLike(out)
		}
		g.tensors[id] = out
	}
	g.logger.Debug("forward pass", "computations", g.computations.Size(), "training", training)
	return nil
}
