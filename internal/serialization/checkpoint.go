package serialization

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/optim"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Entry is one graph slot captured in a checkpoint.
type Entry struct {
	ID    autodiff.TensorID
	Name  string
	Value *tensor.Tensor[float32]
	Grad  *tensor.Tensor[float32] // nil unless gradients were captured
}

// Checkpoint is an in-memory training checkpoint.
type Checkpoint struct {
	RunID     uuid.UUID
	CreatedAt time.Time
	Step      int
	Loss      float32
	Entries   []Entry // ascending id order
	AdamW     *optim.AdamWState
	SGD       []*tensor.Tensor[float32] // momentum buffers, nil when absent
	Metadata  map[string]string
}

// SnapshotOptions controls what Snapshot captures.
type SnapshotOptions struct {
	RunID     uuid.UUID // generated when zero
	Step      int
	Loss      float32
	WithGrads bool
	AdamW     *optim.AdamW
	SGD       *optim.SGD
	Metadata  map[string]string
}

// Snapshot copies the given slots of g into a checkpoint.
func Snapshot(g *autodiff.Graph, ids autodiff.IDSet, opts SnapshotOptions) (*Checkpoint, error) {
	order := make([]autodiff.TensorID, 0, len(ids))
	for id := range ids {
		order = append(order, id)
	}
	slices.Sort(order)

	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	ckpt := &Checkpoint{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Step:      opts.Step,
		Loss:      opts.Loss,
		Entries:   make([]Entry, 0, len(order)),
		Metadata:  opts.Metadata,
	}

	for _, id := range order {
		value, err := g.Get(id)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		name, err := g.NameOf(id)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		e := Entry{ID: id, Name: name, Value: value.Clone()}
		if opts.WithGrads {
			grad, err := g.GetGrad(id)
			if err != nil {
				return nil, fmt.Errorf("snapshot: %w", err)
			}
			e.Grad = grad.Clone()
		}
		ckpt.Entries = append(ckpt.Entries, e)
	}

	if opts.AdamW != nil {
		state := opts.AdamW.State()
		ckpt.AdamW = &state
	}
	if opts.SGD != nil {
		ckpt.SGD = opts.SGD.Velocities()
	}
	return ckpt, nil
}

// Restore loads checkpoint entries back into g.
//
// Every entry's id must exist in g under the same name. Values are copied,
// so the checkpoint can be restored again.
func Restore(g *autodiff.Graph, ckpt *Checkpoint) error {
	for _, e := range ckpt.Entries {
		name, err := g.NameOf(e.ID)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if name != e.Name {
			return fmt.Errorf("restore %d: %w: checkpoint has %q, graph has %q", e.ID, ErrNameMismatch, e.Name, name)
		}
	}

	for _, e := range ckpt.Entries {
		if err := g.Load(e.ID, e.Value.Clone()); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if e.Grad != nil {
			if err := g.LoadGrad(e.ID, e.Grad.Clone()); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
		}
	}
	return nil
}

// RestoreAdamW applies the checkpoint's optimizer state, if any.
func RestoreAdamW(opt *optim.AdamW, ckpt *Checkpoint) error {
	if ckpt.AdamW == nil {
		return nil
	}
	return opt.SetState(*ckpt.AdamW)
}

// RestoreSGD applies the checkpoint's momentum buffers. A checkpoint without
// them resets opt.
func RestoreSGD(opt *optim.SGD, ckpt *Checkpoint) {
	opt.SetVelocities(ckpt.SGD)
}
