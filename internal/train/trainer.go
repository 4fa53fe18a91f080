// Package train drives minibatch training of an autodiff graph.
//
// One step samples a batch, loads it into the input leaves, runs a training
// forward pass, clears gradients, backpropagates the loss and applies the
// optimizer at the scheduled learning rate.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/envconfig"
	"github.com/born-ml/femtograd/internal/optim"
	"github.com/born-ml/femtograd/internal/parallel"
	"github.com/born-ml/femtograd/internal/serialization"
	"github.com/born-ml/femtograd/internal/tensor"
)

// ErrNoSampler is returned when a trainer is built without a sampler.
var ErrNoSampler = errors.New("train: sampler is required")

// Trainer owns the training loop state.
type Trainer struct {
	model   *Model
	sampler Sampler
	opt     autodiff.Optimizer
	sched   Schedule
	cfg     envconfig.Training
	rng     *rand.Rand
	logger  *slog.Logger
	runID   uuid.UUID
	step    int
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the trainer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

// WithOptimizer overrides the optimizer selected by the configuration.
func WithOptimizer(opt autodiff.Optimizer) Option {
	return func(t *Trainer) { t.opt = opt }
}

// NewOptimizer builds the optimizer named by cfg.Optimizer.
func NewOptimizer(cfg envconfig.Training) (autodiff.Optimizer, error) {
	switch cfg.Optimizer {
	case "sgd":
		return optim.NewSGD(float32(cfg.Momentum)), nil
	case "adamw":
		decay := float32(cfg.WeightDecay)
		if decay == 0 {
			decay = -1
		}
		return optim.NewAdamW(optim.AdamWConfig{WeightDecay: decay}), nil
	default:
		return nil, fmt.Errorf("%w: unknown optimizer %q", envconfig.ErrInvalidConfig, cfg.Optimizer)
	}
}

// New creates a trainer. The configuration is validated first.
func New(model *Model, sampler Sampler, cfg envconfig.Training, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, ErrNoSampler
	}
	t := &Trainer{
		model:   model,
		sampler: sampler,
		sched: Schedule{
			BaseLR:      float32(cfg.BaseLR),
			MinLR:       float32(cfg.MinLR),
			WarmupSteps: cfg.WarmupSteps,
			DecaySteps:  cfg.DecaySteps,
		},
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger: slog.Default(),
		runID:  uuid.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.opt == nil {
		opt, err := NewOptimizer(cfg)
		if err != nil {
			return nil, err
		}
		t.opt = opt
	}
	return t, nil
}

// StepCount returns the number of completed steps.
func (t *Trainer) StepCount() int {
	return t.step
}

// RunID identifies this training run in checkpoints.
func (t *Trainer) RunID() uuid.UUID {
	return t.runID
}

func (t *Trainer) load(g *autodiff.Graph, b Batch) error {
	for id, value := range b.Inputs {
		if err := g.Load(id, value); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one training step and returns the mean batch loss.
func (t *Trainer) Step() (float32, error) {
	g := t.model.Graph
	batch, err := t.sampler.Sample(t.rng, t.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("step %d: sample: %w", t.step, err)
	}
	if err := t.load(g, batch); err != nil {
		return 0, fmt.Errorf("step %d: %w", t.step, err)
	}
	if err := g.Forward(true); err != nil {
		return 0, fmt.Errorf("step %d: %w", t.step, err)
	}
	g.ZeroGrad()
	loss, err := g.BackwardAll(t.model.Output, batch.Loss, t.cfg.BackwardLimit)
	if err != nil {
		return 0, fmt.Errorf("step %d: %w", t.step, err)
	}
	if err := g.Optimize(t.opt, t.model.Params, t.sched.LR(t.step)); err != nil {
		return 0, fmt.Errorf("step %d: %w", t.step, err)
	}
	t.step++
	return loss, nil
}

// Run trains for steps more steps, stopping early if ctx is canceled.
// It returns the loss of the last completed step.
func (t *Trainer) Run(ctx context.Context, steps int) (float32, error) {
	var loss float32
	for range steps {
		if err := ctx.Err(); err != nil {
			return loss, err
		}
		lr := t.sched.LR(t.step)
		l, err := t.Step()
		if err != nil {
			return loss, err
		}
		loss = l

		if t.step%t.cfg.LogEvery == 0 {
			t.logger.Info("train", "step", t.step, "loss", loss, "lr", lr)
		}
		if t.cfg.CheckpointEvery > 0 && t.step%t.cfg.CheckpointEvery == 0 {
			if err := t.Save(t.cfg.CheckpointPath, loss); err != nil {
				return loss, err
			}
		}
	}
	return loss, nil
}

// Evaluate computes the mean loss over batches freshly sampled batches
// without dropout. Batches run concurrently on clones of the graph, so the
// trainer's own graph is left untouched.
func (t *Trainer) Evaluate(ctx context.Context, batches int) (float32, error) {
	if batches <= 0 {
		return 0, nil
	}
	// Sampling uses the trainer's rng and therefore stays sequential.
	samples := make([]Batch, batches)
	for i := range samples {
		b, err := t.sampler.Sample(t.rng, t.cfg.BatchSize)
		if err != nil {
			return 0, fmt.Errorf("evaluate: sample: %w", err)
		}
		samples[i] = b
	}

	losses := make([]float32, batches)
	cfg := parallel.Config{Enabled: t.cfg.Workers > 1, NumWorkers: t.cfg.Workers}
	err := parallel.OverClones(ctx, t.model.Graph, batches, func(_ context.Context, i int, g *autodiff.Graph) error {
		if err := t.load(g, samples[i]); err != nil {
			return err
		}
		if err := g.Forward(false); err != nil {
			return err
		}
		out, err := g.Get(t.model.Output)
		if err != nil {
			return err
		}
		l, _, err := samples[i].Loss.Run(out)
		if err != nil {
			return err
		}
		losses[i] = tensor.Mean(l)
		return nil
	}, cfg)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %w", err)
	}

	var sum float32
	for _, l := range losses {
		sum += l
	}
	mean := sum / float32(batches)
	t.logger.Debug("evaluate", "step", t.step, "batches", batches, "loss", mean)
	return mean, nil
}

// Checkpoint snapshots the trainable tensors and optimizer state.
func (t *Trainer) Checkpoint(loss float32) (*serialization.Checkpoint, error) {
	opts := serialization.SnapshotOptions{
		RunID: t.runID,
		Step:  t.step,
		Loss:  loss,
		Metadata: map[string]string{
			"optimizer": t.cfg.Optimizer,
		},
	}
	switch opt := t.opt.(type) {
	case *optim.AdamW:
		opts.AdamW = opt
	case *optim.SGD:
		opts.SGD = opt
	}
	return serialization.Snapshot(t.model.Graph, t.model.Params, opts)
}

// Save writes a checkpoint to path.
func (t *Trainer) Save(path string, loss float32) error {
	ckpt, err := t.Checkpoint(loss)
	if err != nil {
		return err
	}
	if err := serialization.Save(path, ckpt, serialization.WriteOptions{HalfPrecision: t.cfg.HalfPrecision}); err != nil {
		return err
	}
	t.logger.Info("checkpoint saved", "path", path, "step", t.step)
	return nil
}

// Resume restores parameters, optimizer state and the step counter from a
// checkpoint file. AdamW moments and SGD momentum buffers are restored when
// the checkpoint carries them; other optimizers restart from zero state.
func (t *Trainer) Resume(path string) error {
	ckpt, err := serialization.Load(path)
	if err != nil {
		return err
	}
	if err := serialization.Restore(t.model.Graph, ckpt); err != nil {
		return err
	}
	switch opt := t.opt.(type) {
	case *optim.AdamW:
		if err := serialization.RestoreAdamW(opt, ckpt); err != nil {
			return err
		}
	case *optim.SGD:
		serialization.RestoreSGD(opt, ckpt)
	}
	t.step = ckpt.Step
	t.runID = ckpt.RunID
	t.logger.Info("checkpoint restored", "path", path, "step", t.step, "run", t.runID)
	return nil
}
