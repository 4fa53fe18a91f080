package main

import (
	"errors"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/envconfig"
	"github.com/born-ml/femtograd/internal/train"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a small MLP on a synthetic regression task",
		Args:  cobra.NoArgs,
		RunE:  trainHandler,
	}
	cmd.Flags().String("config", "", "YAML training config (default $FEMTOGRAD_CONFIG)")
	cmd.Flags().Int("steps", 0, "Override the number of steps")
	cmd.Flags().Int("in", 4, "Input features")
	cmd.Flags().Int("hidden", 16, "Hidden units")
	cmd.Flags().Bool("resume", false, "Resume from the checkpoint path if it exists")
	return cmd
}

func trainHandler(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = envconfig.ConfigPath()
	}
	cfg, err := envconfig.LoadTraining(path)
	if err != nil {
		return err
	}
	if steps, _ := cmd.Flags().GetInt("steps"); steps > 0 {
		cfg.Steps = steps
	}
	in, _ := cmd.Flags().GetInt("in")
	hidden, _ := cmd.Flags().GetInt("hidden")

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	model, err := train.BuildMLP(rng, in, hidden, 1, float32(cfg.DropoutRate), autodiff.WithLogger(logger))
	if err != nil {
		return err
	}
	task, err := train.NewRegressionTask(rng, model.Input, in, 1)
	if err != nil {
		return err
	}
	trainer, err := train.New(model, task, cfg, train.WithLogger(logger))
	if err != nil {
		return err
	}

	if resume, _ := cmd.Flags().GetBool("resume"); resume && cfg.CheckpointPath != "" {
		switch _, err := os.Stat(cfg.CheckpointPath); {
		case err == nil:
			if err := trainer.Resume(cfg.CheckpointPath); err != nil {
				return err
			}
		case !errors.Is(err, os.ErrNotExist):
			return err
		}
	}

	logger.Info("training", "run", trainer.RunID(), "steps", cfg.Steps, "optimizer", cfg.Optimizer, "batch", cfg.BatchSize)
	remaining := max(cfg.Steps-trainer.StepCount(), 0)
	loss, err := trainer.Run(cmd.Context(), remaining)
	if err != nil {
		return err
	}

	eval, err := trainer.Evaluate(cmd.Context(), cfg.EvalBatches)
	if err != nil {
		return err
	}
	if cfg.CheckpointPath != "" {
		if err := trainer.Save(cfg.CheckpointPath, loss); err != nil {
			return err
		}
	}
	cmd.Printf("step %d  train loss %.6f  eval loss %.6f\n", trainer.StepCount(), loss, eval)
	return nil
}
