package envconfig

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Training holds the settings of a training run.
type Training struct {
	Steps       int     `yaml:"steps" validate:"gte=1"`
	BatchSize   int     `yaml:"batch_size" validate:"gte=1"`
	BaseLR      float64 `yaml:"base_lr" validate:"gt=0"`
	MinLR       float64 `yaml:"min_lr" validate:"gte=0,ltefield=BaseLR"`
	WarmupSteps int     `yaml:"warmup_steps" validate:"gte=0"`
	DecaySteps  int     `yaml:"decay_steps" validate:"gte=1"`

	Optimizer   string  `yaml:"optimizer" validate:"oneof=sgd adamw"`
	Momentum    float64 `yaml:"momentum" validate:"gte=0,lt=1"`
	WeightDecay float64 `yaml:"weight_decay" validate:"gte=0"`
	DropoutRate float64 `yaml:"dropout_rate" validate:"gte=0,lt=1"`

	// BackwardLimit caps the records visited per backward pass; negative
	// means unlimited.
	BackwardLimit int `yaml:"backward_limit"`

	Seed            uint64 `yaml:"seed"`
	Workers         int    `yaml:"workers" validate:"gte=1"`
	EvalBatches     int    `yaml:"eval_batches" validate:"gte=0"`
	LogEvery        int    `yaml:"log_every" validate:"gte=1"`
	CheckpointEvery int    `yaml:"checkpoint_every" validate:"gte=0"`
	CheckpointPath  string `yaml:"checkpoint_path" validate:"required_with=CheckpointEvery"`
	HalfPrecision   bool   `yaml:"half_precision"`
}

// DefaultTraining returns the default training settings.
func DefaultTraining() Training {
	return Training{
		Steps:         1000,
		BatchSize:     16,
		BaseLR:        0.001,
		MinLR:         0.00001,
		WarmupSteps:   100,
		DecaySteps:    50000,
		Optimizer:     "adamw",
		Momentum:      0.9,
		WeightDecay:   0.01,
		BackwardLimit: -1,
		Seed:          1,
		Workers:       int(Workers()),
		EvalBatches:   4,
		LogEvery:      10,
	}
}

// LoadTraining reads a YAML file over the defaults, applies FEMTOGRAD_*
// overrides and validates the result. An empty path skips the file.
func LoadTraining(path string) (Training, error) {
	cfg := DefaultTraining()
	if path != "" {
		//nolint:gosec // G304: config path is user-supplied by design
		data, err := os.ReadFile(path)
		if err != nil {
			return Training{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Training{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Training{}, err
	}
	return cfg, nil
}

func (c *Training) applyEnv() {
	c.Steps = int(Uint("FEMTOGRAD_STEPS", uint(c.Steps))())
	c.BatchSize = int(Uint("FEMTOGRAD_BATCH_SIZE", uint(c.BatchSize))())
	c.BaseLR = Float("FEMTOGRAD_BASE_LR", c.BaseLR)()
	c.Seed = uint64(Uint("FEMTOGRAD_SEED", uint(c.Seed))())
	if s := CheckpointPath(); s != "" {
		c.CheckpointPath = s
	}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid training config")

// Validate checks field constraints.
func (c Training) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s fails %q", ErrInvalidConfig, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
