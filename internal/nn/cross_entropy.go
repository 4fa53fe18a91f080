package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy over the last dimension of raw
// logits against integer class targets.
//
// Mathematical formulation, per row:
//
//	Loss = -log_softmax(logits)[target]
//	∂L/∂logits = softmax(logits) - one_hot(target)
//
// The log-sum-exp trick keeps the computation stable for large logits.
// For logits of shape [..., C] the targets have shape [...], and the loss
// tensor has the same shape as the targets.
type CrossEntropyLoss struct {
	targets *tensor.Tensor[int]
}

// NewCrossEntropyLoss creates a cross-entropy loss for the given targets.
func NewCrossEntropyLoss(targets *tensor.Tensor[int]) *CrossEntropyLoss {
	return &CrossEntropyLoss{targets: targets}
}

// SetTargets replaces the class targets.
func (c *CrossEntropyLoss) SetTargets(targets *tensor.Tensor[int]) {
	c.targets = targets
}

// Run computes per-row losses and the gradient with respect to the logits.
func (c *CrossEntropyLoss) Run(logits *tensor.Tensor[float32]) (*tensor.Tensor[float32], *tensor.Tensor[float32], error) {
	if c.targets == nil {
		return nil, nil, fmt.Errorf("cross entropy: %w", ErrNoTarget)
	}
	if logits.Rank() == 0 || !logits.Shape()[:logits.Rank()-1].Equal(c.targets.Shape()) {
		return nil, nil, fmt.Errorf("cross entropy: %w: logits %v, targets %v",
			tensor.ErrShapeMismatch, logits.Shape(), c.targets.Shape())
	}

	classes := logits.Shape()[logits.Rank()-1]
	loss, err := tensor.Zeros[float32](c.targets.Shape())
	if err != nil {
		return nil, nil, err
	}
	grad := tensor.ZerosLike(logits)

	ld, gd, td := logits.Data(), grad.Data(), c.targets.Data()
	for row, target := range td {
		if target < 0 || target >= classes {
			return nil, nil, fmt.Errorf("cross entropy: %w: target %d with %d classes",
				tensor.ErrIndexOutOfRange, target, classes)
		}
		x := ld[row*classes : (row+1)*classes]
		g := gd[row*classes : (row+1)*classes]

		maxLogit := x[0]
		for _, v := range x[1:] {
			maxLogit = max(maxLogit, v)
		}
		var sumExp float64
		for _, v := range x {
			sumExp += math.Exp(float64(v - maxLogit))
		}
		logSumExp := float64(maxLogit) + math.Log(sumExp)

		loss.Data()[row] = float32(logSumExp - float64(x[target]))
		for j, v := range x {
			g[j] = float32(math.Exp(float64(v) - logSumExp))
		}
		g[target]--
	}
	return loss, grad, nil
}
