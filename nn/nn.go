// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layers and losses built on autodiff graphs.
//
// Example:
//
//	g := autodiff.New()
//	fc, _ := nn.NewLinear(g, rng, 784, 10, "fc")
//	logits, _ := fc.Apply(x)
//	loss, _ := g.BackwardAll(logits, nn.NewCrossEntropyLoss(labels), autodiff.NoLimit)
package nn

import (
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/nn"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Linear is a fully connected layer y = x @ W + b.
type Linear = nn.Linear

// NewLinear allocates a layer's parameters in g.
func NewLinear(g *autodiff.Graph, rng *rand.Rand, in, out int, name string) (*Linear, error) {
	return nn.NewLinear(g, rng, in, out, name)
}

// Xavier returns a Glorot-uniform initialized tensor.
func Xavier(rng *rand.Rand, fanIn, fanOut int, shape tensor.Shape) (*tensor.Tensor[float32], error) {
	return nn.Xavier(rng, fanIn, fanOut, shape)
}

// Identity uses the output itself as the loss.
type Identity = nn.Identity

// MSELoss is the squared error against a target.
type MSELoss = nn.MSELoss

// NewMSELoss creates a squared-error loss.
func NewMSELoss(target *tensor.Tensor[float32]) *MSELoss { return nn.NewMSELoss(target) }

// CrossEntropyLoss is softmax cross-entropy against class indices.
type CrossEntropyLoss = nn.CrossEntropyLoss

// NewCrossEntropyLoss creates a cross-entropy loss.
func NewCrossEntropyLoss(targets *tensor.Tensor[int]) *CrossEntropyLoss {
	return nn.NewCrossEntropyLoss(targets)
}
