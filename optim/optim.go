// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers that plug into autodiff.Graph.Optimize.
//
// Example:
//
//	opt := optim.NewAdamW(optim.AdamWConfig{})
//	_ = g.Optimize(opt, params, 1e-3)
package optim

import (
	"github.com/born-ml/femtograd/internal/optim"
)

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// NewSGD creates an SGD optimizer. A zero momentum gives plain SGD.
func NewSGD(momentum float32) *SGD { return optim.NewSGD(momentum) }

// AdamW is Adam with decoupled weight decay.
type AdamW = optim.AdamW

// AdamWConfig holds AdamW hyperparameters. Zero fields take defaults.
type AdamWConfig = optim.AdamWConfig

// AdamWState is AdamW's checkpointable state.
type AdamWState = optim.AdamWState

// NewAdamW creates an AdamW optimizer.
func NewAdamW(cfg AdamWConfig) *AdamW { return optim.NewAdamW(cfg) }

// Errors returned by optimizer steps.
var (
	ErrLengthMismatch = optim.ErrLengthMismatch
	ErrStateMismatch  = optim.ErrStateMismatch
)
