package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/femtograd/internal/autodiff/ops"
	"github.com/born-ml/femtograd/internal/tensor"
)

// errGradcheckFailed is returned when at least one operation disagrees with
// its numeric gradient.
var errGradcheckFailed = errors.New("gradient check failed")

type gradcase struct {
	name   string
	op     ops.Operation
	shapes []tensor.Shape
	lo, hi float32
	kink   bool // keep inputs at least 0.1 away from zero
}

func gradcases() ([]gradcase, error) {
	mask, err := tensor.FromSlice([]bool{false, true, false, false, false, true}, tensor.Shape{2, 3})
	if err != nil {
		return nil, err
	}
	dropout, err := ops.NewDropoutOp(0.5, 1)
	if err != nil {
		return nil, err
	}
	return []gradcase{
		{"add", ops.NewAddOp(), []tensor.Shape{{2, 3}, {3}}, -1, 1, false},
		{"sub", ops.NewSubOp(), []tensor.Shape{{2, 3}, {2, 1}}, -1, 1, false},
		{"mul", ops.NewMulOp(), []tensor.Shape{{3, 4}, {1, 4}}, -1, 1, false},
		{"div", ops.NewDivOp(), []tensor.Shape{{5}, {5}}, 1, 2, false},
		{"coeff", ops.NewCoeffOp(-1.5), []tensor.Shape{{2, 2}}, -1, 1, false},
		{"mask", ops.NewMaskOp(mask, -5), []tensor.Shape{{3, 2, 3}}, -1, 1, false},
		{"matmul", ops.NewMatMulOp(), []tensor.Shape{{2, 3, 4}, {4, 2}}, -1, 1, false},
		{"relu", ops.NewReLUOp(), []tensor.Shape{{8}}, -1, 1, true},
		{"sigmoid", ops.NewSigmoidOp(), []tensor.Shape{{6}}, -2, 2, false},
		{"tanh", ops.NewTanhOp(), []tensor.Shape{{2, 3}}, -2, 2, false},
		{"exp", ops.NewExpOp(), []tensor.Shape{{4}}, -1, 1, false},
		{"log", ops.NewLogOp(), []tensor.Shape{{4}}, 0.5, 2, false},
		{"softmax", ops.NewSoftmaxOp(), []tensor.Shape{{2, 2, 5}}, -2, 2, false},
		{"dropout", dropout, []tensor.Shape{{10}}, -1, 1, false},
	}, nil
}

func newGradcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "Compare every operation's gradient with central differences",
		Args:  cobra.NoArgs,
		RunE:  gradcheckHandler,
	}
	cmd.Flags().Uint64("seed", 1, "Random seed for inputs")
	cmd.Flags().Float32("epsilon", ops.DefaultGradCheckConfig().Epsilon, "Finite difference step")
	return cmd
}

func gradcheckHandler(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)
	seed, _ := cmd.Flags().GetUint64("seed")
	cfg := ops.DefaultGradCheckConfig()
	cfg.Epsilon, _ = cmd.Flags().GetFloat32("epsilon")
	cfg.Seed = seed

	cases, err := gradcases()
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	var data [][]string
	failed := 0
	for _, c := range cases {
		inputs := make([]*tensor.Tensor[float32], len(c.shapes))
		for i, shape := range c.shapes {
			x, err := tensor.Rand(rng, shape)
			if err != nil {
				return err
			}
			inputs[i] = x.Map(func(v float32) float32 {
				v = c.lo + (v+1)/2*(c.hi-c.lo)
				if c.kink && v > -0.1 && v < 0.1 {
					v += 0.2
				}
				return v
			})
		}

		status, detail := "ok", ""
		if err := ops.CheckGradient(c.op, inputs, cfg); err != nil {
			failed++
			status, detail = "FAIL", err.Error()
			logger.Debug("gradcheck failed", "op", c.name, "error", err)
		}
		data = append(data, []string{c.name, fmt.Sprint(c.shapes), status, detail})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"OP", "INPUTS", "STATUS", "DETAIL"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d operations", errGradcheckFailed, failed, len(cases))
	}
	return nil
}
