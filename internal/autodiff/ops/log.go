package ops

import (
	"math"

	"github.com/born-ml/femtograd/internal/tensor"
)

// LogOp represents element-wise natural logarithm: output = log(x).
//
// Backward pass:
//   - d(log(x))/dx = 1/x
//
// Input values must be positive.
type LogOp struct{}

// NewLogOp creates a new LogOp.
func NewLogOp() *LogOp {
	return &LogOp{}
}

// Forward computes log(x).
func (op *LogOp) Forward(inputs []*tensor.Tensor[float32], _ bool) (*tensor.Tensor[float32], error) {
	if err := checkArity("log", inputs, 1); err != nil {
		return nil, err
	}
	return inputs[0].Map(func(v float32) float32 { return float32(math.Log(float64(v))) }), nil
}

// Backward computes input gradient for log.
func (op *LogOp) Backward(inputs []*tensor.Tensor[float32], outputGrad *tensor.Tensor[float32]) ([]*tensor.Tensor[float32], error) {
	if err := checkArity("log", inputs, 1); err != nil {
		return nil, err
	}
	grad, err := tensor.Div(outputGrad, inputs[0])
	return grads(err, grad)
}

// Clone returns a new LogOp.
func (op *LogOp) Clone() Operation {
	return &LogOp{}
}
