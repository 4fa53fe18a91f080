package nn

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/femtograd/internal/tensor"
)

// Xavier returns a tensor drawn from the Xavier/Glorot uniform distribution:
//
//	U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
func Xavier(rng *rand.Rand, fanIn, fanOut int, shape tensor.Shape) (*tensor.Tensor[float32], error) {
	t, err := tensor.Rand(rng, shape)
	if err != nil {
		return nil, err
	}
	tensor.Scal(float32(math.Sqrt(6.0/float64(fanIn+fanOut))), t)
	return t, nil
}
