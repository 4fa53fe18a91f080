package tensor

import "fmt"

// Add returns a + b with NumPy-style broadcasting.
func Add[T Float](a, b *Tensor[T]) (*Tensor[T], error) {
	return binary(a, b, func(x, y T) T { return x + y })
}

// Sub returns a - b with NumPy-style broadcasting.
func Sub[T Float](a, b *Tensor[T]) (*Tensor[T], error) {
	return binary(a, b, func(x, y T) T { return x - y })
}

// Mul returns the element-wise product a * b with NumPy-style broadcasting.
func Mul[T Float](a, b *Tensor[T]) (*Tensor[T], error) {
	return binary(a, b, func(x, y T) T { return x * y })
}

// Div returns the element-wise quotient a / b with NumPy-style broadcasting.
func Div[T Float](a, b *Tensor[T]) (*Tensor[T], error) {
	return binary(a, b, func(x, y T) T { return x / y })
}

// Scale returns t * c.
func Scale[T Float](t *Tensor[T], c T) *Tensor[T] {
	return t.Map(func(v T) T { return v * c })
}

// Sum returns the sum of all elements.
func Sum[T Float](t *Tensor[T]) T {
	var sum T
	for _, v := range t.data {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean of all elements.
func Mean[T Float](t *Tensor[T]) T {
	return Sum(t) / T(len(t.data))
}

// binary applies f element-wise over the broadcast of a and b.
func binary[T Float](a, b *Tensor[T], f func(x, y T) T) (*Tensor[T], error) {
	if a.shape.Equal(b.shape) {
		out := ZerosLike(a)
		for i := range out.data {
			out.data[i] = f(a.data[i], b.data[i])
		}
		return out, nil
	}

	shape, _, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	out := &Tensor[T]{shape: shape, data: make([]T, shape.NumElements())}
	as := broadcastStrides(a.shape, shape)
	bs := broadcastStrides(b.shape, shape)
	outStrides := shape.ComputeStrides()
	for i := range out.data {
		rem, ai, bi := i, 0, 0
		for d := range shape {
			c := rem / outStrides[d]
			rem %= outStrides[d]
			ai += c * as[d]
			bi += c * bs[d]
		}
		out.data[i] = f(a.data[ai], b.data[bi])
	}
	return out, nil
}

// broadcastStrides returns strides of s aligned to out, with zero strides
// on broadcast dimensions.
func broadcastStrides(s, out Shape) []int {
	strides := s.ComputeStrides()
	res := make([]int, len(out))
	off := len(out) - len(s)
	for i := range s {
		if s[i] != 1 {
			res[off+i] = strides[i]
		}
	}
	return res
}

// SumTo reduces t to target by summing over broadcast dimensions.
// It is the backward-side inverse of broadcasting.
//
// Example:
//
//	Forward: a[3,1] + b[2,3,4] -> c[2,3,4]
//	SumTo(grad_c, [3,1]) sums the leading dimension, then dimension 1.
func SumTo[T Float](t *Tensor[T], target Shape) (*Tensor[T], error) {
	if t.shape.Equal(target) {
		return t.Clone(), nil
	}
	if len(target) > len(t.shape) {
		return nil, fmt.Errorf("%w: cannot reduce %v to %v", ErrShapeMismatch, t.shape, target)
	}

	result := t
	if lead := len(t.shape) - len(target); lead > 0 {
		folded, err := t.KeepRight(len(target))
		if err != nil {
			return nil, err
		}
		slices, err := folded.Slices()
		if err != nil {
			return nil, err
		}
		acc := ZerosLike(slices[0])
		for _, s := range slices {
			for i, v := range s.data {
				acc.data[i] += v
			}
		}
		result = acc
	}

	for d := range target {
		switch {
		case result.shape[d] == target[d]:
		case target[d] == 1:
			result = sumAlongDim(result, d)
		default:
			return nil, fmt.Errorf("%w: cannot reduce %v to %v", ErrShapeMismatch, t.shape, target)
		}
	}
	return result, nil
}

// sumAlongDim sums t along dim, keeping dim with size 1.
func sumAlongDim[T Float](t *Tensor[T], dim int) *Tensor[T] {
	outer := t.shape[:dim].NumElements()
	n := t.shape[dim]
	inner := t.shape[dim+1:].NumElements()

	shape := t.shape.Clone()
	shape[dim] = 1
	out := &Tensor[T]{shape: shape, data: make([]T, outer*inner)}
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			src := t.data[(o*n+k)*inner : (o*n+k+1)*inner]
			dst := out.data[o*inner : (o+1)*inner]
			for i, v := range src {
				dst[i] += v
			}
		}
	}
	return out
}
