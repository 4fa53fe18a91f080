package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func vector(t *Tensor[float32]) blas32.Vector {
	return blas32.Vector{N: len(t.data), Inc: 1, Data: t.data}
}

// Axpy computes y += alpha * x in place. Shapes must match.
func Axpy(alpha float32, x, y *Tensor[float32]) error {
	if !x.shape.Equal(y.shape) {
		return fmt.Errorf("%w: axpy %v into %v", ErrShapeMismatch, x.shape, y.shape)
	}
	blas32.Axpy(alpha, vector(x), vector(y))
	return nil
}

// Scal computes x *= alpha in place.
func Scal(alpha float32, x *Tensor[float32]) {
	blas32.Scal(alpha, vector(x))
}

// MatMul computes a @ b over the last two dimensions.
func MatMul(a, b *Tensor[float32]) (*Tensor[float32], error) {
	return MatMulTransposed(a, b, false, false)
}

// MatMulTransposed computes op(a) @ op(b), where op transposes the last two
// dimensions when the matching flag is set.
//
// Leading (batch) dimensions follow these rules:
//   - a rank-2 operand is shared across every batch of the other
//   - otherwise both batch shapes must be equal
//
// Example:
//
//	a [4, 2, 3] @ b [3, 5] -> [4, 2, 5]
func MatMulTransposed(a, b *Tensor[float32], transA, transB bool) (*Tensor[float32], error) {
	if a.Rank() < 2 || b.Rank() < 2 {
		return nil, fmt.Errorf("%w: matmul needs rank >= 2, got %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}

	ar, ac := a.shape[a.Rank()-2], a.shape[a.Rank()-1]
	br, bc := b.shape[b.Rank()-2], b.shape[b.Rank()-1]
	m, k := ar, ac
	if transA {
		m, k = ac, ar
	}
	kb, n := br, bc
	if transB {
		kb, n = bc, br
	}
	if k != kb {
		return nil, fmt.Errorf("%w: matmul inner dimensions %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}

	aBatch, bBatch := a.shape[:a.Rank()-2], b.shape[:b.Rank()-2]
	var batch Shape
	switch {
	case len(aBatch) == 0:
		batch = bBatch
	case len(bBatch) == 0, aBatch.Equal(bBatch):
		batch = aBatch
	default:
		return nil, fmt.Errorf("%w: matmul batch dimensions %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}

	shape := append(batch.Clone(), m, n)
	out := &Tensor[float32]{shape: shape, data: make([]float32, shape.NumElements())}

	tA, tB := blas.NoTrans, blas.NoTrans
	if transA {
		tA = blas.Trans
	}
	if transB {
		tB = blas.Trans
	}

	aSize, bSize, cSize := ar*ac, br*bc, m*n
	for i := range batch.NumElements() {
		aOff, bOff, cOff := 0, 0, i*cSize
		if len(aBatch) > 0 {
			aOff = i * aSize
		}
		if len(bBatch) > 0 {
			bOff = i * bSize
		}
		blas32.Gemm(tA, tB, 1,
			blas32.General{Rows: ar, Cols: ac, Stride: ac, Data: a.data[aOff : aOff+aSize]},
			blas32.General{Rows: br, Cols: bc, Stride: bc, Data: b.data[bOff : bOff+bSize]},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: out.data[cOff : cOff+cSize]},
		)
	}
	return out, nil
}
