package tensor

import "fmt"

// Gather looks up rows of table for every index in indices.
//
// The result has shape indices.Shape() followed by table.Shape()[1:].
//
// Example:
//
//	table [5, 3], indices [2, 4] -> result [2, 4, 3]
func Gather[T DType](table *Tensor[T], indices *Tensor[int]) (*Tensor[T], error) {
	if len(table.shape) == 0 {
		return nil, fmt.Errorf("%w: cannot gather from a scalar", ErrIndexOutOfRange)
	}
	rowShape := table.shape[1:]
	rowSize := rowShape.NumElements()

	shape := append(indices.shape.Clone(), rowShape...)
	out := &Tensor[T]{shape: shape, data: make([]T, 0, len(indices.data)*rowSize)}
	for _, idx := range indices.data {
		if idx < 0 || idx >= table.shape[0] {
			return nil, fmt.Errorf("%w: row %d of table with %d rows", ErrIndexOutOfRange, idx, table.shape[0])
		}
		out.data = append(out.data, table.data[idx*rowSize:(idx+1)*rowSize]...)
	}
	return out, nil
}
