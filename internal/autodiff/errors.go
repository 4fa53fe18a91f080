package autodiff

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrTensorNotFound = errors.New("tensor not found")
	// ErrBackend is reserved for accelerator backends; the CPU path never returns it.
	ErrBackend = errors.New("backend error")
)

// NotFoundError reports an id that does not name a slot in the graph.
type NotFoundError struct {
	ID TensorID
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tensor %d not found", e.ID)
}

// Unwrap returns ErrTensorNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrTensorNotFound
}
