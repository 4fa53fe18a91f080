package tensor

import "errors"

// Tensor-level errors. Every fallible function in this package wraps one of these.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrInvalidBroadcast = errors.New("shapes not compatible for broadcasting")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrBufferLength     = errors.New("buffer length does not match shape")
	ErrInvalidShape     = errors.New("invalid shape")
)
