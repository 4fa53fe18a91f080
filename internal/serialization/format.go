package serialization

import (
	"time"

	"github.com/google/uuid"
)

// Format constants.
const (
	MagicBytes       = "FGRD"
	FormatVersion    = 1
	HeaderAlignment  = 64   // tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64   // 0x40 bytes
	ChecksumSize     = 32   // SHA-256
	ChecksumOffset   = 0x20 // checksum position in the fixed header
	headerSizeOffset = 0x10
)

// Data type strings used in tensor metadata.
const (
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16"
)

// Flags stored in the fixed header.
const (
	FlagHalfPrecision uint32 = 1 << 0 // tensor data stored as float16
	FlagHasOptimizer  uint32 = 1 << 1 // optimizer state included
	FlagHasGrads      uint32 = 1 << 2 // gradients included
)

// Tensor kinds.
const (
	KindValue  = "value"
	KindGrad   = "grad"
	KindAdamWM = "adamw.m"
	KindAdamWV = "adamw.v"
	KindSGDVel = "sgd.velocity"
)

// Header is the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	RunID         uuid.UUID         `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Step          int               `json:"step"`
	Loss          float32           `json:"loss"`
	Tensors       []TensorMeta      `json:"tensors"`
	Optimizer     *OptimizerMeta    `json:"optimizer,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// OptimizerMeta describes saved optimizer state. Its buffers are stored as
// tensors of the matching kind.
type OptimizerMeta struct {
	Type string `json:"type"` // "adamw" or "sgd"
	Step int    `json:"step"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	ID     int    `json:"id"` // graph id for values and grads, position for optimizer buffers
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

func dtypeSize(dtype string) (int, bool) {
	switch dtype {
	case DTypeFloat32:
		return 4, true
	case DTypeFloat16:
		return 2, true
	default:
		return 0, false
	}
}
