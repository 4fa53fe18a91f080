package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/x448/float16"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/optim"
	"github.com/born-ml/femtograd/internal/tensor"
)

// Read decodes a checkpoint from r, verifying its checksum and layout.
func Read(r io.Reader) (*Checkpoint, error) {
	var fixed [FixedHeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:]); v != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[headerSizeOffset:])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if _, err := io.CopyN(io.Discard, r, int64(padding(int(headerSize)))); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return assemble(&header, data)
}

func decode(meta TensorMeta, data []byte) (*tensor.Tensor[float32], error) {
	raw := data[meta.Offset : meta.Offset+meta.Size]
	var values []float32
	switch meta.DType {
	case DTypeFloat16:
		values = make([]float32, len(raw)/2)
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
	case DTypeFloat32:
		values = make([]float32, len(raw)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	default:
		return nil, fmt.Errorf("tensor %q: %w: %q", meta.Name, ErrUnsupportedDType, meta.DType)
	}
	return tensor.New(tensor.Shape(meta.Shape), values)
}

// assemble rebuilds a Checkpoint from a validated header and data section.
func assemble(h *Header, data []byte) (*Checkpoint, error) {
	ckpt := &Checkpoint{
		RunID:     h.RunID,
		CreatedAt: h.CreatedAt,
		Step:      h.Step,
		Loss:      h.Loss,
		Metadata:  h.Metadata,
	}
	index := make(map[int]int) // graph id -> entry position
	var m, v, vel []*tensor.Tensor[float32]

	for _, meta := range h.Tensors {
		t, err := decode(meta, data)
		if err != nil {
			return nil, err
		}
		switch meta.Kind {
		case KindValue:
			if _, dup := index[meta.ID]; dup {
				return nil, &ValidationError{Type: "duplicate_tensor", Tensor: meta.Name, Details: fmt.Sprintf("id %d", meta.ID)}
			}
			index[meta.ID] = len(ckpt.Entries)
			ckpt.Entries = append(ckpt.Entries, Entry{ID: autodiff.TensorID(meta.ID), Name: meta.Name, Value: t})
		case KindGrad:
			pos, ok := index[meta.ID]
			if !ok {
				return nil, &ValidationError{Type: "orphan_grad", Tensor: meta.Name, Details: fmt.Sprintf("no value for id %d", meta.ID)}
			}
			ckpt.Entries[pos].Grad = t
		case KindAdamWM:
			m = append(m, t)
		case KindAdamWV:
			v = append(v, t)
		case KindSGDVel:
			vel = append(vel, t)
		default:
			return nil, &ValidationError{Type: "unknown_kind", Tensor: meta.Name, Details: meta.Kind}
		}
	}

	if h.Optimizer != nil {
		switch h.Optimizer.Type {
		case "adamw":
			ckpt.AdamW = &optim.AdamWState{Step: h.Optimizer.Step, M: m, V: v}
		case "sgd":
			ckpt.SGD = vel
		default:
			return nil, &ValidationError{Type: "unknown_optimizer", Details: h.Optimizer.Type}
		}
	}
	return ckpt, nil
}

// Load reads a checkpoint file.
func Load(path string) (*Checkpoint, error) {
	//nolint:gosec // G304: checkpoint path is user-supplied by design
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Read(bufio.NewReader(file))
}
