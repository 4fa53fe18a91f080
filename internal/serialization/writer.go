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

	"github.com/born-ml/femtograd/internal/tensor"
)

// WriteOptions controls checkpoint encoding.
type WriteOptions struct {
	// HalfPrecision stores tensor data as IEEE 754 half floats, halving the
	// file size at the cost of precision.
	HalfPrecision bool
}

type namedTensor struct {
	meta  TensorMeta
	value *tensor.Tensor[float32]
}

// collect lists every tensor of ckpt in file order.
func collect(ckpt *Checkpoint) []namedTensor {
	var out []namedTensor
	for _, e := range ckpt.Entries {
		out = append(out, namedTensor{TensorMeta{Name: e.Name, Kind: KindValue, ID: int(e.ID)}, e.Value})
		if e.Grad != nil {
			out = append(out, namedTensor{TensorMeta{Name: e.Name, Kind: KindGrad, ID: int(e.ID)}, e.Grad})
		}
	}
	if ckpt.AdamW != nil {
		for i, m := range ckpt.AdamW.M {
			out = append(out, namedTensor{TensorMeta{Name: fmt.Sprintf("adamw.m.%d", i), Kind: KindAdamWM, ID: i}, m})
		}
		for i, v := range ckpt.AdamW.V {
			out = append(out, namedTensor{TensorMeta{Name: fmt.Sprintf("adamw.v.%d", i), Kind: KindAdamWV, ID: i}, v})
		}
	}
	for i, v := range ckpt.SGD {
		out = append(out, namedTensor{TensorMeta{Name: fmt.Sprintf("sgd.velocity.%d", i), Kind: KindSGDVel, ID: i}, v})
	}
	return out
}

func encode(data []float32, half bool) []byte {
	if half {
		buf := make([]byte, 2*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint16(buf[2*i:], float16.Fromfloat32(v).Bits())
		}
		return buf
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// Write encodes ckpt to w.
func Write(w io.Writer, ckpt *Checkpoint, opts WriteOptions) error {
	dtype := DTypeFloat32
	flags := uint32(0)
	if opts.HalfPrecision {
		dtype = DTypeFloat16
		flags |= FlagHalfPrecision
	}

	header := Header{
		FormatVersion: FormatVersion,
		RunID:         ckpt.RunID,
		CreatedAt:     ckpt.CreatedAt,
		Step:          ckpt.Step,
		Loss:          ckpt.Loss,
		Metadata:      ckpt.Metadata,
	}
	if ckpt.AdamW != nil {
		header.Optimizer = &OptimizerMeta{Type: "adamw", Step: ckpt.AdamW.Step}
		flags |= FlagHasOptimizer
	} else if len(ckpt.SGD) > 0 {
		header.Optimizer = &OptimizerMeta{Type: "sgd"}
		flags |= FlagHasOptimizer
	}

	var data []byte
	for _, nt := range collect(ckpt) {
		if nt.meta.Kind == KindGrad {
			flags |= FlagHasGrads
		}
		encoded := encode(nt.value.Data(), opts.HalfPrecision)
		nt.meta.DType = dtype
		nt.meta.Shape = []int(nt.value.Shape().Clone())
		nt.meta.Offset = int64(len(data))
		nt.meta.Size = int64(len(encoded))
		header.Tensors = append(header.Tensors, nt.meta)
		data = append(data, encoded...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var fixed [FixedHeaderSize]byte
	copy(fixed[:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:], flags)
	binary.LittleEndian.PutUint64(fixed[headerSizeOffset:], uint64(len(headerJSON)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed[:]); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(make([]byte, padding(len(headerJSON)))); err != nil {
		return fmt.Errorf("failed to write padding: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// padding returns the bytes needed after the JSON header to align the data
// section.
func padding(headerSize int) int {
	pos := FixedHeaderSize + headerSize
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}

// Save writes ckpt to path, replacing any existing file.
func Save(path string, ckpt *Checkpoint, opts WriteOptions) error {
	//nolint:gosec // G304: checkpoint path is user-supplied by design
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	bw := bufio.NewWriter(file)
	if err := Write(bw, ckpt, opts); err != nil {
		_ = file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}
	return file.Close()
}
