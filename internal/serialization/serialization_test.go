package serialization_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/femtograd/internal/autodiff"
	"github.com/born-ml/femtograd/internal/optim"
	"github.com/born-ml/femtograd/internal/serialization"
	"github.com/born-ml/femtograd/internal/tensor"
)

func mustTensor(t *testing.T, data []float32, shape ...int) *tensor.Tensor[float32] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

// newGraph returns a graph with two named parameters and one unrelated leaf.
func newGraph(t *testing.T) (*autodiff.Graph, autodiff.IDSet) {
	t.Helper()
	g := autodiff.New()
	w := g.Alloc(mustTensor(t, []float32{0.5, -1.25, 2, 3}, 2, 2), "w")
	g.Alloc(mustTensor(t, []float32{9}, 1), "input")
	b := g.Alloc(mustTensor(t, []float32{0.125, 4}, 2), "b")
	require.NoError(t, g.LoadGrad(w, mustTensor(t, []float32{1, 2, 3, 4}, 2, 2)))
	return g, autodiff.NewIDSet(w, b)
}

func roundTrip(t *testing.T, ckpt *serialization.Checkpoint, opts serialization.WriteOptions) *serialization.Checkpoint {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, ckpt, opts))
	out, err := serialization.Read(&buf)
	require.NoError(t, err)
	return out
}

func TestSnapshotRestore(t *testing.T) {
	g, params := newGraph(t)
	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{Step: 7, Loss: 0.25, WithGrads: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ckpt.RunID)
	require.Len(t, ckpt.Entries, 2)
	assert.Equal(t, autodiff.TensorID(0), ckpt.Entries[0].ID)
	assert.Equal(t, "b", ckpt.Entries[1].Name)

	// Mutate the graph, then restore.
	require.NoError(t, g.Load(0, mustTensor(t, []float32{0, 0, 0, 0}, 2, 2)))
	g.ZeroGrad()
	require.NoError(t, serialization.Restore(g, ckpt))

	w, err := g.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 2, 3}, w.Data())
	gw, err := g.GetGrad(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, gw.Data())
}

func TestRestore_NameMismatch(t *testing.T) {
	g, params := newGraph(t)
	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{})
	require.NoError(t, err)

	other := autodiff.New()
	other.Alloc(mustTensor(t, []float32{1, 2, 3, 4}, 2, 2), "not-w")
	require.ErrorIs(t, serialization.Restore(other, ckpt), serialization.ErrNameMismatch)

	empty := autodiff.New()
	require.ErrorIs(t, serialization.Restore(empty, ckpt), autodiff.ErrTensorNotFound)
}

func TestWriteRead_Float32(t *testing.T) {
	g, params := newGraph(t)
	adam := optim.NewAdamW(optim.AdamWConfig{})
	require.NoError(t, g.Optimize(adam, params, 0.01))

	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{
		Step:      3,
		Loss:      1.5,
		WithGrads: true,
		AdamW:     adam,
		Metadata:  map[string]string{"dataset": "linreg"},
	})
	require.NoError(t, err)

	got := roundTrip(t, ckpt, serialization.WriteOptions{})
	assert.Equal(t, ckpt.RunID, got.RunID)
	assert.True(t, ckpt.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, float32(1.5), got.Loss)
	assert.Equal(t, "linreg", got.Metadata["dataset"])

	require.Len(t, got.Entries, 2)
	for i, e := range ckpt.Entries {
		assert.Equal(t, e.ID, got.Entries[i].ID)
		assert.Equal(t, e.Name, got.Entries[i].Name)
		assert.True(t, e.Value.Equal(got.Entries[i].Value), e.Name)
		assert.True(t, e.Grad.Equal(got.Entries[i].Grad), e.Name)
	}

	require.NotNil(t, got.AdamW)
	assert.Equal(t, 1, got.AdamW.Step)
	require.Len(t, got.AdamW.M, 2)
	assert.True(t, ckpt.AdamW.M[0].Equal(got.AdamW.M[0]))
	assert.True(t, ckpt.AdamW.V[1].Equal(got.AdamW.V[1]))

	restored := optim.NewAdamW(optim.AdamWConfig{})
	require.NoError(t, serialization.RestoreAdamW(restored, got))
	assert.Equal(t, 1, restored.State().Step)
}

func TestWriteRead_SGDMomentum(t *testing.T) {
	g, params := newGraph(t)
	sgd := optim.NewSGD(0.9)
	require.NoError(t, g.Optimize(sgd, params, 0.01))

	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{SGD: sgd})
	require.NoError(t, err)
	require.Len(t, ckpt.SGD, 2)

	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, ckpt, serialization.WriteOptions{}))
	flags := binary.LittleEndian.Uint32(buf.Bytes()[8:])
	assert.NotZero(t, flags&serialization.FlagHasOptimizer)

	got, err := serialization.Read(&buf)
	require.NoError(t, err)
	assert.Nil(t, got.AdamW)
	require.Len(t, got.SGD, 2)
	for i, v := range ckpt.SGD {
		assert.True(t, v.Equal(got.SGD[i]), "velocity %d", i)
	}

	restored := optim.NewSGD(0.9)
	serialization.RestoreSGD(restored, got)
	want := sgd.Velocities()
	for i, v := range restored.Velocities() {
		assert.True(t, want[i].Equal(v), "velocity %d", i)
	}
}

func TestWriteRead_HalfPrecision(t *testing.T) {
	g, params := newGraph(t)
	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{})
	require.NoError(t, err)

	var full, half bytes.Buffer
	require.NoError(t, serialization.Write(&full, ckpt, serialization.WriteOptions{}))
	require.NoError(t, serialization.Write(&half, ckpt, serialization.WriteOptions{HalfPrecision: true}))

	flags := binary.LittleEndian.Uint32(half.Bytes()[8:])
	assert.NotZero(t, flags&serialization.FlagHalfPrecision)

	got, err := serialization.Read(&half)
	require.NoError(t, err)
	// Values chosen to be exact in float16.
	if diff := cmp.Diff(ckpt.Entries[0].Value.Data(), got.Entries[0].Value.Data(), cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Errorf("half precision mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.Entries[0].Grad)
	assert.Nil(t, got.AdamW)
}

func TestRead_Corruption(t *testing.T) {
	g, params := newGraph(t)
	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, ckpt, serialization.WriteOptions{}))
	valid := buf.Bytes()

	t.Run("magic", func(t *testing.T) {
		b := bytes.Clone(valid)
		copy(b, "NOPE")
		_, err := serialization.Read(bytes.NewReader(b))
		require.ErrorIs(t, err, serialization.ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		b := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(b[4:], 99)
		_, err := serialization.Read(bytes.NewReader(b))
		require.ErrorIs(t, err, serialization.ErrUnsupportedVersion)
	})

	t.Run("data", func(t *testing.T) {
		b := bytes.Clone(valid)
		b[len(b)-1] ^= 0xFF
		_, err := serialization.Read(bytes.NewReader(b))
		require.ErrorIs(t, err, serialization.ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := serialization.Read(bytes.NewReader(valid[:10]))
		require.Error(t, err)
	})

	t.Run("overflowing shape", func(t *testing.T) {
		b := rawCheckpoint(t, serialization.Header{
			FormatVersion: serialization.FormatVersion,
			Tensors: []serialization.TensorMeta{{
				Name:  "w",
				Kind:  serialization.KindValue,
				DType: serialization.DTypeFloat32,
				Shape: []int{math.MaxInt/4 + 1, 8},
			}},
		}, nil)
		_, err := serialization.Read(bytes.NewReader(b))
		var verr *serialization.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "shape_overflow", verr.Type)
	})

	t.Run("offset overflow", func(t *testing.T) {
		b := rawCheckpoint(t, serialization.Header{
			FormatVersion: serialization.FormatVersion,
			Tensors: []serialization.TensorMeta{{
				Name:   "w",
				Kind:   serialization.KindValue,
				DType:  serialization.DTypeFloat32,
				Shape:  []int{1},
				Offset: math.MaxInt64 - 1,
				Size:   4,
			}},
		}, make([]byte, 4))
		_, err := serialization.Read(bytes.NewReader(b))
		var verr *serialization.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "out_of_bounds", verr.Type)
	})
}

// rawCheckpoint encodes an arbitrary header and data section with a valid
// checksum, bypassing Write's consistency.
func rawCheckpoint(t *testing.T, h serialization.Header, data []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(h)
	require.NoError(t, err)

	fixed := make([]byte, serialization.FixedHeaderSize)
	copy(fixed, serialization.MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:], serialization.FormatVersion)
	binary.LittleEndian.PutUint64(fixed[0x10:], uint64(len(headerJSON)))
	sum := serialization.ComputeChecksum(data)
	copy(fixed[serialization.ChecksumOffset:], sum[:])

	pos := serialization.FixedHeaderSize + len(headerJSON)
	pad := (serialization.HeaderAlignment - pos%serialization.HeaderAlignment) % serialization.HeaderAlignment

	out := append(fixed, headerJSON...)
	out = append(out, make([]byte, pad)...)
	return append(out, data...)
}

func TestValidateHeader(t *testing.T) {
	base := func() serialization.Header {
		return serialization.Header{
			FormatVersion: serialization.FormatVersion,
			Tensors: []serialization.TensorMeta{
				{Name: "a", Kind: serialization.KindValue, DType: serialization.DTypeFloat32, Shape: []int{2}, Offset: 0, Size: 8},
				{Name: "b", Kind: serialization.KindValue, ID: 1, DType: serialization.DTypeFloat16, Shape: []int{2, 2}, Offset: 8, Size: 8},
			},
		}
	}

	h := base()
	require.NoError(t, serialization.ValidateHeader(&h, 16))

	tests := []struct {
		name   string
		mutate func(*serialization.Header)
		size   int64
		kind   string
	}{
		{"overlap", func(h *serialization.Header) { h.Tensors[1].Offset = 4 }, 16, "offset_overlap"},
		{"out of bounds", func(*serialization.Header) {}, 12, "out_of_bounds"},
		{"negative", func(h *serialization.Header) { h.Tensors[0].Offset = -1 }, 16, "negative_offset"},
		{"size", func(h *serialization.Header) { h.Tensors[0].Shape = []int{3} }, 16, "size_mismatch"},
		{"shape", func(h *serialization.Header) { h.Tensors[0].Shape = []int{0, 2} }, 16, "invalid_shape"},
		{"null byte", func(h *serialization.Header) { h.Tensors[0].Name = "a\x00" }, 16, "invalid_name"},
		{"overflow", func(h *serialization.Header) { h.Tensors[0].Shape = []int{math.MaxInt/4 + 1, 8} }, 16, "shape_overflow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := base()
			tt.mutate(&h)
			err := serialization.ValidateHeader(&h, tt.size)
			var verr *serialization.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.kind, verr.Type)
		})
	}

	h = base()
	h.Tensors[0].DType = "int8"
	require.ErrorIs(t, serialization.ValidateHeader(&h, 16), serialization.ErrUnsupportedDType)
}

func TestChecksum(t *testing.T) {
	a := serialization.ComputeChecksum([]byte("test data"))
	assert.Equal(t, a, serialization.ComputeChecksum([]byte("test data")))
	assert.NotEqual(t, a, serialization.ComputeChecksum([]byte("different data")))
	require.ErrorIs(t, serialization.ValidateChecksum(a, [32]byte{}), serialization.ErrChecksumMismatch)
}

func TestSaveLoad(t *testing.T) {
	g, params := newGraph(t)
	ckpt, err := serialization.Snapshot(g, params, serialization.SnapshotOptions{Step: 42})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.fgrd")
	require.NoError(t, serialization.Save(path, ckpt, serialization.WriteOptions{}))
	got, err := serialization.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Step)
	assert.Equal(t, ckpt.RunID, got.RunID)

	_, err = serialization.Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
