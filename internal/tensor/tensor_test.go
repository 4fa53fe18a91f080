package tensor

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFromSlice[T DType](t *testing.T, data []T, shape Shape) *Tensor[T] {
	t.Helper()
	out, err := FromSlice(data, shape)
	require.NoError(t, err)
	return out
}

// DType Tests

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
		{Int, 8},
		{Uint8, 1},
		{Bool, 1},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestInferDataType(t *testing.T) {
	assert.Equal(t, Float32, inferDataType[float32]())
	assert.Equal(t, Float64, inferDataType[float64]())
	assert.Equal(t, Int, inferDataType[int]())
	assert.Equal(t, Bool, inferDataType[bool]())
}

// Shape Tests

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{}.Validate())
	assert.NoError(t, Shape{2, 3}.Validate())
	assert.ErrorIs(t, Shape{2, 0}.Validate(), ErrInvalidShape)
	assert.ErrorIs(t, Shape{-1}.Validate(), ErrInvalidShape)

	huge := Shape{math.MaxInt/4 + 1, 8}
	assert.ErrorIs(t, huge.Validate(), ErrInvalidShape)
	_, err := New(huge, []float32{})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{"equal", Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{"column", Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{"leading", Shape{5}, Shape{2, 3, 5}, Shape{2, 3, 5}, true, false},
		{"scalar", Shape{}, Shape{2, 2}, Shape{2, 2}, true, false},
		{"incompatible", Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBroadcast)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

// Creation Tests

func TestNew_BufferLength(t *testing.T) {
	_, err := New(Shape{2, 2}, []float32{1, 2, 3})
	require.ErrorIs(t, err, ErrBufferLength)
}

func TestScalar(t *testing.T) {
	s := Scalar[float32](4)
	assert.Equal(t, 0, s.Rank())
	assert.Equal(t, 1, s.NumElements())
	v, err := s.Item()
	require.NoError(t, err)
	assert.Equal(t, float32(4), v)
}

func TestItem_NotScalar(t *testing.T) {
	x := mustFromSlice(t, []float32{1, 2}, Shape{2})
	_, err := x.Item()
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRand_Range(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	x, err := Rand(rng, Shape{8, 8})
	require.NoError(t, err)
	for _, v := range x.Data() {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}

	_, err = Rand(rng, Shape{0})
	require.ErrorIs(t, err, ErrInvalidShape)
}

// Access Tests

func TestAtSet(t *testing.T) {
	x, err := Zeros[float32](Shape{2, 3})
	require.NoError(t, err)

	require.NoError(t, x.Set(7, 1, 2))
	v, err := x.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(7), v)
	assert.Equal(t, float32(7), x.Data()[5])

	_, err = x.At(2, 0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = x.At(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestIndex_Copies(t *testing.T) {
	x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{3, 2})
	row, err := x.Index(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, row.Data())

	row.Data()[0] = 100
	assert.Equal(t, float32(3), x.Data()[2])

	_, err = x.Index(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestKeepRight(t *testing.T) {
	x, err := Zeros[float32](Shape{2, 3, 4, 5})
	require.NoError(t, err)

	folded, err := x.KeepRight(2)
	require.NoError(t, err)
	assert.True(t, folded.Shape().Equal(Shape{6, 4, 5}))

	slices, err := folded.Slices()
	require.NoError(t, err)
	assert.Len(t, slices, 6)
	assert.True(t, slices[0].Shape().Equal(Shape{4, 5}))

	// Views share storage.
	slices[5].Data()[19] = 1
	assert.Equal(t, float32(1), x.Data()[len(x.Data())-1])
}

func TestReshape(t *testing.T) {
	x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	y, err := x.Reshape(Shape{3, 2})
	require.NoError(t, err)
	assert.True(t, y.Shape().Equal(Shape{3, 2}))

	_, err = x.Reshape(Shape{4})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCopyFrom(t *testing.T) {
	dst, err := Zeros[float32](Shape{2})
	require.NoError(t, err)
	require.NoError(t, dst.CopyFrom(mustFromSlice(t, []float32{1, 2}, Shape{2})))
	assert.Equal(t, []float32{1, 2}, dst.Data())

	require.ErrorIs(t, dst.CopyFrom(mustFromSlice(t, []float32{1, 2}, Shape{1, 2})), ErrShapeMismatch)
}

// Arithmetic Tests

func TestAdd_Broadcast(t *testing.T) {
	a := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := mustFromSlice(t, []float32{10, 20, 30}, Shape{3})

	c, err := Add(a, b)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(Shape{2, 3}))
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, c.Data())

	col := mustFromSlice(t, []float32{1, 2}, Shape{2, 1})
	d, err := Mul(a, col)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 8, 10, 12}, d.Data())
}

func TestAdd_Incompatible(t *testing.T) {
	a := mustFromSlice(t, []float32{1, 2, 3}, Shape{3})
	b := mustFromSlice(t, []float32{1, 2}, Shape{2})
	_, err := Add(a, b)
	require.ErrorIs(t, err, ErrInvalidBroadcast)
}

func TestSubDivScale(t *testing.T) {
	a := mustFromSlice(t, []float32{4, 9}, Shape{2})
	b := mustFromSlice(t, []float32{2, 3}, Shape{2})

	s, err := Sub(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 6}, s.Data())

	q, err := Div(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, q.Data())

	assert.Equal(t, []float32{8, 18}, Scale(a, 2).Data())
	assert.Equal(t, float32(13), Sum(a))
	assert.Equal(t, float32(6.5), Mean(a))
}

func TestSumTo(t *testing.T) {
	grad := mustFromSlice(t, []float32{
		1, 2, 3,
		4, 5, 6,

		7, 8, 9,
		10, 11, 12,
	}, Shape{2, 2, 3})

	tests := []struct {
		name   string
		target Shape
		want   []float32
	}{
		{"identity", Shape{2, 2, 3}, grad.Data()},
		{"leading", Shape{2, 3}, []float32{8, 10, 12, 14, 16, 18}},
		{"row", Shape{3}, []float32{22, 26, 30}},
		{"keepdim", Shape{1, 3}, []float32{22, 26, 30}},
		{"column", Shape{2, 1}, []float32{30, 48}},
		{"scalar", Shape{}, []float32{78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SumTo(grad, tt.target)
			require.NoError(t, err)
			assert.True(t, got.Shape().Equal(tt.target), "shape %v", got.Shape())
			assert.Equal(t, tt.want, got.Data())
		})
	}

	_, err := SumTo(grad, Shape{4})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = SumTo(grad, Shape{1, 2, 2, 3})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGather(t *testing.T) {
	table := mustFromSlice(t, []float32{0, 1, 10, 11, 20, 21}, Shape{3, 2})
	idx := mustFromSlice(t, []int{2, 0, 2, 1}, Shape{2, 2})

	out, err := Gather(table, idx)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(Shape{2, 2, 2}))
	assert.Equal(t, []float32{20, 21, 0, 1, 20, 21, 10, 11}, out.Data())

	bad := mustFromSlice(t, []int{3}, Shape{1})
	_, err = Gather(table, bad)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

// BLAS Tests

func TestAxpyScal(t *testing.T) {
	x := mustFromSlice(t, []float32{1, 2, 3}, Shape{3})
	y := mustFromSlice(t, []float32{10, 10, 10}, Shape{3})

	require.NoError(t, Axpy(2, x, y))
	assert.Equal(t, []float32{12, 14, 16}, y.Data())

	Scal(0.5, y)
	assert.Equal(t, []float32{6, 7, 8}, y.Data())

	require.ErrorIs(t, Axpy(1, x, mustFromSlice(t, []float32{1}, Shape{1})), ErrShapeMismatch)
}

func TestMatMul(t *testing.T) {
	a := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := mustFromSlice(t, []float32{7, 8, 9, 10, 11, 12}, Shape{3, 2})

	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(Shape{2, 2}))
	assert.Equal(t, []float32{58, 64, 139, 154}, c.Data())

	// a^T @ a
	ata, err := MatMulTransposed(a, a, true, false)
	require.NoError(t, err)
	assert.True(t, ata.Shape().Equal(Shape{3, 3}))
	assert.Equal(t, []float32{17, 22, 27, 22, 29, 36, 27, 36, 45}, ata.Data())

	_, err = MatMul(a, a)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMatMul_Batched(t *testing.T) {
	a := mustFromSlice(t, []float32{
		1, 0, 0, 1,
		2, 0, 0, 2,
	}, Shape{2, 2, 2})
	b := mustFromSlice(t, []float32{1, 2, 3, 4}, Shape{2, 2})

	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(Shape{2, 2, 2}))

	want := []float32{1, 2, 3, 4, 2, 4, 6, 8}
	if diff := cmp.Diff(want, c.Data(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("batched matmul mismatch (-want +got):\n%s", diff)
	}

	other := mustFromSlice(t, make([]float32, 12), Shape{3, 2, 2})
	_, err = MatMul(a, other)
	require.ErrorIs(t, err, ErrShapeMismatch)
}
