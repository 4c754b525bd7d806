package matrix

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"testing"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestMatrix(t *testing.T, rows, columns int, features, output []float64, opts ...Option) *Matrix {
	t.Helper()
	if output != nil {
		opts = append(opts, WithOutputVector())
	}
	m, err := New(rows, columns, func(x, y []float64) bool {
		copy(x, features)
		copy(y, output)
		return true
	}, opts...)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := newTestMatrix(t, 2, 2, []float64{1, 2, 3, 4}, []float64{10, 20}, WithBiasColumn())

	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 2, m.Columns())
	assert.Equal(t, 3, m.Width())
	assert.True(t, m.HasBiasColumn())
	assert.True(t, m.HasOutput())
	assert.Equal(t, []float64{1, 3, 4}, m.Row(1))
	assert.Equal(t, []float64{3, 4}, m.Features(1))
	assert.Equal(t, 2.0, m.At(0, 2))
	assert.Equal(t, []float64{10, 20}, m.Output())
	assert.Equal(t, []float64{1, 1}, m.Column(0))
	assert.Equal(t, []float64{1, 1, 2, 1, 3, 4}, m.RawData())

	r, c := m.Dense().Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Contains(t, m.String(), "bias=true")
}

func TestNewRejects(t *testing.T) {
	_, err := New(0, 2, nil)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = New(2, 2, func(_, _ []float64) bool { return false })
	assert.True(t, errors.Is(err, errors.ErrPreparationDeclined))
}

func TestBorrowedViewsAreCapped(t *testing.T) {
	m := newTestMatrix(t, 2, 1, []float64{1, 2}, []float64{5, 6})
	row := m.Row(0)
	assert.Equal(t, len(row), cap(row))
	out := m.Output()
	assert.Equal(t, len(out), cap(out))

	col := m.Column(0)
	col[0] = 99
	assert.Equal(t, 1.0, m.At(0, 0), "Column must return an owned copy")
}

func TestModifyOutput(t *testing.T) {
	m := newTestMatrix(t, 3, 1, []float64{1, 2, 3}, []float64{0, 0, 0})
	require.NoError(t, m.ModifyOutput(func(output []float64, rows int) {
		assert.Equal(t, 3, rows)
		assert.Equal(t, rows, cap(output))
		for i := range output {
			output[i] = float64(i * 2)
		}
	}))
	assert.Equal(t, []float64{0, 2, 4}, m.Output())

	noOut := newTestMatrix(t, 1, 1, []float64{1}, nil)
	err := noOut.ModifyOutput(func([]float64, int) {})
	var pe *errors.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, errors.ErrNoOutputVector))
}

func TestFromDenseAndIdentity(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	m, err := FromDense(x, []float64{1, 0}, WithBiasColumn())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4}, m.Row(1))
	assert.Equal(t, []float64{1, 0}, m.Output())

	_, err = FromDense(x, []float64{1})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	id, err := Identity(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, id.Row(1))
}

func TestAddingBiasColumn(t *testing.T) {
	m := newTestMatrix(t, 2, 1, []float64{5, 6}, []float64{1, 2})
	b := m.AddingBiasColumn()
	assert.True(t, b.HasBiasColumn())
	assert.False(t, m.HasBiasColumn())
	assert.Equal(t, []float64{1, 6}, b.Row(1))
	assert.Equal(t, []float64{1, 2}, b.Output())
	assert.Same(t, b, b.AddingBiasColumn())
}

func TestMultiply(t *testing.T) {
	a := newTestMatrix(t, 2, 3, []float64{1, 2, 3, 4, 5, 6}, nil)
	b := newTestMatrix(t, 3, 2, []float64{7, 8, 9, 10, 11, 12}, nil)
	p, err := a.Multiply(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{58, 64, 139, 154}, p.RawData())

	_, err = a.Multiply(a)
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 3, de.Expected)
	assert.Equal(t, 2, de.Got)
}

func TestTransposed(t *testing.T) {
	m := newTestMatrix(t, 2, 3, []float64{1, 2, 3, 4, 5, 6}, nil)
	tr := m.Transposed()
	assert.Equal(t, 3, tr.Rows())
	assert.Equal(t, 2, tr.Columns())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tr.RawData())
}

func TestCovarianceExcludesBias(t *testing.T) {
	m := newTestMatrix(t, 3, 2, []float64{1, 2, 2, 4, 3, 6}, nil, WithBiasColumn())
	cov, err := m.Covariance()
	require.NoError(t, err)
	assert.Equal(t, 2, cov.Rows())
	assert.Equal(t, 2, cov.Columns())
	want := []float64{1, 2, 2, 4}
	for i, v := range cov.RawData() {
		assert.InDelta(t, want[i], v, 1e-12)
	}

	single := newTestMatrix(t, 1, 2, []float64{1, 2}, nil)
	_, err = single.Covariance()
	assert.Error(t, err)
}

func TestInvertedAndDeterminant(t *testing.T) {
	m := newTestMatrix(t, 2, 2, []float64{4, 7, 2, 6}, nil)
	inv, err := m.Inverted()
	require.NoError(t, err)
	p, err := m.Multiply(inv)
	require.NoError(t, err)
	id := []float64{1, 0, 0, 1}
	for i, v := range p.RawData() {
		assert.InDelta(t, id[i], v, 1e-12)
	}
	det, err := m.Determinant()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, det, 1e-12)

	singular := newTestMatrix(t, 2, 2, []float64{1, 2, 2, 4}, nil)
	_, err = singular.Inverted()
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix))

	rect := newTestMatrix(t, 2, 3, make([]float64, 6), nil)
	_, err = rect.Inverted()
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
	_, err = rect.Determinant()
	assert.Error(t, err)
}

func TestNormalized(t *testing.T) {
	m := newTestMatrix(t, 3, 2, []float64{1, 5, 2, 5, 3, 5}, []float64{7, 8, 9}, WithBiasColumn())

	_, err := m.NormalizationMean()
	assert.True(t, errors.Is(err, errors.ErrNotNormalized))
	_, err = m.NormalizeVector([]float64{1, 1})
	var pe *errors.PreconditionError
	assert.True(t, errors.As(err, &pe))

	n := m.Normalized()
	assert.True(t, n.IsNormalized())
	assert.False(t, m.IsNormalized())
	assert.Same(t, n, n.Normalized())

	mean, err := n.NormalizationMean()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, mean)
	sd, err := n.NormalizationStdDev()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sd[0], 1e-12)
	assert.Equal(t, 0.0, sd[1])

	assert.Equal(t, []float64{1, -1, 0}, n.Row(0))
	assert.Equal(t, []float64{1, 0, 0}, n.Row(1))
	assert.Equal(t, []float64{1, 1, 0}, n.Row(2), "zero-sd column becomes zero, bias stays 1")
	assert.Equal(t, []float64{7, 8, 9}, n.Output())

	v, err := n.NormalizeVector([]float64{4, 9})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0}, v)

	_, err = n.NormalizeVector([]float64{4})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestNormalizedWithMatchesNormalizeVector(t *testing.T) {
	train := newTestMatrix(t, 4, 2, []float64{0.1, 3, 0.7, -2, 1.3, 8, 2.9, 1}, nil).Normalized()
	test := newTestMatrix(t, 3, 2, []float64{0.3, 0.2, 11.7, -5, math.Pi, 1e-3}, nil)

	mean, _ := train.NormalizationMean()
	sd, _ := train.NormalizationStdDev()
	nt, err := test.NormalizedWith(mean, sd)
	require.NoError(t, err)

	for i := 0; i < test.Rows(); i++ {
		v, err := train.NormalizeVector(test.Row(i))
		require.NoError(t, err)
		for j := range v {
			if math.Float64bits(v[j]) != math.Float64bits(nt.At(i, j)) {
				t.Fatalf("row %d col %d: %v != %v", i, j, v[j], nt.At(i, j))
			}
		}
	}

	_, err = test.NormalizedWith(mean[:1], sd)
	assert.Error(t, err)
}

func rowKeys(m *Matrix) []float64 {
	keys := make([]float64, m.Rows())
	for i := range keys {
		keys[i] = m.Features(i)[0]
	}
	sort.Float64s(keys)
	return keys
}

func sequential(t *testing.T, rows int, opts ...Option) *Matrix {
	features := make([]float64, rows)
	output := make([]float64, rows)
	for i := range features {
		features[i] = float64(i)
		output[i] = float64(i * 10)
	}
	return newTestMatrix(t, rows, 1, features, output, append(opts, WithSeed(42))...)
}

func TestShuffledPreservesPairs(t *testing.T) {
	m := sequential(t, 50, WithBiasColumn())
	s := m.Shuffled()
	assert.Equal(t, rowKeys(m), rowKeys(s))
	for i := 0; i < s.Rows(); i++ {
		assert.Equal(t, s.Features(i)[0]*10, s.Output()[i])
		assert.Equal(t, 1.0, s.At(i, 0))
	}
}

func TestShuffledIsReproducible(t *testing.T) {
	a := sequential(t, 20).Shuffled()
	b := sequential(t, 20).Shuffled()
	assert.Equal(t, a.RawData(), b.RawData())
}

func TestShuffledSubmatrix(t *testing.T) {
	m := sequential(t, 30)
	s, err := m.ShuffledSubmatrix(10)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Rows())

	seen := map[float64]bool{}
	for i := 0; i < s.Rows(); i++ {
		v := s.Features(i)[0]
		assert.False(t, seen[v], "row %v sampled twice", v)
		seen[v] = true
		assert.Equal(t, v*10, s.Output()[i])
	}

	_, err = m.ShuffledSubmatrix(31)
	assert.Error(t, err)
	_, err = m.ShuffledSubmatrix(0)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	m := sequential(t, 10)
	train, test, err := m.Split(0.75)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Rows()) // round(7.5)
	assert.Equal(t, 2, test.Rows())

	all := append(rowKeys(train), rowKeys(test)...)
	sort.Float64s(all)
	assert.Equal(t, rowKeys(m), all)

	for _, bias := range []float64{0, 1, -0.5, math.NaN()} {
		_, _, err := m.Split(bias)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "bias %v", bias)
	}

	tiny := sequential(t, 2)
	_, _, err = tiny.Split(0.1)
	var pe *errors.PreconditionError
	assert.True(t, errors.As(err, &pe))
}

func TestSplitKeepsNormalization(t *testing.T) {
	m := sequential(t, 10).Normalized()
	train, test, err := m.Split(0.5)
	require.NoError(t, err)
	assert.True(t, train.IsNormalized())
	assert.True(t, test.IsNormalized())
	mean, _ := test.NormalizationMean()
	assert.Equal(t, []float64{4.5}, mean)
}

func TestSubmatrix(t *testing.T) {
	m := sequential(t, 5, WithBiasColumn())
	s, err := m.Submatrix(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Rows())
	assert.Equal(t, []float64{1, 1}, s.Row(0))
	assert.Equal(t, []float64{10, 20, 30}, s.Output())

	_, err = m.Submatrix(4, 2)
	assert.Error(t, err)
	_, err = m.Submatrix(-1, 1)
	assert.Error(t, err)
}

func TestSubmatrixWithSize(t *testing.T) {
	m := newTestMatrix(t, 3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, []float64{1, 2, 3}, WithBiasColumn())
	n := m.Normalized()
	s, err := n.SubmatrixWithSize(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Rows())
	assert.Equal(t, 2, s.Columns())
	assert.Equal(t, 3, s.Width())
	assert.Equal(t, []float64{1, 2}, s.Output())
	mean, _ := s.NormalizationMean()
	assert.Equal(t, []float64{4, 5}, mean)

	_, err = m.SubmatrixWithSize(4, 1)
	assert.Error(t, err)
	_, err = m.SubmatrixWithSize(1, 4)
	assert.Error(t, err)
}

func TestLoadBinary(t *testing.T) {
	var values bytes.Buffer
	for _, v := range []float64{1.5, -2, 3, 4.25} {
		require.NoError(t, binary.Write(&values, binary.LittleEndian, v))
	}
	labels := bytes.NewReader([]byte{0, 1})

	m, err := LoadBinary(&values, Float64, labels, UInt8, 2, 2, WithBiasColumn())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4.25}, m.Row(1))
	assert.Equal(t, []float64{0, 1}, m.Output())

	u8, err := LoadBinary(bytes.NewReader([]byte{7, 8, 9}), UInt8, nil, Float64, 3, 1)
	require.NoError(t, err)
	assert.False(t, u8.HasOutput())
	assert.Equal(t, []float64{7, 8, 9}, u8.RawData())

	_, err = LoadBinary(bytes.NewReader([]byte{1, 2}), UInt8, nil, UInt8, 3, 1)
	assert.Error(t, err, "short input")
	_, err = LoadBinary(bytes.NewReader([]byte{1}), ValueType(9), nil, UInt8, 1, 1)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
