package matrix

import (
	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AddingBiasColumn returns a copy with a bias column prepended. A matrix that
// already has one is returned unchanged.
func (m *Matrix) AddingBiasColumn() *Matrix {
	if m.bias {
		return m
	}
	w := m.columns + 1
	data := make([]float64, m.rows*w)
	for i := 0; i < m.rows; i++ {
		data[i*w] = 1
		copy(data[i*w+1:(i+1)*w], m.Row(i))
	}
	var output []float64
	if m.output != nil {
		output = append([]float64(nil), m.output...)
	}
	d := m.derive(m.rows, data, output)
	d.bias = true
	return d
}

// Multiply returns the product of the stored values (bias included) with
// other. It fails with a DimensionError unless m.Width() == other.Rows().
func (m *Matrix) Multiply(other *Matrix) (*Matrix, error) {
	if m.Width() != other.Rows() {
		return nil, errors.NewDimensionError("Multiply", m.Width(), other.Rows(), 0)
	}
	p := other.Width()
	data := make([]float64, m.rows*p)
	accel.MatMul(data, m.data, other.data, m.rows, m.Width(), p)
	return m.plain(m.rows, p, data), nil
}

// Transposed returns the Width() × Rows() transpose of the stored values.
// The result has no bias column or output vector.
func (m *Matrix) Transposed() *Matrix {
	w := m.Width()
	data := make([]float64, len(m.data))
	accel.Transpose(data, m.data, m.rows, w)
	return m.plain(w, m.rows, data)
}

// Covariance returns the Columns() × Columns() sample covariance of the
// feature columns. The bias column is excluded.
func (m *Matrix) Covariance() (*Matrix, error) {
	if m.rows < 2 {
		return nil, errors.NewPreconditionError("Covariance", "at least two rows", errors.ErrEmptyData)
	}
	features := m.Dense()
	if m.bias {
		features = m.Dense().(*mat.Dense).Slice(0, m.rows, 1, m.columns+1)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, features, nil)

	n := m.columns
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = cov.At(i, j)
		}
	}
	return m.plain(n, n, data), nil
}

func (m *Matrix) requireSquare(op string) error {
	if m.rows != m.Width() {
		return errors.NewDimensionError(op, m.rows, m.Width(), 1)
	}
	return nil
}

// Inverted returns the inverse of a square matrix. It returns
// errors.ErrSingularMatrix when none exists.
func (m *Matrix) Inverted() (*Matrix, error) {
	if err := m.requireSquare("Inverted"); err != nil {
		return nil, err
	}
	n := m.rows
	data := append([]float64(nil), m.data...)
	if err := accel.Invert(data, n); err != nil {
		return nil, err
	}
	return m.plain(n, n, data), nil
}

// Determinant returns the determinant of a square matrix.
func (m *Matrix) Determinant() (float64, error) {
	if err := m.requireSquare("Determinant"); err != nil {
		return 0, err
	}
	return accel.Det(m.data, m.rows), nil
}
