// Package matrix provides the dense row-major feature matrix every learnkit
// predictor trains on.
//
// A Matrix owns rows × Width() float64 values where Width() is the feature
// column count plus one when a bias column is present. Column 0 of every row
// is then the constant 1.0. An optional output vector carries one target or
// class label per row. Shapes never change after construction and every
// derived matrix is an independent copy.
//
// Matrices are not synchronized. Slices returned by Row, Output and RawData
// are borrowed views and must not be modified.
package matrix

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PrepareFunc fills a freshly allocated matrix. features is row-major
// rows × columns without the bias column; output is nil unless the matrix
// was created WithOutputVector. Returning false declines construction.
type PrepareFunc func(features, output []float64) bool

// Option configures matrix construction.
type Option func(*config)

type config struct {
	output bool
	bias   bool
	seed   uint64
	seeded bool
}

// WithOutputVector allocates an output vector of one value per row.
func WithOutputVector() Option {
	return func(c *config) { c.output = true }
}

// WithBiasColumn prepends a constant 1.0 column.
func WithBiasColumn() Option {
	return func(c *config) { c.bias = true }
}

// WithSeed fixes the random source used by Shuffled, ShuffledSubmatrix and
// Split. Without it the seed is drawn from the global source.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
		c.seeded = true
	}
}

// Matrix is a dense row-major feature matrix with optional bias column,
// output vector and normalization statistics.
type Matrix struct {
	rows    int
	columns int
	bias    bool

	data   []float64
	output []float64

	normalized bool
	mean       []float64
	sd         []float64

	rng *rand.Rand
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func validateShape(op string, rows, columns int) error {
	if rows < 1 {
		return errors.NewValidationError("rows", fmt.Sprintf("%s: must be at least 1", op), rows)
	}
	if columns < 1 {
		return errors.NewValidationError("columns", fmt.Sprintf("%s: must be at least 1", op), columns)
	}
	return nil
}

// New allocates a rows × columns matrix and lets prepare fill it.
//
//	m, err := matrix.New(4, 2, func(x, y []float64) bool {
//	    copy(x, features)
//	    copy(y, targets)
//	    return true
//	}, matrix.WithOutputVector(), matrix.WithBiasColumn())
func New(rows, columns int, prepare PrepareFunc, opts ...Option) (*Matrix, error) {
	if err := validateShape("New", rows, columns); err != nil {
		return nil, err
	}
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	features := make([]float64, rows*columns)
	var output []float64
	if cfg.output {
		output = make([]float64, rows)
	}
	if prepare != nil && !prepare(features, output) {
		return nil, errors.WithStack(errors.ErrPreparationDeclined)
	}
	return build(rows, columns, features, output, cfg), nil
}

// build lays out features (rows × columns, no bias) into a new matrix.
func build(rows, columns int, features, output []float64, cfg config) *Matrix {
	if !cfg.seeded {
		cfg.seed = rand.Uint64()
	}
	m := &Matrix{
		rows:    rows,
		columns: columns,
		bias:    cfg.bias,
		output:  output,
		rng:     newRand(cfg.seed),
	}
	if !cfg.bias {
		m.data = features
		return m
	}
	w := columns + 1
	m.data = make([]float64, rows*w)
	for i := 0; i < rows; i++ {
		m.data[i*w] = 1
		copy(m.data[i*w+1:(i+1)*w], features[i*columns:(i+1)*columns])
	}
	return m
}

// FromDense copies a gonum matrix. A non-nil y becomes the output vector and
// must have one value per row.
func FromDense(x mat.Matrix, y []float64, opts ...Option) (*Matrix, error) {
	rows, columns := x.Dims()
	if err := validateShape("FromDense", rows, columns); err != nil {
		return nil, err
	}
	if y != nil && len(y) != rows {
		return nil, errors.NewDimensionError("FromDense", rows, len(y), 0)
	}
	if y != nil {
		opts = append(opts, WithOutputVector())
	}
	return New(rows, columns, func(features, output []float64) bool {
		dst := mat.NewDense(rows, columns, features)
		dst.Copy(x)
		if output != nil && y != nil {
			copy(output, y)
		}
		return true
	}, opts...)
}

// Identity returns the n × n identity matrix.
func Identity(n int) (*Matrix, error) {
	return New(n, n, func(features, _ []float64) bool {
		for i := 0; i < n; i++ {
			features[i*n+i] = 1
		}
		return true
	})
}

// derive creates a matrix sharing m's layout flags with fresh buffers and a
// random source seeded from m.
func (m *Matrix) derive(rows int, data, output []float64) *Matrix {
	d := &Matrix{
		rows:       rows,
		columns:    m.columns,
		bias:       m.bias,
		data:       data,
		output:     output,
		normalized: m.normalized,
		rng:        newRand(m.rng.Uint64()),
	}
	if m.normalized {
		d.mean = append([]float64(nil), m.mean...)
		d.sd = append([]float64(nil), m.sd...)
	}
	return d
}

// plain wraps a rows × columns buffer without bias, output or statistics.
func (m *Matrix) plain(rows, columns int, data []float64) *Matrix {
	return &Matrix{
		rows:    rows,
		columns: columns,
		data:    data,
		rng:     newRand(m.rng.Uint64()),
	}
}

// Rows returns the number of examples.
func (m *Matrix) Rows() int { return m.rows }

// Columns returns the number of feature columns, excluding the bias column.
func (m *Matrix) Columns() int { return m.columns }

// Width returns the stored row length: Columns plus one with a bias column.
func (m *Matrix) Width() int {
	if m.bias {
		return m.columns + 1
	}
	return m.columns
}

// HasBiasColumn reports whether column 0 is the constant bias column.
func (m *Matrix) HasBiasColumn() bool { return m.bias }

// HasOutput reports whether the matrix carries an output vector.
func (m *Matrix) HasOutput() bool { return m.output != nil }

// IsNormalized reports whether normalization statistics are attached.
func (m *Matrix) IsNormalized() bool { return m.normalized }

// Row returns a borrowed view of row i, bias included.
func (m *Matrix) Row(i int) []float64 {
	w := m.Width()
	return m.data[i*w : (i+1)*w : (i+1)*w]
}

// Features returns a borrowed view of row i without the bias column.
func (m *Matrix) Features(i int) []float64 {
	row := m.Row(i)
	if m.bias {
		return row[1:]
	}
	return row
}

// At returns the value at row i and stored column j.
func (m *Matrix) At(i, j int) float64 {
	w := m.Width()
	if j < 0 || j >= w {
		panic(fmt.Sprintf("matrix: column %d out of range [0,%d)", j, w))
	}
	return m.data[i*w+j]
}

// Output returns a borrowed view of the output vector, or nil.
func (m *Matrix) Output() []float64 {
	if m.output == nil {
		return nil
	}
	return m.output[:m.rows:m.rows]
}

// RawData returns a borrowed view of the row-major storage.
func (m *Matrix) RawData() []float64 {
	return m.data[:len(m.data):len(m.data)]
}

// Column returns an owned copy of stored column j.
func (m *Matrix) Column(j int) []float64 {
	w := m.Width()
	if j < 0 || j >= w {
		panic(fmt.Sprintf("matrix: column %d out of range [0,%d)", j, w))
	}
	col := make([]float64, m.rows)
	for i := range col {
		col[i] = m.data[i*w+j]
	}
	return col
}

// Dense returns a read-only gonum view of the stored values, bias included.
func (m *Matrix) Dense() mat.Matrix {
	return mat.NewDense(m.rows, m.Width(), m.data)
}

// ModifyOutput hands fn a mutable view of the output vector. The view's
// capacity equals its length and must not be retained after fn returns.
func (m *Matrix) ModifyOutput(fn func(output []float64, rows int)) error {
	if m.output == nil {
		return errors.NewPreconditionError("ModifyOutput", "matrix has an output vector", errors.ErrNoOutputVector)
	}
	fn(m.output[:m.rows:m.rows], m.rows)
	return nil
}

func (m *Matrix) String() string {
	s := fmt.Sprintf("Matrix %d×%d (bias=%t, output=%t, normalized=%t)\n%v",
		m.rows, m.columns, m.bias, m.output != nil, m.normalized,
		mat.Formatted(m.Dense(), mat.Squeeze()))
	if m.output != nil {
		s += fmt.Sprintf("\noutput: %v", m.output)
	}
	return s
}
