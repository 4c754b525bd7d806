package matrix

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// gather copies the listed rows, with their outputs, into a new matrix.
func (m *Matrix) gather(idxs []int) *Matrix {
	w := m.Width()
	data := make([]float64, len(idxs)*w)
	var output []float64
	if m.output != nil {
		output = make([]float64, len(idxs))
	}
	for k, i := range idxs {
		copy(data[k*w:(k+1)*w], m.data[i*w:(i+1)*w])
		if output != nil {
			output[k] = m.output[i]
		}
	}
	return m.derive(len(idxs), data, output)
}

// Shuffled returns a copy whose rows are a uniformly random permutation of
// m's rows. Outputs move with their rows.
func (m *Matrix) Shuffled() *Matrix {
	return m.gather(m.rng.Perm(m.rows))
}

// ShuffledSubmatrix returns n distinct rows chosen uniformly at random, in
// random order.
func (m *Matrix) ShuffledSubmatrix(n int) (*Matrix, error) {
	if n < 1 || n > m.rows {
		return nil, errors.NewValidationError("n", fmt.Sprintf("must be in [1, %d]", m.rows), n)
	}
	idxs := make([]int, n)
	sampleuv.WithoutReplacement(idxs, m.rows, m.rng)
	return m.gather(idxs), nil
}

// Split randomly partitions the rows into a training matrix holding
// round(trainingBias·Rows()) rows and a test matrix holding the rest. Every
// row lands in exactly one partition and neither may be empty.
func (m *Matrix) Split(trainingBias float64) (training, test *Matrix, err error) {
	if !(trainingBias > 0 && trainingBias < 1) {
		return nil, nil, errors.NewValidationError("trainingBias", "must be in (0, 1)", trainingBias)
	}
	nTrain := int(math.Round(trainingBias * float64(m.rows)))
	if nTrain == 0 || nTrain == m.rows {
		return nil, nil, errors.NewPreconditionError("Split",
			fmt.Sprintf("both partitions non-empty (%d rows, bias %g)", m.rows, trainingBias), nil)
	}
	order := m.rng.Perm(m.rows)
	return m.gather(order[:nTrain]), m.gather(order[nTrain:]), nil
}

// Submatrix copies count rows starting at start.
func (m *Matrix) Submatrix(start, count int) (*Matrix, error) {
	if start < 0 || start >= m.rows {
		return nil, errors.NewValidationError("start", fmt.Sprintf("must be in [0, %d)", m.rows), start)
	}
	if count < 1 || start+count > m.rows {
		return nil, errors.NewValidationError("count", fmt.Sprintf("must be in [1, %d]", m.rows-start), count)
	}
	idxs := make([]int, count)
	for k := range idxs {
		idxs[k] = start + k
	}
	return m.gather(idxs), nil
}

// SubmatrixWithSize copies the leading rows × columns block of feature
// values. The bias column, outputs of the kept rows and the matching
// normalization statistics carry over.
func (m *Matrix) SubmatrixWithSize(rows, columns int) (*Matrix, error) {
	if rows < 1 || rows > m.rows {
		return nil, errors.NewValidationError("rows", fmt.Sprintf("must be in [1, %d]", m.rows), rows)
	}
	if columns < 1 || columns > m.columns {
		return nil, errors.NewValidationError("columns", fmt.Sprintf("must be in [1, %d]", m.columns), columns)
	}
	w := m.Width()
	offset := w - m.columns
	nw := columns + offset
	data := make([]float64, rows*nw)
	for i := 0; i < rows; i++ {
		copy(data[i*nw:(i+1)*nw], m.data[i*w:i*w+nw])
	}
	var output []float64
	if m.output != nil {
		output = append([]float64(nil), m.output[:rows]...)
	}
	d := m.derive(rows, data, output)
	d.columns = columns
	if d.normalized {
		d.mean = d.mean[:columns]
		d.sd = d.sd[:columns]
	}
	return d, nil
}
