package matrix

import (
	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/core/parallel"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// columnStatsThreshold is the row count above which column statistics are
// computed in parallel.
const columnStatsThreshold = 4096

// normalizeRow writes (src-mean)/sd into dst. A zero standard deviation
// yields 0. Every normalization path goes through here.
func normalizeRow(dst, src, mean, sd []float64) {
	for j, v := range src {
		if sd[j] == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = (v - mean[j]) / sd[j]
	}
}

// Normalized returns a copy whose feature columns have zero mean and unit
// sample standard deviation. The bias column stays at 1. A matrix that is
// already normalized is returned unchanged.
func (m *Matrix) Normalized() *Matrix {
	if m.normalized {
		return m
	}
	mean := make([]float64, m.columns)
	sd := make([]float64, m.columns)
	w := m.Width()
	offset := w - m.columns

	work := func(start, end int) {
		scratch := make([]float64, m.rows)
		for j := start; j < end; j++ {
			col := m.data[offset+j:]
			var sum float64
			for i := 0; i < m.rows; i++ {
				sum += col[i*w]
			}
			mean[j] = sum / float64(m.rows)
			sd[j] = accel.StdDev(col, w, scratch, mean[j], true)
		}
	}
	if m.rows > columnStatsThreshold {
		parallel.Parallelize(m.columns, work)
	} else {
		work(0, m.columns)
	}

	n, _ := m.NormalizedWith(mean, sd)
	return n
}

// NormalizedWith applies externally supplied statistics, typically those of
// a training matrix, to every row. Results are identical to calling
// NormalizeVector row by row.
func (m *Matrix) NormalizedWith(mean, sd []float64) (*Matrix, error) {
	if len(mean) != m.columns {
		return nil, errors.NewDimensionError("NormalizedWith", m.columns, len(mean), 0)
	}
	if len(sd) != m.columns {
		return nil, errors.NewDimensionError("NormalizedWith", m.columns, len(sd), 0)
	}
	w := m.Width()
	offset := w - m.columns
	data := make([]float64, len(m.data))
	for i := 0; i < m.rows; i++ {
		row := data[i*w : (i+1)*w]
		if m.bias {
			row[0] = 1
		}
		normalizeRow(row[offset:], m.data[i*w+offset:(i+1)*w], mean, sd)
	}
	var output []float64
	if m.output != nil {
		output = append([]float64(nil), m.output...)
	}
	d := m.derive(m.rows, data, output)
	d.normalized = true
	d.mean = append([]float64(nil), mean...)
	d.sd = append([]float64(nil), sd...)
	return d, nil
}

// NormalizeVector normalizes a feature vector (no bias entry) with this
// matrix's statistics and returns a new slice.
func (m *Matrix) NormalizeVector(v []float64) ([]float64, error) {
	if !m.normalized {
		return nil, errors.NewPreconditionError("NormalizeVector", "matrix is normalized", errors.ErrNotNormalized)
	}
	if len(v) != m.columns {
		return nil, errors.NewDimensionError("NormalizeVector", m.columns, len(v), 0)
	}
	out := make([]float64, len(v))
	normalizeRow(out, v, m.mean, m.sd)
	return out, nil
}

// NormalizationMean returns a copy of the per-column means.
func (m *Matrix) NormalizationMean() ([]float64, error) {
	if !m.normalized {
		return nil, errors.NewPreconditionError("NormalizationMean", "matrix is normalized", errors.ErrNotNormalized)
	}
	return append([]float64(nil), m.mean...), nil
}

// NormalizationStdDev returns a copy of the per-column sample standard
// deviations.
func (m *Matrix) NormalizationStdDev() ([]float64, error) {
	if !m.normalized {
		return nil, errors.NewPreconditionError("NormalizationStdDev", "matrix is normalized", errors.ErrNotNormalized)
	}
	return append([]float64(nil), m.sd...), nil
}
