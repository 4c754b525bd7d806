// Package accel provides allocation-free kernels over caller-supplied
// float64 buffers.
//
// Element-wise kernels delegate to gonum/floats; dense kernels wrap the
// buffers in gonum/mat views without copying. Like gonum, kernels panic on
// length mismatches, so callers validate shapes first.
package accel

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func mustSameLen(op string, n int, lens ...int) {
	for _, l := range lens {
		if l != n {
			panic(fmt.Sprintf("accel: %s: length mismatch (%d != %d)", op, l, n))
		}
	}
}

// Fill sets every element of dst to v.
func Fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

// Clear zeroes dst.
func Clear(dst []float64) {
	clear(dst)
}

// Add computes dst = a + b.
func Add(dst, a, b []float64) {
	mustSameLen("Add", len(dst), len(a), len(b))
	floats.AddTo(dst, a, b)
}

// Sub computes dst = a - b.
func Sub(dst, a, b []float64) {
	mustSameLen("Sub", len(dst), len(a), len(b))
	floats.SubTo(dst, a, b)
}

// Mul computes the element-wise product dst = a ⊙ b.
func Mul(dst, a, b []float64) {
	mustSameLen("Mul", len(dst), len(a), len(b))
	floats.MulTo(dst, a, b)
}

// Div computes dst = a / b element-wise.
func Div(dst, a, b []float64) {
	mustSameLen("Div", len(dst), len(a), len(b))
	floats.DivTo(dst, a, b)
}

// Scale computes dst = c * src.
func Scale(dst []float64, c float64, src []float64) {
	mustSameLen("Scale", len(dst), len(src))
	floats.ScaleTo(dst, c, src)
}

// AddScalar computes dst = src + c.
func AddScalar(dst []float64, c float64, src []float64) {
	mustSameLen("AddScalar", len(dst), len(src))
	copy(dst, src)
	floats.AddConst(c, dst)
}

// Square computes dst = src ⊙ src.
func Square(dst, src []float64) {
	mustSameLen("Square", len(dst), len(src))
	floats.MulTo(dst, src, src)
}

// Neg computes dst = -src.
func Neg(dst, src []float64) {
	Scale(dst, -1, src)
}

// Sum returns the sum of x.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Mean returns the arithmetic mean of x, or NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Sum(x) / float64(len(x))
}

// Dot returns the inner product of a and b.
func Dot(a, b []float64) float64 {
	mustSameLen("Dot", len(a), len(b))
	return floats.Dot(a, b)
}

// Min returns the smallest element of x. It panics on an empty slice.
func Min(x []float64) float64 {
	return floats.Min(x)
}

// Max returns the largest element of x. It panics on an empty slice.
func Max(x []float64) float64 {
	return floats.Max(x)
}

// Sigmoid applies the logistic function to x in place.
func Sigmoid(x []float64) {
	for i, v := range x {
		if v >= 0 {
			x[i] = 1 / (1 + math.Exp(-v))
		} else {
			e := math.Exp(v)
			x[i] = e / (1 + e)
		}
	}
}

// SigmoidGrad computes dst = s ⊙ (1 - s) where s already holds sigmoid
// outputs.
func SigmoidGrad(dst, s []float64) {
	mustSameLen("SigmoidGrad", len(dst), len(s))
	for i, v := range s {
		dst[i] = v * (1 - v)
	}
}

// TanhGrad computes dst = 1 - t ⊙ t where t already holds tanh outputs.
func TanhGrad(dst, t []float64) {
	mustSameLen("TanhGrad", len(dst), len(t))
	for i, v := range t {
		dst[i] = 1 - v*v
	}
}

// LogSumExp returns log(Σ exp(x)) with the maximum shifted out.
func LogSumExp(x []float64) float64 {
	return floats.LogSumExp(x)
}

// Exp computes dst = exp(src).
func Exp(dst, src []float64) {
	mustSameLen("Exp", len(dst), len(src))
	for i, v := range src {
		dst[i] = math.Exp(v)
	}
}

// Log computes dst = log(src).
func Log(dst, src []float64) {
	mustSameLen("Log", len(dst), len(src))
	for i, v := range src {
		dst[i] = math.Log(v)
	}
}

// Tanh computes dst = tanh(src).
func Tanh(dst, src []float64) {
	mustSameLen("Tanh", len(dst), len(src))
	for i, v := range src {
		dst[i] = math.Tanh(v)
	}
}

// Pow computes dst = src^p.
func Pow(dst, src []float64, p float64) {
	mustSameLen("Pow", len(dst), len(src))
	for i, v := range src {
		dst[i] = math.Pow(v, p)
	}
}

// StdDev returns the standard deviation of every stride-th element of x
// starting at x[0], around a known mean. work must hold at least as many
// elements as are visited and is overwritten. With sample set the
// denominator is n-1.
func StdDev(x []float64, stride int, work []float64, mean float64, sample bool) float64 {
	if stride <= 0 {
		panic("accel: StdDev: stride must be positive")
	}
	n := 0
	for i := 0; i < len(x); i += stride {
		work[n] = x[i] - mean
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	d := work[:n]
	ss := floats.Dot(d, d)
	denom := float64(n)
	if sample {
		if n < 2 {
			return 0
		}
		denom = float64(n - 1)
	}
	return math.Sqrt(ss / denom)
}

// Transpose writes the cols×rows transpose of the rows×cols matrix src into
// dst. src and dst must not overlap.
func Transpose(dst, src []float64, rows, cols int) {
	mustSameLen("Transpose", rows*cols, len(dst), len(src))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
}

// MatMul computes the m×p product dst = a(m×n) · b(n×p).
func MatMul(dst, a, b []float64, m, n, p int) {
	mustSameLen("MatMul", m*n, len(a))
	mustSameLen("MatMul", n*p, len(b))
	mustSameLen("MatMul", m*p, len(dst))
	out := mat.NewDense(m, p, dst)
	out.Mul(mat.NewDense(m, n, a), mat.NewDense(n, p, b))
}

// Invert replaces the n×n matrix a with its inverse. It returns
// errors.ErrSingularMatrix when a is singular or too ill-conditioned to
// invert, leaving a unchanged.
func Invert(a []float64, n int) error {
	if len(a) < n*n {
		panic(fmt.Sprintf("accel: Invert: buffer holds %d elements, need %d", len(a), n*n))
	}
	src := mat.NewDense(n, n, a[:n*n])
	var inv mat.Dense
	if err := inv.Inverse(src); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return errors.WithStack(errors.ErrSingularMatrix)
		}
		return errors.Wrap(err, "accel: Invert")
	}
	src.Copy(&inv)
	return nil
}

// Det returns the determinant of the n×n matrix a.
func Det(a []float64, n int) float64 {
	if len(a) < n*n {
		panic(fmt.Sprintf("accel: Det: buffer holds %d elements, need %d", len(a), n*n))
	}
	return mat.Det(mat.NewDense(n, n, a[:n*n]))
}
