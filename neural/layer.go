package neural

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Layer is one fully connected layer.
//
// weights は (in+1)×out の行列で、0行目がバイアスの重み。
type Layer struct {
	in, out    int
	activation Activation
	weights    *mat.Dense
}

// newLayer wraps data, which must hold (in+1)*out values, and initialises
// it uniformly in ±√6/√(in+out).
func newLayer(in, out int, activation Activation, rng *rand.Rand, data []float64) *Layer {
	limit := math.Sqrt(6) / math.Sqrt(float64(in+out))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: rng}

	for i := range data {
		data[i] = dist.Rand()
	}
	return &Layer{
		in:         in,
		out:        out,
		activation: activation,
		weights:    mat.NewDense(in+1, out, data),
	}
}

// InputSize returns the number of inputs, excluding the bias unit.
func (l *Layer) InputSize() int { return l.in }

// OutputSize returns the number of units.
func (l *Layer) OutputSize() int { return l.out }

// Activation returns the layer's non-linearity.
func (l *Layer) Activation() Activation { return l.activation }

// Weights returns a copy of the (InputSize()+1) × OutputSize() weight
// matrix. Row 0 holds the bias weights.
func (l *Layer) Weights() *mat.Dense {
	return mat.DenseCopyOf(l.weights)
}

// Forward activates the layer for input, which must have InputSize()
// entries and no bias unit.
func (l *Layer) Forward(input []float64) ([]float64, error) {
	if len(input) != l.in {
		return nil, errors.NewDimensionError("Layer.Forward", l.in, len(input), 0)
	}
	biased := make([]float64, l.in+1)
	biased[0] = 1
	copy(biased[1:], input)

	out := make([]float64, l.out)
	propagate(out, l.weights.RawMatrix().Data, biased)
	l.activation.apply(out)
	return out, nil
}

// propagate computes z = Wᵀa for row-major w of len(a) × len(z).
func propagate(z, w, a []float64) {
	o := len(z)
	accel.Clear(z)
	for i, v := range a {
		if v == 0 {
			continue
		}
		floats.AddScaled(z, v, w[i*o:(i+1)*o])
	}
}
