package neural

import (
	"fmt"

	"github.com/YuminosukeSato/learnkit/core/accel"
)

// Activation is the non-linearity applied by hidden layers. The output
// layer always uses Sigmoid.
type Activation int

const (
	// Sigmoid is the logistic function 1/(1+e⁻ᶻ).
	Sigmoid Activation = iota
	// Tanh is the hyperbolic tangent.
	Tanh
)

func (a Activation) String() string {
	switch a {
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}

func (a Activation) valid() bool {
	return a == Sigmoid || a == Tanh
}

// apply activates z in place.
func (a Activation) apply(z []float64) {
	switch a {
	case Tanh:
		accel.Tanh(z, z)
	default:
		accel.Sigmoid(z)
	}
}

// derivative stores f′ into dst given the already activated values.
func (a Activation) derivative(dst, activated []float64) {
	switch a {
	case Tanh:
		accel.TanhGrad(dst, activated)
	default:
		accel.SigmoidGrad(dst, activated)
	}
}
