package model

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// Norm selects the penalty applied to non-bias weights.
type Norm int

const (
	L2 Norm = iota
	L1
)

func (n Norm) String() string {
	switch n {
	case L1:
		return "l1"
	case L2:
		return "l2"
	default:
		return "unknown"
	}
}

// Regularization configures the weight penalty. The zero value disables it.
//
//	L2: (λ/2m) Σ w²   gradient (λ/m) w
//	L1: (λ/m) Σ |w|   gradient (λ/m) sign(w)
//
// Callers pass only the weights the penalty applies to; bias weights are
// excluded by the predictors.
type Regularization struct {
	Lambda float64
	Norm   Norm
}

// NoRegularization disables the penalty.
var NoRegularization = Regularization{}

// Enabled reports whether the penalty contributes anything.
func (r Regularization) Enabled() bool {
	return r.Lambda > 0
}

// Validate checks λ and the norm.
func (r Regularization) Validate() error {
	if r.Lambda < 0 || math.IsNaN(r.Lambda) || math.IsInf(r.Lambda, 0) {
		return errors.NewValidationError("regularization.lambda", "must be a finite non-negative number", r.Lambda)
	}
	if r.Norm != L1 && r.Norm != L2 {
		return errors.NewValidationError("regularization.norm", "must be L1 or L2", int(r.Norm))
	}
	return nil
}

// Penalty returns the penalty for weights w over m training examples.
func (r Regularization) Penalty(w []float64, m int) float64 {
	if !r.Enabled() || m == 0 {
		return 0
	}
	var s float64
	switch r.Norm {
	case L1:
		for _, v := range w {
			s += math.Abs(v)
		}
		return r.Lambda / float64(m) * s
	default:
		for _, v := range w {
			s += v * v
		}
		return r.Lambda / (2 * float64(m)) * s
	}
}

// AddGradient adds the penalty gradient for w into grad.
func (r Regularization) AddGradient(grad, w []float64, m int) {
	if !r.Enabled() || m == 0 {
		return
	}
	scale := r.Lambda / float64(m)
	switch r.Norm {
	case L1:
		for i, v := range w {
			switch {
			case v > 0:
				grad[i] += scale
			case v < 0:
				grad[i] -= scale
			}
		}
	default:
		for i, v := range w {
			grad[i] += scale * v
		}
	}
}
