package linear

import (
	"math"

	"github.com/YuminosukeSato/learnkit/core/matrix"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// Residuals returns yᵢ - ŷᵢ for every training row.
func (lr *Regression) Residuals() ([]float64, error) {
	if err := lr.state.RequireTrained(modelName, "Residuals"); err != nil {
		return nil, err
	}
	y := lr.matrix.Output()
	res := make([]float64, lr.matrix.Rows())
	for i := range res {
		res[i] = y[i] - lr.predictFeatures(lr.matrix.Features(i))
	}
	return res, nil
}

func (lr *Regression) rss() (float64, []float64, error) {
	res, err := lr.Residuals()
	if err != nil {
		return 0, nil, err
	}
	var rss float64
	for _, r := range res {
		rss += r * r
	}
	return rss, res, nil
}

// HatMatrix returns H = X(XᵀX)⁻¹Xᵀ over the training matrix, bias included.
// Its diagonal holds the leverage of each row.
func (lr *Regression) HatMatrix() (*matrix.Matrix, error) {
	if err := lr.state.RequireTrained(modelName, "HatMatrix"); err != nil {
		return nil, err
	}
	x := lr.matrix
	xt := x.Transposed()
	xtx, err := xt.Multiply(x)
	if err != nil {
		return nil, err
	}
	inv, err := xtx.Inverted()
	if err != nil {
		return nil, errors.Wrap(err, "linear: hat matrix")
	}
	left, err := x.Multiply(inv)
	if err != nil {
		return nil, err
	}
	return left.Multiply(xt)
}

// StandardizedResiduals divides each residual by the residual standard error
// σ̂ = √(RSS/(n-p)). With leverageAdjusted the divisor is σ̂√(1-hᵢᵢ), giving
// internally studentized residuals. A row with leverage 1 yields 0.
func (lr *Regression) StandardizedResiduals(leverageAdjusted bool) ([]float64, error) {
	rss, res, err := lr.rss()
	if err != nil {
		return nil, err
	}
	n := len(res)
	dof := n - lr.matrix.Width()
	if dof <= 0 {
		dof = n
	}
	sigma := math.Sqrt(rss / float64(dof))

	out := make([]float64, n)
	if !leverageAdjusted {
		for i, r := range res {
			out[i] = errors.SafeDivide(r, sigma)
		}
		return out, nil
	}

	hat, err := lr.HatMatrix()
	if err != nil {
		return nil, err
	}
	for i, r := range res {
		h := hat.At(i, i)
		out[i] = errors.SafeDivide(r, sigma*math.Sqrt(math.Max(0, 1-h)))
	}
	return out, nil
}

// logLikelihoodTerm returns n·ln(RSS/n). RSS is floored so a perfect fit
// stays finite.
func (lr *Regression) logLikelihoodTerm() (float64, int, error) {
	rss, res, err := lr.rss()
	if err != nil {
		return 0, 0, err
	}
	n := float64(len(res))
	return n * errors.StabilizeLog(rss/n), len(res), nil
}

// AIC returns the Akaike information criterion n·ln(RSS/n) + 2k where k
// counts the intercept.
func (lr *Regression) AIC() (float64, error) {
	term, _, err := lr.logLikelihoodTerm()
	if err != nil {
		return 0, err
	}
	k := float64(lr.matrix.Width())
	return term + 2*k, nil
}

// BIC returns the Bayesian information criterion n·ln(RSS/n) + k·ln(n).
func (lr *Regression) BIC() (float64, error) {
	term, n, err := lr.logLikelihoodTerm()
	if err != nil {
		return 0, err
	}
	k := float64(lr.matrix.Width())
	return term + k*math.Log(float64(n)), nil
}
