package metrics

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// Accuracy returns the fraction of labels predicted exactly.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i, v := range yTrue {
		if v == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ClassificationError returns 1 - Accuracy.
func ClassificationError(yTrue, yPred []float64) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// CrossEntropy returns the mean negative log probability assigned to the
// true class. proba[i] holds one probability per class and classIndex[i] the
// index of the true class of example i.
func CrossEntropy(classIndex []int, proba [][]float64) (float64, error) {
	if len(classIndex) == 0 {
		return 0, errors.NewValueError("CrossEntropy", "empty vector")
	}
	if len(proba) != len(classIndex) {
		return 0, errors.NewDimensionError("CrossEntropy", len(classIndex), len(proba), 0)
	}
	var sum float64
	for i, k := range classIndex {
		if k < 0 || k >= len(proba[i]) {
			return 0, errors.NewValidationError("classIndex", "out of range", k)
		}
		sum -= math.Log(errors.ClampProbability(proba[i][k]))
	}
	return sum / float64(len(classIndex)), nil
}
