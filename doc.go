// Package learnkit provides supervised learning for Go: linear regression,
// feed-forward neural network classification and ID3 decision trees over a
// dense feature matrix.
//
// Every predictor follows the same lifecycle. It is constructed over a
// matrix and an optimization algorithm, trained once, and then used for
// prediction:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/learnkit/core/matrix"
//	    "github.com/YuminosukeSato/learnkit/linear"
//	    "github.com/YuminosukeSato/learnkit/optimize"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    m, err := matrix.FromDense(x, []float64{2, 4, 6, 8}, matrix.WithBiasColumn())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    alg, _ := optimize.NewNormalEquations()
//	    model, err := linear.NewRegression(m, alg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := model.Train(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    y, _ := model.Predict([]float64{5})
//	    fmt.Println("Prediction:", y)
//	}
//
// # Packages
//
//   - core/matrix: the Matrix type with normalization, shuffling, splitting
//     and a binary loader
//   - core/accel: vector and dense kernels over caller buffers
//   - core/model: predictor interfaces, training state, classes,
//     regularization and raw parameter buffers
//   - core/parallel: chunked data-parallel fan-out
//   - optimize: gradient descent, normal equations, L-BFGS and conjugate
//     gradient behind one Algorithm interface
//   - linear: linear regression with residual analysis
//   - neural: neural network classifier
//   - tree: ID3 decision tree classifier
//   - metrics: regression and classification scores
//   - pkg/errors: typed errors, warnings and numerical guards
//   - pkg/log: structured logging with zerolog and slog backends
//
// # Parallelism
//
// Cost and gradient evaluation splits the training examples across CPU
// cores when a predictor is built WithImplementation(model.Parallel) and
// the matrix has more than model.ParallelThreshold rows. Calls still block
// until every worker has finished.
package learnkit
