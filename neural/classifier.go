// Package neural implements a feed-forward neural network classifier
// trained by conjugate gradient.
package neural

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/core/matrix"
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/core/parallel"
	"github.com/YuminosukeSato/learnkit/metrics"
	"github.com/YuminosukeSato/learnkit/optimize"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
	"gonum.org/v1/gonum/floats"
)

const modelName = "NeuralNetworkClassifier"

// Classifier はフィードフォワード型ニューラルネットワークによる分類器
//
// 層構成は 入力(columns) → 隠れ層... → 出力(classes.Count())。
// 出力層は常にシグモイドで、コストはone-hot目標に対する交差エントロピー。
type Classifier struct {
	state *model.StateManager

	matrix         *matrix.Matrix
	algorithm      *optimize.ConjugateGradient
	classes        *model.Classes
	regularization model.Regularization
	activation     Activation
	seed           uint64
	implementation model.Implementation
	logger         log.Logger

	layers  []*Layer
	offsets []int
	params  []float64 // 全層の重み。各層の weights はこのスライスのビュー
	targets []int
	result  *optimize.Result
}

var (
	_ model.Classifier        = (*Classifier)(nil)
	_ model.ParameterExporter = (*Classifier)(nil)
)

// NewClassifier builds a network over m, which must have a bias column and
// an output vector of class labels. hiddenSizes lists the hidden layer
// widths; at least one is required.
func NewClassifier(m *matrix.Matrix, algorithm optimize.Algorithm, classes *model.Classes, hiddenSizes []int, opts ...Option) (*Classifier, error) {
	if m == nil {
		return nil, errors.NewValidationError("matrix", "must not be nil", nil)
	}
	if !m.HasBiasColumn() {
		return nil, errors.NewPreconditionError("neural.NewClassifier", "matrix has a bias column", errors.ErrMissingBiasColumn)
	}
	if !m.HasOutput() {
		return nil, errors.NewPreconditionError("neural.NewClassifier", "matrix has an output vector", errors.ErrNoOutputVector)
	}
	cg, ok := algorithm.(*optimize.ConjugateGradient)
	if !ok || cg == nil {
		name := "<nil>"
		if algorithm != nil {
			name = algorithm.Name()
		}
		return nil, errors.NewValidationError("algorithm", "neural networks are trained by conjugate gradient", name)
	}
	if classes == nil {
		return nil, errors.NewValidationError("classes", "must not be nil", nil)
	}
	if len(hiddenSizes) == 0 {
		return nil, errors.NewValidationError("hiddenSizes", "at least one hidden layer is required", hiddenSizes)
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, errors.NewValidationError(fmt.Sprintf("hiddenSizes[%d]", i), "must be positive", size)
		}
	}

	c := &Classifier{
		state:          model.NewStateManager(),
		matrix:         m,
		algorithm:      cg,
		classes:        classes,
		activation:     Sigmoid,
		seed:           1,
		implementation: model.Sequential,
		logger:         log.GetLoggerWithName("neural"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.regularization.Validate(); err != nil {
		return nil, err
	}
	if !c.activation.valid() {
		return nil, errors.NewValidationError("activation", "must be Sigmoid or Tanh", int(c.activation))
	}

	targets := make([]int, m.Rows())
	for i, v := range m.Output() {
		idx, ok := classes.IndexOf(v)
		if !ok {
			return nil, errors.NewValidationError("output", fmt.Sprintf("row %d: label is not one of %s", i, classes), v)
		}
		targets[i] = idx
	}
	c.targets = targets

	rng := rand.New(rand.NewPCG(c.seed, c.seed))
	sizes := append(append([]int{m.Columns()}, hiddenSizes...), classes.Count())
	c.offsets = make([]int, len(sizes))
	for l := 0; l < len(sizes)-1; l++ {
		c.offsets[l+1] = c.offsets[l] + (sizes[l]+1)*sizes[l+1]
	}
	c.params = make([]float64, c.offsets[len(c.offsets)-1])
	for l := 0; l < len(sizes)-1; l++ {
		act := c.activation
		if l == len(sizes)-2 {
			act = Sigmoid
		}
		c.layers = append(c.layers, newLayer(sizes[l], sizes[l+1], act, rng, c.view(c.params, l)))
	}
	return c, nil
}

// parameterCount returns the length of the flattened weight vector.
func (c *Classifier) parameterCount() int {
	return c.offsets[len(c.offsets)-1]
}

// view returns layer l's row-major weights inside theta.
func (c *Classifier) view(theta []float64, l int) []float64 {
	return theta[c.offsets[l]:c.offsets[l+1]]
}

// flatten returns a copy of every layer's weights as one vector.
func (c *Classifier) flatten() []float64 {
	return append([]float64(nil), c.params...)
}

// install copies theta into the layer weights.
func (c *Classifier) install(theta []float64) {
	copy(c.params, theta)
}

// workspace holds per-goroutine activation and delta buffers.
type workspace struct {
	acts   [][]float64 // バイアス付きの活性 (len out+1)
	deltas [][]float64
	deriv  [][]float64
}

func (c *Classifier) newWorkspace() *workspace {
	ws := &workspace{
		acts:   make([][]float64, len(c.layers)),
		deltas: make([][]float64, len(c.layers)),
		deriv:  make([][]float64, len(c.layers)),
	}
	for l, layer := range c.layers {
		ws.acts[l] = make([]float64, layer.out+1)
		ws.deltas[l] = make([]float64, layer.out)
		ws.deriv[l] = make([]float64, layer.out)
	}
	return ws
}

// forward runs a biased input row through the network and returns the
// output activations, a view into ws.
func (c *Classifier) forward(theta, row []float64, ws *workspace) []float64 {
	in := row
	for l, layer := range c.layers {
		out := ws.acts[l]
		out[0] = 1
		z := out[1:]
		propagate(z, c.view(theta, l), in)
		layer.activation.apply(z)
		in = out
	}
	return in[1:]
}

// crossEntropy is Σₖ -[yₖ log hₖ + (1-yₖ) log(1-hₖ)] for one-hot target.
func crossEntropy(h []float64, target int) float64 {
	var cost float64
	for k, p := range h {
		p = errors.ClampProbability(p)
		if k == target {
			cost -= math.Log(p)
		} else {
			cost -= math.Log(1 - p)
		}
	}
	return cost
}

// backward accumulates ∂cost/∂θ for one example into grad.
func (c *Classifier) backward(theta, grad, row []float64, target int, ws *workspace) {
	last := len(c.layers) - 1
	delta := ws.deltas[last]
	copy(delta, ws.acts[last][1:])
	delta[target]--

	for l := last; l >= 0; l-- {
		layer := c.layers[l]
		prev := row
		if l > 0 {
			prev = ws.acts[l-1]
		}
		g := c.view(grad, l)
		delta = ws.deltas[l]
		for i, a := range prev {
			if a == 0 {
				continue
			}
			floats.AddScaled(g[i*layer.out:(i+1)*layer.out], a, delta)
		}
		if l == 0 {
			break
		}

		// δ_{l-1} = (W_l の非バイアス行 · δ_l) ⊙ f′(a_{l-1})
		w := c.view(theta, l)
		below := ws.deltas[l-1]
		for i := range below {
			below[i] = floats.Dot(w[(i+1)*layer.out:(i+2)*layer.out], delta)
		}
		c.layers[l-1].activation.derivative(ws.deriv[l-1], ws.acts[l-1][1:])
		accel.Mul(below, below, ws.deriv[l-1])
	}
}

// penaltyWeights returns the non-bias slice of layer l inside theta.
func (c *Classifier) penaltyWeights(theta []float64, l int) []float64 {
	return c.view(theta, l)[c.layers[l].out:]
}

// evaluate returns J(θ) and, when grad is non-nil, stores ∇J(θ) into it.
func (c *Classifier) evaluate(theta, grad []float64) float64 {
	m := c.matrix.Rows()
	width := 1
	if grad != nil {
		width += len(theta)
	}
	acc := parallel.Reduce(m, c.implementation.Threshold(), width, func(start, end int, acc []float64) {
		ws := c.newWorkspace()
		for i := start; i < end; i++ {
			row := c.matrix.Row(i)
			h := c.forward(theta, row, ws)
			acc[0] += crossEntropy(h, c.targets[i])
			if grad != nil {
				c.backward(theta, acc[1:], row, c.targets[i], ws)
			}
		}
	})

	cost := acc[0] / float64(m)
	for l := range c.layers {
		cost += c.regularization.Penalty(c.penaltyWeights(theta, l), m)
	}
	if grad != nil {
		accel.Scale(grad, 1/float64(m), acc[1:])
		for l := range c.layers {
			c.regularization.AddGradient(c.penaltyWeights(grad, l), c.penaltyWeights(theta, l), m)
		}
	}
	return cost
}

// Cost returns J(θ) over the training matrix for a flattened weight vector.
func (c *Classifier) Cost(theta []float64) float64 {
	return c.evaluate(theta, nil)
}

// Gradient stores ∇J(θ) into grad.
func (c *Classifier) Gradient(grad, theta []float64) {
	c.evaluate(theta, grad)
}

// Train minimises the cost with conjugate gradient starting from the
// initial weights.
func (c *Classifier) Train() error {
	if err := c.state.Begin("NeuralNetworkClassifier.Train"); err != nil {
		return err
	}

	logger := c.logger.With(log.ModelNameKey, modelName)
	logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.AlgorithmKey, c.algorithm.Name(),
		log.ImplementationKey, c.implementation.String(),
		log.SamplesKey, c.matrix.Rows(),
		log.FeaturesKey, c.matrix.Columns(),
		log.ClassesKey, c.classes.Count(),
		log.ParametersKey, c.parameterCount(),
		log.RegularizationKey, c.regularization.Lambda,
		log.RandomSeedKey, c.seed,
	)
	started := time.Now()

	obj := optimize.Objective{Cost: c.Cost, Gradient: c.Gradient}
	res, err := c.algorithm.Minimize(obj, c.flatten())
	if err != nil {
		c.state.Fail()
		logger.Error("Training failed", err, log.OperationKey, log.OperationTrain)
		return errors.NewModelError("NeuralNetworkClassifier.Train", "training failed", err)
	}

	c.install(res.Parameters)
	c.result = res
	c.state.Finish(c.matrix.Columns(), c.matrix.Rows())

	fields := []any{
		log.OperationKey, log.OperationTrain,
		log.StatusKey, res.Status.String(),
		log.IterationKey, res.Iterations,
		log.LossKey, res.Cost,
		log.InitialLossKey, res.InitialCost,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	}
	if acc, err := c.Accuracy(c.matrix); err == nil {
		fields = append(fields, log.AccuracyKey, acc)
	}
	logger.Info("Training finished", fields...)
	return nil
}

// IsTrained reports whether Train has completed.
func (c *Classifier) IsTrained() bool {
	return c.state.IsTrained()
}

// Classes returns the label set.
func (c *Classifier) Classes() *model.Classes {
	return c.classes
}

// Result returns the optimizer outcome of the last Train, or nil.
func (c *Classifier) Result() *optimize.Result {
	return c.result
}

// outputs returns normalised class scores for a feature row in the
// training matrix's scale.
func (c *Classifier) outputs(features []float64) []float64 {
	row := make([]float64, len(features)+1)
	row[0] = 1
	copy(row[1:], features)

	h := append([]float64(nil), c.forward(c.params, row, c.newWorkspace())...)
	if s := floats.Sum(h); s > 0 {
		floats.Scale(1/s, h)
	}
	return h
}

func (c *Classifier) prepareInput(op string, x []float64) ([]float64, error) {
	if err := c.state.RequireTrained(modelName, op); err != nil {
		return nil, err
	}
	if len(x) != c.matrix.Columns() {
		return nil, errors.NewDimensionError("NeuralNetworkClassifier."+op, c.matrix.Columns(), len(x), 0)
	}
	if c.matrix.IsNormalized() {
		return c.matrix.NormalizeVector(x)
	}
	return x, nil
}

// PredictProbabilities returns one score per class, in class index order,
// summing to 1. The output units are sigmoids, so the scores are their
// values divided by their sum.
func (c *Classifier) PredictProbabilities(x []float64) ([]float64, error) {
	x, err := c.prepareInput("PredictProbabilities", x)
	if err != nil {
		return nil, err
	}
	return c.outputs(x), nil
}

// Predict returns the label of the highest scoring class.
func (c *Classifier) Predict(x []float64) (int, error) {
	p, err := c.PredictProbabilities(x)
	if err != nil {
		return 0, err
	}
	return c.classes.Label(floats.MaxIdx(p)), nil
}

// Accuracy returns the fraction of test rows whose label is predicted
// correctly. Rows of a normalized test matrix are used as they are.
func (c *Classifier) Accuracy(test *matrix.Matrix) (float64, error) {
	if err := c.state.RequireTrained(modelName, "Accuracy"); err != nil {
		return 0, err
	}
	if !test.HasOutput() {
		return 0, errors.NewPreconditionError("NeuralNetworkClassifier.Accuracy", "test matrix has an output vector", errors.ErrNoOutputVector)
	}
	if test.Columns() != c.matrix.Columns() {
		return 0, errors.NewDimensionError("NeuralNetworkClassifier.Accuracy", c.matrix.Columns(), test.Columns(), 1)
	}

	pred := make([]float64, test.Rows())
	for i := range pred {
		x := test.Features(i)
		if test.IsNormalized() {
			pred[i] = float64(c.classes.Label(floats.MaxIdx(c.outputs(x))))
			continue
		}
		label, err := c.Predict(x)
		if err != nil {
			return 0, err
		}
		pred[i] = float64(label)
	}
	return metrics.Accuracy(test.Output(), pred)
}

// HiddenLayerCount returns the number of hidden layers.
func (c *Classifier) HiddenLayerCount() int {
	return len(c.layers) - 1
}

// HiddenLayer returns hidden layer i, counting from the input side.
func (c *Classifier) HiddenLayer(i int) *Layer {
	if i < 0 || i >= c.HiddenLayerCount() {
		panic(fmt.Sprintf("neural: hidden layer %d out of range [0,%d)", i, c.HiddenLayerCount()))
	}
	return c.layers[i]
}

// OutputLayer returns the sigmoid output layer.
func (c *Classifier) OutputLayer() *Layer {
	return c.layers[len(c.layers)-1]
}

// Layers returns every layer from input to output.
func (c *Classifier) Layers() []*Layer {
	return append([]*Layer(nil), c.layers...)
}

// ExportParameters returns every weight, layer by layer in row-major order.
func (c *Classifier) ExportParameters() ([]float64, error) {
	if err := c.state.RequireTrained(modelName, "ExportParameters"); err != nil {
		return nil, err
	}
	return c.flatten(), nil
}

// ImportParameters installs weights produced by ExportParameters on an
// untrained classifier, which becomes trained.
func (c *Classifier) ImportParameters(params []float64) error {
	if len(params) != c.parameterCount() {
		return errors.NewDimensionError("NeuralNetworkClassifier.ImportParameters", c.parameterCount(), len(params), 0)
	}
	if err := c.state.Begin("NeuralNetworkClassifier.ImportParameters"); err != nil {
		return err
	}
	c.install(params)
	c.state.Finish(c.matrix.Columns(), c.matrix.Rows())
	return nil
}
