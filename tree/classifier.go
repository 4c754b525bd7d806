// Package tree implements an ID3 decision tree classifier over boolean and
// categorical feature columns.
package tree

import (
	"fmt"
	"time"

	"github.com/YuminosukeSato/learnkit/core/matrix"
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/metrics"
	"github.com/YuminosukeSato/learnkit/optimize"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const modelName = "DecisionTreeClassifier"

// node は葉(クラス分布)または内部ノード(分割列と結果ごとの子)
type node struct {
	distribution []float64
	column       int
	children     []*node
}

func (n *node) leaf() bool { return n.children == nil }

// Classifier is an ID3 decision tree. Every candidate column must be
// registered with RegisterBoolean or RegisterCategorical before Train.
type Classifier struct {
	state *model.StateManager

	matrix         *matrix.Matrix
	classes        *model.Classes
	columns        map[int]columnSpec
	exampleIndices []int
	columnIndices  []int
	reuseColumns   bool
	logger         log.Logger

	root   *node
	depth  int
	leaves int
}

var _ model.Classifier = (*Classifier)(nil)

// NewClassifier binds a decision tree to m, whose output vector holds class
// labels. algorithm is not used by ID3 and may be nil.
func NewClassifier(m *matrix.Matrix, algorithm optimize.Algorithm, classes *model.Classes, opts ...Option) (*Classifier, error) {
	if m == nil {
		return nil, errors.NewValidationError("matrix", "must not be nil", nil)
	}
	if !m.HasOutput() {
		return nil, errors.NewPreconditionError("tree.NewClassifier", "matrix has an output vector", errors.ErrNoOutputVector)
	}
	if classes == nil {
		return nil, errors.NewValidationError("classes", "must not be nil", nil)
	}

	c := &Classifier{
		state:   model.NewStateManager(),
		matrix:  m,
		classes: classes,
		columns: make(map[int]columnSpec),
		logger:  log.GetLoggerWithName("tree"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.exampleIndices == nil {
		c.exampleIndices = make([]int, m.Rows())
		for i := range c.exampleIndices {
			c.exampleIndices[i] = i
		}
	}
	for _, row := range c.exampleIndices {
		if row < 0 || row >= m.Rows() {
			return nil, errors.NewValidationError("exampleIndices", fmt.Sprintf("must be in [0,%d)", m.Rows()), row)
		}
	}
	if c.columnIndices == nil {
		c.columnIndices = make([]int, m.Columns())
		for j := range c.columnIndices {
			c.columnIndices[j] = j
		}
	}
	for _, col := range c.columnIndices {
		if col < 0 || col >= m.Columns() {
			return nil, errors.NewValidationError("columnIndices", fmt.Sprintf("must be in [0,%d)", m.Columns()), col)
		}
	}

	if algorithm != nil {
		c.logger.Debug("Algorithm is not used by ID3",
			log.ModelNameKey, modelName, log.AlgorithmKey, algorithm.Name())
	}
	return c, nil
}

func (c *Classifier) register(op string, col int, spec columnSpec) error {
	if col < 0 || col >= c.matrix.Columns() {
		return errors.NewValidationError("column", fmt.Sprintf("%s: must be in [0,%d)", op, c.matrix.Columns()), col)
	}
	if c.state.State() != model.Untrained {
		return errors.NewPreconditionError(op, "classifier is untrained", errors.ErrAlreadyTrained)
	}
	c.columns[col] = spec
	return nil
}

// RegisterBoolean declares feature column col as holding 0 or 1.
func (c *Classifier) RegisterBoolean(col int) error {
	return c.register("RegisterBoolean", col, columnSpec{kind: Boolean, cardinality: 2})
}

// RegisterCategorical declares feature column col as holding integers in
// [0, cardinality).
func (c *Classifier) RegisterCategorical(col, cardinality int) error {
	if cardinality < 1 {
		return errors.NewValidationError("cardinality", "must be positive", cardinality)
	}
	return c.register("RegisterCategorical", col, columnSpec{kind: Categorical, cardinality: cardinality})
}

// ColumnType returns the registered type of feature column col.
func (c *Classifier) ColumnType(col int) (ColumnType, bool) {
	spec, ok := c.columns[col]
	return spec.kind, ok
}

// validate checks registrations, stored values and labels, and returns the
// class index of every training example.
func (c *Classifier) validate() (map[int]int, error) {
	for _, col := range c.columnIndices {
		if _, ok := c.columns[col]; !ok {
			return nil, errors.NewPreconditionError("DecisionTreeClassifier.Train",
				fmt.Sprintf("column %d is registered", col), errors.ErrUnregisteredColumn)
		}
	}

	y := c.matrix.Output()
	targets := make(map[int]int, len(c.exampleIndices))
	for _, row := range c.exampleIndices {
		idx, ok := c.classes.IndexOf(y[row])
		if !ok {
			return nil, errors.NewValidationError("output",
				fmt.Sprintf("row %d: label is not one of %s", row, c.classes), y[row])
		}
		targets[row] = idx

		x := c.matrix.Features(row)
		for _, col := range c.columnIndices {
			spec := c.columns[col]
			if _, ok := spec.outcome(x[col]); !ok {
				return nil, errors.NewValidationError(fmt.Sprintf("row %d column %d", row, col),
					fmt.Sprintf("%s value must be an integer in [0,%d)", spec.kind, spec.cardinality), x[col])
			}
		}
	}
	return targets, nil
}

// builder holds the state of one ID3 run.
type builder struct {
	c       *Classifier
	targets map[int]int
	used    map[int]bool
}

// distribution returns the class frequencies of rows and whether they all
// share one class.
func (b *builder) distribution(rows []int) ([]float64, bool) {
	dist := make([]float64, b.c.classes.Count())
	for _, row := range rows {
		dist[b.targets[row]]++
	}
	pure := floats.Max(dist) == float64(len(rows))
	floats.Scale(1/float64(len(rows)), dist)
	return dist, pure
}

// partition splits rows by the outcome of col.
func (b *builder) partition(rows []int, col int) [][]int {
	spec := b.c.columns[col]
	parts := make([][]int, spec.cardinality)
	for _, row := range rows {
		v, _ := spec.outcome(b.c.matrix.Features(row)[col])
		parts[v] = append(parts[v], row)
	}
	return parts
}

// informationGain returns H(S) - Σ |Sᵥ|/|S| H(Sᵥ) and whether col actually
// splits rows into more than one non-empty part.
func (b *builder) informationGain(entropy float64, rows []int, col int) (float64, bool) {
	parts := b.partition(rows, col)
	gain := entropy
	nonEmpty := 0
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		nonEmpty++
		weight := float64(len(part)) / float64(len(rows))
		dist, _ := b.distribution(part)
		gain -= weight * stat.Entropy(dist)
	}
	return gain, nonEmpty > 1
}

func (b *builder) build(rows []int, parent []float64, depth int) *node {
	if depth > b.c.depth {
		b.c.depth = depth
	}
	if len(rows) == 0 {
		b.c.leaves++
		return &node{distribution: parent}
	}
	dist, pure := b.distribution(rows)
	if pure {
		b.c.leaves++
		return &node{distribution: dist}
	}

	entropy := stat.Entropy(dist)
	best, bestGain := -1, 0.0
	for _, col := range b.c.columnIndices {
		if b.used[col] && !b.c.reuseColumns {
			continue
		}
		gain, splits := b.informationGain(entropy, rows, col)
		if splits && (best < 0 || gain > bestGain) {
			best, bestGain = col, gain
		}
	}
	if best < 0 {
		b.c.leaves++
		return &node{distribution: dist}
	}

	n := &node{distribution: dist, column: best}
	wasUsed := b.used[best]
	b.used[best] = true
	for _, part := range b.partition(rows, best) {
		n.children = append(n.children, b.build(part, dist, depth+1))
	}
	b.used[best] = wasUsed
	return n
}

// Train grows the tree with ID3.
func (c *Classifier) Train() error {
	if err := c.state.Begin("DecisionTreeClassifier.Train"); err != nil {
		return err
	}
	logger := c.logger.With(log.ModelNameKey, modelName)

	targets, err := c.validate()
	if err != nil {
		c.state.Fail()
		logger.Error("Training failed", err, log.OperationKey, log.OperationTrain)
		return err
	}

	logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.AlgorithmKey, "id3",
		log.SamplesKey, len(c.exampleIndices),
		log.FeaturesKey, len(c.columnIndices),
		log.ClassesKey, c.classes.Count(),
	)
	started := time.Now()

	uniform := make([]float64, c.classes.Count())
	for i := range uniform {
		uniform[i] = 1 / float64(len(uniform))
	}
	c.depth, c.leaves = 0, 0
	b := &builder{c: c, targets: targets, used: make(map[int]bool)}
	c.root = b.build(c.exampleIndices, uniform, 0)
	c.state.Finish(c.matrix.Columns(), len(c.exampleIndices))

	logger.Info("Training finished",
		log.OperationKey, log.OperationTrain,
		log.DepthKey, c.depth,
		"tree.leaves", c.leaves,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
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

func (c *Classifier) leafFor(op string, x []float64) (*node, error) {
	if err := c.state.RequireTrained(modelName, op); err != nil {
		return nil, err
	}
	if len(x) != c.matrix.Columns() {
		return nil, errors.NewDimensionError("DecisionTreeClassifier."+op, c.matrix.Columns(), len(x), 0)
	}
	n := c.root
	for !n.leaf() {
		spec := c.columns[n.column]
		v, ok := spec.outcome(x[n.column])
		if !ok {
			return nil, errors.NewValidationError(fmt.Sprintf("x[%d]", n.column),
				fmt.Sprintf("%s value must be an integer in [0,%d)", spec.kind, spec.cardinality), x[n.column])
		}
		n = n.children[v]
	}
	return n, nil
}

// PredictProbabilities returns the class distribution of the leaf x falls
// into, in class index order.
func (c *Classifier) PredictProbabilities(x []float64) ([]float64, error) {
	n, err := c.leafFor("PredictProbabilities", x)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), n.distribution...), nil
}

// Predict returns the most frequent label of the leaf x falls into. Ties go
// to the lowest class index.
func (c *Classifier) Predict(x []float64) (int, error) {
	n, err := c.leafFor("Predict", x)
	if err != nil {
		return 0, err
	}
	return c.classes.Label(floats.MaxIdx(n.distribution)), nil
}

// Accuracy returns the fraction of test rows predicted correctly.
func (c *Classifier) Accuracy(test *matrix.Matrix) (float64, error) {
	if err := c.state.RequireTrained(modelName, "Accuracy"); err != nil {
		return 0, err
	}
	if !test.HasOutput() {
		return 0, errors.NewPreconditionError("DecisionTreeClassifier.Accuracy", "test matrix has an output vector", errors.ErrNoOutputVector)
	}
	pred := make([]float64, test.Rows())
	for i := range pred {
		label, err := c.Predict(test.Features(i))
		if err != nil {
			return 0, err
		}
		pred[i] = float64(label)
	}
	return metrics.Accuracy(test.Output(), pred)
}

// Depth returns the number of splits on the longest path. A tree that is a
// single leaf has depth 0.
func (c *Classifier) Depth() int { return c.depth }

// LeafCount returns the number of leaves, empty-subset leaves included.
func (c *Classifier) LeafCount() int { return c.leaves }
