package tree

import (
	"testing"

	"github.com/YuminosukeSato/learnkit/core/matrix"
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 列: outlook(晴=0, 曇=1, 雨=2), temperature(暑=0, 暖=1, 涼=2), humidity(高=1), wind(強=1)
// 出力: play(1) / don't play(0)
var tennis = [][5]float64{
	{0, 0, 1, 0, 0},
	{0, 0, 1, 1, 0},
	{1, 0, 1, 0, 1},
	{2, 1, 1, 0, 1},
	{2, 2, 0, 0, 1},
	{2, 2, 0, 1, 0},
	{1, 2, 0, 1, 1},
	{0, 1, 1, 0, 0},
	{0, 2, 0, 0, 1},
	{2, 1, 0, 0, 1},
	{0, 1, 0, 1, 1},
	{1, 1, 1, 1, 1},
	{1, 0, 0, 0, 1},
	{2, 1, 1, 1, 0},
}

const (
	outlook = iota
	temperature
	humidity
	wind
)

func tennisMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.New(len(tennis), 4, func(x, y []float64) bool {
		for i, r := range tennis {
			copy(x[i*4:(i+1)*4], r[:4])
			y[i] = r[4]
		}
		return true
	}, matrix.WithOutputVector())
	require.NoError(t, err)
	return m
}

func registerTennis(t *testing.T, c *Classifier) {
	t.Helper()
	require.NoError(t, c.RegisterCategorical(outlook, 3))
	require.NoError(t, c.RegisterCategorical(temperature, 3))
	require.NoError(t, c.RegisterBoolean(humidity))
	require.NoError(t, c.RegisterBoolean(wind))
}

func newTennisTree(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	c, err := NewClassifier(tennisMatrix(t), nil, model.ClassesWithCount(2), opts...)
	require.NoError(t, err)
	registerTennis(t, c)
	return c
}

func TestClassifierPlayTennis(t *testing.T) {
	c := newTennisTree(t)
	if err := c.Train(); err != nil {
		t.Fatalf("Failed to train: %v", err)
	}

	if c.Depth() != 2 {
		t.Errorf("Expected depth 2, got %d", c.Depth())
	}
	if c.LeafCount() != 5 {
		t.Errorf("Expected 5 leaves, got %d", c.LeafCount())
	}
	if c.root.column != outlook {
		t.Errorf("Expected root split on outlook, got column %d", c.root.column)
	}

	acc, err := c.Accuracy(tennisMatrix(t))
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if acc != 1 {
		t.Errorf("Expected training accuracy 1, got %v", acc)
	}

	tests := []struct {
		name string
		x    []float64
		want int
	}{
		{"sunny normal humidity", []float64{0, 0, 0, 1}, 1},
		{"sunny high humidity", []float64{0, 2, 1, 0}, 0},
		{"overcast", []float64{1, 0, 1, 1}, 1},
		{"rain weak wind", []float64{2, 0, 1, 0}, 1},
		{"rain strong wind", []float64{2, 2, 0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Predict(tt.x)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			p, err := c.PredictProbabilities(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, p[tt.want], 1e-12)
		})
	}
}

func TestClassifierXORNeedsZeroGainSplit(t *testing.T) {
	m, err := matrix.New(4, 2, func(x, y []float64) bool {
		for i := 0; i < 4; i++ {
			a, b := i&1, i>>1
			x[i*2], x[i*2+1] = float64(a), float64(b)
			y[i] = float64(a ^ b)
		}
		return true
	}, matrix.WithOutputVector(), matrix.WithBiasColumn())
	require.NoError(t, err)

	c, err := NewClassifier(m, nil, model.ClassesWithCount(2))
	require.NoError(t, err)
	require.NoError(t, c.RegisterBoolean(0))
	require.NoError(t, c.RegisterBoolean(1))
	require.NoError(t, c.Train())

	assert.Equal(t, 2, c.Depth())
	assert.Equal(t, 4, c.LeafCount())
	acc, err := c.Accuracy(m)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestClassifierEmptySubsetInheritsParent(t *testing.T) {
	m, err := matrix.New(4, 1, func(x, y []float64) bool {
		copy(x, []float64{0, 0, 1, 1})
		copy(y, []float64{0, 0, 1, 1})
		return true
	}, matrix.WithOutputVector())
	require.NoError(t, err)

	c, err := NewClassifier(m, nil, model.ClassesWithCount(2))
	require.NoError(t, err)
	require.NoError(t, c.RegisterCategorical(0, 3))
	require.NoError(t, c.Train())

	assert.Equal(t, 3, c.LeafCount())
	p, err := c.PredictProbabilities([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, p)

	// 同率の場合は最小のクラスインデックス
	got, err := c.Predict([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestClassifierEmptyRootIsUniform(t *testing.T) {
	c, err := NewClassifier(tennisMatrix(t), nil, model.ClassesWithCount(3), WithExampleIndices([]int{}))
	require.NoError(t, err)
	registerTennis(t, c)
	require.NoError(t, c.Train())

	assert.Equal(t, 0, c.Depth())
	assert.Equal(t, 1, c.LeafCount())
	p, err := c.PredictProbabilities([]float64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, p, 1e-15)
}

func TestClassifierOptions(t *testing.T) {
	t.Run("column indices", func(t *testing.T) {
		c := newTennisTree(t, WithColumnIndices([]int{humidity}))
		require.NoError(t, c.Train())
		assert.Equal(t, 1, c.Depth())
		assert.Equal(t, 2, c.LeafCount())
		assert.Equal(t, humidity, c.root.column)
	})

	t.Run("example indices", func(t *testing.T) {
		// 曇りの行だけなら分割しない
		c := newTennisTree(t, WithExampleIndices([]int{2, 6, 11, 12}))
		require.NoError(t, c.Train())
		assert.Equal(t, 0, c.Depth())
		assert.Equal(t, 1, c.LeafCount())
	})

	t.Run("column reuse never splits a decided column", func(t *testing.T) {
		c := newTennisTree(t, WithColumnReuse(true))
		require.NoError(t, c.Train())
		assert.Equal(t, 2, c.Depth())
		assert.Equal(t, 5, c.LeafCount())
	})

	t.Run("out of range indices", func(t *testing.T) {
		_, err := NewClassifier(tennisMatrix(t), nil, model.ClassesWithCount(2), WithExampleIndices([]int{14}))
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
		_, err = NewClassifier(tennisMatrix(t), nil, model.ClassesWithCount(2), WithColumnIndices([]int{-1}))
		assert.True(t, errors.As(err, &ve))
	})
}

func TestClassifierRegistration(t *testing.T) {
	c, err := NewClassifier(tennisMatrix(t), nil, model.ClassesWithCount(2))
	require.NoError(t, err)

	var ve *errors.ValidationError
	assert.True(t, errors.As(c.RegisterBoolean(4), &ve))
	assert.True(t, errors.As(c.RegisterCategorical(0, 0), &ve))

	require.NoError(t, c.RegisterCategorical(outlook, 3))
	kind, ok := c.ColumnType(outlook)
	assert.True(t, ok)
	assert.Equal(t, Categorical, kind)
	_, ok = c.ColumnType(wind)
	assert.False(t, ok)

	// 未登録の列があると学習できず、未学習状態に戻る
	err = c.Train()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnregisteredColumn))
	assert.False(t, c.IsTrained())

	require.NoError(t, c.RegisterCategorical(temperature, 3))
	require.NoError(t, c.RegisterBoolean(humidity))
	require.NoError(t, c.RegisterBoolean(wind))
	require.NoError(t, c.Train())

	assert.True(t, errors.Is(c.Train(), errors.ErrAlreadyTrained))
	assert.True(t, errors.Is(c.RegisterBoolean(wind), errors.ErrAlreadyTrained))
}

func TestClassifierTrainValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(x, y []float64)
	}{
		{"boolean out of range", func(x, _ []float64) { x[humidity] = 2 }},
		{"categorical out of range", func(x, _ []float64) { x[outlook] = 3 }},
		{"non integral value", func(x, _ []float64) { x[temperature] = 0.5 }},
		{"unknown label", func(_, y []float64) { y[0] = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := matrix.New(len(tennis), 4, func(x, y []float64) bool {
				for i, r := range tennis {
					copy(x[i*4:(i+1)*4], r[:4])
					y[i] = r[4]
				}
				tt.mutate(x, y)
				return true
			}, matrix.WithOutputVector())
			require.NoError(t, err)

			c, err := NewClassifier(m, nil, model.ClassesWithCount(2))
			require.NoError(t, err)
			registerTennis(t, c)

			err = c.Train()
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "%v", err)
			assert.False(t, c.IsTrained())
		})
	}
}

func TestClassifierPredictErrors(t *testing.T) {
	c := newTennisTree(t)

	_, err := c.Predict([]float64{0, 0, 0, 0})
	var nt *errors.NotTrainedError
	require.True(t, errors.As(err, &nt))
	_, err = c.Accuracy(tennisMatrix(t))
	assert.True(t, errors.As(err, &nt))

	require.NoError(t, c.Train())

	_, err = c.Predict([]float64{0, 0})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = c.Predict([]float64{5, 0, 0, 0})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	noOutput, err := matrix.New(2, 4, nil)
	require.NoError(t, err)
	_, err = c.Accuracy(noOutput)
	assert.True(t, errors.Is(err, errors.ErrNoOutputVector))
}

func TestClassifierNonContiguousLabels(t *testing.T) {
	classes, err := model.NewClasses(10, 20)
	require.NoError(t, err)
	m, err := matrix.New(4, 1, func(x, y []float64) bool {
		copy(x, []float64{0, 1, 0, 1})
		copy(y, []float64{20, 10, 20, 10})
		return true
	}, matrix.WithOutputVector())
	require.NoError(t, err)

	c, err := NewClassifier(m, nil, classes)
	require.NoError(t, err)
	require.NoError(t, c.RegisterBoolean(0))
	require.NoError(t, c.Train())
	assert.Same(t, classes, c.Classes())

	got, err := c.Predict([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 20, got)
	p, err := c.PredictProbabilities([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, p)
}

func TestClassifierLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	c := newTennisTree(t, WithLogger(logger))
	require.NoError(t, c.Train())

	assert.True(t, logger.ContainsMessage("Training finished"))
	assert.True(t, logger.ContainsField(log.DepthKey, float64(2)))
	assert.True(t, logger.ContainsField(log.AlgorithmKey, "id3"))
}

func TestColumnTypeString(t *testing.T) {
	assert.Equal(t, "boolean", Boolean.String())
	assert.Equal(t, "categorical", Categorical.String())
	assert.Equal(t, "column_type(5)", ColumnType(5).String())
}
