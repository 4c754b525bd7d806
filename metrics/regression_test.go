package metrics

import (
	"math"
	"testing"
)

type scoreCase struct {
	name      string
	yTrue     []float64
	yPred     []float64
	want      float64
	tolerance float64
	wantErr   bool
}

func runScoreCases(t *testing.T, name string, fn func(yTrue, yPred []float64) (float64, error), tests []scoreCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("%s() error = %v, wantErr %v", name, err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("%s() = %v, want %v (tolerance: %v)", name, got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestMSE(t *testing.T) {
	runScoreCases(t, "MSE", MSE, []scoreCase{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{1.5, 2.5, 2.5, 3.5},
			want:      0.25, // (0.25 * 4) / 4
			tolerance: 1e-10,
		},
		{
			name:      "larger errors",
			yTrue:     []float64{10.0, 20.0, 30.0},
			yPred:     []float64{12.0, 18.0, 33.0},
			want:      17.0 / 3.0, // (4 + 4 + 9) / 3
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1.0, 2.0, 3.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	})
}

func TestRMSE(t *testing.T) {
	runScoreCases(t, "RMSE", RMSE, []scoreCase{
		{
			name:      "simple case",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{1.5, 2.5, 2.5, 3.5},
			want:      0.5,
			tolerance: 1e-10,
		},
		{
			name:    "empty vectors",
			wantErr: true,
		},
	})
}

func TestMAE(t *testing.T) {
	runScoreCases(t, "MAE", MAE, []scoreCase{
		{
			name:      "mixed signs",
			yTrue:     []float64{10.0, 20.0, 30.0},
			yPred:     []float64{12.0, 18.0, 33.0},
			want:      7.0 / 3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
	})
}

func TestR2Score(t *testing.T) {
	runScoreCases(t, "R2Score", R2Score, []scoreCase{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:    "no variance in yTrue",
			yTrue:   []float64{3.0, 3.0, 3.0, 3.0, 3.0},
			yPred:   []float64{2.0, 3.0, 4.0, 3.0, 3.0},
			wantErr: true, // Error when total variation is 0
		},
		{
			name:      "worse than mean baseline",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{4.0, 3.0, 2.0, 1.0},
			want:      -3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1.0, 2.0, 3.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
	})
}

func TestMAPE(t *testing.T) {
	runScoreCases(t, "MAPE", MAPE, []scoreCase{
		{
			name:      "skips zero targets",
			yTrue:     []float64{0, 100, 200},
			yPred:     []float64{5, 110, 180},
			want:      10.0,
			tolerance: 1e-10,
		},
		{
			name:    "all zero",
			yTrue:   []float64{0, 0},
			yPred:   []float64{1, 1},
			wantErr: true,
		},
	})
}

func TestExplainedVarianceScore(t *testing.T) {
	runScoreCases(t, "ExplainedVarianceScore", ExplainedVarianceScore, []scoreCase{
		{
			name:      "constant offset is fully explained",
			yTrue:     []float64{1, 2, 3, 4},
			yPred:     []float64{2, 3, 4, 5},
			want:      1.0,
			tolerance: 1e-12,
		},
		{
			name:    "no variance",
			yTrue:   []float64{2, 2},
			yPred:   []float64{1, 3},
			wantErr: true,
		},
	})
}

// Benchmark tests
func BenchmarkMSE(b *testing.B) {
	size := 10000
	yTrue := make([]float64, size)
	yPred := make([]float64, size)
	for i := 0; i < size; i++ {
		yTrue[i] = float64(i)
		yPred[i] = float64(i) + 0.1*float64(i%10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
