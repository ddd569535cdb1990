package logic

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular system")

// LogisticConfig tunes the regularized Newton solver.
type LogisticConfig struct {
	L2      float64
	MaxIter int
	Tol     float64
}

func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{L2: 1.0, MaxIter: 100, Tol: 1e-8}
}

// LogisticModel is a fitted binary logistic regression. Coefficients apply to
// standardized features: (x - Mean) / Scale.
type LogisticModel struct {
	Intercept    float64
	Coefficients []float64
	Mean         []float64
	Scale        []float64
	Iterations   int
}

// FitLogistic minimizes the L2-penalized log loss with iteratively
// reweighted least squares. The intercept is not penalized. X is row major;
// y holds 0 or 1.
func FitLogistic(X [][]float64, y []float64, cfg LogisticConfig) (*LogisticModel, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("fit logistic: %d rows, %d labels", n, len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("fit logistic: row %d has %d features, want %d", i, len(row), p)
		}
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultLogisticConfig().MaxIter
	}

	m := &LogisticModel{Mean: make([]float64, p), Scale: make([]float64, p)}
	for j := 0; j < p; j++ {
		col := make([]float64, n)
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := meanStdDev(col)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Mean[j], m.Scale[j] = mean, std
	}

	d := p + 1
	Z := make([][]float64, n)
	for i, row := range X {
		z := make([]float64, d)
		z[0] = 1
		for j, v := range row {
			z[j+1] = (v - m.Mean[j]) / m.Scale[j]
		}
		Z[i] = z
	}

	beta := make([]float64, d)
	hess := mat.NewSymDense(d, nil)
	grad := mat.NewVecDense(d, nil)
	for iter := 1; iter <= cfg.MaxIter; iter++ {
		hess.Zero()
		grad.Zero()
		for i, z := range Z {
			mu := sigmoid(dot(beta, z))
			w := mu * (1 - mu)
			r := y[i] - mu
			for a := 0; a < d; a++ {
				grad.SetVec(a, grad.AtVec(a)+r*z[a])
				wa := w * z[a]
				for b := a; b < d; b++ {
					hess.SetSym(a, b, hess.At(a, b)+wa*z[b])
				}
			}
		}
		for a := 0; a < d; a++ {
			if a > 0 {
				grad.SetVec(a, grad.AtVec(a)-cfg.L2*beta[a])
				hess.SetSym(a, a, hess.At(a, a)+cfg.L2)
			} else {
				hess.SetSym(a, a, hess.At(a, a)+1e-9)
			}
		}

		step, err := solve(hess, grad)
		if err != nil {
			return nil, fmt.Errorf("fit logistic: iteration %d: %w", iter, err)
		}
		var maxStep float64
		for a := range beta {
			beta[a] += step[a]
			maxStep = math.Max(maxStep, math.Abs(step[a]))
		}
		m.Iterations = iter
		if maxStep < cfg.Tol {
			break
		}
	}

	m.Intercept = beta[0]
	m.Coefficients = beta[1:]
	return m, nil
}

// Predict returns P(win) for one raw feature vector.
func (m *LogisticModel) Predict(x []float64) float64 {
	eta := m.Intercept
	for j, c := range m.Coefficients {
		eta += c * (x[j] - m.Mean[j]) / m.Scale[j]
	}
	return sigmoid(eta)
}

// sigmoid is evaluated on the side that cannot overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// solve returns x with A x = b for a symmetric positive definite A.
func solve(A *mat.SymDense, b *mat.VecDense) ([]float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(A) {
		return nil, errSingular
	}
	x := mat.NewVecDense(b.Len(), nil)
	// A mat.Condition error still carries a usable solution.
	if err := chol.SolveVecTo(x, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", errSingular, err)
		}
	}
	return x.RawVector().Data, nil
}
