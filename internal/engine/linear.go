package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearRegressor is an ordinary least-squares model with intercept.
// Rank-deficient designs resolve to the minimum-norm solution.
type LinearRegressor struct {
	coef      []float64
	intercept float64
}

// NewLinearRegressor returns an unfitted linear model.
func NewLinearRegressor() *LinearRegressor { return &LinearRegressor{} }

func (r *LinearRegressor) Name() string { return "linear" }

// Fit centers the design and solves it through a thin SVD, discarding
// singular values below the usual eps*max(n,p)*s_max cutoff.
func (r *LinearRegressor) Fit(ctx context.Context, x [][]float64, y []float64) error {
	n, p, err := checkDesign(x, y)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	xmean := make([]float64, p)
	for _, row := range x {
		floats.Add(xmean, row)
	}
	floats.Scale(1/float64(n), xmean)
	ymean := mean(y)

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v-xmean[j])
		}
		b.SetVec(i, y[i]-ymean)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return errors.New("svd did not converge")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	coef := make([]float64, p)
	if len(s) > 0 {
		tol := float64(max(n, p)) * s[0] * 2.220446049250313e-16
		for k, sv := range s {
			if sv <= tol {
				continue
			}
			w := mat.Dot(u.ColView(k), b) / sv
			for j := range coef {
				coef[j] += w * v.At(j, k)
			}
		}
	}

	r.coef = coef
	r.intercept = ymean - floats.Dot(xmean, coef)
	return nil
}

func (r *LinearRegressor) Predict(x []float64) float64 {
	if r.coef == nil {
		return 0
	}
	return r.intercept + floats.Dot(r.coef, x)
}

func checkDesign(x [][]float64, y []float64) (n, p int, err error) {
	n = len(x)
	if n == 0 {
		return 0, 0, errors.New("empty training set")
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("%d rows but %d targets", n, len(y))
	}
	p = len(x[0])
	for i, row := range x {
		if len(row) != p {
			return 0, 0, fmt.Errorf("row %d has %d columns, want %d", i, len(row), p)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("row %d has a non-finite feature", i)
			}
		}
	}
	return n, p, nil
}
