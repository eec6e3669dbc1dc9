package acf

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// svdRankTol is the relative singular value cutoff of the least-squares
// fallback.
const svdRankTol = 1e-12

// FitOLS fits x_t = c + phi_1 x_{t-1} + ... + phi_k x_{t-k} + e_t by ordinary
// least squares on the n-k usable rows. Variance is the residual sum of
// squares over its degrees of freedom. A constant x returns an order-0 fit
// with zero variance.
func FitOLS(x []float64, order int) (*ARFit, error) {
	n := len(x)
	if n < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "ar ols: need at least 2 observations, got %d", n)
	}
	if order < 0 {
		return nil, diagerr.New(diagerr.InvalidParameter, "ar ols: negative order %d", order)
	}
	if n-order <= order+1 {
		return nil, diagerr.New(diagerr.InsufficientData, "ar ols: %d observations cannot fit order %d", n, order)
	}

	gamma := Autocovariance(x, order)
	if gamma[0] == 0 {
		return &ARFit{Gamma: gamma[:1]}, nil
	}

	reg, err := regress(x, order, order)
	if err != nil {
		return nil, err
	}

	df := float64(reg.rows - order - 1)
	if df <= 0 {
		df = float64(reg.rows)
	}

	fit := &ARFit{
		Order:    order,
		Variance: reg.rss / df,
		Gamma:    gamma,
	}
	if order > 0 {
		fit.Coefficients = reg.coef[1:]
	}
	return fit, nil
}

// FitOLSAIC fits orders 0..maxOrder by least squares on the common sample
// x[maxOrder:], keeps the one with the smallest AIC, rows*log(rss/rows) + 2k,
// and refits it with FitOLS. A negative maxOrder means MaxOrder(n).
func FitOLSAIC(x []float64, maxOrder int) (*ARFit, error) {
	n := len(x)
	if n < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "ar ols: need at least 2 observations, got %d", n)
	}
	if maxOrder < 0 {
		maxOrder = MaxOrder(n)
	}
	// every candidate needs more rows than regressors
	if limit := (n - 2) / 2; maxOrder > limit {
		maxOrder = limit
	}

	if Autocovariance(x, 0)[0] == 0 {
		return FitOLS(x, 0)
	}

	bestOrder := 0
	bestAIC := math.Inf(1)
	for k := 0; k <= maxOrder; k++ {
		reg, err := regress(x, k, maxOrder)
		if err != nil {
			return nil, err
		}
		if reg.rss <= 0 {
			// perfectly predictable at this order; higher orders add nothing
			break
		}

		aic := float64(reg.rows)*math.Log(reg.rss/float64(reg.rows)) + 2*float64(k)
		if aic < bestAIC {
			bestAIC = aic
			bestOrder = k
		}
	}
	return FitOLS(x, bestOrder)
}

type regression struct {
	// coef holds the intercept then phi_1..phi_k
	coef []float64
	rss  float64
	rows int
}

// regress solves the order-k autoregression over responses x[start:].
func regress(x []float64, k, start int) (*regression, error) {
	rows := len(x) - start
	cols := k + 1

	// Response vector: x_start, ..., x_{n-1}
	y := mat.NewDense(rows, 1, nil)
	// Design matrix: [1, x_{t-1}, ..., x_{t-k}]
	X := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		t := start + r
		y.Set(r, 0, x[t])
		X.Set(r, 0, 1)
		for j := 1; j <= k; j++ {
			X.Set(r, j, x[t-j])
		}
	}

	// B = (X'X)^(-1) X'y
	var B mat.Dense
	var xtx, xtxInv mat.Dense
	xtx.Mul(X.T(), X)
	if xtxErr := xtxInv.Inverse(&xtx); xtxErr == nil {
		var xty mat.Dense
		xty.Mul(X.T(), y)
		B.Mul(&xtxInv, &xty)
	} else {
		// X'X singular or badly conditioned: minimum-norm least squares
		var svd mat.SVD
		if !svd.Factorize(X, mat.SVDThin) {
			return nil, diagerr.New(diagerr.NonPositiveDefinite, "ar ols: order %d design is singular and SVD failed: %v", k, xtxErr)
		}
		if rank := svd.Rank(svdRankTol); rank == 0 {
			B = *mat.NewDense(cols, 1, nil)
		} else {
			svd.SolveTo(&B, y, rank)
		}
	}

	// Residuals
	var yhat, u mat.Dense
	yhat.Mul(X, &B)
	u.Sub(y, &yhat)

	rss := 0.0
	for r := 0; r < rows; r++ {
		rss += u.At(r, 0) * u.At(r, 0)
	}

	return &regression{
		coef: mat.Col(nil, 0, &B),
		rss:  rss,
		rows: rows,
	}, nil
}
