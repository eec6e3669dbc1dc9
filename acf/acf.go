// Package acf computes autocovariances and autocorrelations of a single
// chain component and fits autoregressive models to it, by Yule-Walker
// (FitAR) or by least squares (FitOLS, FitOLSAIC).
package acf

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Autocovariance returns the biased (divisor n) autocovariances of x for lags
// 0..maxLag. maxLag is clamped to len(x)-1.
func Autocovariance(x []float64, maxLag int) []float64 {
	n := len(x)
	if n == 0 || maxLag < 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	mean, _ := stats.Mean(x)

	gamma := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (x[i] - mean) * (x[i-k] - mean)
		}
		gamma[k] = sum / float64(n)
	}
	return gamma
}

// Autocorrelation returns the autocorrelations of x for lags 0..maxLag.
// A constant x has no autocorrelation and yields InsufficientData.
func Autocorrelation(x []float64, maxLag int) ([]float64, error) {
	if len(x) < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "acf: need at least 2 observations, got %d", len(x))
	}
	if maxLag < 0 {
		return nil, diagerr.New(diagerr.InvalidParameter, "acf: negative lag %d", maxLag)
	}

	gamma := Autocovariance(x, maxLag)
	if gamma[0] == 0 {
		return nil, diagerr.New(diagerr.InsufficientData, "acf: constant component")
	}

	rho := make([]float64, len(gamma))
	for k := range gamma {
		rho[k] = gamma[k] / gamma[0]
	}
	return rho, nil
}

// ARFit is a Yule-Walker autoregressive fit.
type ARFit struct {
	// Order selected by AIC
	Order int
	// Coefficients phi_1..phi_Order
	Coefficients []float64
	// Innovation variance at the selected order
	Variance float64
	// Autocovariances for lags 0..Order
	Gamma []float64
}

// MaxOrder is the default upper bound on the AR order for n observations,
// min(n-1, floor(10*log10(n))).
func MaxOrder(n int) int {
	if n <= 1 {
		return 0
	}
	m := int(math.Floor(10 * math.Log10(float64(n))))
	if m > n-1 {
		m = n - 1
	}
	return m
}

// FitAR fits AR(k) models for k = 0..maxOrder by the Durbin-Levinson recursion
// and keeps the one with the smallest AIC, n*log(v_k) + 2k.
// A constant x returns an order-0 fit with zero variance.
func FitAR(x []float64, maxOrder int) (*ARFit, error) {
	n := len(x)
	if n < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "ar: need at least 2 observations, got %d", n)
	}
	if maxOrder < 0 {
		maxOrder = MaxOrder(n)
	}
	if maxOrder > n-1 {
		maxOrder = n - 1
	}

	gamma := Autocovariance(x, maxOrder)
	if gamma[0] == 0 {
		return &ARFit{Gamma: gamma[:1]}, nil
	}

	// phi[k] holds the order-k coefficients, phi[k][j-1] = phi_{k,j}
	phi := make([][]float64, maxOrder+1)
	v := gamma[0]

	bestOrder := 0
	bestAIC := float64(n) * math.Log(v)
	bestVar := v

	for k := 1; k <= maxOrder; k++ {
		num := gamma[k]
		for j := 1; j < k; j++ {
			num -= phi[k-1][j-1] * gamma[k-j]
		}
		pk := num / v

		phi[k] = make([]float64, k)
		for j := 1; j < k; j++ {
			phi[k][j-1] = phi[k-1][j-1] - pk*phi[k-1][k-j-1]
		}
		phi[k][k-1] = pk

		v *= 1 - pk*pk
		if v <= 0 {
			// perfectly predictable at this order; higher orders add nothing
			break
		}

		aic := float64(n)*math.Log(v) + 2*float64(k)
		if aic < bestAIC {
			bestAIC = aic
			bestOrder = k
			bestVar = v
		}
	}

	fit := &ARFit{
		Order:    bestOrder,
		Variance: bestVar,
		Gamma:    gamma[:bestOrder+1],
	}
	if bestOrder > 0 {
		fit.Coefficients = append([]float64(nil), phi[bestOrder]...)
	}
	return fit, nil
}

// SpectrumAtZero returns the asymptotic variance implied by the fit,
// sigma^2 / (1 - sum(phi))^2.
func (f *ARFit) SpectrumAtZero() float64 {
	s := 1.0
	for _, c := range f.Coefficients {
		s -= c
	}
	return f.Variance / (s * s)
}

// FirstMoment returns the weighted sum of autocovariances
// Gamma = 2 * sum_k |k| gamma(k) implied by the fit, used by batch-size
// selection rules.
func (f *ARFit) FirstMoment() float64 {
	if f.Order == 0 {
		return 0
	}

	s := 1.0
	weighted := 0.0
	for i, c := range f.Coefficients {
		s -= c
		weighted += float64(i+1) * c
	}

	inner := 0.0
	for i := 1; i <= f.Order; i++ {
		for k := 1; k <= i; k++ {
			inner += f.Coefficients[i-1] * float64(k) * f.Gamma[i-k]
		}
	}

	sigma := f.SpectrumAtZero()
	return 2 * (inner + (sigma-f.Gamma[0])/2*weighted) / s
}
