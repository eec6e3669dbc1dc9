// Package kde provides empirical quantiles and Gaussian kernel density
// estimates of a single chain component.
//
// The bandwidth follows Silverman's rule of thumb,
//
//	h = 0.9 * min(sd, IQR/1.34) * n^(-1/5)
//
// falling back to sd when the IQR is zero. A sample with no spread at all has
// no density and is reported as DegenerateDensity rather than given an
// arbitrary bandwidth.
package kde

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Estimator evaluates a Gaussian kernel density estimate.
type Estimator struct {
	sample    []float64
	bandwidth float64
}

// New builds an estimator over a copy of x with the default bandwidth.
func New(x []float64) (*Estimator, error) {
	if len(x) < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "density: need at least 2 observations, got %d", len(x))
	}

	sample := make([]float64, len(x))
	copy(sample, x)
	sort.Float64s(sample)

	h, err := bandwidth(sample)
	if err != nil {
		return nil, err
	}
	return &Estimator{sample: sample, bandwidth: h}, nil
}

// NewWithBandwidth builds an estimator with a fixed bandwidth h > 0.
func NewWithBandwidth(x []float64, h float64) (*Estimator, error) {
	if len(x) == 0 {
		return nil, diagerr.New(diagerr.InsufficientData, "density: empty sample")
	}
	if !(h > 0) || math.IsInf(h, 0) {
		return nil, diagerr.New(diagerr.InvalidParameter, "density: bandwidth %v", h)
	}
	sample := make([]float64, len(x))
	copy(sample, x)
	sort.Float64s(sample)
	return &Estimator{sample: sample, bandwidth: h}, nil
}

// Bandwidth returns the kernel bandwidth.
func (e *Estimator) Bandwidth() float64 { return e.bandwidth }

// Density returns the estimate at a single point,
// 1/(n h) * sum phi((at - x_i)/h).
func (e *Estimator) Density(at float64) float64 {
	h := e.bandwidth

	// kernel mass beyond 40 bandwidths underflows; skip those points
	lo := sort.SearchFloat64s(e.sample, at-40*h)
	hi := sort.SearchFloat64s(e.sample, at+40*h)

	sum := 0.0
	for _, x := range e.sample[lo:hi] {
		sum += distuv.UnitNormal.Prob((at - x) / h)
	}
	return sum / (float64(len(e.sample)) * h)
}

// Reciprocal returns 1/f(at), the delta-method scale of a quantile estimator
// located at at. A zero or non-finite density is DegenerateDensity.
func (e *Estimator) Reciprocal(at float64) (float64, error) {
	f := e.Density(at)
	r := 1 / f
	if f <= 0 || math.IsNaN(f) || math.IsInf(r, 0) {
		return 0, diagerr.New(diagerr.DegenerateDensity, "density: estimate at %v is %v", at, f)
	}
	return r, nil
}

func bandwidth(sorted []float64) (float64, error) {
	if sorted[0] == sorted[len(sorted)-1] {
		return 0, diagerr.New(diagerr.DegenerateDensity, "density: sample is constant at %v", sorted[0])
	}

	sd, err := stats.StandardDeviationSample(sorted)
	if err != nil {
		return 0, diagerr.Wrap(err, "density: bandwidth")
	}
	iqr := (Quantile(sorted, 0.75) - Quantile(sorted, 0.25)) / 1.34

	spread := math.Min(sd, iqr)
	if spread <= 0 {
		spread = sd
	}
	if !(spread > 0) {
		return 0, diagerr.New(diagerr.DegenerateDensity, "density: sample has zero spread")
	}
	return 0.9 * spread * math.Pow(float64(len(sorted)), -0.2), nil
}
