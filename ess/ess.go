// Package ess computes effective sample sizes and Gelman-Rubin potential
// scale reduction factors for a chain set, and the minimum effective sample
// size needed for a confidence region of relative volume epsilon.
//
// Both quantities compare two covariance estimates: Lambda, the average of
// the per-chain sample covariances, and Sigma, the batch-means estimate of
// N*Cov(mean) over the stacked sequence.
package ess

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SiddharthanilPathak/GSoC-2023/batchmeans"
	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Covariances are the two estimates every ESS computation is built from.
type Covariances struct {
	// Lambda is the average per-chain sample covariance
	Lambda *mat.SymDense
	// Sigma is the batch-means covariance of the stacked sequence
	Sigma *mat.SymDense
	// N is the number of stacked rows, M the number of chains
	N, M int
}

// Estimate computes Lambda and Sigma for set.
func Estimate(set *chain.Set) (*Covariances, error) {
	if set == nil {
		return nil, diagerr.New(diagerr.InvalidParameter, "ess: nil chain set")
	}
	p := set.Dim()

	lambda := mat.NewSymDense(p, nil)
	var cov mat.SymDense
	for _, c := range set.Chains() {
		stat.CovarianceMatrix(&cov, c, nil)
		lambda.AddSym(lambda, &cov)
	}
	lambda.ScaleSym(1/float64(set.M()), lambda)

	sigma, err := batchmeans.Covariance(set.Stacked(), set.BatchSize())
	if err != nil {
		return nil, diagerr.Wrap(err, "ess")
	}
	return &Covariances{Lambda: lambda, Sigma: sigma, N: set.N(), M: set.M()}, nil
}

// Univariate returns the effective sample size of each component,
// N * Lambda_jj / Sigma_jj, floored, and its Gelman-Rubin factor
// sqrt(1 + m/ESS_j).
func (c *Covariances) Univariate() ([]int, []float64, error) {
	p := c.Sigma.SymmetricDim()
	size := make([]int, p)
	psrf := make([]float64, p)
	for j := 0; j < p; j++ {
		s, l := c.Sigma.At(j, j), c.Lambda.At(j, j)
		if !(s > 0) || !(l > 0) {
			return nil, nil, diagerr.New(diagerr.NonPositiveDefinite, "ess: component %d has variance %v and asymptotic variance %v", j, l, s)
		}
		e := float64(c.N) * l / s
		size[j] = int(math.Floor(e))
		psrf[j] = math.Sqrt(1 + float64(c.M)/e)
	}
	return size, psrf, nil
}

// Multivariate returns N * (det Lambda / det Sigma)^(1/p), floored, and the
// multivariate Gelman-Rubin factor sqrt((n-1)/n + m/mESS) with n the chain
// length.
func (c *Covariances) Multivariate() (int, float64, error) {
	p := c.Sigma.SymmetricDim()

	ldLambda, err := logDet(c.Lambda)
	if err != nil {
		return 0, 0, diagerr.Wrap(err, "ess: sample covariance")
	}
	ldSigma, err := logDet(c.Sigma)
	if err != nil {
		return 0, 0, diagerr.Wrap(err, "ess: batch-means covariance")
	}

	e := float64(c.N) * math.Exp((ldLambda-ldSigma)/float64(p))
	n := float64(c.N / c.M)
	psrf := math.Sqrt((n-1)/n + float64(c.M)/e)
	return int(math.Floor(e)), psrf, nil
}

func logDet(a mat.Symmetric) (float64, error) {
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return 0, diagerr.New(diagerr.NonPositiveDefinite, "log determinant: matrix is not positive definite")
	}
	return chol.LogDet(), nil
}

// MinESS returns the smallest effective sample size for which a 1-alpha
// confidence region of a p-dimensional mean has relative volume epsilon,
//
//	ceil(2^(2/p) pi / (p Gamma(p/2))^(2/p) * chi2_{1-alpha,p} / epsilon^2)
//
// For p = 1 this is 4 chi2_{1-alpha,1} / epsilon^2.
func MinESS(p int, alpha, eps float64) (int, error) {
	if p < 1 {
		return 0, diagerr.New(diagerr.InvalidParameter, "min ess: dimension %d", p)
	}
	if err := validateLevels(alpha, eps); err != nil {
		return 0, diagerr.Wrap(err, "min ess")
	}

	fp := float64(p)
	lg, _ := math.Lgamma(fp / 2)
	logConst := (2/fp)*math.Ln2 + math.Log(math.Pi) - (2/fp)*(math.Log(fp)+lg)
	chi := distuv.ChiSquared{K: fp}.Quantile(1 - alpha)

	return int(math.Ceil(math.Exp(logConst) * chi / (eps * eps))), nil
}

// TargetPSRF is the univariate Gelman-Rubin value reached at minESS effective
// draws from m chains.
func TargetPSRF(m, minESS int) float64 {
	return math.Sqrt(1 + float64(m)/float64(minESS))
}

// TargetMultivariatePSRF is the multivariate Gelman-Rubin value reached at
// minESS effective draws from m chains of length n.
func TargetMultivariatePSRF(m, n, minESS int) float64 {
	fn := float64(n)
	return math.Sqrt((fn-1)/fn + float64(m)/float64(minESS))
}

func validateLevels(alpha, eps float64) error {
	if !(alpha > 0 && alpha < 1) {
		return diagerr.New(diagerr.InvalidParameter, "alpha %v outside (0, 1)", alpha)
	}
	if !(eps > 0 && eps < 1) {
		return diagerr.New(diagerr.InvalidParameter, "epsilon %v outside (0, 1)", eps)
	}
	return nil
}
