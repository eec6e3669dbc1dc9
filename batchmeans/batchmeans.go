// Package batchmeans estimates the asymptotic covariance of a sample mean
// vector computed from a serially dependent sequence, and picks the batch
// length used to do so.
//
// The covariance estimator partitions the rows of an N x k sequence into
// a = floor(N/b) contiguous batches of length b, starting from the first row.
// A trailing remainder shorter than b is left out of the batches but still
// contributes to the overall mean the batches are centred on. The result
//
//	b/(a-1) * sum_k (ybar_k - mu)(ybar_k - mu)^T
//
// estimates N * Cov(sample mean).
package batchmeans

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/acf"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Sizer returns a batch size for one chain.
type Sizer func(x mat.Matrix) (int, error)

// Covariance returns the batch-means estimate of N*Cov(sample mean) for the
// rows of x using batches of length b.
func Covariance(x mat.Matrix, b int) (*mat.SymDense, error) {
	n, k := x.Dims()
	if b < 1 || b > n {
		return nil, diagerr.New(diagerr.InvalidParameter, "batch means: batch size %d outside [1, %d]", b, n)
	}
	a := n / b
	if a < 2 {
		return nil, diagerr.New(diagerr.InsufficientData, "batch means: %d rows give %d batch(es) of size %d, need at least 2", n, a, b)
	}

	mu := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			mu[j] += x.At(i, j)
		}
	}
	for j := range mu {
		mu[j] /= float64(n)
	}

	// centred batch means, one row per batch
	d := mat.NewDense(a, k, nil)
	for batch := 0; batch < a; batch++ {
		start := batch * b
		for j := 0; j < k; j++ {
			sum := 0.0
			for i := start; i < start+b; i++ {
				sum += x.At(i, j)
			}
			d.Set(batch, j, sum/float64(b)-mu[j])
		}
	}

	cov := mat.NewSymDense(k, nil)
	cov.SymOuterK(float64(b)/float64(a-1), d.T())
	return cov, nil
}

// Size picks a batch length from pilot AR fits of each component: with
// Sigma_j the AR spectrum at zero and Gamma_j the first-moment term,
//
//	b = floor(n^(1/3) * (sum Gamma_j^2 / sum Sigma_j^2)^(1/3))
//
// clamped to [1, floor(n/(p+1))]. The pilots are Yule-Walker fits with the
// order chosen by AIC. Constant components are ignored.
func Size(x mat.Matrix) (int, error) {
	return pilotSize(x, acf.FitAR)
}

// SizeOLS is Size with least-squares pilot fits (acf.FitOLSAIC).
func SizeOLS(x mat.Matrix) (int, error) {
	return pilotSize(x, acf.FitOLSAIC)
}

func pilotSize(x mat.Matrix, pilot func([]float64, int) (*acf.ARFit, error)) (int, error) {
	n, p := x.Dims()
	if n < 2 {
		return 0, diagerr.New(diagerr.InsufficientData, "batch size: need at least 2 rows, got %d", n)
	}

	maxOrder := acf.MaxOrder(n)
	col := make([]float64, n)

	gammaSq, sigmaSq := 0.0, 0.0
	for j := 0; j < p; j++ {
		mat.Col(col, j, x)
		fit, err := pilot(col, maxOrder)
		if err != nil {
			return 0, diagerr.Wrapf(err, "batch size: component %d", j)
		}
		if fit.Variance == 0 {
			continue
		}
		g := fit.FirstMoment()
		s := fit.SpectrumAtZero()
		gammaSq += g * g
		sigmaSq += s * s
	}

	b := 1
	if sigmaSq > 0 {
		coeff := math.Cbrt(gammaSq / sigmaSq)
		b = int(math.Floor(math.Cbrt(float64(n)) * coeff))
	}
	return clamp(b, n, p), nil
}

// CubeRoot is the fixed rule b = floor(n^(1/3)), clamped like Size.
func CubeRoot(x mat.Matrix) (int, error) {
	n, p := x.Dims()
	if n < 2 {
		return 0, diagerr.New(diagerr.InsufficientData, "batch size: need at least 2 rows, got %d", n)
	}
	return clamp(int(math.Floor(math.Cbrt(float64(n)))), n, p), nil
}

// ParseRule maps a batch-size rule name to its Sizer: "ar" (or "") for
// Size, "ols" for SizeOLS and "cuberoot" for CubeRoot.
func ParseRule(name string) (Sizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ar", "yule-walker":
		return Size, nil
	case "ols":
		return SizeOLS, nil
	case "cuberoot", "cube-root":
		return CubeRoot, nil
	default:
		return nil, diagerr.New(diagerr.InvalidParameter, "batch size: unknown rule %q", name)
	}
}

func clamp(b, n, p int) int {
	upper := n / (p + 1)
	if b > upper {
		b = upper
	}
	if b < 1 {
		b = 1
	}
	return b
}
