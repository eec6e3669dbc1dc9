package sci

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// pivotTol is the size below which a pivot of the semidefinite factorization
// is treated as zero.
const pivotTol = 1e-10

// Correlation converts a covariance matrix to a correlation matrix and
// returns the standard deviations alongside. A non-positive variance is
// NonPositiveDefinite.
func Correlation(sigma mat.Symmetric) (*mat.SymDense, []float64, error) {
	k := sigma.SymmetricDim()
	sd := make([]float64, k)
	for i := 0; i < k; i++ {
		v := sigma.At(i, i)
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, nil, diagerr.New(diagerr.NonPositiveDefinite, "correlation: target %d has variance %v", i, v)
		}
		sd[i] = math.Sqrt(v)
	}

	r := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < k; j++ {
			r.SetSym(i, j, sigma.At(i, j)/(sd[i]*sd[j]))
		}
	}
	return r, sd, nil
}

// Factor returns a lower-triangular L with L L^T = r. A positive definite r
// goes through gonum's Cholesky; otherwise an unpivoted semidefinite
// factorization is tried, zeroing columns whose pivot is below pivotTol.
// Exactly collinear targets (for example a repeated quantile level) factor
// this way. A clearly negative pivot is NonPositiveDefinite.
func Factor(r mat.Symmetric) (*mat.TriDense, error) {
	k := r.SymmetricDim()

	var chol mat.Cholesky
	if chol.Factorize(r) {
		l := mat.NewTriDense(k, mat.Lower, nil)
		chol.LTo(l)
		return l, nil
	}
	return semidefinite(r)
}

func semidefinite(r mat.Symmetric) (*mat.TriDense, error) {
	k := r.SymmetricDim()
	l := mat.NewTriDense(k, mat.Lower, nil)
	offTol := math.Sqrt(pivotTol)

	for j := 0; j < k; j++ {
		d := r.At(j, j)
		for m := 0; m < j; m++ {
			d -= l.At(j, m) * l.At(j, m)
		}
		if d < -pivotTol {
			return nil, diagerr.New(diagerr.NonPositiveDefinite, "factor: pivot %d is %v", j, d)
		}

		if d <= pivotTol {
			// column j is a combination of earlier ones; the remaining
			// entries of the column must vanish for r to be semidefinite
			for i := j + 1; i < k; i++ {
				v := r.At(i, j)
				for m := 0; m < j; m++ {
					v -= l.At(i, m) * l.At(j, m)
				}
				if math.Abs(v) > offTol {
					return nil, diagerr.New(diagerr.NonPositiveDefinite, "factor: zero pivot %d with residual %v in row %d", j, v, i)
				}
			}
			continue
		}

		piv := math.Sqrt(d)
		l.SetTri(j, j, piv)
		for i := j + 1; i < k; i++ {
			v := r.At(i, j)
			for m := 0; m < j; m++ {
				v -= l.At(i, m) * l.At(j, m)
			}
			l.SetTri(i, j, v/piv)
		}
	}
	return l, nil
}
