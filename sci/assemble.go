package sci

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/batchmeans"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/kde"
)

// Joint is the asymptotic covariance of the target vector
// (means, quantile(Q[0], 1..p), quantile(Q[1], 1..p), ...), with the point
// estimates in the same order.
type Joint struct {
	// Sigma is the delta-method scaled covariance, k x k
	Sigma *mat.SymDense
	// Lambda holds the diagonal scaling: 1 for means, 1/f_j(q) for quantiles
	Lambda []float64
	// Estimates are the column means followed by the empirical quantiles
	Estimates []float64
	// P is the number of components
	P int
	// Levels are the quantile levels, in input order
	Levels []float64
	// IncludeMeans reports whether the first P targets are means
	IncludeMeans bool
}

// K returns the length of the target vector.
func (j *Joint) K() int { return len(j.Estimates) }

// QuantileIndex returns the position of quantile level qi for component c in
// the target vector.
func (j *Joint) QuantileIndex(qi, c int) int {
	offset := 0
	if j.IncludeMeans {
		offset = j.P
	}
	return offset + qi*j.P + c
}

// Assemble builds the joint covariance of the means (optional) and quantiles
// of the columns of x. The quantile part is estimated from indicator
// sequences 1{x_ij <= xhat_qj} through one batch-means call on [x | I] with
// batch size b, and rescaled by the reciprocal density at each quantile.
func Assemble(x mat.Matrix, levels []float64, b int, includeMeans bool) (*Joint, error) {
	n, p := x.Dims()
	if len(levels) == 0 && !includeMeans {
		return nil, diagerr.New(diagerr.DimensionMismatch, "assemble: no quantile levels and means excluded, nothing to estimate")
	}
	if err := kde.ValidateLevels(levels); err != nil {
		return nil, diagerr.Wrap(err, "assemble")
	}

	meanCols := 0
	if includeMeans {
		meanCols = p
	}
	nq := len(levels)
	k := meanCols + p*nq

	y := mat.NewDense(n, k, nil)
	estimates := make([]float64, k)
	lambda := make([]float64, k)

	col := make([]float64, n)
	sorted := make([]float64, n)
	for c := 0; c < p; c++ {
		mat.Col(col, c, x)

		if includeMeans {
			y.SetCol(c, col)
			sum := 0.0
			for _, v := range col {
				sum += v
			}
			estimates[c] = sum / float64(n)
			lambda[c] = 1
		}
		if nq == 0 {
			continue
		}

		copy(sorted, col)
		sort.Float64s(sorted)

		dens, err := kde.New(col)
		if err != nil {
			return nil, diagerr.Wrapf(err, "assemble: component %d", c)
		}

		for qi, q := range levels {
			idx := meanCols + qi*p + c
			xq := kde.Quantile(sorted, q)
			estimates[idx] = xq

			r, err := dens.Reciprocal(xq)
			if err != nil {
				return nil, diagerr.Wrapf(err, "assemble: component %d at level %v", c, q)
			}
			lambda[idx] = r

			for i, v := range col {
				if v <= xq {
					y.Set(i, idx, 1)
				}
			}
		}
	}

	raw, err := batchmeans.Covariance(y, b)
	if err != nil {
		return nil, diagerr.Wrap(err, "assemble")
	}

	sigma := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sigma.SetSym(i, j, lambda[i]*raw.At(i, j)*lambda[j])
		}
	}

	return &Joint{
		Sigma:        sigma,
		Lambda:       lambda,
		Estimates:    estimates,
		P:            p,
		Levels:       append([]float64(nil), levels...),
		IncludeMeans: includeMeans,
	}, nil
}
