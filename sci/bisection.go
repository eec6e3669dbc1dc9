package sci

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

const (
	bisectTol      = 1e-5
	bisectMaxIter  = 100
	bisectMaxWiden = 20
	probClamp      = 1e-15
)

// bisectCritical searches for the smallest z with P(max_i |W_i| <= z) >= 1-alpha
// for W = L u, u standard normal. The probability is estimated with Genz's
// separation-of-variables integrator over a fixed set of uniforms, so it
// varies smoothly with z rather than jumping between calls. The search starts
// from the single-target value and the Bonferroni bound and returns the
// upper end of the final bracket.
func bisectCritical(l mat.Matrix, alpha float64, samples int, seed int64) (float64, error) {
	k, _ := l.Dims()
	target := 1 - alpha

	lo := distuv.UnitNormal.Quantile(1 - alpha/2)
	hi := distuv.UnitNormal.Quantile(1 - alpha/(2*float64(k)))
	if k == 1 {
		return lo, nil
	}

	g := newGenz(l, samples, seed)

	// Monte Carlo error can leave the Bonferroni bound just short of target
	for i := 0; g.prob(hi) < target; i++ {
		if i == bisectMaxWiden {
			return 0, diagerr.New(diagerr.InsufficientData, "bisection: no bracket below %v with %d samples, raise draws", hi, samples)
		}
		lo = hi
		hi *= 1.1
	}

	for i := 0; i < bisectMaxIter && hi-lo > bisectTol; i++ {
		mid := 0.5 * (lo + hi)
		if g.prob(mid) >= target {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

// genz estimates rectangle probabilities P(-z <= W_i <= z for all i) for
// W = L u, with common uniforms across calls.
type genz struct {
	l [][]float64
	u [][]float64
	y []float64
}

func newGenz(l mat.Matrix, samples int, seed int64) *genz {
	k, _ := l.Dims()
	g := &genz{
		l: make([][]float64, k),
		u: make([][]float64, samples),
		y: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		g.l[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			g.l[i][j] = l.At(i, j)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for s := range g.u {
		row := make([]float64, k-1)
		for i := range row {
			row[i] = rng.Float64()
		}
		g.u[s] = row
	}
	return g
}

func (g *genz) prob(z float64) float64 {
	k := len(g.l)
	sum := 0.0
	for _, w := range g.u {
		d := distuv.UnitNormal.CDF(-z / g.l[0][0])
		e := distuv.UnitNormal.CDF(z / g.l[0][0])
		f := e - d

		for i := 1; i < k && f > 0; i++ {
			p := math.Min(math.Max(d+w[i-1]*(e-d), probClamp), 1-probClamp)
			g.y[i-1] = distuv.UnitNormal.Quantile(p)

			s := 0.0
			for j := 0; j < i; j++ {
				s += g.l[i][j] * g.y[j]
			}

			piv := g.l[i][i]
			if piv == 0 {
				// W_i is determined by the earlier coordinates
				if math.Abs(s) > z {
					f = 0
				}
				d, e = 0, 1
				continue
			}
			d = distuv.UnitNormal.CDF((-z - s) / piv)
			e = distuv.UnitNormal.CDF((z - s) / piv)
			f *= e - d
		}
		sum += f
	}
	return sum / float64(len(g.u))
}
