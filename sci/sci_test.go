package sci

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/kde"
)

// ar1 draws a stationary n x p AR(1) chain with independent components.
func ar1(n, p int, rho float64, rng *rand.Rand) *mat.Dense {
	x := mat.NewDense(n, p, nil)
	sd := math.Sqrt(1 - rho*rho)
	for j := 0; j < p; j++ {
		v := rng.NormFloat64() / sd
		for i := 0; i < n; i++ {
			x.Set(i, j, v)
			v = rho*v + rng.NormFloat64()
		}
	}
	return x
}

func identity(k int) *mat.SymDense {
	r := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		r.SetSym(i, i, 1)
	}
	return r
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MonteCarlo, m)

	m, err = ParseMethod("Bisection")
	require.NoError(t, err)
	assert.Equal(t, Bisection, m)
	assert.Equal(t, "bisection", m.String())

	_, err = ParseMethod("bootstrap")
	assert.True(t, errors.Is(err, diagerr.ErrInvalidParameter))
}

func TestCriticalValueSingleTarget(t *testing.T) {
	z, err := CriticalValue(identity(1), 0.05, 20000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.96, z, 0.05)
}

func TestCriticalValueIndependentTargets(t *testing.T) {
	// P(max|W_i| <= z) = (2 Phi(z) - 1)^3 for independent W
	want := distuv.UnitNormal.Quantile((1 + math.Pow(0.95, 1.0/3)) / 2)

	z, err := CriticalValue(identity(3), 0.05, 20000, 7)
	require.NoError(t, err)
	assert.InDelta(t, want, z, 0.06)

	l, err := Factor(identity(3))
	require.NoError(t, err)
	zb, err := bisectCritical(l, 0.05, 5000, 7)
	require.NoError(t, err)
	assert.InDelta(t, want, zb, 0.03)
}

func TestCriticalValueDeterministic(t *testing.T) {
	r := mat.NewSymDense(3, []float64{
		1, 0.4, 0.2,
		0.4, 1, 0.3,
		0.2, 0.3, 1,
	})

	a, err := CriticalValue(r, 0.05, 5000, 42)
	require.NoError(t, err)
	b, err := CriticalValue(r, 0.05, 5000, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	sigma := mat.NewSymDense(3, nil)
	sigma.CopySym(r)
	est := []float64{0, 0, 0}
	one, err := Calibrate(sigma, est, 100, Options{Alpha: 0.05, Draws: 5000, Seed: 42, Workers: 1})
	require.NoError(t, err)
	many, err := Calibrate(sigma, est, 100, Options{Alpha: 0.05, Draws: 5000, Seed: 42, Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, one.Critical, many.Critical)
	assert.Equal(t, a, one.Critical)
}

func TestCriticalValueMonotoneInAlpha(t *testing.T) {
	r := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})

	prev := 0.0
	for _, alpha := range []float64{0.2, 0.1, 0.05, 0.01} {
		z, err := CriticalValue(r, alpha, 10000, 3)
		require.NoError(t, err)
		assert.Greater(t, z, prev, "alpha=%v", alpha)
		prev = z
	}
}

func TestCriticalValueWithinBonferroni(t *testing.T) {
	k := 4
	r := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			if i == j {
				r.SetSym(i, j, 1)
			} else {
				r.SetSym(i, j, 0.5)
			}
		}
	}

	alpha := 0.05
	lo := distuv.UnitNormal.Quantile(1 - alpha/2)
	hi := distuv.UnitNormal.Quantile(1 - alpha/(2*float64(k)))

	z, err := CriticalValue(r, alpha, 20000, 11)
	require.NoError(t, err)
	assert.Greater(t, z, lo)
	assert.Less(t, z, hi+0.02)
}

func TestCriticalValueValidation(t *testing.T) {
	for _, alpha := range []float64{0, 1, -0.1, math.NaN()} {
		_, err := CriticalValue(identity(2), alpha, 100, 1)
		assert.True(t, errors.Is(err, diagerr.ErrInvalidParameter), "alpha=%v", alpha)
	}
}

func TestFactorSemidefinite(t *testing.T) {
	// two perfectly correlated targets, as from a repeated quantile level
	r := mat.NewSymDense(3, []float64{
		1, 1, 0.3,
		1, 1, 0.3,
		0.3, 0.3, 1,
	})
	l, err := Factor(r)
	require.NoError(t, err)

	var back mat.Dense
	back.Mul(l, l.T())
	assert.True(t, mat.EqualApprox(&back, r, 1e-9))

	// a duplicated target behaves like a single one
	z, err := CriticalValue(mat.NewSymDense(2, []float64{1, 1, 1, 1}), 0.05, 20000, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1.96, z, 0.05)
}

func TestFactorIndefinite(t *testing.T) {
	_, err := Factor(mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	assert.True(t, errors.Is(err, diagerr.ErrNonPositiveDefinite))
}

func TestCorrelationZeroVariance(t *testing.T) {
	_, _, err := Correlation(mat.NewSymDense(2, []float64{1, 0, 0, 0}))
	assert.True(t, errors.Is(err, diagerr.ErrNonPositiveDefinite))
}

func TestCalibrateHalfWidths(t *testing.T) {
	sigma := mat.NewSymDense(2, []float64{4, 0, 0, 9})
	cal, err := Calibrate(sigma, []float64{1, -1}, 100, Options{Alpha: 0.05, Draws: 5000, Seed: 2})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cal.StdErr[0], 1e-12)
	assert.InDelta(t, 0.3, cal.StdErr[1], 1e-12)
	for i, est := range []float64{1, -1} {
		assert.InDelta(t, est-cal.Critical*cal.StdErr[i], cal.Lower[i], 1e-12)
		assert.InDelta(t, est+cal.Critical*cal.StdErr[i], cal.Upper[i], 1e-12)
	}
	assert.Equal(t, int64(2), cal.Seed)

	_, err = Calibrate(sigma, []float64{1}, 100, Options{Alpha: 0.05})
	assert.True(t, errors.Is(err, diagerr.ErrDimensionMismatch))
}

func TestAssembleOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	x := ar1(2000, 2, 0.3, rng)
	levels := []float64{0.25, 0.75}

	joint, err := Assemble(x, levels, 20, true)
	require.NoError(t, err)
	assert.Equal(t, 6, joint.K())
	assert.Equal(t, 4, joint.QuantileIndex(1, 0))

	for c := 0; c < 2; c++ {
		col := mat.Col(nil, c, x)
		qs, err := kde.Quantiles(col, levels)
		require.NoError(t, err)
		for qi := range levels {
			assert.Equal(t, qs[qi], joint.Estimates[joint.QuantileIndex(qi, c)])
		}
		assert.Equal(t, 1.0, joint.Lambda[c])
	}
	for i := 0; i < joint.K(); i++ {
		assert.Greater(t, joint.Sigma.At(i, i), 0.0)
	}

	noMeans, err := Assemble(x, levels, 20, false)
	require.NoError(t, err)
	assert.Equal(t, 4, noMeans.K())
	assert.Equal(t, 2, noMeans.QuantileIndex(1, 0))
	assert.InDelta(t, joint.Sigma.At(4, 5), noMeans.Sigma.At(2, 3), 1e-12)
}

func TestAssembleNothingToEstimate(t *testing.T) {
	x := mat.NewDense(10, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	_, err := Assemble(x, nil, 2, false)
	assert.True(t, errors.Is(err, diagerr.ErrDimensionMismatch))
}

func newSet(t *testing.T, m, n, p int, rho float64, seed int64) *chain.Set {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	chains := make([]*mat.Dense, m)
	for i := range chains {
		chains[i] = ar1(n, p, rho, rng)
	}
	set, err := chain.NewSet(chains)
	require.NoError(t, err)
	return set
}

func TestComputeShapes(t *testing.T) {
	set := newSet(t, 2, 3000, 3, 0.5, 21)

	res, err := Compute(set, Options{
		Alpha:        0.05,
		Quantiles:    []float64{0.1, 0.5},
		IncludeMeans: true,
		Draws:        5000,
		Seed:         9,
	})
	require.NoError(t, err)

	rows, cols := res.QuantileEstimate.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Len(t, res.MeanEstimate, 3)
	assert.Equal(t, 6000, res.N)
	assert.Equal(t, set.Names(), res.Names)

	// every target widened by the same multiplier, at least the single-target one
	assert.Greater(t, res.Critical, 1.96)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, res.MeanEstimate[c]-res.LowerMean[c], res.UpperMean[c]-res.MeanEstimate[c], 1e-12)
		for qi := 0; qi < 2; qi++ {
			lo, est, hi := res.LowerQuantile.At(qi, c), res.QuantileEstimate.At(qi, c), res.UpperQuantile.At(qi, c)
			assert.Less(t, lo, est)
			assert.Less(t, est, hi)
		}
		// 10% quantile of a centred stationary AR(1) sits well below the median
		assert.Less(t, res.QuantileEstimate.At(0, c), res.QuantileEstimate.At(1, c))
	}
}

func TestComputeMeansOnly(t *testing.T) {
	set := newSet(t, 1, 2000, 2, 0.2, 4)

	res, err := Compute(set, Options{Alpha: 0.1, IncludeMeans: true, Draws: 2000, Seed: 1})
	require.NoError(t, err)
	assert.Nil(t, res.QuantileEstimate)
	assert.Len(t, res.LowerMean, 2)
}

func TestComputeMethodsAgree(t *testing.T) {
	set := newSet(t, 2, 2000, 2, 0.3, 13)
	opts := Options{Alpha: 0.05, Quantiles: []float64{0.5}, IncludeMeans: true, Draws: 20000, Seed: 3}

	mc, err := Compute(set, opts)
	require.NoError(t, err)

	opts.Method = Bisection
	opts.Draws = 5000
	bi, err := Compute(set, opts)
	require.NoError(t, err)

	assert.Equal(t, Bisection, bi.Method)
	assert.InDelta(t, mc.Critical, bi.Critical, 0.06)
}

func TestComputeConstantComponent(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	x := ar1(1000, 2, 0.2, rng)
	for i := 0; i < 1000; i++ {
		x.Set(i, 1, 3)
	}
	set, err := chain.NewSet([]*mat.Dense{x}, chain.WithBatchSize(10))
	require.NoError(t, err)

	_, err = Compute(set, Options{Alpha: 0.05, Quantiles: []float64{0.5}, Draws: 1000, Seed: 1})
	assert.True(t, errors.Is(err, diagerr.ErrDegenerateDensity))

	_, err = Compute(set, Options{Alpha: 0.05, IncludeMeans: true, Draws: 1000, Seed: 1})
	assert.True(t, errors.Is(err, diagerr.ErrNonPositiveDefinite))
}

func TestComputeValidation(t *testing.T) {
	set := newSet(t, 1, 500, 1, 0, 1)

	_, err := Compute(set, Options{Alpha: 1.5, IncludeMeans: true})
	assert.True(t, errors.Is(err, diagerr.ErrInvalidParameter))

	_, err = Compute(set, Options{Alpha: 0.05, Quantiles: []float64{0}, IncludeMeans: true})
	assert.True(t, errors.Is(err, diagerr.ErrInvalidParameter))

	_, err = Compute(set, Options{Alpha: 0.05})
	assert.True(t, errors.Is(err, diagerr.ErrDimensionMismatch))

	_, err = Compute(nil, Options{Alpha: 0.05, IncludeMeans: true})
	assert.True(t, errors.Is(err, diagerr.ErrInvalidParameter))
}

func TestComputeJointCoverage(t *testing.T) {
	if testing.Short() {
		t.Skip("coverage simulation")
	}

	// stationary AR(1) components centred at zero: the true mean and median
	// are both zero
	const trials = 150
	rng := rand.New(rand.NewSource(2024))
	covered := 0
	for trial := 0; trial < trials; trial++ {
		x := ar1(5000, 2, 0.5, rng)
		set, err := chain.NewSet([]*mat.Dense{x})
		require.NoError(t, err)

		res, err := Compute(set, Options{
			Alpha:        0.05,
			Quantiles:    []float64{0.5},
			IncludeMeans: true,
			Draws:        2000,
			Seed:         int64(trial + 1),
		})
		require.NoError(t, err)

		ok := true
		for c := 0; c < 2; c++ {
			if res.LowerMean[c] > 0 || res.UpperMean[c] < 0 {
				ok = false
			}
			if res.LowerQuantile.At(0, c) > 0 || res.UpperQuantile.At(0, c) < 0 {
				ok = false
			}
		}
		if ok {
			covered++
		}
	}

	rate := float64(covered) / trials
	assert.GreaterOrEqual(t, rate, 0.85)
	assert.LessOrEqual(t, rate, 0.995)
}

func TestComputeMeanCoverageIID(t *testing.T) {
	if testing.Short() {
		t.Skip("coverage simulation")
	}

	const trials = 1000
	rng := rand.New(rand.NewSource(99))
	covered := 0
	for trial := 0; trial < trials; trial++ {
		data := make([]float64, 1000)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		set, err := chain.NewSet([]*mat.Dense{mat.NewDense(1000, 1, data)}, chain.WithBatchSize(1))
		require.NoError(t, err)

		res, err := Compute(set, Options{
			Alpha:        0.05,
			IncludeMeans: true,
			Draws:        2000,
			Seed:         int64(trial + 1),
		})
		require.NoError(t, err)
		if res.LowerMean[0] <= 0 && res.UpperMean[0] >= 0 {
			covered++
		}
	}

	rate := float64(covered) / trials
	assert.GreaterOrEqual(t, rate, 0.93)
	assert.LessOrEqual(t, rate, 0.97)
}

func TestBisectionNoBracket(t *testing.T) {
	// W_2 = 100 W_1 needs z near 196, far beyond the widened Bonferroni bound
	l := mat.NewTriDense(2, mat.Lower, []float64{
		1, 0,
		100, 0,
	})
	_, err := bisectCritical(l, 0.05, 500, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diagerr.ErrInsufficientData), "got %v", err)
	assert.Contains(t, err.Error(), "raise draws")
}
