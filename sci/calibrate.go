package sci

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/kde"
)

// chunkSize is the number of draws one goroutine produces from one seed.
const chunkSize = 1000

// Calibration holds simultaneous intervals for a target vector.
type Calibration struct {
	// Critical is z*, the common multiplier of every standard error
	Critical float64
	// StdErr is sqrt(Sigma_ii / n)
	StdErr []float64
	Lower  []float64
	Upper  []float64
	// Seed is the seed actually used for the draws
	Seed   int64
	Method Method
}

// Calibrate turns a joint covariance and point estimates into simultaneous
// intervals estimate_i +/- z* sqrt(Sigma_ii / n). z* is the (1-alpha)
// quantile of max_i |W_i| for W ~ N(0, R), R the correlation matrix of
// sigma, so that all k intervals cover jointly with probability 1-alpha.
func Calibrate(sigma mat.Symmetric, estimates []float64, n int, opts Options) (*Calibration, error) {
	opts, err := opts.resolved()
	if err != nil {
		return nil, diagerr.Wrap(err, "calibrate")
	}
	k := sigma.SymmetricDim()
	if len(estimates) != k {
		return nil, diagerr.New(diagerr.DimensionMismatch, "calibrate: %d estimates for a %dx%d covariance", len(estimates), k, k)
	}
	if n < 1 {
		return nil, diagerr.New(diagerr.InsufficientData, "calibrate: sample size %d", n)
	}

	// 1. Correlation matrix and its factor
	r, sd, err := Correlation(sigma)
	if err != nil {
		return nil, diagerr.Wrap(err, "calibrate")
	}
	l, err := Factor(r)
	if err != nil {
		return nil, diagerr.Wrap(err, "calibrate")
	}

	// 2. Critical value
	var z float64
	switch opts.Method {
	case Bisection:
		z, err = bisectCritical(l, opts.Alpha, opts.Draws, opts.Seed)
	default:
		z, err = monteCarloCritical(l, opts.Alpha, opts.Draws, opts.Seed, opts.Workers)
	}
	if err != nil {
		return nil, diagerr.Wrap(err, "calibrate")
	}

	// 3. Intervals
	out := &Calibration{
		Critical: z,
		StdErr:   make([]float64, k),
		Lower:    make([]float64, k),
		Upper:    make([]float64, k),
		Seed:     opts.Seed,
		Method:   opts.Method,
	}
	root := math.Sqrt(float64(n))
	for i := 0; i < k; i++ {
		se := sd[i] / root
		out.StdErr[i] = se
		out.Lower[i] = estimates[i] - z*se
		out.Upper[i] = estimates[i] + z*se
	}

	opts.Logger.Debug("calibrated simultaneous intervals",
		zap.String("method", opts.Method.String()),
		zap.Int("targets", k),
		zap.Int("draws", opts.Draws),
		zap.Int64("seed", opts.Seed),
		zap.Float64("critical", z),
	)
	return out, nil
}

// CriticalValue returns the Monte Carlo (1-alpha) quantile of max_i |W_i|,
// W ~ N(0, r), for a correlation matrix r.
func CriticalValue(r mat.Symmetric, alpha float64, draws int, seed int64) (float64, error) {
	opts, err := Options{Alpha: alpha, Draws: draws, Seed: seed}.resolved()
	if err != nil {
		return 0, err
	}
	l, err := Factor(r)
	if err != nil {
		return 0, err
	}
	return monteCarloCritical(l, opts.Alpha, opts.Draws, opts.Seed, opts.Workers)
}

func monteCarloCritical(l mat.Matrix, alpha float64, draws int, seed int64, workers int) (float64, error) {
	sup, err := supDraws(l, draws, seed, workers)
	if err != nil {
		return 0, err
	}
	sort.Float64s(sup)
	return kde.Quantile(sup, 1-alpha), nil
}

// supDraws returns max_i |(L z)_i| for draws independent standard normal z.
// Draws are split into fixed chunks, each with its own seed taken in order
// from a master generator, so the output depends on seed alone.
func supDraws(l mat.Matrix, draws int, seed int64, workers int) ([]float64, error) {
	k, _ := l.Dims()
	chunks := (draws + chunkSize - 1) / chunkSize

	masterRng := rand.New(rand.NewSource(seed))
	seeds := make([]int64, chunks)
	for i := range seeds {
		seeds[i] = masterRng.Int63()
	}

	out := make([]float64, draws)

	var g errgroup.Group
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		c := c
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[c]))
			z := mat.NewVecDense(k, nil)
			w := mat.NewVecDense(k, nil)

			end := min((c+1)*chunkSize, draws)
			for d := c * chunkSize; d < end; d++ {
				for i := 0; i < k; i++ {
					z.SetVec(i, rng.NormFloat64())
				}
				w.MulVec(l, z)

				s := 0.0
				for i := 0; i < k; i++ {
					if a := math.Abs(w.AtVec(i)); a > s {
						s = a
					}
				}
				out[d] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
