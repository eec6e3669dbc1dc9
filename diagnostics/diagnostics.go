// Package diagnostics is the entry point for callers holding raw MCMC
// output. Every function accepts any chain.Input, resolves it once into a
// chain set and runs the requested diagnostic on it.
package diagnostics

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/acf"
	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/ess"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

// SimultaneousCI returns simultaneous intervals for the means and quantiles
// of every component of in.
func SimultaneousCI(in chain.Input, opts sci.Options, setOpts ...chain.Option) (*sci.Result, error) {
	set, err := chain.Resolve(in, setOpts...)
	if err != nil {
		return nil, err
	}
	return sci.Compute(set, opts)
}

// Summary returns the per-component and multivariate convergence summary of
// in.
func Summary(in chain.Input, opts ess.Options, setOpts ...chain.Option) (*ess.Summary, error) {
	set, err := chain.Resolve(in, setOpts...)
	if err != nil {
		return nil, err
	}
	return ess.Summarize(set, opts)
}

// Autocorrelation returns the autocorrelations of every component for lags
// 0..maxLag, averaged over chains, as a (maxLag+1) x p matrix. maxLag is
// clamped to one less than the shortest chain.
func Autocorrelation(in chain.Input, maxLag int, setOpts ...chain.Option) (*mat.Dense, error) {
	set, err := chain.Resolve(in, setOpts...)
	if err != nil {
		return nil, err
	}
	return averageACF(set, maxLag)
}

func averageACF(set *chain.Set, maxLag int) (*mat.Dense, error) {
	if maxLag < 0 {
		return nil, diagerr.New(diagerr.InvalidParameter, "autocorrelation: negative lag %d", maxLag)
	}
	m := set.M()
	for i := 0; i < m; i++ {
		if n, _ := set.Chain(i).Dims(); maxLag > n-1 {
			maxLag = n - 1
		}
	}

	p := set.Dim()
	out := mat.NewDense(maxLag+1, p, nil)
	for i := 0; i < m; i++ {
		c := set.Chain(i)
		for j := 0; j < p; j++ {
			rho, err := acf.Autocorrelation(mat.Col(nil, j, c), maxLag)
			if err != nil {
				return nil, diagerr.Wrapf(err, "autocorrelation: component %d", j)
			}
			for k, v := range rho {
				out.Set(k, j, out.At(k, j)+v)
			}
		}
	}
	out.Scale(1/float64(m), out)
	return out, nil
}

// Config selects what Run computes.
type Config struct {
	Intervals sci.Options
	Summary   ess.Options
	// MaxLag is the largest autocorrelation lag; negative skips the ACF
	MaxLag int
	Logger *zap.Logger
}

// Report bundles the diagnostics of one chain set.
type Report struct {
	Intervals *sci.Result
	Summary   *ess.Summary
	// ACF is nil when not requested
	ACF *mat.Dense
}

// Run resolves in once and computes intervals, the summary and, when
// cfg.MaxLag is non-negative, the averaged autocorrelations.
func Run(in chain.Input, cfg Config, setOpts ...chain.Option) (*Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Intervals.Logger == nil {
		cfg.Intervals.Logger = logger
	}
	if cfg.Summary.Logger == nil {
		cfg.Summary.Logger = logger
	}

	set, err := chain.Resolve(in, setOpts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved chain set",
		zap.Int("chains", set.M()),
		zap.Int("components", set.Dim()),
		zap.Int("rows", set.N()),
		zap.Int("batch_size", set.BatchSize()),
	)

	rep := &Report{}
	if rep.Intervals, err = sci.Compute(set, cfg.Intervals); err != nil {
		return nil, err
	}
	if rep.Summary, err = ess.Summarize(set, cfg.Summary); err != nil {
		return nil, err
	}
	if cfg.MaxLag >= 0 {
		if rep.ACF, err = averageACF(set, cfg.MaxLag); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
