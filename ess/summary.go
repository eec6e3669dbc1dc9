package ess

import (
	"math"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
	"github.com/SiddharthanilPathak/GSoC-2023/kde"
)

// Options controls Summarize.
type Options struct {
	Alpha     float64
	Epsilon   float64
	Quantiles []float64
	Logger    *zap.Logger
}

// ComponentStats summarizes one component of a chain set. MCSE is the Monte
// Carlo standard error of the mean, sqrt(Sigma_jj/N).
type ComponentStats struct {
	Name        string    `json:"name"`
	Mean        float64   `json:"mean"`
	MCSE        float64   `json:"mcse"`
	Quantiles   []float64 `json:"quantiles"`
	ESS         int       `json:"ess"`
	GelmanRubin float64   `json:"gelman_rubin"`
}

// Summary holds per-component and multivariate convergence statistics.
type Summary struct {
	Components []ComponentStats `json:"components"`
	Levels     []float64        `json:"levels"`

	MultivariateESS         int     `json:"multivariate_ess"`
	MultivariateGelmanRubin float64 `json:"multivariate_gelman_rubin"`

	MinESS                 int     `json:"min_ess"`
	MinMultivariateESS     int     `json:"min_multivariate_ess"`
	TargetPSRF             float64 `json:"target_psrf"`
	TargetMultivariatePSRF float64 `json:"target_multivariate_psrf"`

	Chains    int     `json:"chains"`
	ChainLen  int     `json:"chain_length"`
	BatchSize int     `json:"batch_size"`
	Alpha     float64 `json:"alpha"`
	Epsilon   float64 `json:"epsilon"`
}

// Summarize computes means, Monte Carlo standard errors, quantiles,
// univariate and multivariate ESS and Gelman-Rubin factors for set, along
// with the minimum ESS and target Gelman-Rubin values implied by alpha and
// epsilon.
func Summarize(set *chain.Set, opts Options) (*Summary, error) {
	if err := validateLevels(opts.Alpha, opts.Epsilon); err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}
	if err := kde.ValidateLevels(opts.Quantiles); err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}
	if set == nil {
		return nil, diagerr.New(diagerr.InvalidParameter, "summary: nil chain set")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	covs, err := Estimate(set)
	if err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}
	size, psrf, err := covs.Univariate()
	if err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}
	mSize, mPSRF, err := covs.Multivariate()
	if err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}

	p := set.Dim()
	minUni, err := MinESS(1, opts.Alpha, opts.Epsilon)
	if err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}
	minMulti, err := MinESS(p, opts.Alpha, opts.Epsilon)
	if err != nil {
		return nil, diagerr.Wrap(err, "summary")
	}

	names := set.Names()
	out := &Summary{
		Components:              make([]ComponentStats, p),
		Levels:                  append([]float64(nil), opts.Quantiles...),
		MultivariateESS:         mSize,
		MultivariateGelmanRubin: mPSRF,
		MinESS:                  minUni,
		MinMultivariateESS:      minMulti,
		TargetPSRF:              TargetPSRF(set.M(), minUni),
		TargetMultivariatePSRF:  TargetMultivariatePSRF(set.M(), set.ChainLen(), minMulti),
		Chains:                  set.M(),
		ChainLen:                set.ChainLen(),
		BatchSize:               set.BatchSize(),
		Alpha:                   opts.Alpha,
		Epsilon:                 opts.Epsilon,
	}

	n := float64(set.N())
	for j := 0; j < p; j++ {
		col := set.Component(j)
		mean, err := stats.Mean(col)
		if err != nil {
			return nil, diagerr.Wrapf(err, "summary: component %d", j)
		}
		qs, err := kde.Quantiles(col, opts.Quantiles)
		if err != nil {
			return nil, diagerr.Wrapf(err, "summary: component %d", j)
		}
		out.Components[j] = ComponentStats{
			Name:        names[j],
			Mean:        mean,
			MCSE:        math.Sqrt(covs.Sigma.At(j, j) / n),
			Quantiles:   qs,
			ESS:         size[j],
			GelmanRubin: psrf[j],
		}
	}

	logger.Debug("computed summary statistics",
		zap.Int("components", p),
		zap.Int("chains", set.M()),
		zap.Int("batch_size", set.BatchSize()),
		zap.Int("multivariate_ess", mSize),
		zap.Float64("multivariate_psrf", mPSRF),
	)
	return out, nil
}
