// Package sci computes simultaneous confidence intervals for the means and
// quantiles of every component of a set of Markov chains.
//
// Compute estimates the joint asymptotic covariance of all targets at once
// (batch means on the chains and on quantile indicators, rescaled by kernel
// density estimates), then widens every marginal interval by one common
// critical value so that the intervals hold jointly at level 1-alpha.
package sci

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Result holds simultaneous intervals for a chain set. Quantile matrices are
// laid out with one row per quantile level and one column per component.
type Result struct {
	Names  []string
	Levels []float64
	Alpha  float64
	// Critical is the common multiplier applied to every standard error
	Critical float64
	Method   Method
	Seed     int64
	// BatchSize used for the joint covariance
	BatchSize int
	// N is the total number of draws across chains
	N int

	// nil when means are excluded
	MeanEstimate []float64
	LowerMean    []float64
	UpperMean    []float64
	MeanStdErr   []float64

	// nil when no quantile levels are requested
	QuantileEstimate *mat.Dense
	LowerQuantile    *mat.Dense
	UpperQuantile    *mat.Dense
	QuantileStdErr   *mat.Dense

	// Joint is the covariance the intervals were calibrated on
	Joint *Joint
}

// Compute returns simultaneous intervals for the requested targets of set.
func Compute(set *chain.Set, opts Options) (*Result, error) {
	opts, err := opts.resolved()
	if err != nil {
		return nil, diagerr.Wrap(err, "simultaneous intervals")
	}
	if set == nil {
		return nil, diagerr.New(diagerr.InvalidParameter, "simultaneous intervals: nil chain set")
	}

	joint, err := Assemble(set.Stacked(), opts.Quantiles, set.BatchSize(), opts.IncludeMeans)
	if err != nil {
		return nil, diagerr.Wrap(err, "simultaneous intervals")
	}
	opts.Logger.Debug("assembled joint covariance",
		zap.Int("components", joint.P),
		zap.Int("levels", len(joint.Levels)),
		zap.Bool("means", joint.IncludeMeans),
		zap.Int("batch_size", set.BatchSize()),
	)

	cal, err := Calibrate(joint.Sigma, joint.Estimates, set.N(), opts)
	if err != nil {
		return nil, diagerr.Wrap(err, "simultaneous intervals")
	}

	return newResult(set, joint, cal, opts), nil
}

func newResult(set *chain.Set, joint *Joint, cal *Calibration, opts Options) *Result {
	p := joint.P
	res := &Result{
		Names:     set.Names(),
		Levels:    append([]float64(nil), joint.Levels...),
		Alpha:     opts.Alpha,
		Critical:  cal.Critical,
		Method:    cal.Method,
		Seed:      cal.Seed,
		BatchSize: set.BatchSize(),
		N:         set.N(),
		Joint:     joint,
	}

	if joint.IncludeMeans {
		res.MeanEstimate = append([]float64(nil), joint.Estimates[:p]...)
		res.LowerMean = append([]float64(nil), cal.Lower[:p]...)
		res.UpperMean = append([]float64(nil), cal.Upper[:p]...)
		res.MeanStdErr = append([]float64(nil), cal.StdErr[:p]...)
	}

	nq := len(joint.Levels)
	if nq == 0 {
		return res
	}
	res.QuantileEstimate = mat.NewDense(nq, p, nil)
	res.LowerQuantile = mat.NewDense(nq, p, nil)
	res.UpperQuantile = mat.NewDense(nq, p, nil)
	res.QuantileStdErr = mat.NewDense(nq, p, nil)
	for qi := 0; qi < nq; qi++ {
		for c := 0; c < p; c++ {
			idx := joint.QuantileIndex(qi, c)
			res.QuantileEstimate.Set(qi, c, joint.Estimates[idx])
			res.LowerQuantile.Set(qi, c, cal.Lower[idx])
			res.UpperQuantile.Set(qi, c, cal.Upper[idx])
			res.QuantileStdErr.Set(qi, c, cal.StdErr[idx])
		}
	}
	return res
}
