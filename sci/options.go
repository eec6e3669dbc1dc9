package sci

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// DefaultDraws is the number of Monte Carlo draws used to calibrate the
// critical value when Options.Draws is zero.
const DefaultDraws = 20000

// Method selects how the critical value is calibrated.
type Method int

const (
	// MonteCarlo takes the (1-alpha) quantile of max|W_i| over simulated
	// W ~ N(0, R). This is the default.
	MonteCarlo Method = iota
	// Bisection searches for the smallest z with P(max|W_i| <= z) >= 1-alpha,
	// estimating the rectangle probability by Genz's integrator.
	Bisection
)

func (m Method) String() string {
	switch m {
	case MonteCarlo:
		return "montecarlo"
	case Bisection:
		return "bisection"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps "montecarlo" or "bisection" to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "montecarlo", "monte-carlo", "mc":
		return MonteCarlo, nil
	case "bisection", "analytic":
		return Bisection, nil
	default:
		return 0, diagerr.New(diagerr.InvalidParameter, "unknown calibration method %q", s)
	}
}

// Options controls a simultaneous interval computation.
type Options struct {
	// Alpha is the joint non-coverage level, in (0, 1)
	Alpha float64
	// Quantiles are the quantile levels to estimate, each in (0, 1)
	Quantiles []float64
	// IncludeMeans adds the component means to the target vector
	IncludeMeans bool
	// Draws is the Monte Carlo sample size (0 = DefaultDraws)
	Draws int
	// Seed for the random draws (0 = time-based). Results are bit-identical
	// for a fixed non-zero seed, independent of Workers.
	Seed int64
	// Workers bounds the goroutines drawing samples (0 = runtime.NumCPU())
	Workers int
	// Method is the calibration method
	Method Method
	// Logger receives debug output (nil = no logging)
	Logger *zap.Logger
}

// resolved returns a copy with defaults filled in, or an error for values
// that have no sensible default.
func (o Options) resolved() (Options, error) {
	if !(o.Alpha > 0 && o.Alpha < 1) {
		return o, diagerr.New(diagerr.InvalidParameter, "alpha %v outside (0, 1)", o.Alpha)
	}
	if o.Draws < 0 {
		return o, diagerr.New(diagerr.InvalidParameter, "negative draw count %d", o.Draws)
	}
	if o.Workers < 0 {
		return o, diagerr.New(diagerr.InvalidParameter, "negative worker count %d", o.Workers)
	}
	if o.Method != MonteCarlo && o.Method != Bisection {
		return o, diagerr.New(diagerr.InvalidParameter, "unknown calibration method %v", o.Method)
	}

	if o.Draws == 0 {
		o.Draws = DefaultDraws
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}
