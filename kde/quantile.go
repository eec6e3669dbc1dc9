package kde

import (
	"math"
	"sort"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Quantile returns the type-7 (Hyndman-Fan) q-quantile of sorted, which must
// already be in ascending order: the value at position q*(n-1), linearly
// interpolated between the neighbouring order statistics. q outside (0, 1)
// yields the sample extremes and an empty sample yields NaN.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}

	whole, frac := math.Modf(q * float64(n-1))
	i := int(whole)
	if frac == 0 {
		return sorted[i]
	}
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// Quantiles returns the type-7 quantiles of x at each level in qs. x is not
// modified. Levels must lie in (0, 1).
func Quantiles(x []float64, qs []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, diagerr.New(diagerr.InsufficientData, "quantiles: empty sample")
	}
	if err := ValidateLevels(qs); err != nil {
		return nil, err
	}

	tmp := make([]float64, len(x))
	copy(tmp, x)
	sort.Float64s(tmp)

	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = Quantile(tmp, q)
	}
	return out, nil
}

// ValidateLevels checks that every quantile level lies in (0, 1).
// Duplicates are allowed.
func ValidateLevels(qs []float64) error {
	for i, q := range qs {
		if !(q > 0 && q < 1) {
			return diagerr.New(diagerr.InvalidParameter, "quantile level %d is %v, want (0, 1)", i, q)
		}
	}
	return nil
}
