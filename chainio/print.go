package chainio

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/ess"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

// PrintIntervals prints simultaneous intervals as a table.
func PrintIntervals(w io.Writer, res *sci.Result) {
	fmt.Fprintln(w, "\n=== Simultaneous Confidence Intervals ===")
	fmt.Fprintf(w, "Joint level: %.1f%%   critical value: %.4f   method: %s   batch size: %d\n",
		100*(1-res.Alpha), res.Critical, res.Method, res.BatchSize)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s %-10s | %12s | %12s | %12s\n", "Component", "Target", "Estimate", "Lower", "Upper")
	fmt.Fprintln(w, strings.Repeat("-", 76))

	for j, name := range res.Names {
		if res.MeanEstimate != nil {
			fmt.Fprintf(w, "%-20s %-10s | %12.6f | %12.6f | %12.6f\n",
				name, "mean", res.MeanEstimate[j], res.LowerMean[j], res.UpperMean[j])
		}
		for qi, q := range res.Levels {
			fmt.Fprintf(w, "%-20s %-10s | %12.6f | %12.6f | %12.6f\n",
				name, fmt.Sprintf("q%g", q),
				res.QuantileEstimate.At(qi, j),
				res.LowerQuantile.At(qi, j),
				res.UpperQuantile.At(qi, j))
		}
	}
	fmt.Fprintln(w)
}

// PrintSummary prints the convergence summary.
func PrintSummary(w io.Writer, sum *ess.Summary) {
	fmt.Fprintln(w, "\n=== MCMC Summary ===")
	fmt.Fprintf(w, "Chains: %d   chain length: %d   batch size: %d\n", sum.Chains, sum.ChainLen, sum.BatchSize)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s | %12s | %10s", "Component", "Mean", "MCSE")
	for _, q := range sum.Levels {
		fmt.Fprintf(w, " | %10s", fmt.Sprintf("q%g", q))
	}
	fmt.Fprintf(w, " | %8s | %8s\n", "ESS", "G-R")
	fmt.Fprintln(w, strings.Repeat("-", 60+13*len(sum.Levels)))

	for _, c := range sum.Components {
		fmt.Fprintf(w, "%-20s | %12.6f | %10.6f", c.Name, c.Mean, c.MCSE)
		for _, v := range c.Quantiles {
			fmt.Fprintf(w, " | %10.4f", v)
		}
		fmt.Fprintf(w, " | %8d | %8.4f\n", c.ESS, c.GelmanRubin)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Multivariate ESS:          %d\n", sum.MultivariateESS)
	fmt.Fprintf(w, "Multivariate Gelman-Rubin: %.4f\n", sum.MultivariateGelmanRubin)
	fmt.Fprintf(w, "Minimum ESS (eps = %g, alpha = %g): univariate %d, multivariate %d\n",
		sum.Epsilon, sum.Alpha, sum.MinESS, sum.MinMultivariateESS)
	fmt.Fprintf(w, "Target Gelman-Rubin:       univariate %.4f, multivariate %.4f\n",
		sum.TargetPSRF, sum.TargetMultivariatePSRF)
	fmt.Fprintln(w)
}

// PrintACF prints an autocorrelation table with one row per lag.
func PrintACF(w io.Writer, acfs *mat.Dense, names []string) {
	rows, cols := acfs.Dims()

	fmt.Fprintln(w, "\n=== Autocorrelation (averaged over chains) ===")
	fmt.Fprintf(w, "lag\t")
	for _, name := range columnNames(names, cols) {
		fmt.Fprintf(w, "%12s", name)
	}
	fmt.Fprintln(w)

	for k := 0; k < rows; k++ {
		fmt.Fprintf(w, "%d\t", k)
		for j := 0; j < cols; j++ {
			fmt.Fprintf(w, "%12.4f", acfs.At(k, j))
		}
		fmt.Fprintln(w)
	}
}
