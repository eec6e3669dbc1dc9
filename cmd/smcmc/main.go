// Command smcmc computes simultaneous confidence intervals and convergence
// diagnostics for MCMC chains stored as CSV files (one file per chain) or as
// an XLSX workbook (one sheet per chain).
//
// Settings come from SMCMC_* environment variables or a .env file; command
// line flags override them. Results are printed and written to the output
// directory as intervals.csv, summary.csv, acf.csv and report.json.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/chain"
	"github.com/SiddharthanilPathak/GSoC-2023/chainio"
	"github.com/SiddharthanilPathak/GSoC-2023/diagnostics"
	"github.com/SiddharthanilPathak/GSoC-2023/ess"
	"github.com/SiddharthanilPathak/GSoC-2023/internal/config"
	"github.com/SiddharthanilPathak/GSoC-2023/internal/logging"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	// Parse command line flags
	fs := flag.NewFlagSet("smcmc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	alpha := fs.Float64("alpha", cfg.Alpha, "joint non-coverage level of the intervals")
	eps := fs.Float64("eps", cfg.Epsilon, "relative volume tolerance for the minimum ESS")
	levels := fs.String("q", joinLevels(cfg.Quantiles), "comma separated quantile levels")
	means := fs.Bool("means", cfg.IncludeMeans, "include component means in the intervals")
	draws := fs.Int("draws", cfg.Draws, "Monte Carlo draws for the critical value")
	seed := fs.Int64("seed", cfg.Seed, "random seed (0 = time based)")
	batch := fs.Int("batch", cfg.BatchSize, "batch size (0 = estimated per chain)")
	batchRule := fs.String("batch-rule", cfg.BatchRule, "batch size rule when -batch is 0: ar, ols or cuberoot")
	workers := fs.Int("workers", cfg.Workers, "parallel workers for the draws (0 = all CPUs)")
	method := fs.String("method", cfg.Method, "calibration method: montecarlo or bisection")
	out := fs.String("out", cfg.OutputDir, "output directory")
	maxLag := fs.Int("acf", cfg.MaxLag, "largest autocorrelation lag (negative = skip)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: smcmc [options] <chain.csv> [chain.csv ...] | <chains.xlsx>\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg.Alpha, cfg.Epsilon, cfg.IncludeMeans = *alpha, *eps, *means
	cfg.Draws, cfg.Seed, cfg.BatchSize, cfg.BatchRule, cfg.Workers = *draws, *seed, *batch, *batchRule, *workers
	cfg.Method, cfg.OutputDir, cfg.MaxLag = *method, *out, *maxLag
	if cfg.Quantiles, err = config.ParseQuantiles(*levels); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger, err := newLogger(cfg.LogLevel, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer logger.Sync()

	if err := analyze(cfg, fs.Args(), stdout, logger); err != nil {
		logger.Error("diagnostics failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func analyze(cfg *config.Config, paths []string, stdout io.Writer, logger *zap.Logger) error {
	// 1. Load chains
	chains, names, err := loadChains(paths)
	if err != nil {
		return err
	}
	logger.Info("loaded chains",
		zap.Int("chains", len(chains)),
		zap.Strings("components", names),
	)

	// 2. Compute diagnostics
	method, err := cfg.CalibrationMethod()
	if err != nil {
		return err
	}
	sizer, err := cfg.BatchSizer()
	if err != nil {
		return err
	}
	rep, err := diagnostics.Run(
		chain.ChainList{Chains: chains, Names: names},
		diagnostics.Config{
			Intervals: sci.Options{
				Alpha:        cfg.Alpha,
				Quantiles:    cfg.Quantiles,
				IncludeMeans: cfg.IncludeMeans,
				Draws:        cfg.Draws,
				Seed:         cfg.Seed,
				Workers:      cfg.Workers,
				Method:       method,
			},
			Summary: ess.Options{
				Alpha:     cfg.Alpha,
				Epsilon:   cfg.Epsilon,
				Quantiles: cfg.Quantiles,
			},
			MaxLag: cfg.MaxLag,
			Logger: logger,
		},
		chain.WithBatchSize(cfg.BatchSize),
		chain.WithSizer(sizer),
	)
	if err != nil {
		return err
	}

	// 3. Print tables
	chainio.PrintIntervals(stdout, rep.Intervals)
	chainio.PrintSummary(stdout, rep.Summary)
	if rep.ACF != nil {
		chainio.PrintACF(stdout, rep.ACF, rep.Intervals.Names)
	}

	// 4. Write results
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := chainio.WriteIntervalsCSV(filepath.Join(cfg.OutputDir, "intervals.csv"), rep.Intervals); err != nil {
		return fmt.Errorf("write intervals: %w", err)
	}
	if err := chainio.WriteSummaryCSV(filepath.Join(cfg.OutputDir, "summary.csv"), rep.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if rep.ACF != nil {
		if err := chainio.WriteACFCSV(filepath.Join(cfg.OutputDir, "acf.csv"), rep.ACF, rep.Intervals.Names); err != nil {
			return fmt.Errorf("write autocorrelations: %w", err)
		}
	}
	id, err := chainio.WriteReportJSON(filepath.Join(cfg.OutputDir, "report.json"), rep)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("wrote results",
		zap.String("run_id", id),
		zap.String("dir", cfg.OutputDir),
		zap.Float64("critical", rep.Intervals.Critical),
		zap.Int64("seed", rep.Intervals.Seed),
	)
	return nil
}

// loadChains reads one workbook or one CSV per chain. All chains must name
// the same components.
func loadChains(paths []string) ([]*mat.Dense, []string, error) {
	if len(paths) == 1 && strings.EqualFold(filepath.Ext(paths[0]), ".xlsx") {
		return chainio.LoadXLSX(paths[0])
	}

	var (
		chains []*mat.Dense
		names  []string
	)
	for _, path := range paths {
		x, header, err := chainio.LoadCSV(path)
		if err != nil {
			return nil, nil, err
		}
		// a width mismatch is left to the chain stacker
		if names == nil {
			names = header
		} else if len(header) == len(names) && strings.Join(header, ",") != strings.Join(names, ",") {
			return nil, nil, fmt.Errorf("%s: components %v differ from %v", path, header, names)
		}
		chains = append(chains, x)
	}
	return chains, names, nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return logging.NewDevelopment()
	}
	return logging.New(level)
}

func joinLevels(qs []float64) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = fmt.Sprintf("%g", q)
	}
	return strings.Join(parts, ",")
}
