package chainio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagnostics"
	"github.com/SiddharthanilPathak/GSoC-2023/ess"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

// WriteIntervalsCSV writes simultaneous intervals in long format.
// Columns: Target, Component, Level, Estimate, Lower, Upper, StdErr
func WriteIntervalsCSV(path string, res *sci.Result) error {
	return writeCSV(path, func(writer *csv.Writer) error {
		header := []string{"Target", "Component", "Level", "Estimate", "Lower", "Upper", "StdErr"}
		if err := writer.Write(header); err != nil {
			return err
		}

		for j, name := range res.Names {
			if res.MeanEstimate == nil {
				break
			}
			rec := []string{
				"mean",
				name,
				"",
				fmtFloat(res.MeanEstimate[j]),
				fmtFloat(res.LowerMean[j]),
				fmtFloat(res.UpperMean[j]),
				fmtFloat(res.MeanStdErr[j]),
			}
			if err := writer.Write(rec); err != nil {
				return err
			}
		}

		for qi, q := range res.Levels {
			for j, name := range res.Names {
				rec := []string{
					"quantile",
					name,
					fmtFloat(q),
					fmtFloat(res.QuantileEstimate.At(qi, j)),
					fmtFloat(res.LowerQuantile.At(qi, j)),
					fmtFloat(res.UpperQuantile.At(qi, j)),
					fmtFloat(res.QuantileStdErr.At(qi, j)),
				}
				if err := writer.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteSummaryCSV writes one row per component.
// Columns: Component, Mean, MCSE, Q<level>..., ESS, GelmanRubin
func WriteSummaryCSV(path string, sum *ess.Summary) error {
	return writeCSV(path, func(writer *csv.Writer) error {
		header := []string{"Component", "Mean", "MCSE"}
		for _, q := range sum.Levels {
			header = append(header, "Q"+fmtFloat(q))
		}
		header = append(header, "ESS", "GelmanRubin")
		if err := writer.Write(header); err != nil {
			return err
		}

		for _, c := range sum.Components {
			rec := []string{c.Name, fmtFloat(c.Mean), fmtFloat(c.MCSE)}
			for _, v := range c.Quantiles {
				rec = append(rec, fmtFloat(v))
			}
			rec = append(rec, strconv.Itoa(c.ESS), fmtFloat(c.GelmanRubin))
			if err := writer.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteACFCSV writes an autocorrelation table with one row per lag.
func WriteACFCSV(path string, acfs *mat.Dense, names []string) error {
	return writeCSV(path, func(writer *csv.Writer) error {
		rows, cols := acfs.Dims()
		header := append([]string{"Lag"}, columnNames(names, cols)...)
		if err := writer.Write(header); err != nil {
			return err
		}
		for k := 0; k < rows; k++ {
			rec := []string{strconv.Itoa(k)}
			for j := 0; j < cols; j++ {
				rec = append(rec, fmtFloat(acfs.At(k, j)))
			}
			if err := writer.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteChainsXLSX writes chains to a workbook, one sheet per chain, in the
// layout LoadXLSX reads.
func WriteChainsXLSX(path string, chains []*mat.Dense, names []string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, c := range chains {
		rows, cols := c.Dims()
		sheet := fmt.Sprintf("Chain%d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		// Header row
		header := columnNames(names, cols)
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}

		// Data rows
		row := make([]float64, cols)
		for r := 0; r < rows; r++ {
			mat.Row(row, r, c)
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

type intervalRecord struct {
	Component string   `json:"component"`
	Level     *float64 `json:"level,omitempty"`
	Estimate  float64  `json:"estimate"`
	Lower     float64  `json:"lower"`
	Upper     float64  `json:"upper"`
	StdErr    float64  `json:"std_err"`
}

type intervalsReport struct {
	Alpha     float64          `json:"alpha"`
	Critical  float64          `json:"critical_value"`
	Method    string           `json:"method"`
	Seed      int64            `json:"seed"`
	BatchSize int              `json:"batch_size"`
	N         int              `json:"n"`
	Means     []intervalRecord `json:"means,omitempty"`
	Quantiles []intervalRecord `json:"quantiles,omitempty"`
}

type report struct {
	RunID     string           `json:"run_id"`
	CreatedAt time.Time        `json:"created_at"`
	Intervals *intervalsReport `json:"intervals,omitempty"`
	Summary   *ess.Summary     `json:"summary,omitempty"`
	ACF       [][]float64      `json:"acf,omitempty"`
}

// WriteReportJSON writes rep as indented JSON stamped with a fresh run id,
// which it returns.
func WriteReportJSON(path string, rep *diagnostics.Report) (string, error) {
	out := report{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Summary:   rep.Summary,
	}
	if rep.Intervals != nil {
		out.Intervals = newIntervalsReport(rep.Intervals)
	}
	if rep.ACF != nil {
		rows, _ := rep.ACF.Dims()
		out.ACF = make([][]float64, rows)
		for k := range out.ACF {
			out.ACF[k] = mat.Row(nil, k, rep.ACF)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return out.RunID, nil
}

func newIntervalsReport(res *sci.Result) *intervalsReport {
	out := &intervalsReport{
		Alpha:     res.Alpha,
		Critical:  res.Critical,
		Method:    res.Method.String(),
		Seed:      res.Seed,
		BatchSize: res.BatchSize,
		N:         res.N,
	}
	if res.MeanEstimate != nil {
		for j, name := range res.Names {
			out.Means = append(out.Means, intervalRecord{
				Component: name,
				Estimate:  res.MeanEstimate[j],
				Lower:     res.LowerMean[j],
				Upper:     res.UpperMean[j],
				StdErr:    res.MeanStdErr[j],
			})
		}
	}
	for qi := range res.Levels {
		for j, name := range res.Names {
			out.Quantiles = append(out.Quantiles, intervalRecord{
				Component: name,
				Level:     &res.Levels[qi],
				Estimate:  res.QuantileEstimate.At(qi, j),
				Lower:     res.LowerQuantile.At(qi, j),
				Upper:     res.UpperQuantile.At(qi, j),
				StdErr:    res.QuantileStdErr.At(qi, j),
			})
		}
	}
	return out
}

func writeCSV(path string, write func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func columnNames(names []string, cols int) []string {
	if len(names) == cols {
		return names
	}
	out := make([]string, cols)
	for j := range out {
		out[j] = fmt.Sprintf("Var%d", j+1)
	}
	return out
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
