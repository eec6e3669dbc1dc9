package chainio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagnostics"
	"github.com/SiddharthanilPathak/GSoC-2023/ess"
	"github.com/SiddharthanilPathak/GSoC-2023/sci"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func sampleResult() *sci.Result {
	return &sci.Result{
		Names:            []string{"mu", "sigma"},
		Levels:           []float64{0.1, 0.9},
		Alpha:            0.05,
		Critical:         2.5,
		Method:           sci.MonteCarlo,
		Seed:             7,
		BatchSize:        12,
		N:                1000,
		MeanEstimate:     []float64{0.5, 2},
		LowerMean:        []float64{0.4, 1.8},
		UpperMean:        []float64{0.6, 2.2},
		MeanStdErr:       []float64{0.04, 0.08},
		QuantileEstimate: mat.NewDense(2, 2, []float64{-1, 1, 2, 3}),
		LowerQuantile:    mat.NewDense(2, 2, []float64{-1.2, 0.9, 1.8, 2.7}),
		UpperQuantile:    mat.NewDense(2, 2, []float64{-0.8, 1.1, 2.2, 3.3}),
		QuantileStdErr:   mat.NewDense(2, 2, []float64{0.08, 0.04, 0.08, 0.12}),
	}
}

func sampleSummary() *ess.Summary {
	return &ess.Summary{
		Components: []ess.ComponentStats{
			{Name: "mu", Mean: 0.5, MCSE: 0.01, Quantiles: []float64{-1, 2}, ESS: 900, GelmanRubin: 1.002},
			{Name: "sigma", Mean: 2, MCSE: 0.02, Quantiles: []float64{1, 3}, ESS: 450, GelmanRubin: 1.004},
		},
		Levels:                  []float64{0.1, 0.9},
		MultivariateESS:         700,
		MultivariateGelmanRubin: 1.003,
		MinESS:                  6147,
		MinMultivariateESS:      7530,
		Chains:                  2,
		ChainLen:                500,
		BatchSize:               12,
		Alpha:                   0.05,
		Epsilon:                 0.05,
	}
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "chain.csv", "alpha, beta\n1,2\n\n3, 4.5\n-1e-3,6\n")

	x, names, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{1, 2, 3, 4.5, -0.001, 6}), x))
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "empty header"},
		{"header only", "a,b\n", "no data rows"},
		{"ragged", "a,b\n1,2\n3\n", "row 3: expected 2 columns, got 1"},
		{"not a number", "a,b\n1,x\n", "parse float at row 2 col 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadCSV(writeFile(t, "chain.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.xlsx")
	chains := []*mat.Dense{
		mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		mat.NewDense(2, 2, []float64{0.5, -1, 1.25, 8}),
	}
	require.NoError(t, WriteChainsXLSX(path, chains, []string{"a", "b"}))

	got, names, err := LoadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	require.Len(t, got, 2)
	for i := range chains {
		assert.True(t, mat.Equal(chains[i], got[i]), "chain %d", i)
	}
}

func TestLoadXLSXHeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"a", "b"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1, 2}))
	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet2", "A1", &[]interface{}{"a", "c"}))
	require.NoError(t, f.SetSheetRow("Sheet2", "A2", &[]interface{}{1, 2}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, _, err = LoadXLSX(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differs")
}

func TestWriteIntervalsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intervals.csv")
	require.NoError(t, WriteIntervalsCSV(path, sampleResult()))

	records := readCSV(t, path)
	require.Len(t, records, 1+2+4)
	assert.Equal(t, []string{"Target", "Component", "Level", "Estimate", "Lower", "Upper", "StdErr"}, records[0])
	assert.Equal(t, []string{"mean", "mu", "", "0.5", "0.4", "0.6", "0.04"}, records[1])
	// quantile-major: both components at 0.1, then both at 0.9
	assert.Equal(t, []string{"quantile", "sigma", "0.1", "1", "0.9", "1.1", "0.04"}, records[4])
	assert.Equal(t, []string{"quantile", "mu", "0.9", "2", "1.8", "2.2", "0.08"}, records[5])
}

func TestWriteIntervalsCSVWithoutMeans(t *testing.T) {
	res := sampleResult()
	res.MeanEstimate, res.LowerMean, res.UpperMean, res.MeanStdErr = nil, nil, nil, nil

	path := filepath.Join(t.TempDir(), "intervals.csv")
	require.NoError(t, WriteIntervalsCSV(path, res))
	records := readCSV(t, path)
	require.Len(t, records, 1+4)
	assert.Equal(t, "quantile", records[1][0])
}

func TestWriteSummaryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, WriteSummaryCSV(path, sampleSummary()))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Component", "Mean", "MCSE", "Q0.1", "Q0.9", "ESS", "GelmanRubin"}, records[0])
	assert.Equal(t, []string{"sigma", "2", "0.02", "1", "3", "450", "1.004"}, records[2])
}

func TestWriteACFCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acf.csv")
	acfs := mat.NewDense(2, 2, []float64{1, 1, 0.5, 0.25})
	require.NoError(t, WriteACFCSV(path, acfs, nil))

	records := readCSV(t, path)
	assert.Equal(t, [][]string{
		{"Lag", "Var1", "Var2"},
		{"0", "1", "1"},
		{"1", "0.5", "0.25"},
	}, records)
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	rep := &diagnostics.Report{
		Intervals: sampleResult(),
		Summary:   sampleSummary(),
		ACF:       mat.NewDense(2, 2, []float64{1, 1, 0.5, 0.25}),
	}

	id, err := WriteReportJSON(path, rep)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		RunID     string `json:"run_id"`
		Intervals struct {
			Critical  float64 `json:"critical_value"`
			Method    string  `json:"method"`
			Means     []map[string]any
			Quantiles []struct {
				Component string   `json:"component"`
				Level     *float64 `json:"level"`
			} `json:"quantiles"`
		} `json:"intervals"`
		Summary ess.Summary `json:"summary"`
		ACF     [][]float64 `json:"acf"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, id, decoded.RunID)
	assert.Equal(t, 2.5, decoded.Intervals.Critical)
	assert.Equal(t, "montecarlo", decoded.Intervals.Method)
	assert.Len(t, decoded.Intervals.Means, 2)
	require.Len(t, decoded.Intervals.Quantiles, 4)
	require.NotNil(t, decoded.Intervals.Quantiles[3].Level)
	assert.Equal(t, 0.9, *decoded.Intervals.Quantiles[3].Level)
	assert.Equal(t, 700, decoded.Summary.MultivariateESS)
	assert.Equal(t, [][]float64{{1, 1}, {0.5, 0.25}}, decoded.ACF)
}

func TestPrintTables(t *testing.T) {
	var buf bytes.Buffer
	PrintIntervals(&buf, sampleResult())
	PrintSummary(&buf, sampleSummary())
	PrintACF(&buf, mat.NewDense(1, 2, []float64{1, 1}), []string{"mu", "sigma"})

	out := buf.String()
	assert.Contains(t, out, "Simultaneous Confidence Intervals")
	assert.Contains(t, out, "critical value: 2.5000")
	assert.Contains(t, out, "q0.9")
	assert.Contains(t, out, "Multivariate ESS:          700")
	assert.Contains(t, out, "sigma")
}
