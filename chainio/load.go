// Package chainio reads MCMC chains from CSV and XLSX files and writes
// diagnostic results as CSV, JSON and plain-text tables.
//
// A chain file has one header row naming the components followed by one row
// per iteration.
package chainio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

// LoadCSV loads one chain from a CSV file.
func LoadCSV(path string) (*mat.Dense, []string, error) {
	// 1. Open file
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// 2. Make CSV reader
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	// 3. Read header row
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty header in %s", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	// 4. Read data rows
	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		records = append(records, record)
	}

	x, err := parseRows(header, records)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, cleanHeader(header), nil
}

// LoadXLSX loads one chain per sheet of an XLSX workbook, in sheet order.
// Every sheet must have the same header.
func LoadXLSX(path string) ([]*mat.Dense, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	var (
		chains []*mat.Dense
		names  []string
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := cleanHeader(rows[0])
		if names == nil {
			names = header
		} else if strings.Join(header, "\x00") != strings.Join(names, "\x00") {
			return nil, nil, fmt.Errorf("sheet %s: header %v differs from %v", sheet, header, names)
		}

		x, err := parseRows(rows[0], rows[1:])
		if err != nil {
			return nil, nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		chains = append(chains, x)
	}

	if len(chains) == 0 {
		return nil, nil, fmt.Errorf("no chains in %s", path)
	}
	return chains, names, nil
}

// parseRows converts raw string rows into an n x K matrix, K = len(header).
// Blank rows are skipped; row numbers in errors count the header as row 1.
func parseRows(header []string, rows [][]string) (*mat.Dense, error) {
	K := len(header)
	if K == 0 || (K == 1 && strings.TrimSpace(header[0]) == "") {
		return nil, fmt.Errorf("empty header")
	}

	var (
		data []float64 // flat data for mat.Dense
		n    int
	)
	for i, record := range rows {
		if isBlank(record) {
			continue
		}
		if len(record) != K {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, K, len(record))
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("parse float at row %d col %d (%q): %w", i+2, j+1, s, err)
			}
			data = append(data, v)
		}
		n++
	}

	if n == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return mat.NewDense(n, K, data), nil
}

func isBlank(record []string) bool {
	for _, s := range record {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}
