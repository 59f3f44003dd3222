// Package analysis computes column-level summary statistics for uploaded
// tabular datasets (CSV, XLSX, JSON).
package analysis

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"app/internal/model"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"
)

// ErrUnsupportedType is returned for file types the analyzer cannot parse
// (legacy .xls among them).
var ErrUnsupportedType = errors.New("unsupported file type")

// Run parses the dataset by declared type and computes its summary.
func Run(fileType string, r io.Reader) (model.AnalysisMeta, model.AnalysisColumns, error) {
	var (
		columns []string
		rows    [][]string
		err     error
	)
	switch fileType {
	case "csv", "txt":
		columns, rows, err = readCSV(r)
	case "xlsx":
		columns, rows, err = readXLSX(r)
	case "json":
		columns, rows, err = readJSON(r)
	default:
		return model.AnalysisMeta{}, model.AnalysisColumns{}, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
	if err != nil {
		return model.AnalysisMeta{}, model.AnalysisColumns{}, err
	}
	meta, results := summarize(columns, rows)
	return meta, results, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("empty dataset")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

func readXLSX(r io.Reader) ([]string, [][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	all, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("empty dataset")
	}
	return all[0], all[1:], nil
}

// readJSON expects an array of flat objects; the column set is the union of
// all keys, and absent keys count as missing values.
func readJSON(r io.Reader) ([]string, [][]string, error) {
	var records []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("decode json array: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty dataset")
	}

	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			v, ok := rec[col]
			if !ok || v == nil {
				continue
			}
			switch t := v.(type) {
			case string:
				row[i] = t
			case float64:
				row[i] = strconv.FormatFloat(t, 'f', -1, 64)
			case bool:
				row[i] = strconv.FormatBool(t)
			default:
				raw, _ := json.Marshal(t)
				row[i] = string(raw)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func summarize(columns []string, rows [][]string) (model.AnalysisMeta, model.AnalysisColumns) {
	meta := model.AnalysisMeta{
		Columns:     columns,
		RowCount:    len(rows),
		ColumnCount: len(columns),
		DTypes:      make(map[string]string, len(columns)),
	}
	results := model.AnalysisColumns{
		MissingValues:     make(map[string]int, len(columns)),
		UniqueValues:      make(map[string]int, len(columns)),
		DataTypes:         make(map[string]string, len(columns)),
		SummaryStatistics: make(map[string]model.NumericColumn),
	}

	for i, col := range columns {
		missing := 0
		unique := make(map[string]struct{})
		var numeric []float64
		allNumeric, allInt, allBool := true, true, true

		for _, row := range rows {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				missing++
				continue
			}
			unique[cell] = struct{}{}

			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				numeric = append(numeric, f)
				if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
					allInt = false
				}
			} else {
				allNumeric = false
				allInt = false
			}
			if _, err := strconv.ParseBool(cell); err != nil {
				allBool = false
			}
		}

		dtype := "object"
		switch {
		case len(unique) == 0:
			dtype = "object"
		case allNumeric && allInt:
			dtype = "int64"
		case allNumeric:
			dtype = "float64"
		case allBool:
			dtype = "bool"
		}

		meta.DTypes[col] = dtype
		results.MissingValues[col] = missing
		results.UniqueValues[col] = len(unique)
		results.DataTypes[col] = dtype

		if allNumeric && len(numeric) > 0 {
			results.SummaryStatistics[col] = describe(numeric)
		}
	}
	return meta, results
}

// describe computes the numeric summary of a column. The input must be
// non-empty.
func describe(xs []float64) model.NumericColumn {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	std := 0.0
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	return model.NumericColumn{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
}
