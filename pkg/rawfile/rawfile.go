// Package rawfile reads a local workbook or CSV into the header+rows
// shape the raw adapter consumes. Used by the preview command to dry-run
// a transform without touching Google Sheets.
package rawfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Read loads the first sheet of an .xls or .xlsx workbook, or a .csv
// file, and returns the header row plus the data rows below it.
func Read(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		return readXLS(path)
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

func readXLS(path string) ([]string, [][]string, error) {
	workbook, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("error opening workbook: %w", err)
	}

	rows := workbook.ReadAllCells(100000)
	return split(rows)
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}
	return split(rows)
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading csv: %w", err)
	}
	return split(rows)
}

// split peels the header off the first non-empty row.
func split(rows [][]string) ([]string, [][]string, error) {
	for i, row := range rows {
		if allEmpty(row) {
			continue
		}
		return row, rows[i+1:], nil
	}
	return nil, nil, fmt.Errorf("no data found in sheet")
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
