// Package inspect reads a generated grille back into a JSON-friendly form,
// for the dump command and for comparing cell state in tests.
package inspect

import (
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// CellRow represents a single non-empty row of cells.
type CellRow struct {
	// R is the row index (1-based).
	R int `json:"r"`
	// C maps column index (string) to cell value.
	C map[string]interface{} `json:"c"`
}

// SheetDump holds the non-empty rows of one sheet.
type SheetDump struct {
	Rows []CellRow `json:"rows,omitempty"`
}

// WorkbookDump is the workbook-level container with per-sheet rows.
type WorkbookDump struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Sheets maps sheet name to its dump.
	Sheets map[string]SheetDump `json:"sheets"`
}

// Dump opens a workbook and extracts every sheet's non-empty rows.
func Dump(path string) (*WorkbookDump, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DumpFile(f, filepath.Base(path))
}

// DumpFile extracts every sheet of an already-open workbook.
func DumpFile(f *excelize.File, bookName string) (*WorkbookDump, error) {
	sheets := make(map[string]SheetDump)
	for _, sheetName := range f.GetSheetList() {
		rows, err := extractRows(f, sheetName)
		if err != nil {
			rows = nil
		}
		sheets[sheetName] = SheetDump{Rows: rows}
	}
	return &WorkbookDump{BookName: bookName, Sheets: sheets}, nil
}

// extractRows returns the non-empty rows of a sheet.
func extractRows(f *excelize.File, sheetName string) ([]CellRow, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	var result []CellRow
	for rowIdx, row := range rows {
		cellMap := make(map[string]interface{})
		for colIdx, cellValue := range row {
			if cellValue == "" {
				continue
			}
			cellMap[strconv.Itoa(colIdx+1)] = parseValue(cellValue)
		}
		if len(cellMap) > 0 {
			result = append(result, CellRow{R: rowIdx + 1, C: cellMap})
		}
	}
	return result, nil
}

// parseValue attempts to parse a string value as a number.
// Returns int64 for integers, float64 for decimals, or the original string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
