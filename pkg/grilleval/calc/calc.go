// Package calc recomputes a grille's final score from raw cell values.
//
// The workbook library does not evaluate formulas: on files it has written,
// cells holding formula results read back empty. This package replicates the
// arithmetic embedded in the official template (row weights, group weights,
// the 20/3 scale factor, 2-decimal rounding) over the raw mark and weight
// cells, so displayed scores cannot diverge from the official document.
package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/grilleval/grilleval-go/pkg/grilleval/filler"
)

// scaleFactor converts the 0-3 mark scale to a /20 score: level 3 on every
// row maps to 20.
const scaleFactor = 20.0 / 3.0

// Score computes the phase's final score from a persisted workbook. It only
// reads cells; the workbook is never mutated.
//
// Marks are converted to a numeric level 0-3 by column position (leftmost
// column = 0). This display scale is intentionally different from the 0-4
// input level scale used when filling.
func Score(wb *excelize.File, sheet, phase string) (float64, error) {
	if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return 0, fmt.Errorf("score %q: %w", sheet, filler.ErrSheetNotFound)
	}

	layout := LayoutFor(phase)
	var weightedGroups, groupWeights float64
	for _, group := range layout.Groups {
		weight := cellFloat(wb, sheet, group.WeightCell)
		weightedGroups += groupAverage(wb, sheet, group) * weight
		groupWeights += weight
	}

	var score float64
	if groupWeights > 0 {
		score = weightedGroups / groupWeights * scaleFactor
	}
	score += cellFloat(wb, sheet, layout.BonusCell)
	return math.Round(score*100) / 100, nil
}

// groupAverage returns the weighted mean level of one competency group, 0
// when no row carries any weight. Rows without a mark contribute nothing.
func groupAverage(wb *excelize.File, sheet string, group GroupLayout) float64 {
	var sum, weights float64
	for _, row := range group.Rows {
		level, ok := rowLevel(wb, sheet, group.MarkCols, row)
		if !ok {
			continue
		}
		weight := cellFloat(wb, sheet, fmt.Sprintf("%s%d", group.WeightCol, row))
		sum += float64(level) * weight
		weights += weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// rowLevel scans the four mark columns of a row and returns the level of the
// column carrying the mark, by position. Only the canonical mark token
// counts: the fill path clears any single-character token but writes only
// "X", and scoring arbitrary stray characters would turn annotations into
// levels.
func rowLevel(wb *excelize.File, sheet string, cols [4]string, row int) (int, bool) {
	for i, col := range cols {
		value, err := wb.GetCellValue(sheet, fmt.Sprintf("%s%d", col, row))
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(value), filler.Mark) {
			return i, true
		}
	}
	return 0, false
}

// cellFloat reads a cell as a float, tolerating French decimal commas.
// Unreadable or non-numeric cells count as 0.
func cellFloat(wb *excelize.File, sheet, addr string) float64 {
	value, err := wb.GetCellValue(sheet, addr)
	if err != nil {
		return 0
	}
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
