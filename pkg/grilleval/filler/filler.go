// Package filler writes evaluation data into a grille workbook through the
// cell-address mapping. All writes are in-memory workbook mutations; the
// caller owns loading and persistence.
//
// Per-cell failures (malformed address, unexpected cell type) are logged and
// skipped so one bad mapping entry cannot block the remaining writes. Only
// structural failures (unknown phase, sheet missing from the workbook) abort
// a fill.
package filler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/grilleval/grilleval-go/pkg/grilleval/mapping"
	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

// Mark is the token written into a level cell.
const Mark = "X"

// SessionToken is the placeholder embedded in the template that full
// regeneration replaces with the actual session value.
const SessionToken = "ANNEE_SESSION"

// ErrSheetNotFound indicates the mapped sheet is absent from the workbook.
var ErrSheetNotFound = errors.New("sheet not found in workbook")

// SheetError reports which phase's sheet was missing.
type SheetError struct {
	Phase string
	Sheet string
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("phase %q: sheet %q not found in workbook", e.Phase, e.Sheet)
}

func (e *SheetError) Unwrap() error { return ErrSheetNotFound }

// Filler mutates grille workbooks according to the mapping configuration.
type Filler struct {
	cfg    *mapping.Config
	logger *zap.Logger
}

// New returns a Filler. A nil logger disables logging.
func New(cfg *mapping.Config, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{cfg: cfg, logger: logger}
}

// FillPhase mutates the workbook in place to reflect one phase's record.
// It is idempotent: every criterion row is cleared of stale marks before the
// recorded level is written, so re-running with the same record yields the
// same cell state and a changed level never leaves two marks behind.
func (f *Filler) FillPhase(wb *excelize.File, phase string, record models.EvaluationRecord) error {
	sheet, err := f.cfg.SheetFor(phase)
	if err != nil {
		return err
	}
	if !sheetExists(wb, sheet) {
		return &SheetError{Phase: phase, Sheet: sheet}
	}
	pm, err := f.cfg.Phase(phase)
	if err != nil {
		return err
	}
	cols := f.cfg.LevelColumns()

	for _, code := range sortedKeys(pm.Competences) {
		for _, crit := range pm.Competences[code].Criteres {
			for _, col := range cols {
				f.clearMark(wb, sheet, col, crit.Ligne)
			}
			score, ok := record.Criteres[crit.ID]
			if !ok || score.Niveau == nil {
				continue
			}
			col, ok := columnForLevel(cols, *score.Niveau)
			if !ok {
				// Out-of-range level: treated as not yet evaluated.
				continue
			}
			f.setCell(wb, sheet, fmt.Sprintf("%s%d", col, crit.Ligne), Mark)
		}
	}

	if cell, ok := f.cfg.CommentCell(phase); ok && record.CommentaireGeneral != "" {
		f.setCell(wb, sheet, cell, record.CommentaireGeneral)
	}

	if fields, ok := f.cfg.ChampsSupplementaires[phase]; ok {
		if fields.Bonus != "" {
			f.setCell(wb, sheet, fields.Bonus, record.BonusValue())
		}
		if fields.NoteFinale != "" && record.NoteFinale != nil {
			f.setCell(wb, sheet, fields.NoteFinale, *record.NoteFinale)
		}
	}
	return nil
}

// columnForLevel maps an input level (0-4) to its column. Levels 0 and 1
// both resolve to the niveau_1 column; this collapsing is deliberate and
// mirrors the official grille.
func columnForLevel(cols [4]string, level int) (string, bool) {
	switch level {
	case 0, 1:
		return cols[0], true
	case 2, 3, 4:
		return cols[level-1], true
	}
	return "", false
}

// clearMark erases a stale level mark at col+ligne. Any single non-space
// character counts as a mark, so hand-entered tokens ("x", "V", "✗") are
// erased on re-grading too. Longer content is left alone.
func (f *Filler) clearMark(wb *excelize.File, sheet, col string, ligne int) {
	addr := fmt.Sprintf("%s%d", col, ligne)
	value, err := wb.GetCellValue(sheet, addr)
	if err != nil {
		f.logger.Warn("cell read failed", zap.String("sheet", sheet), zap.String("cell", addr), zap.Error(err))
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(value)) == 1 {
		f.setCell(wb, sheet, addr, "")
	}
}

// setCell writes one cell, logging and swallowing per-cell failures.
func (f *Filler) setCell(wb *excelize.File, sheet, addr string, value interface{}) {
	if err := wb.SetCellValue(sheet, addr, value); err != nil {
		f.logger.Warn("cell write failed", zap.String("sheet", sheet), zap.String("cell", addr), zap.Error(err))
	}
}

func sheetExists(wb *excelize.File, sheet string) bool {
	idx, err := wb.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
