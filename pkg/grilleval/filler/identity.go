package filler

import (
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

// FillIdentity writes the student's identity fields (name, establishment,
// session, date) on every sheet the identity mapping covers. Missing sheets
// and bad addresses are logged and skipped.
func (f *Filler) FillIdentity(wb *excelize.File, student models.Student) {
	values := map[string]string{
		"nom":           student.FullName(),
		"etablissement": student.Etablissement,
		"session":       student.Session,
		"date":          student.DateEvaluation,
	}

	for _, field := range sortedKeys(f.cfg.Identite) {
		value, ok := values[field]
		if !ok {
			f.logger.Warn("unknown identity field in mapping", zap.String("field", field))
			continue
		}
		if value == "" {
			continue
		}
		for _, sheetKey := range sortedKeys(f.cfg.Identite[field]) {
			sheet, err := f.cfg.SheetFor(sheetKey)
			if err != nil {
				f.logger.Warn("identity sheet key not mapped", zap.String("key", sheetKey))
				continue
			}
			if !sheetExists(wb, sheet) {
				f.logger.Warn("identity sheet missing from workbook", zap.String("sheet", sheet))
				continue
			}
			f.setCell(wb, sheet, f.cfg.Identite[field][sheetKey], value)
		}
	}
}

// ReplaceSessionToken replaces the session-year placeholder with the actual
// session value on the sheets listed in the mapping. The token can sit inside
// rich text runs or plain cell text.
func (f *Filler) ReplaceSessionToken(wb *excelize.File, session string) {
	for _, sheetKey := range f.cfg.RemplacementSession {
		sheet, err := f.cfg.SheetFor(sheetKey)
		if err != nil {
			f.logger.Warn("session replacement sheet key not mapped", zap.String("key", sheetKey))
			continue
		}
		rows, err := wb.GetRows(sheet)
		if err != nil {
			f.logger.Warn("sheet read failed", zap.String("sheet", sheet), zap.Error(err))
			continue
		}
		for rowIdx, row := range rows {
			for colIdx, value := range row {
				if !strings.Contains(value, SessionToken) {
					continue
				}
				addr, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					continue
				}
				f.replaceTokenAt(wb, sheet, addr, session)
			}
		}
	}
}

func (f *Filler) replaceTokenAt(wb *excelize.File, sheet, addr, session string) {
	// Rich text first: replacing inside the runs keeps the formatting.
	if runs, err := wb.GetCellRichText(sheet, addr); err == nil && len(runs) > 0 {
		changed := false
		for i := range runs {
			if strings.Contains(runs[i].Text, SessionToken) {
				runs[i].Text = strings.ReplaceAll(runs[i].Text, SessionToken, session)
				changed = true
			}
		}
		if changed {
			if err := wb.SetCellRichText(sheet, addr, runs); err == nil {
				return
			}
		}
	}

	value, err := wb.GetCellValue(sheet, addr)
	if err != nil {
		f.logger.Warn("cell read failed", zap.String("sheet", sheet), zap.String("cell", addr), zap.Error(err))
		return
	}
	f.setCell(wb, sheet, addr, strings.ReplaceAll(value, SessionToken, session))
}
