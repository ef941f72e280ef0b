package filler

import (
	"math"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

// FillRecap fills the summary sheet during a full regeneration: per-phase
// final scores, the proposed overall score, per-phase comments and the
// panel-member descriptions. The recap sheet is resolved through the "recap"
// sheet key; if the template has no such sheet the whole pass is skipped.
func (f *Filler) FillRecap(wb *excelize.File, student models.Student) {
	sheet, err := f.cfg.SheetFor("recap")
	if err != nil {
		return
	}
	if !sheetExists(wb, sheet) {
		f.logger.Warn("recap sheet missing from workbook", zap.String("sheet", sheet))
		return
	}

	var sum float64
	var count int
	for _, phase := range sortedKeys(f.cfg.Recap.Notes) {
		record, ok := student.Evaluations[phase]
		if !ok || record.NoteFinale == nil {
			continue
		}
		f.setCell(wb, sheet, f.cfg.Recap.Notes[phase], *record.NoteFinale)
		sum += *record.NoteFinale
		count++
	}

	// Proposed overall score: plain mean of the available phase scores,
	// rounded to 2 decimals like the replicated formula output.
	if f.cfg.Recap.NoteProposee != "" && count > 0 {
		proposed := math.Round(sum/float64(count)*100) / 100
		f.setCell(wb, sheet, f.cfg.Recap.NoteProposee, proposed)
	}

	for _, phase := range sortedKeys(f.cfg.Recap.Commentaires) {
		record, ok := student.Evaluations[phase]
		if !ok || record.CommentaireGeneral == "" {
			continue
		}
		f.setCell(wb, sheet, f.cfg.Recap.Commentaires[phase], record.CommentaireGeneral)
	}

	for i, cell := range f.cfg.JuryMembers.Recap {
		if i >= len(student.Jury) {
			break
		}
		if student.Jury[i] == "" {
			continue
		}
		f.setCell(wb, sheet, cell, student.Jury[i])
	}
}
