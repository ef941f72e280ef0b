package filler

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/grilleval/grilleval-go/pkg/grilleval/mapping"
	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

const recapSheet = "Recapitulatif"

func identityConfig() *mapping.Config {
	cfg := testConfig()
	cfg.SheetNames["recap"] = recapSheet
	cfg.Identite = map[string]map[string]string{
		"nom":     {"stage": "B2", "recap": "B2"},
		"session": {"recap": "D2"},
		"date":    {"stage": "F2"},
	}
	cfg.JuryMembers = mapping.JuryMembers{Recap: []string{"B40", "B41", "B42"}}
	cfg.Recap = mapping.Recap{
		Notes:        map[string]string{"stage": "E10", "soutenance": "E11"},
		NoteProposee: "E13",
		Commentaires: map[string]string{"stage": "B20"},
	}
	cfg.RemplacementSession = []string{"recap"}
	return cfg
}

func newFullWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := newWorkbook(t)
	if _, err := f.NewSheet(recapSheet); err != nil {
		t.Fatalf("Failed to create recap sheet: %v", err)
	}
	return f
}

func TestFillIdentity(t *testing.T) {
	f := newFullWorkbook(t)
	defer f.Close()
	filler := New(identityConfig(), nil)

	student := models.Student{
		Nom:            "Dupont",
		Prenom:         "Marie",
		Session:        "2026",
		DateEvaluation: "12/05/2026",
	}
	filler.FillIdentity(f, student)

	for _, sheet := range []string{stageSheet, recapSheet} {
		got, err := f.GetCellValue(sheet, "B2")
		if err != nil {
			t.Fatalf("GetCellValue failed: %v", err)
		}
		if got != "DUPONT Marie" {
			t.Errorf("Sheet %s: expected 'DUPONT Marie' in B2, got %q", sheet, got)
		}
	}
	if got, _ := f.GetCellValue(recapSheet, "D2"); got != "2026" {
		t.Errorf("Expected session in D2, got %q", got)
	}
	if got, _ := f.GetCellValue(stageSheet, "F2"); got != "12/05/2026" {
		t.Errorf("Expected date in F2, got %q", got)
	}
}

func TestFillIdentitySkipsMissingSheet(t *testing.T) {
	// No recap sheet in the workbook: the stage cells must still be filled.
	f := newWorkbook(t)
	defer f.Close()
	filler := New(identityConfig(), nil)

	filler.FillIdentity(f, models.Student{Nom: "Durand", Prenom: "Paul"})
	if got := getCell(t, f, "B2"); got != "DURAND Paul" {
		t.Errorf("Expected 'DURAND Paul' in B2, got %q", got)
	}
}

func TestReplaceSessionToken(t *testing.T) {
	f := newFullWorkbook(t)
	defer f.Close()
	filler := New(identityConfig(), nil)

	if err := f.SetCellValue(recapSheet, "A1", "Session ANNEE_SESSION - CCF"); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}
	// A sheet outside remplacement_session keeps its token.
	if err := f.SetCellValue(stageSheet, "A1", "Session ANNEE_SESSION"); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}

	filler.ReplaceSessionToken(f, "2026")

	if got, _ := f.GetCellValue(recapSheet, "A1"); got != "Session 2026 - CCF" {
		t.Errorf("Expected token replaced, got %q", got)
	}
	if got := getCell(t, f, "A1"); got != "Session ANNEE_SESSION" {
		t.Errorf("Expected stage token untouched, got %q", got)
	}
}

func TestFillRecap(t *testing.T) {
	f := newFullWorkbook(t)
	defer f.Close()
	filler := New(identityConfig(), nil)

	student := models.Student{
		Nom:    "Dupont",
		Prenom: "Marie",
		Evaluations: map[string]models.EvaluationRecord{
			"stage": {
				Criteres:           map[string]models.CriterionScore{},
				CommentaireGeneral: "Bon stage",
				NoteFinale:         floatPtr(12),
			},
			"soutenance": {
				Criteres:   map[string]models.CriterionScore{},
				NoteFinale: floatPtr(15),
			},
		},
		Jury: []string{"M. Martin (tuteur)", "Mme Petit (prof)"},
	}
	filler.FillRecap(f, student)

	if got, _ := f.GetCellValue(recapSheet, "E10"); got != "12" {
		t.Errorf("Expected stage note 12 in E10, got %q", got)
	}
	if got, _ := f.GetCellValue(recapSheet, "E11"); got != "15" {
		t.Errorf("Expected soutenance note 15 in E11, got %q", got)
	}
	// Proposed score: mean of 12 and 15.
	if got, _ := f.GetCellValue(recapSheet, "E13"); got != "13.5" {
		t.Errorf("Expected proposed note 13.5 in E13, got %q", got)
	}
	if got, _ := f.GetCellValue(recapSheet, "B20"); got != "Bon stage" {
		t.Errorf("Expected stage comment in B20, got %q", got)
	}
	if got, _ := f.GetCellValue(recapSheet, "B40"); got != "M. Martin (tuteur)" {
		t.Errorf("Expected first jury member in B40, got %q", got)
	}
	if got, _ := f.GetCellValue(recapSheet, "B41"); got != "Mme Petit (prof)" {
		t.Errorf("Expected second jury member in B41, got %q", got)
	}
	if got, _ := f.GetCellValue(recapSheet, "B42"); got != "" {
		t.Errorf("Expected B42 empty, got %q", got)
	}
}

func TestFillRecapWithoutNotes(t *testing.T) {
	f := newFullWorkbook(t)
	defer f.Close()
	filler := New(identityConfig(), nil)

	filler.FillRecap(f, models.Student{Nom: "Durand", Prenom: "Paul"})
	if got, _ := f.GetCellValue(recapSheet, "E13"); got != "" {
		t.Errorf("Expected no proposed note without phase notes, got %q", got)
	}
}
