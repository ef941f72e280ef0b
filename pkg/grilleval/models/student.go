package models

import "strings"

// WorkbookSuffix is the fixed suffix of every generated workbook filename.
// The download and delete paths of the web layer rely on this exact rule.
const WorkbookSuffix = "_grille.xlsx"

// Student identifies one candidate and carries their recorded evaluations.
type Student struct {
	// ID is the student's key in the store.
	ID string `json:"id"`
	// Nom is the student's surname.
	Nom string `json:"nom"`
	// Prenom is the student's given name.
	Prenom string `json:"prenom"`
	// Etablissement is the school or training establishment.
	Etablissement string `json:"etablissement,omitempty"`
	// Session is the exam session year.
	Session string `json:"session,omitempty"`
	// DateEvaluation is the evaluation date shown on the grille.
	DateEvaluation string `json:"date_evaluation,omitempty"`
	// Evaluations maps phase key to the recorded evaluation for that phase.
	Evaluations map[string]EvaluationRecord `json:"evaluations,omitempty"`
	// Jury holds up to 3 panel-member descriptions for the recap sheet.
	Jury []string `json:"jury,omitempty"`
}

// FullName returns the display name written into identity cells.
func (s Student) FullName() string {
	return strings.TrimSpace(strings.ToUpper(s.Nom) + " " + s.Prenom)
}

// OutputFilename returns the deterministic workbook filename for the student:
// upper-cased surname, given name and the fixed suffix, with characters
// unsafe in filenames replaced by underscores.
func (s Student) OutputFilename() string {
	return sanitizeFilename(strings.ToUpper(s.Nom)+"_"+s.Prenom) + WorkbookSuffix
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
