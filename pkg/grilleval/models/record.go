// Package models defines data structures shared across grilleval packages.
package models

import "encoding/json"

// Reserved top-level keys in the flat JSON form of an EvaluationRecord.
// Every other top-level key is a criterion id.
const (
	keyCommentaireGeneral = "commentaireGeneral"
	keyBonus              = "bonus"
	keyNoteFinale         = "note_finale"
)

// CriterionScore holds the recorded achievement level for one criterion.
type CriterionScore struct {
	// Niveau is the achievement level (0-4), nil when not yet evaluated.
	Niveau *int `json:"niveau"`
}

// EvaluationRecord holds one student's evaluation for a single phase.
// A save replaces the whole record for its phase; records are never merged
// at the criterion level.
type EvaluationRecord struct {
	// Criteres maps criterion id to its recorded score.
	Criteres map[string]CriterionScore
	// CommentaireGeneral is the free-text comment for the phase.
	CommentaireGeneral string
	// Bonus is the bonus awarded for the phase, nil when not set.
	Bonus *float64
	// NoteFinale is the final score proposed by the jury, nil when not set.
	NoteFinale *float64
}

// BonusValue returns the bonus, coercing a missing value to 0.
func (r EvaluationRecord) BonusValue() float64 {
	if r.Bonus == nil {
		return 0
	}
	return *r.Bonus
}

// MarshalJSON writes the flat wire form: criterion ids and the auxiliary
// fields side by side at the top level.
func (r EvaluationRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Criteres)+3)
	for id, score := range r.Criteres {
		flat[id] = score
	}
	if r.CommentaireGeneral != "" {
		flat[keyCommentaireGeneral] = r.CommentaireGeneral
	}
	if r.Bonus != nil {
		flat[keyBonus] = *r.Bonus
	}
	if r.NoteFinale != nil {
		flat[keyNoteFinale] = *r.NoteFinale
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat wire form. A non-numeric bonus is tolerated
// and treated as absent.
func (r *EvaluationRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	r.Criteres = make(map[string]CriterionScore, len(flat))
	r.CommentaireGeneral = ""
	r.Bonus = nil
	r.NoteFinale = nil

	for key, raw := range flat {
		switch key {
		case keyCommentaireGeneral:
			if err := json.Unmarshal(raw, &r.CommentaireGeneral); err != nil {
				return err
			}
		case keyBonus:
			var bonus float64
			if err := json.Unmarshal(raw, &bonus); err == nil {
				r.Bonus = &bonus
			}
		case keyNoteFinale:
			if err := json.Unmarshal(raw, &r.NoteFinale); err != nil {
				return err
			}
		default:
			var score CriterionScore
			if err := json.Unmarshal(raw, &score); err != nil {
				return err
			}
			r.Criteres[key] = score
		}
	}
	return nil
}
