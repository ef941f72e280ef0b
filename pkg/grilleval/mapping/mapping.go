// Package mapping loads the static cell-address configuration that binds
// evaluation data to the grille template. The configuration is read once at
// startup and never mutated afterwards.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrConfig indicates the mapping configuration is missing or malformed.
// Loading is a startup-time operation; this error is fatal, never retried.
var ErrConfig = errors.New("invalid mapping configuration")

// ErrUnknownPhase indicates a phase key with no entry in the configuration.
var ErrUnknownPhase = errors.New("phase not present in mapping configuration")

// levelCount is the number of achievement-level columns on a grille.
const levelCount = 4

// Criterion is one scored line item, tied to a spreadsheet row.
type Criterion struct {
	// ID is the criterion id used as key in evaluation records.
	ID string `json:"id"`
	// Ligne is the 1-based spreadsheet row of the criterion.
	Ligne int `json:"ligne"`
}

// Competence groups the ordered criteria of one competency.
type Competence struct {
	Criteres []Criterion `json:"criteres"`
}

// PhaseMapping holds the competency mappings of one evaluation phase.
type PhaseMapping struct {
	Competences map[string]Competence `json:"competences"`
}

// Level holds the column letter of one achievement level.
type Level struct {
	Colonne string `json:"colonne"`
}

// SupplementalFields holds optional auxiliary cell addresses for a phase.
// An empty address means the field is not present on that phase's sheet.
type SupplementalFields struct {
	Bonus        string `json:"bonus,omitempty"`
	NoteFinale   string `json:"note_finale,omitempty"`
	NoteCalculee string `json:"note_calculee,omitempty"`
}

// Commentaires holds comment cell addresses keyed by phase.
type Commentaires struct {
	CommentaireGlobal map[string]string `json:"commentaire_global"`
}

// JuryMembers holds the recap-sheet cells for panel-member descriptions.
type JuryMembers struct {
	Recap []string `json:"recap"`
}

// Recap describes the summary sheet filled during full regeneration.
type Recap struct {
	// Notes maps phase key to the cell receiving that phase's final score.
	Notes map[string]string `json:"notes,omitempty"`
	// NoteProposee is the cell receiving the proposed overall score.
	NoteProposee string `json:"note_proposee,omitempty"`
	// Commentaires maps phase key to the cell receiving that phase's comment.
	Commentaires map[string]string `json:"commentaires,omitempty"`
}

// Config is the full mapping configuration. All cell addresses are
// spreadsheet-style (column letters followed by a 1-based row number).
type Config struct {
	// SheetNames maps phase key (or "recap") to sheet title.
	SheetNames map[string]string `json:"sheet_names"`
	// Evaluations maps phase key to its competency mappings.
	Evaluations map[string]PhaseMapping `json:"evaluations"`
	// Niveaux maps "niveau_1".."niveau_4" to their column letters.
	Niveaux map[string]Level `json:"niveaux"`
	// Commentaires holds per-phase global comment cells.
	Commentaires Commentaires `json:"commentaires"`
	// ChampsSupplementaires holds per-phase auxiliary field cells.
	ChampsSupplementaires map[string]SupplementalFields `json:"champs_supplementaires"`
	// Identite maps identity field (nom, etablissement, session, date) to
	// sheet key to cell address.
	Identite map[string]map[string]string `json:"identite"`
	// JuryMembers holds the recap cells for panel-member descriptions.
	JuryMembers JuryMembers `json:"jury_members"`
	// Recap describes the summary sheet.
	Recap Recap `json:"recap"`
	// RemplacementSession lists the sheet keys on which the session-year
	// placeholder token is replaced during full regeneration.
	RemplacementSession []string `json:"remplacement_session,omitempty"`
}

// Load reads and validates the mapping configuration from a JSON file.
// Any failure wraps ErrConfig; callers are expected to treat it as fatal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.SheetNames) == 0 {
		return errors.New("sheet_names is empty")
	}
	for n := 1; n <= levelCount; n++ {
		key := fmt.Sprintf("niveau_%d", n)
		level, ok := c.Niveaux[key]
		if !ok || level.Colonne == "" {
			return fmt.Errorf("niveaux.%s.colonne is missing", key)
		}
	}
	for phase, pm := range c.Evaluations {
		if _, ok := c.SheetNames[phase]; !ok {
			return fmt.Errorf("evaluations.%s has no sheet_names entry", phase)
		}
		for code, comp := range pm.Competences {
			for _, crit := range comp.Criteres {
				if crit.ID == "" {
					return fmt.Errorf("evaluations.%s.competences.%s has a criterion without id", phase, code)
				}
			}
		}
	}
	return nil
}

// SheetFor resolves the sheet title of a phase key.
func (c *Config) SheetFor(phase string) (string, error) {
	sheet, ok := c.SheetNames[phase]
	if !ok {
		return "", fmt.Errorf("%q: %w", phase, ErrUnknownPhase)
	}
	return sheet, nil
}

// Phase returns the competency mappings of a phase key.
func (c *Config) Phase(phase string) (PhaseMapping, error) {
	pm, ok := c.Evaluations[phase]
	if !ok {
		return PhaseMapping{}, fmt.Errorf("%q: %w", phase, ErrUnknownPhase)
	}
	return pm, nil
}

// LevelColumns returns the four achievement-level column letters, index 0
// holding the niveau_1 column. Validation guarantees they exist.
func (c *Config) LevelColumns() [4]string {
	var cols [4]string
	for n := 1; n <= levelCount; n++ {
		cols[n-1] = c.Niveaux[fmt.Sprintf("niveau_%d", n)].Colonne
	}
	return cols
}

// CommentCell returns the global comment cell of a phase, if configured.
func (c *Config) CommentCell(phase string) (string, bool) {
	cell, ok := c.Commentaires.CommentaireGlobal[phase]
	return cell, ok && cell != ""
}
