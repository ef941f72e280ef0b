package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "students.json"))
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestPutGet(t *testing.T) {
	s := newStore(t)

	student := models.Student{ID: "s1", Nom: "Dupont", Prenom: "Marie", Session: "2026"}
	require.NoError(t, s.Put(student))

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "Dupont", got.Nom)
	assert.Equal(t, "2026", got.Session)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := newStore(t)
	students, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestSaveEvaluationReplacesWholesale(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(models.Student{ID: "s1", Nom: "Dupont", Prenom: "Marie"}))

	first := models.EvaluationRecord{
		Criteres: map[string]models.CriterionScore{
			"C1.1": {Niveau: intPtr(2)},
			"C1.2": {Niveau: intPtr(3)},
		},
		CommentaireGeneral: "premier passage",
	}
	require.NoError(t, s.SaveEvaluation("s1", "stage", first))

	// A later save fully replaces the phase record: C1.2 must be gone.
	second := models.EvaluationRecord{
		Criteres: map[string]models.CriterionScore{
			"C1.1": {Niveau: intPtr(4)},
		},
		NoteFinale: floatPtr(15),
	}
	require.NoError(t, s.SaveEvaluation("s1", "stage", second))

	got, err := s.Get("s1")
	require.NoError(t, err)
	record := got.Evaluations["stage"]
	assert.Len(t, record.Criteres, 1)
	assert.Equal(t, 4, *record.Criteres["C1.1"].Niveau)
	assert.Empty(t, record.CommentaireGeneral)
	require.NotNil(t, record.NoteFinale)
	assert.Equal(t, 15.0, *record.NoteFinale)

	assert.ErrorIs(t, s.SaveEvaluation("missing", "stage", first), ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(models.Student{ID: "s1", Nom: "Dupont", Prenom: "Marie"}))
	require.NoError(t, s.Delete("s1"))
	_, err := s.Get("s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("s1"), ErrNotFound)
}

func TestNoteFinale(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(models.Student{ID: "s1", Nom: "Dupont", Prenom: "Marie"}))

	note, err := s.NoteFinale("s1", "stage")
	require.NoError(t, err)
	assert.Nil(t, note)

	record := models.EvaluationRecord{
		Criteres:   map[string]models.CriterionScore{"C1.1": {Niveau: intPtr(2)}},
		NoteFinale: floatPtr(14.5),
	}
	require.NoError(t, s.SaveEvaluation("s1", "stage", record))

	note, err = s.NoteFinale("s1", "stage")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, 14.5, *note)

	// Unknown student or phase reads as absent, not as an error.
	note, err = s.NoteFinale("missing", "stage")
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestNoteFinaleEscapesKeys(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(models.Student{ID: "dupont.marie", Nom: "Dupont", Prenom: "Marie"}))
	record := models.EvaluationRecord{NoteFinale: floatPtr(11)}
	require.NoError(t, s.SaveEvaluation("dupont.marie", "stage", record))

	note, err := s.NoteFinale("dupont.marie", "stage")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, 11.0, *note)
}

func TestRecordWireFormat(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(models.Student{ID: "s1", Nom: "Dupont", Prenom: "Marie"}))
	record := models.EvaluationRecord{
		Criteres:           map[string]models.CriterionScore{"C1.1": {Niveau: intPtr(2)}},
		CommentaireGeneral: "ok",
		Bonus:              floatPtr(0.5),
		NoteFinale:         floatPtr(12),
	}
	require.NoError(t, s.SaveEvaluation("s1", "stage", record))

	// The flat wire form puts criterion ids and auxiliary fields side by side.
	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"C1.1"`)
	assert.Contains(t, string(data), `"commentaireGeneral"`)
	assert.Contains(t, string(data), `"note_finale"`)

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, record.Criteres, got.Evaluations["stage"].Criteres)
	assert.Equal(t, 0.5, got.Evaluations["stage"].BonusValue())
}

func TestBonusCoercion(t *testing.T) {
	record := models.EvaluationRecord{}
	assert.Equal(t, 0.0, record.BonusValue())
	record.Bonus = floatPtr(1.5)
	assert.Equal(t, 1.5, record.BonusValue())
}
