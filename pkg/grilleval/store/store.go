// Package store persists student records as a single keyed JSON file.
// Writes replace a phase's evaluation record wholesale; records are never
// merged at the criterion level.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
)

// ErrNotFound indicates the requested student is not in the store.
var ErrNotFound = errors.New("student not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store is a keyed JSON file store for student records. All methods are safe
// for concurrent use within one process.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store backed by the JSON file at path. The file is created
// on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads every student keyed by id. A missing file is an empty store.
func (s *Store) Load() (map[string]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns one student, or ErrNotFound.
func (s *Store) Get(id string) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.load()
	if err != nil {
		return models.Student{}, err
	}
	student, ok := students[id]
	if !ok {
		return models.Student{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return student, nil
}

// Put inserts or replaces a student record.
func (s *Store) Put(student models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.load()
	if err != nil {
		return err
	}
	students[student.ID] = student
	return s.save(students)
}

// SaveEvaluation replaces the student's record for one phase wholesale.
func (s *Store) SaveEvaluation(id, phase string, record models.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.load()
	if err != nil {
		return err
	}
	student, ok := students[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if student.Evaluations == nil {
		student.Evaluations = make(map[string]models.EvaluationRecord)
	}
	student.Evaluations[phase] = record
	students[id] = student
	return s.save(students)
}

// Delete removes a student record, or returns ErrNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := students[id]; !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	delete(students, id)
	return s.save(students)
}

// NoteFinale returns the stored final score of a student's phase without
// decoding the whole file, nil when absent or null.
func (s *Store) NoteFinale(id, phase string) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	path := escapePath(id) + ".evaluations." + escapePath(phase) + ".note_finale"
	result := gjson.GetBytes(data, path)
	if !result.Exists() || result.Type == gjson.Null {
		return nil, nil
	}
	value := result.Float()
	return &value, nil
}

func (s *Store) load() (map[string]models.Student, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]models.Student), nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	students := make(map[string]models.Student)
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return students, nil
}

// save writes through a temp file and renames, so a crash mid-write cannot
// truncate the store.
func (s *Store) save(students map[string]models.Student) error {
	data, err := json.MarshalIndent(students, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".students-*.json")
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// escapePath escapes gjson path metacharacters in a key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
