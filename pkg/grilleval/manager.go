// Package grilleval orchestrates student evaluation grilles: JSON evaluation
// records are materialized into a predefined xlsx template via a
// cell-address mapping, one lock-held load/fill/save transaction per output
// file.
package grilleval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/grilleval/grilleval-go/pkg/grilleval/calc"
	"github.com/grilleval/grilleval-go/pkg/grilleval/filler"
	"github.com/grilleval/grilleval-go/pkg/grilleval/gate"
	"github.com/grilleval/grilleval-go/pkg/grilleval/mapping"
	"github.com/grilleval/grilleval-go/pkg/grilleval/models"
	"github.com/grilleval/grilleval-go/pkg/grilleval/store"
)

// Manager runs the lifecycle of grille workbooks: acquire lock, load, fill,
// persist, release. One Manager owns one gate, so every workbook mutation in
// the process goes through the same admission control.
type Manager struct {
	cfg          *mapping.Config
	store        *store.Store
	gate         *gate.Gate
	filler       *filler.Filler
	logger       *zap.Logger
	templatePath string
	outputDir    string
}

// NewManager returns a Manager writing workbooks derived from the template
// at templatePath into outputDir.
func NewManager(cfg *mapping.Config, st *store.Store, templatePath, outputDir string, opts ...Option) *Manager {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		gate:         gate.New(options.maxOps, options.lockTimeout),
		filler:       filler.New(cfg, options.logger),
		logger:       options.logger,
		templatePath: templatePath,
		outputDir:    outputDir,
	}
}

// Store exposes the underlying student store.
func (m *Manager) Store() *store.Store { return m.store }

// SaveEvaluation replaces the student's evaluation record for one phase
// wholesale. The phase must exist in the mapping configuration.
func (m *Manager) SaveEvaluation(id, phase string, record models.EvaluationRecord) error {
	if _, err := m.cfg.Phase(phase); err != nil {
		return err
	}
	if err := m.store.SaveEvaluation(id, phase, record); err != nil {
		return m.wrapStoreErr(id, err)
	}
	return nil
}

// FillPhase applies one phase's stored record to the student's existing
// workbook. The workbook must have been generated by Regenerate first;
// ErrWorkbookNotFound is returned otherwise.
func (m *Manager) FillPhase(ctx context.Context, id, phase string) error {
	student, err := m.store.Get(id)
	if err != nil {
		return m.wrapStoreErr(id, err)
	}
	record, ok := student.Evaluations[phase]
	if !ok {
		return fmt.Errorf("%s/%s: %w", id, phase, ErrRecordNotFound)
	}

	filename := student.OutputFilename()
	lease, err := m.gate.Acquire(ctx, filename)
	if err != nil {
		return err
	}
	defer lease.Release()

	path := filepath.Join(m.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", filename, ErrWorkbookNotFound)
	}
	wb, err := lease.Open(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer m.closeWorkbook(wb)

	if err := m.filler.FillPhase(wb, phase, record); err != nil {
		return err
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	m.logger.Info("phase filled",
		zap.String("student", id),
		zap.String("phase", phase),
		zap.String("file", filename))
	return nil
}

// Regenerate rebuilds the student's workbook from the pristine template in a
// single lock-held load/save cycle: identity fields on every sheet, the
// session placeholder, every phase with recorded data, and the recap sheet.
// One cycle because reloading the multi-megabyte template per phase is what
// this flow exists to avoid.
func (m *Manager) Regenerate(ctx context.Context, id string) error {
	student, err := m.store.Get(id)
	if err != nil {
		return m.wrapStoreErr(id, err)
	}

	filename := student.OutputFilename()
	lease, err := m.gate.Acquire(ctx, filename)
	if err != nil {
		return err
	}
	defer lease.Release()

	wb, err := lease.Open(m.templatePath)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer m.closeWorkbook(wb)

	m.filler.FillIdentity(wb, student)
	if student.Session != "" {
		m.filler.ReplaceSessionToken(wb, student.Session)
	}
	for _, phase := range sortedPhases(student.Evaluations) {
		if err := m.filler.FillPhase(wb, phase, student.Evaluations[phase]); err != nil {
			return err
		}
	}
	m.filler.FillRecap(wb, student)

	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(m.outputDir, filename)
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	m.logger.Info("workbook regenerated",
		zap.String("student", id),
		zap.String("file", filename),
		zap.Int("phases", len(student.Evaluations)))
	return nil
}

// NoteCalculee returns the stored final score for a phase, or, when none is
// stored, the replicated-formula result over the persisted workbook. The
// workbook read counts against the global operation cap and the per-file
// lock like any mutation. A nil result means no score is available.
func (m *Manager) NoteCalculee(ctx context.Context, id, phase string) (*float64, error) {
	note, err := m.store.NoteFinale(id, phase)
	if err != nil {
		return nil, err
	}
	if note != nil {
		return note, nil
	}

	student, err := m.store.Get(id)
	if err != nil {
		return nil, m.wrapStoreErr(id, err)
	}
	sheet, err := m.cfg.SheetFor(phase)
	if err != nil {
		return nil, err
	}

	filename := student.OutputFilename()
	lease, err := m.gate.Acquire(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	path := filepath.Join(m.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	wb, err := lease.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer m.closeWorkbook(wb)

	score, err := calc.Score(wb, sheet, phase)
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// DeleteStudent removes the student's record and their generated workbook.
func (m *Manager) DeleteStudent(ctx context.Context, id string) error {
	student, err := m.store.Get(id)
	if err != nil {
		return m.wrapStoreErr(id, err)
	}

	lease, err := m.gate.Acquire(ctx, student.OutputFilename())
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := m.store.Delete(id); err != nil {
		return m.wrapStoreErr(id, err)
	}
	path := filepath.Join(m.outputDir, student.OutputFilename())
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove workbook: %w", err)
	}
	return nil
}

// closeWorkbook drops the workbook's in-memory structures. Workbooks are
// large relative to process memory, so this runs on every path, success or
// failure.
func (m *Manager) closeWorkbook(wb *excelize.File) {
	if err := wb.Close(); err != nil {
		m.logger.Warn("workbook close failed", zap.Error(err))
	}
}

func (m *Manager) wrapStoreErr(id string, err error) error {
	if store.IsNotFound(err) {
		return fmt.Errorf("%s: %w", id, ErrRecordNotFound)
	}
	return err
}

func sortedPhases(evaluations map[string]models.EvaluationRecord) []string {
	phases := make([]string, 0, len(evaluations))
	for phase := range evaluations {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	return phases
}
