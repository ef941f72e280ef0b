package grilleval

import "errors"

// Sentinel errors returned by the Manager. Together with mapping.ErrConfig,
// mapping.ErrUnknownPhase, filler.ErrSheetNotFound and gate.ErrTimeout they
// form the error surface the calling layer maps to user-facing messages.

// ErrRecordNotFound indicates the student, or the requested phase's
// evaluation record, is not in the store.
var ErrRecordNotFound = errors.New("evaluation record not found")

// ErrWorkbookNotFound indicates a single-phase fill was requested before the
// student's workbook was generated. The full document must exist first.
var ErrWorkbookNotFound = errors.New("output workbook not generated yet")
