// Package gate bounds concurrent workbook operations: a process-wide cap on
// in-flight operations plus at-most-one in-flight operation per output
// filename. Waiters block on real wait queues (a weighted semaphore and a
// per-filename token channel), each wait bounded by its own timeout so a
// caller can tell global saturation apart from per-file contention.
//
// State is held by the Gate instance, not in package globals, so tests can
// run several independent gates. Nothing is persisted; a process restart
// abandons all in-flight work.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/semaphore"
)

// Defaults matching the expected panel load: a handful of concurrent users.
const (
	// DefaultMaxOps is the default process-wide cap on concurrent operations.
	DefaultMaxOps = 4
	// DefaultTimeout is the default bound on each wait condition.
	DefaultTimeout = 30 * time.Second
)

// ErrTimeout is the sentinel for lock-wait timeouts. Callers should surface
// it as a retryable condition; the gate itself never retries.
var ErrTimeout = errors.New("lock wait timed out")

// ErrReleased is returned when a lease is used after being released.
var ErrReleased = errors.New("lease already released")

// Reason identifies which wait condition expired.
type Reason string

const (
	// ReasonSaturated means the global operation cap was full.
	ReasonSaturated Reason = "saturated"
	// ReasonFileBusy means another operation held the filename's lock.
	ReasonFileBusy Reason = "file_busy"
)

// TimeoutError reports a lock-wait timeout and which condition expired, so
// the caller can map it to a distinct user-facing message.
type TimeoutError struct {
	Filename string
	Reason   Reason
}

func (e *TimeoutError) Error() string {
	if e.Reason == ReasonSaturated {
		return fmt.Sprintf("acquire %q: too many concurrent operations", e.Filename)
	}
	return fmt.Sprintf("acquire %q: file is busy", e.Filename)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Gate is the admission-control primitive guarding workbook operations.
type Gate struct {
	global  *semaphore.Weighted
	timeout time.Duration

	mu    sync.Mutex
	files map[string]*fileLock
}

// fileLock is the per-filename exclusion token. The channel has capacity 1;
// sending takes the lock, receiving returns it. refs counts the holder plus
// waiters so the entry can be dropped once nobody references it.
type fileLock struct {
	token chan struct{}
	refs  int
}

// New returns a Gate admitting at most maxOps concurrent operations, each
// wait condition bounded by timeout. Non-positive arguments fall back to the
// defaults.
func New(maxOps int64, timeout time.Duration) *Gate {
	if maxOps <= 0 {
		maxOps = DefaultMaxOps
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		global:  semaphore.NewWeighted(maxOps),
		timeout: timeout,
		files:   make(map[string]*fileLock),
	}
}

// Acquire blocks until both the filename's exclusive token and a global slot
// are held, then returns the lease. The file token is taken first: waiters
// parked behind a busy file consume no global admission slots, so only
// operations actually eligible to run count against the cap and work on idle
// files is never starved by contention elsewhere. There is no fairness
// guarantee among waiters. On timeout it returns a *TimeoutError wrapping
// ErrTimeout; the holder's in-flight operation is unaffected.
func (g *Gate) Acquire(ctx context.Context, filename string) (*Lease, error) {
	fl := g.retain(filename)

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	select {
	case fl.token <- struct{}{}:
	case <-timer.C:
		g.releaseRef(filename)
		return nil, &TimeoutError{Filename: filename, Reason: ReasonFileBusy}
	case <-ctx.Done():
		g.releaseRef(filename)
		return nil, ctx.Err()
	}

	globalCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.global.Acquire(globalCtx, 1); err != nil {
		<-fl.token
		g.releaseRef(filename)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TimeoutError{Filename: filename, Reason: ReasonSaturated}
	}

	return &Lease{
		gate:       g,
		fl:         fl,
		filename:   filename,
		acquiredAt: time.Now(),
	}, nil
}

// retain returns the filename's lock entry, creating it on first use, and
// records one reference.
func (g *Gate) retain(filename string) *fileLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	fl, ok := g.files[filename]
	if !ok {
		fl = &fileLock{token: make(chan struct{}, 1)}
		g.files[filename] = fl
	}
	fl.refs++
	return fl
}

// releaseRef drops one reference and removes the entry once unreferenced.
func (g *Gate) releaseRef(filename string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fl, ok := g.files[filename]
	if !ok {
		return
	}
	fl.refs--
	if fl.refs <= 0 {
		delete(g.files, filename)
	}
}

// Lease is a held admission slot plus the exclusive right to touch one
// output file. Workbooks are opened through the lease, so no caller can
// reach a workbook without holding its lock.
type Lease struct {
	gate       *Gate
	fl         *fileLock
	filename   string
	acquiredAt time.Time
	released   atomic.Bool
	once       sync.Once
}

// Filename returns the output filename this lease guards.
func (l *Lease) Filename() string { return l.filename }

// AcquiredAt returns the time the lease was granted.
func (l *Lease) AcquiredAt() time.Time { return l.acquiredAt }

// Open loads an xlsx workbook while the lease is held. The path may point at
// the guarded output file or at the pristine template.
func (l *Lease) Open(path string) (*excelize.File, error) {
	if l.released.Load() {
		return nil, ErrReleased
	}
	return excelize.OpenFile(path)
}

// Release returns the filename token and the global slot. It is idempotent;
// only the first call has any effect, so the global counter can never go
// negative.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.released.Store(true)
		<-l.fl.token
		l.gate.releaseRef(l.filename)
		l.gate.global.Release(1)
	})
}
