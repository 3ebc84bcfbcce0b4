// ABOUTME: Tracks in-flight capability invocations from start to terminal outcome.
// ABOUTME: Guarantees exactly-one terminal transition per operation and removal afterward.

package operation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the externally visible state of one in-flight operation.
type Record struct {
	ID         string
	Capability string
	StartedAt  time.Time
	Progress   int
	Message    string
}

// operation is the tracker's internal mutable state for one invocation.
type operation struct {
	record   Record
	terminal bool
}

// Tracker owns the table of in-flight operations. All mutation goes through
// the tracker; entries are keyed by a UUID so ids are never reused.
type Tracker struct {
	mu     sync.Mutex
	ops    map[string]*operation
	logger *slog.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		ops:    make(map[string]*operation),
		logger: logger.With("component", "operation"),
	}
}

// Begin records a new running operation and returns its id.
func (t *Tracker) Begin(capability string) string {
	id := uuid.New().String()

	t.mu.Lock()
	t.ops[id] = &operation{
		record: Record{
			ID:         id,
			Capability: capability,
			StartedAt:  time.Now().UTC(),
		},
	}
	t.mu.Unlock()

	t.logger.Debug("operation started", "id", id, "capability", capability)
	return id
}

// Progress updates the progress record for a running operation. It is
// best-effort telemetry: updates for unknown or already-terminal ids are
// dropped silently, and a failure here must never affect the invocation.
func (t *Tracker) Progress(id string, pct int, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	op, ok := t.ops[id]
	if ok && !op.terminal {
		op.record.Progress = pct
		op.record.Message = message
	}
	t.mu.Unlock()

	if ok {
		t.logger.Debug("operation progress", "id", id, "progress", pct, "message", message)
	}
}

// Finish records the terminal transition for an operation and removes its
// record. Returns false if the id is unknown or already terminal, which
// callers treat as "someone else won the race" rather than an error, so a
// duplicate or late completion can never double-terminate.
func (t *Tracker) Finish(id string, failed bool) bool {
	t.mu.Lock()
	op, ok := t.ops[id]
	if !ok || op.terminal {
		t.mu.Unlock()
		return false
	}
	op.terminal = true
	delete(t.ops, id)
	duration := time.Since(op.record.StartedAt)
	capability := op.record.Capability
	t.mu.Unlock()

	t.logger.Debug("operation finished",
		"id", id,
		"capability", capability,
		"failed", failed,
		"duration", duration,
	)
	return true
}

// Get returns a copy of the record for id, if it is still in flight.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if !ok {
		return Record{}, false
	}
	return op.record, true
}

// Len reports how many operations are currently in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Snapshot returns copies of all in-flight records.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := make([]Record, 0, len(t.ops))
	for _, op := range t.ops {
		records = append(records, op.record)
	}
	return records
}
