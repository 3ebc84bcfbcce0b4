// ABOUTME: Audit trail entities and the append-only store contract.
// ABOUTME: Records who invoked what, plus heuristic compliance tagging of each entry.

package audit

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when the store has been closed.
var ErrClosed = errors.New("audit store closed")

// Flag marks an entry as relevant to a compliance regime. Tagging is a
// keyword heuristic over the action and resource strings; it is a
// best-effort classifier for review triage, not a compliance certification.
type Flag string

const (
	FlagPersonalData Flag = "personal-data"
	FlagHealthData   Flag = "health-data"
)

// Entry is a single append-only audit record. Once written it is never
// mutated or deleted by this subsystem.
type Entry struct {
	ID        string
	Timestamp time.Time
	Actor     string
	Action    string
	Resource  string
	Details   string
	Flags     []Flag
}

// Access is a data-access record kept alongside the audit log for
// compliance monitoring of file reads and writes.
type Access struct {
	ID         string
	Timestamp  time.Time
	DataType   string
	AccessType string
	Actor      string
	Flags      []Flag
}

// Filter narrows a List call. Zero values mean "no restriction".
type Filter struct {
	Since  *time.Time
	Until  *time.Time
	Action string
	Limit  int // default 100, capped at 1000
}

// Store is the append-only audit persistence contract.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
	RecordAccess(ctx context.Context, a *Access) error
	Close() error
}

// Tagger derives compliance flags from an entry's action and resource.
// Implementations must be pure functions over the two strings.
type Tagger interface {
	Tag(action, resource string) []Flag
}
