// ABOUTME: Capability descriptors, timeout classes, and the per-invocation context.
// ABOUTME: A capability is a named, schema-described handler invocable through the gateway.

package capability

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/2389/kforge/internal/envelope"
)

// Class groups capabilities by how long they are allowed to run.
// Interactive analysis calls get short deadlines; build and test
// invocations run external toolchains and need minutes.
type Class int

const (
	ClassInteractive Class = iota
	ClassBuild
)

// DefaultTimeout returns the class's default per-invocation deadline.
func (c Class) DefaultTimeout() time.Duration {
	if c == ClassBuild {
		return 5 * time.Minute
	}
	return 10 * time.Second
}

// Invocation carries the ambient context a handler receives alongside its
// validated arguments. It is constructed per invocation, never mutated
// after construction, and owned by that single invocation.
type Invocation struct {
	ProjectRoot    string
	CurrentFile    string
	SelectionStart int
	SelectionEnd   int
	UserIntent     string

	// Progress reports best-effort progress telemetry (0-100). Never nil
	// for handler invocations; failures inside it are absorbed upstream.
	Progress func(pct int, message string)
}

// Handler executes a capability with validated arguments. It returns a
// success payload or an error; it must respect ctx cancellation.
type Handler func(ctx context.Context, inv *Invocation, args map[string]any) (*envelope.Result, error)

// Descriptor describes one registered capability. Immutable after
// registration.
type Descriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Class       Class
	Timeout     time.Duration // 0 means the class default
	Handler     Handler
}

// EffectiveTimeout resolves the per-invocation deadline.
func (d *Descriptor) EffectiveTimeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return d.Class.DefaultTimeout()
}
