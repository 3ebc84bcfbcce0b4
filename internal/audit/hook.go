// ABOUTME: Pre-call and post-call audit hook wrapped around every capability invocation.
// ABOUTME: Swallows store failures so audit plumbing can never fail a user-visible operation.

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Hook writes the invocation trail around capability calls. Every write
// failure is logged and discarded: audit is an observability concern, not a
// correctness gate, and an unavailable store must never block an invocation.
type Hook struct {
	store  Store
	tagger Tagger
	logger *slog.Logger
}

// NewHook creates a hook over the given store. A nil tagger gets the
// default keyword tagger.
func NewHook(store Store, tagger Tagger, logger *slog.Logger) *Hook {
	if tagger == nil {
		tagger = NewKeywordTagger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{
		store:  store,
		tagger: tagger,
		logger: logger.With("component", "audit"),
	}
}

// PreCall records the start of an invocation.
func (h *Hook) PreCall(ctx context.Context, capability, resource, details string) {
	action := "invoke:" + capability
	h.append(ctx, &Entry{
		Actor:    "client",
		Action:   action,
		Resource: resource,
		Details:  details,
		Flags:    h.tagger.Tag(action, resource),
	})
}

// PostCall records the outcome and duration of an invocation.
func (h *Hook) PostCall(ctx context.Context, capability string, failed bool, duration time.Duration) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	action := "result:" + capability
	h.append(ctx, &Entry{
		Actor:   "client",
		Action:  action,
		Details: fmt.Sprintf("outcome=%s duration=%s", outcome, duration),
		Flags:   h.tagger.Tag(action, ""),
	})
}

// FileAccess records a resource read in both the audit log and the
// data-access log.
func (h *Hook) FileAccess(ctx context.Context, path string) {
	action := "file_read"
	h.append(ctx, &Entry{
		Actor:    "client",
		Action:   action,
		Resource: path,
		Flags:    h.tagger.Tag(action, path),
	})
	if h.store == nil {
		return
	}
	if err := h.store.RecordAccess(ctx, &Access{
		DataType:   "file",
		AccessType: "read",
		Actor:      "client",
		Flags:      h.tagger.Tag(action, path),
	}); err != nil {
		h.logger.Warn("could not record data access", "path", path, "error", err)
	}
}

// SecurityViolation records a rejected access attempt.
func (h *Hook) SecurityViolation(ctx context.Context, detail string) {
	h.append(ctx, &Entry{
		Actor:   "client",
		Action:  "security_violation",
		Details: detail,
	})
}

func (h *Hook) append(ctx context.Context, e *Entry) {
	if h.store == nil {
		return
	}
	if err := h.store.Append(ctx, e); err != nil {
		h.logger.Warn("could not append audit entry", "action", e.Action, "error", err)
	}
}
