// ABOUTME: Capability executor composing validation, audit, tracking, timeout, and diagnostics.
// ABOUTME: Handler failures become structured error envelopes; they never propagate as errors.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/kforge/internal/audit"
	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/diagnose"
	"github.com/2389/kforge/internal/envelope"
	"github.com/2389/kforge/internal/operation"
)

// Config holds the executor's collaborators.
type Config struct {
	Registry   *capability.Registry
	Tracker    *operation.Tracker
	Hook       *audit.Hook
	Classifier diagnose.Classifier
	Logger     *slog.Logger
}

// Executor runs validated capability invocations to a terminal outcome.
type Executor struct {
	registry   *capability.Registry
	tracker    *operation.Tracker
	hook       *audit.Hook
	classifier diagnose.Classifier
	logger     *slog.Logger
}

// NewExecutor creates an executor from its collaborators.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if cfg.Hook == nil {
		return nil, errors.New("audit hook is required")
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = diagnose.DefaultClassifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:   cfg.Registry,
		tracker:    cfg.Tracker,
		hook:       cfg.Hook,
		classifier: classifier,
		logger:     logger.With("component", "dispatch"),
	}, nil
}

// Execute validates and runs one capability invocation.
//
// The returned error is non-nil only for pre-dispatch rejections (unknown
// capability, schema mismatch) that the gateway maps to invalid-params;
// anything that happens once the handler starts is reported inside the
// envelope, enriched with a diagnostic bundle on failure.
func (e *Executor) Execute(ctx context.Context, name string, rawArgs map[string]any, inv capability.Invocation) (envelope.Envelope, error) {
	desc, err := e.registry.Get(name)
	if err != nil {
		return envelope.Envelope{}, err
	}

	args, err := capability.ValidateArgs(desc.InputSchema, rawArgs)
	if err != nil {
		return envelope.Envelope{}, err
	}

	e.hook.PreCall(ctx, name, deriveResource(args), serializeArgs(args))

	opID := e.tracker.Begin(name)
	inv.Progress = func(pct int, message string) {
		e.tracker.Progress(opID, pct, message)
	}

	timeout := desc.EffectiveTimeout()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, runErr := e.runHandler(callCtx, desc, &inv, args)
	duration := time.Since(start)

	// A handler that ignores its context can return success after the
	// deadline has already expired. The deadline still wins: the client was
	// promised the timeout bound, not the handler's opinion of it.
	if runErr == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		runErr = context.DeadlineExceeded
	}

	e.tracker.Finish(opID, runErr != nil)

	if runErr != nil {
		env := e.failureEnvelope(callCtx, desc, runErr, timeout)
		e.hook.PostCall(ctx, name, true, duration)
		e.logger.Warn("capability failed",
			"capability", name,
			"operation_id", opID,
			"duration", duration,
			"error", runErr,
		)
		return env, nil
	}

	env := envelope.Normalize(result)
	e.hook.PostCall(ctx, name, env.IsError, duration)
	e.logger.Debug("capability completed",
		"capability", name,
		"operation_id", opID,
		"duration", duration,
		"is_error", env.IsError,
	)
	return env, nil
}

// runHandler invokes the handler with panic containment. A panicking
// handler must not take down the long-lived server process.
func (e *Executor) runHandler(ctx context.Context, desc *capability.Descriptor, inv *capability.Invocation, args map[string]any) (result *envelope.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("capability panicked: %v", r)
		}
	}()
	return desc.Handler(ctx, inv, args)
}

// failureEnvelope classifies a handler failure and builds the error
// envelope carrying both the raw message and the diagnostic bundle.
func (e *Executor) failureEnvelope(callCtx context.Context, desc *capability.Descriptor, runErr error, timeout time.Duration) envelope.Envelope {
	var bundle diagnose.Bundle
	message := runErr.Error()

	// A handler may wrap the deadline error (or report the killed
	// subprocess instead), so the expired call context also counts.
	timedOut := errors.Is(runErr, context.DeadlineExceeded) ||
		errors.Is(callCtx.Err(), context.DeadlineExceeded)
	switch {
	case timedOut:
		bundle = diagnose.Timeout(desc.Name, timeout.String())
		message = fmt.Sprintf("capability %q timed out after %s", desc.Name, timeout)
	case errors.Is(runErr, context.Canceled):
		bundle = diagnose.Bundle{
			Classification:     diagnose.ClassGeneric,
			ErrorAnalysis:      fmt.Sprintf("capability %q was cancelled", desc.Name),
			RecommendedActions: []string{"Re-issue the call if the cancellation was unintended"},
		}
		message = fmt.Sprintf("capability %q was cancelled", desc.Name)
	default:
		bundle = e.classifier.Classify(desc.Name, runErr.Error())
	}

	return envelope.FromFailure(message, bundle.Text())
}

// resourceFields are argument names probed, in order, to derive the
// resource string for audit entries.
var resourceFields = []string{"file_path", "path", "uri", "layout_name", "component_name", "task"}

func deriveResource(args map[string]any) string {
	for _, field := range resourceFields {
		if v, ok := args[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func serializeArgs(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("unserializable arguments: %v", err)
	}
	return string(data)
}
