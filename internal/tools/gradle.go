// ABOUTME: Gradle task execution pack.
// ABOUTME: Runs builds, tests, lint, and formatting through the project's gradlew.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/envelope"
)

// GradlePack creates the Gradle build capabilities. All of them carry the
// long build timeout class and report failures as results, not errors, so
// the client sees the tool output alongside isError.
func GradlePack() []*capability.Descriptor {
	g := &gradleHandlers{}
	return []*capability.Descriptor{
		{
			Name:        "gradle_build",
			Description: "Run a Gradle build task and return its output",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"task": {
						Type:        "string",
						Description: "Gradle task to run",
						Default:     json.RawMessage(`"build"`),
					},
				},
			},
			Class:   capability.ClassBuild,
			Handler: g.build,
		},
		{
			Name:        "run_tests",
			Description: "Run the project's unit tests through Gradle",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"test_filter": {Type: "string", Description: "Optional --tests filter pattern"},
				},
			},
			Class:   capability.ClassBuild,
			Handler: g.runTests,
		},
		{
			Name:        "run_lint",
			Description: "Run Android lint through Gradle",
			InputSchema: &jsonschema.Schema{Type: "object"},
			Class:       capability.ClassBuild,
			Handler:     g.runLint,
		},
		{
			Name:        "format_code",
			Description: "Format Kotlin sources with ktlint through Gradle",
			InputSchema: &jsonschema.Schema{Type: "object"},
			Class:       capability.ClassBuild,
			Handler:     g.formatCode,
		},
	}
}

type gradleHandlers struct{}

func (g *gradleHandlers) build(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	task := stringArg(args, "task")
	if task == "" {
		task = "build"
	}
	return g.run(ctx, inv, task)
}

func (g *gradleHandlers) runTests(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	gradleArgs := []string{"test"}
	if filter := stringArg(args, "test_filter"); filter != "" {
		gradleArgs = append(gradleArgs, "--tests", filter)
	}
	return g.run(ctx, inv, gradleArgs...)
}

func (g *gradleHandlers) runLint(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	return g.run(ctx, inv, "lint")
}

func (g *gradleHandlers) formatCode(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	return g.run(ctx, inv, "ktlintFormat")
}

// run executes gradle in the project root and folds the combined output into
// the result. A non-zero exit becomes a failed result carrying the output;
// only inability to start the process at all is a handler error.
func (g *gradleHandlers) run(ctx context.Context, inv *capability.Invocation, gradleArgs ...string) (*envelope.Result, error) {
	if inv.ProjectRoot == "" {
		return nil, fmt.Errorf("no project root configured")
	}

	bin := "gradle"
	wrapper := filepath.Join(inv.ProjectRoot, "gradlew")
	if _, err := os.Stat(wrapper); err == nil {
		bin = wrapper
	}

	if inv.Progress != nil {
		inv.Progress(10, "starting gradle "+gradleArgs[0])
	}

	cmd := exec.CommandContext(ctx, bin, gradleArgs...)
	cmd.Dir = inv.ProjectRoot
	output, runErr := cmd.CombinedOutput()

	if inv.Progress != nil {
		inv.Progress(90, "gradle finished")
	}

	if runErr != nil {
		if ctx.Err() != nil {
			// Killed by timeout or cancellation; report that, not the
			// subprocess's exit status.
			return nil, ctx.Err()
		}
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return nil, fmt.Errorf("starting gradle: %w", runErr)
		}
		return &envelope.Result{
			Success: false,
			Content: []envelope.Block{
				envelope.Text(fmt.Sprintf("gradle %s failed: %s", gradleArgs[0], runErr)),
				envelope.Text(string(output)),
			},
		}, nil
	}

	return &envelope.Result{
		Success: true,
		Content: []envelope.Block{
			envelope.Text(fmt.Sprintf("gradle %s completed", gradleArgs[0])),
			envelope.Text(string(output)),
		},
	}, nil
}
