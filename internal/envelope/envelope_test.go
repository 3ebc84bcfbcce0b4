// ABOUTME: Tests for envelope normalization including the failure-sniffing rule.
// ABOUTME: Covers pre-formed content passthrough, structured payloads, and error envelopes.

package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePassthrough(t *testing.T) {
	t.Run("success with clean content stays success", func(t *testing.T) {
		env := Normalize(&Result{
			Success: true,
			Content: []Block{Text("Created MainActivity.kt")},
		})
		assert.False(t, env.IsError)
		require.Len(t, env.Content, 1)
		assert.Equal(t, "Created MainActivity.kt", env.Content[0].Text)
	})

	t.Run("success flag overridden when text says failed", func(t *testing.T) {
		env := Normalize(&Result{
			Success: true,
			Content: []Block{Text("Build failed: task assembleDebug")},
		})
		assert.True(t, env.IsError)
	})

	t.Run("success flag overridden when text says error", func(t *testing.T) {
		env := Normalize(&Result{
			Success: true,
			Content: []Block{Text("Gradle reported an ERROR in settings.gradle")},
		})
		assert.True(t, env.IsError)
	})

	t.Run("unsuccessful result is an error even with clean text", func(t *testing.T) {
		env := Normalize(&Result{
			Success: false,
			Content: []Block{Text("could not reach daemon")},
		})
		assert.True(t, env.IsError)
	})

	t.Run("known limitation: zero errors found trips the heuristic", func(t *testing.T) {
		// Documented fragility of substring sniffing, kept as the contract.
		env := Normalize(&Result{
			Success: true,
			Content: []Block{Text("Lint finished: 0 errors found")},
		})
		assert.True(t, env.IsError)
	})
}

func TestNormalizeStructured(t *testing.T) {
	t.Run("structured payload is serialized without sniffing", func(t *testing.T) {
		env := Normalize(&Result{
			Success: true,
			Data:    map[string]any{"errors": 0, "files": 12},
		})
		assert.False(t, env.IsError)
		require.Len(t, env.Content, 1)
		assert.Contains(t, env.Content[0].Text, `"files": 12`)
	})

	t.Run("string payload is passed as-is", func(t *testing.T) {
		env := Normalize(&Result{Success: true, Data: "done"})
		require.Len(t, env.Content, 1)
		assert.Equal(t, "done", env.Content[0].Text)
	})

	t.Run("failed structured payload is an error", func(t *testing.T) {
		env := Normalize(&Result{Success: false, Data: map[string]any{"reason": "no gradlew"}})
		assert.True(t, env.IsError)
	})
}

func TestNormalizeNil(t *testing.T) {
	env := Normalize(nil)
	assert.True(t, env.IsError)
	require.NotEmpty(t, env.Content)
}

func TestFromFailure(t *testing.T) {
	t.Run("raw message always surfaced", func(t *testing.T) {
		env := FromFailure("boom", "")
		assert.True(t, env.IsError)
		require.Len(t, env.Content, 1)
		assert.Equal(t, "boom", env.Content[0].Text)
	})

	t.Run("diagnostics appended, not substituted", func(t *testing.T) {
		env := FromFailure("boom", "Possible causes:\n- daemon down")
		require.Len(t, env.Content, 2)
		assert.Equal(t, "boom", env.Content[0].Text)
		assert.Contains(t, env.Content[1].Text, "daemon down")
	})
}
