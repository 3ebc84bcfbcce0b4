// ABOUTME: Tests for the built-in capability packs.
// ABOUTME: Exercises handlers directly with a temp project root.

package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/envelope"
)

func invocation(t *testing.T) *capability.Invocation {
	t.Helper()
	return &capability.Invocation{ProjectRoot: t.TempDir()}
}

func findHandler(t *testing.T, pack []*capability.Descriptor, name string) capability.Handler {
	t.Helper()
	for _, d := range pack {
		if d.Name == name {
			return d.Handler
		}
	}
	t.Fatalf("capability %s not found in pack", name)
	return nil
}

func TestAllPacksHaveCompleteDescriptors(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range All() {
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description, "capability %s has no description", d.Name)
		require.NotNil(t, d.InputSchema, "capability %s has no schema", d.Name)
		assert.Equal(t, "object", d.InputSchema.Type, "capability %s schema is not an object", d.Name)
		require.NotNil(t, d.Handler, "capability %s has no handler", d.Name)
		assert.False(t, seen[d.Name], "duplicate capability %s", d.Name)
		seen[d.Name] = true
	}
}

func TestCreateKotlinFile(t *testing.T) {
	handler := findHandler(t, KotlinPack(), "create_kotlin_file")
	inv := invocation(t)

	res, err := handler(context.Background(), inv, map[string]any{
		"file_path":    filepath.Join("app", "src", "User.kt"),
		"package_name": "com.example.model",
		"class_name":   "User",
		"class_type":   "data class",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	source, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "app", "src", "User.kt"))
	require.NoError(t, err)
	assert.Contains(t, string(source), "package com.example.model")
	assert.Contains(t, string(source), "data class User(")
}

func TestCreateKotlinFileRejectsTraversal(t *testing.T) {
	handler := findHandler(t, KotlinPack(), "create_kotlin_file")
	inv := invocation(t)

	_, err := handler(context.Background(), inv, map[string]any{
		"file_path":    filepath.Join("..", "escape.kt"),
		"package_name": "com.example",
		"class_name":   "Escape",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideRoot))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(inv.ProjectRoot), "escape.kt"))
}

func TestCreateLayoutFile(t *testing.T) {
	handler := findHandler(t, KotlinPack(), "create_layout_file")
	inv := invocation(t)

	res, err := handler(context.Background(), inv, map[string]any{
		"layout_name": "activity_main",
		"layout_type": "constraint",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	path := filepath.Join(inv.ProjectRoot, "app", "src", "main", "res", "layout", "activity_main.xml")
	source, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(source), "ConstraintLayout")
}

func TestCreateComposeComponent(t *testing.T) {
	handler := findHandler(t, KotlinPack(), "create_compose_component")
	inv := invocation(t)

	res, err := handler(context.Background(), inv, map[string]any{
		"file_path":      "Greeting.kt",
		"package_name":   "com.example.ui",
		"component_name": "Greeting",
		"with_preview":   true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	source, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "Greeting.kt"))
	require.NoError(t, err)
	assert.Contains(t, string(source), "@Composable")
	assert.Contains(t, string(source), "fun Greeting()")
	assert.Contains(t, string(source), "fun GreetingPreview()")
}

func TestGradleBuildSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script wrapper")
	}
	handler := findHandler(t, GradlePack(), "gradle_build")
	inv := invocation(t)
	writeFakeGradlew(t, inv.ProjectRoot, "#!/bin/sh\necho \"BUILD SUCCESSFUL in 2s\"\nexit 0\n")

	res, err := handler(context.Background(), inv, map[string]any{"task": "assembleDebug"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, allText(res), "BUILD SUCCESSFUL")
}

func TestGradleBuildFailureIsResultNotError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script wrapper")
	}
	handler := findHandler(t, GradlePack(), "gradle_build")
	inv := invocation(t)
	writeFakeGradlew(t, inv.ProjectRoot, "#!/bin/sh\necho \"Compilation error: unresolved reference\"\nexit 1\n")

	res, err := handler(context.Background(), inv, map[string]any{})
	require.NoError(t, err, "non-zero gradle exit is a failed result, not a handler error")
	assert.False(t, res.Success)
	assert.Contains(t, allText(res), "unresolved reference")
}

func TestRunTestsPassesFilter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script wrapper")
	}
	handler := findHandler(t, GradlePack(), "run_tests")
	inv := invocation(t)
	writeFakeGradlew(t, inv.ProjectRoot, "#!/bin/sh\necho \"args: $@\"\nexit 0\n")

	res, err := handler(context.Background(), inv, map[string]any{"test_filter": "com.example.UserTest"})
	require.NoError(t, err)
	assert.Contains(t, allText(res), "--tests com.example.UserTest")
}

func TestAnalyzeProject(t *testing.T) {
	handler := findHandler(t, AnalysisPack(), "analyze_project")
	inv := invocation(t)
	root := inv.ProjectRoot

	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "src", "Main.kt"), []byte("fun main() {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "build.gradle"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build.gradle.kts"), []byte(""), 0644))
	// Files under build/ are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "build", "Gen.kt"), []byte(""), 0644))

	res, err := handler(context.Background(), inv, map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.Success)

	data := res.Data.(map[string]any)
	assert.Equal(t, 1, data["kotlin_files"])
	assert.ElementsMatch(t, []string{"app"}, data["modules"])
	assert.Len(t, data["build_scripts"], 2)
}

func TestGenerateDocs(t *testing.T) {
	handler := findHandler(t, AnalysisPack(), "generate_docs")
	inv := invocation(t)
	require.NoError(t, os.WriteFile(filepath.Join(inv.ProjectRoot, "README.md"), []byte("# Title\n\nsome text"), 0644))

	res, err := handler(context.Background(), inv, map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.Success)

	html, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "build", "docs", "README.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Title</h1>")
}

func TestGenerateDocsEmptyProject(t *testing.T) {
	handler := findHandler(t, AnalysisPack(), "generate_docs")
	res, err := handler(context.Background(), invocation(t), map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	handler := findHandler(t, SecurityPack(), "encrypt_sensitive_data")
	inv := invocation(t)
	plaintext := []byte("api_key=super-secret-value\n")
	require.NoError(t, os.WriteFile(filepath.Join(inv.ProjectRoot, "secrets.properties"), plaintext, 0600))

	res, err := handler(context.Background(), inv, map[string]any{
		"file_path":  "secrets.properties",
		"passphrase": "hunter2",
		"mode":       "encrypt",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	sealed, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "secrets.properties.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "super-secret-value")

	// Decrypt back over the .enc file with the same passphrase.
	require.NoError(t, os.Remove(filepath.Join(inv.ProjectRoot, "secrets.properties")))
	_, err = handler(context.Background(), inv, map[string]any{
		"file_path":  "secrets.properties.enc",
		"passphrase": "hunter2",
		"mode":       "decrypt",
	})
	require.NoError(t, err)

	restored, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "secrets.properties"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, restored)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	handler := findHandler(t, SecurityPack(), "encrypt_sensitive_data")
	inv := invocation(t)
	require.NoError(t, os.WriteFile(filepath.Join(inv.ProjectRoot, "data.txt"), []byte("payload"), 0600))

	_, err := handler(context.Background(), inv, map[string]any{
		"file_path": "data.txt", "passphrase": "right", "mode": "encrypt",
	})
	require.NoError(t, err)

	_, err = handler(context.Background(), inv, map[string]any{
		"file_path": "data.txt.enc", "passphrase": "wrong", "mode": "decrypt",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase")
}

func TestSetupSecureStorage(t *testing.T) {
	handler := findHandler(t, SecurityPack(), "setup_secure_storage")
	inv := invocation(t)

	res, err := handler(context.Background(), inv, map[string]any{
		"file_path":    "SecureStorage.kt",
		"package_name": "com.example.storage",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	source, err := os.ReadFile(filepath.Join(inv.ProjectRoot, "SecureStorage.kt"))
	require.NoError(t, err)
	assert.Contains(t, string(source), "EncryptedSharedPreferences")
	assert.Contains(t, string(source), "package com.example.storage")
}

func writeFakeGradlew(t *testing.T, root, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "gradlew"), []byte(script), 0755))
}

func allText(res *envelope.Result) string {
	var out string
	for _, b := range res.Content {
		out += b.Text + "\n"
	}
	return out
}
