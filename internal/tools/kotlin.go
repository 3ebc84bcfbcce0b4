// ABOUTME: Kotlin code generation pack.
// ABOUTME: Creates Kotlin source files, XML layouts, and Compose components.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/envelope"
)

// KotlinPack creates the Kotlin code generation capabilities.
func KotlinPack() []*capability.Descriptor {
	k := &kotlinHandlers{}
	return []*capability.Descriptor{
		{
			Name:        "create_kotlin_file",
			Description: "Create a new Kotlin file with a class, data class, object, interface, or enum skeleton",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path":    {Type: "string", Description: "Path for the new file, relative to the project root"},
					"package_name": {Type: "string", Description: "Kotlin package declaration"},
					"class_name":   {Type: "string", Description: "Name of the top-level declaration"},
					"class_type": {
						Type:        "string",
						Description: "Kind of declaration to generate",
						Enum:        []any{"class", "data class", "object", "interface", "enum class"},
						Default:     json.RawMessage(`"class"`),
					},
				},
				Required: []string{"file_path", "package_name", "class_name"},
			},
			Class:   capability.ClassInteractive,
			Handler: k.createKotlinFile,
		},
		{
			Name:        "create_layout_file",
			Description: "Create an Android XML layout file",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"layout_name": {Type: "string", Description: "Layout file name without the .xml extension"},
					"layout_type": {
						Type:    "string",
						Enum:    []any{"linear", "constraint", "frame"},
						Default: json.RawMessage(`"linear"`),
					},
				},
				Required: []string{"layout_name"},
			},
			Class:   capability.ClassInteractive,
			Handler: k.createLayoutFile,
		},
		{
			Name:        "create_compose_component",
			Description: "Create a Jetpack Compose component file",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path":      {Type: "string", Description: "Path for the new file, relative to the project root"},
					"package_name":   {Type: "string"},
					"component_name": {Type: "string", Description: "Name of the composable function"},
					"with_preview": {
						Type:        "boolean",
						Description: "Also generate an @Preview function",
						Default:     json.RawMessage(`true`),
					},
				},
				Required: []string{"file_path", "package_name", "component_name"},
			},
			Class:   capability.ClassInteractive,
			Handler: k.createComposeComponent,
		},
	}
}

type kotlinHandlers struct{}

func (k *kotlinHandlers) createKotlinFile(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	path, err := resolveUnderRoot(inv.ProjectRoot, stringArg(args, "file_path"))
	if err != nil {
		return nil, err
	}

	pkg := stringArg(args, "package_name")
	name := stringArg(args, "class_name")
	kind := stringArg(args, "class_type")

	var body string
	switch kind {
	case "data class":
		body = fmt.Sprintf("data class %s(\n    val id: String,\n)\n", name)
	case "object":
		body = fmt.Sprintf("object %s {\n}\n", name)
	case "interface":
		body = fmt.Sprintf("interface %s {\n}\n", name)
	case "enum class":
		body = fmt.Sprintf("enum class %s {\n}\n", name)
	default:
		body = fmt.Sprintf("class %s {\n}\n", name)
	}

	source := fmt.Sprintf("package %s\n\n%s", pkg, body)
	if err := writeFile(path, source); err != nil {
		return nil, err
	}

	return &envelope.Result{
		Success: true,
		Data: map[string]any{
			"created":    stringArg(args, "file_path"),
			"class_type": kind,
		},
	}, nil
}

func (k *kotlinHandlers) createLayoutFile(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	name := stringArg(args, "layout_name")
	rel := filepath.Join("app", "src", "main", "res", "layout", name+".xml")
	path, err := resolveUnderRoot(inv.ProjectRoot, rel)
	if err != nil {
		return nil, err
	}

	var root string
	switch stringArg(args, "layout_type") {
	case "constraint":
		root = "androidx.constraintlayout.widget.ConstraintLayout"
	case "frame":
		root = "FrameLayout"
	default:
		root = "LinearLayout"
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<%s xmlns:android="http://schemas.android.com/apk/res/android"
    android:layout_width="match_parent"
    android:layout_height="match_parent">

</%s>
`, root, root)
	if err := writeFile(path, content); err != nil {
		return nil, err
	}

	return &envelope.Result{Success: true, Data: map[string]any{"created": rel}}, nil
}

func (k *kotlinHandlers) createComposeComponent(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	path, err := resolveUnderRoot(inv.ProjectRoot, stringArg(args, "file_path"))
	if err != nil {
		return nil, err
	}

	pkg := stringArg(args, "package_name")
	name := stringArg(args, "component_name")

	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	sb.WriteString("import androidx.compose.runtime.Composable\n")
	sb.WriteString("import androidx.compose.material3.Text\n")
	if boolArg(args, "with_preview") {
		sb.WriteString("import androidx.compose.ui.tooling.preview.Preview\n")
	}
	fmt.Fprintf(&sb, "\n@Composable\nfun %s() {\n    Text(text = %q)\n}\n", name, name)
	if boolArg(args, "with_preview") {
		fmt.Fprintf(&sb, "\n@Preview(showBackground = true)\n@Composable\nfun %sPreview() {\n    %s()\n}\n", name, name)
	}

	if err := writeFile(path, sb.String()); err != nil {
		return nil, err
	}

	return &envelope.Result{Success: true, Data: map[string]any{"created": stringArg(args, "file_path")}}, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
