// ABOUTME: Project analysis pack.
// ABOUTME: Walks the project tree for structure stats and renders docs to HTML.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/envelope"
)

// skipDirs are tree entries never descended into during analysis.
var skipDirs = map[string]bool{
	".git":         true,
	".gradle":      true,
	"build":        true,
	"node_modules": true,
}

// AnalysisPack creates the project analysis capabilities.
func AnalysisPack() []*capability.Descriptor {
	a := &analysisHandlers{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	return []*capability.Descriptor{
		{
			Name:        "analyze_project",
			Description: "Summarize the project structure: source files, modules, build scripts",
			InputSchema: &jsonschema.Schema{Type: "object"},
			Class:       capability.ClassInteractive,
			Handler:     a.analyzeProject,
		},
		{
			Name:        "generate_docs",
			Description: "Render the project's markdown documentation to HTML",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"output_dir": {
						Type:        "string",
						Description: "Directory for the rendered HTML, relative to the project root",
						Default:     json.RawMessage(`"build/docs"`),
					},
				},
			},
			Class:   capability.ClassInteractive,
			Handler: a.generateDocs,
		},
	}
}

type analysisHandlers struct {
	markdown goldmark.Markdown
}

func (a *analysisHandlers) analyzeProject(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	if inv.ProjectRoot == "" {
		return nil, fmt.Errorf("no project root configured")
	}

	counts := map[string]int{}
	var buildScripts, modules []string

	err := filepath.WalkDir(inv.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(inv.ProjectRoot, path)
		if relErr != nil {
			rel = path
		}
		switch {
		case strings.HasSuffix(path, ".kt"):
			counts["kotlin"]++
		case strings.HasSuffix(path, ".java"):
			counts["java"]++
		case strings.HasSuffix(path, ".xml"):
			counts["xml"]++
		}
		name := d.Name()
		if name == "build.gradle" || name == "build.gradle.kts" {
			buildScripts = append(buildScripts, rel)
			if dir := filepath.Dir(rel); dir != "." {
				modules = append(modules, dir)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking project: %w", err)
	}

	return &envelope.Result{
		Success: true,
		Data: map[string]any{
			"kotlin_files":  counts["kotlin"],
			"java_files":    counts["java"],
			"xml_files":     counts["xml"],
			"build_scripts": buildScripts,
			"modules":       modules,
		},
	}, nil
}

func (a *analysisHandlers) generateDocs(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	outRel := stringArg(args, "output_dir")
	if outRel == "" {
		outRel = filepath.Join("build", "docs")
	}
	outDir, err := resolveUnderRoot(inv.ProjectRoot, outRel)
	if err != nil {
		return nil, err
	}

	var sources []string
	err = filepath.WalkDir(inv.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(path), ".md") {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting markdown: %w", err)
	}

	if len(sources) == 0 {
		return &envelope.Result{
			Success: true,
			Data:    map[string]any{"rendered": []string{}, "note": "no markdown files in the project"},
		}, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	rendered := make([]string, 0, len(sources))
	for i, src := range sources {
		if inv.Progress != nil {
			inv.Progress((i*100)/len(sources), "rendering "+filepath.Base(src))
		}
		raw, readErr := os.ReadFile(src)
		if readErr != nil {
			return nil, fmt.Errorf("reading %s: %w", src, readErr)
		}
		var buf bytes.Buffer
		if convErr := a.markdown.Convert(raw, &buf); convErr != nil {
			return nil, fmt.Errorf("rendering %s: %w", src, convErr)
		}

		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".html"
		target := filepath.Join(outDir, base)
		if writeErr := os.WriteFile(target, buf.Bytes(), 0644); writeErr != nil {
			return nil, fmt.Errorf("writing %s: %w", base, writeErr)
		}
		rendered = append(rendered, filepath.Join(outRel, base))
	}

	return &envelope.Result{
		Success: true,
		Data:    map[string]any{"rendered": rendered},
	}, nil
}
