// ABOUTME: Allow-listed filesystem access for resources/read and friends.
// ABOUTME: Only file:// URIs contained in an allowed root may be served.

package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrPermission indicates an access outside the allowed roots. Never
// retried, always surfaced.
var ErrPermission = errors.New("access outside allowed roots")

// ErrNotFound indicates the resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrUnsupportedScheme indicates a non-file URI.
var ErrUnsupportedScheme = errors.New("unsupported URI scheme")

// Info describes one listable resource.
type Info struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// Contents is the payload of one read resource.
type Contents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Root is one allowed root directory as exposed by roots/list.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// FS serves reads scoped to a fixed set of allowed root directories.
type FS struct {
	roots  []string
	logger *slog.Logger
}

// NewFS creates a filesystem view over the given allowed roots. Roots are
// cleaned and made absolute; relative roots resolve against the working
// directory at startup.
func NewFS(roots []string, logger *slog.Logger) (*FS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(roots) == 0 {
		return nil, errors.New("at least one allowed root is required")
	}

	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolving allowed root %q: %w", r, err)
		}
		cleaned = append(cleaned, filepath.Clean(abs))
	}

	return &FS{roots: cleaned, logger: logger.With("component", "resource")}, nil
}

// Roots returns the allowed roots for roots/list.
func (f *FS) Roots() []Root {
	out := make([]Root, len(f.roots))
	for i, r := range f.roots {
		out[i] = Root{URI: "file://" + r, Name: filepath.Base(r)}
	}
	return out
}

// Contains reports whether path (absolute, cleaned) lies inside an allowed
// root.
func (f *FS) Contains(path string) bool {
	for _, root := range f.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// wellKnownFiles are project files surfaced by resources/list when present.
var wellKnownFiles = []struct {
	rel  string
	desc string
}{
	{"build.gradle", "Project build configuration"},
	{"build.gradle.kts", "Project build configuration (Kotlin DSL)"},
	{"settings.gradle", "Gradle settings"},
	{"settings.gradle.kts", "Gradle settings (Kotlin DSL)"},
	{"app/build.gradle", "App module build configuration"},
	{"app/build.gradle.kts", "App module build configuration (Kotlin DSL)"},
	{"app/src/main/AndroidManifest.xml", "Android manifest"},
	{"gradle.properties", "Gradle properties"},
	{"README.md", "Project readme"},
}

// List returns the well-known project resources that exist under the first
// allowed root (the active project).
func (f *FS) List() []Info {
	var infos []Info
	projectRoot := f.roots[0]
	for _, wk := range wellKnownFiles {
		path := filepath.Join(projectRoot, wk.rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		infos = append(infos, Info{
			URI:         "file://" + path,
			Name:        wk.rel,
			Description: wk.desc,
			MIMEType:    "text/plain",
		})
	}
	return infos
}

// ReadURI reads a file:// URI contained in an allowed root.
// Binary content is not returned raw; a text note is served instead so the
// response stays a text block.
func (f *FS) ReadURI(uri string) (*Contents, error) {
	path, err := f.resolve(uri)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading resource: %w", err)
	}

	if !utf8.Valid(data) {
		return &Contents{
			URI:      uri,
			MIMEType: "application/octet-stream",
			Text:     fmt.Sprintf("Binary file: %s (%d bytes)", filepath.Base(path), len(data)),
		}, nil
	}

	return &Contents{URI: uri, MIMEType: "text/plain", Text: string(data)}, nil
}

// resolve parses and validates a file:// URI against the allowed roots.
func (f *FS) resolve(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	path := u.Path
	if path == "" {
		path = strings.TrimPrefix(uri, "file://")
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	if !f.Contains(abs) {
		f.logger.Warn("rejected resource access outside allowed roots", "path", abs)
		return "", fmt.Errorf("%w: %s", ErrPermission, abs)
	}
	return abs, nil
}
